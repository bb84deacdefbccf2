// internal/adapter/surface/hub.go

package surface

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"incidentmap/internal/domain/incident"
	"incidentmap/internal/logger"
)

// Message types sent to map clients
const (
	TypeSnapshot      = "snapshot"
	TypeMarkerCreated = "marker.created"
	TypeMarkerIcon    = "marker.icon"
	TypeMarkerDetail  = "marker.detail"
	TypeMarkerOpacity = "marker.opacity"
	TypeMapFocus      = "map.focus"
	TypeSidebarEntry  = "sidebar.entry"
)

// Message is the envelope for everything pushed to a client
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// MarkerView is the client-side picture of one marker
type MarkerView struct {
	Handle     incident.MarkerHandle `json:"handle"`
	Coordinate incident.Coordinate   `json:"coordinate"`
	Icon       string                `json:"icon"`
	Location   string                `json:"location"`
	Details    []incident.Summary    `json:"details"`
	Opacity    float64               `json:"opacity"`
}

type snapshotPayload struct {
	Markers []MarkerView             `json:"markers"`
	Sidebar []incident.SidebarEntry `json:"sidebar"`
}

type iconPayload struct {
	Handle incident.MarkerHandle `json:"handle"`
	Icon   string                `json:"icon"`
}

type detailPayload struct {
	Handle  incident.MarkerHandle `json:"handle"`
	Summary incident.Summary      `json:"summary"`
}

type opacityPayload struct {
	Handle  incident.MarkerHandle `json:"handle"`
	Opacity float64               `json:"opacity"`
}

// HubConfig contains configuration for the websocket hub
type HubConfig struct {
	// Time allowed to write a message to the peer
	WriteWait time.Duration

	// Time allowed to read the next pong message from the peer
	PongWait time.Duration

	// Send pings to peer with this period
	PingPeriod time.Duration

	// Buffered messages per client before it is dropped
	SendBuffer int

	// Sidebar entries kept for new clients; <= 0 keeps all
	MaxSidebar int

	// Detail summaries kept per marker; <= 0 keeps all
	MaxDetails int
}

// DefaultHubConfig returns the default websocket configuration
func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteWait:  10 * time.Second,
		PongWait:   60 * time.Second,
		PingPeriod: (60 * time.Second * 9) / 10,
		SendBuffer: 256,
		MaxSidebar: 500,
		MaxDetails: 100,
	}
}

// Hub is a marker surface that renders to websocket clients. It keeps the
// presentation state it has broadcast so a new client starts from a
// complete snapshot.
type Hub struct {
	config HubConfig
	log    *logger.Logger

	mu      sync.RWMutex
	clients map[*client]bool
	markers map[incident.MarkerHandle]*MarkerView
	order   []incident.MarkerHandle
	sidebar []incident.SidebarEntry // oldest first
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NewHub creates an empty hub
func NewHub(config HubConfig, log *logger.Logger) *Hub {
	defaults := DefaultHubConfig()
	if config.SendBuffer <= 0 {
		config.SendBuffer = defaults.SendBuffer
	}
	if config.WriteWait <= 0 {
		config.WriteWait = defaults.WriteWait
	}
	if config.PongWait <= 0 {
		config.PongWait = defaults.PongWait
	}
	if config.PingPeriod <= 0 {
		config.PingPeriod = defaults.PingPeriod
	}
	if log == nil {
		log = logger.Default()
	}
	return &Hub{
		config:  config,
		log:     log.WithComponent("hub"),
		clients: make(map[*client]bool),
		markers: make(map[incident.MarkerHandle]*MarkerView),
	}
}

// CreateMarker places a marker and returns its handle
func (h *Hub) CreateMarker(coord incident.Coordinate, opts incident.MarkerOptions) incident.MarkerHandle {
	view := &MarkerView{
		Handle:     incident.MarkerHandle(uuid.New().String()),
		Coordinate: coord,
		Icon:       opts.Icon,
		Location:   opts.Location,
		Details:    []incident.Summary{opts.Initial},
		Opacity:    1,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.markers[view.Handle] = view
	h.order = append(h.order, view.Handle)
	h.broadcastLocked(Message{Type: TypeMarkerCreated, Payload: cloneView(view)})

	return view.Handle
}

// SetIcon replaces a marker's glyph
func (h *Hub) SetIcon(handle incident.MarkerHandle, icon string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	view, ok := h.markers[handle]
	if !ok {
		return
	}
	view.Icon = icon
	h.broadcastLocked(Message{Type: TypeMarkerIcon, Payload: iconPayload{Handle: handle, Icon: icon}})
}

// PrependDetail adds a summary to the front of the marker's detail panel
func (h *Hub) PrependDetail(handle incident.MarkerHandle, summary incident.Summary) {
	h.mu.Lock()
	defer h.mu.Unlock()

	view, ok := h.markers[handle]
	if !ok {
		return
	}
	view.Details = append([]incident.Summary{summary}, view.Details...)
	if max := h.config.MaxDetails; max > 0 && len(view.Details) > max {
		view.Details = view.Details[:max:max]
	}
	h.broadcastLocked(Message{Type: TypeMarkerDetail, Payload: detailPayload{Handle: handle, Summary: summary}})
}

// SetOpacity changes a marker's opacity
func (h *Hub) SetOpacity(handle incident.MarkerHandle, value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	view, ok := h.markers[handle]
	if !ok {
		return
	}
	if view.Opacity == value {
		return
	}
	view.Opacity = value
	h.broadcastLocked(Message{Type: TypeMarkerOpacity, Payload: opacityPayload{Handle: handle, Opacity: value}})
}

// Focus asks every client to center the map on coord
func (h *Hub) Focus(coord incident.Coordinate) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.broadcastLocked(Message{Type: TypeMapFocus, Payload: coord})
}

// PrependSidebar adds an entry to the top of every client's sidebar
func (h *Hub) PrependSidebar(entry incident.SidebarEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.sidebar = append(h.sidebar, entry)
	if max := h.config.MaxSidebar; max > 0 && len(h.sidebar) > max {
		h.sidebar = append(h.sidebar[:0:0], h.sidebar[len(h.sidebar)-max:]...)
	}
	h.broadcastLocked(Message{Type: TypeSidebarEntry, Payload: entry})
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and registers a new client
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("failed to upgrade to websocket")
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, h.config.SendBuffer),
	}

	h.mu.Lock()
	snapshot, err := json.Marshal(Message{Type: TypeSnapshot, Payload: h.snapshotLocked()})
	if err != nil {
		h.mu.Unlock()
		h.log.WithError(err).Error("failed to marshal snapshot")
		conn.Close()
		return
	}
	c.send <- snapshot
	h.clients[c] = true
	h.mu.Unlock()

	h.log.Info("client connected", "remote", r.RemoteAddr)

	go c.writePump()
	go c.readPump()
}

func (h *Hub) snapshotLocked() snapshotPayload {
	markers := make([]MarkerView, 0, len(h.order))
	for _, handle := range h.order {
		markers = append(markers, cloneView(h.markers[handle]))
	}
	sidebar := make([]incident.SidebarEntry, 0, len(h.sidebar))
	for i := len(h.sidebar) - 1; i >= 0; i-- {
		sidebar = append(sidebar, h.sidebar[i])
	}
	return snapshotPayload{Markers: markers, Sidebar: sidebar}
}

// broadcastLocked sends msg to every client without blocking. Clients
// whose buffer is full are dropped. Callers hold h.mu (read or write).
func (h *Hub) broadcastLocked(msg Message) {
	if len(h.clients) == 0 {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Error("failed to marshal message", "type", msg.Type)
		return
	}

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			go h.unregister(c)
		}
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.once.Do(func() { close(c.send) })
	}
	h.mu.Unlock()
}

// readPump drains the connection so control frames are processed and a
// closed peer is noticed
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.config.PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).Warn("websocket read error")
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the connection
func (c *client) writePump() {
	ticker := time.NewTicker(c.hub.config.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.hub.config.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func cloneView(v *MarkerView) MarkerView {
	out := *v
	out.Details = append([]incident.Summary(nil), v.Details...)
	return out
}
