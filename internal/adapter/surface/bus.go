// internal/adapter/surface/bus.go

package surface

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"incidentmap/internal/domain/incident"
	"incidentmap/internal/logger"
)

// Publisher is the subset of *nats.Conn used by Bus
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Bus mirrors marker surface operations onto a message bus as events on
// "<topic>.<event type>" subjects
type Bus struct {
	pub   Publisher
	topic string
	log   *logger.Logger
}

// NewBus creates a bus surface publishing under topic
func NewBus(pub Publisher, topic string, log *logger.Logger) *Bus {
	if log == nil {
		log = logger.Default()
	}
	return &Bus{
		pub:   pub,
		topic: topic,
		log:   log.WithComponent("bus"),
	}
}

type createdEvent struct {
	Handle     incident.MarkerHandle  `json:"handle"`
	Coordinate incident.Coordinate    `json:"coordinate"`
	Options    incident.MarkerOptions `json:"options"`
}

// CreateMarker publishes a marker.created event
func (b *Bus) CreateMarker(coord incident.Coordinate, opts incident.MarkerOptions) incident.MarkerHandle {
	handle := incident.MarkerHandle(uuid.New().String())
	b.publish(TypeMarkerCreated, createdEvent{Handle: handle, Coordinate: coord, Options: opts})
	return handle
}

// SetIcon publishes a marker.icon event
func (b *Bus) SetIcon(handle incident.MarkerHandle, icon string) {
	b.publish(TypeMarkerIcon, iconPayload{Handle: handle, Icon: icon})
}

// PrependDetail publishes a marker.detail event
func (b *Bus) PrependDetail(handle incident.MarkerHandle, summary incident.Summary) {
	b.publish(TypeMarkerDetail, detailPayload{Handle: handle, Summary: summary})
}

// SetOpacity publishes a marker.opacity event
func (b *Bus) SetOpacity(handle incident.MarkerHandle, value float64) {
	b.publish(TypeMarkerOpacity, opacityPayload{Handle: handle, Opacity: value})
}

// Focus publishes a map.focus event
func (b *Bus) Focus(coord incident.Coordinate) {
	b.publish(TypeMapFocus, coord)
}

// PrependSidebar publishes a sidebar.entry event
func (b *Bus) PrependSidebar(entry incident.SidebarEntry) {
	b.publish(TypeSidebarEntry, entry)
}

func (b *Bus) publish(eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		b.log.WithError(err).Error("failed to marshal event", "type", eventType)
		return
	}

	subject := fmt.Sprintf("%s.%s", b.topic, eventType)
	if err := b.pub.Publish(subject, data); err != nil {
		b.log.WithError(err).Warn("failed to publish event", "subject", subject)
	}
}
