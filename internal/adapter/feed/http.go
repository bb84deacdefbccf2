// internal/adapter/feed/http.go

package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"incidentmap/internal/domain/incident"
)

// ErrUnexpectedStatus is returned when the log endpoint answers with a
// non-2xx status
var ErrUnexpectedStatus = errors.New("unexpected status")

// maxBodyBytes caps how much of a feed response is read
const maxBodyBytes = 16 << 20

// batch is the wire format of the log endpoint
type batch struct {
	Logs []incident.LogEntry `json:"logs"`
}

// HTTPFeed polls a JSON log endpoint
type HTTPFeed struct {
	url    string
	client *http.Client
}

// NewHTTPClient returns a client with bounded dial and handshake times
func NewHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// NewHTTPFeed creates a feed for url. A nil client uses NewHTTPClient(10s).
func NewHTTPFeed(url string, client *http.Client) *HTTPFeed {
	if client == nil {
		client = NewHTTPClient(10 * time.Second)
	}
	return &HTTPFeed{url: url, client: client}
}

// Fetch retrieves one batch of entries
func (f *HTTPFeed) Fetch(ctx context.Context) ([]incident.LogEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching log: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %d from %s", ErrUnexpectedStatus, resp.StatusCode, f.url)
	}

	var b batch
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&b); err != nil {
		return nil, fmt.Errorf("error decoding log: %w", err)
	}

	return b.Logs, nil
}
