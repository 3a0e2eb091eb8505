package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/muurk/serlink/internal/settings"
)

// Event is one settings change pushed by the bridge.
type Event struct {
	Type     string            `json:"type"`
	Settings settings.Snapshot `json:"settings"`
	Changed  []string          `json:"changed,omitempty"`
}

// Watch streams settings change events to fn until ctx is done, the
// connection drops or fn returns an error.
func (c *Client) Watch(ctx context.Context, fn func(Event) error) error {
	wsURL := "ws" + strings.TrimPrefix(c.BaseURL, "http") + "/api/events"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return ClassifyNetworkError("failed to open event stream", err)
	}
	defer func() { _ = conn.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("event stream closed: %w", err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}
