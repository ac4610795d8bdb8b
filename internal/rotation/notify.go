// Package rotation implements the per-client credential rotation state
// machine of spec §4.9 and the periodic scheduler that advances it.
package rotation

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// Event is the fire-and-forget notification shape published on every
// rotation state change. Delivery is best-effort: a publish failure is
// logged and otherwise ignored, matching the degrade-to-disabled
// behavior of streamspace's event subscriber rather than failing the
// state transition that triggered it.
type Event struct {
	RotationID string    `json:"rotationId"`
	ClientID   string    `json:"clientId"`
	State      State     `json:"state"`
	Message    string    `json:"message,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

const subjectRotationEvent = "payment-gateway.rotation.event"

// Notifier publishes rotation Events to NATS. It degrades to a no-op
// when NATS is unreachable or unconfigured rather than blocking
// rotation progress on message delivery.
type Notifier struct {
	conn    *nats.Conn
	enabled bool
}

// NotifierConfig carries the subset of NATS connection options the
// gateway needs.
type NotifierConfig struct {
	URL      string
	User     string
	Password string
}

// NewNotifier connects to NATS. If cfg.URL is empty or the connection
// attempt fails, it returns a disabled Notifier — rotation must
// function with no message bus available.
func NewNotifier(cfg NotifierConfig) *Notifier {
	if cfg.URL == "" {
		log.Println("rotation: NATS URL not configured, notifications disabled")
		return &Notifier{enabled: false}
	}

	opts := []nats.Option{
		nats.Name("payment-auth-gateway-rotation"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(10),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		log.Printf("rotation: failed to connect to NATS at %s, notifications disabled: %v", cfg.URL, err)
		return &Notifier{enabled: false}
	}

	return &Notifier{conn: conn, enabled: true}
}

// Close releases the underlying NATS connection, if any.
func (n *Notifier) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}

// Notify publishes ev. Failure to publish is logged and swallowed: a
// notification never blocks or fails a state transition.
func (n *Notifier) Notify(_ context.Context, ev Event) {
	if !n.enabled {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("rotation: failed to marshal event for rotation %s: %v", ev.RotationID, err)
		return
	}
	if err := n.conn.Publish(subjectRotationEvent, data); err != nil {
		log.Printf("rotation: failed to publish event for rotation %s: %v", ev.RotationID, err)
	}
}
