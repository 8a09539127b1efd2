// Package export bridges the engine's notification bus to external
// observability consumers over NATS. Every notification is published in
// the wire format under a subject hierarchy of
// <prefix>.<category>.<kind>, so consumers can subscribe to exactly the
// slice they care about (e.g. "exengine.notifications.storage.>").
package export

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/exengine/notification"
)

// Subscriber is the slice of the engine the exporter needs
type Subscriber interface {
	SubscribeToNotifications(h notification.Handler, f notification.Filter) *notification.Subscription
	UnsubscribeFromNotifications(sub *notification.Subscription)
}

// NATSExporter publishes every engine notification to NATS,
// fire-and-forget. Export is best-effort by design: a disconnected NATS
// server must never slow the engine, so publish errors are logged and
// dropped.
type NATSExporter struct {
	nc     *nats.Conn
	prefix string
	logger *slog.Logger
	sub    *notification.Subscription
	source Subscriber
}

// Option configures the exporter's NATS connection
type Option func(*options)

type options struct {
	name          string
	maxReconnects int
	reconnectWait time.Duration
	logger        *slog.Logger
}

// WithName sets the NATS client connection name
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithMaxReconnects sets the maximum reconnection attempts (-1 for infinite)
func WithMaxReconnects(max int) Option {
	return func(o *options) { o.maxReconnects = max }
}

// WithReconnectWait sets the wait time between reconnection attempts
func WithReconnectWait(d time.Duration) Option {
	return func(o *options) { o.reconnectWait = d }
}

// WithLogger sets the exporter's logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// NewNATSExporter connects to NATS. The connection reconnects
// indefinitely by default; notifications published while disconnected are
// dropped.
func NewNATSExporter(url, subjectPrefix string, opts ...Option) (*NATSExporter, error) {
	o := &options{
		name:          "exengine-export",
		maxReconnects: -1,
		reconnectWait: 2 * time.Second,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}

	nc, err := nats.Connect(url,
		nats.Name(o.name),
		nats.MaxReconnects(o.maxReconnects),
		nats.ReconnectWait(o.reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			o.logger.Warn("export connection lost", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			o.logger.Info("export connection restored", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, err
	}

	return &NATSExporter{
		nc:     nc,
		prefix: subjectPrefix,
		logger: o.logger,
	}, nil
}

// Attach starts exporting the engine's notifications
func (x *NATSExporter) Attach(source Subscriber) {
	x.source = source
	x.sub = source.SubscribeToNotifications(x.publish, nil)
}

// publish encodes one notification and sends it. Runs on the bus
// dispatch goroutine, so it must not block.
func (x *NATSExporter) publish(n notification.Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		x.logger.Error("failed to encode notification for export",
			"kind", n.Kind, "error", err)
		return
	}
	subject := x.prefix + "." + n.Category.String() + "." + n.Kind
	if err := x.nc.Publish(subject, payload); err != nil {
		x.logger.Debug("notification export dropped",
			"subject", subject, "error", err)
	}
}

// Close detaches from the bus, flushes pending publishes, and closes the
// connection
func (x *NATSExporter) Close() {
	if x.sub != nil && x.source != nil {
		x.source.UnsubscribeFromNotifications(x.sub)
		x.sub = nil
	}
	if err := x.nc.Flush(); err != nil {
		x.logger.Debug("export flush failed", "error", err)
	}
	x.nc.Close()
}
