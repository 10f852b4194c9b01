// Package events publishes task lifecycle notifications.
//
// Publishing is best-effort: callers log failures and carry on. The NATS
// publisher is fire-and-forget (core NATS, no acknowledgements).
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-tasks-backend/internal/domain"
	"github.com/tbourn/go-tasks-backend/internal/observability"
)

// Event types, appended to the subject prefix.
const (
	TypeTaskCreated = "task.created"
	TypeTaskUpdated = "task.updated"
	TypeTaskDeleted = "task.deleted"
)

// ErrClosed is returned when publishing on a closed connection.
var ErrClosed = errors.New("events: publisher closed")

// Event is the JSON payload published for every task mutation.
// Task is nil for deletions.
type Event struct {
	Type   string       `json:"type"`
	TaskID string       `json:"task_id"`
	Owner  string       `json:"owner,omitempty"`
	At     time.Time    `json:"at"`
	Task   *domain.Task `json:"task,omitempty"`
}

// Publisher emits task events.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close()
}

// NopPublisher discards every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close()                               {}

// NATSConfig configures NATSPublisher.
type NATSConfig struct {
	URL           string
	Name          string
	SubjectPrefix string

	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int
}

// DefaultNATSConfig returns a config with unlimited reconnects.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:            nats.DefaultURL,
		SubjectPrefix:  "tarefas",
		ConnectTimeout: 5 * time.Second,
		ReconnectWait:  2 * time.Second,
		MaxReconnects:  -1,
	}
}

// NATSPublisher publishes events to <prefix>.<type> on a NATS connection.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSPublisher connects to cfg.URL.
func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	opts := []nats.Option{
		nats.Timeout(cfg.ConnectTimeout),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
	}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}
	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return NewNATSPublisherFromConn(conn, cfg.SubjectPrefix), nil
}

// NewNATSPublisherFromConn wraps an existing connection.
func NewNATSPublisherFromConn(conn *nats.Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix}
}

// Subject returns the subject an event type is published on.
func Subject(prefix, typ string) string {
	prefix = strings.TrimSuffix(prefix, ".")
	if prefix == "" {
		return typ
	}
	return prefix + "." + typ
}

// Publish serializes ev and sends it without waiting for delivery.
func (p *NATSPublisher) Publish(ctx context.Context, ev Event) error {
	if p.conn == nil || p.conn.IsClosed() {
		return ErrClosed
	}
	subject := Subject(p.prefix, ev.Type)

	ctx, span := observability.Tracer("events").Start(ctx, "events.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "nats"),
			attribute.String("messaging.destination.name", subject),
			attribute.String("task.id", ev.TaskID),
		))
	defer span.End()

	data, err := json.Marshal(ev)
	if err != nil {
		span.SetStatus(codes.Error, "marshal")
		return fmt.Errorf("marshal event: %w", err)
	}

	// Trace context travels in the message headers.
	msg := nats.NewMsg(subject)
	msg.Data = data
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))

	if err := p.conn.PublishMsg(msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish")
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn == nil || p.conn.IsClosed() {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
