// Package consumer tails the audit topic so admission failures surface in
// operational logs and metrics without querying the database.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Event mirrors the payload the publisher writes to the topic.
type Event struct {
	ActorID       *int64    `json:"actorId,omitempty"`
	Action        string    `json:"action"`
	IPAddress     string    `json:"ipAddress,omitempty"`
	UserAgent     string    `json:"userAgent,omitempty"`
	Path          string    `json:"path,omitempty"`
	Method        string    `json:"method,omitempty"`
	AttemptedCode string    `json:"attemptedCode,omitempty"`
	Success       bool      `json:"success"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Consumer reads audit events from Kafka and feeds them to a handler.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
}

// Handler processes one decoded audit event.
type Handler interface {
	Handle(ctx context.Context, event Event)
}

func New(brokers []string, topic, group string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumerGroup(group),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return &Consumer{client: client, handler: handler, logger: logger}, nil
}

// Run polls until the context is cancelled or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error("audit fetch failed",
				"topic", topic, "partition", partition, "error", err)
		})
		fetches.EachRecord(func(rec *kgo.Record) {
			var event Event
			if err := json.Unmarshal(rec.Value, &event); err != nil {
				c.logger.Warn("undecodable audit event, skipping",
					"key", string(rec.Key), "error", err)
				return
			}
			c.handler.Handle(ctx, event)
		})
	}
}

// Close releases the Kafka client.
func (c *Consumer) Close() {
	c.client.Close()
}

// SecurityHandler logs denied access decisions and counts every event by
// action and outcome.
type SecurityHandler struct {
	logger *slog.Logger
	events *prometheus.CounterVec
}

func NewSecurityHandler(logger *slog.Logger) *SecurityHandler {
	return &SecurityHandler{
		logger: logger,
		events: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portalx",
			Subsystem: "audit",
			Name:      "events_total",
			Help:      "Audit events consumed, by action and outcome.",
		}, []string{"action", "success"}),
	}
}

func (h *SecurityHandler) Handle(_ context.Context, event Event) {
	h.events.WithLabelValues(event.Action, fmt.Sprintf("%t", event.Success)).Inc()

	if event.Success {
		return
	}
	attrs := []any{
		"action", event.Action,
		"ip", event.IPAddress,
		"path", event.Path,
		"method", event.Method,
	}
	if event.ActorID != nil {
		attrs = append(attrs, "actor_id", *event.ActorID)
	}
	if event.AttemptedCode != "" {
		attrs = append(attrs, "attempted_code", event.AttemptedCode)
	}
	h.logger.Warn("access denied", attrs...)
}
