// Package publisher streams audit records to Kafka for off-box retention.
// Publishing is fire-and-forget: the security log of record is Postgres, the
// stream is for downstream consumers (SIEM, alerting).
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"portalx/internal/audit/models"
)

// Kafka publishes audit records to a single topic, keyed by action so
// per-action ordering is preserved within a partition.
type Kafka struct {
	client *kgo.Client
	logger *slog.Logger
}

type event struct {
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

func NewKafka(brokers []string, topic string, logger *slog.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Kafka{client: client, logger: logger}, nil
}

// Publish enqueues a record asynchronously. Delivery failures are logged,
// never propagated.
func (k *Kafka) Publish(ctx context.Context, record *models.Record) {
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	payload, err := json.Marshal(event{
		ActorID:       record.ActorID,
		Action:        record.Action,
		IPAddress:     record.IPAddress,
		UserAgent:     record.UserAgent,
		Path:          record.Path,
		Method:        record.Method,
		AttemptedCode: record.AttemptedCode,
		Success:       record.Success,
		CreatedAt:     createdAt,
	})
	if err != nil {
		k.logger.Error("failed to encode audit event", "error", err)
		return
	}

	k.client.Produce(ctx, &kgo.Record{
		Key:   []byte(record.Action),
		Value: payload,
	}, func(_ *kgo.Record, err error) {
		if err != nil {
			k.logger.Warn("audit event publish failed", "action", record.Action, "error", err)
		}
	})
}

// Close flushes outstanding records and releases the client.
func (k *Kafka) Close() {
	k.client.Close()
}
