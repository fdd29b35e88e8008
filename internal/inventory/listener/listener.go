package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fekuna/omnipos-ledger-service/internal/apperr"
	"github.com/fekuna/omnipos-ledger-service/internal/inventory"
	"github.com/fekuna/omnipos-ledger-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-ledger-service/internal/logger"
	"github.com/fekuna/omnipos-ledger-service/internal/metrics"
	"github.com/fekuna/omnipos-ledger-service/internal/model"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	outcomeApplied   = "applied"
	outcomeRejected  = "rejected"
	outcomeMalformed = "malformed"
	outcomeFailed    = "failed"
)

// Reader is the part of *kafka.Reader the listener uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaReader builds a consumer-group reader with explicit commits.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
}

// AdjustmentEvent is published by upstream receiving and counting systems.
type AdjustmentEvent struct {
	EventID       string           `json:"eventId"`
	TenantID      string           `json:"tenantId"`
	ActorUserID   string           `json:"actorUserId"`
	ItemID        string           `json:"itemId"`
	QtyDelta      decimal.Decimal  `json:"qtyDelta"`
	UnitCostMinor *decimal.Decimal `json:"unitCostMinor"`
	Note          string           `json:"note"`
}

type InventoryListener struct {
	reader  Reader
	topic   string
	uc      inventory.UseCase
	metrics *metrics.Metrics
	logger  logger.ZapLogger

	// newBackOff bounds retries of a retryable failure for one message.
	newBackOff func() backoff.BackOff

	// redeliverAfter is the pause before a failed message is tried again.
	redeliverAfter time.Duration
}

func NewInventoryListener(reader Reader, topic string, uc inventory.UseCase, m *metrics.Metrics, log logger.ZapLogger) *InventoryListener {
	return &InventoryListener{
		reader:  reader,
		topic:   topic,
		uc:      uc,
		metrics: m,
		logger:  log,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 100 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return backoff.WithMaxRetries(b, 5)
		},
		redeliverAfter: 5 * time.Second,
	}
}

// Start consumes until ctx is cancelled. A message is committed once it has
// been applied or rejected for a business reason. A message whose retries
// ran out is held and tried again, so the partition never moves past it.
func (l *InventoryListener) Start(ctx context.Context) {
	l.logger.Info("Starting inventory adjustment listener", zap.String("topic", l.topic))
	for {
		msg, err := l.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info("Stopping inventory adjustment listener")
				return
			}
			l.logger.Error("Failed to fetch kafka message", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		outcome := l.processMessage(ctx, msg)
		for outcome == outcomeFailed {
			l.record(outcome)
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.redeliverAfter):
			}
			outcome = l.processMessage(ctx, msg)
		}
		l.record(outcome)
		if err := l.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			l.logger.Error("Failed to commit kafka message", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

func (l *InventoryListener) processMessage(ctx context.Context, msg kafka.Message) string {
	event, err := decodeEvent(msg.Value)
	if err != nil {
		l.logger.Error("Dropping malformed adjustment event", zap.Int64("offset", msg.Offset), zap.Error(err))
		return outcomeMalformed
	}

	actor := model.Actor{TenantID: event.TenantID, UserID: event.ActorUserID}
	input := &dto.AdjustInventoryInput{
		ItemID:        event.ItemID,
		QtyDelta:      event.QtyDelta,
		UnitCostMinor: event.UnitCostMinor,
		Note:          event.Note,
	}

	op := func() error {
		_, err := l.uc.ApplyAdjustment(ctx, actor, input)
		if err == nil {
			return nil
		}
		if appErr, ok := apperr.As(err); ok && appErr.Retryable() && ctx.Err() == nil {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		l.logger.Warn("Retrying adjustment", zap.String("event_id", event.EventID), zap.Duration("wait", wait), zap.Error(err))
	}

	err = backoff.RetryNotify(op, backoff.WithContext(l.newBackOff(), ctx), notify)
	if err == nil {
		l.logger.Debug("Applied adjustment event",
			zap.String("event_id", event.EventID),
			zap.String("tenant_id", event.TenantID),
			zap.String("item_id", event.ItemID),
		)
		return outcomeApplied
	}

	appErr := apperr.From(err)
	if appErr.Kind == apperr.KindRetryable || appErr.Kind == apperr.KindInternal {
		l.logger.Error("Failed to apply adjustment event",
			zap.String("event_id", event.EventID),
			zap.String("tenant_id", event.TenantID),
			zap.Error(err),
		)
		return outcomeFailed
	}

	l.logger.Warn("Rejected adjustment event",
		zap.String("event_id", event.EventID),
		zap.String("tenant_id", event.TenantID),
		zap.String("item_id", event.ItemID),
		zap.String("code", appErr.Code),
	)
	return outcomeRejected
}

func decodeEvent(value []byte) (*AdjustmentEvent, error) {
	var event AdjustmentEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return nil, fmt.Errorf("unmarshal adjustment event: %w", err)
	}
	if event.TenantID == "" {
		return nil, fmt.Errorf("adjustment event %q has no tenantId", event.EventID)
	}
	return &event, nil
}

func (l *InventoryListener) record(outcome string) {
	if l.metrics != nil {
		l.metrics.RecordConsumed(l.topic, outcome)
	}
}

func (l *InventoryListener) Close() error {
	return l.reader.Close()
}
