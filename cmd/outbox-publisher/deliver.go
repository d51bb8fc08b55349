package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

type batchOutcome struct {
	published    int
	failed       int
	deadLettered int
}

// processBatch claims one batch and delivers it inside a single transaction.
// It reports whether any row was claimed.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	var (
		claimed int
		outcome batchOutcome
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		outcome = batchOutcome{}
		events, err := s.queue.Claim(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		claimed = len(events)
		for _, event := range events {
			if err := s.deliver(ctx, tx, event, &outcome); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	s.metrics.AddOutbox(metrics.OutboxPublished, outcome.published)
	s.metrics.AddOutbox(metrics.OutboxFailed, outcome.failed)
	s.metrics.AddOutbox(metrics.OutboxDeadLettered, outcome.deadLettered)
	return claimed > 0, nil
}

// deliver publishes one row and records what happened to it. Publish errors
// end up in the row state; only bookkeeping errors are returned.
func (s *Service) deliver(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, outcome *batchOutcome) error {
	fields := logFields(event, nil)
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		outcome.deadLettered++
		return s.retire(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, fields)
	}
	fields = logFields(event, resolved)

	topic := resolved.Descriptor.Topic
	pub := s.publishers.get(topic)
	if pub == nil {
		outcome.deadLettered++
		missing := fmt.Errorf("no publisher for topic %s", topic)
		return s.retire(ctx, tx, event, enums.OutboxDLQReasonNoPublisher, missing, fields)
	}

	err = publish(ctx, pub, newMessage(event, resolved))
	if err == nil {
		if err := s.queue.MarkPublished(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		outcome.published++
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
		return nil
	}

	var permanent registry.NonRetryableError
	if errors.As(err, &permanent) {
		outcome.deadLettered++
		return s.retire(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, fields)
	}

	attempt := event.AttemptCount + 1
	fields["attempt_count"] = attempt
	if attempt >= s.maxAttempts {
		outcome.deadLettered++
		exhausted := fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		return s.retire(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, exhausted, fields)
	}

	s.logg.Warn(s.logg.WithField(s.logg.WithFields(ctx, fields), "error", err.Error()), "outbox publish failed, will retry")
	if err := s.queue.RecordFailure(tx, event.ID, err); err != nil {
		return fmt.Errorf("record failure %s: %w", event.ID, err)
	}
	outcome.failed++
	return nil
}

// retire dead-letters event and takes it out of the queue.
func (s *Service) retire(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error, fields map[string]any) error {
	fields["error_reason"] = reason
	s.logg.Warn(s.logg.WithField(s.logg.WithFields(ctx, fields), "error", cause.Error()), "outbox event dead-lettered")

	if err := s.dlq.Insert(tx, event.DeadLetter(reason, cause, time.Now())); err != nil {
		return fmt.Errorf("dead-letter %s: %w", event.ID, err)
	}
	if err := s.queue.Retire(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("retire %s: %w", event.ID, err)
	}
	return nil
}

func logFields(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	if resolved != nil {
		fields["topic"] = resolved.Descriptor.Topic
		fields["event_id"] = resolved.Envelope.EventID
	}
	return fields
}
