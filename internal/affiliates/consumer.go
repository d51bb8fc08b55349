package affiliates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

// claimScope namespaces this consumer's dedupe keys.
const claimScope = "commission-worker"

type orderProcessor interface {
	ProcessOrder(ctx context.Context, orderID uuid.UUID) (CommissionResult, error)
}

// receiver is satisfied by *pubsub.Subscriber.
type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type verdict int

const (
	ack verdict = iota
	nack
)

// Consumer credits affiliate commissions from order.created messages. Each
// event is claimed in Redis first so redeliveries are credited once.
type Consumer struct {
	processor orderProcessor
	sub       receiver
	claims    *idempotency.Manager
	logg      *logger.Logger
}

func NewConsumer(processor orderProcessor, sub *pubsub.Subscriber, claims *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	var missing []string
	if processor == nil {
		missing = append(missing, "processor")
	}
	if sub == nil {
		missing = append(missing, "subscription")
	}
	if claims == nil {
		missing = append(missing, "idempotency manager")
	}
	if logg == nil {
		missing = append(missing, "logger")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("commission consumer: missing %v", missing)
	}
	return &Consumer{processor: processor, sub: sub, claims: claims, logg: logg}, nil
}

// Run blocks receiving messages until ctx ends.
func (c *Consumer) Run(ctx context.Context) error {
	return c.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.handle(ctx, msg) == nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (c *Consumer) handle(ctx context.Context, msg *pubsub.Message) verdict {
	ctx = c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": msg.Attributes["event_type"],
	})
	if msg.Attributes["event_type"] != string(enums.EventOrderCreated) {
		c.logg.Debug(ctx, "ignoring event")
		return ack
	}

	eventID, order, err := decodeOrderCreated(msg.Data)
	if err != nil {
		// A malformed message never becomes valid on redelivery.
		c.logg.Error(ctx, "dropping undecodable order event", err)
		return ack
	}
	ctx = c.logg.WithFields(ctx, map[string]any{
		"event_id": eventID.String(),
		"order_id": order.OrderID.String(),
	})
	if order.AffiliateID == nil {
		c.logg.Debug(ctx, "order has no affiliate")
		return ack
	}

	claimed, err := c.claims.Claim(ctx, claimScope, eventID)
	switch {
	case err != nil:
		c.logg.Error(ctx, "claim order event", err)
		return nack
	case !claimed:
		c.logg.Info(ctx, "order event already handled")
		return ack
	}

	result, err := c.processor.ProcessOrder(ctx, order.OrderID)
	if err == nil {
		c.logg.Info(c.logg.WithField(ctx, "credited", result.Credited), "commission processed")
		return ack
	}
	if !pkgerrors.IsRetryable(err) {
		c.logg.Error(ctx, "commission rejected, keeping claim", err)
		return ack
	}
	c.logg.Error(ctx, "commission failed, releasing claim for redelivery", err)
	if err := c.claims.Release(ctx, claimScope, eventID); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "release claim")
	}
	return nack
}

func decodeOrderCreated(raw []byte) (uuid.UUID, payloads.OrderCreatedEvent, error) {
	var order payloads.OrderCreatedEvent
	envelope, err := outbox.DecodeEnvelope(raw)
	if err != nil {
		return uuid.Nil, order, err
	}
	eventID, err := envelope.ID()
	if err != nil {
		return uuid.Nil, order, err
	}
	if !envelope.HasData() {
		return uuid.Nil, order, errors.New("order event without data")
	}
	if err := json.Unmarshal(envelope.Data, &order); err != nil {
		return uuid.Nil, order, fmt.Errorf("order payload: %w", err)
	}
	if order.OrderID == uuid.Nil {
		return uuid.Nil, order, errors.New("order payload without order_id")
	}
	return eventID, order, nil
}
