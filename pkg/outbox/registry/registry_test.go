package registry

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

func testRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{
		OrdersTopic:     "orders-topic",
		AffiliatesTopic: "affiliates-topic",
	})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func envelopeOf(t *testing.T, data any) json.RawMessage {
	t.Helper()
	body, ok := data.([]byte)
	if !ok {
		var err error
		if body, err = json.Marshal(data); err != nil {
			t.Fatalf("marshal data: %v", err)
		}
	}
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    outbox.CurrentVersion,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       body,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return raw
}

func TestResolveOrderCreated(t *testing.T) {
	orderID, affiliateID := uuid.New(), uuid.New()
	resolved, err := testRegistry(t).Resolve(models.OutboxEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload: envelopeOf(t, payloads.OrderCreatedEvent{
			OrderID:     orderID,
			OrderNumber: "SF-20260105-000001",
			AffiliateID: &affiliateID,
			Subtotal:    10000,
			Discount:    500,
			ShippingFee: 300,
			Total:       9800,
		}),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Descriptor.Topic != "orders-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.OrderCreatedEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.OrderID != orderID || payload.AffiliateID == nil || *payload.AffiliateID != affiliateID || payload.Total != 9800 {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" || resolved.Envelope.OccurredAt.IsZero() {
		t.Fatalf("envelope not carried through: %+v", resolved.Envelope)
	}
}

func TestResolveRoutesAffiliateEvents(t *testing.T) {
	reg := testRegistry(t)
	affiliateID := uuid.New()
	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventAffiliateRankChange,
		AggregateType: enums.AggregateAffiliate,
		AggregateID:   affiliateID,
		Payload:       envelopeOf(t, payloads.AffiliateRankChangedEvent{AffiliateID: affiliateID, PreviousRank: 1, Rank: 2, CumulativeSales: 25}),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Descriptor.Topic != "affiliates-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	if got := reg.Topics(); !slices.Equal(got, []string{"affiliates-topic", "orders-topic"}) {
		t.Fatalf("unexpected topics %v", got)
	}
}

func TestResolveRejectsBrokenRows(t *testing.T) {
	newer, _ := json.Marshal(outbox.PayloadEnvelope{Version: outbox.CurrentVersion + 1, EventID: uuid.NewString(), Data: json.RawMessage(`{}`)})
	cases := map[string]models.OutboxEvent{
		"unknown type": {
			EventType:     "order.deleted",
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       envelopeOf(t, []byte(`{}`)),
		},
		"aggregate mismatch": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateAffiliate,
			AggregateID:   uuid.New(),
			Payload:       envelopeOf(t, []byte(`{}`)),
		},
		"missing aggregate id": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			Payload:       envelopeOf(t, []byte(`{}`)),
		},
		"null data": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       envelopeOf(t, []byte("null")),
		},
		"wrong data shape": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       envelopeOf(t, []byte(`{"total":"lots"}`)),
		},
		"future envelope": {
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Payload:       newer,
		},
	}
	reg := testRegistry(t)
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			var nonRetry NonRetryableError
			if !errors.As(err, &nonRetry) {
				t.Fatalf("expected NonRetryableError, got %v", err)
			}
		})
	}
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders"}); err == nil {
		t.Fatal("expected missing affiliates topic to fail")
	}
}
