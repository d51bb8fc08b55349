package affiliates

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type memoryIdempotencyStore struct {
	keys map[string]bool
}

func (s *memoryIdempotencyStore) Get(context.Context, string) (string, error) { return "", nil }

func (s *memoryIdempotencyStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (s *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.keys, k)
	}
	return nil
}

type stubProcessor struct {
	calls []uuid.UUID
	err   error
}

func (s *stubProcessor) ProcessOrder(_ context.Context, orderID uuid.UUID) (CommissionResult, error) {
	s.calls = append(s.calls, orderID)
	return CommissionResult{Credited: s.err == nil}, s.err
}

func newTestConsumer(t *testing.T, processor *stubProcessor) (*Consumer, *memoryIdempotencyStore) {
	t.Helper()
	store := &memoryIdempotencyStore{keys: map[string]bool{}}
	manager, err := idempotency.NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("idempotency manager: %v", err)
	}
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}, Format: "json"})
	return &Consumer{processor: processor, claims: manager, logg: logg}, store
}

func orderCreatedMessage(t *testing.T, eventID uuid.UUID, payload payloads.OrderCreatedEvent) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	envelope, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: eventID.String(), OccurredAt: time.Now().UTC(), Data: data})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &pubsub.Message{
		ID:         "msg-1",
		Data:       envelope,
		Attributes: map[string]string{"event_type": string(enums.EventOrderCreated)},
	}
}

func TestConsumerProcessesOrderOnce(t *testing.T) {
	processor := &stubProcessor{}
	consumer, _ := newTestConsumer(t, processor)
	affiliateID := uuid.New()
	orderID := uuid.New()
	msg := orderCreatedMessage(t, uuid.New(), payloads.OrderCreatedEvent{OrderID: orderID, AffiliateID: &affiliateID})

	if v := consumer.handle(context.Background(), msg); v != ack {
		t.Fatalf("expected ack, got %v", v)
	}
	if v := consumer.handle(context.Background(), msg); v != ack {
		t.Fatalf("expected ack on redelivery, got %v", v)
	}
	if len(processor.calls) != 1 || processor.calls[0] != orderID {
		t.Fatalf("expected a single processing call, got %v", processor.calls)
	}
}

func TestConsumerNacksAndForgetsOnFailure(t *testing.T) {
	processor := &stubProcessor{err: errors.New("db down")}
	consumer, store := newTestConsumer(t, processor)
	affiliateID := uuid.New()
	msg := orderCreatedMessage(t, uuid.New(), payloads.OrderCreatedEvent{OrderID: uuid.New(), AffiliateID: &affiliateID})

	if v := consumer.handle(context.Background(), msg); v != nack {
		t.Fatalf("expected nack, got %v", v)
	}
	if len(store.keys) != 0 {
		t.Fatalf("expected idempotency key released, got %v", store.keys)
	}
}

func TestConsumerAcksPermanentFailures(t *testing.T) {
	processor := &stubProcessor{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	consumer, store := newTestConsumer(t, processor)
	affiliateID := uuid.New()
	msg := orderCreatedMessage(t, uuid.New(), payloads.OrderCreatedEvent{OrderID: uuid.New(), AffiliateID: &affiliateID})

	if v := consumer.handle(context.Background(), msg); v != ack {
		t.Fatalf("expected ack for a permanent failure, got %v", v)
	}
	if len(store.keys) != 1 {
		t.Fatalf("expected claim kept, got %v", store.keys)
	}
}

func TestConsumerSkipsOrdersWithoutAffiliate(t *testing.T) {
	processor := &stubProcessor{}
	consumer, _ := newTestConsumer(t, processor)
	msg := orderCreatedMessage(t, uuid.New(), payloads.OrderCreatedEvent{OrderID: uuid.New()})

	if v := consumer.handle(context.Background(), msg); v != ack {
		t.Fatalf("expected ack, got %v", v)
	}
	if len(processor.calls) != 0 {
		t.Fatalf("expected no processing, got %v", processor.calls)
	}
}

func TestConsumerIgnoresOtherEvents(t *testing.T) {
	processor := &stubProcessor{}
	consumer, _ := newTestConsumer(t, processor)
	msg := &pubsub.Message{ID: "msg-2", Data: []byte(`{}`), Attributes: map[string]string{"event_type": string(enums.EventCommissionCredited)}}

	if v := consumer.handle(context.Background(), msg); v != ack {
		t.Fatalf("expected ack, got %v", v)
	}
	if len(processor.calls) != 0 {
		t.Fatalf("expected no processing, got %v", processor.calls)
	}
}

func TestDecodeOrderCreatedRejectsBrokenMessages(t *testing.T) {
	valid := orderCreatedMessage(t, uuid.New(), payloads.OrderCreatedEvent{OrderID: uuid.New()}).Data
	if _, _, err := decodeOrderCreated(valid); err != nil {
		t.Fatalf("valid message rejected: %v", err)
	}

	cases := map[string]string{
		"not json":        `{`,
		"future version":  `{"version":99,"eventId":"` + uuid.NewString() + `","data":{}}`,
		"bad event id":    `{"version":1,"eventId":"nope","data":{}}`,
		"null data":       `{"version":1,"eventId":"` + uuid.NewString() + `","data":null}`,
		"missing order":   `{"version":1,"eventId":"` + uuid.NewString() + `","data":{"order_number":"SF-1"}}`,
		"wrong data type": `{"version":1,"eventId":"` + uuid.NewString() + `","data":[1]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, _, err := decodeOrderCreated([]byte(raw)); err == nil {
				t.Fatal("expected decode error")
			}
		})
	}
}
