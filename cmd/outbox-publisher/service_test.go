package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

func orderEvent(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    outbox.CurrentVersion,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       raw,
		AttemptCount:  attempts,
	}
}

func resolvesTo(topic string) *fakeRegistry {
	return &fakeRegistry{resolved: &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{Topic: topic, AggregateType: enums.AggregateOrder},
		Payload:    &payloads.OrderCreatedEvent{},
	}}
}

type harness struct {
	svc   *Service
	queue *fakeQueue
	dlq   *fakeDLQ
	pub   *fakePublisher
}

func newHarness(t *testing.T, reg resolver, cfg config.OutboxConfig, events ...models.OutboxEvent) *harness {
	t.Helper()
	h := &harness{
		queue: &fakeQueue{events: events},
		dlq:   &fakeDLQ{},
		pub:   &fakePublisher{},
	}
	svc, err := NewService(ServiceParams{
		Outbox:      cfg,
		Logger:      logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:          fakeStore{},
		PubSub:      fakeTopics{},
		Queue:       h.queue,
		DeadLetters: h.dlq,
		Registry:    reg,
		Publishers:  func(string) publisher { return h.pub },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	h.svc = svc
	return h
}

func TestNewServiceListsMissingDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"logger", "database", "pubsub", "outbox queue", "dlq", "registry"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestProcessBatchKeepsGoingAfterTransientFailure(t *testing.T) {
	first, second := orderEvent(t, 0), orderEvent(t, 0)
	h := newHarness(t, resolvesTo("sf-order-events"), config.OutboxConfig{}, first, second)
	h.pub.errs = []error{errors.New("unavailable"), nil}

	busy, err := h.svc.processBatch(context.Background())
	if err != nil || !busy {
		t.Fatalf("processBatch = %v, %v", busy, err)
	}
	if len(h.queue.failed) != 1 || h.queue.failed[0] != first.ID {
		t.Fatalf("expected first row to record a failure, got %v", h.queue.failed)
	}
	if len(h.queue.published) != 1 || h.queue.published[0] != second.ID {
		t.Fatalf("expected second row published, got %v", h.queue.published)
	}
	if len(h.dlq.entries) != 0 {
		t.Fatalf("transient failure must not dead-letter: %+v", h.dlq.entries)
	}
}

func TestProcessBatchReportsIdlePoll(t *testing.T) {
	h := newHarness(t, resolvesTo("sf-order-events"), config.OutboxConfig{})
	busy, err := h.svc.processBatch(context.Background())
	if err != nil || busy {
		t.Fatalf("processBatch = %v, %v", busy, err)
	}
}

func TestPublishedMessageCarriesAttributes(t *testing.T) {
	event := orderEvent(t, 0)
	h := newHarness(t, resolvesTo("sf-order-events"), config.OutboxConfig{}, event)

	if _, err := h.svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if len(h.pub.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(h.pub.messages))
	}
	msg := h.pub.messages[0]
	if !bytes.Equal(msg.Data, event.Payload) {
		t.Fatal("message body must be the stored envelope")
	}
	if msg.Attributes["event_type"] != string(enums.EventOrderCreated) || msg.Attributes["aggregate_id"] != event.AggregateID.String() {
		t.Fatalf("unexpected attributes %v", msg.Attributes)
	}
}

func TestPublisherCreatedOncePerTopic(t *testing.T) {
	h := newHarness(t, resolvesTo("sf-order-events"), config.OutboxConfig{}, orderEvent(t, 0), orderEvent(t, 0))
	created := 0
	h.svc.publishers = newTopicPublishers(func(topic string) publisher {
		if topic != "sf-order-events" {
			t.Fatalf("unexpected topic %q", topic)
		}
		created++
		return h.pub
	})

	if _, err := h.svc.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if created != 1 {
		t.Fatalf("expected one publisher, created %d", created)
	}
	if len(h.queue.published) != 2 {
		t.Fatalf("expected both rows published, got %d", len(h.queue.published))
	}
}

func TestDeadLetterReasons(t *testing.T) {
	cases := []struct {
		name     string
		reg      resolver
		attempts int
		pubErr   error
		noPub    bool
		want     enums.OutboxDLQErrorReason
	}{
		{
			name: "undecodable row",
			reg:  &fakeRegistry{err: registry.NewNonRetryableError(errors.New("invalid payload"))},
			want: enums.OutboxDLQReasonNonRetryable,
		},
		{
			name:  "no publisher for topic",
			reg:   resolvesTo("sf-affiliate-events"),
			noPub: true,
			want:  enums.OutboxDLQReasonNoPublisher,
		},
		{
			name:   "permanent publish error",
			reg:    resolvesTo("sf-order-events"),
			pubErr: registry.NewNonRetryableError(errors.New("message too large")),
			want:   enums.OutboxDLQReasonNonRetryable,
		},
		{
			name:     "last attempt",
			reg:      resolvesTo("sf-order-events"),
			attempts: 2,
			pubErr:   errors.New("deadline exceeded"),
			want:     enums.OutboxDLQReasonMaxAttempts,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event := orderEvent(t, tc.attempts)
			h := newHarness(t, tc.reg, config.OutboxConfig{MaxAttempts: 3}, event)
			h.pub.errs = []error{tc.pubErr}
			if tc.noPub {
				h.svc.publishers = newTopicPublishers(func(string) publisher { return nil })
			}

			if _, err := h.svc.processBatch(context.Background()); err != nil {
				t.Fatalf("processBatch: %v", err)
			}
			if len(h.dlq.entries) != 1 {
				t.Fatalf("expected one dlq entry, got %d", len(h.dlq.entries))
			}
			entry := h.dlq.entries[0]
			if entry.ErrorReason != tc.want || entry.EventID != event.ID {
				t.Fatalf("unexpected entry %+v", entry)
			}
			if !bytes.Equal(entry.Payload, event.Payload) {
				t.Fatal("dlq entry must keep the original payload")
			}
			if len(h.queue.retired) != 1 || h.queue.retired[0] != 3 {
				t.Fatalf("expected row retired at max attempts, got %v", h.queue.retired)
			}
		})
	}
}

func TestBackoffDoublesUpToCap(t *testing.T) {
	base := 500 * time.Millisecond
	wait := base
	for i := 0; i < 10; i++ {
		wait = nextBackoff(wait, base)
	}
	if wait != maxBackoff {
		t.Fatalf("expected backoff capped at %v, got %v", maxBackoff, wait)
	}
	if got := nextBackoff(0, base); got != 2*base {
		t.Fatalf("expected %v from zero, got %v", 2*base, got)
	}
	if got := withJitter(base); got < base || got >= base+jitterWindow {
		t.Fatalf("jitter out of range: %v", got)
	}
}

func TestRunStopsWhenContextEnds(t *testing.T) {
	h := newHarness(t, resolvesTo("sf-order-events"), config.OutboxConfig{PollIntervalMS: 5})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := h.svc.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if h.queue.backlogCalls == 0 {
		t.Fatal("expected idle polls to report the backlog")
	}
}

type fakeQueue struct {
	events       []models.OutboxEvent
	published    []uuid.UUID
	failed       []uuid.UUID
	retired      []int
	backlogCalls int
}

func (f *fakeQueue) Claim(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeQueue) MarkPublished(_ *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeQueue) RecordFailure(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeQueue) Retire(_ *gorm.DB, _ uuid.UUID, _ error, attempts int) error {
	f.retired = append(f.retired, attempts)
	return nil
}

func (f *fakeQueue) Backlog(context.Context) (int64, error) {
	f.backlogCalls++
	return int64(len(f.events)), nil
}

type fakeDLQ struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQ) Insert(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakeStore struct{}

func (fakeStore) Ping(context.Context) error { return nil }

func (fakeStore) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type fakeTopics struct{}

func (fakeTopics) Ping(context.Context) error { return nil }

func (fakeTopics) Publisher(string) *gcppubsub.Publisher { return nil }

type fakePublisher struct {
	errs     []error
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	return fakeResult{err: err}
}

type fakeResult struct {
	err error
}

func (f fakeResult) Get(context.Context) (string, error) {
	return "msg-1", f.err
}

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	resolved := *f.resolved
	resolved.Envelope = outbox.PayloadEnvelope{EventID: event.ID.String(), OccurredAt: time.Now()}
	return &resolved, nil
}
