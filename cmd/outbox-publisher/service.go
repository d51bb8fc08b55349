package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
	publishJob         = "outbox_publish"
)

type store interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type topicSource interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type eventQueue interface {
	Claim(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(tx *gorm.DB, id uuid.UUID) error
	RecordFailure(tx *gorm.DB, id uuid.UUID, cause error) error
	Retire(tx *gorm.DB, id uuid.UUID, cause error, attempts int) error
	Backlog(ctx context.Context) (int64, error)
}

type deadLetters interface {
	Insert(tx *gorm.DB, entry models.OutboxDLQ) error
}

type resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type ServiceParams struct {
	Outbox      config.OutboxConfig
	Logger      *logger.Logger
	Metrics     *metrics.StorefrontMetrics
	Jobs        *metrics.JobMetrics
	DB          store
	PubSub      topicSource
	Queue       eventQueue
	DeadLetters deadLetters
	Registry    resolver
	// Publishers overrides the Pub/Sub backed publisher lookup.
	Publishers publisherFactory
}

func (p ServiceParams) validate() error {
	var err error
	for name, missing := range map[string]bool{
		"logger":       p.Logger == nil,
		"database":     p.DB == nil,
		"pubsub":       p.PubSub == nil,
		"outbox queue": p.Queue == nil,
		"dlq":          p.DeadLetters == nil,
		"registry":     p.Registry == nil,
	} {
		if missing {
			err = multierr.Append(err, fmt.Errorf("%s is required", name))
		}
	}
	return err
}

// Service drains outbox_events to Pub/Sub. Rows that cannot be delivered
// are copied to outbox_dlq and retired.
type Service struct {
	logg        *logger.Logger
	metrics     *metrics.StorefrontMetrics
	jobs        *metrics.JobMetrics
	db          store
	pubsub      topicSource
	queue       eventQueue
	dlq         deadLetters
	registry    resolver
	publishers  *topicPublishers
	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	factory := params.Publishers
	if factory == nil {
		factory = func(topic string) publisher {
			return newGCPPublisher(params.PubSub.Publisher(topic))
		}
	}
	cfg := params.Outbox
	return &Service{
		logg:        params.Logger,
		metrics:     params.Metrics,
		jobs:        params.Jobs,
		db:          params.DB,
		pubsub:      params.PubSub,
		queue:       params.Queue,
		dlq:         params.DeadLetters,
		registry:    params.Registry,
		publishers:  newTopicPublishers(factory),
		batchSize:   positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts: positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		poll:        time.Duration(positiveOr(cfg.PollIntervalMS, int(defaultPoll/time.Millisecond))) * time.Millisecond,
	}, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Run polls until ctx is done. Empty polls wait one interval; failing
// batches back off exponentially up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{
		"database": s.db.Ping,
		"pubsub":   s.pubsub.Ping,
	} {
		if err := ping(ctx); err != nil {
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	wait := s.poll
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var busy bool
		err := s.jobs.Track(publishJob, func() error {
			var err error
			busy, err = s.processBatch(ctx)
			return err
		})
		switch {
		case err != nil && !errors.Is(err, context.Canceled):
			s.logg.Error(ctx, "outbox batch failed", err)
			wait = nextBackoff(wait, s.poll)
		case busy:
			wait = s.poll
			continue
		default:
			wait = s.poll
			s.reportBacklog(ctx)
		}

		if err := sleep(ctx, withJitter(wait)); err != nil {
			return err
		}
	}
}

func (s *Service) reportBacklog(ctx context.Context) {
	n, err := s.queue.Backlog(ctx)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "outbox backlog query failed")
		return
	}
	s.metrics.SetOutboxBacklog(n)
}

// stop flushes the cached topic publishers.
func (s *Service) stop() {
	s.publishers.stop()
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base time.Duration) time.Duration {
	if current < base {
		current = base
	}
	return min(current*2, maxBackoff)
}

func withJitter(d time.Duration) time.Duration {
	return d + rand.N(jitterWindow)
}
