package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const defaultHealthInterval = 30 * time.Second

// pinger is a dependency checked before start and then on every health tick.
type pinger func(context.Context) error

// consumer runs until ctx ends or it fails.
type consumer interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Logger         *logger.Logger
	Dependencies   map[string]pinger
	Consumers      map[string]consumer
	HealthInterval time.Duration
}

// Service runs the worker's subscription consumers side by side. One
// failing consumer stops the others and the process.
type Service struct {
	logg      *logger.Logger
	deps      map[string]pinger
	consumers map[string]consumer
	interval  time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if len(params.Consumers) == 0 {
		return nil, errors.New("at least one consumer is required")
	}
	interval := params.HealthInterval
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	return &Service{
		logg:      params.Logger,
		deps:      params.Dependencies,
		consumers: params.Consumers,
		interval:  interval,
	}, nil
}

func (s *Service) Run(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.logg.Info(ctx, "worker dependencies ready")

	g, gctx := errgroup.WithContext(ctx)
	for name, c := range s.consumers {
		g.Go(func() error {
			s.logg.Info(s.logg.WithField(gctx, "consumer", name), "consumer started")
			err := c.Run(gctx)
			switch {
			case gctx.Err() != nil && (err == nil || errors.Is(err, gctx.Err())):
				return nil
			case err == nil:
				return fmt.Errorf("%s consumer stopped unexpectedly", name)
			}
			return fmt.Errorf("%s consumer: %w", name, err)
		})
	}
	g.Go(func() error {
		s.watch(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// check pings every dependency and fails on the first that does not answer.
func (s *Service) check(ctx context.Context) error {
	for name, ping := range s.deps {
		if err := ping(ctx); err != nil {
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}
	return nil
}

// watch re-checks dependencies until ctx ends. Failures are logged; the
// consumers surface real outages through their own errors.
func (s *Service) watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.check(ctx); err != nil && ctx.Err() == nil {
				s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "worker dependency unhealthy")
				continue
			}
			s.logg.Debug(ctx, "worker heartbeat")
		}
	}
}
