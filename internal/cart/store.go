package cart

import (
	"context"
	"encoding/json"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// Store persists whole carts per session. Writes are last-write-wins.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Cart, error)
	Save(ctx context.Context, sessionID string, c *Cart) error
	Delete(ctx context.Context, sessionID string) error
}

type kvStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(sessionID string) string
}

// RedisStore keeps each cart as one JSON value under sf:cart:<session>.
type RedisStore struct {
	kv   kvStore
	ttl  time.Duration
	logg *logger.Logger
}

// NewRedisStore builds a store whose keys expire ttl after the last write.
func NewRedisStore(kv kvStore, ttl time.Duration, logg *logger.Logger) (*RedisStore, error) {
	if kv == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart kv store required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &RedisStore{kv: kv, ttl: ttl, logg: logg}, nil
}

// Load returns the stored cart. A missing, corrupted or outdated value loads
// as an empty cart.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (*Cart, error) {
	raw, err := s.kv.Get(ctx, s.kv.CartKey(sessionID))
	if err != nil {
		if redis.IsNil(err) {
			return New(), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "reason", err.Error()), "discarding unreadable cart")
		return New(), nil
	}
	if !c.valid() {
		s.logg.Warn(s.logg.WithField(ctx, "version", c.Version), "discarding invalid cart")
		return New(), nil
	}
	if c.Lines == nil {
		c.Lines = []Line{}
	}
	return &c, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, c *Cart) error {
	if c == nil {
		c = New()
	}
	c.Version = SchemaVersion
	raw, err := json.Marshal(c)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	if err := s.kv.Set(ctx, s.kv.CartKey(sessionID), string(raw), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.kv.Del(ctx, s.kv.CartKey(sessionID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart")
	}
	return nil
}
