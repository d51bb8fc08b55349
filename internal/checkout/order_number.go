package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Algeria keeps UTC+1 all year; order numbers roll over at local midnight.
var storeZone = time.FixedZone("CET", 60*60)

const orderCounterTTL = 48 * time.Hour

type counterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	OrderNumberKey(day string) string
}

// OrderNumbers issues PREFIX-YYYYMMDD-NNNNNN from a per-day Redis sequence.
type OrderNumbers struct {
	counter counterStore
	prefix  string
	now     func() time.Time
}

func NewOrderNumbers(counter counterStore, prefix string) (*OrderNumbers, error) {
	if counter == nil {
		return nil, fmt.Errorf("order number counter required")
	}
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = "SF"
	}
	return &OrderNumbers{counter: counter, prefix: prefix, now: time.Now}, nil
}

func (g *OrderNumbers) Next(ctx context.Context) (string, error) {
	day := g.now().In(storeZone).Format("20060102")
	seq, err := g.counter.IncrWithTTL(ctx, g.counter.OrderNumberKey(day), orderCounterTTL)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
	}
	return fmt.Sprintf("%s-%s-%06d", g.prefix, day, seq), nil
}
