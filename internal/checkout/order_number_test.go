package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type fakeCounter struct {
	counts map[string]int64
	ttls   map[string]time.Duration
	err    error
}

func (f *fakeCounter) IncrWithTTL(_ context.Context, key string, ttl time.Duration) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	f.ttls[key] = ttl
	return f.counts[key], nil
}

func (f *fakeCounter) OrderNumberKey(day string) string { return "sf:counter:order_number:" + day }

func TestOrderNumbersPerDaySequence(t *testing.T) {
	counter := &fakeCounter{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
	gen, err := NewOrderNumbers(counter, "sf")
	if err != nil {
		t.Fatalf("new order numbers: %v", err)
	}
	now := time.Date(2026, 1, 5, 22, 30, 0, 0, time.UTC)
	gen.now = func() time.Time { return now }

	first, _ := gen.Next(context.Background())
	second, _ := gen.Next(context.Background())
	if first != "SF-20260105-000001" || second != "SF-20260105-000002" {
		t.Fatalf("unexpected numbers %s %s", first, second)
	}

	// 23:30 UTC is already the next day in Algiers
	now = now.Add(time.Hour)
	third, _ := gen.Next(context.Background())
	if third != "SF-20260106-000001" {
		t.Fatalf("expected day rollover, got %s", third)
	}
	if counter.ttls["sf:counter:order_number:20260105"] != orderCounterTTL {
		t.Fatalf("expected counter ttl, got %v", counter.ttls)
	}
}

func TestOrderNumbersCounterFailure(t *testing.T) {
	gen, _ := NewOrderNumbers(&fakeCounter{err: errors.New("redis down")}, "")
	if _, err := gen.Next(context.Background()); !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
