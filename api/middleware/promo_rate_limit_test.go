package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeRateStore) RateLimitKey(scope string) string { return "rl:" + scope }

func promoRequest(session, ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/promo", nil)
	req.RemoteAddr = ip + ":5678"
	return req.WithContext(WithCartSession(req.Context(), session))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestPromoRateLimitSessionLimit(t *testing.T) {
	store := newFakeRateStore()
	handler := PromoRateLimit(NewPromoRateLimitPolicy(time.Minute, 2, 0, 0), store, nil, nil)(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, promoRequest("session-one-1", "1.2.3.4"))
		if i < 2 && rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200 got %d", i, rec.Code)
		}
		if i == 2 {
			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", rec.Code)
			}
			if got := rec.Header().Get("Retry-After"); got != "60" {
				t.Fatalf("expected Retry-After 60, got %q", got)
			}
			var payload struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
				t.Fatalf("unexpected code: %s", payload.Error.Code)
			}
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, promoRequest("session-two-2", "1.2.3.4"))
	if rec.Code != http.StatusOK {
		t.Fatalf("another session should not be throttled, got %d", rec.Code)
	}
}

func TestPromoRateLimitIPLimitAcrossSessions(t *testing.T) {
	store := newFakeRateStore()
	handler := PromoRateLimit(NewPromoRateLimitPolicy(time.Minute, 0, 1, 0), store, nil, nil)(okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, promoRequest("session-one-1", "5.6.7.8"))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, promoRequest("session-two-2", "5.6.7.8"))

	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 200 then 429, got %d then %d", first.Code, second.Code)
	}
}

func TestPromoRateLimitStoreFailure(t *testing.T) {
	store := newFakeRateStore()
	store.err = errors.New("redis down")
	handler := PromoRateLimit(NewPromoRateLimitPolicy(time.Minute, 1, 1, 0), store, nil, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, promoRequest("session-one-1", "1.2.3.4"))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected dependency error status, got %d", rec.Code)
	}
}

func TestPromoRateLimitDisabled(t *testing.T) {
	handler := PromoRateLimit(NewPromoRateLimitPolicy(0, 1, 1, 0), newFakeRateStore(), nil, nil)(okHandler())
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, promoRequest("session-one-1", "1.2.3.4"))
		if rec.Code != http.StatusOK {
			t.Fatalf("disabled policy should not throttle, got %d", rec.Code)
		}
	}
}

func TestPromoRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	store := newFakeRateStore()
	handler := PromoRateLimit(NewPromoRateLimitPolicy(time.Minute, 0, 1, 1), store, nil, nil)(okHandler())

	codes := make([]int, 0, 3)
	for i, spoofed := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		req := promoRequest("session-"+spoofed, "35.191.0.1")
		req.Header.Set("X-Forwarded-For", spoofed+", 203.0.113.7")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if i > 0 && rec.Code != http.StatusTooManyRequests {
			t.Fatalf("rotating the leftmost hop bypassed the limit: %v", codes)
		}
	}
	if codes[0] != http.StatusOK {
		t.Fatalf("first attempt should pass, got %v", codes)
	}
	if _, ok := store.counts["rl:promo:ip:203.0.113.7"]; !ok {
		t.Fatalf("expected the proxy-appended hop to be counted, got %v", store.counts)
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		xff     []string
		trusted int
		want    string
	}{
		{name: "no proxies ignores header", xff: []string{"1.1.1.1"}, trusted: 0, want: "192.0.2.10"},
		{name: "one proxy takes rightmost", xff: []string{"1.1.1.1, 2.2.2.2"}, trusted: 1, want: "2.2.2.2"},
		{name: "two proxies skip the nearest", xff: []string{"1.1.1.1, 2.2.2.2, 3.3.3.3"}, trusted: 2, want: "2.2.2.2"},
		{name: "hops across repeated headers", xff: []string{"1.1.1.1", "2.2.2.2"}, trusted: 1, want: "2.2.2.2"},
		{name: "too few hops falls back", xff: []string{"1.1.1.1"}, trusted: 2, want: "192.0.2.10"},
		{name: "garbage hop falls back", xff: []string{"not-an-ip"}, trusted: 1, want: "192.0.2.10"},
		{name: "missing header falls back", trusted: 1, want: "192.0.2.10"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			req.RemoteAddr = "192.0.2.10:5678"
			for _, v := range tc.xff {
				req.Header.Add("X-Forwarded-For", v)
			}
			if got := clientIP(req, tc.trusted); got != tc.want {
				t.Fatalf("expected %s got %s", tc.want, got)
			}
		})
	}
}
