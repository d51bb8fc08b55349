package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

type rateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// PromoRateLimitPolicy throttles promo code attempts per cart session and per client IP.
type PromoRateLimitPolicy struct {
	window         time.Duration
	sessionLimit   int
	ipLimit        int
	trustedProxies int
}

// NewPromoRateLimitPolicy builds a policy with the supplied window and limits.
// A zero limit disables that scope. trustedProxies is the number of proxies
// in front of the service that append to X-Forwarded-For; with zero the
// header is ignored and the peer address is used.
func NewPromoRateLimitPolicy(window time.Duration, sessionLimit, ipLimit, trustedProxies int) PromoRateLimitPolicy {
	if trustedProxies < 0 {
		trustedProxies = 0
	}
	return PromoRateLimitPolicy{
		window:         window,
		sessionLimit:   sessionLimit,
		ipLimit:        ipLimit,
		trustedProxies: trustedProxies,
	}
}

func (p PromoRateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.sessionLimit > 0 || p.ipLimit > 0)
}

// PromoRateLimit counts attempts in fixed windows. It must run after
// CartSession so the session id is in the context.
func PromoRateLimit(policy PromoRateLimitPolicy, store rateLimiterStore, m *metrics.StorefrontMetrics, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			checks := []struct {
				scope string
				value string
				limit int
			}{
				{scope: "session", value: CartSessionFromContext(ctx), limit: policy.sessionLimit},
				{scope: "ip", value: clientIP(r, policy.trustedProxies), limit: policy.ipLimit},
			}
			for _, check := range checks {
				if check.limit <= 0 || check.value == "" {
					continue
				}
				key := store.RateLimitKey("promo:" + check.scope + ":" + check.value)
				allowed, count, err := allow(ctx, store, key, policy.window, int64(check.limit))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if !allowed {
					m.IncPromo(metrics.PromoRateLimited)
					respondRateLimited(ctx, logg, w, policy, check.scope, count, check.limit)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func allow(ctx context.Context, store rateLimiterStore, key string, window time.Duration, limit int64) (bool, int64, error) {
	count, err := store.IncrWithTTL(ctx, key, window)
	if err != nil {
		return false, 0, err
	}
	return count <= limit, count, nil
}

func respondRateLimited(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy PromoRateLimitPolicy, scope string, count int64, limit int) {
	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"scope":          scope,
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(policy.window.Seconds()),
		})
		logg.Warn(logCtx, "promo.rate_limit.blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many promo code attempts, try again later"))
}

// clientIP reads the address the outermost trusted proxy saw. Entries left of
// that hop are supplied by the caller and never used.
func clientIP(r *http.Request, trustedProxies int) string {
	if r == nil {
		return ""
	}
	if trustedProxies > 0 {
		var hops []string
		for _, header := range r.Header.Values("X-Forwarded-For") {
			for _, part := range strings.Split(header, ",") {
				if hop := strings.TrimSpace(part); hop != "" {
					hops = append(hops, hop)
				}
			}
		}
		if len(hops) >= trustedProxies {
			if ip := net.ParseIP(hops[len(hops)-trustedProxies]); ip != nil {
				return ip.String()
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
