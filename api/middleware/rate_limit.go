package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/storetrail/storetrail-backend/api/responses"
	pkgerrors "github.com/storetrail/storetrail-backend/pkg/errors"
	"github.com/storetrail/storetrail-backend/pkg/logger"
	pkgredis "github.com/storetrail/storetrail-backend/pkg/redis"
)

type windowCounter interface {
	Hit(ctx context.Context, scope string, limit int64, window time.Duration) (pkgredis.Window, error)
}

// RateLimitPolicy caps how often one actor may hit a route group.
type RateLimitPolicy struct {
	name   string
	window time.Duration
	limit  int64
}

func NewRateLimitPolicy(name string, window time.Duration, limit int) RateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "default"
	}
	return RateLimitPolicy{name: name, window: window, limit: int64(limit)}
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && p.limit > 0
}

// actor picks the counter for r: the authenticated user, else the client IP.
func (p RateLimitPolicy) actor(r *http.Request) (scope, kind string) {
	if userID := UserIDFromContext(r.Context()); userID != "" {
		return p.name + ":user:" + userID, "user"
	}
	if ip := clientIP(r); ip != "" {
		return p.name + ":ip:" + ip, "ip"
	}
	return "", ""
}

// RateLimit rejects requests past the policy's per-window budget with 429.
// Every counted response carries X-RateLimit-Limit and X-RateLimit-Remaining.
func RateLimit(policy RateLimitPolicy, counter windowCounter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || counter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			scope, kind := policy.actor(r)
			if scope == "" {
				next.ServeHTTP(w, r)
				return
			}

			win, err := counter.Hit(ctx, scope, policy.limit, policy.window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.FormatInt(win.Limit, 10))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(win.Remaining(), 10))
			if win.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			if logg != nil {
				logg.Warn(logg.WithFields(ctx, map[string]any{
					"policy":   policy.name,
					"actor":    kind,
					"attempts": win.Count,
					"limit":    win.Limit,
					"reset_in": win.ResetIn.String(),
				}), "rate_limit.blocked")
			}
			h.Set("Retry-After", retryAfterSeconds(win.ResetIn, policy.window))
			responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
		})
	}
}

// retryAfterSeconds rounds up so clients never retry inside the same window.
func retryAfterSeconds(resetIn, window time.Duration) string {
	if resetIn <= 0 {
		resetIn = window
	}
	secs := int64((resetIn + time.Second - 1) / time.Second)
	return strconv.FormatInt(max(secs, 1), 10)
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
