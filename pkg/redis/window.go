package redis

import (
	"context"
	"fmt"
	"time"
)

// Window is a fixed-window counter as seen right after one hit.
type Window struct {
	Allowed bool
	Count   int64
	Limit   int64
	ResetIn time.Duration
}

func (w Window) Remaining() int64 {
	return max(w.Limit-w.Count, 0)
}

// Hit counts one request against scope. The first hit of a window arms the
// expiry; later hits read the remaining TTL and re-arm it if it went missing.
func (c *Client) Hit(ctx context.Context, scope string, limit int64, window time.Duration) (Window, error) {
	cmds, err := c.ready()
	if err != nil {
		return Window{}, err
	}
	if limit <= 0 || window <= 0 {
		return Window{}, fmt.Errorf("rate window %q: limit and window must be positive", scope)
	}

	key := c.RateLimitKey(scope)
	count, err := cmds.Incr(ctx, key).Result()
	if err != nil {
		return Window{}, fmt.Errorf("incr %s: %w", key, err)
	}

	resetIn := window
	arm := count == 1
	if !arm {
		ttl, err := cmds.PTTL(ctx, key).Result()
		if err != nil {
			return Window{}, fmt.Errorf("pttl %s: %w", key, err)
		}
		if ttl > 0 {
			resetIn = ttl
		} else {
			arm = true
		}
	}
	if arm {
		if err := cmds.Expire(ctx, key, window).Err(); err != nil {
			return Window{}, fmt.Errorf("expire %s: %w", key, err)
		}
	}

	return Window{
		Allowed: count <= limit,
		Count:   count,
		Limit:   limit,
		ResetIn: resetIn,
	}, nil
}
