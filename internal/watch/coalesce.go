package watch

import (
	"context"
	"errors"
	"time"
)

// coalescer folds rapid events into one. After the first event it keeps
// reading until the inner source stays quiet for the interval, then
// returns the last event seen.
type coalescer struct {
	inner    Source
	interval time.Duration
}

func newCoalescer(inner Source, interval time.Duration) *coalescer {
	return &coalescer{inner: inner, interval: interval}
}

func (c *coalescer) Next(ctx context.Context) (Event, error) {
	last, err := c.inner.Next(ctx)
	if err != nil {
		return Event{}, err
	}

	for {
		quietCtx, cancel := context.WithTimeout(ctx, c.interval)
		ev, err := c.inner.Next(quietCtx)
		cancel()

		switch {
		case err == nil:
			last = ev
		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			return last, nil
		default:
			return Event{}, err
		}
	}
}

func (c *coalescer) Rearm() { c.inner.Rearm() }

func (c *coalescer) Close() error { return c.inner.Close() }
