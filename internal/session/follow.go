package session

import (
	"context"
	"time"
)

// Follow emits a fresh Snapshot immediately and then on every interval tick
// until ctx is cancelled. The channel is closed on return. Failed reads are
// logged and skipped.
func (e *Engine) Follow(ctx context.Context, interval time.Duration) <-chan Snapshot {
	if interval <= 0 {
		interval = time.Second
	}
	out := make(chan Snapshot, 1)

	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			snap, err := e.Status(ctx, e.clock.Now())
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				e.logger.Warn().Err(err).Msg("Status refresh failed")
			} else {
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
