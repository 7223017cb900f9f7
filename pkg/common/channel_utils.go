package common

import (
	"context"
)

// ReadFromChannelWithTimeout reads from ch until maxCount entries have been
// collected or ctx expires, whichever comes first. On expiry it returns what
// it has together with the context error.
func ReadFromChannelWithTimeout[T any](ctx context.Context, ch <-chan T, maxCount int) ([]T, error) {
	out := make([]T, 0, maxCount)
	for len(out) < maxCount {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case msg := <-ch:
			out = append(out, msg)
		}
	}

	return out, nil
}
