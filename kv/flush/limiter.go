package flush

import (
	"context"

	"golang.org/x/time/rate"
)

type byteLimiter = rate.Limiter

func newByteLimiter(bytesPerSec int) *byteLimiter {
	if bytesPerSec <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(bytesPerSec), bytesPerSec)
}

// waitBytes blocks until n bytes may pass. Requests larger than the burst are taken in burst-sized pieces.
func waitBytes(ctx context.Context, l *byteLimiter, n int) error {
	if l.Limit() == rate.Inf {
		return nil
	}
	burst := l.Burst()
	for n > 0 {
		take := n
		if take > burst {
			take = burst
		}
		if err := l.WaitN(ctx, take); err != nil {
			return err
		}
		n -= take
	}
	return nil
}
