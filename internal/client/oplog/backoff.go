package oplog

import (
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/iudanet/meshsync/internal/config"
)

// backoffDelay возвращает задержку перед попыткой attempt (1-based):
// base * 2^(attempt-1), ограниченная policy.MaxDelay.
func backoffDelay(policy config.RetryPolicy, attempt int) time.Duration {
	if attempt < 1 || policy.BaseDelay <= 0 {
		return 0
	}

	b := retry.NewExponential(policy.BaseDelay)
	if policy.MaxDelay > 0 {
		b = retry.WithCappedDuration(policy.MaxDelay, b)
	}

	var delay time.Duration
	for i := 0; i < attempt; i++ {
		delay, _ = b.Next()
	}
	return delay
}
