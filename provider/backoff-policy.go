package provider

import (
	"time"

	"github.com/jpillora/backoff"
	"github.com/spooky-finn/go-bitmex-orderbook/config"
)

// BackoffPolicy decides how long the supervisor waits before the next connect.
// *backoff.Backoff satisfies it.
type BackoffPolicy interface {
	Duration() time.Duration
	Reset()
}

// FixedBackoff waits d between every attempt, forever.
func FixedBackoff(d time.Duration) BackoffPolicy {
	return &backoff.Backoff{Min: d, Max: d, Factor: 1}
}

func ExponentialBackoff(min, max time.Duration) BackoffPolicy {
	return &backoff.Backoff{Min: min, Max: max, Factor: 2, Jitter: true}
}

func NewBackoffPolicy(cfg config.Backoff) BackoffPolicy {
	if cfg.Kind == config.BackoffKind_Exponential {
		return ExponentialBackoff(cfg.Min, cfg.Max)
	}
	return FixedBackoff(cfg.Min)
}
