package usecase

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

const tickPollInterval = 10 * time.Millisecond

type MidPriceSource interface {
	MidPrice() (float64, bool)
}

// TickWaiter blocks until the mid-price moves in the wanted direction.
type TickWaiter struct {
	source   MidPriceSource
	interval time.Duration
}

func NewTickWaiter(source MidPriceSource) *TickWaiter {
	return &TickWaiter{source: source, interval: tickPollInterval}
}

// Wait polls the mid-price until it moves strictly up (upTick) or down from the
// value seen at the start, or maxWait elapses. An undefined start mid-price is
// replaced by the first defined one.
func (w *TickWaiter) Wait(ctx context.Context, maxWait time.Duration, upTick bool) (bool, string) {
	deadline := time.NewTimer(maxWait)
	defer deadline.Stop()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	old, haveOld := w.source.MidPrice()
	logger.Debug().Bool("up_tick", upTick).Dur("max_wait", maxWait).Msg("waiting for a tick")

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err().Error()
		case <-deadline.C:
			return false, "No ticks"
		case <-ticker.C:
		}

		mid, ok := w.source.MidPrice()
		if !ok {
			continue
		}
		if !haveOld {
			old, haveOld = mid, true
			continue
		}

		if upTick && mid > old {
			return true, fmt.Sprintf("NEW: %s > OLD: %s", formatPrice(mid), formatPrice(old))
		}
		if !upTick && mid < old {
			return true, fmt.Sprintf("NEW: %s < OLD: %s", formatPrice(mid), formatPrice(old))
		}
	}
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
