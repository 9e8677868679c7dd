package domain

import "time"

const DefaultRateWindow = 1000

// UpdateRate is a fixed-window throughput estimator: every window messages
// the rate is recomputed and the counter starts over.
type UpdateRate struct {
	window  int
	count   int
	started time.Time
	rate    float64

	now func() time.Time
}

func NewUpdateRate(window int) *UpdateRate {
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &UpdateRate{window: window, now: time.Now}
}

func (r *UpdateRate) Count() {
	if r.count == 0 {
		r.started = r.now()
	}
	r.count++
	if r.count == r.window {
		elapsed := r.now().Sub(r.started).Seconds()
		if elapsed > 0 {
			r.rate = float64(r.count) / elapsed
		}
		r.count = 0
	}
}

// Rate is the updates per second measured over the last complete window.
func (r *UpdateRate) Rate() float64 { return r.rate }
