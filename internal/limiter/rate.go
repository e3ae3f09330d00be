package limiter

import (
	"context"
	"sync"
	"time"
)

// Giới hạn số lượng request gửi tới GitHub trong 1 giây (secondary rate limit).
// Budget điểm theo giờ do package budget quản lý.
type RateLimiter struct {
	requestTimes []time.Time
	maxRequests  int
	window       time.Duration
	now          func() time.Time
	mu           sync.Mutex
}

func NewRateLimiter(maxRequests int) *RateLimiter {
	if maxRequests < 1 {
		maxRequests = 1
	}
	return &RateLimiter{
		requestTimes: make([]time.Time, 0, maxRequests),
		maxRequests:  maxRequests,
		window:       time.Second,
		now:          time.Now,
	}
}

// SetMaxRequests changes the pace, used when the config file is reloaded.
func (r *RateLimiter) SetMaxRequests(maxRequests int) {
	if maxRequests < 1 {
		maxRequests = 1
	}
	r.mu.Lock()
	r.maxRequests = maxRequests
	r.mu.Unlock()
}

// Allow records a request and returns true when the window has room for it.
func (r *RateLimiter) Allow() bool {
	_, ok := r.reserve()
	return ok
}

// Wait blocks until a request may be sent or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait, ok := r.reserve()
		if ok {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// reserve returns how long until the oldest request leaves the window when full.
func (r *RateLimiter) reserve() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	windowStart := now.Add(-r.window)

	// Xóa các request cũ hơn cửa sổ
	validTimes := r.requestTimes[:0]
	for _, t := range r.requestTimes {
		if t.After(windowStart) {
			validTimes = append(validTimes, t)
		}
	}
	r.requestTimes = validTimes

	if len(r.requestTimes) < r.maxRequests {
		r.requestTimes = append(r.requestTimes, now)
		return 0, true
	}

	wait := r.requestTimes[0].Sub(windowStart)
	if wait <= 0 {
		wait = time.Millisecond
	}
	return wait, false
}
