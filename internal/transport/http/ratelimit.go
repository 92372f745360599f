package http

import (
	"time"

	"golang.org/x/time/rate"
)

// newRateLimiter allows perMinute inbound frames per connection with a burst
// of the same size. A non-positive limit disables limiting.
func newRateLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
}
