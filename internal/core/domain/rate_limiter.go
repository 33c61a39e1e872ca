// Package domain concentra entidades e estruturas centrais do encurtador.
package domain

import "time"

// RedirectLimitRule is the process-wide redirect ceiling applied per short URL.
type RedirectLimitRule struct {
	MaxRedirects int
	Window       time.Duration
}

// RateLimitInfo is a snapshot of the limiter state for a single key. It feeds
// the rate limit headers and the 429 payload.
type RateLimitInfo struct {
	Key              string
	CurrentRedirects int
	MaxRedirects     int
	WindowSeconds    int
	ResetAt          time.Time
	HasWindow        bool
}

// Remaining is the number of redirects left in the current window.
func (i RateLimitInfo) Remaining() int {
	remaining := i.MaxRedirects - i.CurrentRedirects
	if remaining < 0 {
		return 0
	}
	return remaining
}
