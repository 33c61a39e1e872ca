// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import "time"

// RedirectLimiter gates redirections per short URL hash.
type RedirectLimiter interface {
	IsAllowed(key string) bool
	CurrentRedirects(key string) int
	ResetAt(key string) (time.Time, bool)
	MaxRedirects() int
	WindowSeconds() int
}
