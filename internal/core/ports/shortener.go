package ports

import (
	"context"

	"github.com/JeanGrijp/url-shortener/internal/core/domain"
)

// Shortener is the use case surface of the service. Lookup reads a short URL
// without recording a visit; Resolve records one.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) (domain.ShortURL, error)
	Lookup(ctx context.Context, hash string) (domain.ShortURL, error)
	Resolve(ctx context.Context, hash string, client domain.ClientInfo) (domain.ShortURL, error)
	Stats(ctx context.Context, hash string) (domain.URLStats, error)
	QRCode(ctx context.Context, hash string, size int) ([]byte, error)
}

// Hasher derives a short alias from a URL. Different salts must yield
// different hashes for the same URL.
type Hasher interface {
	Hash(longURL string, salt int) string
}

type URLValidator interface {
	Validate(rawURL string) error
}

// SafetyChecker is the threat-list predicate consulted before shortening.
type SafetyChecker interface {
	IsUnsafe(ctx context.Context, rawURL string) (bool, error)
}

type ReachabilityChecker interface {
	IsReachable(ctx context.Context, rawURL string) bool
}

type QRCodeEncoder interface {
	Encode(content string, size int) ([]byte, error)
}

type IDGenerator interface {
	NextID() (uint64, error)
}
