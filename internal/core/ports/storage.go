// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"

	"github.com/JeanGrijp/url-shortener/internal/core/domain"
)

// URLRepository persists short URLs. Save never overwrites: it returns
// domain.ErrHashExists when the hash is already stored. FindByHash returns
// domain.ErrNotFound for unknown hashes.
type URLRepository interface {
	Save(ctx context.Context, url domain.ShortURL) error
	FindByHash(ctx context.Context, hash string) (domain.ShortURL, error)
}

// ClickRepository persists redirect analytics. ListByHash returns the newest
// clicks first; a non-positive limit returns every click. CountBy groups every
// click ever recorded for hash, so its values always add up to CountByHash.
type ClickRepository interface {
	Record(ctx context.Context, click domain.Click) error
	CountByHash(ctx context.Context, hash string) (int64, error)
	CountBy(ctx context.Context, hash string, field domain.ClickField) (map[string]int64, error)
	ListByHash(ctx context.Context, hash string, limit int) ([]domain.Click, error)
}
