// Package memory disponibiliza repositórios em memória do processo.
package memory

import (
	"context"
	"sync"

	"github.com/JeanGrijp/url-shortener/internal/core/domain"
	"github.com/JeanGrijp/url-shortener/internal/core/ports"
)

type URLStorage struct {
	mu   sync.RWMutex
	urls map[string]domain.ShortURL
}

var _ ports.URLRepository = (*URLStorage)(nil)

func NewURLStorage() *URLStorage {
	return &URLStorage{urls: make(map[string]domain.ShortURL)}
}

func (s *URLStorage) Save(_ context.Context, url domain.ShortURL) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.urls[url.Hash]; ok {
		return domain.ErrHashExists
	}
	s.urls[url.Hash] = url
	return nil
}

func (s *URLStorage) FindByHash(_ context.Context, hash string) (domain.ShortURL, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	url, ok := s.urls[hash]
	if !ok {
		return domain.ShortURL{}, domain.ErrNotFound
	}
	return url, nil
}

// ClickStorage keeps clicks in insertion order per hash.
type ClickStorage struct {
	mu     sync.RWMutex
	clicks map[string][]domain.Click
}

var _ ports.ClickRepository = (*ClickStorage)(nil)

func NewClickStorage() *ClickStorage {
	return &ClickStorage{clicks: make(map[string][]domain.Click)}
}

func (s *ClickStorage) Record(_ context.Context, click domain.Click) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clicks[click.Hash] = append(s.clicks[click.Hash], click)
	return nil
}

func (s *ClickStorage) CountByHash(_ context.Context, hash string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.clicks[hash])), nil
}

func (s *ClickStorage) CountBy(_ context.Context, hash string, field domain.ClickField) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, click := range s.clicks[hash] {
		counts[field.Value(click)]++
	}
	return counts, nil
}

func (s *ClickStorage) ListByHash(_ context.Context, hash string, limit int) ([]domain.Click, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.clicks[hash]
	n := len(stored)
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]domain.Click, 0, n)
	for i := len(stored) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, stored[i])
	}
	return out, nil
}
