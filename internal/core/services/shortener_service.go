package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/mssola/useragent"
	"golang.org/x/text/language"

	"github.com/JeanGrijp/url-shortener/internal/core/domain"
	"github.com/JeanGrijp/url-shortener/internal/core/ports"
)

const (
	defaultMaxHashAttempts = 5
	defaultRecentClicks    = 20
	unknownValue           = "unknown"
)

// ShortenerConfig groups the collaborators and knobs of the shortener.
type ShortenerConfig struct {
	URLs         ports.URLRepository
	Clicks       ports.ClickRepository
	Hasher       ports.Hasher
	Validator    ports.URLValidator
	Safety       ports.SafetyChecker
	Reachability ports.ReachabilityChecker
	QRCodes      ports.QRCodeEncoder
	IDs          ports.IDGenerator
	Logger       log.Logger

	BaseURL         string
	MaxHashAttempts int
	RecentClicks    int
	Now             func() time.Time
}

// ShortenerService implements the URL shortening and redirect use cases.
type ShortenerService struct {
	config ShortenerConfig
}

var _ ports.Shortener = (*ShortenerService)(nil)

func NewShortenerService(cfg ShortenerConfig) (*ShortenerService, error) {
	if cfg.URLs == nil || cfg.Clicks == nil {
		return nil, fmt.Errorf("url and click repositories are required")
	}
	if cfg.Hasher == nil {
		return nil, fmt.Errorf("hasher is required")
	}
	if cfg.Validator == nil {
		return nil, fmt.Errorf("url validator is required")
	}
	if cfg.IDs == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	if cfg.MaxHashAttempts <= 0 {
		cfg.MaxHashAttempts = defaultMaxHashAttempts
	}
	if cfg.RecentClicks <= 0 {
		cfg.RecentClicks = defaultRecentClicks
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNopLogger()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &ShortenerService{config: cfg}, nil
}

// Shorten validates longURL and returns its short alias. Shortening the same
// URL twice yields the same record.
func (s *ShortenerService) Shorten(ctx context.Context, longURL string) (domain.ShortURL, error) {
	longURL = strings.TrimSpace(longURL)
	if err := s.config.Validator.Validate(longURL); err != nil {
		return domain.ShortURL{}, err
	}

	if s.config.Safety != nil {
		unsafe, err := s.config.Safety.IsUnsafe(ctx, longURL)
		if err != nil {
			return domain.ShortURL{}, fmt.Errorf("safety check: %w", err)
		}
		if unsafe {
			return domain.ShortURL{}, domain.ErrUnsafeURL
		}
	}

	if s.config.Reachability != nil && !s.config.Reachability.IsReachable(ctx, longURL) {
		return domain.ShortURL{}, domain.ErrUnreachableURL
	}

	for salt := 0; salt < s.config.MaxHashAttempts; salt++ {
		hash := s.config.Hasher.Hash(longURL, salt)

		existing, err := s.config.URLs.FindByHash(ctx, hash)
		switch {
		case err == nil && existing.LongURL == longURL:
			return existing, nil
		case err == nil:
			continue
		case !domain.IsNotFoundError(err):
			return domain.ShortURL{}, fmt.Errorf("lookup hash %s: %w", hash, err)
		}

		shortURL := domain.ShortURL{
			Hash:      hash,
			LongURL:   longURL,
			CreatedAt: s.config.Now().UTC(),
		}
		err = s.config.URLs.Save(ctx, shortURL)
		if err == nil {
			return shortURL, nil
		}
		if !domain.IsHashExistsError(err) {
			return domain.ShortURL{}, fmt.Errorf("save short url: %w", err)
		}

		// Lost a race for hash: keep it only if the winner stored the same URL.
		existing, err = s.config.URLs.FindByHash(ctx, hash)
		if err != nil {
			return domain.ShortURL{}, fmt.Errorf("lookup hash %s: %w", hash, err)
		}
		if existing.LongURL == longURL {
			return existing, nil
		}
	}

	return domain.ShortURL{}, domain.ErrHashCollision
}

func (s *ShortenerService) Lookup(ctx context.Context, hash string) (domain.ShortURL, error) {
	return s.config.URLs.FindByHash(ctx, hash)
}

// Resolve returns the target of hash and records the visit. Analytics
// failures are logged and never block the redirect.
func (s *ShortenerService) Resolve(ctx context.Context, hash string, client domain.ClientInfo) (domain.ShortURL, error) {
	shortURL, err := s.config.URLs.FindByHash(ctx, hash)
	if err != nil {
		return domain.ShortURL{}, err
	}

	click, err := s.buildClick(hash, client)
	if err == nil {
		err = s.config.Clicks.Record(ctx, click)
	}
	if err != nil {
		_ = level.Warn(s.config.Logger).Log("msg", "click not recorded", "hash", hash, "err", err)
	}

	return shortURL, nil
}

func (s *ShortenerService) buildClick(hash string, client domain.ClientInfo) (domain.Click, error) {
	id, err := s.config.IDs.NextID()
	if err != nil {
		return domain.Click{}, fmt.Errorf("next click id: %w", err)
	}

	browser, os := parseUserAgent(client.UserAgent)

	return domain.Click{
		ID:        id,
		Hash:      hash,
		IP:        client.IP,
		Browser:   browser,
		OS:        os,
		Referrer:  strings.TrimSpace(client.Referrer),
		Country:   normalizeCountry(client.Country),
		Language:  primaryLanguage(client.AcceptLanguage),
		CreatedAt: s.config.Now().UTC(),
	}, nil
}

// Stats aggregates the clicks recorded for hash.
func (s *ShortenerService) Stats(ctx context.Context, hash string) (domain.URLStats, error) {
	shortURL, err := s.config.URLs.FindByHash(ctx, hash)
	if err != nil {
		return domain.URLStats{}, err
	}

	total, err := s.config.Clicks.CountByHash(ctx, hash)
	if err != nil {
		return domain.URLStats{}, fmt.Errorf("count clicks: %w", err)
	}

	byBrowser, err := s.config.Clicks.CountBy(ctx, hash, domain.ClickFieldBrowser)
	if err != nil {
		return domain.URLStats{}, fmt.Errorf("count clicks by browser: %w", err)
	}

	byCountry, err := s.config.Clicks.CountBy(ctx, hash, domain.ClickFieldCountry)
	if err != nil {
		return domain.URLStats{}, fmt.Errorf("count clicks by country: %w", err)
	}

	recent, err := s.config.Clicks.ListByHash(ctx, hash, s.config.RecentClicks)
	if err != nil {
		return domain.URLStats{}, fmt.Errorf("list clicks: %w", err)
	}

	return domain.URLStats{
		URL:          shortURL,
		TotalClicks:  total,
		ByBrowser:    byBrowser,
		ByCountry:    byCountry,
		RecentClicks: recent,
	}, nil
}

// QRCode renders a PNG pointing at the public short link of hash.
func (s *ShortenerService) QRCode(ctx context.Context, hash string, size int) ([]byte, error) {
	if s.config.QRCodes == nil {
		return nil, errors.New("qr code encoder not configured")
	}

	if _, err := s.config.URLs.FindByHash(ctx, hash); err != nil {
		return nil, err
	}

	return s.config.QRCodes.Encode(s.ShortLink(hash), size)
}

// ShortLink is the public URL that redirects to hash.
func (s *ShortenerService) ShortLink(hash string) string {
	return s.config.BaseURL + "/" + hash
}

func parseUserAgent(raw string) (string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return unknownValue, unknownValue
	}

	ua := useragent.New(raw)
	if ua.Bot() {
		name, _ := ua.Browser()
		if name == "" {
			name = "bot"
		}
		return name, unknownValue
	}

	browser, _ := ua.Browser()
	if browser == "" {
		browser = unknownValue
	}
	os := ua.OSInfo().Name
	if os == "" {
		os = unknownValue
	}
	return browser, os
}

func normalizeCountry(raw string) string {
	raw = strings.ToUpper(strings.TrimSpace(raw))
	if len(raw) != 2 || raw == "XX" {
		return unknownValue
	}
	return raw
}

func primaryLanguage(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return unknownValue
	}
	base, _ := tags[0].Base()
	return base.String()
}
