// Package redis disponibiliza os repositórios baseados em Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/JeanGrijp/url-shortener/internal/core/domain"
	"github.com/JeanGrijp/url-shortener/internal/core/ports"
)

const (
	defaultPrefix    = "shortener"
	defaultMaxClicks = 10000

	fieldLongURL   = "long_url"
	fieldCreatedAt = "created_at"
)

// aggregatedFields are counted per hash on every click, independent of the
// capped history list.
var aggregatedFields = []domain.ClickField{domain.ClickFieldBrowser, domain.ClickFieldCountry}

// saveURLScript claims the hash with HSETNX so a stored URL is never
// overwritten, and sets created_at in the same step.
var saveURLScript = redis.NewScript(`
if redis.call("HSETNX", KEYS[1], ARGV[1], ARGV[2]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], ARGV[3], ARGV[4])
return 1
`)

type Storage struct {
	client    *redis.Client
	prefix    string
	maxClicks int64
}

var (
	_ ports.URLRepository   = (*Storage)(nil)
	_ ports.ClickRepository = (*Storage)(nil)
)

type Config struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key. Defaults to "shortener".
	Prefix string
	// MaxClicks caps the click history kept per hash. The total count is
	// tracked separately and is not capped.
	MaxClicks int64
}

func New(cfg Config) (*Storage, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewWithClient(client, cfg.Prefix, cfg.MaxClicks), nil
}

// NewWithClient wraps an already connected client.
func NewWithClient(client *redis.Client, prefix string, maxClicks int64) *Storage {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if maxClicks <= 0 {
		maxClicks = defaultMaxClicks
	}
	return &Storage{client: client, prefix: prefix, maxClicks: maxClicks}
}

func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) urlKey(hash string) string {
	return fmt.Sprintf("%s:url:%s", s.prefix, hash)
}

func (s *Storage) clicksKey(hash string) string {
	return fmt.Sprintf("%s:clicks:%s", s.prefix, hash)
}

func (s *Storage) clickCountKey(hash string) string {
	return fmt.Sprintf("%s:clicks:%s:count", s.prefix, hash)
}

func (s *Storage) clickFieldKey(hash string, field domain.ClickField) string {
	return fmt.Sprintf("%s:clicks:%s:by_%s", s.prefix, hash, field)
}

func (s *Storage) Save(ctx context.Context, url domain.ShortURL) error {
	created, err := saveURLScript.Run(ctx, s.client, []string{s.urlKey(url.Hash)},
		fieldLongURL, url.LongURL,
		fieldCreatedAt, url.CreatedAt.UTC().Format(time.RFC3339Nano),
	).Int()
	if err != nil {
		return err
	}
	if created == 0 {
		return domain.ErrHashExists
	}
	return nil
}

func (s *Storage) FindByHash(ctx context.Context, hash string) (domain.ShortURL, error) {
	fields, err := s.client.HGetAll(ctx, s.urlKey(hash)).Result()
	if err != nil {
		return domain.ShortURL{}, err
	}
	if len(fields) == 0 {
		return domain.ShortURL{}, domain.ErrNotFound
	}

	createdAt, err := time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	if err != nil {
		return domain.ShortURL{}, fmt.Errorf("parse created_at of %s: %w", hash, err)
	}

	return domain.ShortURL{
		Hash:      hash,
		LongURL:   fields[fieldLongURL],
		CreatedAt: createdAt,
	}, nil
}

type clickRecord struct {
	ID        uint64    `json:"id"`
	IP        string    `json:"ip"`
	Browser   string    `json:"browser"`
	OS        string    `json:"os"`
	Referrer  string    `json:"referrer"`
	Country   string    `json:"country"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Storage) Record(ctx context.Context, click domain.Click) error {
	payload, err := json.Marshal(clickRecord{
		ID:        click.ID,
		IP:        click.IP,
		Browser:   click.Browser,
		OS:        click.OS,
		Referrer:  click.Referrer,
		Country:   click.Country,
		Language:  click.Language,
		CreatedAt: click.CreatedAt.UTC(),
	})
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Incr(ctx, s.clickCountKey(click.Hash))
	for _, field := range aggregatedFields {
		pipe.HIncrBy(ctx, s.clickFieldKey(click.Hash, field), field.Value(click), 1)
	}
	pipe.LPush(ctx, s.clicksKey(click.Hash), payload)
	pipe.LTrim(ctx, s.clicksKey(click.Hash), 0, s.maxClicks-1)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) CountByHash(ctx context.Context, hash string) (int64, error) {
	count, err := s.client.Get(ctx, s.clickCountKey(hash)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return count, err
}

func (s *Storage) CountBy(ctx context.Context, hash string, field domain.ClickField) (map[string]int64, error) {
	raw, err := s.client.HGetAll(ctx, s.clickFieldKey(hash, field)).Result()
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(raw))
	for value, count := range raw {
		n, err := strconv.ParseInt(count, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s count of %s: %w", field, hash, err)
		}
		counts[value] = n
	}
	return counts, nil
}

func (s *Storage) ListByHash(ctx context.Context, hash string, limit int) ([]domain.Click, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	raw, err := s.client.LRange(ctx, s.clicksKey(hash), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	clicks := make([]domain.Click, 0, len(raw))
	for _, item := range raw {
		var record clickRecord
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			return nil, fmt.Errorf("decode click of %s: %w", hash, err)
		}
		clicks = append(clicks, domain.Click{
			ID:        record.ID,
			Hash:      hash,
			IP:        record.IP,
			Browser:   record.Browser,
			OS:        record.OS,
			Referrer:  record.Referrer,
			Country:   record.Country,
			Language:  record.Language,
			CreatedAt: record.CreatedAt,
		})
	}
	return clicks, nil
}
