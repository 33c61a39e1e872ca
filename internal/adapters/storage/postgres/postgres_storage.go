// Package postgres disponibiliza os repositórios baseados em Postgres.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/JeanGrijp/url-shortener/internal/core/domain"
	"github.com/JeanGrijp/url-shortener/internal/core/ports"
)

const (
	pgCreateURLs = `CREATE TABLE IF NOT EXISTS short_urls (
		hash VARCHAR(16) PRIMARY KEY,
		long_url TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	pgCreateClicks = `CREATE TABLE IF NOT EXISTS clicks (
		id BIGINT PRIMARY KEY,
		hash VARCHAR(16) NOT NULL REFERENCES short_urls (hash) ON DELETE CASCADE,
		ip VARCHAR(64) NOT NULL DEFAULT '',
		browser VARCHAR(128) NOT NULL DEFAULT '',
		os VARCHAR(128) NOT NULL DEFAULT '',
		referrer TEXT NOT NULL DEFAULT '',
		country VARCHAR(16) NOT NULL DEFAULT '',
		language VARCHAR(16) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	pgIndexClicksHash = `CREATE INDEX IF NOT EXISTS clicks_hash_created_at
		ON clicks (hash, created_at DESC)`

	pgInsertURL = `INSERT INTO short_urls (hash, long_url, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (hash) DO NOTHING`
	pgSelectURL = `SELECT hash, long_url, created_at FROM short_urls WHERE hash = $1`

	pgInsertClick = `INSERT INTO clicks
		(id, hash, ip, browser, os, referrer, country, language, created_at)
		VALUES (:id, :hash, :ip, :browser, :os, :referrer, :country, :language, :created_at)`
	pgCountClicks = `SELECT count(*) FROM clicks WHERE hash = $1`

	pgCountClicksBy = `SELECT %s AS value, count(*) AS count
		FROM clicks
		WHERE hash = $1
		GROUP BY %s`

	pgListClicks = `SELECT id, hash, ip, browser, os, referrer, country, language, created_at
		FROM clicks
		WHERE hash = $1
		ORDER BY created_at DESC, id DESC`
)

// clickColumns whitelists the columns clicks can be grouped by.
var clickColumns = map[domain.ClickField]string{
	domain.ClickFieldBrowser: "browser",
	domain.ClickFieldCountry: "country",
}

type Storage struct {
	db *sqlx.DB
}

var (
	_ ports.URLRepository   = (*Storage)(nil)
	_ ports.ClickRepository = (*Storage)(nil)
)

// New connects to dsn and makes sure the schema exists.
func New(ctx context.Context, dsn string) (*Storage, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect failed: %w", err)
	}

	s := &Storage{db: db}
	if err := s.Setup(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Storage) Setup(ctx context.Context) error {
	for _, query := range []string{pgCreateURLs, pgCreateClicks, pgIndexClicksHash} {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("setup schema: %w", err)
		}
	}
	return nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

type urlRow struct {
	Hash      string    `db:"hash"`
	LongURL   string    `db:"long_url"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *Storage) Save(ctx context.Context, url domain.ShortURL) error {
	res, err := s.db.ExecContext(ctx, pgInsertURL, url.Hash, url.LongURL, url.CreatedAt.UTC())
	if err != nil {
		return err
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if inserted == 0 {
		return domain.ErrHashExists
	}
	return nil
}

func (s *Storage) FindByHash(ctx context.Context, hash string) (domain.ShortURL, error) {
	var row urlRow
	if err := s.db.GetContext(ctx, &row, pgSelectURL, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ShortURL{}, domain.ErrNotFound
		}
		return domain.ShortURL{}, err
	}

	return domain.ShortURL{
		Hash:      row.Hash,
		LongURL:   row.LongURL,
		CreatedAt: row.CreatedAt.UTC(),
	}, nil
}

type clickRow struct {
	ID        int64     `db:"id"`
	Hash      string    `db:"hash"`
	IP        string    `db:"ip"`
	Browser   string    `db:"browser"`
	OS        string    `db:"os"`
	Referrer  string    `db:"referrer"`
	Country   string    `db:"country"`
	Language  string    `db:"language"`
	CreatedAt time.Time `db:"created_at"`
}

func (s *Storage) Record(ctx context.Context, click domain.Click) error {
	_, err := s.db.NamedExecContext(ctx, pgInsertClick, clickRow{
		ID:        int64(click.ID),
		Hash:      click.Hash,
		IP:        click.IP,
		Browser:   click.Browser,
		OS:        click.OS,
		Referrer:  click.Referrer,
		Country:   click.Country,
		Language:  click.Language,
		CreatedAt: click.CreatedAt.UTC(),
	})
	return err
}

func (s *Storage) CountByHash(ctx context.Context, hash string) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, pgCountClicks, hash)
	return count, err
}

type groupRow struct {
	Value string `db:"value"`
	Count int64  `db:"count"`
}

func (s *Storage) CountBy(ctx context.Context, hash string, field domain.ClickField) (map[string]int64, error) {
	column, ok := clickColumns[field]
	if !ok {
		return nil, fmt.Errorf("unsupported click field: %s", field)
	}

	var rows []groupRow
	if err := s.db.SelectContext(ctx, &rows, fmt.Sprintf(pgCountClicksBy, column, column), hash); err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Value] = row.Count
	}
	return counts, nil
}

func (s *Storage) ListByHash(ctx context.Context, hash string, limit int) ([]domain.Click, error) {
	query, args := pgListClicks, []interface{}{hash}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	var rows []clickRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	clicks := make([]domain.Click, 0, len(rows))
	for _, row := range rows {
		clicks = append(clicks, domain.Click{
			ID:        uint64(row.ID),
			Hash:      row.Hash,
			IP:        row.IP,
			Browser:   row.Browser,
			OS:        row.OS,
			Referrer:  row.Referrer,
			Country:   row.Country,
			Language:  row.Language,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return clicks, nil
}
