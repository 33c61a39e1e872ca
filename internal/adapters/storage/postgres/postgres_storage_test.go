package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeanGrijp/url-shortener/internal/core/domain"
)

const envTestDSN = "SHORTENER_TEST_POSTGRES_DSN"

func postgresTest(t *testing.T) *Storage {
	t.Helper()

	dsn := os.Getenv(envTestDSN)
	if dsn == "" {
		t.Skipf("Skipping integration test: %s not set", envTestDSN)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	storage, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	return storage
}

func uniqueHash(prefix string) string {
	return fmt.Sprintf("%s%d", prefix, time.Now().UnixNano()%1_000_000_000)
}

func TestStorage_URLs(t *testing.T) {
	storage := postgresTest(t)
	ctx := context.Background()
	hash := uniqueHash("u")

	_, err := storage.FindByHash(ctx, hash)
	assert.True(t, domain.IsNotFoundError(err))

	url := domain.ShortURL{Hash: hash, LongURL: "https://example.com", CreatedAt: time.Now().UTC().Truncate(time.Microsecond)}
	require.NoError(t, storage.Save(ctx, url))

	got, err := storage.FindByHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, url.LongURL, got.LongURL)
	assert.True(t, url.CreatedAt.Equal(got.CreatedAt))

	err = storage.Save(ctx, domain.ShortURL{Hash: hash, LongURL: "https://other.example", CreatedAt: time.Now()})
	assert.True(t, domain.IsHashExistsError(err))

	got, err = storage.FindByHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got.LongURL, "a taken hash keeps its first url")
}

func TestStorage_Clicks(t *testing.T) {
	storage := postgresTest(t)
	ctx := context.Background()
	hash := uniqueHash("c")

	require.NoError(t, storage.Save(ctx, domain.ShortURL{Hash: hash, LongURL: "https://example.com", CreatedAt: time.Now()}))

	base := time.Now().UTC().Truncate(time.Microsecond)
	idBase := uint64(time.Now().UnixNano())
	for i, browser := range []string{"Safari", "Firefox", "Safari"} {
		require.NoError(t, storage.Record(ctx, domain.Click{
			ID:        idBase + uint64(i),
			Hash:      hash,
			Browser:   browser,
			Country:   "JP",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	count, err := storage.CountByHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	byBrowser, err := storage.CountBy(ctx, hash, domain.ClickFieldBrowser)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Safari": 2, "Firefox": 1}, byBrowser)

	byCountry, err := storage.CountBy(ctx, hash, domain.ClickFieldCountry)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"JP": 3}, byCountry)

	recent, err := storage.ListByHash(ctx, hash, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, idBase+2, recent[0].ID)
	assert.Equal(t, "Safari", recent[0].Browser)
}

func TestNew_RequiresDSN(t *testing.T) {
	_, err := New(context.Background(), "")
	assert.Error(t, err)
}
