package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeanGrijp/url-shortener/internal/adapters/hash"
	"github.com/JeanGrijp/url-shortener/internal/adapters/storage/memory"
	"github.com/JeanGrijp/url-shortener/internal/adapters/urlcheck"
	"github.com/JeanGrijp/url-shortener/internal/core/domain"
	"github.com/JeanGrijp/url-shortener/internal/core/services"
)

const testBaseURL = "https://sho.rt"

type counterIDs struct{ next uint64 }

func (c *counterIDs) NextID() (uint64, error) {
	c.next++
	return c.next, nil
}

type stubQRCodes struct{}

func (stubQRCodes) Encode(content string, size int) ([]byte, error) {
	return []byte(fmt.Sprintf("\x89PNG %s %d", content, size)), nil
}

type failingURLs struct{}

func (failingURLs) Save(context.Context, domain.ShortURL) error { return errors.New("boom") }
func (failingURLs) FindByHash(context.Context, string) (domain.ShortURL, error) {
	return domain.ShortURL{}, domain.ErrNotFound
}

type testServer struct {
	handler http.Handler
	clicks  *memory.ClickStorage
	limiter *services.RedirectionLimiter
}

func newTestServer(t *testing.T, maxRedirects int) testServer {
	t.Helper()

	clicks := memory.NewClickStorage()
	shortener, err := services.NewShortenerService(services.ShortenerConfig{
		URLs:      memory.NewURLStorage(),
		Clicks:    clicks,
		Hasher:    hash.NewBase62(8),
		Validator: urlcheck.Validator{},
		Safety:    urlcheck.NewHostDenylist([]string{"evil.example"}),
		QRCodes:   stubQRCodes{},
		IDs:       &counterIDs{},
		BaseURL:   testBaseURL,
	})
	require.NoError(t, err)

	limiter, err := services.NewRedirectionLimiter(domain.RedirectLimitRule{
		MaxRedirects: maxRedirects,
		Window:       time.Minute,
	})
	require.NoError(t, err)

	return testServer{
		handler: NewRouter(RouterConfig{
			Shortener: shortener,
			Limiter:   limiter,
			BaseURL:   testBaseURL,
			Logger:    log.NewNopLogger(),
			Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("# metrics"))
			}),
		}),
		clicks:  clicks,
		limiter: limiter,
	}
}

func (s testServer) do(t *testing.T, method, target string, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s testServer) shorten(t *testing.T, longURL string) shortURLBody {
	t.Helper()

	rec := s.do(t, http.MethodPost, "/api/v1/urls", fmt.Sprintf(`{"url": %q}`, longURL), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body shortURLBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

type shortURLBody struct {
	Hash     string `json:"hash"`
	ShortURL string `json:"short_url"`
	LongURL  string `json:"long_url"`
}

func TestRouter_ShortenAndRedirect(t *testing.T) {
	server := newTestServer(t, 5)

	short := server.shorten(t, "https://example.com/some/long/path")
	assert.Len(t, short.Hash, 8)
	assert.Equal(t, testBaseURL+"/"+short.Hash, short.ShortURL)
	assert.Equal(t, "https://example.com/some/long/path", short.LongURL)

	rec := server.do(t, http.MethodGet, "/"+short.Hash, "", map[string]string{
		"User-Agent":      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Referer":         "https://blog.example/post",
		"CF-IPCountry":    "NL",
		"Accept-Language": "nl-NL,nl;q=0.9",
		"X-Forwarded-For": "203.0.113.9",
	})

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://example.com/some/long/path", rec.Header().Get("Location"))
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))

	clicks, err := server.clicks.ListByHash(context.Background(), short.Hash, 0)
	require.NoError(t, err)
	require.Len(t, clicks, 1)
	assert.Equal(t, "203.0.113.9", clicks[0].IP)
	assert.Equal(t, "NL", clicks[0].Country)
	assert.Equal(t, "nl", clicks[0].Language)
	assert.Equal(t, "https://blog.example/post", clicks[0].Referrer)
}

func TestRouter_ShortenIsIdempotent(t *testing.T) {
	server := newTestServer(t, 5)

	first := server.shorten(t, "https://example.com")
	second := server.shorten(t, "https://example.com")
	assert.Equal(t, first.Hash, second.Hash)
}

func TestRouter_ShortenErrors(t *testing.T) {
	server := newTestServer(t, 5)

	for name, tc := range map[string]struct {
		body string
		code int
	}{
		"malformed json": {body: `{"url":`, code: http.StatusBadRequest},
		"invalid url":    {body: `{"url": "notaurl"}`, code: http.StatusBadRequest},
		"bad scheme":     {body: `{"url": "ftp://example.com"}`, code: http.StatusBadRequest},
		"unsafe url":     {body: `{"url": "https://login.evil.example/"}`, code: http.StatusUnprocessableEntity},
	} {
		t.Run(name, func(t *testing.T) {
			rec := server.do(t, http.MethodPost, "/api/v1/urls", tc.body, nil)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
		})
	}
}

func TestRouter_RedirectLimit(t *testing.T) {
	server := newTestServer(t, 3)
	short := server.shorten(t, "https://example.com")

	for i := 0; i < 3; i++ {
		rec := server.do(t, http.MethodGet, "/"+short.Hash, "", nil)
		require.Equal(t, http.StatusFound, rec.Code, "redirect %d", i+1)
	}

	rec := server.do(t, http.MethodGet, "/"+short.Hash, "", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, short.Hash, body["key"])
	assert.Equal(t, float64(3), body["current_redirects"])
	assert.Equal(t, float64(3), body["max_redirects"])
	assert.Equal(t, float64(60), body["window_seconds"])
	assert.NotEmpty(t, body["reset_at"])

	count, err := server.clicks.CountByHash(context.Background(), short.Hash)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count, "denied redirects are not recorded as clicks")

	other := server.shorten(t, "https://other.example")
	assert.Equal(t, http.StatusFound, server.do(t, http.MethodGet, "/"+other.Hash, "", nil).Code)
}

func TestRouter_RedirectUnknownHash(t *testing.T) {
	server := newTestServer(t, 3)

	rec := server.do(t, http.MethodGet, "/doesnotexist", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_UnknownHashesDoNotGrowLimiter(t *testing.T) {
	server := newTestServer(t, 3)

	for i := 0; i < 200; i++ {
		rec := server.do(t, http.MethodGet, fmt.Sprintf("/nope%d", i), "", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	}
	assert.Zero(t, server.limiter.Len())

	long := server.do(t, http.MethodGet, "/"+strings.Repeat("a", 4096), "", nil)
	assert.Equal(t, http.StatusNotFound, long.Code)
	twelve := server.do(t, http.MethodGet, "/abcdefghijkl", "", nil)
	assert.Equal(t, http.StatusNotFound, twelve.Code)
	assert.Zero(t, server.limiter.Len())

	short := server.shorten(t, "https://example.com")
	require.Equal(t, http.StatusFound, server.do(t, http.MethodGet, "/"+short.Hash, "", nil).Code)
	assert.Equal(t, 1, server.limiter.Len())
}

func TestRouter_Stats(t *testing.T) {
	server := newTestServer(t, 10)
	short := server.shorten(t, "https://example.com")

	for _, country := range []string{"US", "US", "FR"} {
		rec := server.do(t, http.MethodGet, "/"+short.Hash, "", map[string]string{"X-Country-Code": country})
		require.Equal(t, http.StatusFound, rec.Code)
	}

	rec := server.do(t, http.MethodGet, "/api/v1/urls/"+short.Hash, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Hash         string           `json:"hash"`
		TotalClicks  int64            `json:"total_clicks"`
		ByCountry    map[string]int64 `json:"by_country"`
		RecentClicks []struct {
			Country string `json:"country"`
		} `json:"recent_clicks"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, short.Hash, body.Hash)
	assert.Equal(t, int64(3), body.TotalClicks)
	assert.Equal(t, map[string]int64{"US": 2, "FR": 1}, body.ByCountry)
	assert.Len(t, body.RecentClicks, 3)

	missing := server.do(t, http.MethodGet, "/api/v1/urls/nothere", "", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestRouter_QRCode(t *testing.T) {
	server := newTestServer(t, 10)
	short := server.shorten(t, "https://example.com")

	rec := server.do(t, http.MethodGet, "/api/v1/urls/"+short.Hash+"/qr?size=128", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG "+testBaseURL+"/"+short.Hash))
	assert.True(t, strings.HasSuffix(rec.Body.String(), " 128"))

	bad := server.do(t, http.MethodGet, "/api/v1/urls/"+short.Hash+"/qr?size=big", "", nil)
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	missing := server.do(t, http.MethodGet, "/api/v1/urls/nothere/qr", "", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	server := newTestServer(t, 1)

	rec := server.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	metrics := server.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Equal(t, "# metrics", metrics.Body.String())
}

func TestRouter_InternalErrorsAreHidden(t *testing.T) {
	shortener, err := services.NewShortenerService(services.ShortenerConfig{
		URLs:      failingURLs{},
		Clicks:    memory.NewClickStorage(),
		Hasher:    hash.NewBase62(8),
		Validator: urlcheck.Validator{},
		IDs:       &counterIDs{},
	})
	require.NoError(t, err)

	handler := NewRouter(RouterConfig{Shortener: shortener})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/urls", strings.NewReader(`{"url":"https://example.com"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}
