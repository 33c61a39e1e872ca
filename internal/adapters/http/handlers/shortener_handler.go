package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/JeanGrijp/url-shortener/internal/adapters/http/middleware"
	"github.com/JeanGrijp/url-shortener/internal/core/domain"
	"github.com/JeanGrijp/url-shortener/internal/core/ports"
)

const maxBodyBytes = 8 << 10

// ShortenerHandler exposes ports.Shortener over HTTP.
type ShortenerHandler struct {
	service ports.Shortener
	baseURL string
	logger  log.Logger
}

func NewShortenerHandler(service ports.Shortener, baseURL string, logger log.Logger) *ShortenerHandler {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &ShortenerHandler{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

type shortenRequest struct {
	URL string `json:"url"`
}

type shortURLResponse struct {
	Hash      string    `json:"hash"`
	ShortURL  string    `json:"short_url"`
	LongURL   string    `json:"long_url"`
	CreatedAt time.Time `json:"created_at"`
}

type clickResponse struct {
	IP        string    `json:"ip"`
	Browser   string    `json:"browser"`
	OS        string    `json:"os"`
	Referrer  string    `json:"referrer,omitempty"`
	Country   string    `json:"country"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

type statsResponse struct {
	shortURLResponse
	TotalClicks  int64            `json:"total_clicks"`
	ByBrowser    map[string]int64 `json:"by_browser"`
	ByCountry    map[string]int64 `json:"by_country"`
	RecentClicks []clickResponse  `json:"recent_clicks"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *ShortenerHandler) Shorten(w http.ResponseWriter, r *http.Request) {
	var req shortenRequest
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request body must be a JSON object with a url field"})
		return
	}

	short, err := h.service.Shorten(r.Context(), req.URL)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.toResponse(short))
}

func (h *ShortenerHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, middleware.HashParam)

	short, err := h.service.Resolve(r.Context(), hash, domain.ClientInfo{
		IP:             middleware.ClientIP(r),
		UserAgent:      r.UserAgent(),
		Referrer:       r.Referer(),
		Country:        countryFromHeaders(r),
		AcceptLanguage: r.Header.Get("Accept-Language"),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, short.LongURL, http.StatusFound)
}

func (h *ShortenerHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context(), chi.URLParam(r, middleware.HashParam))
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := statsResponse{
		shortURLResponse: h.toResponse(stats.URL),
		TotalClicks:      stats.TotalClicks,
		ByBrowser:        stats.ByBrowser,
		ByCountry:        stats.ByCountry,
		RecentClicks:     make([]clickResponse, 0, len(stats.RecentClicks)),
	}
	for _, click := range stats.RecentClicks {
		resp.RecentClicks = append(resp.RecentClicks, clickResponse{
			IP:        click.IP,
			Browser:   click.Browser,
			OS:        click.OS,
			Referrer:  click.Referrer,
			Country:   click.Country,
			Language:  click.Language,
			CreatedAt: click.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ShortenerHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "size must be an integer"})
			return
		}
		size = parsed
	}

	png, err := h.service.QRCode(r.Context(), chi.URLParam(r, middleware.HashParam), size)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *ShortenerHandler) toResponse(short domain.ShortURL) shortURLResponse {
	return shortURLResponse{
		Hash:      short.Hash,
		ShortURL:  h.baseURL + "/" + short.Hash,
		LongURL:   short.LongURL,
		CreatedAt: short.CreatedAt,
	}
}

func (h *ShortenerHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsNotFoundError(err):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case domain.IsInvalidURLError(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case domain.IsRejectedURLError(err):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrHashCollision):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		_ = level.Error(h.logger).Log("msg", "request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError)})
	}
}

func countryFromHeaders(r *http.Request) string {
	for _, header := range []string{"CF-IPCountry", "X-Country-Code"} {
		if value := strings.TrimSpace(r.Header.Get(header)); value != "" {
			return value
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
