package domain

import "time"

type ShortURL struct {
	Hash      string
	LongURL   string
	CreatedAt time.Time
}

// Click is a single analytics record captured when a short URL is followed.
type Click struct {
	ID        uint64
	Hash      string
	IP        string
	Browser   string
	OS        string
	Referrer  string
	Country   string
	Language  string
	CreatedAt time.Time
}

// ClientInfo is what the HTTP layer knows about the visitor of a short URL.
type ClientInfo struct {
	IP             string
	UserAgent      string
	Referrer       string
	Country        string
	AcceptLanguage string
}

// ClickField names a click attribute that stats are grouped by.
type ClickField string

const (
	ClickFieldBrowser ClickField = "browser"
	ClickFieldCountry ClickField = "country"
)

// Value returns the attribute of click named by f.
func (f ClickField) Value(click Click) string {
	switch f {
	case ClickFieldBrowser:
		return click.Browser
	case ClickFieldCountry:
		return click.Country
	default:
		return ""
	}
}

type URLStats struct {
	URL          ShortURL
	TotalClicks  int64
	ByBrowser    map[string]int64
	ByCountry    map[string]int64
	RecentClicks []Click
}
