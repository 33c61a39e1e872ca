package urlcheck

import (
	"context"
	"net/http"
	"time"

	"github.com/JeanGrijp/url-shortener/internal/core/ports"
)

const defaultProbeTimeout = 3 * time.Second

// HeadProber checks that a URL answers a HEAD request with a non 5xx status.
type HeadProber struct {
	client  *http.Client
	timeout time.Duration
}

var _ ports.ReachabilityChecker = (*HeadProber)(nil)

func NewHeadProber(client *http.Client, timeout time.Duration) *HeadProber {
	if client == nil {
		client = &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	return &HeadProber{client: client, timeout: timeout}
}

func (p *HeadProber) IsReachable(ctx context.Context, rawURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < http.StatusInternalServerError
}
