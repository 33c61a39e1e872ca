package urlcheck

import (
	"context"
	"net/url"
	"strings"

	"github.com/JeanGrijp/url-shortener/internal/core/ports"
)

// HostDenylist flags URLs whose host, or any parent domain of it, is listed.
// It stands in for a threat-list lookup.
type HostDenylist struct {
	hosts map[string]struct{}
}

var _ ports.SafetyChecker = (*HostDenylist)(nil)

func NewHostDenylist(hosts []string) *HostDenylist {
	d := &HostDenylist{hosts: make(map[string]struct{}, len(hosts))}
	for _, host := range hosts {
		host = strings.Trim(strings.ToLower(strings.TrimSpace(host)), ".")
		if host != "" {
			d.hosts[host] = struct{}{}
		}
	}
	return d
}

func (d *HostDenylist) IsUnsafe(_ context.Context, rawURL string) (bool, error) {
	if len(d.hosts) == 0 {
		return false, nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false, err
	}

	host := strings.Trim(strings.ToLower(parsed.Hostname()), ".")
	for host != "" {
		if _, ok := d.hosts[host]; ok {
			return true, nil
		}
		dot := strings.IndexByte(host, '.')
		if dot < 0 {
			break
		}
		host = host[dot+1:]
	}

	return false, nil
}
