// Package urlcheck valida e filtra URLs antes de encurtá-las.
package urlcheck

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/asaskevich/govalidator"

	"github.com/JeanGrijp/url-shortener/internal/core/domain"
	"github.com/JeanGrijp/url-shortener/internal/core/ports"
)

const maxURLLength = 2048

// Validator accepts absolute http(s) URLs with a host.
type Validator struct{}

var _ ports.URLValidator = Validator{}

func (Validator) Validate(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: empty url", domain.ErrInvalidURL)
	}
	if len(rawURL) > maxURLLength {
		return fmt.Errorf("%w: longer than %d characters", domain.ErrInvalidURL, maxURLLength)
	}
	if !govalidator.IsRequestURL(rawURL) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidURL, rawURL)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: unsupported scheme %q", domain.ErrInvalidURL, parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return fmt.Errorf("%w: missing host", domain.ErrInvalidURL)
	}

	return nil
}
