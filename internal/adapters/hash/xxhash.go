// Package hash gera os apelidos curtos a partir das URLs longas.
package hash

import (
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/JeanGrijp/url-shortener/internal/core/ports"
)

const (
	alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	DefaultLength = 8
	// MaxLength is the widest base62 rendering of a uint64.
	MaxLength = 11
)

// Base62 hashes URLs with xxhash and renders the digest in base62.
type Base62 struct {
	length int
}

var _ ports.Hasher = Base62{}

// NewBase62 returns a hasher producing aliases of length characters. Out of
// range lengths fall back to DefaultLength.
func NewBase62(length int) Base62 {
	if length <= 0 || length > MaxLength {
		length = DefaultLength
	}
	return Base62{length: length}
}

func (h Base62) Hash(longURL string, salt int) string {
	d := xxhash.New()
	if salt > 0 {
		_, _ = d.WriteString(strconv.Itoa(salt))
		_, _ = d.WriteString("|")
	}
	_, _ = d.WriteString(longURL)

	return encode(d.Sum64(), h.length)
}

func encode(n uint64, length int) string {
	buf := make([]byte, MaxLength)
	for i := MaxLength - 1; i >= 0; i-- {
		buf[i] = alphabet[n%62]
		n /= 62
	}
	return string(buf[MaxLength-length:])
}
