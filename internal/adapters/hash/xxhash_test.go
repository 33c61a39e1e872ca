package hash

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var base62Pattern = regexp.MustCompile(`^[0-9a-zA-Z]+$`)

func TestBase62_IsDeterministic(t *testing.T) {
	h := NewBase62(8)

	first := h.Hash("https://example.com", 0)
	second := h.Hash("https://example.com", 0)

	assert.Equal(t, first, second)
	assert.Len(t, first, 8)
	assert.Regexp(t, base62Pattern, first)
}

func TestBase62_SaltChangesHash(t *testing.T) {
	h := NewBase62(8)

	assert.NotEqual(t, h.Hash("https://example.com", 0), h.Hash("https://example.com", 1))
	assert.NotEqual(t, h.Hash("https://example.com", 1), h.Hash("https://example.com", 2))
}

func TestBase62_Length(t *testing.T) {
	for _, tc := range []struct {
		length int
		want   int
	}{
		{length: 4, want: 4},
		{length: MaxLength, want: MaxLength},
		{length: 0, want: DefaultLength},
		{length: 40, want: DefaultLength},
	} {
		got := NewBase62(tc.length).Hash("https://example.com/path", 0)
		assert.Len(t, got, tc.want, "length=%d", tc.length)
		assert.Regexp(t, base62Pattern, got)
	}
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "00000000000", encode(0, MaxLength))
	assert.Equal(t, "0000000000z", encode(35, MaxLength))
	assert.Equal(t, "10", encode(62, 2))
	assert.Equal(t, "lYGhA16ahyf", encode(^uint64(0), MaxLength))
}
