// Package qrcode renderiza links curtos como QR codes em PNG.
package qrcode

import (
	"fmt"

	goqrcode "github.com/skip2/go-qrcode"

	"github.com/JeanGrijp/url-shortener/internal/core/ports"
)

const (
	MinSize     = 64
	MaxSize     = 1024
	DefaultSize = 256
)

type Encoder struct {
	level goqrcode.RecoveryLevel
}

var _ ports.QRCodeEncoder = Encoder{}

func NewEncoder() Encoder {
	return Encoder{level: goqrcode.Medium}
}

// Encode returns a size x size PNG. Sizes outside [MinSize, MaxSize] are
// clamped.
func (e Encoder) Encode(content string, size int) ([]byte, error) {
	png, err := goqrcode.Encode(content, e.level, ClampSize(size))
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}

func ClampSize(size int) int {
	switch {
	case size <= 0:
		return DefaultSize
	case size < MinSize:
		return MinSize
	case size > MaxSize:
		return MaxSize
	default:
		return size
	}
}
