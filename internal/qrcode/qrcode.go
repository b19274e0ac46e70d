// Package qrcode renders student identifiers as scannable images.
package qrcode

import (
	"fmt"

	qr "github.com/skip2/go-qrcode"
)

// Size is the rendered image edge in pixels.
const Size = 512

// Render encodes an opaque identifier into a PNG. The encoding is
// lossless: decoding the image reproduces exactly the input string.
func Render(id string) ([]byte, error) {
	if id == "" {
		return nil, fmt.Errorf("id required")
	}
	png, err := qr.Encode(id, qr.Medium, Size)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	return png, nil
}
