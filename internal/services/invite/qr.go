package invite

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// DefaultQRSize is the edge length in pixels of generated QR images
const DefaultQRSize = 256

const pngDataURIPrefix = "data:image/png;base64,"

// QREncoder renders content as an image data URI
type QREncoder interface {
	Encode(content string) (string, error)
}

// PNGEncoder renders QR codes as base64 PNG data URIs
type PNGEncoder struct {
	Size  int
	Level qr.ErrorCorrectionLevel
}

// Ensure PNGEncoder implements QREncoder
var _ QREncoder = (*PNGEncoder)(nil)

// NewPNGEncoder creates an encoder producing size x size images at
// error-correction level M
func NewPNGEncoder(size int) *PNGEncoder {
	if size <= 0 {
		size = DefaultQRSize
	}
	return &PNGEncoder{Size: size, Level: qr.M}
}

// Encode returns a data:image/png;base64 URI of the QR code for content
func (e *PNGEncoder) Encode(content string) (string, error) {
	code, err := qr.Encode(content, e.Level, qr.Auto)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	scaled, err := barcode.Scale(code, e.Size, e.Size)
	if err != nil {
		return "", fmt.Errorf("scale qr: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return pngDataURIPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DecodeDataURI returns the PNG bytes held in a data URI produced by Encode
func DecodeDataURI(uri string) ([]byte, error) {
	if len(uri) < len(pngDataURIPrefix) || uri[:len(pngDataURIPrefix)] != pngDataURIPrefix {
		return nil, fmt.Errorf("not a png data uri")
	}
	return base64.StdEncoding.DecodeString(uri[len(pngDataURIPrefix):])
}
