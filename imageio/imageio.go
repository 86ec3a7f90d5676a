// Package imageio decodes uploaded or on-disk images in any of the formats
// supported by the front ends: PNG, JPEG, GIF, BMP, TIFF and WebP.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DefaultMaxPixels is the largest image, in pixels, decoded when no limit is
// given. Decoders allocate the whole canvas from the header before reading
// any pixel data, so the limit is checked against the header alone.
const DefaultMaxPixels = 90_000_000

var (
	// ErrEmpty is returned when there is no image data to decode.
	ErrEmpty = errors.New("imageio: no image data")
	// ErrTooLarge is returned when an image header declares more pixels
	// than the decode limit.
	ErrTooLarge = errors.New("imageio: image too large")
)

// Decode decodes data and returns the image with the name of its format.
// Images declaring more than maxPixels pixels are rejected with ErrTooLarge
// without being decoded. A maxPixels of zero or less means DefaultMaxPixels.
func Decode(data []byte, maxPixels int) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmpty
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("imageio: Decode: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrTooLarge, cfg.Width, cfg.Height, maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("imageio: Decode: %w", err)
	}

	return img, format, nil
}

// ReadFile reads and decodes the image at path, applying the same limit as
// Decode. The raw file contents are returned alongside the image.
func ReadFile(path string, maxPixels int) (image.Image, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	img, _, err := Decode(data, maxPixels)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	return img, data, nil
}
