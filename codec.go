/*
Package pixcode converts images into sequences of palette color codes.

An image is first reduced until it has no more than a configured number of
pixels, then every pixel, read row by row from the top left, is replaced by
the code of the closest of a small set of reference colors. The resulting
sequence can be rendered as a bracketed list suitable for math markup, for
example \left[1,2,8\right].
*/
package pixcode

import (
	"errors"
	"image"
	"image/color"

	"github.com/disintegration/gift"
)

// DefaultPixelBudget is the pixel budget used when none is specified.
const DefaultPixelBudget = 10000

// Options configures a Codec.
type Options struct {
	// PixelBudget is the maximum number of pixels classified per image.
	// Defaults to DefaultPixelBudget when zero.
	PixelBudget int
	// Palette defaults to DefaultPalette when nil.
	Palette *Palette
	// Strategy defaults to StrategyHalving.
	Strategy Strategy
	// Resampling defaults to gift.BoxResampling, which averages the area
	// covered by each destination pixel.
	Resampling gift.Resampling
}

func (o *Options) validate() error {
	if o.PixelBudget == 0 {
		o.PixelBudget = DefaultPixelBudget
	}
	if o.PixelBudget < 0 {
		return errors.New("pixcode: New: pixel budget must be positive")
	}
	if o.Palette == nil {
		o.Palette = DefaultPalette()
	}
	if o.Strategy != StrategyHalving && o.Strategy != StrategyProportional {
		return errors.New("pixcode: New: unknown downscale strategy")
	}
	if o.Resampling == nil {
		o.Resampling = gift.BoxResampling
	}

	return nil
}

// Codec encodes images into color code sequences. A Codec holds no mutable
// state and may be used from multiple goroutines. The zero value encodes with
// the default options.
type Codec struct {
	opts Options
}

func (c *Codec) options() Options {
	opts := c.opts
	// opts either passed validate in New or are zero, so this cannot fail.
	opts.validate()
	return opts
}

// New returns a Codec configured with opts.
func New(opts Options) (*Codec, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	return &Codec{opts: opts}, nil
}

// PixelBudget returns the maximum number of pixels classified per image.
func (c *Codec) PixelBudget() int {
	return c.options().PixelBudget
}

// Palette returns the palette pixels are classified against.
func (c *Codec) Palette() *Palette {
	return c.options().Palette
}

// Strategy returns the downscale strategy.
func (c *Codec) Strategy() Strategy {
	return c.options().Strategy
}

// Resampling returns the filter used when downscaling.
func (c *Codec) Resampling() gift.Resampling {
	return c.options().Resampling
}

// Classify returns the code of the palette entry closest to the given color.
func (c *Codec) Classify(r, g, b uint8) int {
	return c.options().Palette.Classify(r, g, b)
}

// Encode downscales img to the pixel budget if needed and classifies every
// pixel in row-major order. A nil or empty image yields an empty sequence.
func (c *Codec) Encode(img image.Image) *Result {
	res := &Result{Codes: []int{}}
	if img == nil || img.Bounds().Empty() {
		return res
	}

	opts := c.options()

	b := img.Bounds()
	res.SourceWidth, res.SourceHeight = b.Dx(), b.Dy()
	res.Width, res.Height = targetSize(b.Dx(), b.Dy(), opts.PixelBudget, opts.Strategy)
	res.Pixels = res.Width * res.Height

	scaled := img
	if res.Width != res.SourceWidth || res.Height != res.SourceHeight {
		scaled = resample(img, res.Width, res.Height, opts.Resampling)
		res.Resized = true
		b = scaled.Bounds()
	}

	res.Codes = make([]int, 0, res.Pixels)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := color.NRGBAModel.Convert(scaled.At(x, y)).(color.NRGBA)
			res.Codes = append(res.Codes, opts.Palette.Classify(px.R, px.G, px.B))
		}
	}

	return res
}
