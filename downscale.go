package pixcode

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/gift"
)

// Strategy selects how the target size of a downscaled image is chosen.
type Strategy int

// Possible downscale strategies.
const (
	// StrategyHalving halves both dimensions (integer division) until the
	// image fits the budget. Large images may end well below the budget.
	StrategyHalving Strategy = iota
	// StrategyProportional applies a single uniform scale factor so the
	// result lands as close to the budget as flooring allows.
	StrategyProportional
)

func (s Strategy) String() string {
	switch s {
	case StrategyHalving:
		return "halving"
	case StrategyProportional:
		return "proportional"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy returns the strategy with the given name.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "", "halving":
		return StrategyHalving, nil
	case "proportional":
		return StrategyProportional, nil
	}
	return 0, fmt.Errorf("pixcode: ParseStrategy: unknown strategy %q", name)
}

// TargetSize returns the dimensions an image of width by height pixels is
// reduced to so that it has at most budget pixels. Dimensions already within
// budget are returned as is. Neither returned dimension is ever less than 1.
func TargetSize(width, height, budget int, strategy Strategy) (int, int, error) {
	if budget <= 0 {
		return 0, 0, errors.New("pixcode: TargetSize: pixel budget must be positive")
	}
	if strategy != StrategyHalving && strategy != StrategyProportional {
		return 0, 0, fmt.Errorf("pixcode: TargetSize: unknown strategy %v", strategy)
	}

	width, height = targetSize(width, height, budget, strategy)
	return width, height, nil
}

// targetSize assumes a known strategy. A budget below 1 is treated as 1 so the
// loops below always terminate.
func targetSize(width, height, budget int, strategy Strategy) (int, int) {
	budget = max(1, budget)
	if width*height <= budget {
		return width, height
	}

	switch strategy {
	case StrategyHalving:
		for width*height > budget {
			width = max(1, width/2)
			height = max(1, height/2)
		}
	case StrategyProportional:
		s := math.Sqrt(float64(budget) / (float64(width) * float64(height)))
		width = max(1, int(math.Floor(float64(width)*s)))
		height = max(1, int(math.Floor(float64(height)*s)))

		// Floating point error can push the product just over budget.
		for width*height > budget {
			if width >= height {
				width--
			} else {
				height--
			}
		}
	}

	return width, height
}

// Downscale reduces img so that it has at most budget pixels. An image already
// within budget is returned unchanged. Otherwise a new image anchored at (0, 0)
// is resampled from img in a single pass.
func Downscale(img image.Image, budget int, strategy Strategy, resampling gift.Resampling) (image.Image, error) {
	b := img.Bounds()
	width, height, err := TargetSize(b.Dx(), b.Dy(), budget, strategy)
	if err != nil {
		return nil, err
	}

	if width == b.Dx() && height == b.Dy() {
		return img, nil
	}

	return resample(img, width, height, resampling), nil
}

func resample(img image.Image, width, height int, resampling gift.Resampling) *image.NRGBA {
	if resampling == nil {
		resampling = gift.BoxResampling
	}

	output := image.NewNRGBA(image.Rect(0, 0, width, height))
	gift.Resize(width, height, resampling).Draw(output, img, &gift.Options{
		Parallelization: true,
	})

	return output
}
