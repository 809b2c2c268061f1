package compiler

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"github.com/reelcraft/api/internal/model"
)

// evenDim floors n to the nearest even integer, minimum 2. The encoder's
// yuv420p pixel format cannot represent odd plane dimensions.
func evenDim(n int) int {
	if n < 2 {
		return 2
	}
	return n - n%2
}

// box is an item's rounded target rectangle in canvas pixel space.
type box struct {
	X, Y, W, H int
}

func itemBox(item *model.MediaItem) (box, error) {
	b := box{
		X: item.X,
		Y: item.Y,
		W: evenDim(item.Width),
		H: evenDim(item.Height),
	}
	if b.W%2 != 0 || b.H%2 != 0 {
		return box{}, errors.Wrapf(ErrInvariant, "odd dimensions %dx%d for item %s", b.W, b.H, item.ID)
	}
	return b, nil
}

// fitFilters returns the scale and crop-or-pad stages placing the source into
// the target box. Cover fully fills the box and never shows background;
// contain preserves every source pixel and never crops. Both center.
func fitFilters(mode model.FitMode, b box) []string {
	switch mode {
	case model.FitContain:
		return []string{
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", b.W, b.H),
			fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black", b.W, b.H),
		}
	default:
		// cover is the default fit
		return []string{
			fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", b.W, b.H),
			fmt.Sprintf("crop=%d:%d", b.W, b.H),
		}
	}
}

// secs renders a seconds value with fixed millisecond precision so equal
// inputs always produce identical graph text.
func secs(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
