package artwork

import (
	"image"
	"image/color"
	"sync"

	"github.com/esimov/stackblur-go"
	"golang.org/x/image/draw"
)

// Placeholder dimensions match the catalog's cover_big size.
const (
	placeholderWidth  = 264
	placeholderHeight = 374
)

var placeholderColor = color.RGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff}

// Placeholder returns the fixed image used in place of any cover or screenshot that
// could not be fetched. The same instance is returned every time; do not draw on it.
var Placeholder = sync.OnceValue(func() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: placeholderColor}, image.Point{}, draw.Src)
	return img
})

// IsPlaceholder reports whether img is the shared placeholder.
func IsPlaceholder(img image.Image) bool {
	return img == Placeholder()
}

// Backdrop returns a blurred copy of img for use behind the sharp cover.
func Backdrop(img image.Image, radius uint32) (image.Image, error) {
	blurred, err := stackblur.Run(img, radius)
	if err != nil {
		return nil, err
	}
	return blurred, nil
}
