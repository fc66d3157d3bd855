// Package preview renders density grids as images for quick inspection.
package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"sdf-terrain/internal/density"

	"golang.org/x/image/draw"
)

// ErrSliceOutOfRange is returned for a z layer outside the grid.
var ErrSliceOutOfRange = errors.New("slice out of range")

var (
	solidColor   = color.RGBA{R: 110, G: 84, B: 56, A: 255}
	airColor     = color.RGBA{R: 150, G: 200, B: 235, A: 255}
	surfaceColor = color.RGBA{R: 250, G: 250, B: 250, A: 255}
)

// bandWidth is the |density| below which a sample is tinted as surface.
const bandWidth = 0.5

// Color maps a density sample to a pixel: brown for solid, blue for air,
// fading to white near the zero crossing.
func Color(d float32) color.RGBA {
	base := airColor
	if d < 0 {
		base = solidColor
	}
	t := math.Min(math.Abs(float64(d))/bandWidth, 1)
	mix := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a)*(1-t) + float64(b)*t))
	}
	return color.RGBA{
		R: mix(surfaceColor.R, base.R),
		G: mix(surfaceColor.G, base.G),
		B: mix(surfaceColor.B, base.B),
		A: 255,
	}
}

// Slice renders layer z of g with x to the right and y up.
func Slice(g *density.Grid, z int) (*image.RGBA, error) {
	if g == nil || z < 0 || z >= g.Dims.Z {
		return nil, fmt.Errorf("preview: z=%d: %w", z, ErrSliceOutOfRange)
	}
	img := image.NewRGBA(image.Rect(0, 0, g.Dims.X, g.Dims.Y))
	for y := 0; y < g.Dims.Y; y++ {
		row := g.Dims.Y - 1 - y
		for x := 0; x < g.Dims.X; x++ {
			img.SetRGBA(x, row, Color(g.At(x, y, z)))
		}
	}
	return img, nil
}

// Upscale enlarges src by an integer factor with nearest-neighbour
// sampling so individual voxels stay crisp.
func Upscale(src image.Image, factor int) *image.RGBA {
	factor = max(factor, 1)
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// WritePNG encodes img to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("preview: encode %s: %w", path, err)
	}
	return f.Close()
}
