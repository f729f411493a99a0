package game

import (
	"image"
	"image/color"

	opensimplex "github.com/ojrac/opensimplex-go"
)

const (
	groundOctaves     = 4
	groundFrequency   = 1.0 / 96
	groundPersistence = 0.5
)

// groundBase is the darkest ground tone; noise lifts each channel by up to
// groundSpread.
var (
	groundBase   = color.NRGBA{R: 18, G: 22, B: 20, A: 255}
	groundSpread = color.NRGBA{R: 14, G: 16, B: 12}
)

// groundTexture renders a cosmetic background of w×h pixels. The same seed
// always gives the same texture.
func groundTexture(w, h int, seed int64) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	noise := opensimplex.NewNormalized(seed)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := octaveNoise(noise, float64(x), float64(y), groundOctaves, groundFrequency, groundPersistence)
			img.SetNRGBA(x, y, color.NRGBA{
				R: groundBase.R + uint8(v*float64(groundSpread.R)),
				G: groundBase.G + uint8(v*float64(groundSpread.G)),
				B: groundBase.B + uint8(v*float64(groundSpread.B)),
				A: 255,
			})
		}
	}
	return img
}

// octaveNoise layers several noise frequencies into a value in [0,1].
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
