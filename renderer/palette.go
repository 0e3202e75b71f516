package renderer

import "image/color"

// Genotype colors, reused cyclically.
var palette = []color.RGBA{
	{R: 220, G: 80, B: 60, A: 255},
	{R: 60, G: 140, B: 220, A: 255},
	{R: 90, G: 180, B: 90, A: 255},
	{R: 230, G: 160, B: 40, A: 255},
	{R: 150, G: 90, B: 200, A: 255},
	{R: 40, G: 180, B: 180, A: 255},
}

// GenotypeColor returns the display color of genotype g.
func GenotypeColor(g int) color.RGBA {
	if g < 0 {
		g = -g
	}
	return palette[g%len(palette)]
}

// NutrientColor blends from dark (empty) to pale blue (full) for a fill
// fraction in [0, 1].
func NutrientColor(frac float64) color.RGBA {
	frac = min(max(frac, 0), 1)
	lerp := func(a, b uint8) uint8 {
		return uint8(float64(a) + (float64(b)-float64(a))*frac)
	}
	return color.RGBA{R: lerp(30, 120), G: lerp(35, 190), B: lerp(45, 235), A: 255}
}
