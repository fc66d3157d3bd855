package field

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// TerrainField holds the parameters of the procedural ground surface. It is
// created once per world and only read while sampling.
type TerrainField struct {
	BaseHeight float64
	Amplitude  float64
	Frequency  float64
	NoiseValue float64
	Detail     Detail
}

// DefaultTerrain is a gently rolling ground around y = 8.
func DefaultTerrain() TerrainField {
	return TerrainField{
		BaseHeight: 8,
		Amplitude:  2,
		Frequency:  0.15,
	}
}

// periodicNoise is the undulation term in [-1, 1].
func periodicNoise(x, z, frequency float64) float64 {
	return math.Sin(x*frequency) * math.Cos(z*frequency)
}

// SdGround is the signed distance (approximate, vertical) to the ground
// surface: negative below it, positive above.
func SdGround(p mgl64.Vec3, amplitude, frequency, baseHeight, noiseValue float64) float64 {
	return p[1] - (baseHeight + amplitude*periodicNoise(p[0], p[2], frequency) + noiseValue)
}

// Ground returns the base density at p before any edits.
func (f *TerrainField) Ground(p mgl64.Vec3) float64 {
	d := SdGround(p, f.Amplitude, f.Frequency, f.BaseHeight, f.NoiseValue)
	return d - f.Detail.Height(p[0], p[2])
}

// Sample evaluates the field at p with edits applied strictly in order.
func (f *TerrainField) Sample(p mgl64.Vec3, edits []Edit) float64 {
	d := f.Ground(p)
	for i := range edits {
		d = edits[i].Apply(d, p)
	}
	return d
}

// SurfaceHeight returns the ground height at (x, z) ignoring edits.
func (f *TerrainField) SurfaceHeight(x, z float64) float64 {
	return f.BaseHeight + f.Amplitude*periodicNoise(x, z, f.Frequency) + f.NoiseValue + f.Detail.Height(x, z)
}

// Gradient estimates the field gradient at p by centred differences with
// step h.
func (f *TerrainField) Gradient(p mgl64.Vec3, edits []Edit, h float64) mgl64.Vec3 {
	var g mgl64.Vec3
	for i := 0; i < 3; i++ {
		var step mgl64.Vec3
		step[i] = h
		g[i] = (f.Sample(p.Add(step), edits) - f.Sample(p.Sub(step), edits)) / (2 * h)
	}
	return g
}
