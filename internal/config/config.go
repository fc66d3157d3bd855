// Package config loads the YAML run configuration for the terrain tool.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"sdf-terrain/internal/field"
	"sdf-terrain/internal/world"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	Terrain Terrain `yaml:"terrain" json:"terrain"`
	Chunks  Chunks  `yaml:"chunks" json:"chunks"`
	Workers Workers `yaml:"workers" json:"workers"`
	Stream  Stream  `yaml:"stream" json:"stream"`
	Edits   []Edit  `yaml:"edits" json:"edits"`
	Digs    []Dig   `yaml:"digs" json:"digs"`
	Output  Output  `yaml:"output" json:"output"`
}

type Terrain struct {
	BaseHeight float64 `yaml:"base_height" json:"base_height"`
	Amplitude  float64 `yaml:"amplitude" json:"amplitude"`
	Frequency  float64 `yaml:"frequency" json:"frequency"`
	NoiseValue float64 `yaml:"noise_value" json:"noise_value"`
	Detail     Detail  `yaml:"detail" json:"detail"`
}

// Detail is the optional value-noise term; octaves 0 turns it off.
type Detail struct {
	Seed        int64   `yaml:"seed" json:"seed"`
	Octaves     int     `yaml:"octaves" json:"octaves"`
	Scale       float64 `yaml:"scale" json:"scale"`
	Amplitude   float64 `yaml:"amplitude" json:"amplitude"`
	Persistence float64 `yaml:"persistence" json:"persistence"`
	Lacunarity  float64 `yaml:"lacunarity" json:"lacunarity"`
}

type Chunks struct {
	Resolution int     `yaml:"resolution" json:"resolution"`
	VoxelSize  float64 `yaml:"voxel_size" json:"voxel_size"`
	Apron      bool    `yaml:"apron" json:"apron"`
}

type Workers struct {
	Count     int `yaml:"count" json:"count"`
	QueueSize int `yaml:"queue_size" json:"queue_size"`
}

// Stream sets the point chunks are loaded around. Radii are in chunks.
type Stream struct {
	Center      [3]float64 `yaml:"center" json:"center"`
	Radius      int        `yaml:"radius" json:"radius"`
	EvictRadius int        `yaml:"evict_radius" json:"evict_radius"`
}

type Edit struct {
	Center [3]float64 `yaml:"center" json:"center"`
	Radius float64    `yaml:"radius" json:"radius"`
	Op     string     `yaml:"op" json:"op"`
}

// Dig casts a ray into the terrain and applies a sphere edit at the first
// hit.
type Dig struct {
	Origin      [3]float64 `yaml:"origin" json:"origin"`
	Direction   [3]float64 `yaml:"direction" json:"direction"`
	MaxDistance float64    `yaml:"max_distance" json:"max_distance"`
	Radius      float64    `yaml:"radius" json:"radius"`
	Op          string     `yaml:"op" json:"op"`
}

// Output paths; empty disables that output.
type Output struct {
	STL            string  `yaml:"stl" json:"stl"`
	ReferenceSTL   string  `yaml:"reference_stl" json:"reference_stl"`
	ReferenceCells int     `yaml:"reference_cells" json:"reference_cells"`
	SlicePNG       string  `yaml:"slice_png" json:"slice_png"`
	SliceZ         float64 `yaml:"slice_z" json:"slice_z"`
	SliceScale     int     `yaml:"slice_scale" json:"slice_scale"`
	Snapshot       string  `yaml:"snapshot" json:"snapshot"`
	Store          string  `yaml:"store" json:"store"`
}

// Default returns a configuration that runs as is.
func Default() Config {
	t := field.DefaultTerrain()
	l := world.DefaultLayout()
	return Config{
		Terrain: Terrain{
			BaseHeight: t.BaseHeight,
			Amplitude:  t.Amplitude,
			Frequency:  t.Frequency,
			Detail: Detail{
				Scale:       0.05,
				Persistence: 0.5,
				Lacunarity:  2,
			},
		},
		Chunks: Chunks{
			Resolution: l.Resolution,
			VoxelSize:  l.VoxelSize,
			Apron:      l.Apron,
		},
		Workers: Workers{
			Count:     max(runtime.NumCPU(), 1),
			QueueSize: 64,
		},
		Stream: Stream{
			Center:      [3]float64{0, t.BaseHeight, 0},
			Radius:      2,
			EvictRadius: 4,
		},
		Output: Output{
			STL:            "terrain.stl",
			ReferenceCells: 64,
			SliceScale:     4,
		},
	}
}

// Load reads path over the defaults and validates the result. Unknown keys
// are rejected.
func Load(path string) (Config, error) {
	c := Default()
	f, err := os.Open(path)
	if err != nil {
		return c, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return c, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Field builds the terrain field.
func (t Terrain) Field() field.TerrainField {
	return field.TerrainField{
		BaseHeight: t.BaseHeight,
		Amplitude:  t.Amplitude,
		Frequency:  t.Frequency,
		NoiseValue: t.NoiseValue,
		Detail: field.Detail{
			Seed:        t.Detail.Seed,
			Octaves:     t.Detail.Octaves,
			Scale:       t.Detail.Scale,
			Amplitude:   t.Detail.Amplitude,
			Persistence: t.Detail.Persistence,
			Lacunarity:  t.Detail.Lacunarity,
		},
	}
}

// Layout builds the chunk layout.
func (c Chunks) Layout() world.Layout {
	return world.Layout{Resolution: c.Resolution, VoxelSize: c.VoxelSize, Apron: c.Apron}
}

// FieldEdit converts and validates the edit.
func (e Edit) FieldEdit() (field.Edit, error) {
	op, err := field.ParseOperation(e.Op)
	if err != nil {
		return field.Edit{}, err
	}
	fe := field.Edit{Center: mgl64.Vec3(e.Center), Radius: e.Radius, Op: op}
	if err := fe.Validate(); err != nil {
		return field.Edit{}, err
	}
	return fe, nil
}

// FieldEdits converts every configured edit, in order.
func (c *Config) FieldEdits() ([]field.Edit, error) {
	out := make([]field.Edit, 0, len(c.Edits))
	for i, e := range c.Edits {
		fe, err := e.FieldEdit()
		if err != nil {
			return nil, fmt.Errorf("config: edits[%d]: %w", i, err)
		}
		out = append(out, fe)
	}
	return out, nil
}

// Operation parses the dig's edit operation; empty means subtract.
func (d Dig) Operation() (field.Operation, error) {
	if d.Op == "" {
		return field.Subtract, nil
	}
	return field.ParseOperation(d.Op)
}
