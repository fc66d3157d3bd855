package field

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// InfluenceScale multiplies an edit's radius to get the distance beyond which
// the edit leaves the field untouched. Past that distance a plain min or max
// would still lower the magnitude of far samples; cutting it off keeps every
// sample a function of the edits whose bounds touch its chunk, so per-chunk
// filtering reproduces the global field exactly. Signs, and so the surface,
// are the same either way.
const InfluenceScale = 2.0

// ErrInvalidEdit is returned for edits with a non-positive or non-finite
// radius, a non-finite centre, or an unknown operation.
var ErrInvalidEdit = errors.New("invalid edit")

// Operation selects how an edit combines with the running density.
type Operation uint8

const (
	// Add unions a solid sphere into the terrain.
	Add Operation = iota + 1
	// Subtract carves a sphere of air out of the terrain.
	Subtract
)

func (op Operation) String() string {
	switch op {
	case Add:
		return "add"
	case Subtract:
		return "subtract"
	default:
		return fmt.Sprintf("Operation(%d)", uint8(op))
	}
}

// ParseOperation accepts the names produced by Operation.String.
func ParseOperation(s string) (Operation, error) {
	switch s {
	case "add":
		return Add, nil
	case "subtract":
		return Subtract, nil
	}
	return 0, fmt.Errorf("field: unknown operation %q: %w", s, ErrInvalidEdit)
}

// Edit is a sphere-shaped add or subtract operation. Edits are immutable
// values; logs hold them by value and never rewrite an entry.
type Edit struct {
	Center mgl64.Vec3
	Radius float64
	Op     Operation
}

// Validate reports whether the edit can be applied.
func (e Edit) Validate() error {
	if !(e.Radius > 0) || math.IsInf(e.Radius, 0) {
		return fmt.Errorf("field: radius %v: %w", e.Radius, ErrInvalidEdit)
	}
	for i := 0; i < 3; i++ {
		if math.IsNaN(e.Center[i]) || math.IsInf(e.Center[i], 0) {
			return fmt.Errorf("field: center %v: %w", e.Center, ErrInvalidEdit)
		}
	}
	if e.Op != Add && e.Op != Subtract {
		return fmt.Errorf("field: %v: %w", e.Op, ErrInvalidEdit)
	}
	return nil
}

// Reach is the radius of the edit's influence sphere.
func (e Edit) Reach() float64 {
	return e.Radius * InfluenceScale
}

// Bounds returns the axis-aligned box enclosing the influence sphere.
func (e Edit) Bounds() (min, max mgl64.Vec3) {
	r := e.Reach()
	ext := mgl64.Vec3{r, r, r}
	return e.Center.Sub(ext), e.Center.Add(ext)
}

// IntersectsBox reports whether the influence sphere touches the box
// [min, max]. Touching counts as intersecting.
func (e Edit) IntersectsBox(min, max mgl64.Vec3) bool {
	var d2 float64
	for i := 0; i < 3; i++ {
		c := e.Center[i]
		switch {
		case c < min[i]:
			d := min[i] - c
			d2 += d * d
		case c > max[i]:
			d := c - max[i]
			d2 += d * d
		}
	}
	r := e.Reach()
	return d2 <= r*r
}

// Apply folds the edit into the running density d at point p.
func (e Edit) Apply(d float64, p mgl64.Vec3) float64 {
	offset := p.Sub(e.Center)
	dist := offset.Len()
	if dist > e.Reach() {
		return d
	}
	sphere := dist - e.Radius
	switch e.Op {
	case Add:
		return OpUnion(d, sphere)
	case Subtract:
		return OpSubtraction(d, sphere)
	}
	return d
}
