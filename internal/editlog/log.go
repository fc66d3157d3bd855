// Package editlog keeps the ordered history of terrain edits and persists it.
package editlog

import (
	"fmt"
	"sync"

	"sdf-terrain/internal/field"

	"github.com/go-gl/mathgl/mgl64"
)

// Log is an append-only, ordered list of edits. Entries are never rewritten
// or removed, so slices handed out by Entries and Filter stay valid while
// later appends happen.
type Log struct {
	mu    sync.RWMutex
	edits []field.Edit
}

// New creates an empty log.
func New() *Log {
	return &Log{}
}

// FromEdits creates a log pre-filled with edits, validating each one.
func FromEdits(edits []field.Edit) (*Log, error) {
	l := New()
	for _, e := range edits {
		if _, err := l.Append(e); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Append validates e and adds it to the end of the log. It returns the
// zero-based sequence number of the new entry.
func (l *Log) Append(e field.Edit) (int, error) {
	if err := e.Validate(); err != nil {
		return 0, fmt.Errorf("editlog: append: %w", err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.edits = append(l.edits, e)
	return len(l.edits) - 1, nil
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.edits)
}

// Entries returns every edit in order. The slice is capacity-clipped so a
// caller's append cannot write into the log.
func (l *Log) Entries() []field.Edit {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := len(l.edits)
	return l.edits[:n:n]
}

// FilterEdits returns, in order, the edits whose influence sphere touches
// the box [min, max].
func FilterEdits(edits []field.Edit, min, max mgl64.Vec3) []field.Edit {
	var out []field.Edit
	for _, e := range edits {
		if e.IntersectsBox(min, max) {
			out = append(out, e)
		}
	}
	return out
}
