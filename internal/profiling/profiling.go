// Package profiling accumulates wall-clock timings for terrain rebuild
// stages. Timings are process-wide and safe for concurrent use; rebuild
// passes reset and summarise them.
package profiling

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Stat is the accumulated timing of one named stage.
type Stat struct {
	Name  string
	Total time.Duration
	Calls int
}

var (
	mu     sync.Mutex
	totals = make(map[string]*Stat)
)

// Track returns a stop function that records the elapsed time under name.
// Usage: defer profiling.Track("meshing.BuildMesh")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		s, ok := totals[name]
		if !ok {
			s = &Stat{Name: name}
			totals[name] = s
		}
		s.Total += d
		s.Calls++
		mu.Unlock()
	}
}

// Reset clears all accumulated timings.
func Reset() {
	mu.Lock()
	clear(totals)
	mu.Unlock()
}

// Snapshot returns the current stats sorted by total time, longest first.
func Snapshot() []Stat {
	mu.Lock()
	out := make([]Stat, 0, len(totals))
	for _, s := range totals {
		out = append(out, *s)
	}
	mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// TopN formats the n slowest stages.
// Example: "meshing.BuildMesh:4.2ms/8, density.SampleLattice:2.1ms/8"
func TopN(n int) string {
	ss := Snapshot()
	if n > len(ss) {
		n = len(ss)
	}
	parts := make([]string, 0, n)
	for _, s := range ss[:n] {
		ms := float64(s.Total.Microseconds()) / 1000.0
		parts = append(parts, fmt.Sprintf("%s:%.1fms/%d", s.Name, ms, s.Calls))
	}
	return strings.Join(parts, ", ")
}
