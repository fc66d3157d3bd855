package profiling

import (
	"strings"
	"sync"
	"testing"
)

func TestTrackAccumulates(t *testing.T) {
	Reset()
	for i := 0; i < 3; i++ {
		Track("a")()
	}
	Track("b")()

	ss := Snapshot()
	calls := map[string]int{}
	for _, s := range ss {
		calls[s.Name] = s.Calls
	}
	if calls["a"] != 3 || calls["b"] != 1 {
		t.Errorf("calls = %v, want a:3 b:1", calls)
	}
}

func TestTrackConcurrent(t *testing.T) {
	Reset()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Track("c")()
		}()
	}
	wg.Wait()
	if ss := Snapshot(); len(ss) != 1 || ss[0].Calls != 16 {
		t.Errorf("Snapshot = %+v, want one stat with 16 calls", ss)
	}
}

func TestTopN(t *testing.T) {
	Reset()
	if got := TopN(3); got != "" {
		t.Errorf("TopN on empty = %q", got)
	}
	Track("x")()
	Track("y")()
	got := TopN(5)
	if !strings.Contains(got, "x:") || !strings.Contains(got, "y:") {
		t.Errorf("TopN = %q, want both stages", got)
	}
	if strings.Count(TopN(1), ":") != 1 {
		t.Errorf("TopN(1) = %q, want one entry", TopN(1))
	}
}
