package editlog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"sdf-terrain/internal/field"

	"github.com/go-gl/mathgl/mgl64"
)

func sampleEdits() []field.Edit {
	return []field.Edit{
		{Center: mgl64.Vec3{1, 2, 3}, Radius: 1.5, Op: field.Subtract},
		{Center: mgl64.Vec3{-4, 8, 0.25}, Radius: 3, Op: field.Add},
		{Center: mgl64.Vec3{40, 8, 40}, Radius: 1, Op: field.Subtract},
	}
}

func TestLogAppendKeepsOrder(t *testing.T) {
	l := New()
	for i, e := range sampleEdits() {
		seq, err := l.Append(e)
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if seq != i {
			t.Errorf("seq = %d, want %d", seq, i)
		}
	}
	got := l.Entries()
	want := sampleEdits()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestLogRejectsInvalidEdit(t *testing.T) {
	l := New()
	_, err := l.Append(field.Edit{Radius: -1, Op: field.Add})
	if !errors.Is(err, field.ErrInvalidEdit) {
		t.Fatalf("Append error = %v, want ErrInvalidEdit", err)
	}
	if l.Len() != 0 {
		t.Errorf("Len = %d after rejected append", l.Len())
	}
}

func TestEntriesAreClipped(t *testing.T) {
	l, err := FromEdits(sampleEdits()[:2])
	if err != nil {
		t.Fatalf("FromEdits: %v", err)
	}
	view := l.Entries()
	_ = append(view, field.Edit{Radius: 9, Op: field.Add})
	if _, err := l.Append(sampleEdits()[2]); err != nil {
		t.Fatal(err)
	}
	if got := l.Entries()[2]; got != sampleEdits()[2] {
		t.Errorf("log entry overwritten through a view: %+v", got)
	}
}

func TestFilterPreservesOrder(t *testing.T) {
	l, _ := FromEdits(sampleEdits())
	got := FilterEdits(l.Entries(), mgl64.Vec3{-8, 0, -8}, mgl64.Vec3{8, 16, 8})
	if len(got) != 2 {
		t.Fatalf("FilterEdits len = %d, want 2", len(got))
	}
	if got[0] != sampleEdits()[0] || got[1] != sampleEdits()[1] {
		t.Errorf("FilterEdits order = %+v", got)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap", "edits.jsonl.zst")
	l, _ := FromEdits(sampleEdits())
	if err := SaveSnapshot(path, l); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	got, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if got.Len() != l.Len() {
		t.Fatalf("Len = %d, want %d", got.Len(), l.Len())
	}
	for i, e := range l.Entries() {
		if got.Entries()[i] != e {
			t.Errorf("entry %d = %+v, want %+v", i, got.Entries()[i], e)
		}
	}
}

func TestLoadSnapshotMissing(t *testing.T) {
	if _, err := LoadSnapshot(filepath.Join(t.TempDir(), "nope.zst")); err == nil {
		t.Error("expected error for missing snapshot")
	}
}

func TestStoreAppendAndLoad(t *testing.T) {
	ctx := context.Background()
	st, err := OpenStore(filepath.Join(t.TempDir(), "edits.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer st.Close()

	regions := [][3]int{{0, 0, 0}, {-1, 0, 0}, {2, 0, 2}}
	for i, e := range sampleEdits() {
		if _, err := st.Append(ctx, regions[i], e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	l, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i, e := range sampleEdits() {
		if l.Entries()[i] != e {
			t.Errorf("entry %d = %+v, want %+v", i, l.Entries()[i], e)
		}
	}
}

func TestStoreRejectsInvalidEdit(t *testing.T) {
	st, err := OpenStore(filepath.Join(t.TempDir(), "edits.db"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	defer st.Close()
	if _, err := st.Append(context.Background(), [3]int{}, field.Edit{Radius: 1}); !errors.Is(err, field.ErrInvalidEdit) {
		t.Errorf("Append error = %v, want ErrInvalidEdit", err)
	}
}
