package editlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"sdf-terrain/internal/field"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/klauspost/compress/zstd"
)

// snapshotVersion is written in the header line of every snapshot.
const snapshotVersion = 1

type snapshotHeader struct {
	Version int `json:"version"`
	Count   int `json:"count"`
}

// EditV1 is the persisted form of an edit.
type EditV1 struct {
	Center [3]float64 `json:"center"`
	Radius float64    `json:"radius"`
	Op     string     `json:"op"`
}

// EncodeEdit converts an edit to its persisted form.
func EncodeEdit(e field.Edit) EditV1 {
	return EditV1{Center: [3]float64(e.Center), Radius: e.Radius, Op: e.Op.String()}
}

// DecodeEdit converts a persisted edit back and validates it.
func DecodeEdit(v EditV1) (field.Edit, error) {
	op, err := field.ParseOperation(v.Op)
	if err != nil {
		return field.Edit{}, err
	}
	e := field.Edit{Center: mgl64.Vec3(v.Center), Radius: v.Radius, Op: op}
	if err := e.Validate(); err != nil {
		return field.Edit{}, err
	}
	return e, nil
}

// SaveSnapshot writes the log as zstd-compressed JSON lines: one header line
// followed by one line per edit, in order. The file is written to a
// temporary name and renamed into place.
func SaveSnapshot(path string, l *Log) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := writeSnapshot(f, l.Entries()); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeSnapshot(w io.Writer, edits []field.Edit) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(enc)
	je := json.NewEncoder(bw)
	if err := je.Encode(snapshotHeader{Version: snapshotVersion, Count: len(edits)}); err != nil {
		_ = enc.Close()
		return err
	}
	for _, e := range edits {
		if err := je.Encode(EncodeEdit(e)); err != nil {
			_ = enc.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// LoadSnapshot reads a snapshot written by SaveSnapshot.
func LoadSnapshot(path string) (*Log, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	jd := json.NewDecoder(bufio.NewReader(dec))
	var hdr snapshotHeader
	if err := jd.Decode(&hdr); err != nil {
		return nil, fmt.Errorf("editlog: snapshot header: %w", err)
	}
	if hdr.Version != snapshotVersion {
		return nil, fmt.Errorf("editlog: unsupported snapshot version %d", hdr.Version)
	}

	l := New()
	for i := 0; i < hdr.Count; i++ {
		var v EditV1
		if err := jd.Decode(&v); err != nil {
			return nil, fmt.Errorf("editlog: snapshot entry %d: %w", i, err)
		}
		e, err := DecodeEdit(v)
		if err != nil {
			return nil, fmt.Errorf("editlog: snapshot entry %d: %w", i, err)
		}
		if _, err := l.Append(e); err != nil {
			return nil, err
		}
	}
	return l, nil
}
