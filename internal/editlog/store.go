package editlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"sdf-terrain/internal/field"
)

// Store is a durable edit history backed by SQLite. Rows are keyed by an
// insertion sequence, so loading returns edits in the order they were made.
// Each row also records the region (chunk coordinate) the edit was made in.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the database at path.
func OpenStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("editlog: empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS edits (
			seq      INTEGER PRIMARY KEY AUTOINCREMENT,
			region_x INTEGER NOT NULL,
			region_y INTEGER NOT NULL,
			region_z INTEGER NOT NULL,
			cx       REAL NOT NULL,
			cy       REAL NOT NULL,
			cz       REAL NOT NULL,
			radius   REAL NOT NULL,
			op       TEXT NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS edits_region ON edits(region_x, region_y, region_z, seq);",
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("editlog: init schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append records e under region and returns its sequence number.
func (s *Store) Append(ctx context.Context, region [3]int, e field.Edit) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, fmt.Errorf("editlog: store append: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO edits(region_x, region_y, region_z, cx, cy, cz, radius, op) VALUES(?,?,?,?,?,?,?,?)`,
		region[0], region[1], region[2], e.Center[0], e.Center[1], e.Center[2], e.Radius, e.Op.String())
	if err != nil {
		return 0, fmt.Errorf("editlog: store append: %w", err)
	}
	return res.LastInsertId()
}

// Load returns the whole history as a Log.
func (s *Store) Load(ctx context.Context) (*Log, error) {
	edits, err := s.query(ctx, `SELECT cx, cy, cz, radius, op FROM edits ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	return FromEdits(edits)
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]field.Edit, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("editlog: store query: %w", err)
	}
	defer rows.Close()

	var edits []field.Edit
	for rows.Next() {
		var v EditV1
		if err := rows.Scan(&v.Center[0], &v.Center[1], &v.Center[2], &v.Radius, &v.Op); err != nil {
			return nil, fmt.Errorf("editlog: store scan: %w", err)
		}
		e, err := DecodeEdit(v)
		if err != nil {
			return nil, fmt.Errorf("editlog: store row: %w", err)
		}
		edits = append(edits, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("editlog: store rows: %w", err)
	}
	return edits, nil
}
