package assets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// ErrNotFound is returned when no asset exists at the requested path.
var ErrNotFound = errors.New("assets: not found")

// Store fetches bundled assets by path, e.g. "/office_data.json".
// Implementations must be safe for concurrent use.
type Store interface {
	Open(ctx context.Context, path string) ([]byte, error)
}

// DirStore serves assets from a file system, normally os.DirFS(ASSET_DIR).
type DirStore struct {
	FS fs.FS
}

func NewDirStore(fsys fs.FS) *DirStore { return &DirStore{FS: fsys} }

func (s *DirStore) Open(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.FS == nil {
		return nil, errors.New("assets: file system not configured")
	}
	name := strings.TrimPrefix(path, "/")
	if !fs.ValidPath(name) || name == "." {
		return nil, fmt.Errorf("assets: invalid path %q", path)
	}
	b, err := fs.ReadFile(s.FS, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("assets: read %s: %w", path, err)
	}
	return b, nil
}

// PostgresStore serves assets from a table:
//
//	CREATE TABLE assets (path text PRIMARY KEY, body bytea NOT NULL);
//
// Use with a *sql.DB opened on the pgx stdlib driver.
type PostgresStore struct {
	query func(ctx context.Context, path string, dst *[]byte) error
}

const selectAssetSQL = `SELECT body FROM assets WHERE path = $1`

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		query: func(ctx context.Context, path string, dst *[]byte) error {
			return db.QueryRowContext(ctx, selectAssetSQL, path).Scan(dst)
		},
	}
}

func (s *PostgresStore) Open(ctx context.Context, path string) ([]byte, error) {
	if s.query == nil {
		return nil, errors.New("assets: database not configured")
	}
	var body []byte
	err := s.query(ctx, path, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("assets: query %s: %w", path, err)
	}
	return body, nil
}
