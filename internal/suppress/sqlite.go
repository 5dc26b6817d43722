package suppress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	appErrors "github.com/fenhl/bitbar-version/internal/errors"
	"github.com/fenhl/bitbar-version/internal/update"
)

const schema = `
CREATE TABLE IF NOT EXISTS suppression (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	hide_until_homebrew_gt TEXT,
	updated_at TEXT NOT NULL
)`

// SQLiteStore keeps the threshold in a single-row table.
type SQLiteStore struct {
	path string
	dsn  string
	now  func() time.Time
}

// NewSQLiteStore returns a store backed by the database at path. The
// database is created on first Save.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{
		path: path,
		dsn:  buildSQLiteDSN(path),
		now:  time.Now,
	}
}

// buildSQLiteDSN creates a read-write DSN with a busy timeout so a
// concurrent hide command waits instead of failing.
func buildSQLiteDSN(dbPath string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(dbPath),
	}
	q := url.Values{}
	q.Set("mode", "rwc")
	q.Add("_pragma", "busy_timeout(3000)")
	q.Add("_pragma", "journal_mode(WAL)")
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *SQLiteStore) openDB(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return nil, ioError("open suppression db", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, ioError("ping suppression db", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, ioError("create suppression table", err)
	}
	return db, nil
}

// Load implements Store. A missing database means no threshold.
func (s *SQLiteStore) Load(ctx context.Context) (*update.Version, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	db, err := s.openDB(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = db.Close()
	}()

	var raw sql.NullString
	err = db.QueryRowContext(ctx, `SELECT hide_until_homebrew_gt FROM suppression WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !raw.Valid) {
		return nil, nil
	}
	if err != nil {
		return nil, ioError("query suppression", err)
	}

	v, err := update.ParseVersion(raw.String)
	if err != nil {
		return nil, appErrors.New(appErrors.CodeParseFailed, fmt.Sprintf("stored threshold: %v", err), err)
	}
	return &v, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, threshold *update.Version) error {
	//nolint:gosec // G301: per-user data directory
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return ioError("create data directory", err)
	}
	db, err := s.openDB(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()

	var value sql.NullString
	if threshold != nil {
		value = sql.NullString{String: threshold.String(), Valid: true}
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO suppression (id, hide_until_homebrew_gt, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			hide_until_homebrew_gt = excluded.hide_until_homebrew_gt,
			updated_at = excluded.updated_at
	`, value, s.now().UTC().Format(time.RFC3339))
	if err != nil {
		return ioError("save suppression", err)
	}
	return nil
}
