// Package suppress persists the "hide until Homebrew is greater than"
// threshold between runs.
//
// The threshold is read once per check and written only by the explicit
// hide command. Two backends exist: a JSON document in the per-user data
// directory (the default, shared with earlier releases of the plugin) and a
// single-row SQLite table.
package suppress

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fenhl/bitbar-version/internal/config"
	appErrors "github.com/fenhl/bitbar-version/internal/errors"
	"github.com/fenhl/bitbar-version/internal/update"
)

const (
	// FileName is the JSON document holding the threshold.
	FileName = "bitbar-version.json"
	// DBFileName is the SQLite database used by the sqlite backend.
	DBFileName = "bitbar-version.db"
)

// Store gets and sets the optional suppression threshold.
type Store interface {
	// Load returns the persisted threshold, or nil when none is set.
	Load(ctx context.Context) (*update.Version, error)
	// Save persists the threshold; nil clears it.
	Save(ctx context.Context, threshold *update.Version) error
}

// Open returns the store for backend. An empty path selects the default
// location inside the per-user data directory.
func Open(backend, path string) (Store, error) {
	backend = strings.ToLower(strings.TrimSpace(backend))
	if path == "" {
		dir, err := config.DataDir()
		if err != nil {
			return nil, appErrors.New(appErrors.CodeIO, "locate data directory", err)
		}
		name := FileName
		if backend == config.BackendSQLite {
			name = DBFileName
		}
		path = filepath.Join(dir, name)
	}

	switch backend {
	case "", config.BackendJSON:
		return NewFileStore(path), nil
	case config.BackendSQLite:
		return NewSQLiteStore(path), nil
	default:
		return nil, appErrors.New(appErrors.CodeConfigurationError, fmt.Sprintf("unknown state backend %q", backend), nil)
	}
}

// SetThreshold loads the current state, replaces the threshold with v and
// persists it. An unreadable existing state is reported rather than
// overwritten.
func SetThreshold(ctx context.Context, store Store, v update.Version) error {
	if _, err := store.Load(ctx); err != nil {
		return err
	}
	return store.Save(ctx, &v)
}

// Clear removes any persisted threshold.
func Clear(ctx context.Context, store Store) error {
	return store.Save(ctx, nil)
}
