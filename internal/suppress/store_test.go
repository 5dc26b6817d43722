package suppress

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenhl/bitbar-version/internal/config"
	appErrors "github.com/fenhl/bitbar-version/internal/errors"
	"github.com/fenhl/bitbar-version/internal/update"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	return map[string]Store{
		"json":   NewFileStore(filepath.Join(dir, "plugin-cache", FileName)),
		"sqlite": NewSQLiteStore(filepath.Join(dir, "plugin-cache", DBFileName)),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			got, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Nil(t, got, "absent state means no suppression")

			require.NoError(t, SetThreshold(ctx, store, update.MustParseVersion("1.2.0")))
			got, err = store.Load(ctx)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "1.2.0", got.String())

			require.NoError(t, SetThreshold(ctx, store, update.MustParseVersion("1.3.0-beta.1")))
			got, err = store.Load(ctx)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, "1.3.0-beta.1", got.String())

			require.NoError(t, Clear(ctx, store))
			got, err = store.Load(ctx)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestFileStoreDocumentFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	store := NewFileStore(path)
	require.NoError(t, SetThreshold(context.Background(), store, update.MustParseVersion("1.2.0")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hideUntilHomebrewGt": "1.2.0"}`, string(data))
}

func TestFileStoreKeepsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(`{"hideUntilHomebrewGt": null, "note": "kept"}`), 0o600))
	store := NewFileStore(path)

	got, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got, "null threshold means no suppression")

	require.NoError(t, SetThreshold(context.Background(), store, update.MustParseVersion("2.0.0")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hideUntilHomebrewGt": "2.0.0", "note": "kept"}`, string(data))
}

func TestFileStoreCorruptDocument(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", `{"hideUntilHomebrewGt": `},
		{"bad version", `{"hideUntilHomebrewGt": "v1.2"}`},
		{"wrong type", `{"hideUntilHomebrewGt": 12}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			store := NewFileStore(path)

			_, err := store.Load(context.Background())
			assert.True(t, appErrors.IsCode(err, appErrors.CodeParseFailed), "got %v", err)

			err = SetThreshold(context.Background(), store, update.MustParseVersion("1.0.0"))
			require.Error(t, err, "corrupt state must not be overwritten")
			data, readErr := os.ReadFile(path)
			require.NoError(t, readErr)
			assert.Equal(t, tt.content, string(data))
		})
	}
}

func TestFileStoreEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	got, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, FileName))
	require.NoError(t, SetThreshold(context.Background(), store, update.MustParseVersion("1.2.0")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{FileName, FileName + ".lock"}, names)
}

func TestSQLiteStoreLoadDoesNotCreateDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), DBFileName)
	got, err := NewSQLiteStore(path).Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(config.BackendJSON, filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open("SQLite", filepath.Join(dir, DBFileName))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)

	_, err = Open("redis", filepath.Join(dir, "x"))
	assert.True(t, appErrors.IsCode(err, appErrors.CodeConfigurationError), "got %v", err)
}

func TestOpenDefaultPath(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)

	s, err := Open("", "")
	require.NoError(t, err)
	fileStore, ok := s.(*FileStore)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dataHome, "bitbar", "plugin-cache", FileName), fileStore.Path())
}
