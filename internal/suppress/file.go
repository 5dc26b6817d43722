package suppress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	appErrors "github.com/fenhl/bitbar-version/internal/errors"
	"github.com/fenhl/bitbar-version/internal/update"
)

// thresholdKey is the document field holding the threshold.
const thresholdKey = "hideUntilHomebrewGt"

const lockRetryDelay = 50 * time.Millisecond

// FileStore keeps the threshold in a JSON document such as
// {"hideUntilHomebrewGt": "1.2.0"}. Other fields in the document are kept
// as they are. Writes replace the file atomically while holding an
// advisory lock on a sibling ".lock" file.
type FileStore struct {
	path string
	lock *flock.Flock
}

// NewFileStore returns a store backed by the document at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the document location.
func (s *FileStore) Path() string {
	return s.path
}

// Load implements Store. A missing document means no threshold.
func (s *FileStore) Load(ctx context.Context) (*update.Version, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	raw, ok := doc[thresholdKey]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var v update.Version
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, appErrors.New(appErrors.CodeParseFailed, fmt.Sprintf("%s in %s: %v", thresholdKey, s.path, err), err)
	}
	return &v, nil
}

// Save implements Store.
func (s *FileStore) Save(ctx context.Context, threshold *update.Version) error {
	//nolint:gosec // G301: per-user data directory
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return ioError("create data directory", err)
	}

	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return ioError(fmt.Sprintf("lock %s", s.path), err)
	}
	if !locked {
		return ioError(fmt.Sprintf("lock %s", s.path), errors.New("held by another process"))
	}
	defer func() { _ = s.lock.Unlock() }()

	doc, err := s.read()
	if err != nil {
		return err
	}
	if threshold == nil {
		delete(doc, thresholdKey)
	} else {
		raw, err := json.Marshal(threshold)
		if err != nil {
			return appErrors.New(appErrors.CodeParseFailed, fmt.Sprintf("encode threshold: %v", err), err)
		}
		doc[thresholdKey] = raw
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return appErrors.New(appErrors.CodeParseFailed, fmt.Sprintf("encode state: %v", err), err)
	}
	return writeAtomic(s.path, append(data, '\n'))
}

func (s *FileStore) read() (map[string]json.RawMessage, error) {
	//nolint:gosec // G304: path is the plugin's own state file
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, ioError(fmt.Sprintf("read %s", s.path), err)
	}
	doc := map[string]json.RawMessage{}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, appErrors.New(appErrors.CodeParseFailed, fmt.Sprintf("parse %s: %v", s.path, err), err)
	}
	return doc, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return ioError("create temp file", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return ioError(fmt.Sprintf("write %s", tmpName), err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return ioError(fmt.Sprintf("sync %s", tmpName), err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return ioError(fmt.Sprintf("close %s", tmpName), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return ioError(fmt.Sprintf("replace %s", path), err)
	}
	return nil
}

func ioError(msg string, err error) error {
	return appErrors.New(appErrors.CodeIO, fmt.Sprintf("%s: %v", msg, err), err)
}
