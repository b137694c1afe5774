package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/commonpool/core"
	"github.com/hupe1980/commonpool/logging"
)

// Mirror receives a copy of every stored payload (e.g. an object store).
type Mirror interface {
	PutRecord(ctx context.Context, filename string, payload []byte) error
}

// Indexer receives the listing row of every stored record.
type Indexer interface {
	Put(ctx context.Context, summary core.RecordSummary) error
}

// FileStoreOptions configures a FileStore.
type FileStoreOptions struct {
	// Compress stores records as zstd compressed .json.zst files.
	Compress bool
	// Validate checks every document against the record schema before writing.
	Validate bool
	Mirror   Mirror
	Indexer  Indexer
	Logger   logging.Logger
}

// FileStore keeps one file per simulation run in a directory. Records are
// write-once: saving a record whose filename already exists fails with
// ErrExists.
type FileStore struct {
	dir    string
	opts   FileStoreOptions
	logger logging.Logger
}

var (
	_ core.RecordStore  = (*FileStore)(nil)
	_ core.RecordReader = (*FileStore)(nil)
)

// NewFileStore returns a store rooted at dir. The directory is created on
// the first Save.
func NewFileStore(dir string, optFns ...func(o *FileStoreOptions)) *FileStore {
	var opts FileStoreOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	return &FileStore{dir: dir, opts: opts, logger: logging.OrNoOp(opts.Logger)}
}

// Dir returns the output directory.
func (s *FileStore) Dir() string { return s.dir }

// Save writes rec atomically and returns the file path. Failures are
// reported as *core.PersistenceError.
func (s *FileStore) Save(ctx context.Context, rec *core.SimulationRecord) (string, error) {
	if err := core.ValidateSimulationID(rec.SimulationID); err != nil {
		return "", &core.PersistenceError{Err: err}
	}

	payload, name, err := Encode(rec, s.opts.Compress)
	if err != nil {
		return "", &core.PersistenceError{Path: name, Err: err}
	}
	if s.opts.Validate {
		doc, err := Decode(name, payload)
		if err == nil {
			err = ValidateDocument(doc)
		}
		if err != nil {
			return "", &core.PersistenceError{Path: name, Err: err}
		}
	}

	path := filepath.Join(s.dir, name)
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", &core.PersistenceError{Path: path, Err: err}
	}
	if err := writeFileOnce(s.dir, path, payload); err != nil {
		return "", &core.PersistenceError{Path: path, Err: err}
	}
	s.logger.Info("artifact.saved", "path", path, "bytes", len(payload))

	if s.opts.Mirror != nil {
		if err := s.opts.Mirror.PutRecord(ctx, name, payload); err != nil {
			return path, &core.PersistenceError{Path: name, Err: fmt.Errorf("mirror: %w", err)}
		}
	}
	if s.opts.Indexer != nil {
		if err := s.opts.Indexer.Put(ctx, core.Summarize(rec, name)); err != nil {
			return path, &core.PersistenceError{Path: name, Err: fmt.Errorf("index: %w", err)}
		}
	}
	return path, nil
}

// writeFileOnce writes data to a temp file in dir, syncs it and links it
// to path. The link fails when path exists, so concurrent writers of the
// same name cannot replace each other.
func writeFileOnce(dir, path string, data []byte) (err error) {
	if _, statErr := os.Lstat(path); statErr == nil {
		return ErrExists
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return statErr
	}

	tmp, err := os.CreateTemp(dir, ".sim-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err = os.Link(tmpName, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			err = ErrExists
		}
		return err
	}
	return os.Remove(tmpName)
}

// List returns a summary of every readable record, newest first. Files
// that cannot be parsed are skipped.
func (s *FileStore) List(ctx context.Context) ([]core.RecordSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []core.RecordSummary{}, nil
		}
		return nil, err
	}

	out := make([]core.RecordSummary, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || ValidFilename(e.Name()) != nil {
			continue
		}
		doc, err := s.Get(ctx, e.Name())
		if err != nil {
			s.logger.Warn("artifact.list.skip", "file", e.Name(), "error", err.Error())
			continue
		}
		rec, err := core.ParseSimulationRecord(doc)
		if err != nil {
			s.logger.Warn("artifact.list.skip", "file", e.Name(), "error", err.Error())
			continue
		}
		out = append(out, core.Summarize(rec, e.Name()))
	}
	core.SortSummaries(out)
	return out, nil
}

// Get returns the JSON document stored under filename, decompressed.
func (s *FileStore) Get(_ context.Context, filename string) ([]byte, error) {
	if err := ValidFilename(filename); err != nil {
		return nil, err
	}
	payload, err := os.ReadFile(filepath.Join(s.dir, filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
		}
		return nil, err
	}
	return Decode(filename, payload)
}
