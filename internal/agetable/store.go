package agetable

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/climbtrack/agescraper/internal/scrape"
	"github.com/climbtrack/agescraper/internal/storage"
)

// ErrNotFound indicates no age table exists for the requested federation.
// This aborts that federation's run without touching any files.
var ErrNotFound = errors.New("age table not found")

// Store loads and checkpoints per-federation age tables. Each Save is a full
// rewrite of the file so an interrupted run loses at most one cycle of work.
type Store struct {
	dataDir string
	mirror  storage.Provider
	logger  *zap.Logger
}

// NewStore builds a Store rooted at dataDir. mirror may be nil to disable
// checkpoint mirroring.
func NewStore(dataDir string, mirror storage.Provider, logger *zap.Logger) *Store {
	if mirror == nil {
		mirror = &storage.NoOpProvider{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dataDir: dataDir, mirror: mirror, logger: logger}
}

// Path returns the CSV location for a federation's age table.
func (s *Store) Path(fed scrape.Federation) string {
	return filepath.Join(s.dataDir, fmt.Sprintf("%s_results", fed), "athletes_age.csv")
}

// Load reads the full table into memory. A missing file maps to ErrNotFound.
func (s *Store) Load(_ context.Context, fed scrape.Federation) (*Table, error) {
	path := s.Path(fed)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	table, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return table, nil
}

// Save checkpoints the full table. The write goes to a temp file first and is
// renamed into place so a crash never leaves a truncated table behind. The
// checkpoint is then mirrored to the configured blob provider; mirror
// failures are logged but do not fail the cycle.
func (s *Store) Save(ctx context.Context, fed scrape.Federation, table *Table) error {
	data, err := MarshalCSV(table)
	if err != nil {
		return fmt.Errorf("encode age table: %w", err)
	}

	path := s.Path(fed)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create table dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write checkpoint %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalize checkpoint %s: %w", path, err)
	}

	objectName := filepath.ToSlash(filepath.Join(fmt.Sprintf("%s_results", fed), "athletes_age.csv"))
	if err := s.mirror.Save(ctx, objectName, data); err != nil {
		s.logger.Warn("Checkpoint mirror failed",
			zap.String("federation", string(fed)),
			zap.String("object", objectName),
			zap.Error(err),
		)
	}
	return nil
}
