package media

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// archiveStamp is the timestamp layout archived artifacts carry.
const archiveStamp = "200601021504"

// Saved holds the two paths every artifact is written under: a timestamped
// archive copy and a fixed "current" name dashboards point at.
type Saved struct {
	Archive string
	Current string
}

// Store writes run artifacts under the output directory using the add-on's
// naming scheme: <stamp>-<prefix>.<ext> plus <prefix>.<ext>.
type Store struct {
	dir    string
	prefix string
	logger Logger
}

// NewStore constructs a Store.
//
// Parameters:
//   - dir: Output directory, created on first save
//   - prefix: Artifact base name, e.g. hud_display
//   - logger: Destination for diagnostics; nil for none
func NewStore(dir, prefix string, logger Logger) *Store {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Store{dir: dir, prefix: prefix, logger: logger}
}

// Paths returns the archive and current paths for an artifact extension.
//
// Parameters:
//   - ts: Run timestamp for the archive name
//   - ext: Extension including the dot, e.g. ".png"
func (s *Store) Paths(ts time.Time, ext string) Saved {
	return Saved{
		Archive: filepath.Join(s.dir, ts.Format(archiveStamp)+"-"+s.prefix+ext),
		Current: filepath.Join(s.dir, s.prefix+ext),
	}
}

// SaveImage writes image bytes to both the archive and current paths.
//
// Parameters:
//   - data: Image bytes
//   - ts: Run timestamp for the archive name
//   - ext: Extension including the dot
//
// Returns:
//   - Saved: The two written paths
//   - error: ErrEmptyImage or a filesystem failure
func (s *Store) SaveImage(data []byte, ts time.Time, ext string) (Saved, error) {
	if len(data) == 0 {
		return Saved{}, ErrEmptyImage
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Saved{}, fmt.Errorf("creating output directory: %w", err)
	}

	paths := s.Paths(ts, ext)
	for _, path := range []string{paths.Archive, paths.Current} {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return Saved{}, fmt.Errorf("writing %s: %w", path, err)
		}
	}

	s.logger.Debug("saved image", "archive", paths.Archive, "current", paths.Current, "bytes", len(data))
	return paths, nil
}

// Copy duplicates one artifact onto another path. Used to promote outputs
// written by external tools onto their current name, and to overwrite the
// archive copy when the original is not kept.
//
// Parameters:
//   - src: Existing artifact path
//   - dst: Destination path, overwritten if present
//
// Returns:
//   - error: Filesystem failure
func (s *Store) Copy(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	return nil
}
