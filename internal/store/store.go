package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no output file exists under the name
	ErrNotFound = errors.New("file not found")
	// ErrExists is returned when publishing would overwrite an output
	ErrExists = errors.New("output file already exists")
)

// Store owns the directory of completed merge outputs. Files are published
// exactly once under a generated name and removed by the age sweep, never
// while a download is streaming them.
type Store struct {
	dir string

	mu    sync.Mutex
	inUse map[string]int
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}
	return &Store{
		dir:   dir,
		inUse: make(map[string]int),
	}, nil
}

// Dir returns the store's directory
func (s *Store) Dir() string {
	return s.dir
}

// Publish moves src into the store under name. The name must be unused;
// colliding with an existing output is an error, not an overwrite. The
// link-then-remove dance keeps the uniqueness check atomic, since os.Rename
// would silently replace an existing destination.
func (s *Store) Publish(src, name string) error {
	if err := validName(name); err != nil {
		return err
	}

	dest := filepath.Join(s.dir, name)
	err := os.Link(src, dest)
	if err == nil {
		os.Remove(src)
		return nil
	}
	if errors.Is(err, os.ErrExist) {
		return ErrExists
	}

	// Link fails across filesystems; fall back to an exclusive copy.
	if err := copyFile(src, dest); err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrExists
		}
		return fmt.Errorf("failed to publish output: %w", err)
	}
	os.Remove(src)
	return nil
}

// Acquire resolves name to an on-disk path and pins the file against the
// sweep until Release is called.
func (s *Store) Acquire(name string) (string, error) {
	if err := validName(name); err != nil {
		return "", ErrNotFound
	}

	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", ErrNotFound
	}

	s.mu.Lock()
	s.inUse[name]++
	s.mu.Unlock()

	return path, nil
}

// Release unpins a file acquired for download
func (s *Store) Release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inUse[name] <= 1 {
		delete(s.inUse, name)
		return
	}
	s.inUse[name]--
}

// Sweep deletes outputs whose modification time is older than maxAge,
// skipping any file pinned by an in-flight download. Returns the number
// of files removed.
func (s *Store) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read output dir: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		s.mu.Lock()
		pinned := s.inUse[entry.Name()] > 0
		s.mu.Unlock()
		if pinned {
			continue
		}

		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err == nil {
			removed++
		}
	}

	return removed, nil
}

// validName rejects anything that could escape the store directory
func validName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid output name %q", name)
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}
