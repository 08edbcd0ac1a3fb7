package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// codec is the file-format half of a flat-file backend. decode and encode
// only deal with bytes; reading, writing and the mutation cycle live here so
// every file backend behaves the same way.
type codec interface {
	decode(path string, r io.Reader) (*Catalog, error)
	encode(w io.Writer, c *Catalog) error
}

// load reads the whole catalog from path. A missing file is an empty catalog.
func load(path string, cd codec) (*Catalog, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewCatalog(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return cd.decode(path, f)
}

// persist rewrites the whole catalog to path. The data goes to a temp file in
// the same directory which is then renamed over path, so a failed write never
// leaves a truncated catalog behind.
func persist(path string, cd codec, c *Catalog) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := cd.encode(tmp, c); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, fileMode(path)); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// fileMode keeps the permissions of an existing file; new files get 0644.
func fileMode(path string) os.FileMode {
	if info, err := os.Stat(path); err == nil {
		return info.Mode().Perm()
	}
	return 0o644
}

// mutate runs one load, mutate, persist cycle. fn reports whether it changed
// the catalog; nothing is written when it did not.
func mutate(path string, cd codec, fn func(c *Catalog) bool) error {
	c, err := load(path, cd)
	if err != nil {
		return err
	}
	if !fn(c) {
		return nil
	}
	return persist(path, cd, c)
}

// fileStore implements StorageInterface on top of a codec. CSVStorage and
// JSONStorage embed it and only contribute their codec.
type fileStore struct {
	path  string
	codec codec
}

func (s *fileStore) ListMovies() (*Catalog, error) {
	return load(s.path, s.codec)
}

func (s *fileStore) AddMovie(title string, year int, rating float64, poster string) error {
	return mutate(s.path, s.codec, func(c *Catalog) bool {
		c.Set(Movie{Title: title, Year: year, Rating: rating, Poster: poster})
		return true
	})
}

func (s *fileStore) DeleteMovie(title string) error {
	return mutate(s.path, s.codec, func(c *Catalog) bool {
		return c.Delete(title)
	})
}

func (s *fileStore) UpdateMovie(title string, rating float64) error {
	return mutate(s.path, s.codec, func(c *Catalog) bool {
		m, ok := c.Get(title)
		if !ok {
			return false
		}
		m.Rating = rating
		c.Set(m)
		return true
	})
}

// Path returns the backing file.
func (s *fileStore) Path() string {
	return s.path
}
