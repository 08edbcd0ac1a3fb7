package storage

import (
	"fmt"
	"io"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendCSV    = "csv"
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the backend named by backend. For the file backends path is the
// catalog file; for sqlite it is the data directory. The returned closer must
// be closed when the caller is done with the store.
func Open(backend, path string) (StorageInterface, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendCSV:
		return NewCSVStorage(path), nopCloser{}, nil
	case BackendJSON:
		s, err := NewJSONStorage(path)
		if err != nil {
			return nil, nil, err
		}
		return s, nopCloser{}, nil
	case BackendSQLite:
		s := NewSQLiteStorage(path)
		if err := s.Initialize(); err != nil {
			s.Close()
			return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
