package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backendFactory struct {
	name string
	open func(t *testing.T) StorageInterface
}

func backends() []backendFactory {
	return []backendFactory{
		{
			name: "csv",
			open: func(t *testing.T) StorageInterface {
				return NewCSVStorage(filepath.Join(t.TempDir(), "movies.csv"))
			},
		},
		{
			name: "json",
			open: func(t *testing.T) StorageInterface {
				s, err := NewJSONStorage(filepath.Join(t.TempDir(), "movies.json"))
				require.NoError(t, err)
				return s
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T) StorageInterface {
				s := NewSQLiteStorage(t.TempDir())
				require.NoError(t, s.Initialize())
				t.Cleanup(func() { s.Close() })
				return s
			},
		},
	}
}

func TestContractEmptyStore(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)

			catalog, err := s.ListMovies()
			require.NoError(t, err)
			assert.Equal(t, 0, catalog.Len())
			assert.Empty(t, catalog.Movies())
		})
	}
}

func TestContractAddRoundTrip(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)

			require.NoError(t, s.AddMovie("Inception", 2010, 8.8, "https://image-url.com/inception.jpg"))

			catalog, err := s.ListMovies()
			require.NoError(t, err)
			m, ok := catalog.Get("Inception")
			require.True(t, ok)
			assert.Equal(t, Movie{Title: "Inception", Year: 2010, Rating: 8.8, Poster: "https://image-url.com/inception.jpg"}, m)
		})
	}
}

func TestContractAddOverwriteKeepsOrder(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)

			require.NoError(t, s.AddMovie("Alien", 1979, 8.5, "a.jpg"))
			require.NoError(t, s.AddMovie("Heat", 1995, 8.3, "h.jpg"))
			require.NoError(t, s.AddMovie("Alien", 1979, 9.0, "a2.jpg"))

			catalog, err := s.ListMovies()
			require.NoError(t, err)
			assert.Equal(t, []string{"Alien", "Heat"}, catalog.Titles())
			m, _ := catalog.Get("Alien")
			assert.Equal(t, 9.0, m.Rating)
			assert.Equal(t, "a2.jpg", m.Poster)
		})
	}
}

func TestContractDeleteIdempotent(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			require.NoError(t, s.AddMovie("Heat", 1995, 8.3, "h.jpg"))

			require.NoError(t, s.DeleteMovie("Missing"))
			once, err := s.ListMovies()
			require.NoError(t, err)

			require.NoError(t, s.DeleteMovie("Missing"))
			twice, err := s.ListMovies()
			require.NoError(t, err)

			assert.Equal(t, once.Movies(), twice.Movies())
			assert.Equal(t, []string{"Heat"}, twice.Titles())

			require.NoError(t, s.DeleteMovie("Heat"))
			after, err := s.ListMovies()
			require.NoError(t, err)
			assert.Equal(t, 0, after.Len())
		})
	}
}

func TestContractUpdateChangesRatingOnly(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			require.NoError(t, s.AddMovie("Inception", 2010, 9.0, "https://image-url.com"))

			require.NoError(t, s.UpdateMovie("Inception", 8.8))
			require.NoError(t, s.UpdateMovie("Missing", 1.0))

			catalog, err := s.ListMovies()
			require.NoError(t, err)
			assert.Equal(t, 1, catalog.Len())
			m, ok := catalog.Get("Inception")
			require.True(t, ok)
			assert.Equal(t, Movie{Title: "Inception", Year: 2010, Rating: 8.8, Poster: "https://image-url.com"}, m)
			assert.False(t, catalog.Has("Missing"))
		})
	}
}

func TestContractPreservesInsertionOrder(t *testing.T) {
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			s := b.open(t)
			titles := []string{"Zodiac", "Amelie", "Memento", "Brazil"}
			for i, title := range titles {
				require.NoError(t, s.AddMovie(title, 2000+i, float64(i), ""))
			}

			catalog, err := s.ListMovies()
			require.NoError(t, err)
			assert.Equal(t, titles, catalog.Titles())
		})
	}
}
