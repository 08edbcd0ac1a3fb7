package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVMissingFileIsEmpty(t *testing.T) {
	s := NewCSVStorage(filepath.Join(t.TempDir(), "nope.csv"))

	catalog, err := s.ListMovies()
	require.NoError(t, err)
	assert.Equal(t, 0, catalog.Len())

	_, statErr := os.Stat(s.Path())
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "listing must not create the file")
}

func TestCSVEmptyFileIsEmpty(t *testing.T) {
	s := NewCSVStorage(writeFile(t, "movies.csv", ""))

	catalog, err := s.ListMovies()
	require.NoError(t, err)
	assert.Equal(t, 0, catalog.Len())
}

func TestCSVFileLayout(t *testing.T) {
	s := NewCSVStorage(filepath.Join(t.TempDir(), "movies.csv"))
	require.NoError(t, s.AddMovie("Lock, Stock and Two Smoking Barrels", 1998, 8.2, "http://x/lock.jpg"))
	require.NoError(t, s.AddMovie("Heat", 1995, 8, "N/A"))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t,
		"title,rating,year,poster\n"+
			"\"Lock, Stock and Two Smoking Barrels\",8.2,1998,http://x/lock.jpg\n"+
			"Heat,8,1995,N/A\n",
		string(data))
}

func TestCSVReadsPythonStyleFloats(t *testing.T) {
	s := NewCSVStorage(writeFile(t, "movies.csv",
		"title,rating,year,poster\nInception,9.0,2010,https://image-url.com\n"))

	catalog, err := s.ListMovies()
	require.NoError(t, err)
	m, ok := catalog.Get("Inception")
	require.True(t, ok)
	assert.Equal(t, 9.0, m.Rating)
	assert.Equal(t, 2010, m.Year)
}

func TestCSVHeaderColumnsAnyOrder(t *testing.T) {
	s := NewCSVStorage(writeFile(t, "movies.csv",
		"poster,year,title,rating\np.jpg,1999,The Matrix,8.7\n"))

	catalog, err := s.ListMovies()
	require.NoError(t, err)
	m, _ := catalog.Get("The Matrix")
	assert.Equal(t, Movie{Title: "The Matrix", Year: 1999, Rating: 8.7, Poster: "p.jpg"}, m)
}

func TestCSVMalformedRowsFailLoudly(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		field    string
		line     int
		numErr   bool
		rangeErr bool
	}{
		{
			name:    "non-numeric rating",
			content: "title,rating,year,poster\nHeat,8.3,1995,h.jpg\nAlien,great,1979,a.jpg\n",
			field:   "rating",
			line:    3,
			numErr:  true,
		},
		{
			name:    "non-numeric year",
			content: "title,rating,year,poster\nAlien,8.5,nineteen,a.jpg\n",
			field:   "year",
			line:    2,
			numErr:  true,
		},
		{
			name:     "NaN rating",
			content:  "title,rating,year,poster\nA,NaN,2000,a.jpg\n",
			field:    "rating",
			line:     2,
			rangeErr: true,
		},
		{
			name:     "negative infinity rating",
			content:  "title,rating,year,poster\nHeat,8.3,1995,h.jpg\nC,-Inf,2000,c.jpg\n",
			field:    "rating",
			line:     3,
			rangeErr: true,
		},
		{
			name:     "rating above ten",
			content:  "title,rating,year,poster\nB,42,2000,b.jpg\n",
			field:    "rating",
			line:     2,
			rangeErr: true,
		},
		{
			name:     "negative rating",
			content:  "title,rating,year,poster\nB,-0.5,2000,b.jpg\n",
			field:    "rating",
			line:     2,
			rangeErr: true,
		},
		{
			name:    "missing column",
			content: "title,rating,poster\nAlien,8.5,a.jpg\n",
			field:   "year",
			line:    1,
		},
		{
			name:    "wrong field count",
			content: "title,rating,year,poster\nAlien,8.5,1979\n",
			line:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewCSVStorage(writeFile(t, "movies.csv", tt.content))

			catalog, err := s.ListMovies()
			require.Error(t, err)
			assert.Nil(t, catalog)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.field, pe.Field)
			assert.Equal(t, tt.line, pe.Line)

			if tt.numErr {
				var numErr *strconv.NumError
				assert.ErrorAs(t, err, &numErr)
			}
			if tt.rangeErr {
				assert.ErrorIs(t, err, errRatingRange)
			}
		})
	}
}

func TestCSVMutationOnMalformedFileLeavesItUntouched(t *testing.T) {
	content := "title,rating,year,poster\nAlien,great,1979,a.jpg\n"
	path := writeFile(t, "movies.csv", content)
	s := NewCSVStorage(path)

	err := s.AddMovie("Heat", 1995, 8.3, "h.jpg")
	require.Error(t, err)

	data, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, content, string(data))
}

func TestCSVDeleteAbsentDoesNotCreateFile(t *testing.T) {
	s := NewCSVStorage(filepath.Join(t.TempDir(), "movies.csv"))

	require.NoError(t, s.DeleteMovie("Nothing"))
	require.NoError(t, s.UpdateMovie("Nothing", 5))

	_, err := os.Stat(s.Path())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCSVWriteFailureKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "movies.csv")
	s := NewCSVStorage(path)
	require.NoError(t, s.AddMovie("Heat", 1995, 8.3, "h.jpg"))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	err = s.AddMovie("Alien", 1979, 8.5, "a.jpg")
	require.Error(t, err)

	after, readErr := os.ReadFile(path)
	require.NoError(t, readErr)
	assert.Equal(t, before, after)
}

func TestWritesKeepExistingPermissions(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "movies.csv")
	jsonPath := filepath.Join(dir, "movies.json")
	require.NoError(t, os.WriteFile(csvPath, []byte("title,rating,year,poster\n"), 0o600))
	require.NoError(t, os.WriteFile(jsonPath, []byte("{}"), 0o640))
	require.NoError(t, os.Chmod(csvPath, 0o600))
	require.NoError(t, os.Chmod(jsonPath, 0o640))

	jsonStore, err := NewJSONStorage(jsonPath)
	require.NoError(t, err)
	require.NoError(t, NewCSVStorage(csvPath).AddMovie("Heat", 1995, 8.3, ""))
	require.NoError(t, jsonStore.AddMovie("Heat", 1995, 8.3, ""))

	for path, want := range map[string]os.FileMode{csvPath: 0o600, jsonPath: 0o640} {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, want, info.Mode().Perm(), path)
	}

	fresh := filepath.Join(dir, "new.csv")
	require.NoError(t, NewCSVStorage(fresh).AddMovie("Heat", 1995, 8.3, ""))
	info, err := os.Stat(fresh)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}
