package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cine-shelf/catalog"
	"cine-shelf/omdb"
	"cine-shelf/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLookup map[string]storage.Movie

func (f fakeLookup) Lookup(ctx context.Context, title string) (storage.Movie, error) {
	m, ok := f[strings.ToLower(title)]
	if !ok {
		return storage.Movie{}, omdb.ErrNotFound
	}
	return m, nil
}

var testLookup = fakeLookup{
	"inception": {Title: "Inception", Year: 2010, Rating: 8.8, Poster: "inception.jpg"},
	"heat":      {Title: "Heat", Year: 1995, Rating: 8.3, Poster: "heat.jpg"},
}

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"OMDB_API_KEY", "API_KEY", "CINESHELF_OMDB_API_KEY", "STORAGE_BACKEND", "CINESHELF_STORAGE_BACKEND"} {
		t.Setenv(name, "")
	}
	t.Setenv("CINESHELF_WEBSITE_DIR", filepath.Join(t.TempDir(), "site"))
}

func seedCSV(t *testing.T, movies ...storage.Movie) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "movies.csv")
	store := storage.NewCSVStorage(path)
	for _, m := range movies {
		require.NoError(t, store.AddMovie(m.Title, m.Year, m.Rating, m.Poster))
	}
	return path
}

// run executes the CLI against the csv catalog at path.
func run(t *testing.T, path, stdin string, lookup catalog.MetadataLookup, args ...string) (string, error) {
	t.Helper()
	isolateEnv(t)

	var out bytes.Buffer
	root := newRootCmd(options{
		in:     strings.NewReader(stdin),
		out:    &out,
		errOut: io.Discard,
		lookup: lookup,
		rand:   rand.New(rand.NewPCG(1, 2)),
	})
	root.SetArgs(append([]string{"--backend", "csv", "--file", path}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestListEmpty(t *testing.T) {
	out, err := run(t, filepath.Join(t.TempDir(), "missing.csv"), "", nil, "list")
	require.NoError(t, err)
	assert.Equal(t, "No movies found\n", out)
}

func TestAddThenList(t *testing.T) {
	path := seedCSV(t)

	out, err := run(t, path, "", testLookup, "add", "inception")
	require.NoError(t, err)
	assert.Equal(t, "Movie 'Inception' added successfully!\n", out)

	out, err = run(t, path, "", testLookup, "list")
	require.NoError(t, err)
	assert.Equal(t, "Inception (2010): 8.8 /10\n", out)
}

func TestAddDuplicateNeedsOverwrite(t *testing.T) {
	path := seedCSV(t, storage.Movie{Title: "Heat", Year: 1995, Rating: 2, Poster: "old.jpg"})

	_, err := run(t, path, "", testLookup, "add", "Heat")
	assert.ErrorIs(t, err, catalog.ErrAlreadyExists)

	_, err = run(t, path, "", testLookup, "add", "--overwrite", "Heat")
	require.NoError(t, err)

	out, err := run(t, path, "", testLookup, "list")
	require.NoError(t, err)
	assert.Equal(t, "Heat (1995): 8.3 /10\n", out)
}

func TestAddUnknownTitleLeavesCatalogAlone(t *testing.T) {
	path := seedCSV(t)

	_, err := run(t, path, "", testLookup, "add", "Nope")
	assert.ErrorIs(t, err, omdb.ErrNotFound)

	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestAddWithoutAPIKey(t *testing.T) {
	_, err := run(t, seedCSV(t), "", nil, "add", "Heat")
	assert.ErrorIs(t, err, omdb.ErrMissingAPIKey)
}

func TestDeleteAndUpdate(t *testing.T) {
	path := seedCSV(t,
		storage.Movie{Title: "Inception", Year: 2010, Rating: 8.8, Poster: "i.jpg"},
		storage.Movie{Title: "The Matrix", Year: 1999, Rating: 8.7, Poster: "m.jpg"},
	)

	_, err := run(t, path, "", nil, "delete", "Incpetion")
	var notFound *catalog.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, []string{"Inception"}, notFound.Suggestions)

	out, err := run(t, path, "", nil, "update", "The", "Matrix", "9.5")
	require.NoError(t, err)
	assert.Equal(t, "Movie 'The Matrix' updated successfully!\n", out)

	_, err = run(t, path, "", nil, "update", "The Matrix", "eleven")
	assert.ErrorIs(t, err, catalog.ErrInvalidRating)

	out, err = run(t, path, "", nil, "delete", "Inception")
	require.NoError(t, err)
	assert.Equal(t, "Movie 'Inception' deleted successfully!\n", out)

	out, err = run(t, path, "", nil, "list")
	require.NoError(t, err)
	assert.Equal(t, "The Matrix (1999): 9.5 /10\n", out)
}

func TestStatsSearchSorted(t *testing.T) {
	path := seedCSV(t,
		storage.Movie{Title: "A", Year: 2001, Rating: 9},
		storage.Movie{Title: "B", Year: 2002, Rating: 9},
		storage.Movie{Title: "C", Year: 2003, Rating: 5},
	)

	out, err := run(t, path, "", nil, "stats")
	require.NoError(t, err)
	assert.Equal(t, "Total movies: 3\n"+
		"Average rating: 7.67\n"+
		"Median rating: 9.00\n"+
		"Highest rated: A, B (Rating: 9.0)\n"+
		"Lowest rated: C (Rating: 5.0)\n", out)

	out, err = run(t, path, "", nil, "sorted")
	require.NoError(t, err)
	assert.Equal(t, "Movies Sorted by Rating:\nA (2001): Rating 9.0\nB (2002): Rating 9.0\nC (2003): Rating 5.0\n", out)

	out, err = run(t, path, "", nil, "search", "c")
	require.NoError(t, err)
	assert.Equal(t, "Movie Found: C (2003)\nRating: 5.0\nPoster: \n", out)

	out, err = run(t, path, "", nil, "search", "zzz")
	require.NoError(t, err)
	assert.Equal(t, "No movies matching 'zzz' found.\n", out)

	out, err = run(t, seedCSV(t, storage.Movie{Title: "Inception", Year: 2010, Rating: 8.8}), "", nil, "search", "Incpetion")
	require.NoError(t, err)
	assert.Equal(t, "No movies matching 'Incpetion' found.\nDid you mean: Inception?\n", out)

	out, err = run(t, path, "", nil, "random")
	require.NoError(t, err)
	assert.Regexp(t, `^Random Movie: [ABC] \(200[123]\)\n`, out)
}

func TestEmptyCatalogCommands(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movies.csv")
	for _, cmd := range []string{"stats", "random", "sorted"} {
		out, err := run(t, path, "", nil, cmd)
		require.NoError(t, err, cmd)
		assert.Equal(t, "No movies found.\n", out, cmd)
	}
}

func TestJSONBackend(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "movies.json")

	var out bytes.Buffer
	root := newRootCmd(options{in: strings.NewReader(""), out: &out, errOut: io.Discard, lookup: testLookup})
	root.SetArgs([]string{"--backend", "json", "--file", path, "add", "Heat"})
	require.NoError(t, root.Execute())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Heat": {`)
}

func TestUnknownBackend(t *testing.T) {
	_, err := run(t, seedCSV(t), "", nil, "--backend", "xml", "list")
	assert.Error(t, err)
}

func TestMenuSession(t *testing.T) {
	path := seedCSV(t, storage.Movie{Title: "Inception", Year: 2010, Rating: 8.8, Poster: "i.jpg"})

	input := strings.Join([]string{
		"2", "heat", // add
		"2", "heat", "n", // duplicate, declined
		"3", "Incepton", // delete typo
		"4", "Heat", "9.1", // update
		"4", "Heat", "abc", // bad rating
		"1",  // list
		"42", // invalid
		"0",
	}, "\n") + "\n"

	out, err := run(t, path, input, testLookup)
	require.NoError(t, err)

	assert.Contains(t, out, "Movie 'Heat' added successfully!")
	assert.Contains(t, out, "Movie not added.")
	assert.Contains(t, out, "Movie 'Incepton' not found. Did you mean: Inception?")
	assert.Contains(t, out, "Movie 'Heat' updated successfully!")
	assert.Contains(t, out, "Error: rating must be between 0 and 10")
	assert.Contains(t, out, "Inception (2010): 8.8 /10\nHeat (1995): 9.1 /10\n")
	assert.Contains(t, out, "Invalid choice. Please try again.")
	assert.True(t, strings.HasSuffix(out, "Bye!\n"))
}

func TestMenuGeneratesWebsite(t *testing.T) {
	path := seedCSV(t, storage.Movie{Title: "Heat", Year: 1995, Rating: 8.3, Poster: "heat.jpg"})

	out, err := run(t, path, "9\n0\n", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Website was generated successfully")

	page, err := os.ReadFile(filepath.Join(os.Getenv("CINESHELF_WEBSITE_DIR"), "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "Heat")
}

func TestMenuStopsAtEndOfInput(t *testing.T) {
	out, err := run(t, seedCSV(t), "1\n", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "No movies found")
	assert.NotContains(t, out, "Bye!")
}

func TestMenuReportsDamagedCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movies.csv")
	require.NoError(t, os.WriteFile(path, []byte("title,rating,year,poster\nHeat,high,1995,x\n"), 0o644))

	out, err := run(t, path, "1\n0\n", nil)
	require.NoError(t, err)
	assert.Contains(t, out, "Catalog file is damaged")
}

func TestFormatRating(t *testing.T) {
	assert.Equal(t, "9.0", formatRating(9))
	assert.Equal(t, "8.75", formatRating(8.75))
	assert.Equal(t, "0.0", formatRating(0))
}

type countingLookup struct {
	catalog.MetadataLookup
	calls int
}

func (c *countingLookup) Lookup(ctx context.Context, title string) (storage.Movie, error) {
	c.calls++
	return c.MetadataLookup.Lookup(ctx, title)
}

func TestMenuOverwriteReusesResolvedMovie(t *testing.T) {
	path := seedCSV(t, storage.Movie{Title: "Heat", Year: 1995, Rating: 2, Poster: "old.jpg"})
	lookup := &countingLookup{MetadataLookup: testLookup}

	out, err := run(t, path, "2\nheat\ny\n1\n0\n", lookup)
	require.NoError(t, err)

	assert.Equal(t, 1, lookup.calls)
	assert.Contains(t, out, "Movie 'Heat' added successfully!")
	assert.Contains(t, out, "Heat (1995): 8.3 /10\n")
}
