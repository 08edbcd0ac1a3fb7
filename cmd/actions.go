package main

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"cine-shelf/catalog"
	"cine-shelf/storage"
)

// formatRating prints whole ratings with one decimal (9.0) and keeps every
// other digit as stored.
func formatRating(r float64) string {
	if r == math.Trunc(r) {
		return strconv.FormatFloat(r, 'f', 1, 64)
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func parseRating(s string) (float64, error) {
	r, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, catalog.ErrInvalidRating
	}
	return r, nil
}

func (a *app) listMovies() error {
	movies, err := a.service.List()
	if err != nil {
		return err
	}
	if len(movies) == 0 {
		a.printf("No movies found\n")
		return nil
	}
	for _, m := range movies {
		a.printf("%s (%d): %s /10\n", m.Title, m.Year, formatRating(m.Rating))
	}
	return nil
}

// addMovie looks title up and stores it. On ErrAlreadyExists the resolved
// record is returned so it can be saved again with overwriteMovie.
func (a *app) addMovie(ctx context.Context, title string, overwrite bool) (storage.Movie, error) {
	if err := a.requireLookup(); err != nil {
		return storage.Movie{}, err
	}
	movie, err := a.service.Add(ctx, title, catalog.AddOptions{Overwrite: overwrite})
	if err != nil {
		return movie, err
	}
	a.printf("Movie '%s' added successfully!\n", movie.Title)
	return movie, nil
}

func (a *app) overwriteMovie(movie storage.Movie) error {
	if _, err := a.service.AddResolved(movie, catalog.AddOptions{Overwrite: true}); err != nil {
		return err
	}
	a.printf("Movie '%s' added successfully!\n", movie.Title)
	return nil
}

func (a *app) deleteMovie(title string) error {
	if err := a.service.Delete(title); err != nil {
		return err
	}
	a.printf("Movie '%s' deleted successfully!\n", title)
	return nil
}

func (a *app) updateMovie(title string, rating float64) error {
	if err := a.service.Update(title, rating); err != nil {
		return err
	}
	a.printf("Movie '%s' updated successfully!\n", title)
	return nil
}

func (a *app) showStats() error {
	stats, err := a.service.Stats()
	if errors.Is(err, catalog.ErrEmptyCatalog) {
		a.printf("No movies found.\n")
		return nil
	}
	if err != nil {
		return err
	}
	a.printf("Total movies: %d\n", stats.Count)
	a.printf("Average rating: %.2f\n", stats.Mean)
	a.printf("Median rating: %.2f\n", stats.Median)
	a.printf("Highest rated: %s (Rating: %s)\n", strings.Join(stats.Highest.Titles, ", "), formatRating(stats.Highest.Rating))
	a.printf("Lowest rated: %s (Rating: %s)\n", strings.Join(stats.Lowest.Titles, ", "), formatRating(stats.Lowest.Rating))
	return nil
}

func (a *app) randomMovie() error {
	m, err := a.service.Random()
	if errors.Is(err, catalog.ErrEmptyCatalog) {
		a.printf("No movies found.\n")
		return nil
	}
	if err != nil {
		return err
	}
	a.printf("Random Movie: %s (%d)\n", m.Title, m.Year)
	a.printMovieDetails(m)
	return nil
}

func (a *app) searchMovies(query string) error {
	matches, err := a.service.Search(query)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		a.printf("No movies matching '%s' found.\n", query)
		suggestions, err := a.service.Suggest(query)
		if err != nil {
			return err
		}
		if len(suggestions) > 0 {
			a.printf("Did you mean: %s?\n", strings.Join(suggestions, ", "))
		}
		return nil
	}
	for _, m := range matches {
		a.printf("Movie Found: %s (%d)\n", m.Title, m.Year)
		a.printMovieDetails(m)
	}
	return nil
}

func (a *app) sortedMovies() error {
	movies, err := a.service.SortedByRating()
	if err != nil {
		return err
	}
	if len(movies) == 0 {
		a.printf("No movies found.\n")
		return nil
	}
	a.printf("Movies Sorted by Rating:\n")
	for _, m := range movies {
		a.printf("%s (%d): Rating %s\n", m.Title, m.Year, formatRating(m.Rating))
	}
	return nil
}

func (a *app) generateWebsite() error {
	gen, err := a.generator()
	if err != nil {
		return err
	}
	path, err := gen.Generate(a.store, a.cfg.Website.Dir)
	if err != nil {
		return err
	}
	a.printf("Website was generated successfully: %s\n", path)
	return nil
}

func (a *app) refreshRatings(ctx context.Context) error {
	job, err := a.refreshJob()
	if err != nil {
		return err
	}
	summary, err := job.Refresh(ctx)
	if err != nil {
		return err
	}
	a.printf("Checked %d movies, %d lookups failed, %d ratings changed.\n", summary.Checked, summary.Failed, len(summary.Changes))
	for _, c := range summary.Changes {
		a.printf("%s: %s -> %s\n", c.Title, formatRating(c.OldRating), formatRating(c.NewRating))
	}
	return nil
}

func (a *app) printMovieDetails(m storage.Movie) {
	a.printf("Rating: %s\n", formatRating(m.Rating))
	a.printf("Poster: %s\n", m.Poster)
}
