// Package catalog implements the movie commands on top of
// storage.StorageInterface. Nothing here knows which backend it talks to.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"cine-shelf/storage"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
)

// MinRating and MaxRating bound a valid rating.
const (
	MinRating = storage.MinRating
	MaxRating = storage.MaxRating
)

var (
	ErrNotFound      = errors.New("movie not found")
	ErrAlreadyExists = errors.New("movie already in catalog")
	ErrEmptyCatalog  = errors.New("no movies found")
	ErrInvalidRating = errors.New("rating must be between 0 and 10")
	// ErrNoRating is wrapped by a MetadataLookup that found the title but has
	// no rating for it. The returned record is otherwise complete.
	ErrNoRating = errors.New("no rating available")
)

// NotFoundError carries the missing title and close matches from the catalog.
// It matches ErrNotFound with errors.Is.
type NotFoundError struct {
	Title       string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("movie %q not found", e.Title)
	}
	return fmt.Sprintf("movie %q not found (did you mean %s?)", e.Title, strings.Join(quoteAll(e.Suggestions), ", "))
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// MetadataLookup resolves a title into a full record. Implementations return
// an error wrapping their own not-found sentinel when the title is unknown.
type MetadataLookup interface {
	Lookup(ctx context.Context, title string) (storage.Movie, error)
}

// Service runs the catalog commands against a store.
type Service struct {
	store  storage.StorageInterface
	lookup MetadataLookup
	intn   func(n int) int
}

// Option configures a Service.
type Option func(*Service)

// WithRand makes Random draw from r instead of the global source.
func WithRand(r *rand.Rand) Option {
	return func(s *Service) {
		s.intn = r.IntN
	}
}

// New returns a Service. lookup may be nil when the caller never adds by title.
func New(store storage.StorageInterface, lookup MetadataLookup, opts ...Option) *Service {
	s := &Service{
		store:  store,
		lookup: lookup,
		intn:   rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddOptions tunes Add and AddResolved.
type AddOptions struct {
	// Overwrite replaces an existing record with the same title.
	Overwrite bool
}

// List returns every movie in catalog order.
func (s *Service) List() ([]storage.Movie, error) {
	catalog, err := s.store.ListMovies()
	if err != nil {
		return nil, err
	}
	return catalog.Movies(), nil
}

// Add resolves title through the metadata lookup and stores the result. A
// failed lookup leaves the catalog untouched.
func (s *Service) Add(ctx context.Context, title string, opts AddOptions) (storage.Movie, error) {
	if s.lookup == nil {
		return storage.Movie{}, errors.New("no metadata lookup configured")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return storage.Movie{}, errors.New("title must not be empty")
	}

	movie, err := s.lookup.Lookup(ctx, title)
	if errors.Is(err, ErrNoRating) {
		log.Info().Str("title", movie.Title).Msg("No upstream rating, storing 0")
		movie.Rating = MinRating
		err = nil
	}
	if err != nil {
		log.Warn().Err(err).Str("title", title).Msg("Metadata lookup failed")
		return storage.Movie{}, fmt.Errorf("lookup %q: %w", title, err)
	}

	return s.AddResolved(movie, opts)
}

// AddResolved stores an already resolved record. On ErrAlreadyExists the
// record is still returned so the caller can retry with Overwrite.
func (s *Service) AddResolved(movie storage.Movie, opts AddOptions) (storage.Movie, error) {
	if movie.Title == "" {
		return storage.Movie{}, errors.New("title must not be empty")
	}
	if err := validateRating(movie.Rating); err != nil {
		return storage.Movie{}, err
	}

	if !opts.Overwrite {
		catalog, err := s.store.ListMovies()
		if err != nil {
			return storage.Movie{}, err
		}
		if catalog.Has(movie.Title) {
			return movie, fmt.Errorf("%w: %q", ErrAlreadyExists, movie.Title)
		}
	}

	if err := s.store.AddMovie(movie.Title, movie.Year, movie.Rating, movie.Poster); err != nil {
		return storage.Movie{}, fmt.Errorf("failed to add %q: %w", movie.Title, err)
	}
	log.Info().Str("title", movie.Title).Int("year", movie.Year).Float64("rating", movie.Rating).Msg("Movie added")
	return movie, nil
}

// Delete removes title. Unknown titles return a *NotFoundError and change nothing.
func (s *Service) Delete(title string) error {
	catalog, err := s.store.ListMovies()
	if err != nil {
		return err
	}
	if !catalog.Has(title) {
		return s.notFound(catalog, title)
	}

	if err := s.store.DeleteMovie(title); err != nil {
		return fmt.Errorf("failed to delete %q: %w", title, err)
	}
	log.Info().Str("title", title).Msg("Movie deleted")
	return nil
}

// Update sets a new rating for title.
func (s *Service) Update(title string, rating float64) error {
	if err := validateRating(rating); err != nil {
		return err
	}

	catalog, err := s.store.ListMovies()
	if err != nil {
		return err
	}
	if !catalog.Has(title) {
		return s.notFound(catalog, title)
	}

	if err := s.store.UpdateMovie(title, rating); err != nil {
		return fmt.Errorf("failed to update %q: %w", title, err)
	}
	log.Info().Str("title", title).Float64("rating", rating).Msg("Movie rating updated")
	return nil
}

// Get returns the record for an exact title.
func (s *Service) Get(title string) (storage.Movie, error) {
	catalog, err := s.store.ListMovies()
	if err != nil {
		return storage.Movie{}, err
	}
	m, ok := catalog.Get(title)
	if !ok {
		return storage.Movie{}, s.notFound(catalog, title)
	}
	return m, nil
}

// Random picks one movie uniformly.
func (s *Service) Random() (storage.Movie, error) {
	catalog, err := s.store.ListMovies()
	if err != nil {
		return storage.Movie{}, err
	}
	if catalog.Len() == 0 {
		return storage.Movie{}, ErrEmptyCatalog
	}

	titles := catalog.Titles()
	m, _ := catalog.Get(titles[s.intn(len(titles))])
	return m, nil
}

// Search returns every movie whose title contains query, ignoring case.
func (s *Service) Search(query string) ([]storage.Movie, error) {
	catalog, err := s.store.ListMovies()
	if err != nil {
		return nil, err
	}

	folder := cases.Fold()
	needle := folder.String(query)

	var matches []storage.Movie
	for _, m := range catalog.Movies() {
		if strings.Contains(folder.String(m.Title), needle) {
			matches = append(matches, m)
		}
	}
	return matches, nil
}

// Suggest returns catalog titles that look like title.
func (s *Service) Suggest(title string) ([]string, error) {
	catalog, err := s.store.ListMovies()
	if err != nil {
		return nil, err
	}
	return suggest(title, catalog.Titles()), nil
}

func (s *Service) notFound(catalog *storage.Catalog, title string) error {
	return &NotFoundError{Title: title, Suggestions: suggest(title, catalog.Titles())}
}

func validateRating(rating float64) error {
	if math.IsNaN(rating) || rating < MinRating || rating > MaxRating {
		return fmt.Errorf("%w: got %v", ErrInvalidRating, rating)
	}
	return nil
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
