package scheduler

import (
	"context"
	"errors"
	"fmt"

	"cine-shelf/catalog"
	"cine-shelf/notifier"
	"cine-shelf/storage"

	"github.com/rs/zerolog/log"
)

// RefreshJobName is the name the rating refresh job registers under.
const RefreshJobName = "rating_refresh"

// SiteGenerator rebuilds the static site from a store.
type SiteGenerator interface {
	Generate(store storage.StorageInterface, dir string) (string, error)
}

// DigestNotifier sends the catalog summary after a refresh.
type DigestNotifier interface {
	NotifyCatalogDigest(stats catalog.Stats, movies []storage.Movie, changes []notifier.RatingChange) error
}

// RefreshSummary describes one refresh run.
type RefreshSummary struct {
	Checked  int
	Failed   int
	Changes  []notifier.RatingChange
	SitePath string
}

// RatingRefreshJob looks every catalog title up again and stores ratings that
// moved upstream. Afterwards it regenerates the website and mails a digest
// when those are configured.
type RatingRefreshJob struct {
	store    storage.StorageInterface
	service  *catalog.Service
	lookup   catalog.MetadataLookup
	site     SiteGenerator
	siteDir  string
	notifier DigestNotifier
}

// RefreshOption configures a RatingRefreshJob.
type RefreshOption func(*RatingRefreshJob)

// WithWebsite regenerates the site into dir after each run.
func WithWebsite(site SiteGenerator, dir string) RefreshOption {
	return func(j *RatingRefreshJob) {
		j.site = site
		j.siteDir = dir
	}
}

// WithNotifier sends a digest after each run.
func WithNotifier(n DigestNotifier) RefreshOption {
	return func(j *RatingRefreshJob) {
		j.notifier = n
	}
}

// NewRatingRefreshJob creates the job. lookup is required.
func NewRatingRefreshJob(store storage.StorageInterface, lookup catalog.MetadataLookup, opts ...RefreshOption) *RatingRefreshJob {
	j := &RatingRefreshJob{
		store:   store,
		service: catalog.New(store, lookup),
		lookup:  lookup,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Name returns the name of the job
func (j *RatingRefreshJob) Name() string {
	return RefreshJobName
}

// Run executes the job
func (j *RatingRefreshJob) Run(ctx context.Context) error {
	_, err := j.Refresh(ctx)
	return err
}

// Refresh runs the job and reports what it did. A failed lookup for one title
// is logged and skipped; the run only fails when every lookup failed, the
// context ends, or the catalog cannot be read or written.
func (j *RatingRefreshJob) Refresh(ctx context.Context) (RefreshSummary, error) {
	var summary RefreshSummary

	movies, err := j.service.List()
	if err != nil {
		return summary, fmt.Errorf("failed to load catalog: %w", err)
	}
	log.Info().Int("movies", len(movies)).Msg("Refreshing ratings")

	for _, m := range movies {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		summary.Checked++
		fresh, err := j.lookup.Lookup(ctx, m.Title)
		if errors.Is(err, catalog.ErrNoRating) {
			summary.Failed++
			log.Warn().Str("title", m.Title).Msg("No upstream rating, keeping stored rating")
			continue
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return summary, err
			}
			summary.Failed++
			log.Warn().Err(err).Str("title", m.Title).Msg("Rating lookup failed")
			continue
		}
		if fresh.Rating == m.Rating {
			continue
		}

		if err := j.service.Update(m.Title, fresh.Rating); err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				log.Warn().Str("title", m.Title).Msg("Movie removed during refresh")
				continue
			}
			if errors.Is(err, catalog.ErrInvalidRating) {
				summary.Failed++
				log.Warn().Err(err).Str("title", m.Title).Msg("Ignoring invalid upstream rating")
				continue
			}
			return summary, err
		}
		summary.Changes = append(summary.Changes, notifier.RatingChange{
			Title:     m.Title,
			OldRating: m.Rating,
			NewRating: fresh.Rating,
		})
	}

	log.Info().
		Int("checked", summary.Checked).
		Int("failed", summary.Failed).
		Int("changed", len(summary.Changes)).
		Msg("Rating refresh complete")

	if summary.Checked > 0 && summary.Failed == summary.Checked {
		return summary, fmt.Errorf("all %d rating lookups failed", summary.Checked)
	}

	if j.site != nil {
		path, err := j.site.Generate(j.store, j.siteDir)
		if err != nil {
			return summary, fmt.Errorf("failed to regenerate website: %w", err)
		}
		summary.SitePath = path
	}

	if j.notifier != nil {
		j.sendDigest(summary.Changes)
	}

	return summary, nil
}

// sendDigest logs failures instead of returning them.
func (j *RatingRefreshJob) sendDigest(changes []notifier.RatingChange) {
	sorted, err := j.service.SortedByRating()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load catalog for digest")
		return
	}
	stats, err := catalog.ComputeStats(sorted)
	if err != nil {
		log.Info().Msg("Catalog is empty, skipping digest")
		return
	}
	if err := j.notifier.NotifyCatalogDigest(stats, sorted, changes); err != nil {
		log.Error().Err(err).Msg("Failed to send catalog digest")
	}
}
