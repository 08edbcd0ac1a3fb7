package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"

	"cine-shelf/catalog"
	"cine-shelf/config"
	"cine-shelf/logging"
	"cine-shelf/notifier"
	"cine-shelf/omdb"
	"cine-shelf/scheduler"
	"cine-shelf/storage"
	"cine-shelf/website"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// options carries what main injects; tests swap in their own streams and a
// fake lookup.
type options struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	lookup catalog.MetadataLookup
	rand   *rand.Rand
}

type flags struct {
	configFile string
	backend    string
	file       string
}

// app is everything a command needs once configuration has been resolved.
type app struct {
	opts    options
	cfg     *config.Config
	store   storage.StorageInterface
	closer  io.Closer
	lookup  catalog.MetadataLookup
	service *catalog.Service
}

func newApp(opts options, f flags) (*app, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, err
	}
	if f.backend != "" {
		cfg.Storage.Backend = f.backend
	}
	if f.file != "" {
		cfg.Storage.File = f.file
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: opts.errOut})

	lookup := opts.lookup
	if lookup == nil && cfg.OMDb.APIKey != "" {
		client, err := omdb.New(omdb.Config{
			APIKey:            cfg.OMDb.APIKey,
			BaseURL:           cfg.OMDb.BaseURL,
			Timeout:           cfg.OMDb.Timeout,
			RequestsPerSecond: cfg.OMDb.RequestsPerSecond,
		})
		if err != nil {
			return nil, err
		}
		lookup = client
	}

	store, closer, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path())
	if err != nil {
		return nil, err
	}
	log.Debug().Str("backend", cfg.Storage.Backend).Str("path", cfg.Storage.Path()).Msg("Storage opened")

	var serviceOpts []catalog.Option
	if opts.rand != nil {
		serviceOpts = append(serviceOpts, catalog.WithRand(opts.rand))
	}

	return &app{
		opts:    opts,
		cfg:     cfg,
		store:   store,
		closer:  closer,
		lookup:  lookup,
		service: catalog.New(store, lookup, serviceOpts...),
	}, nil
}

func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

func (a *app) printf(format string, args ...interface{}) {
	fmt.Fprintf(a.opts.out, format, args...)
}

func (a *app) requireLookup() error {
	if a.lookup == nil {
		return fmt.Errorf("%w: set OMDB_API_KEY or omdb.api_key", omdb.ErrMissingAPIKey)
	}
	return nil
}

func (a *app) generator() (*website.Generator, error) {
	return website.NewGenerator(a.cfg.Website.Title)
}

func (a *app) refreshJob() (*scheduler.RatingRefreshJob, error) {
	if err := a.requireLookup(); err != nil {
		return nil, err
	}
	gen, err := a.generator()
	if err != nil {
		return nil, err
	}
	jobOpts := []scheduler.RefreshOption{scheduler.WithWebsite(gen, a.cfg.Website.Dir)}

	email := notifier.EmailConfig{
		SMTPHost:       a.cfg.Email.SMTPHost,
		SMTPPort:       a.cfg.Email.SMTPPort,
		SenderEmail:    a.cfg.Email.SenderEmail,
		SenderPassword: a.cfg.Email.SenderPassword,
		RecipientEmail: a.cfg.Email.RecipientEmail,
	}
	if email.Enabled() {
		n, err := notifier.NewEmailNotifier(email)
		if err != nil {
			return nil, err
		}
		jobOpts = append(jobOpts, scheduler.WithNotifier(n))
		log.Info().Str("recipient", email.RecipientEmail).Msg("Email digests enabled")
	} else {
		log.Info().Msg("Email digests disabled: missing configuration")
	}

	return scheduler.NewRatingRefreshJob(a.store, a.lookup, jobOpts...), nil
}

// describeError turns command errors into the short messages shown to users.
func describeError(err error) string {
	var parseErr *storage.ParseError
	var notFound *catalog.NotFoundError
	switch {
	case errors.As(err, &notFound):
		msg := fmt.Sprintf("Movie '%s' not found.", notFound.Title)
		if len(notFound.Suggestions) > 0 {
			msg += fmt.Sprintf(" Did you mean: %s?", strings.Join(notFound.Suggestions, ", "))
		}
		return msg
	case errors.Is(err, catalog.ErrEmptyCatalog):
		return "No movies found."
	case errors.As(err, &parseErr):
		return fmt.Sprintf("Catalog file is damaged: %v", parseErr)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

// withApp opens the app for one command run and closes it afterwards.
func withApp(opts options, f *flags, run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(opts, *f)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				log.Error().Err(err).Msg("Failed to close storage")
			}
		}()
		return run(cmd, a, args)
	}
}
