package main

import (
	"errors"
	"strings"

	"cine-shelf/catalog"
	"cine-shelf/scheduler"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRootCmd(opts options) *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:   "cineshelf",
		Short: "Keep a personal movie catalog",
		Long: `Cine Shelf keeps a small movie catalog in a CSV file, a JSON file or a
SQLite database. New movies are looked up on OMDb by title.

Run without a subcommand to open the interactive menu.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: withApp(opts, f, func(cmd *cobra.Command, a *app, _ []string) error {
			return a.runMenu(cmd.Context())
		}),
	}
	root.SetIn(opts.in)
	root.SetOut(opts.out)
	root.SetErr(opts.errOut)

	root.PersistentFlags().StringVar(&f.configFile, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().StringVar(&f.backend, "backend", "", "storage backend: csv, json or sqlite")
	root.PersistentFlags().StringVar(&f.file, "file", "", "catalog file for the csv and json backends")

	var overwrite bool
	addCmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Look a movie up on OMDb and add it",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(opts, f, func(cmd *cobra.Command, a *app, args []string) error {
			_, err := a.addMovie(cmd.Context(), strings.Join(args, " "), overwrite)
			return err
		}),
	}
	addCmd.Flags().BoolVar(&overwrite, "overwrite", false, "replace the movie if it is already in the catalog")

	root.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List every movie",
			Args:  cobra.NoArgs,
			RunE: withApp(opts, f, func(_ *cobra.Command, a *app, _ []string) error {
				return a.listMovies()
			}),
		},
		addCmd,
		&cobra.Command{
			Use:   "delete <title>",
			Short: "Delete a movie",
			Args:  cobra.MinimumNArgs(1),
			RunE: withApp(opts, f, func(_ *cobra.Command, a *app, args []string) error {
				return a.deleteMovie(strings.Join(args, " "))
			}),
		},
		&cobra.Command{
			Use:   "update <title> <rating>",
			Short: "Change the rating of a movie",
			Args:  cobra.MinimumNArgs(2),
			RunE: withApp(opts, f, func(_ *cobra.Command, a *app, args []string) error {
				rating, err := parseRating(args[len(args)-1])
				if err != nil {
					return err
				}
				return a.updateMovie(strings.Join(args[:len(args)-1], " "), rating)
			}),
		},
		&cobra.Command{
			Use:   "stats",
			Short: "Show rating statistics",
			Args:  cobra.NoArgs,
			RunE: withApp(opts, f, func(_ *cobra.Command, a *app, _ []string) error {
				return a.showStats()
			}),
		},
		&cobra.Command{
			Use:   "random",
			Short: "Pick a random movie",
			Args:  cobra.NoArgs,
			RunE: withApp(opts, f, func(_ *cobra.Command, a *app, _ []string) error {
				return a.randomMovie()
			}),
		},
		&cobra.Command{
			Use:   "search <query>",
			Short: "Find movies whose title contains query",
			Args:  cobra.MinimumNArgs(1),
			RunE: withApp(opts, f, func(_ *cobra.Command, a *app, args []string) error {
				return a.searchMovies(strings.Join(args, " "))
			}),
		},
		&cobra.Command{
			Use:   "sorted",
			Short: "List movies by rating, best first",
			Args:  cobra.NoArgs,
			RunE: withApp(opts, f, func(_ *cobra.Command, a *app, _ []string) error {
				return a.sortedMovies()
			}),
		},
		&cobra.Command{
			Use:   "website",
			Short: "Generate the static website",
			Args:  cobra.NoArgs,
			RunE: withApp(opts, f, func(_ *cobra.Command, a *app, _ []string) error {
				return a.generateWebsite()
			}),
		},
		&cobra.Command{
			Use:   "refresh",
			Short: "Refresh every rating from OMDb once",
			Args:  cobra.NoArgs,
			RunE: withApp(opts, f, func(cmd *cobra.Command, a *app, _ []string) error {
				return a.refreshRatings(cmd.Context())
			}),
		},
		&cobra.Command{
			Use:   "schedule",
			Short: "Refresh ratings on the configured cron schedule until interrupted",
			Args:  cobra.NoArgs,
			RunE: withApp(opts, f, func(cmd *cobra.Command, a *app, _ []string) error {
				return a.runScheduler(cmd)
			}),
		},
	)

	return root
}

func (a *app) runScheduler(cmd *cobra.Command) error {
	job, err := a.refreshJob()
	if err != nil {
		return err
	}

	sched := scheduler.NewScheduler()
	if err := sched.AddJob(a.cfg.Refresh.Schedule, job); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()
	log.Info().Str("schedule", a.cfg.Refresh.Schedule).Time("next", sched.Next()).Msg("Rating refresh scheduled")

	if a.cfg.Refresh.RunAtStartup {
		log.Info().Msg("Running initial rating refresh at startup")
		if err := sched.RunJobNow(job.Name()); err != nil {
			log.Error().Err(err).Msg("Initial rating refresh failed")
		}
	}

	a.printf("Scheduler running. Press Ctrl+C to exit\n")
	<-cmd.Context().Done()
	log.Info().Msg("Shutting down scheduler")
	return nil
}

// isUserError reports errors that the menu shows and then carries on from.
func isUserError(err error) bool {
	return errors.Is(err, catalog.ErrNotFound) ||
		errors.Is(err, catalog.ErrAlreadyExists) ||
		errors.Is(err, catalog.ErrInvalidRating) ||
		errors.Is(err, catalog.ErrEmptyCatalog)
}
