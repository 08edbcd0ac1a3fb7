package main

import (
	"bufio"
	"context"
	"errors"
	"strings"

	"cine-shelf/catalog"

	"github.com/rs/zerolog/log"
)

const menuText = `
Menu:
0. Exit
1. List movies
2. Add movie
3. Delete movie
4. Update movie
5. Stats
6. Random movie
7. Search movie
8. Movies sorted by rating
9. Generate website
`

// errExit ends the menu loop.
var errExit = errors.New("exit")

type menu struct {
	app     *app
	scanner *bufio.Scanner
}

// runMenu reads choices until 0, end of input or ctx is done. Command errors
// are printed and the loop continues.
func (a *app) runMenu(ctx context.Context) error {
	m := &menu{app: a, scanner: bufio.NewScanner(a.opts.in)}
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		a.printf("%s", menuText)
		choice, ok := m.prompt("Enter choice (0-9): ")
		if !ok {
			a.printf("\n")
			return nil
		}

		err := m.dispatch(ctx, choice)
		if errors.Is(err, errExit) {
			a.printf("Bye!\n")
			return nil
		}
		if err != nil {
			if !isUserError(err) {
				log.Error().Err(err).Str("choice", choice).Msg("Command failed")
			}
			a.printf("%s\n", describeError(err))
		}
	}
}

// prompt prints label and returns the next trimmed line. ok is false at end
// of input.
func (m *menu) prompt(label string) (string, bool) {
	m.app.printf("%s", label)
	if !m.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.scanner.Text()), true
}

func (m *menu) dispatch(ctx context.Context, choice string) error {
	a := m.app
	switch choice {
	case "0":
		return errExit
	case "1":
		return a.listMovies()
	case "2":
		return m.add(ctx)
	case "3":
		title, ok := m.prompt("Enter the title of the movie to delete: ")
		if !ok {
			return errExit
		}
		return a.deleteMovie(title)
	case "4":
		return m.update()
	case "5":
		return a.showStats()
	case "6":
		return a.randomMovie()
	case "7":
		query, ok := m.prompt("Enter movie title to search: ")
		if !ok {
			return errExit
		}
		return a.searchMovies(query)
	case "8":
		return a.sortedMovies()
	case "9":
		return a.generateWebsite()
	default:
		a.printf("Invalid choice. Please try again.\n")
		return nil
	}
}

func (m *menu) add(ctx context.Context) error {
	title, ok := m.prompt("Enter movie title: ")
	if !ok {
		return errExit
	}
	movie, err := m.app.addMovie(ctx, title, false)
	if !errors.Is(err, catalog.ErrAlreadyExists) {
		return err
	}

	answer, ok := m.prompt("Movie is already in the catalog. Overwrite? (y/N): ")
	if !ok {
		return errExit
	}
	if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
		m.app.printf("Movie not added.\n")
		return nil
	}
	return m.app.overwriteMovie(movie)
}

func (m *menu) update() error {
	title, ok := m.prompt("Enter the title of the movie to update: ")
	if !ok {
		return errExit
	}
	// Reject unknown titles before asking for a rating.
	if _, err := m.app.service.Get(title); err != nil {
		return err
	}

	input, ok := m.prompt("Enter new rating: ")
	if !ok {
		return errExit
	}
	rating, err := parseRating(input)
	if err != nil {
		return err
	}
	return m.app.updateMovie(title, rating)
}
