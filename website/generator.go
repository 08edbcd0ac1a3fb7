// Package website renders the catalog into a static HTML page.
package website

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"cine-shelf/catalog"
	"cine-shelf/storage"

	"github.com/rs/zerolog/log"
)

//go:embed templates/index.html
var templateFS embed.FS

// IndexFile is the page written into the output directory.
const IndexFile = "index.html"

// Generator turns a catalog into HTML. It only ever calls ListMovies.
type Generator struct {
	title string
	tmpl  *template.Template
}

type pageData struct {
	Title    string
	Movies   []storage.Movie
	HasStats bool
	Stats    catalog.Stats
}

func NewGenerator(title string) (*Generator, error) {
	if title == "" {
		title = "My Movie App"
	}
	tmpl, err := template.New("index.html").Funcs(template.FuncMap{
		"posterURL": func(poster string) bool {
			return poster != "" && poster != "N/A"
		},
	}).ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse website template: %w", err)
	}
	return &Generator{title: title, tmpl: tmpl}, nil
}

// Render returns the page for movies.
func (g *Generator) Render(movies []storage.Movie) ([]byte, error) {
	data := pageData{Title: g.title, Movies: movies}
	if stats, err := catalog.ComputeStats(movies); err == nil {
		data.HasStats = true
		data.Stats = stats
	}

	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render website: %w", err)
	}
	return buf.Bytes(), nil
}

// Generate reads the catalog from store and writes index.html into dir,
// returning the written path.
func (g *Generator) Generate(store storage.StorageInterface, dir string) (string, error) {
	movies, err := store.ListMovies()
	if err != nil {
		return "", err
	}
	page, err := g.Render(movies.Movies())
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create website directory: %w", err)
	}
	path := filepath.Join(dir, IndexFile)
	if err := writeFileAtomic(path, page); err != nil {
		return "", err
	}

	log.Info().Str("path", path).Int("movies", movies.Len()).Msg("Website was generated successfully")
	return path, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
