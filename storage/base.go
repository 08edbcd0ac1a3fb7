package storage

// Movie is a single catalog record. Title is the unique key.
type Movie struct {
	Title  string  `json:"title"`
	Year   int     `json:"year"`
	Rating float64 `json:"rating"`
	Poster string  `json:"poster"`
}

// StorageInterface is the contract every backend satisfies. Command code is
// written against it and never against a concrete backend.
type StorageInterface interface {
	// ListMovies returns the full catalog. A missing or empty store yields an
	// empty catalog, never an error.
	ListMovies() (*Catalog, error)

	// AddMovie inserts or overwrites the record for title.
	AddMovie(title string, year int, rating float64, poster string) error

	// DeleteMovie removes title if present. Absent titles are a no-op.
	DeleteMovie(title string) error

	// UpdateMovie sets the rating of title if present. Absent titles are a no-op.
	UpdateMovie(title string, rating float64) error
}

// Catalog maps titles to records and remembers the order in which titles
// were first seen, so backends can hand back their natural iteration order.
type Catalog struct {
	titles []string
	movies map[string]Movie
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{movies: make(map[string]Movie)}
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	return len(c.titles)
}

// Get returns the record for title.
func (c *Catalog) Get(title string) (Movie, bool) {
	m, ok := c.movies[title]
	return m, ok
}

// Has reports whether title is present.
func (c *Catalog) Has(title string) bool {
	_, ok := c.movies[title]
	return ok
}

// Set stores m under m.Title. Overwriting keeps the original position; new
// titles are appended.
func (c *Catalog) Set(m Movie) {
	if _, exists := c.movies[m.Title]; !exists {
		c.titles = append(c.titles, m.Title)
	}
	c.movies[m.Title] = m
}

// Delete removes title and reports whether it was present.
func (c *Catalog) Delete(title string) bool {
	if _, exists := c.movies[title]; !exists {
		return false
	}
	delete(c.movies, title)
	for i, t := range c.titles {
		if t == title {
			c.titles = append(c.titles[:i], c.titles[i+1:]...)
			break
		}
	}
	return true
}

// Titles returns a copy of the titles in catalog order.
func (c *Catalog) Titles() []string {
	out := make([]string, len(c.titles))
	copy(out, c.titles)
	return out
}

// Movies returns the records in catalog order.
func (c *Catalog) Movies() []Movie {
	out := make([]Movie, 0, len(c.titles))
	for _, t := range c.titles {
		out = append(out, c.movies[t])
	}
	return out
}
