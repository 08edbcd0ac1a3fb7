package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// csvHeader is the fixed column order written to disk.
var csvHeader = []string{"title", "rating", "year", "poster"}

// CSVStorage keeps the catalog in a comma-separated file with a header row.
type CSVStorage struct {
	fileStore
}

// NewCSVStorage returns a CSV backend for path. The file is not touched until
// the first operation; a missing file reads as an empty catalog.
func NewCSVStorage(path string) *CSVStorage {
	return &CSVStorage{fileStore{path: path, codec: csvCodec{}}}
}

type csvCodec struct{}

func (csvCodec) decode(path string, r io.Reader) (*Catalog, error) {
	reader := csv.NewReader(r)
	catalog := NewCatalog()

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return catalog, nil
	}
	if err != nil {
		return nil, csvReadError(path, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	for _, name := range csvHeader {
		if _, ok := columns[name]; !ok {
			return nil, &ParseError{Path: path, Line: 1, Field: name, Err: errors.New("missing column")}
		}
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvReadError(path, err)
		}
		line, _ := reader.FieldPos(0)

		rating, err := strconv.ParseFloat(record[columns["rating"]], 64)
		if err != nil {
			return nil, &ParseError{Path: path, Line: line, Field: "rating", Err: err}
		}
		if err := checkRating(rating); err != nil {
			return nil, &ParseError{Path: path, Line: line, Field: "rating", Err: err}
		}
		year, err := strconv.Atoi(record[columns["year"]])
		if err != nil {
			return nil, &ParseError{Path: path, Line: line, Field: "year", Err: err}
		}

		catalog.Set(Movie{
			Title:  record[columns["title"]],
			Year:   year,
			Rating: rating,
			Poster: record[columns["poster"]],
		})
	}

	return catalog, nil
}

func (csvCodec) encode(w io.Writer, c *Catalog) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, m := range c.Movies() {
		row := []string{
			m.Title,
			strconv.FormatFloat(m.Rating, 'f', -1, 64),
			strconv.Itoa(m.Year),
			m.Poster,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %q: %w", m.Title, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func csvReadError(path string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Path: path, Line: pe.Line, Err: err}
	}
	return fmt.Errorf("failed to read %s: %w", path, err)
}
