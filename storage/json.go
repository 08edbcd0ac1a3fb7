package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

const jsonIndent = "    "

// JSONStorage keeps the catalog as one JSON object keyed by title.
type JSONStorage struct {
	fileStore
}

// jsonEntry is the value stored under each title. Field order is the on-disk order.
type jsonEntry struct {
	Year   int     `json:"year"`
	Rating float64 `json:"rating"`
	Poster string  `json:"poster"`
}

// NewJSONStorage returns a JSON backend for path, creating the file with an
// empty object when it does not exist yet.
func NewJSONStorage(path string) (*JSONStorage, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	switch {
	case errors.Is(err, os.ErrExist):
		// already initialized
	case err != nil:
		return nil, fmt.Errorf("failed to initialize %s: %w", path, err)
	default:
		_, werr := f.WriteString("{}")
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return nil, fmt.Errorf("failed to initialize %s: %w", path, werr)
		}
	}

	return &JSONStorage{fileStore{path: path, codec: jsonCodec{}}}, nil
}

type jsonCodec struct{}

// decode walks the object token by token so the document's key order
// becomes the catalog order.
func (jsonCodec) decode(path string, r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	catalog := NewCatalog()
	if len(bytes.TrimSpace(data)) == 0 {
		return catalog, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, &ParseError{Path: path, Err: fmt.Errorf("expected object, got %v", tok)}
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
		title, ok := tok.(string)
		if !ok {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("expected title key, got %v", tok)}
		}

		var entry jsonEntry
		if err := dec.Decode(&entry); err != nil {
			return nil, &ParseError{Path: path, Field: title, Err: err}
		}
		if err := checkRating(entry.Rating); err != nil {
			return nil, &ParseError{Path: path, Field: title, Err: err}
		}
		catalog.Set(Movie{Title: title, Year: entry.Year, Rating: entry.Rating, Poster: entry.Poster})
	}

	if _, err := dec.Token(); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ParseError{Path: path, Err: errors.New("trailing data after catalog object")}
	}

	return catalog, nil
}

func (jsonCodec) encode(w io.Writer, c *Catalog) error {
	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, m := range c.Movies() {
		if i > 0 {
			compact.WriteByte(',')
		}
		key, err := json.Marshal(m.Title)
		if err != nil {
			return err
		}
		value, err := json.Marshal(jsonEntry{Year: m.Year, Rating: m.Rating, Poster: m.Poster})
		if err != nil {
			return fmt.Errorf("failed to marshal %q: %w", m.Title, err)
		}
		compact.Write(key)
		compact.WriteByte(':')
		compact.Write(value)
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", jsonIndent); err != nil {
		return err
	}
	out.WriteByte('\n')
	_, err := out.WriteTo(w)
	return err
}
