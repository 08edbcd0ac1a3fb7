// Package omdb resolves movie titles through the OMDb API.
package omdb

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cine-shelf/catalog"
	"cine-shelf/storage"

	"github.com/goccy/go-json"
	"github.com/gocolly/colly"
	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "http://www.omdbapi.com/"

var (
	ErrNotFound      = errors.New("movie not found in OMDb")
	ErrMissingAPIKey = errors.New("OMDb API key is required")
)

// Config holds what the client needs to reach OMDb.
type Config struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	UserAgent         string
}

// Client implements catalog.MetadataLookup.
type Client struct {
	apiKey    string
	baseURL   *url.URL
	timeout   time.Duration
	userAgent string
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[storage.Movie]
}

// response mirrors the fields of an OMDb title lookup we care about.
type response struct {
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	ImdbRating string `json:"imdbRating"`
	Poster     string `json:"Poster"`
	Response   string `json:"Response"`
	Error      string `json:"Error"`
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid OMDb base URL %q: %w", cfg.BaseURL, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "cine-shelf"
	}

	c := &Client{
		apiKey:    cfg.APIKey,
		baseURL:   base,
		timeout:   cfg.Timeout,
		userAgent: cfg.UserAgent,
		limiter:   rate.NewLimiter(limit, 1),
	}
	c.breaker = gobreaker.NewCircuitBreaker[storage.Movie](gobreaker.Settings{
		Name:        "omdb-api",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// An unknown title is a valid answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, catalog.ErrNoRating)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("OMDb circuit breaker state change")
		},
	})
	return c, nil
}

// Lookup fetches the record for title. Unknown titles return ErrNotFound.
func (c *Client) Lookup(ctx context.Context, title string) (storage.Movie, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return storage.Movie{}, err
	}
	return c.breaker.Execute(func() (storage.Movie, error) {
		return c.fetch(ctx, title)
	})
}

func (c *Client) fetch(ctx context.Context, title string) (storage.Movie, error) {
	if err := ctx.Err(); err != nil {
		return storage.Movie{}, err
	}

	collector := colly.NewCollector(
		colly.UserAgent(c.userAgent),
		colly.IgnoreRobotsTxt(),
	)
	collector.SetRequestTimeout(c.timeout)

	var body []byte
	collector.OnRequest(func(r *colly.Request) {
		log.Debug().Str("title", title).Str("host", r.URL.Host).Msg("Fetching movie details")
	})
	collector.OnResponse(func(r *colly.Response) {
		log.Debug().Int("status", r.StatusCode).Str("title", title).Msg("OMDb response received")
		body = r.Body
	})

	if err := collector.Visit(c.requestURL(title)); err != nil {
		return storage.Movie{}, fmt.Errorf("failed to query OMDb: %w", err)
	}

	return parseResponse(title, body)
}

func (c *Client) requestURL(title string) string {
	u := *c.baseURL
	q := u.Query()
	q.Set("apikey", c.apiKey)
	q.Set("t", title)
	u.RawQuery = q.Encode()
	return u.String()
}

var yearPattern = regexp.MustCompile(`^\d{4}`)

func parseResponse(title string, body []byte) (storage.Movie, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return storage.Movie{}, fmt.Errorf("failed to decode OMDb response: %w", err)
	}
	if !strings.EqualFold(resp.Response, "True") {
		if resp.Error != "" {
			return storage.Movie{}, fmt.Errorf("%w: %q: %s", ErrNotFound, title, resp.Error)
		}
		return storage.Movie{}, fmt.Errorf("%w: %q", ErrNotFound, title)
	}

	movie := storage.Movie{
		Title:  resp.Title,
		Poster: resp.Poster,
	}
	if movie.Title == "" {
		movie.Title = title
	}
	if movie.Poster == "" {
		movie.Poster = "N/A"
	}

	// Series report ranges such as "2008–2013"; keep the first year.
	if y := yearPattern.FindString(resp.Year); y != "" {
		movie.Year, _ = strconv.Atoi(y)
	}

	r := strings.TrimSpace(resp.ImdbRating)
	if r == "" || r == "N/A" {
		return movie, fmt.Errorf("%w: %q", catalog.ErrNoRating, movie.Title)
	}
	rating, err := strconv.ParseFloat(r, 64)
	if err != nil {
		return storage.Movie{}, fmt.Errorf("invalid imdbRating %q: %w", r, err)
	}
	movie.Rating = rating

	return movie, nil
}
