package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelscan/reelscan/internal/config"
	"github.com/reelscan/reelscan/internal/metadata"
)

const sourceName = "omdb"

var (
	ErrAPIKeyMissing = errors.New("OMDb API key is not configured")
	ErrAPIError      = errors.New("OMDb API error")
)

// Client is an OMDb API client implementing the movie and series scanner
// capabilities. OMDb ids are IMDb ids.
type Client struct {
	httpClient *http.Client
	config     config.OMDBConfig
	cache      *metadata.Cache
	logger     zerolog.Logger
}

// NewClient creates a new OMDb client. cache may be nil.
func NewClient(cfg config.OMDBConfig, cache *metadata.Cache, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		cache:  cache,
		logger: logger.With().Str("component", "omdb").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return sourceName
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// Fields lists the fields OMDb may write.
func (c *Client) Fields() []metadata.FieldTag {
	return []metadata.FieldTag{
		metadata.FieldTitle,
		metadata.FieldPlot,
		metadata.FieldReleaseDate,
		metadata.FieldYear,
		metadata.FieldGenres,
		metadata.FieldCountries,
		metadata.FieldStudios,
	}
}

// Test verifies connectivity to the OMDb API.
func (c *Client) Test(ctx context.Context) error {
	_, err := c.FetchMovie(ctx, "tt0133093") // The Matrix
	return err
}

// LookupID searches OMDb by exact title and returns the IMDb id.
func (c *Client) LookupID(ctx context.Context, q metadata.Query) (string, error) {
	if !c.IsConfigured() {
		return "", ErrAPIKeyMissing
	}

	key := fmt.Sprintf("%s|%s|%d", q.MediaType, strings.ToLower(q.Title), q.Year)
	return metadata.Load(c.cache, "omdb:search", key, func() (string, error) {
		params := url.Values{}
		params.Set("t", q.Title)
		if q.Year > 0 {
			params.Set("y", strconv.Itoa(q.Year))
		}
		if t := omdbType(q.MediaType); t != "" {
			params.Set("type", t)
		}

		resp, err := c.get(ctx, params)
		if errors.Is(err, metadata.ErrNotFound) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return resp.ImdbID, nil
	})
}

// FetchMovie fetches a movie by IMDb id.
func (c *Client) FetchMovie(ctx context.Context, id string) (*metadata.RemoteRecord, error) {
	return c.fetch(ctx, id)
}

// FetchSeries fetches a series by IMDb id.
func (c *Client) FetchSeries(ctx context.Context, id string) (*metadata.RemoteRecord, error) {
	return c.fetch(ctx, id)
}

func (c *Client) fetch(ctx context.Context, imdbID string) (*metadata.RemoteRecord, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}
	if imdbID == "" {
		return nil, metadata.ErrNotFound
	}

	params := url.Values{}
	params.Set("i", imdbID)
	params.Set("plot", "full")

	resp, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	rec := &metadata.RemoteRecord{
		Kind:        kindOf(resp.Type),
		Title:       resp.Title,
		Plot:        value(resp.Plot),
		ReleaseDate: parseReleased(resp.Released),
		Genres:      splitList(resp.Genre),
		Countries:   splitList(resp.Country),
		Studios:     splitList(resp.Production),
		Rating:      parseRating(resp.ImdbRating),
	}
	if len(resp.Year) >= 4 {
		rec.Year, _ = strconv.Atoi(resp.Year[:4])
	}
	if resp.ImdbID != "" {
		rec.ExternalIDs = map[string]string{"imdb": resp.ImdbID}
	}
	for _, name := range splitList(resp.Actors) {
		rec.Cast = append(rec.Cast, metadata.Credit{Source: sourceName, Name: name})
	}

	c.logger.Debug().
		Str("imdbId", imdbID).
		Str("title", rec.Title).
		Float64("rating", rec.Rating).
		Msg("Fetched OMDb title")

	return rec, nil
}

func (c *Client) get(ctx context.Context, params url.Values) (*Response, error) {
	params.Set("apikey", c.config.APIKey)
	reqURL := fmt.Sprintf("%s?%s", c.config.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Msg("HTTP request failed")
		return nil, metadata.TransportError(sourceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, metadata.HTTPStatusError(sourceName, resp.StatusCode)
	}

	var omdbResp Response
	if err := json.NewDecoder(resp.Body).Decode(&omdbResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if omdbResp.Response == "False" {
		switch {
		case strings.HasSuffix(omdbResp.Error, "not found!"), omdbResp.Error == "Incorrect IMDb ID.":
			return nil, fmt.Errorf("%s: %w", sourceName, metadata.ErrNotFound)
		case strings.Contains(omdbResp.Error, "limit reached"):
			return nil, fmt.Errorf("%s: %w: %s", sourceName, metadata.ErrTemporarilyUnavailable, omdbResp.Error)
		}
		c.logger.Warn().Str("error", omdbResp.Error).Msg("OMDb API returned error")
		return nil, fmt.Errorf("%w: %s", ErrAPIError, omdbResp.Error)
	}

	return &omdbResp, nil
}

func omdbType(mt metadata.MediaType) string {
	switch mt {
	case metadata.MediaTypeMovie:
		return "movie"
	case metadata.MediaTypeSeries:
		return "series"
	}
	return ""
}

func kindOf(omdbType string) metadata.MediaType {
	switch strings.ToLower(omdbType) {
	case "movie":
		return metadata.MediaTypeMovie
	case "series":
		return metadata.MediaTypeSeries
	case "episode":
		return metadata.MediaTypeEpisode
	}
	return ""
}

// value drops OMDb's "N/A" placeholder.
func value(s string) string {
	s = strings.TrimSpace(s)
	if s == "N/A" {
		return ""
	}
	return s
}

func splitList(s string) []string {
	s = value(s)
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseReleased(s string) time.Time {
	t, err := time.Parse("02 Jan 2006", value(s))
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseRating(s string) float64 {
	rating, err := strconv.ParseFloat(value(s), 64)
	if err != nil {
		return 0
	}
	return rating
}
