package tvdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelscan/reelscan/internal/config"
	"github.com/reelscan/reelscan/internal/metadata"
)

const sourceName = "tvdb"

var (
	ErrAPIKeyMissing = errors.New("TVDB API key is not configured")
	ErrAuthFailed    = errors.New("TVDB authentication failed")
)

// Client is a TVDB v4 client implementing the series, episode and series
// artwork scanner capabilities.
type Client struct {
	httpClient *http.Client
	config     config.TVDBConfig
	cache      *metadata.Cache
	logger     zerolog.Logger

	mu          sync.RWMutex
	token       string
	tokenExpiry time.Time
}

// NewClient creates a new TVDB client. cache may be nil.
func NewClient(cfg config.TVDBConfig, cache *metadata.Cache, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		cache:  cache,
		logger: logger.With().Str("component", "tvdb").Logger(),
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

// Fields lists the fields TVDB may write.
func (c *Client) Fields() []metadata.FieldTag {
	return []metadata.FieldTag{
		metadata.FieldTitle,
		metadata.FieldPlot,
		metadata.FieldReleaseDate,
		metadata.FieldYear,
		metadata.FieldGenres,
		metadata.FieldStudios,
		metadata.FieldCountries,
	}
}

// Test verifies the API key by logging in.
func (c *Client) Test(ctx context.Context) error {
	if !c.IsConfigured() {
		return ErrAPIKeyMissing
	}
	return c.authenticate(ctx)
}

// authenticate gets or refreshes the authentication token.
func (c *Client) authenticate(ctx context.Context) error {
	c.mu.RLock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		c.mu.RUnlock()
		return nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return nil
	}

	body, err := json.Marshal(LoginRequest{APIKey: c.config.APIKey})
	if err != nil {
		return fmt.Errorf("failed to marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return metadata.TransportError(sourceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error().Int("status", resp.StatusCode).Msg("TVDB authentication failed")
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return metadata.HTTPStatusError(sourceName, resp.StatusCode)
		}
		return ErrAuthFailed
	}

	var loginResp LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}

	c.token = loginResp.Data.Token
	// tokens are valid for a month; refresh daily
	c.tokenExpiry = time.Now().Add(24 * time.Hour)

	c.logger.Debug().Msg("TVDB authentication successful")
	return nil
}

// LookupID searches TVDB for a series.
func (c *Client) LookupID(ctx context.Context, q metadata.Query) (string, error) {
	if !c.IsConfigured() {
		return "", ErrAPIKeyMissing
	}
	if q.MediaType != metadata.MediaTypeSeries && q.MediaType != metadata.MediaTypeEpisode {
		return "", nil
	}

	key := fmt.Sprintf("%s|%d", strings.ToLower(q.Title), q.Year)
	return metadata.Load(c.cache, "tvdb:search", key, func() (string, error) {
		params := url.Values{}
		params.Set("query", q.Title)
		params.Set("type", "series")
		if q.Year > 0 {
			params.Set("year", strconv.Itoa(q.Year))
		}

		var response SearchResponse
		if err := c.doRequest(ctx, "/search", params, &response); err != nil {
			return "", err
		}

		for _, item := range response.Data {
			if item.Type == "series" && item.TvdbID != "" {
				c.logger.Debug().Str("query", q.Title).Str("id", item.TvdbID).Msg("TV search completed")
				return item.TvdbID, nil
			}
		}
		return "", nil
	})
}

// FetchSeries gets the extended series record.
func (c *Client) FetchSeries(ctx context.Context, id string) (*metadata.RemoteRecord, error) {
	detail, err := c.series(ctx, id)
	if err != nil {
		return nil, err
	}

	rec := &metadata.RemoteRecord{
		Kind:        metadata.MediaTypeSeries,
		Title:       detail.Name,
		Plot:        detail.Overview,
		ReleaseDate: parseDate(detail.FirstAired),
	}
	if detail.Year != "" {
		rec.Year, _ = strconv.Atoi(detail.Year)
	}
	for _, g := range detail.Genres {
		rec.Genres = append(rec.Genres, g.Name)
	}
	for _, co := range detail.Companies {
		rec.Studios = append(rec.Studios, co.Name)
	}
	if detail.OriginalCountry != "" {
		rec.Countries = []string{strings.ToUpper(detail.OriginalCountry)}
	}

	for _, rid := range detail.RemoteIDs {
		switch rid.SourceName {
		case "IMDB":
			rec.ExternalIDs = setID(rec.ExternalIDs, "imdb", rid.ID)
			rec.ExternalIDs = setID(rec.ExternalIDs, "omdb", rid.ID)
		case "TheMovieDB.com":
			rec.ExternalIDs = setID(rec.ExternalIDs, "tmdb", rid.ID)
		}
	}

	c.logger.Debug().Str("id", id).Str("title", rec.Title).Msg("Got series details")
	return rec, nil
}

// FetchEpisode gets one episode of the default season order.
func (c *Client) FetchEpisode(ctx context.Context, seriesID string, season, episode int) (*metadata.RemoteRecord, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}
	if season < 0 || episode < 0 {
		return nil, metadata.ErrNotFound
	}

	params := url.Values{}
	params.Set("season", strconv.Itoa(season))
	params.Set("episodeNumber", strconv.Itoa(episode))

	var response EpisodesResponse
	if err := c.doRequest(ctx, "/series/"+url.PathEscape(seriesID)+"/episodes/default", params, &response); err != nil {
		return nil, err
	}

	for _, ep := range response.Data.Episodes {
		if ep.SeasonNumber == season && ep.Number == episode {
			return &metadata.RemoteRecord{
				Kind:        metadata.MediaTypeEpisode,
				Title:       ep.Name,
				Plot:        ep.Overview,
				ReleaseDate: parseDate(ep.Aired),
			}, nil
		}
	}
	return nil, fmt.Errorf("%s: episode S%02dE%02d: %w", sourceName, season, episode, metadata.ErrNotFound)
}

// FetchArtwork proposes series posters, backgrounds and banners, best scored
// first.
func (c *Client) FetchArtwork(ctx context.Context, id string, mediaType metadata.MediaType, artworkType metadata.ArtworkType) ([]metadata.RemoteArtwork, error) {
	if mediaType != metadata.MediaTypeSeries {
		return nil, nil
	}

	var want int
	switch artworkType {
	case metadata.ArtworkTypePoster:
		want = ArtworkTypePoster
	case metadata.ArtworkTypeFanart:
		want = ArtworkTypeBackground
	case metadata.ArtworkTypeBanner:
		want = ArtworkTypeBanner
	default:
		return nil, nil
	}

	detail, err := c.series(ctx, id)
	if err != nil {
		return nil, err
	}

	var matches []Artwork
	for _, art := range detail.Artworks {
		if art.Type == want && art.Image != "" {
			matches = append(matches, art)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	out := make([]metadata.RemoteArtwork, len(matches))
	for i, art := range matches {
		out[i] = metadata.RemoteArtwork{URL: art.Image, Priority: i}
	}
	return out, nil
}

func (c *Client) series(ctx context.Context, id string) (*SeriesDetail, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	params := url.Values{}
	params.Set("meta", "translations")

	var response SeriesResponse
	if err := c.doRequest(ctx, "/series/"+url.PathEscape(id)+"/extended", params, &response); err != nil {
		return nil, err
	}
	return &response.Data, nil
}

// doRequest performs an authenticated GET request.
func (c *Client) doRequest(ctx context.Context, path string, params url.Values, result any) error {
	if err := c.authenticate(ctx); err != nil {
		return err
	}

	reqURL := c.config.BaseURL + path
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", reqURL, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("HTTP request failed")
		return metadata.TransportError(sourceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			// expired token; the next request logs in again
			c.mu.Lock()
			c.token = ""
			c.mu.Unlock()
			return fmt.Errorf("%s: %w: unauthorized", sourceName, metadata.ErrTemporarilyUnavailable)
		}
		return metadata.HTTPStatusError(sourceName, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func setID(ids map[string]string, source, id string) map[string]string {
	if id == "" {
		return ids
	}
	if ids == nil {
		ids = make(map[string]string)
	}
	ids[source] = id
	return ids
}

func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
