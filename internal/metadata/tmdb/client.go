package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelscan/reelscan/internal/config"
	"github.com/reelscan/reelscan/internal/metadata"
)

const sourceName = "tmdb"

var ErrAPIKeyMissing = errors.New("TMDB API key is not configured")

// Client is a TMDB API client implementing the movie, series, episode,
// person, artwork and trailer scanner capabilities.
type Client struct {
	httpClient *http.Client
	config     config.TMDBConfig
	cache      *metadata.Cache
	logger     zerolog.Logger
}

// NewClient creates a new TMDB client. cache may be nil.
func NewClient(cfg config.TMDBConfig, cache *metadata.Cache, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		cache:  cache,
		logger: logger.With().Str("component", "tmdb").Logger(),
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

// Fields lists the fields TMDB may write.
func (c *Client) Fields() []metadata.FieldTag {
	return metadata.AllFields
}

// Test verifies connectivity to the TMDB API by making a configuration request.
func (c *Client) Test(ctx context.Context) error {
	if !c.IsConfigured() {
		return ErrAPIKeyMissing
	}

	var result struct {
		Images struct {
			BaseURL string `json:"base_url"`
		} `json:"images"`
	}
	return c.doRequest(ctx, "/configuration", nil, &result)
}

// LookupID searches TMDB and returns the id of the best match, or an empty
// string when nothing matches.
func (c *Client) LookupID(ctx context.Context, q metadata.Query) (string, error) {
	if !c.IsConfigured() {
		return "", ErrAPIKeyMissing
	}

	key := fmt.Sprintf("%s|%s|%d", q.MediaType, strings.ToLower(q.Title), q.Year)
	return metadata.Load(c.cache, "tmdb:search", key, func() (string, error) {
		id, err := c.search(ctx, q)
		if err != nil {
			return "", err
		}
		c.logger.Debug().
			Str("query", q.Title).
			Int("year", q.Year).
			Str("mediaType", string(q.MediaType)).
			Str("id", id).
			Msg("Search completed")
		return id, nil
	})
}

func (c *Client) search(ctx context.Context, q metadata.Query) (string, error) {
	params := url.Values{}
	params.Set("query", q.Title)

	switch q.MediaType {
	case metadata.MediaTypeMovie:
		params.Set("include_adult", "false")
		if q.Year > 0 {
			params.Set("year", strconv.Itoa(q.Year))
		}
		var resp SearchMoviesResponse
		if err := c.doRequest(ctx, "/search/movie", params, &resp); err != nil {
			return "", err
		}
		if len(resp.Results) == 0 {
			return "", nil
		}
		return strconv.Itoa(bestMovie(resp.Results, q.Year).ID), nil

	case metadata.MediaTypeSeries, metadata.MediaTypeEpisode:
		if q.Year > 0 {
			params.Set("first_air_date_year", strconv.Itoa(q.Year))
		}
		var resp SearchTVResponse
		if err := c.doRequest(ctx, "/search/tv", params, &resp); err != nil {
			return "", err
		}
		if len(resp.Results) == 0 {
			return "", nil
		}
		return strconv.Itoa(resp.Results[0].ID), nil

	case metadata.MediaTypePerson:
		var resp SearchPersonResponse
		if err := c.doRequest(ctx, "/search/person", params, &resp); err != nil {
			return "", err
		}
		if len(resp.Results) == 0 {
			return "", nil
		}
		sort.SliceStable(resp.Results, func(i, j int) bool {
			return resp.Results[i].Popularity > resp.Results[j].Popularity
		})
		return strconv.Itoa(resp.Results[0].ID), nil
	}

	return "", nil
}

// bestMovie prefers an exact year match, then the most voted result.
func bestMovie(results []MovieResult, year int) MovieResult {
	score := func(m MovieResult) int {
		s := m.VoteCount
		if year > 0 && releaseYear(m.ReleaseDate) == year {
			s += 1 << 30
		}
		return s
	}

	best := results[0]
	for _, m := range results[1:] {
		if score(m) > score(best) {
			best = m
		}
	}
	return best
}

// FetchMovie gets detailed movie info by TMDB ID.
func (c *Client) FetchMovie(ctx context.Context, id string) (*metadata.RemoteRecord, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	params := url.Values{}
	params.Set("append_to_response", "external_ids,credits")

	var details MovieDetails
	if err := c.doRequest(ctx, "/movie/"+url.PathEscape(id), params, &details); err != nil {
		return nil, err
	}

	rec := &metadata.RemoteRecord{
		Kind:          metadata.MediaTypeMovie,
		Title:         details.Title,
		OriginalTitle: details.OriginalTitle,
		Plot:          details.Overview,
		Outline:       outline(details.Overview),
		Tagline:       details.Tagline,
		ReleaseDate:   parseDate(details.ReleaseDate),
		Genres:        genreNames(details.Genres),
		Rating:        details.VoteAverage,
	}
	for _, pc := range details.ProductionCompanies {
		rec.Studios = append(rec.Studios, pc.Name)
	}
	for _, pc := range details.ProductionCountries {
		rec.Countries = append(rec.Countries, pc.Iso31661)
	}
	imdbID := details.ImdbID
	if imdbID == "" && details.ExternalIDs != nil {
		imdbID = details.ExternalIDs.ImdbID
	}
	rec.ExternalIDs = imdbIDs(imdbID)
	if details.BelongsToCollection != nil && details.BelongsToCollection.Name != "" {
		rec.BoxedSets = []string{details.BelongsToCollection.Name}
	}
	rec.Cast = cast(details.Credits)

	c.logger.Debug().Str("id", id).Str("title", rec.Title).Msg("Got movie details")
	return rec, nil
}

// FetchSeries gets detailed series info by TMDB ID.
func (c *Client) FetchSeries(ctx context.Context, id string) (*metadata.RemoteRecord, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	params := url.Values{}
	params.Set("append_to_response", "external_ids,credits")

	var details TVDetails
	if err := c.doRequest(ctx, "/tv/"+url.PathEscape(id), params, &details); err != nil {
		return nil, err
	}

	rec := &metadata.RemoteRecord{
		Kind:          metadata.MediaTypeSeries,
		Title:         details.Name,
		OriginalTitle: details.OriginalName,
		Plot:          details.Overview,
		Outline:       outline(details.Overview),
		Tagline:       details.Tagline,
		ReleaseDate:   parseDate(details.FirstAirDate),
		Genres:        genreNames(details.Genres),
		Countries:     details.OriginCountry,
		Rating:        details.VoteAverage,
	}
	for _, n := range details.Networks {
		rec.Studios = append(rec.Studios, n.Name)
	}
	if details.ExternalIDs != nil {
		rec.ExternalIDs = imdbIDs(details.ExternalIDs.ImdbID)
	}
	rec.Cast = cast(details.Credits)

	c.logger.Debug().Str("id", id).Str("title", rec.Title).Msg("Got series details")
	return rec, nil
}

// maxCast bounds the persons taken from a credits block.
const maxCast = 10

// cast returns the top-billed actors.
func cast(credits *Credits) []metadata.Credit {
	if credits == nil || len(credits.Cast) == 0 {
		return nil
	}
	members := append([]CastMember(nil), credits.Cast...)
	sort.SliceStable(members, func(i, j int) bool { return members[i].Order < members[j].Order })

	out := make([]metadata.Credit, 0, maxCast)
	for _, m := range members {
		if len(out) == maxCast {
			break
		}
		if strings.TrimSpace(m.Name) == "" {
			continue
		}
		out = append(out, metadata.Credit{Source: sourceName, ID: strconv.Itoa(m.ID), Name: m.Name})
	}
	return out
}

// FetchEpisode gets a single episode using the series' TMDB ID.
func (c *Client) FetchEpisode(ctx context.Context, seriesID string, season, episode int) (*metadata.RemoteRecord, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}
	if season < 0 || episode < 0 {
		return nil, metadata.ErrNotFound
	}

	endpoint := fmt.Sprintf("/tv/%s/season/%d/episode/%d", url.PathEscape(seriesID), season, episode)
	var details EpisodeDetails
	if err := c.doRequest(ctx, endpoint, nil, &details); err != nil {
		return nil, err
	}

	return &metadata.RemoteRecord{
		Kind:        metadata.MediaTypeEpisode,
		Title:       details.Name,
		Plot:        details.Overview,
		Outline:     outline(details.Overview),
		ReleaseDate: parseDate(details.AirDate),
		Rating:      details.VoteAverage,
	}, nil
}

// FetchPerson gets person details by TMDB ID.
func (c *Client) FetchPerson(ctx context.Context, id string) (*metadata.RemoteRecord, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	var details PersonDetails
	if err := c.doRequest(ctx, "/person/"+url.PathEscape(id), nil, &details); err != nil {
		return nil, err
	}

	return &metadata.RemoteRecord{
		Kind:        metadata.MediaTypePerson,
		Title:       details.Name,
		Plot:        details.Biography,
		Outline:     outline(details.Biography),
		ReleaseDate: parseDate(details.Birthday),
		ExternalIDs: imdbIDs(details.ImdbID),
	}, nil
}

// FetchArtwork proposes posters, backdrops or profile photos, best voted first.
func (c *Client) FetchArtwork(ctx context.Context, id string, mediaType metadata.MediaType, artworkType metadata.ArtworkType) ([]metadata.RemoteArtwork, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	var endpoint string
	switch mediaType {
	case metadata.MediaTypeMovie:
		endpoint = "/movie/" + url.PathEscape(id) + "/images"
	case metadata.MediaTypeSeries:
		endpoint = "/tv/" + url.PathEscape(id) + "/images"
	case metadata.MediaTypePerson:
		endpoint = "/person/" + url.PathEscape(id) + "/images"
	default:
		return nil, nil
	}

	var resp ImagesResponse
	if err := c.doRequest(ctx, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	var images []ImageResult
	switch artworkType {
	case metadata.ArtworkTypePoster:
		images = resp.Posters
	case metadata.ArtworkTypeFanart:
		images = resp.Backdrops
	case metadata.ArtworkTypePhoto:
		images = resp.Profiles
	}

	sort.SliceStable(images, func(i, j int) bool {
		return images[i].VoteAverage > images[j].VoteAverage
	})

	out := make([]metadata.RemoteArtwork, 0, len(images))
	for i, img := range images {
		if img.FilePath == "" {
			continue
		}
		out = append(out, metadata.RemoteArtwork{URL: c.ImageURL(img.FilePath, "original"), Priority: i})
	}
	return out, nil
}

// FetchTrailers proposes YouTube trailers, official ones first.
func (c *Client) FetchTrailers(ctx context.Context, id string, mediaType metadata.MediaType) ([]metadata.RemoteArtwork, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	var endpoint string
	switch mediaType {
	case metadata.MediaTypeMovie:
		endpoint = "/movie/" + url.PathEscape(id) + "/videos"
	case metadata.MediaTypeSeries:
		endpoint = "/tv/" + url.PathEscape(id) + "/videos"
	default:
		return nil, nil
	}

	var resp VideosResponse
	if err := c.doRequest(ctx, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	var trailers []Video
	for _, v := range resp.Results {
		if v.Site == "YouTube" && v.Type == "Trailer" && v.Key != "" {
			trailers = append(trailers, v)
		}
	}
	sort.SliceStable(trailers, func(i, j int) bool {
		return trailers[i].Official && !trailers[j].Official
	})

	out := make([]metadata.RemoteArtwork, len(trailers))
	for i, v := range trailers {
		out[i] = metadata.RemoteArtwork{URL: "https://www.youtube.com/watch?v=" + v.Key, Priority: i}
	}
	return out, nil
}

// ImageURL constructs a full image URL from a TMDB path.
func (c *Client) ImageURL(path, size string) string {
	if path == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s%s", c.config.ImageBaseURL, size, path)
}

func (c *Client) doRequest(ctx context.Context, path string, params url.Values, result any) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.config.APIKey)
	if c.config.Language != "" {
		params.Set("language", c.config.Language)
	}

	reqURL := fmt.Sprintf("%s%s?%s", c.config.BaseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("HTTP request failed")
		return metadata.TransportError(sourceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.StatusMessage != "" {
			c.logger.Warn().
				Int("status", resp.StatusCode).
				Str("message", errResp.StatusMessage).
				Str("path", path).
				Msg("TMDB API error")
		}
		return metadata.HTTPStatusError(sourceName, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func genreNames(genres []Genre) []string {
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		names = append(names, g.Name)
	}
	return names
}

func imdbIDs(imdbID string) map[string]string {
	if imdbID == "" {
		return nil
	}
	return map[string]string{"imdb": imdbID, "omdb": imdbID}
}

func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func releaseYear(s string) int {
	if len(s) < 4 {
		return 0
	}
	year, _ := strconv.Atoi(s[:4])
	return year
}

// outline returns the first sentence of an overview.
func outline(overview string) string {
	overview = strings.TrimSpace(overview)
	if i := strings.Index(overview, ". "); i > 0 {
		return overview[:i+1]
	}
	return overview
}
