package imdb

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/reelscan/reelscan/internal/config"
	"github.com/reelscan/reelscan/internal/metadata"
)

const (
	sourceName = "imdb"
	userAgent  = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
)

var (
	titleIDPattern  = regexp.MustCompile(`/title/(tt\d+)`)
	personIDPattern = regexp.MustCompile(`/name/(nm\d+)`)
	yearPattern     = regexp.MustCompile(`(?:^|\D)((?:19|20)\d{2})(?:\D|$)`)
)

// Client scrapes IMDb title and name pages. It implements the movie,
// series and person scanner capabilities.
type Client struct {
	httpClient *http.Client
	config     config.IMDBConfig
	cache      *metadata.Cache
	logger     zerolog.Logger
}

// NewClient creates a new IMDb client. cache may be nil.
func NewClient(cfg config.IMDBConfig, cache *metadata.Cache, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		cache:  cache,
		logger: logger.With().Str("component", "imdb").Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return sourceName
}

// IsConfigured reports whether the scanner is enabled.
func (c *Client) IsConfigured() bool {
	return c.config.Enabled
}

// Fields lists the fields IMDb may write.
func (c *Client) Fields() []metadata.FieldTag {
	return []metadata.FieldTag{
		metadata.FieldTitle,
		metadata.FieldOriginalTitle,
		metadata.FieldOutline,
		metadata.FieldReleaseDate,
		metadata.FieldYear,
		metadata.FieldGenres,
		metadata.FieldStudios,
	}
}

// Test fetches a well-known title page.
func (c *Client) Test(ctx context.Context) error {
	_, err := c.FetchMovie(ctx, "tt0133093")
	return err
}

// LookupID searches the IMDb find page and returns the first matching
// title or name id. Results whose listed year differs from the query year
// are skipped.
func (c *Client) LookupID(ctx context.Context, q metadata.Query) (string, error) {
	key := fmt.Sprintf("%s|%s|%d", q.MediaType, strings.ToLower(q.Title), q.Year)
	return metadata.Load(c.cache, "imdb:search", key, func() (string, error) {
		params := url.Values{}
		params.Set("q", q.Title)

		pattern := titleIDPattern
		switch q.MediaType {
		case metadata.MediaTypePerson:
			params.Set("s", "nm")
			pattern = personIDPattern
		case metadata.MediaTypeSeries, metadata.MediaTypeEpisode:
			params.Set("s", "tt")
			params.Set("ttype", "tv")
		default:
			params.Set("s", "tt")
			params.Set("ttype", "ft")
		}

		doc, err := c.document(ctx, "/find/?"+params.Encode())
		if err != nil {
			return "", err
		}

		id := ""
		doc.Find(".find-result-item, .findResult").EachWithBreak(func(_ int, item *goquery.Selection) bool {
			href, _ := item.Find("a[href]").First().Attr("href")
			m := pattern.FindStringSubmatch(href)
			if m == nil {
				return true
			}
			if q.Year > 0 {
				if y := yearPattern.FindStringSubmatch(item.Text()); y != nil && y[1] != strconv.Itoa(q.Year) {
					return true
				}
			}
			id = m[1]
			return false
		})

		c.logger.Debug().Str("query", q.Title).Int("year", q.Year).Str("id", id).Msg("Find completed")
		return id, nil
	})
}

// FetchMovie scrapes a title page.
func (c *Client) FetchMovie(ctx context.Context, id string) (*metadata.RemoteRecord, error) {
	return c.fetchTitle(ctx, id)
}

// FetchSeries scrapes a title page.
func (c *Client) FetchSeries(ctx context.Context, id string) (*metadata.RemoteRecord, error) {
	return c.fetchTitle(ctx, id)
}

// FetchPerson scrapes a name page.
func (c *Client) FetchPerson(ctx context.Context, id string) (*metadata.RemoteRecord, error) {
	if !strings.HasPrefix(id, "nm") {
		return nil, metadata.ErrNotFound
	}
	ld, _, err := c.linkedData(ctx, "/name/"+id+"/")
	if err != nil {
		return nil, err
	}
	return &metadata.RemoteRecord{
		Kind:        kindOf(ld.Type),
		Title:       html.UnescapeString(ld.Name),
		Outline:     html.UnescapeString(ld.Description),
		ReleaseDate: parseDate(ld.BirthDate),
	}, nil
}

func (c *Client) fetchTitle(ctx context.Context, id string) (*metadata.RemoteRecord, error) {
	if !strings.HasPrefix(id, "tt") {
		return nil, metadata.ErrNotFound
	}

	ld, doc, err := c.linkedData(ctx, "/title/"+id+"/")
	if err != nil {
		return nil, err
	}

	rec := &metadata.RemoteRecord{
		Kind:        kindOf(ld.Type),
		Title:       html.UnescapeString(ld.Name),
		Outline:     html.UnescapeString(ld.Description),
		ReleaseDate: parseDate(ld.DatePublished),
		Genres:      ld.Genre,
	}
	if ld.AlternateName != "" {
		rec.OriginalTitle, rec.Title = rec.Title, html.UnescapeString(ld.AlternateName)
	}
	if ld.AggregateRating != nil {
		rec.Rating = ld.AggregateRating.RatingValue
	}
	for _, ref := range ld.Creator {
		if ref.Type == "Organization" && ref.Name != "" {
			rec.Studios = append(rec.Studios, ref.Name)
		}
	}

	// the hero title carries the localized name when JSON-LD has none
	if rec.Title == "" {
		rec.Title = strings.TrimSpace(doc.Find(`h1[data-testid="hero__pageTitle"]`).First().Text())
	}

	c.logger.Debug().Str("id", id).Str("title", rec.Title).Str("kind", string(rec.Kind)).Msg("Fetched IMDb title")
	return rec, nil
}

func (c *Client) linkedData(ctx context.Context, path string) (*LinkedData, *goquery.Document, error) {
	doc, err := c.document(ctx, path)
	if err != nil {
		return nil, nil, err
	}

	raw := doc.Find(`script[type="application/ld+json"]`).First().Text()
	if strings.TrimSpace(raw) == "" {
		return nil, nil, fmt.Errorf("%s %s: %w", sourceName, path, metadata.ErrNotFound)
	}

	var ld LinkedData
	if err := json.Unmarshal([]byte(raw), &ld); err != nil {
		return nil, nil, fmt.Errorf("failed to decode linked data: %w", err)
	}
	return &ld, doc, nil
}

func (c *Client) document(ctx context.Context, path string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.config.BaseURL, "/")+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("HTTP request failed")
		return nil, metadata.TransportError(sourceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, metadata.HTTPStatusError(sourceName, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

func kindOf(ldType string) metadata.MediaType {
	switch ldType {
	case "Movie", "TVMovie":
		return metadata.MediaTypeMovie
	case "TVSeries", "TVMiniSeries":
		return metadata.MediaTypeSeries
	case "TVEpisode":
		return metadata.MediaTypeEpisode
	case "Person":
		return metadata.MediaTypePerson
	}
	return ""
}

func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
