package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelscan/reelscan/internal/config"
	"github.com/reelscan/reelscan/internal/metadata"
)

func newTestClient(server *httptest.Server, cache *metadata.Cache) *Client {
	cfg := config.TMDBConfig{
		APIKey:       "test-api-key",
		BaseURL:      server.URL,
		ImageBaseURL: "https://image.tmdb.org/t/p",
		Timeout:      5,
	}
	return NewClient(cfg, cache, zerolog.Nop())
}

func TestClient_Name(t *testing.T) {
	client := NewClient(config.TMDBConfig{}, nil, zerolog.Nop())
	if client.Name() != "tmdb" {
		t.Errorf("Name() = %q, want %q", client.Name(), "tmdb")
	}
}

func TestClient_IsConfigured(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
		want   bool
	}{
		{"with key", "abc123", true},
		{"without key", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(config.TMDBConfig{APIKey: tt.apiKey}, nil, zerolog.Nop())
			if got := client.IsConfigured(); got != tt.want {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClient_LookupID_PrefersYearMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/movie" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("query"); got != "Avatar" {
			t.Errorf("unexpected query: %s", got)
		}
		if got := r.URL.Query().Get("year"); got != "2009" {
			t.Errorf("unexpected year: %s, want 2009", got)
		}
		if got := r.URL.Query().Get("api_key"); got != "test-api-key" {
			t.Errorf("unexpected api key: %s", got)
		}

		json.NewEncoder(w).Encode(SearchMoviesResponse{
			Results: []MovieResult{
				{ID: 76600, Title: "Avatar: The Way of Water", ReleaseDate: "2022-12-14", VoteCount: 12000},
				{ID: 19995, Title: "Avatar", ReleaseDate: "2009-12-15", VoteCount: 30000},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server, nil)
	id, err := client.LookupID(context.Background(), metadata.Query{MediaType: metadata.MediaTypeMovie, Title: "Avatar", Year: 2009})
	if err != nil {
		t.Fatalf("LookupID() error = %v", err)
	}
	if id != "19995" {
		t.Errorf("LookupID() = %q, want 19995", id)
	}
}

func TestClient_LookupID_NoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(SearchTVResponse{})
	}))
	defer server.Close()

	client := newTestClient(server, nil)
	id, err := client.LookupID(context.Background(), metadata.Query{MediaType: metadata.MediaTypeSeries, Title: "Nothing"})
	if err != nil {
		t.Fatalf("LookupID() error = %v", err)
	}
	if id != "" {
		t.Errorf("LookupID() = %q, want empty", id)
	}
}

func TestClient_LookupID_Cached(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(SearchTVResponse{Results: []TVResult{{ID: 1396, Name: "Breaking Bad"}}})
	}))
	defer server.Close()

	cache := metadata.NewCache(metadata.CacheConfig{TTL: time.Minute, MaxItems: 10})
	defer cache.Close()
	client := newTestClient(server, cache)

	q := metadata.Query{MediaType: metadata.MediaTypeSeries, Title: "Breaking Bad"}
	for i := 0; i < 3; i++ {
		id, err := client.LookupID(context.Background(), q)
		if err != nil {
			t.Fatalf("LookupID() error = %v", err)
		}
		if id != "1396" {
			t.Errorf("LookupID() = %q, want 1396", id)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 API call, got %d", got)
	}
}

func TestClient_FetchMovie(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/19995" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("append_to_response"); got != "external_ids,credits" {
			t.Errorf("append_to_response = %q", got)
		}

		json.NewEncoder(w).Encode(MovieDetails{
			ID:                  19995,
			Title:               "Avatar",
			OriginalTitle:       "Avatar",
			Overview:            "In the 22nd century, a paraplegic Marine is dispatched to Pandora. He becomes torn.",
			Tagline:             "Enter the world of Pandora.",
			ReleaseDate:         "2009-12-15",
			VoteAverage:         7.6,
			ImdbID:              "tt0499549",
			Genres:              []Genre{{ID: 28, Name: "Action"}, {ID: 878, Name: "Science Fiction"}},
			ProductionCompanies: []ProductionCompany{{ID: 574, Name: "Lightstorm Entertainment"}},
			ProductionCountries: []Country{{Iso31661: "US", Name: "United States of America"}},
			BelongsToCollection: &Collection{ID: 87096, Name: "Avatar Collection"},
			Credits: &Credits{Cast: []CastMember{
				{ID: 8691, Name: "Zoe Saldaña", Order: 1},
				{ID: 65731, Name: "Sam Worthington", Order: 0},
			}},
		})
	}))
	defer server.Close()

	client := newTestClient(server, nil)
	rec, err := client.FetchMovie(context.Background(), "19995")
	if err != nil {
		t.Fatalf("FetchMovie() error = %v", err)
	}

	if rec.Kind != metadata.MediaTypeMovie {
		t.Errorf("Kind = %q, want movie", rec.Kind)
	}
	if rec.Title != "Avatar" {
		t.Errorf("Title = %q, want Avatar", rec.Title)
	}
	if rec.ReleaseDate.Year() != 2009 {
		t.Errorf("ReleaseDate = %v, want 2009", rec.ReleaseDate)
	}
	if rec.Outline != "In the 22nd century, a paraplegic Marine is dispatched to Pandora." {
		t.Errorf("Outline = %q", rec.Outline)
	}
	if len(rec.Genres) != 2 || rec.Genres[1] != "Science Fiction" {
		t.Errorf("Genres = %v", rec.Genres)
	}
	if len(rec.Studios) != 1 || len(rec.Countries) != 1 || rec.Countries[0] != "US" {
		t.Errorf("Studios = %v, Countries = %v", rec.Studios, rec.Countries)
	}
	if rec.ExternalIDs["imdb"] != "tt0499549" {
		t.Errorf("ExternalIDs = %v", rec.ExternalIDs)
	}
	if len(rec.BoxedSets) != 1 || rec.BoxedSets[0] != "Avatar Collection" {
		t.Errorf("BoxedSets = %v", rec.BoxedSets)
	}
	want := []metadata.Credit{
		{Source: "tmdb", ID: "65731", Name: "Sam Worthington"},
		{Source: "tmdb", ID: "8691", Name: "Zoe Saldaña"},
	}
	if len(rec.Cast) != 2 || rec.Cast[0] != want[0] || rec.Cast[1] != want[1] {
		t.Errorf("Cast = %+v, want billing order %+v", rec.Cast, want)
	}
}

func TestClient_FetchEpisode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tv/1396/season/1/episode/2" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(EpisodeDetails{
			Name:    "Cat's in the Bag...",
			AirDate: "2008-01-27",
		})
	}))
	defer server.Close()

	client := newTestClient(server, nil)
	rec, err := client.FetchEpisode(context.Background(), "1396", 1, 2)
	if err != nil {
		t.Fatalf("FetchEpisode() error = %v", err)
	}
	if rec.Kind != metadata.MediaTypeEpisode || rec.Title != "Cat's in the Bag..." {
		t.Errorf("unexpected record: %+v", rec)
	}

	if _, err := client.FetchEpisode(context.Background(), "1396", -1, -1); !errors.Is(err, metadata.ErrNotFound) {
		t.Errorf("FetchEpisode() without numbers error = %v, want ErrNotFound", err)
	}
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		notFound  bool
		temporary bool
	}{
		{"not found", http.StatusNotFound, true, false},
		{"rate limited", http.StatusTooManyRequests, false, true},
		{"server error", http.StatusBadGateway, false, true},
		{"unauthorized", http.StatusUnauthorized, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(ErrorResponse{StatusCode: 7, StatusMessage: "nope"})
			}))
			defer server.Close()

			client := newTestClient(server, nil)
			_, err := client.FetchMovie(context.Background(), "1")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, metadata.ErrNotFound); got != tt.notFound {
				t.Errorf("errors.Is(ErrNotFound) = %v, want %v (err: %v)", got, tt.notFound, err)
			}
			if got := metadata.IsTemporary(err); got != tt.temporary {
				t.Errorf("IsTemporary() = %v, want %v (err: %v)", got, tt.temporary, err)
			}
		})
	}
}

func TestClient_FetchArtwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/19995/images" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(ImagesResponse{
			Posters: []ImageResult{
				{FilePath: "/low.jpg", VoteAverage: 4.1},
				{FilePath: "/high.jpg", VoteAverage: 5.6},
			},
			Backdrops: []ImageResult{{FilePath: "/backdrop.jpg"}},
		})
	}))
	defer server.Close()

	client := newTestClient(server, nil)
	art, err := client.FetchArtwork(context.Background(), "19995", metadata.MediaTypeMovie, metadata.ArtworkTypePoster)
	if err != nil {
		t.Fatalf("FetchArtwork() error = %v", err)
	}
	if len(art) != 2 {
		t.Fatalf("expected 2 posters, got %d", len(art))
	}
	if art[0].URL != "https://image.tmdb.org/t/p/original/high.jpg" || art[0].Priority != 0 {
		t.Errorf("art[0] = %+v", art[0])
	}
}

func TestClient_FetchTrailers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(VideosResponse{Results: []Video{
			{Key: "teaser", Site: "YouTube", Type: "Teaser"},
			{Key: "fan", Site: "YouTube", Type: "Trailer"},
			{Key: "vimeo", Site: "Vimeo", Type: "Trailer"},
			{Key: "official", Site: "YouTube", Type: "Trailer", Official: true},
		}})
	}))
	defer server.Close()

	client := newTestClient(server, nil)
	trailers, err := client.FetchTrailers(context.Background(), "19995", metadata.MediaTypeMovie)
	if err != nil {
		t.Fatalf("FetchTrailers() error = %v", err)
	}
	if len(trailers) != 2 {
		t.Fatalf("expected 2 trailers, got %d", len(trailers))
	}
	if trailers[0].URL != "https://www.youtube.com/watch?v=official" {
		t.Errorf("trailers[0] = %q, want the official trailer first", trailers[0].URL)
	}
}

func TestClient_NotConfigured(t *testing.T) {
	client := NewClient(config.TMDBConfig{}, nil, zerolog.Nop())
	if _, err := client.LookupID(context.Background(), metadata.Query{Title: "x"}); !errors.Is(err, ErrAPIKeyMissing) {
		t.Errorf("LookupID() error = %v, want ErrAPIKeyMissing", err)
	}
}

func TestClient_ImplementsCapabilities(t *testing.T) {
	var _ metadata.MovieScanner = (*Client)(nil)
	var _ metadata.SeriesScanner = (*Client)(nil)
	var _ metadata.EpisodeScanner = (*Client)(nil)
	var _ metadata.PersonScanner = (*Client)(nil)
	var _ metadata.ArtworkScanner = (*Client)(nil)
	var _ metadata.TrailerScanner = (*Client)(nil)
}
