package tvdb

// LoginRequest is the TVDB login request.
type LoginRequest struct {
	APIKey string `json:"apikey"`
}

// LoginResponse is the TVDB login response.
type LoginResponse struct {
	Status string `json:"status"`
	Data   struct {
		Token string `json:"token"`
	} `json:"data"`
}

// SearchResponse is the response from the TVDB search endpoint.
type SearchResponse struct {
	Status string         `json:"status"`
	Data   []SearchResult `json:"data"`
}

// SearchResult is a single TVDB search hit.
type SearchResult struct {
	Name   string `json:"name"`
	Type   string `json:"type"` // "series", "movie", etc.
	Year   string `json:"year"`
	TvdbID string `json:"tvdb_id"`
}

// SeriesResponse is the response from /series/{id}/extended.
type SeriesResponse struct {
	Status string       `json:"status"`
	Data   SeriesDetail `json:"data"`
}

// SeriesDetail is the extended series record.
type SeriesDetail struct {
	ID              int              `json:"id"`
	Name            string           `json:"name"`
	FirstAired      string           `json:"firstAired"`
	Score           float64          `json:"score"`
	OriginalCountry string           `json:"originalCountry"`
	Overview        string           `json:"overview"`
	Year            string           `json:"year"`
	Artworks        []Artwork        `json:"artworks"`
	Genres          []Genre          `json:"genres"`
	Companies       []Company        `json:"companies"`
	RemoteIDs       []SeriesRemoteID `json:"remoteIds"`
}

// Genre is a TVDB genre.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Company is a network or studio attached to a series.
type Company struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Artwork is a TVDB artwork record.
type Artwork struct {
	ID    int     `json:"id"`
	Image string  `json:"image"`
	Type  int     `json:"type"`
	Score float64 `json:"score"`
}

// Artwork types used by series records.
const (
	ArtworkTypeBanner     = 1
	ArtworkTypePoster     = 2
	ArtworkTypeBackground = 3
)

// SeriesRemoteID is an id of the series at another source.
type SeriesRemoteID struct {
	ID         string `json:"id"`
	Type       int    `json:"type"`
	SourceName string `json:"sourceName"`
}

// EpisodesResponse is the response from /series/{id}/episodes/default.
type EpisodesResponse struct {
	Status string `json:"status"`
	Data   struct {
		Episodes []Episode `json:"episodes"`
	} `json:"data"`
}

// Episode is a TVDB episode record.
type Episode struct {
	ID           int    `json:"id"`
	SeriesID     int    `json:"seriesId"`
	Name         string `json:"name"`
	Aired        string `json:"aired"`
	Overview     string `json:"overview"`
	SeasonNumber int    `json:"seasonNumber"`
	Number       int    `json:"number"`
}
