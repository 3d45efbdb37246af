package tmdb

// SearchMoviesResponse is the response from TMDB movie search.
type SearchMoviesResponse struct {
	Page         int           `json:"page"`
	Results      []MovieResult `json:"results"`
	TotalResults int           `json:"total_results"`
}

// MovieResult is a movie from TMDB search results.
type MovieResult struct {
	ID          int     `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	VoteCount   int     `json:"vote_count"`
	Popularity  float64 `json:"popularity"`
}

// MovieDetails is the detailed movie info from TMDB.
type MovieDetails struct {
	ID                  int                 `json:"id"`
	Title               string              `json:"title"`
	OriginalTitle       string              `json:"original_title"`
	Overview            string              `json:"overview"`
	Tagline             string              `json:"tagline"`
	ReleaseDate         string              `json:"release_date"`
	VoteAverage         float64             `json:"vote_average"`
	ImdbID              string              `json:"imdb_id"`
	Genres              []Genre             `json:"genres"`
	ProductionCompanies []ProductionCompany `json:"production_companies,omitempty"`
	ProductionCountries []Country           `json:"production_countries,omitempty"`
	BelongsToCollection *Collection         `json:"belongs_to_collection,omitempty"`
	ExternalIDs         *ExternalIDs        `json:"external_ids,omitempty"`
	Credits             *Credits            `json:"credits,omitempty"`
}

// SearchTVResponse is the response from TMDB TV search.
type SearchTVResponse struct {
	Page         int        `json:"page"`
	Results      []TVResult `json:"results"`
	TotalResults int        `json:"total_results"`
}

// TVResult is a TV series from TMDB search results.
type TVResult struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	FirstAirDate string  `json:"first_air_date"`
	Popularity   float64 `json:"popularity"`
}

// TVDetails is the detailed TV series info from TMDB.
type TVDetails struct {
	ID            int          `json:"id"`
	Name          string       `json:"name"`
	OriginalName  string       `json:"original_name"`
	Overview      string       `json:"overview"`
	Tagline       string       `json:"tagline"`
	FirstAirDate  string       `json:"first_air_date"`
	VoteAverage   float64      `json:"vote_average"`
	Genres        []Genre      `json:"genres"`
	Networks      []Network    `json:"networks"`
	OriginCountry []string     `json:"origin_country"`
	ExternalIDs   *ExternalIDs `json:"external_ids,omitempty"`
	Credits       *Credits     `json:"credits,omitempty"`
}

// EpisodeDetails is the response from /tv/{id}/season/{s}/episode/{e}.
type EpisodeDetails struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview"`
	AirDate       string  `json:"air_date"`
	EpisodeNumber int     `json:"episode_number"`
	SeasonNumber  int     `json:"season_number"`
	StillPath     *string `json:"still_path"`
	VoteAverage   float64 `json:"vote_average"`
}

// SearchPersonResponse is the response from TMDB person search.
type SearchPersonResponse struct {
	Results []PersonResult `json:"results"`
}

// PersonResult is a person from TMDB search results.
type PersonResult struct {
	ID         int     `json:"id"`
	Name       string  `json:"name"`
	Popularity float64 `json:"popularity"`
}

// PersonDetails is the detailed person info from TMDB.
type PersonDetails struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Biography    string `json:"biography"`
	Birthday     string `json:"birthday"`
	PlaceOfBirth string `json:"place_of_birth"`
	ImdbID       string `json:"imdb_id"`
}

// Genre represents a genre from TMDB.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Network represents a TV network from TMDB.
type Network struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ProductionCompany represents a production company from TMDB.
type ProductionCompany struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Country represents a production country from TMDB.
type Country struct {
	Iso31661 string `json:"iso_3166_1"`
	Name     string `json:"name"`
}

// Collection is the box set a movie belongs to.
type Collection struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Credits is the appended credits block of a movie or series.
type Credits struct {
	Cast []CastMember `json:"cast"`
}

// CastMember is a credited actor.
type CastMember struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// ExternalIDs contains external IDs from TMDB.
type ExternalIDs struct {
	ImdbID string `json:"imdb_id"`
	TvdbID int    `json:"tvdb_id"`
}

// ErrorResponse is an error from the TMDB API.
type ErrorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

// ImagesResponse is the response from the /images endpoints.
type ImagesResponse struct {
	Posters   []ImageResult `json:"posters"`
	Backdrops []ImageResult `json:"backdrops"`
	Profiles  []ImageResult `json:"profiles"`
}

// ImageResult represents a single image from TMDB images endpoint.
type ImageResult struct {
	FilePath    string  `json:"file_path"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	VoteAverage float64 `json:"vote_average"`
	Iso6391     string  `json:"iso_639_1"`
}

// VideosResponse is the response from /movie/{id}/videos or /tv/{id}/videos.
type VideosResponse struct {
	Results []Video `json:"results"`
}

// Video represents a video (trailer, teaser, etc.) from TMDB.
type Video struct {
	Key      string `json:"key"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Name     string `json:"name"`
	Official bool   `json:"official"`
}
