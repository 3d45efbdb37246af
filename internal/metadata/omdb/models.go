package omdb

// Response represents the OMDb API response.
type Response struct {
	Title      string   `json:"Title"`
	Year       string   `json:"Year"`
	Released   string   `json:"Released"`
	Genre      string   `json:"Genre"`
	Plot       string   `json:"Plot"`
	Country    string   `json:"Country"`
	Production string   `json:"Production"`
	Actors     string   `json:"Actors"`
	Ratings    []Rating `json:"Ratings"`
	ImdbRating string   `json:"imdbRating"`
	ImdbID     string   `json:"imdbID"`
	Type       string   `json:"Type"`
	Response   string   `json:"Response"`
	Error      string   `json:"Error,omitempty"`
}

// Rating represents a single rating from a source.
type Rating struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}
