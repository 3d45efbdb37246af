package metadata

import (
	"context"
	"time"
)

// Query describes what a scanner should search for when an entity has no
// external id for it yet.
type Query struct {
	MediaType MediaType
	Title     string
	Year      int // 0 when unknown
}

// QueryFor builds the lookup query for an entity.
func QueryFor(e *Entity) Query {
	return Query{MediaType: e.MediaType, Title: e.Title, Year: e.Year}
}

// Scanner is the part every capability shares.
type Scanner interface {
	// Name returns the stable source name used for override flags,
	// source ids and retry budgets.
	Name() string

	// LookupID searches the source for an external id. An empty id with a
	// nil error means the source does not know the entity.
	LookupID(ctx context.Context, q Query) (string, error)
}

// MetadataScanner is a scanner that supplies descriptive fields.
type MetadataScanner interface {
	Scanner

	// Fields lists the fields the scanner is permitted to write.
	Fields() []FieldTag
}

// MovieScanner fetches movie metadata.
type MovieScanner interface {
	MetadataScanner
	FetchMovie(ctx context.Context, id string) (*RemoteRecord, error)
}

// SeriesScanner fetches series metadata.
type SeriesScanner interface {
	MetadataScanner
	FetchSeries(ctx context.Context, id string) (*RemoteRecord, error)
}

// EpisodeScanner fetches a single episode using the series' external id.
type EpisodeScanner interface {
	MetadataScanner
	FetchEpisode(ctx context.Context, seriesID string, season, episode int) (*RemoteRecord, error)
}

// PersonScanner fetches person metadata.
type PersonScanner interface {
	MetadataScanner
	FetchPerson(ctx context.Context, id string) (*RemoteRecord, error)
}

// ArtworkScanner proposes remote artwork of one artwork type.
type ArtworkScanner interface {
	Scanner
	FetchArtwork(ctx context.Context, id string, mediaType MediaType, artworkType ArtworkType) ([]RemoteArtwork, error)
}

// TrailerScanner proposes remote trailers.
type TrailerScanner interface {
	Scanner
	FetchTrailers(ctx context.Context, id string, mediaType MediaType) ([]RemoteArtwork, error)
}

// RemoteRecord is the normalized representation returned by a scanner.
// Zero values mean the source has no value for the field.
type RemoteRecord struct {
	Kind          MediaType // classification reported by the source, empty if unknown
	Title         string
	OriginalTitle string
	Plot          string
	Outline       string
	Tagline       string
	ReleaseDate   time.Time
	Year          int
	Genres        []string
	Studios       []string
	Countries     []string
	Rating        float64
	ExternalIDs   map[string]string // ids of the same title at other sources
	BoxedSets     []string          // collections the title belongs to
	Cast          []Credit
}

// Credit is a person credited on a title. ID is the person's id at the
// reporting source and may be empty.
type Credit struct {
	Source string
	ID     string
	Name   string
}

// Empty reports whether the record carries no usable data.
func (r *RemoteRecord) Empty() bool {
	if r == nil {
		return true
	}
	return r.Title == "" && r.OriginalTitle == "" && r.Plot == "" && r.Outline == "" &&
		r.Tagline == "" && r.ReleaseDate.IsZero() && r.Year <= 0 &&
		len(r.Genres) == 0 && len(r.Studios) == 0 && len(r.Countries) == 0 && r.Rating <= 0
}

// RemoteArtwork is an artwork or trailer url proposed by a scanner.
type RemoteArtwork struct {
	URL      string
	Priority int
}

// EntityLoader resolves related entities by id.
type EntityLoader interface {
	Load(ctx context.Context, id int64) (*Entity, error)
}
