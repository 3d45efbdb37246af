package metadata

import (
	"regexp"
	"strings"
	"time"
)

// MediaType identifies the kind of a metadata entity.
type MediaType string

const (
	MediaTypeMovie   MediaType = "movie"
	MediaTypeSeries  MediaType = "series"
	MediaTypeEpisode MediaType = "episode"
	MediaTypePerson  MediaType = "person"
	MediaTypeBoxSet  MediaType = "boxset"
)

// MediaTypes lists the entity types that are scanned for metadata.
var MediaTypes = []MediaType{MediaTypeMovie, MediaTypeSeries, MediaTypeEpisode, MediaTypePerson}

// Status is the processing state of an entity, candidate or stage file.
type Status string

const (
	StatusNew       Status = "NEW"
	StatusUpdated   Status = "UPDATED"
	StatusDone      Status = "DONE"
	StatusTempDone  Status = "TEMP_DONE"
	StatusNotFound  Status = "NOTFOUND"
	StatusError     Status = "ERROR"
	StatusDuplicate Status = "DUPLICATE"
	StatusDeleted   Status = "DELETED"
)

// NeedsScan reports whether an entity in this status is eligible for discovery.
func (s Status) NeedsScan() bool {
	return s == StatusNew || s == StatusUpdated
}

// FieldTag names an override-tracked descriptive field.
type FieldTag string

const (
	FieldTitle         FieldTag = "title"
	FieldOriginalTitle FieldTag = "original_title"
	FieldPlot          FieldTag = "plot"
	FieldOutline       FieldTag = "outline"
	FieldTagline       FieldTag = "tagline"
	FieldReleaseDate   FieldTag = "release_date"
	FieldYear          FieldTag = "year"
	FieldGenres        FieldTag = "genres"
	FieldStudios       FieldTag = "studios"
	FieldCountries     FieldTag = "countries"
)

// AllFields lists every override-tracked field in write order.
var AllFields = []FieldTag{
	FieldTitle, FieldOriginalTitle, FieldPlot, FieldOutline, FieldTagline,
	FieldReleaseDate, FieldYear, FieldGenres, FieldStudios, FieldCountries,
}

// Entity is a movie, series, episode, person or box set with its descriptive
// metadata and provenance ledger. Related entities are referenced by id and
// resolved through storage on demand.
type Entity struct {
	ID         int64
	MediaType  MediaType
	Identifier string

	Title         string // display name for persons and box sets
	OriginalTitle string
	Plot          string
	Outline       string
	Tagline       string
	ReleaseDate   time.Time
	Year          int
	Genres        []string
	Studios       []string
	Countries     []string

	SourceIDs     map[string]string
	Ratings       map[string]float64
	OverrideFlags map[FieldTag]string
	BoxedSets     []string

	SeriesID int64 // episodes only
	Season   int
	Episode  int

	Status        Status
	ArtworkStatus Status
	Retries       int
	LastScanned   time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewEntity creates an entity in status NEW whose title is derived from the
// natural identifier.
func NewEntity(mediaType MediaType, identifier string) *Entity {
	e := &Entity{
		MediaType:     mediaType,
		Identifier:    identifier,
		Status:        StatusNew,
		ArtworkStatus: StatusNew,
		Season:        -1,
		Episode:       -1,
	}
	e.Title = TitleFromIdentifier(identifier)
	return e
}

var identifierYear = regexp.MustCompile(`[._\s-]*\(?(19|20)\d{2}\)?$`)

// TitleFromIdentifier derives a display title from a natural identifier such
// as "the.matrix.1999" or "Avatar (2009)".
func TitleFromIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	title := identifierYear.ReplaceAllString(identifier, "")
	if title == "" {
		title = identifier
	}
	title = strings.NewReplacer(".", " ", "_", " ").Replace(title)
	return strings.Join(strings.Fields(title), " ")
}

// SourceID returns the external id for a source.
func (e *Entity) SourceID(source string) string {
	if e.SourceIDs == nil {
		return ""
	}
	return e.SourceIDs[strings.ToLower(source)]
}

// SetSourceID stores an external id for a source; empty ids are ignored.
func (e *Entity) SetSourceID(source, id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	if e.SourceIDs == nil {
		e.SourceIDs = make(map[string]string)
	}
	key := strings.ToLower(source)
	if e.SourceIDs[key] == id {
		return false
	}
	e.SourceIDs[key] = id
	return true
}

// AddBoxedSet records membership of a box set. Names compare
// case-insensitively; it reports whether the name was new.
func (e *Entity) AddBoxedSet(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	for _, existing := range e.BoxedSets {
		if strings.EqualFold(existing, name) {
			return false
		}
	}
	e.BoxedSets = append(e.BoxedSets, name)
	return true
}

// SetRating stores a positive rating reported by a source.
func (e *Entity) SetRating(source string, rating float64) {
	if rating <= 0 {
		return
	}
	if e.Ratings == nil {
		e.Ratings = make(map[string]float64)
	}
	e.Ratings[strings.ToLower(source)] = rating
}

// OverrideSource returns the source that last wrote a field.
func (e *Entity) OverrideSource(field FieldTag) string {
	if e.OverrideFlags == nil {
		return ""
	}
	return e.OverrideFlags[field]
}

// FieldEmpty reports whether a field currently holds no value.
func (e *Entity) FieldEmpty(field FieldTag) bool {
	switch field {
	case FieldTitle:
		return e.Title == ""
	case FieldOriginalTitle:
		return e.OriginalTitle == ""
	case FieldPlot:
		return e.Plot == ""
	case FieldOutline:
		return e.Outline == ""
	case FieldTagline:
		return e.Tagline == ""
	case FieldReleaseDate:
		return e.ReleaseDate.IsZero()
	case FieldYear:
		return e.Year <= 0
	case FieldGenres:
		return len(e.Genres) == 0
	case FieldStudios:
		return len(e.Studios) == 0
	case FieldCountries:
		return len(e.Countries) == 0
	}
	return true
}

// copyField writes a field from a remote record. It returns false when the
// record carries no value for the field.
func (e *Entity) copyField(field FieldTag, rec *RemoteRecord) bool {
	switch field {
	case FieldTitle:
		return setString(&e.Title, rec.Title)
	case FieldOriginalTitle:
		return setString(&e.OriginalTitle, rec.OriginalTitle)
	case FieldPlot:
		return setString(&e.Plot, rec.Plot)
	case FieldOutline:
		return setString(&e.Outline, rec.Outline)
	case FieldTagline:
		return setString(&e.Tagline, rec.Tagline)
	case FieldReleaseDate:
		if rec.ReleaseDate.IsZero() {
			return false
		}
		e.ReleaseDate = rec.ReleaseDate.UTC()
		return true
	case FieldYear:
		year := rec.Year
		if year <= 0 && !rec.ReleaseDate.IsZero() {
			year = rec.ReleaseDate.Year()
		}
		if year <= 0 {
			return false
		}
		e.Year = year
		return true
	case FieldGenres:
		return setList(&e.Genres, rec.Genres)
	case FieldStudios:
		return setList(&e.Studios, rec.Studios)
	case FieldCountries:
		return setList(&e.Countries, rec.Countries)
	}
	return false
}

// ResetTitle recomputes the title from the natural identifier and drops its
// provenance so any scanner may fill it again.
func (e *Entity) ResetTitle(tracker *OverrideTracker) {
	e.Title = TitleFromIdentifier(e.Identifier)
	tracker.ClearOverride(e, FieldTitle)
}

// ResetScanned empties every field a scan wrote, drops its provenance and
// recomputes the title from the identifier. Fields without a flag are kept.
func (e *Entity) ResetScanned(tracker *OverrideTracker) {
	for _, field := range AllFields {
		if e.OverrideSource(field) == "" {
			continue
		}
		e.clearField(field)
		tracker.ClearOverride(e, field)
	}
	e.ResetTitle(tracker)
}

func (e *Entity) clearField(field FieldTag) {
	switch field {
	case FieldTitle:
		e.Title = ""
	case FieldOriginalTitle:
		e.OriginalTitle = ""
	case FieldPlot:
		e.Plot = ""
	case FieldOutline:
		e.Outline = ""
	case FieldTagline:
		e.Tagline = ""
	case FieldReleaseDate:
		e.ReleaseDate = time.Time{}
	case FieldYear:
		e.Year = 0
	case FieldGenres:
		e.Genres = nil
	case FieldStudios:
		e.Studios = nil
	case FieldCountries:
		e.Countries = nil
	}
}

func setString(dst *string, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return false
	}
	*dst = value
	return true
}

func setList(dst *[]string, values []string) bool {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return false
	}
	*dst = out
	return true
}

// QueueItem is a lightweight reference to an entity awaiting work.
type QueueItem struct {
	ID        int64
	MediaType MediaType
	Date      time.Time
}
