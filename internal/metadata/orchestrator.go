package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// ScanResult is the outcome of scanning an entity.
type ScanResult string

const (
	ScanOK         ScanResult = "OK"
	ScanMissingID  ScanResult = "MISSING_ID"
	ScanNoResult   ScanResult = "NO_RESULT"
	ScanTypeChange ScanResult = "TYPE_CHANGE"
	ScanRetry      ScanResult = "RETRY"
	ScanError      ScanResult = "ERROR"
)

// Outcome is the result of one orchestrated scan. Scanner names the scanner
// that decided a RETRY, TYPE_CHANGE or ERROR result.
type Outcome struct {
	Result  ScanResult
	Scanner string
	Sources []string // scanners that contributed data
	Cast    []Credit // persons credited by the contributing scanners, one per name
	Err     error
}

// Orchestrator drives an entity through its ordered metadata scanners and
// applies the override policy to every field write.
type Orchestrator struct {
	registry *Registry
	tracker  *OverrideTracker
	loader   EntityLoader
	logger   zerolog.Logger
}

// NewOrchestrator creates an orchestrator. loader resolves the series of an
// episode and may be nil when episodes are not scanned.
func NewOrchestrator(registry *Registry, tracker *OverrideTracker, loader EntityLoader, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		tracker:  tracker,
		loader:   loader,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
	}
}

// Scan runs every registered scanner for the entity's media type in
// priority order. Fields accumulate across scanners; a temporary failure or
// a type change stops the scan immediately. MISSING_ID is returned only when
// no scanner had an id for the entity.
func (o *Orchestrator) Scan(ctx context.Context, e *Entity) Outcome {
	capability, ok := MetadataCapability(e.MediaType)
	if !ok {
		return Outcome{Result: ScanNoResult, Err: fmt.Errorf("%w for %s", ErrNoScanner, e.MediaType)}
	}

	scanners := o.registry.Ordered(capability, e.MediaType)
	if len(scanners) == 0 {
		return Outcome{Result: ScanNoResult, Err: fmt.Errorf("%w for %s", ErrNoScanner, e.MediaType)}
	}

	var (
		sources     []string
		cast        []Credit
		missing     int
		failure     error
		failedBy    string
		logIdentity = o.logger.With().Int64("id", e.ID).Str("identifier", e.Identifier).Str("mediaType", string(e.MediaType)).Logger()
	)

	for _, s := range scanners {
		result, rec, err := o.scanWith(ctx, s, e)

		logIdentity.Debug().
			Str("scanner", s.Name()).
			Str("result", string(result)).
			AnErr("error", err).
			Msg("Scanner finished")

		switch result {
		case ScanOK:
			sources = append(sources, s.Name())
			cast = mergeCast(cast, rec.Cast, s.Name())
		case ScanMissingID:
			missing++
		case ScanRetry, ScanTypeChange:
			return Outcome{Result: result, Scanner: s.Name(), Sources: sources, Err: err}
		case ScanError:
			logIdentity.Warn().Err(err).Str("scanner", s.Name()).Msg("Scanner failed")
			failure, failedBy = err, s.Name()
		}
	}

	switch {
	case len(sources) > 0:
		return Outcome{Result: ScanOK, Sources: sources, Cast: cast}
	case failure != nil:
		return Outcome{Result: ScanError, Scanner: failedBy, Err: failure}
	case missing == len(scanners):
		return Outcome{Result: ScanMissingID}
	default:
		return Outcome{Result: ScanNoResult}
	}
}

func (o *Orchestrator) scanWith(ctx context.Context, s Scanner, e *Entity) (ScanResult, *RemoteRecord, error) {
	id, err := o.externalID(ctx, s, e)
	if err != nil {
		return classify(err), nil, err
	}
	if id == "" {
		return ScanMissingID, nil, nil
	}

	rec, err := o.fetch(ctx, s, e, id)
	if err != nil {
		return classify(err), nil, err
	}
	if rec.Empty() {
		return ScanNoResult, nil, nil
	}
	if rec.Kind != "" && rec.Kind != e.MediaType {
		return ScanTypeChange, nil, fmt.Errorf("%s reports %s %s for %s %q", s.Name(), rec.Kind, id, e.MediaType, e.Identifier)
	}

	o.apply(e, s, rec)
	return ScanOK, rec, nil
}

// mergeCast appends credits whose names are not listed yet.
func mergeCast(cast, credits []Credit, source string) []Credit {
	for _, c := range credits {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			continue
		}
		dup := false
		for _, existing := range cast {
			if strings.EqualFold(existing.Name, c.Name) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		if c.Source == "" {
			c.Source = source
		}
		cast = append(cast, c)
	}
	return cast
}

// externalID returns the id the scanner knows the entity by. Episodes are
// fetched through the external id of their series.
func (o *Orchestrator) externalID(ctx context.Context, s Scanner, e *Entity) (string, error) {
	name := strings.ToLower(s.Name())

	if e.MediaType == MediaTypeEpisode {
		if o.loader == nil || e.SeriesID == 0 {
			return "", nil
		}
		series, err := o.loader.Load(ctx, e.SeriesID)
		if err != nil {
			return "", fmt.Errorf("failed to load series %d: %w", e.SeriesID, err)
		}
		if id := series.SourceID(name); id != "" {
			return id, nil
		}
		return s.LookupID(ctx, QueryFor(series))
	}

	if id := e.SourceID(name); id != "" {
		return id, nil
	}

	id, err := s.LookupID(ctx, QueryFor(e))
	if err != nil {
		return "", err
	}
	e.SetSourceID(name, id)
	return strings.TrimSpace(id), nil
}

func (o *Orchestrator) fetch(ctx context.Context, s Scanner, e *Entity, id string) (*RemoteRecord, error) {
	switch e.MediaType {
	case MediaTypeMovie:
		if ms, ok := s.(MovieScanner); ok {
			return ms.FetchMovie(ctx, id)
		}
	case MediaTypeSeries:
		if ss, ok := s.(SeriesScanner); ok {
			return ss.FetchSeries(ctx, id)
		}
	case MediaTypeEpisode:
		if es, ok := s.(EpisodeScanner); ok {
			return es.FetchEpisode(ctx, id, e.Season, e.Episode)
		}
	case MediaTypePerson:
		if ps, ok := s.(PersonScanner); ok {
			return ps.FetchPerson(ctx, id)
		}
	}
	return nil, fmt.Errorf("%w: %s cannot fetch %s", ErrCapabilityMismatch, s.Name(), e.MediaType)
}

func (o *Orchestrator) apply(e *Entity, s Scanner, rec *RemoteRecord) {
	name := s.Name()

	if ms, ok := s.(MetadataScanner); ok {
		for _, field := range ms.Fields() {
			o.tracker.Apply(e, field, name, rec)
		}
	}

	e.SetRating(name, rec.Rating)
	for _, set := range rec.BoxedSets {
		e.AddBoxedSet(set)
	}

	for source, id := range rec.ExternalIDs {
		if e.SourceID(source) == "" {
			e.SetSourceID(source, id)
		}
	}
}

func classify(err error) ScanResult {
	switch {
	case IsTemporary(err):
		return ScanRetry
	case errors.Is(err, ErrNotFound):
		return ScanNoResult
	default:
		return ScanError
	}
}
