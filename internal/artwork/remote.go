package artwork

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/reelscan/reelscan/internal/metadata"
)

// Remote collects artwork and trailer proposals from the registered
// scanners.
type Remote struct {
	registry *metadata.Registry
	logger   zerolog.Logger
}

// NewRemote creates a remote artwork collector.
func NewRemote(registry *metadata.Registry, logger zerolog.Logger) *Remote {
	return &Remote{
		registry: registry,
		logger:   logger.With().Str("component", "artwork-remote").Logger(),
	}
}

// Fetch asks every scanner registered for the artwork type, in priority
// order. Scanners that do not know the entity are skipped. Failures of
// single scanners are returned joined alongside the candidates the others
// produced.
func (r *Remote) Fetch(ctx context.Context, e *metadata.Entity, artworkType metadata.ArtworkType) ([]metadata.ArtworkCandidate, error) {
	capability, ok := metadata.ArtworkCapability(artworkType)
	if !ok {
		return nil, nil
	}

	var (
		out  []metadata.ArtworkCandidate
		errs []error
	)
	for rank, s := range r.registry.Ordered(capability, e.MediaType) {
		id, err := r.externalID(ctx, s, e)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		if id == "" {
			continue
		}

		items, err := fetch(ctx, s, id, e.MediaType, artworkType)
		if errors.Is(err, metadata.ErrNotFound) {
			continue
		}
		if err != nil {
			r.logger.Warn().Err(err).
				Str("scanner", s.Name()).
				Int64("entityId", e.ID).
				Str("artworkType", string(artworkType)).
				Msg("Remote artwork lookup failed")
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		out = append(out, FromRemote(e.ID, artworkType, s.Name(), rank, items)...)
	}
	return out, errors.Join(errs...)
}

// externalID returns the id a scanner knows the entity by, searching when
// the entity has none yet. Episodes carry no remote ids of their own.
func (r *Remote) externalID(ctx context.Context, s metadata.Scanner, e *metadata.Entity) (string, error) {
	name := strings.ToLower(s.Name())
	if id := e.SourceID(name); id != "" {
		return id, nil
	}
	if e.MediaType == metadata.MediaTypeEpisode {
		return "", nil
	}

	id, err := s.LookupID(ctx, metadata.QueryFor(e))
	if errors.Is(err, metadata.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	e.SetSourceID(name, id)
	return strings.TrimSpace(id), nil
}

func fetch(ctx context.Context, s metadata.Scanner, id string, mediaType metadata.MediaType, artworkType metadata.ArtworkType) ([]metadata.RemoteArtwork, error) {
	if artworkType == metadata.ArtworkTypeTrailer {
		ts, ok := s.(metadata.TrailerScanner)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a trailer scanner", metadata.ErrCapabilityMismatch, s.Name())
		}
		return ts.FetchTrailers(ctx, id, mediaType)
	}

	as, ok := s.(metadata.ArtworkScanner)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an artwork scanner", metadata.ErrCapabilityMismatch, s.Name())
	}
	return as.FetchArtwork(ctx, id, mediaType, artworkType)
}
