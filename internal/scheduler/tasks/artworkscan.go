package tasks

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/reelscan/reelscan/internal/artwork"
	"github.com/reelscan/reelscan/internal/metadata"
	"github.com/reelscan/reelscan/internal/scheduler"
)

// ArtworkScanQueue is the work queue name of the artwork scan.
const ArtworkScanQueue = "artworkscan"

// ArtworkStore is the storage the artwork scan needs.
type ArtworkStore interface {
	FindArtworkStale(ctx context.Context, maxResults int) ([]metadata.QueueItem, error)
	Load(ctx context.Context, id int64) (*metadata.Entity, error)
	UpdateArtworkStatus(ctx context.Context, id int64, status metadata.Status) error
	Candidates(ctx context.Context, entityID int64, artworkType metadata.ArtworkType) ([]metadata.ArtworkCandidate, error)
	AddCandidates(ctx context.Context, candidates []metadata.ArtworkCandidate) error
}

// ArtworkSource proposes candidates of one artwork type for an entity.
type ArtworkSource interface {
	Locate(ctx context.Context, e *metadata.Entity, artworkType metadata.ArtworkType) ([]metadata.ArtworkCandidate, error)
}

// RemoteArtworkSource proposes candidates from remote scanners.
type RemoteArtworkSource interface {
	Fetch(ctx context.Context, e *metadata.Entity, artworkType metadata.ArtworkType) ([]metadata.ArtworkCandidate, error)
}

// ArtworkScanTask collects local and remote artwork candidates for scanned
// entities.
type ArtworkScanTask struct {
	store   ArtworkStore
	locator ArtworkSource
	remote  RemoteArtworkSource
	logger  zerolog.Logger
}

// NewArtworkScanTask creates a new artwork scan task. remote may be nil.
func NewArtworkScanTask(store ArtworkStore, locator ArtworkSource, remote RemoteArtworkSource, logger zerolog.Logger) *ArtworkScanTask {
	return &ArtworkScanTask{
		store:   store,
		locator: locator,
		remote:  remote,
		logger:  logger.With().Str("task", "artwork-scan").Logger(),
	}
}

// Source returns scanned entities whose artwork is outstanding.
func (t *ArtworkScanTask) Source(ctx context.Context, maxResults int) ([]metadata.QueueItem, error) {
	return t.store.FindArtworkStale(ctx, maxResults)
}

// artworkTypes lists what is collected for an entity, trailers included.
func artworkTypes(mediaType metadata.MediaType) []metadata.ArtworkType {
	types := metadata.ArtworkTypesFor(mediaType)
	if mediaType == metadata.MediaTypeMovie || mediaType == metadata.MediaTypeSeries {
		types = append(types, metadata.ArtworkTypeTrailer)
	}
	return types
}

// Process collects candidates for every artwork type of one entity. The
// entity ends DONE when it has at least one live candidate and NOTFOUND
// otherwise.
func (t *ArtworkScanTask) Process(ctx context.Context, item metadata.QueueItem) error {
	e, err := t.store.Load(ctx, item.ID)
	if errors.Is(err, metadata.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	logger := t.logger.With().Int64("id", e.ID).Str("mediaType", string(e.MediaType)).Str("identifier", e.Identifier).Logger()

	var added, live int
	for _, artworkType := range artworkTypes(e.MediaType) {
		proposed, err := t.locator.Locate(ctx, e, artworkType)
		if err != nil {
			return err
		}

		if t.remote != nil {
			remote, err := t.remote.Fetch(ctx, e, artworkType)
			if err != nil {
				logger.Warn().Err(err).Str("artworkType", string(artworkType)).Msg("Some remote artwork sources failed")
			}
			proposed = append(proposed, remote...)
		}

		existing, err := t.store.Candidates(ctx, e.ID, artworkType)
		if err != nil {
			return err
		}
		fresh := artwork.Dedupe(existing, proposed)
		if err := t.store.AddCandidates(ctx, fresh); err != nil {
			return err
		}

		added += len(fresh)
		for _, c := range existing {
			if c.Status != metadata.StatusDeleted {
				live++
			}
		}
		live += len(fresh)
	}

	status := metadata.StatusDone
	if live == 0 {
		status = metadata.StatusNotFound
	}

	logger.Info().Int("added", added).Int("candidates", live).Str("artworkStatus", string(status)).Msg("Artwork scanned")
	return t.store.UpdateArtworkStatus(ctx, e.ID, status)
}

// Fail marks the artwork of an entity as failed.
func (t *ArtworkScanTask) Fail(ctx context.Context, item metadata.QueueItem, err error) {
	if updateErr := t.store.UpdateArtworkStatus(ctx, item.ID, metadata.StatusError); updateErr != nil {
		t.logger.Error().Err(updateErr).AnErr("cause", err).Int64("id", item.ID).Msg("Failed to mark artwork as failed")
	}
}

// RegisterArtworkScanTask builds the artwork scan queue and registers its
// jobs with the scheduler.
func RegisterArtworkScanTask(sched *scheduler.Scheduler, task *ArtworkScanTask, settings scheduler.Settings, logger zerolog.Logger) (*scheduler.WorkQueue, error) {
	queue := scheduler.NewWorkQueue(ArtworkScanQueue, task.Source, task, settings, &sync.Mutex{}, logger)
	if err := queue.Register(sched); err != nil {
		return nil, err
	}
	return queue, nil
}
