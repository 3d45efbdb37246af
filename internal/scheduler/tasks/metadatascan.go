package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/reelscan/reelscan/internal/metadata"
	"github.com/reelscan/reelscan/internal/scheduler"
)

// MetadataScanQueue is the work queue name of the metadata scan.
const MetadataScanQueue = "metadatascan"

// MetadataStore is the storage the metadata scan needs.
type MetadataStore interface {
	FindStale(ctx context.Context, mediaType metadata.MediaType, maxResults int) ([]metadata.QueueItem, error)
	Load(ctx context.Context, id int64) (*metadata.Entity, error)
	UpdateScanned(ctx context.Context, e *metadata.Entity) error
	UpdateStatus(ctx context.Context, id int64, status metadata.Status, retries int) error
	SaveIfAbsent(ctx context.Context, e *metadata.Entity) (bool, error)
}

// Scanner runs the ordered scanners for one entity.
type Scanner interface {
	Scan(ctx context.Context, e *metadata.Entity) metadata.Outcome
}

// MetadataScanTask scans stale entities and commits the outcome.
type MetadataScanTask struct {
	store   MetadataStore
	scanner Scanner
	retry   *metadata.RetryPolicy
	logger  zerolog.Logger
}

// NewMetadataScanTask creates a new metadata scan task.
func NewMetadataScanTask(store MetadataStore, scanner Scanner, retry *metadata.RetryPolicy, logger zerolog.Logger) *MetadataScanTask {
	return &MetadataScanTask{
		store:   store,
		scanner: scanner,
		retry:   retry,
		logger:  logger.With().Str("task", "metadata-scan").Logger(),
	}
}

// Source returns the stalest entities across all scanned media types.
func (t *MetadataScanTask) Source(ctx context.Context, maxResults int) ([]metadata.QueueItem, error) {
	var all []metadata.QueueItem
	for _, mt := range metadata.MediaTypes {
		items, err := t.store.FindStale(ctx, mt, maxResults)
		if err != nil {
			return nil, fmt.Errorf("failed to find stale %s entities: %w", mt, err)
		}
		all = append(all, items...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Date.Before(all[j].Date)
	})
	if maxResults > 0 && len(all) > maxResults {
		all = all[:maxResults]
	}
	return all, nil
}

// Process scans one entity and persists the resulting status.
func (t *MetadataScanTask) Process(ctx context.Context, item metadata.QueueItem) error {
	e, err := t.store.Load(ctx, item.ID)
	if errors.Is(err, metadata.ErrNotFound) {
		t.logger.Debug().Int64("id", item.ID).Msg("Entity vanished before scan")
		return nil
	}
	if err != nil {
		return err
	}
	if !e.Status.NeedsScan() {
		t.logger.Debug().Int64("id", e.ID).Str("status", string(e.Status)).Msg("Entity no longer stale, skipping")
		return nil
	}

	outcome := t.scanner.Scan(ctx, e)

	logger := t.logger.With().
		Int64("id", e.ID).
		Str("mediaType", string(e.MediaType)).
		Str("identifier", e.Identifier).
		Str("result", string(outcome.Result)).
		Logger()

	switch outcome.Result {
	case metadata.ScanOK:
		e.Status = metadata.StatusTempDone
		e.Retries = 0
		logger.Info().Strs("sources", outcome.Sources).Str("title", e.Title).Msg("Metadata scanned")
		if err := t.store.UpdateScanned(ctx, e); err != nil {
			return err
		}
		t.addRelated(ctx, logger, e, outcome.Cast)
		return nil

	case metadata.ScanNoResult, metadata.ScanMissingID:
		if e.MediaType == metadata.MediaTypeEpisode || e.LastScanned.IsZero() {
			e.Status = metadata.StatusNotFound
		} else {
			e.Status = metadata.StatusDone
		}
		logger.Info().AnErr("reason", outcome.Err).Str("status", string(e.Status)).Msg("No metadata found")
		return t.store.UpdateScanned(ctx, e)

	case metadata.ScanTypeChange:
		logger.Warn().Err(outcome.Err).Str("scanner", outcome.Scanner).Msg("Source reports a different media type")
		return t.store.UpdateStatus(ctx, e.ID, metadata.StatusError, e.Retries)

	case metadata.ScanRetry:
		if t.retry.Decide(e.MediaType, outcome.Scanner, e.Retries) == metadata.ScanRetry {
			logger.Info().Err(outcome.Err).Str("scanner", outcome.Scanner).Int("retries", e.Retries+1).Msg("Scanner unavailable, will retry")
			return t.store.UpdateStatus(ctx, e.ID, e.Status, e.Retries+1)
		}
		logger.Warn().Err(outcome.Err).Str("scanner", outcome.Scanner).Int("retries", e.Retries).Msg("Retry budget exhausted")
		return t.store.UpdateStatus(ctx, e.ID, metadata.StatusError, e.Retries)

	default:
		logger.Warn().Err(outcome.Err).Str("scanner", outcome.Scanner).Msg("Metadata scan failed")
		return t.store.UpdateStatus(ctx, e.ID, metadata.StatusError, e.Retries)
	}
}

// addRelated creates the box sets an entity belongs to and the persons
// credited on it. Box sets have no metadata scanner and start DONE so the
// artwork scan picks them up; persons start NEW with the crediting source's
// id so their scan needs no search. Failures are logged only, the entity
// itself is already committed.
func (t *MetadataScanTask) addRelated(ctx context.Context, logger zerolog.Logger, e *metadata.Entity, cast []metadata.Credit) {
	var related []*metadata.Entity
	for _, name := range e.BoxedSets {
		set := metadata.NewEntity(metadata.MediaTypeBoxSet, name)
		set.Title = name
		set.Status = metadata.StatusDone
		related = append(related, set)
	}
	for _, c := range cast {
		person := metadata.NewEntity(metadata.MediaTypePerson, c.Name)
		person.Title = c.Name
		person.SetSourceID(c.Source, c.ID)
		related = append(related, person)
	}

	added := 0
	for _, r := range related {
		created, err := t.store.SaveIfAbsent(ctx, r)
		if err != nil {
			logger.Warn().Err(err).Str("related", string(r.MediaType)).Str("name", r.Identifier).Msg("Failed to add related entity")
			continue
		}
		if created {
			added++
		}
	}
	if added > 0 {
		logger.Debug().Int("added", added).Msg("Related entities added")
	}
}

// Fail marks an entity as failed after an unexpected processing error.
func (t *MetadataScanTask) Fail(ctx context.Context, item metadata.QueueItem, err error) {
	retries := 0
	if e, loadErr := t.store.Load(ctx, item.ID); loadErr == nil {
		retries = e.Retries
	}
	if updateErr := t.store.UpdateStatus(ctx, item.ID, metadata.StatusError, retries); updateErr != nil {
		t.logger.Error().Err(updateErr).AnErr("cause", err).Int64("id", item.ID).Msg("Failed to mark entity as failed")
	}
}

// RegisterMetadataScanTask builds the metadata scan queue and registers its
// jobs with the scheduler.
func RegisterMetadataScanTask(sched *scheduler.Scheduler, task *MetadataScanTask, settings scheduler.Settings, logger zerolog.Logger) (*scheduler.WorkQueue, error) {
	queue := scheduler.NewWorkQueue(MetadataScanQueue, task.Source, task, settings, &sync.Mutex{}, logger)
	if err := queue.Register(sched); err != nil {
		return nil, err
	}
	return queue, nil
}
