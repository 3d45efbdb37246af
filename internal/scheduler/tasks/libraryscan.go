package tasks

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/reelscan/reelscan/internal/library/scanner"
	"github.com/reelscan/reelscan/internal/scheduler"
)

// FolderScanner indexes one library root.
type FolderScanner interface {
	ScanFolder(ctx context.Context, lib scanner.Library) (*scanner.ScanResult, error)
	IsActive(libraryID int64) bool
}

// LibraryScanTask handles scheduled library scanning.
type LibraryScanTask struct {
	scanner   FolderScanner
	libraries []scanner.Library
	logger    zerolog.Logger
}

// NewLibraryScanTask creates a new library scan task. Library ids are the
// 1-based positions of roots.
func NewLibraryScanTask(s FolderScanner, roots []string, logger zerolog.Logger) *LibraryScanTask {
	libraries := make([]scanner.Library, len(roots))
	for i, root := range roots {
		libraries[i] = scanner.Library{ID: int64(i + 1), Path: root}
	}
	return &LibraryScanTask{
		scanner:   s,
		libraries: libraries,
		logger:    logger.With().Str("task", "library-scan").Logger(),
	}
}

// Run executes the library scan task, scanning all library roots.
func (t *LibraryScanTask) Run(ctx context.Context) error {
	if len(t.libraries) == 0 {
		t.logger.Info().Msg("No library roots configured, skipping scan")
		return nil
	}

	t.logger.Info().Msg("Starting scheduled library scan")

	var errs []error
	scannedCount := 0

	for _, lib := range t.libraries {
		if t.scanner.IsActive(lib.ID) {
			t.logger.Info().Int64("libraryId", lib.ID).Str("path", lib.Path).Msg("Scan already active, skipping")
			continue
		}

		result, err := t.scanner.ScanFolder(ctx, lib)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.logger.Error().Err(err).Int64("libraryId", lib.ID).Str("path", lib.Path).Msg("Failed to scan library root")
			errs = append(errs, err)
			continue
		}

		for _, e := range result.Errors {
			t.logger.Warn().Str("path", e.Path).Str("error", e.Error).Msg("File could not be indexed")
		}
		scannedCount++
	}

	t.logger.Info().Int("scannedRoots", scannedCount).Int("totalRoots", len(t.libraries)).Msg("Scheduled library scan completed")

	return errors.Join(errs...)
}

// RegisterLibraryScanTask registers the library scan task with the scheduler.
func RegisterLibraryScanTask(sched *scheduler.Scheduler, task *LibraryScanTask, schedule string, runOnStart bool) error {
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          "library-scan",
		Name:        "Library Scan",
		Description: "Indexes new files in all library roots",
		Cron:        schedule,
		RunOnStart:  runOnStart,
		Func:        task.Run,
	})
}
