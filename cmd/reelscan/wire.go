package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/reelscan/reelscan/internal/config"
	"github.com/reelscan/reelscan/internal/metadata"
	"github.com/reelscan/reelscan/internal/metadata/imdb"
	"github.com/reelscan/reelscan/internal/metadata/omdb"
	"github.com/reelscan/reelscan/internal/metadata/tmdb"
	"github.com/reelscan/reelscan/internal/metadata/tvdb"
	"github.com/reelscan/reelscan/internal/scheduler"
	"github.com/reelscan/reelscan/internal/startup"
)

var allCapabilities = []metadata.Capability{
	metadata.CapabilityMovie,
	metadata.CapabilitySeries,
	metadata.CapabilityEpisode,
	metadata.CapabilityPerson,
	metadata.CapabilityPoster,
	metadata.CapabilityFanart,
	metadata.CapabilityBanner,
	metadata.CapabilityPhoto,
	metadata.CapabilityVideoImage,
	metadata.CapabilityTrailer,
}

// remoteScanner is a scanner backed by a remote service.
type remoteScanner interface {
	metadata.Scanner
	IsConfigured() bool
	Test(ctx context.Context) error
}

// scannerEntry is a remote scanner with the media types it serves.
type scannerEntry struct {
	scanner    remoteScanner
	mediaTypes []metadata.MediaType
}

// remoteScanners returns the configured scanners in default priority order.
func remoteScanners(cfg *config.Config, cache *metadata.Cache, logger zerolog.Logger) []scannerEntry {
	candidates := []scannerEntry{
		{tmdb.NewClient(cfg.Metadata.TMDB, cache, logger), []metadata.MediaType{
			metadata.MediaTypeMovie, metadata.MediaTypeSeries, metadata.MediaTypeEpisode, metadata.MediaTypePerson,
		}},
		{tvdb.NewClient(cfg.Metadata.TVDB, cache, logger), []metadata.MediaType{
			metadata.MediaTypeSeries, metadata.MediaTypeEpisode,
		}},
		{omdb.NewClient(cfg.Metadata.OMDB, cache, logger), []metadata.MediaType{
			metadata.MediaTypeMovie, metadata.MediaTypeSeries,
		}},
		{imdb.NewClient(cfg.Metadata.IMDB, cache, logger), []metadata.MediaType{
			metadata.MediaTypeMovie, metadata.MediaTypeSeries, metadata.MediaTypePerson,
		}},
	}

	var out []scannerEntry
	for _, c := range candidates {
		if !c.scanner.IsConfigured() {
			logger.Info().Str("scanner", c.scanner.Name()).Msg("Scanner not configured, skipping")
			continue
		}
		out = append(out, c)
	}
	return out
}

// scannerOrder reads scanner.priority.<capability> for every capability.
func scannerOrder(cfg *config.Config) map[metadata.Capability][]string {
	order := make(map[metadata.Capability][]string)
	for _, c := range allCapabilities {
		if names := cfg.GetList("scanner.priority."+string(c), nil); len(names) > 0 {
			order[c] = names
		}
	}
	return order
}

// buildRegistry registers every scanner for each capability it implements
// on the media types it serves, then seals the registry.
func buildRegistry(order map[metadata.Capability][]string, entries []scannerEntry) (*metadata.Registry, error) {
	registry := metadata.NewRegistry(order)

	for _, entry := range entries {
		for _, mt := range entry.mediaTypes {
			var caps []metadata.Capability
			if c, ok := metadata.MetadataCapability(mt); ok {
				caps = append(caps, c)
			}
			types := metadata.ArtworkTypesFor(mt)
			if mt == metadata.MediaTypeMovie || mt == metadata.MediaTypeSeries {
				types = append(types, metadata.ArtworkTypeTrailer)
			}
			for _, at := range types {
				if c, ok := metadata.ArtworkCapability(at); ok {
					caps = append(caps, c)
				}
			}

			for _, c := range caps {
				err := registry.Register(c, mt, entry.scanner)
				if errors.Is(err, metadata.ErrCapabilityMismatch) {
					continue
				}
				if err != nil {
					return nil, fmt.Errorf("failed to register %s: %w", entry.scanner.Name(), err)
				}
			}
		}
	}

	registry.Seal()
	return registry, nil
}

func testers(entries []scannerEntry) []startup.Tester {
	out := make([]startup.Tester, len(entries))
	for i, e := range entries {
		out[i] = e.scanner
	}
	return out
}

// logSchedule logs every registered task with its next run.
func logSchedule(sched *scheduler.Scheduler, log zerolog.Logger) {
	for _, task := range sched.ListTasks() {
		event := log.Info().Str("id", task.ID).Str("name", task.Name)
		if task.NextRun != nil {
			event = event.Time("nextRun", *task.NextRun)
		}
		event.Msg("Scheduled task")
	}
}

// runTask triggers a registered task outside its schedule.
func runTask(sched *scheduler.Scheduler, id string, log zerolog.Logger) error {
	task, err := sched.GetTask(id)
	if err != nil {
		return err
	}
	log.Info().Str("id", task.ID).Str("name", task.Name).Str("description", task.Description).Msg("Running task on request")
	return sched.RunNow(id)
}

// logPending warns about queues that stopped with discovered items left.
func logPending(queues []*scheduler.WorkQueue, log zerolog.Logger) {
	for _, q := range queues {
		if q.Pending() {
			log.Warn().Str("queue", q.Name()).Msg("Queue stopped with pending items")
		}
	}
}
