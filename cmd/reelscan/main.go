package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/reelscan/reelscan/internal/artwork"
	"github.com/reelscan/reelscan/internal/config"
	"github.com/reelscan/reelscan/internal/database"
	"github.com/reelscan/reelscan/internal/library/scanner"
	"github.com/reelscan/reelscan/internal/logger"
	"github.com/reelscan/reelscan/internal/metadata"
	"github.com/reelscan/reelscan/internal/scheduler"
	"github.com/reelscan/reelscan/internal/scheduler/tasks"
	"github.com/reelscan/reelscan/internal/startup"
	"github.com/reelscan/reelscan/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	dumpConfig := flag.Bool("dump-config", false, "Print the effective configuration and exit")
	rescanID := flag.Int64("rescan", 0, "Queue the entity with this id for another scan and exit")
	reset := flag.Bool("reset", false, "With -rescan, drop provenance flags and recompute the title")
	runTaskID := flag.String("run-task", "", "Run the scheduled task with this id once the scheduler starts")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if *dumpConfig {
		if err := cfg.Dump(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		return
	}

	log := logger.New(logger.FromSettings(cfg.Logging))
	defer log.Close()

	log.Info().
		Str("version", config.Version).
		Str("logLevel", cfg.Logging.Level).
		Msg("starting reelscan")

	db, err := database.New(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	log.Info().Msg("running database migrations")
	if err := db.Migrate(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	store := storage.New(db.Conn(), log.Logger)

	if *rescanID > 0 {
		if err := store.Rescan(context.Background(), *rescanID, *reset); err != nil {
			log.Fatal().Err(err).Int64("id", *rescanID).Msg("failed to queue rescan")
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, store, *runTaskID, log.Logger); err != nil {
		log.Error().Err(err).Msg("reelscan stopped with error")
		return
	}
	log.Info().Msg("reelscan stopped")
}

// run wires the scanners, processors and queues and blocks until ctx ends.
func run(ctx context.Context, cfg *config.Config, store *storage.Store, runTaskID string, log zerolog.Logger) error {
	cache := metadata.NewCache(metadata.CacheConfig{
		TTL:      cfg.Metadata.Cache.TTL,
		MaxItems: cfg.Metadata.Cache.MaxItems,
	})
	defer cache.Close()

	entries := remoteScanners(cfg, cache, log)
	registry, err := buildRegistry(scannerOrder(cfg), entries)
	if err != nil {
		return err
	}
	for _, c := range allCapabilities {
		for _, mt := range metadata.MediaTypes {
			if names := registry.Names(c, mt); len(names) > 0 {
				log.Debug().Str("capability", string(c)).Str("mediaType", string(mt)).Strs("scanners", names).Msg("Scanner order")
			}
		}
	}

	go startup.CheckSources(ctx, testers(entries), startup.DefaultRetryConfig(), log)

	orchestrator := metadata.NewOrchestrator(registry, metadata.NewOverrideTracker(cfg), store, log)
	locator := artwork.NewLocator(store, cfg.Artwork, cfg, log)
	remote := artwork.NewRemote(registry, log)

	sched, err := scheduler.New(log)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	metadataScan := tasks.NewMetadataScanTask(store, orchestrator, metadata.NewRetryPolicy(cfg), log)
	metadataQueue, err := tasks.RegisterMetadataScanTask(sched, metadataScan, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to register metadata scan: %w", err)
	}

	artworkScan := tasks.NewArtworkScanTask(store, locator, remote, log)
	artworkQueue, err := tasks.RegisterArtworkScanTask(sched, artworkScan, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to register artwork scan: %w", err)
	}

	libraryScan := tasks.NewLibraryScanTask(scanner.NewService(store, log), cfg.Library.Roots, log)
	if err := tasks.RegisterLibraryScanTask(sched, libraryScan, cfg.Library.Schedule, cfg.Library.ScanOnBoot); err != nil {
		return fmt.Errorf("failed to register library scan: %w", err)
	}

	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	logSchedule(sched, log)

	if runTaskID != "" {
		if err := runTask(sched, runTaskID, log); err != nil {
			log.Error().Err(err).Str("id", runTaskID).Msg("failed to run task")
		}
	}

	<-ctx.Done()
	log.Info().Msg("received shutdown signal")

	err = sched.Stop()
	logPending([]*scheduler.WorkQueue{metadataQueue, artworkQueue}, log)
	return err
}
