// Package scanner walks library roots and records the files it finds as
// stage files, creating the entities their names describe.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/reelscan/reelscan/internal/metadata"
)

// Store is the storage the library scanner writes to.
type Store interface {
	FindByIdentifier(ctx context.Context, mediaType metadata.MediaType, identifier string) (*metadata.Entity, error)
	Save(ctx context.Context, e *metadata.Entity) error
	HasStageFile(ctx context.Context, directory, baseName, extension string) (bool, error)
	AddStageFile(ctx context.Context, f *metadata.StageFile) error
}

// Library is one indexed root folder.
type Library struct {
	ID   int64
	Path string
}

// ScanError records a path that could not be indexed.
type ScanError struct {
	Path  string
	Error string
}

// ScanResult summarizes one library walk.
type ScanResult struct {
	Library       Library
	TotalFiles    int
	Indexed       int
	Known         int
	Skipped       int
	EntitiesAdded int
	Errors        []ScanError
}

// Service records library files as stage files.
type Service struct {
	store  Store
	logger zerolog.Logger

	mu     sync.Mutex
	active map[int64]bool
}

// NewService creates a new library scanner.
func NewService(store Store, logger zerolog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With().Str("component", "library-scanner").Logger(),
		active: make(map[int64]bool),
	}
}

// IsActive reports whether a library is being indexed.
func (s *Service) IsActive(libraryID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[libraryID]
}

func (s *Service) begin(libraryID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[libraryID] {
		return false
	}
	s.active[libraryID] = true
	return true
}

func (s *Service) end(libraryID int64) {
	s.mu.Lock()
	delete(s.active, libraryID)
	s.mu.Unlock()
}

// ScanFolder walks a library and records every video, image and nfo file not
// indexed before. Video files create or join the movie, series or episode
// their path names. Unreadable paths are recorded in the result and the
// walk continues.
func (s *Service) ScanFolder(ctx context.Context, lib Library) (*ScanResult, error) {
	if !s.begin(lib.ID) {
		return nil, fmt.Errorf("library %d is already being scanned", lib.ID)
	}
	defer s.end(lib.ID)

	result := &ScanResult{Library: lib}
	logger := s.logger.With().Int64("libraryId", lib.ID).Str("path", lib.Path).Logger()
	logger.Info().Msg("Starting library scan")

	err := filepath.WalkDir(lib.Path, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return s.processEntry(ctx, lib, path, d, walkErr, result)
	})
	if err != nil {
		return result, err
	}

	logger.Info().
		Int("totalFiles", result.TotalFiles).
		Int("indexed", result.Indexed).
		Int("known", result.Known).
		Int("skipped", result.Skipped).
		Int("entitiesAdded", result.EntitiesAdded).
		Int("errors", len(result.Errors)).
		Msg("Library scan completed")
	return result, nil
}

func (s *Service) processEntry(ctx context.Context, lib Library, path string, d fs.DirEntry, walkErr error, result *ScanResult) error {
	if walkErr != nil {
		if path == lib.Path {
			return walkErr
		}
		result.Errors = append(result.Errors, ScanError{Path: path, Error: walkErr.Error()})
		return nil //nolint:nilerr // recorded, walk continues
	}

	if d.IsDir() {
		if path != lib.Path && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return nil
	}

	fileType, ok := Classify(d.Name())
	if !ok {
		result.Skipped++
		return nil
	}
	result.TotalFiles++

	ext := filepath.Ext(d.Name())
	f := &metadata.StageFile{
		LibraryID: lib.ID,
		Directory: filepath.Dir(path),
		BaseName:  strings.TrimSuffix(d.Name(), ext),
		Extension: strings.TrimPrefix(ext, "."),
		FileType:  fileType,
	}

	known, err := s.store.HasStageFile(ctx, f.Directory, f.BaseName, f.Extension)
	if err != nil {
		return err
	}
	if known {
		result.Known++
		return nil
	}

	if fileType == metadata.FileTypeVideo {
		f.Extra = IsExtraFile(d.Name())
		if !f.Extra {
			owner, added, err := s.resolveEntity(ctx, ParsePath(path))
			if err != nil {
				result.Errors = append(result.Errors, ScanError{Path: path, Error: err.Error()})
				return nil
			}
			if owner != nil {
				f.EntityID = owner.ID
			}
			result.EntitiesAdded += added
		}
	}

	if err := s.store.AddStageFile(ctx, f); err != nil {
		return err
	}
	result.Indexed++
	return nil
}

// resolveEntity finds or creates the entity a video belongs to and returns
// it with the number of entities created.
func (s *Service) resolveEntity(ctx context.Context, parsed *Parsed) (*metadata.Entity, int, error) {
	if parsed.Title == "" {
		return nil, 0, fmt.Errorf("no title in %q", parsed.FilePath)
	}

	if !parsed.IsTV {
		return s.findOrCreate(ctx, metadata.MediaTypeMovie, parsed.MovieIdentifier(), func(e *metadata.Entity) {
			e.Year = parsed.Year
		})
	}

	series, added, err := s.findOrCreate(ctx, metadata.MediaTypeSeries, parsed.SeriesIdentifier(), nil)
	if err != nil || parsed.IsSeasonPack {
		return series, added, err
	}

	episode, addedEpisode, err := s.findOrCreate(ctx, metadata.MediaTypeEpisode, parsed.EpisodeIdentifier(), func(e *metadata.Entity) {
		e.SeriesID = series.ID
		e.Season = parsed.Season
		e.Episode = parsed.Episode
	})
	return episode, added + addedEpisode, err
}

func (s *Service) findOrCreate(ctx context.Context, mediaType metadata.MediaType, identifier string, init func(*metadata.Entity)) (*metadata.Entity, int, error) {
	e, err := s.store.FindByIdentifier(ctx, mediaType, identifier)
	if err == nil {
		return e, 0, nil
	}
	if !errors.Is(err, metadata.ErrNotFound) {
		return nil, 0, err
	}

	e = metadata.NewEntity(mediaType, identifier)
	if init != nil {
		init(e)
	}
	if err := s.store.Save(ctx, e); err != nil {
		return nil, 0, err
	}

	s.logger.Debug().Int64("id", e.ID).Str("mediaType", string(mediaType)).Str("identifier", identifier).Msg("Entity discovered")
	return e, 1, nil
}
