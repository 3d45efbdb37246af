// Package artwork matches locally indexed image files to entities and turns
// local and remote proposals into de-duplicated artwork candidates.
package artwork

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/reelscan/reelscan/internal/config"
	"github.com/reelscan/reelscan/internal/metadata"
)

// FileIndex is the read side of the stage file index.
type FileIndex interface {
	VideoFiles(ctx context.Context, e *metadata.Entity) ([]metadata.StageFile, error)
	ImagesInDirectories(ctx context.Context, dirs, names []string) ([]metadata.StageFile, error)
	ImagesInFolder(ctx context.Context, folder string, libraryID int64, names []string) ([]metadata.StageFile, error)
	ImagesWithPrefix(ctx context.Context, prefix string) ([]metadata.StageFile, error)
}

// TokenSource supplies the configured file name tokens per artwork type.
type TokenSource interface {
	GetList(key string, def []string) []string
}

// Locator proposes artwork from local files only.
type Locator struct {
	files  FileIndex
	cfg    config.ArtworkConfig
	tokens TokenSource
	logger zerolog.Logger
}

// NewLocator creates a locator. tokens may be nil, in which case every
// artwork type uses its own name as the only token.
func NewLocator(files FileIndex, cfg config.ArtworkConfig, tokens TokenSource, logger zerolog.Logger) *Locator {
	return &Locator{
		files:  files,
		cfg:    cfg,
		tokens: tokens,
		logger: logger.With().Str("component", "artwork-locator").Logger(),
	}
}

// Locate returns candidates for the local image files matching an entity
// and artwork type.
func (l *Locator) Locate(ctx context.Context, e *metadata.Entity, artworkType metadata.ArtworkType) ([]metadata.ArtworkCandidate, error) {
	var (
		files []metadata.StageFile
		err   error
	)
	switch e.MediaType {
	case metadata.MediaTypePerson:
		if artworkType == metadata.ArtworkTypePhoto {
			files, err = l.photos(ctx, e)
		}
	case metadata.MediaTypeBoxSet:
		files, err = l.boxSet(ctx, e, artworkType)
	default:
		files, err = l.videoArtwork(ctx, e, artworkType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to locate %s for entity %d: %w", artworkType, e.ID, err)
	}

	l.logger.Debug().
		Int64("entityId", e.ID).
		Str("identifier", e.Identifier).
		Str("artworkType", string(artworkType)).
		Int("found", len(files)).
		Msg("Located local artwork")

	return FromFiles(e.ID, artworkType, files), nil
}

// Tokens returns the lower-cased file name tokens for an artwork type.
func (l *Locator) Tokens(artworkType metadata.ArtworkType) []string {
	def := []string{string(artworkType)}
	raw := def
	if l.tokens != nil {
		raw = l.tokens.GetList("artwork.tokens."+string(artworkType), def)
	}

	out := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (l *Locator) videoArtwork(ctx context.Context, e *metadata.Entity, artworkType metadata.ArtworkType) ([]metadata.StageFile, error) {
	switch artworkType {
	case metadata.ArtworkTypePoster, metadata.ArtworkTypeFanart, metadata.ArtworkTypeBanner, metadata.ArtworkTypeVideoImage:
	default:
		return nil, nil
	}

	videos, err := l.files.VideoFiles(ctx, e)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, nil
	}

	tokens := l.Tokens(artworkType)
	dirs, names := searchNames(artworkType, videos, tokens)

	found, err := l.files.ImagesInDirectories(ctx, dirs, names)
	if err != nil {
		return nil, err
	}

	if l.cfg.FolderName != "" {
		var library int64
		if l.cfg.LibraryCheck {
			library = videos[0].LibraryID
		}
		special, err := l.files.ImagesInFolder(ctx, l.cfg.FolderName, library, folderNames(artworkType, videos, tokens))
		if err != nil {
			return nil, err
		}
		found = mergeFiles(found, special)
	}
	return found, nil
}

// searchNames builds the directories to search and the lower-cased base
// names that count as a match in them.
func searchNames(artworkType metadata.ArtworkType, videos []metadata.StageFile, tokens []string) ([]string, []string) {
	names := newNameSet()
	names.add(tokens...)

	var dirs []string
	seenDirs := make(map[string]struct{})
	for _, f := range videos {
		if _, ok := seenDirs[f.Directory]; !ok {
			seenDirs[f.Directory] = struct{}{}
			dirs = append(dirs, f.Directory)
		}

		base := strings.ToLower(f.BaseName)
		dir := strings.ToLower(directoryName(f))
		if artworkType == metadata.ArtworkTypePoster {
			names.add(base, dir)
		}
		names.addWithTokens(base, tokens)
		names.addWithTokens(dir, tokens)
	}
	return dirs, names.list()
}

// folderNames builds the names searched in the dedicated artwork folder,
// derived from file base names only.
func folderNames(artworkType metadata.ArtworkType, videos []metadata.StageFile, tokens []string) []string {
	names := newNameSet()
	for _, f := range videos {
		base := strings.ToLower(f.BaseName)
		if artworkType == metadata.ArtworkTypePoster {
			names.add(base)
		}
		names.addWithTokens(base, tokens)
	}
	return names.list()
}

func (l *Locator) boxSet(ctx context.Context, e *metadata.Entity, artworkType metadata.ArtworkType) ([]metadata.StageFile, error) {
	switch artworkType {
	case metadata.ArtworkTypePoster, metadata.ArtworkTypeFanart, metadata.ArtworkTypeBanner:
	default:
		return nil, nil
	}

	name := e.Title
	if name == "" {
		name = e.Identifier
	}
	files, err := l.files.ImagesWithPrefix(ctx, "set_"+strings.ToLower(name)+"_")
	if err != nil {
		return nil, err
	}

	var out []metadata.StageFile
	for _, f := range files {
		if boxSetArtworkType(f.BaseName) == artworkType {
			out = append(out, f)
		}
	}
	return out, nil
}

// boxSetArtworkType classifies a set_<name>_* image by its suffix.
func boxSetArtworkType(baseName string) metadata.ArtworkType {
	lower := strings.ToLower(baseName)
	switch {
	case strings.HasSuffix(lower, "fanart"):
		return metadata.ArtworkTypeFanart
	case strings.HasSuffix(lower, "banner"):
		return metadata.ArtworkTypeBanner
	}
	return metadata.ArtworkTypePoster
}

func (l *Locator) photos(ctx context.Context, e *metadata.Entity) ([]metadata.StageFile, error) {
	if l.cfg.PhotoFolder == "" {
		return nil, nil
	}

	names := newNameSet()
	for _, n := range []string{e.Title, e.Identifier} {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		names.add(n)
		names.addWithTokens(n, []string{"photo"})
	}
	return l.files.ImagesInFolder(ctx, l.cfg.PhotoFolder, 0, names.list())
}

func directoryName(f metadata.StageFile) string {
	if f.DirectoryName != "" {
		return f.DirectoryName
	}
	return filepath.Base(f.Directory)
}

func mergeFiles(a, b []metadata.StageFile) []metadata.StageFile {
	seen := make(map[int64]struct{}, len(a))
	for _, f := range a {
		seen[f.ID] = struct{}{}
	}
	for _, f := range b {
		if _, ok := seen[f.ID]; ok {
			continue
		}
		seen[f.ID] = struct{}{}
		a = append(a, f)
	}
	return a
}

type nameSet struct {
	seen  map[string]struct{}
	order []string
}

func newNameSet() *nameSet {
	return &nameSet{seen: make(map[string]struct{})}
}

func (s *nameSet) add(names ...string) {
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := s.seen[n]; ok {
			continue
		}
		s.seen[n] = struct{}{}
		s.order = append(s.order, n)
	}
}

func (s *nameSet) addWithTokens(name string, tokens []string) {
	if name == "" {
		return
	}
	for _, t := range tokens {
		s.add(name+"."+t, name+"-"+t)
	}
}

func (s *nameSet) list() []string {
	return s.order
}
