package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelscan/reelscan/internal/artwork"
	"github.com/reelscan/reelscan/internal/config"
	"github.com/reelscan/reelscan/internal/metadata"
	"github.com/reelscan/reelscan/internal/storage"
	"github.com/reelscan/reelscan/internal/testutil"
)

type noTokens struct{}

func (noTokens) GetList(_ string, def []string) []string { return def }

type stubRemote struct {
	byType map[metadata.ArtworkType][]metadata.ArtworkCandidate
	err    error
}

func (r *stubRemote) Fetch(_ context.Context, e *metadata.Entity, artworkType metadata.ArtworkType) ([]metadata.ArtworkCandidate, error) {
	out := make([]metadata.ArtworkCandidate, 0, len(r.byType[artworkType]))
	for _, c := range r.byType[artworkType] {
		c.EntityID = e.ID
		out = append(out, c)
	}
	return out, r.err
}

func remoteCandidate(artworkType metadata.ArtworkType, url string) metadata.ArtworkCandidate {
	return metadata.ArtworkCandidate{
		ArtworkType: artworkType,
		Source:      "tmdb",
		URL:         url,
		HashCode:    artwork.HashCode(url),
		Priority:    500,
	}
}

func scannedMovie(t *testing.T, store *storage.Store) *metadata.Entity {
	t.Helper()
	ctx := context.Background()
	e := saveEntity(t, store, metadata.MediaTypeMovie, "Alien (1979)")
	require.NoError(t, store.UpdateStatus(ctx, e.ID, metadata.StatusDone, 0))
	require.NoError(t, store.AddStageFile(ctx, &metadata.StageFile{
		EntityID: e.ID, LibraryID: 1, Directory: "/movies/Alien (1979)", BaseName: "alien.1979",
		Extension: "mkv", FileType: metadata.FileTypeVideo,
	}))
	require.NoError(t, store.AddStageFile(ctx, &metadata.StageFile{
		LibraryID: 1, Directory: "/movies/Alien (1979)", BaseName: "poster",
		Extension: "jpg", FileType: metadata.FileTypeImage,
	}))
	return e
}

func newArtworkTask(store *storage.Store, remote RemoteArtworkSource) *ArtworkScanTask {
	locator := artwork.NewLocator(store, config.ArtworkConfig{}, noTokens{}, testutil.NopLogger())
	return NewArtworkScanTask(store, locator, remote, testutil.NopLogger())
}

func TestArtworkScanTask_Process(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	e := scannedMovie(t, store)

	remote := &stubRemote{byType: map[metadata.ArtworkType][]metadata.ArtworkCandidate{
		metadata.ArtworkTypeFanart:  {remoteCandidate(metadata.ArtworkTypeFanart, "https://image.tmdb.org/t/p/original/bg.jpg")},
		metadata.ArtworkTypeTrailer: {remoteCandidate(metadata.ArtworkTypeTrailer, "https://www.youtube.com/watch?v=LjLamj-b0I8")},
	}}
	task := newArtworkTask(store, remote)

	items, err := task.Source(ctx, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, e.ID, items[0].ID)

	require.NoError(t, task.Process(ctx, items[0]))

	posters, err := store.Candidates(ctx, e.ID, metadata.ArtworkTypePoster)
	require.NoError(t, err)
	require.Len(t, posters, 1)
	assert.Equal(t, artwork.SourceFile, posters[0].Source)
	assert.Equal(t, "/movies/Alien (1979)/poster.jpg", posters[0].URL)

	fanart, err := store.Candidates(ctx, e.ID, metadata.ArtworkTypeFanart)
	require.NoError(t, err)
	require.Len(t, fanart, 1)
	assert.Equal(t, "tmdb", fanart[0].Source)

	trailers, err := store.Candidates(ctx, e.ID, metadata.ArtworkTypeTrailer)
	require.NoError(t, err)
	assert.Len(t, trailers, 1)

	got, err := store.Load(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, metadata.StatusDone, got.ArtworkStatus)

	items, err = task.Source(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestArtworkScanTask_RescanDoesNotDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	e := scannedMovie(t, store)
	task := newArtworkTask(store, nil)

	require.NoError(t, task.Process(ctx, metadata.QueueItem{ID: e.ID}))
	require.NoError(t, store.Rescan(ctx, e.ID, false))
	require.NoError(t, store.UpdateStatus(ctx, e.ID, metadata.StatusDone, 0))
	require.NoError(t, task.Process(ctx, metadata.QueueItem{ID: e.ID}))

	posters, err := store.Candidates(ctx, e.ID, metadata.ArtworkTypePoster)
	require.NoError(t, err)
	assert.Len(t, posters, 1)
}

type rescanningLocator struct {
	ArtworkSource
	store *storage.Store
	done  bool
}

func (l *rescanningLocator) Locate(ctx context.Context, e *metadata.Entity, artworkType metadata.ArtworkType) ([]metadata.ArtworkCandidate, error) {
	if !l.done {
		l.done = true
		if err := l.store.Rescan(ctx, e.ID, false); err != nil {
			return nil, err
		}
	}
	return l.ArtworkSource.Locate(ctx, e, artworkType)
}

func TestArtworkScanTask_KeepsConcurrentMetadataStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	e := scannedMovie(t, store)

	locator := &rescanningLocator{
		ArtworkSource: artwork.NewLocator(store, config.ArtworkConfig{}, noTokens{}, testutil.NopLogger()),
		store:         store,
	}
	task := NewArtworkScanTask(store, locator, nil, testutil.NopLogger())

	require.NoError(t, task.Process(ctx, metadata.QueueItem{ID: e.ID}))

	got, err := store.Load(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, metadata.StatusUpdated, got.Status)
	assert.Equal(t, metadata.StatusDone, got.ArtworkStatus)
}

func TestArtworkScanTask_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	e := saveEntity(t, store, metadata.MediaTypeMovie, "Solaris (1972)")
	require.NoError(t, store.UpdateStatus(ctx, e.ID, metadata.StatusDone, 0))

	remote := &stubRemote{err: errors.New("tmdb: connection refused")}
	task := newArtworkTask(store, remote)

	require.NoError(t, task.Process(ctx, metadata.QueueItem{ID: e.ID}))

	got, err := store.Load(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, metadata.StatusNotFound, got.ArtworkStatus)
}

func TestArtworkScanTask_Fail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	e := scannedMovie(t, store)

	task := newArtworkTask(store, nil)
	task.Fail(ctx, metadata.QueueItem{ID: e.ID}, errors.New("disk I/O error"))

	got, err := store.Load(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, metadata.StatusError, got.ArtworkStatus)
	assert.Equal(t, metadata.StatusDone, got.Status)
}

func TestArtworkTypes(t *testing.T) {
	assert.Equal(t, []metadata.ArtworkType{
		metadata.ArtworkTypePoster, metadata.ArtworkTypeFanart, metadata.ArtworkTypeTrailer,
	}, artworkTypes(metadata.MediaTypeMovie))
	assert.Equal(t, []metadata.ArtworkType{metadata.ArtworkTypeVideoImage}, artworkTypes(metadata.MediaTypeEpisode))
	assert.Equal(t, []metadata.ArtworkType{metadata.ArtworkTypePhoto}, artworkTypes(metadata.MediaTypePerson))
}
