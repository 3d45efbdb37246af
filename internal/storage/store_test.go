package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reelscan/reelscan/internal/metadata"
	"github.com/reelscan/reelscan/internal/testutil"
)

func newTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	store := New(tdb.Conn, tdb.Logger)

	// deterministic, strictly increasing clock
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return store, tdb.Close
}

func TestStore_SaveAndLoad(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	e := metadata.NewEntity(metadata.MediaTypeMovie, "Avatar (2009)")
	e.Year = 2009
	e.ReleaseDate = time.Date(2009, 12, 18, 0, 0, 0, 0, time.UTC)
	e.Genres = []string{"Action", "Fantasy"}
	e.SetSourceID("tmdb", "19995")
	e.SetRating("tmdb", 7.5)
	e.OverrideFlags = map[metadata.FieldTag]string{metadata.FieldTitle: "tmdb"}
	e.BoxedSets = []string{"Avatar Collection"}

	if err := store.Save(ctx, e); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if e.ID == 0 {
		t.Fatal("Save() did not assign an id")
	}

	got, err := store.Load(ctx, e.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Title != "Avatar" || got.Year != 2009 {
		t.Errorf("Title = %q, Year = %d", got.Title, got.Year)
	}
	if !got.ReleaseDate.Equal(e.ReleaseDate) {
		t.Errorf("ReleaseDate = %v, want %v", got.ReleaseDate, e.ReleaseDate)
	}
	if len(got.Genres) != 2 || got.Genres[1] != "Fantasy" {
		t.Errorf("Genres = %v", got.Genres)
	}
	if got.SourceID("tmdb") != "19995" || got.Ratings["tmdb"] != 7.5 {
		t.Errorf("SourceIDs = %v, Ratings = %v", got.SourceIDs, got.Ratings)
	}
	if got.OverrideSource(metadata.FieldTitle) != "tmdb" {
		t.Errorf("OverrideFlags = %v", got.OverrideFlags)
	}
	if len(got.BoxedSets) != 1 {
		t.Errorf("BoxedSets = %v", got.BoxedSets)
	}
	if got.Status != metadata.StatusNew || got.ArtworkStatus != metadata.StatusNew {
		t.Errorf("Status = %q, ArtworkStatus = %q", got.Status, got.ArtworkStatus)
	}
	if got.Season != -1 || got.SeriesID != 0 || !got.LastScanned.IsZero() {
		t.Errorf("Season = %d, SeriesID = %d, LastScanned = %v", got.Season, got.SeriesID, got.LastScanned)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	_, err := store.Load(context.Background(), 999)
	if !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("Load() error = %v, want ErrEntityNotFound", err)
	}
	if !errors.Is(err, metadata.ErrNotFound) {
		t.Errorf("Load() error = %v, want it to wrap metadata.ErrNotFound", err)
	}
}

func TestStore_FindByIdentifier_CaseInsensitive(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	e := metadata.NewEntity(metadata.MediaTypeMovie, "the.matrix.1999")
	if err := store.Save(ctx, e); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.FindByIdentifier(ctx, metadata.MediaTypeMovie, "The.Matrix.1999")
	if err != nil {
		t.Fatalf("FindByIdentifier() error = %v", err)
	}
	if got.ID != e.ID {
		t.Errorf("FindByIdentifier() id = %d, want %d", got.ID, e.ID)
	}

	if _, err := store.FindByIdentifier(ctx, metadata.MediaTypeSeries, "the.matrix.1999"); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("FindByIdentifier(series) error = %v, want ErrEntityNotFound", err)
	}

	dup := metadata.NewEntity(metadata.MediaTypeMovie, "THE.MATRIX.1999")
	if err := store.Save(ctx, dup); err == nil {
		t.Error("Save() of a duplicate identifier should fail")
	}
}

func TestStore_SaveIfAbsent(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	first := metadata.NewEntity(metadata.MediaTypePerson, "Zoë Saldaña")
	inserted, err := store.SaveIfAbsent(ctx, first)
	if err != nil || !inserted {
		t.Fatalf("SaveIfAbsent() = %v, %v, want inserted", inserted, err)
	}
	if first.ID == 0 {
		t.Fatal("SaveIfAbsent() did not assign an id")
	}

	again := metadata.NewEntity(metadata.MediaTypePerson, "ZOË SALDAÑA")
	inserted, err = store.SaveIfAbsent(ctx, again)
	if err != nil || inserted {
		t.Errorf("SaveIfAbsent(existing) = %v, %v, want skipped", inserted, err)
	}
	if again.ID != 0 {
		t.Errorf("SaveIfAbsent(existing) assigned id %d", again.ID)
	}

	got, err := store.FindByIdentifier(ctx, metadata.MediaTypePerson, "zoë saldaña")
	if err != nil {
		t.Fatalf("FindByIdentifier() error = %v", err)
	}
	if got.ID != first.ID || got.Identifier != "Zoë Saldaña" {
		t.Errorf("FindByIdentifier() = %d %q", got.ID, got.Identifier)
	}

	movie := metadata.NewEntity(metadata.MediaTypeMovie, "Zoë Saldaña")
	if inserted, err := store.SaveIfAbsent(ctx, movie); err != nil || !inserted {
		t.Errorf("SaveIfAbsent(other media type) = %v, %v, want inserted", inserted, err)
	}
}

func TestStore_FindStale_OrderAndFilter(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	first := metadata.NewEntity(metadata.MediaTypeMovie, "first")
	second := metadata.NewEntity(metadata.MediaTypeMovie, "second")
	done := metadata.NewEntity(metadata.MediaTypeMovie, "done")
	done.Status = metadata.StatusDone
	series := metadata.NewEntity(metadata.MediaTypeSeries, "lost")

	for _, e := range []*metadata.Entity{first, second, done, series} {
		if err := store.Save(ctx, e); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	items, err := store.FindStale(ctx, metadata.MediaTypeMovie, 10)
	if err != nil {
		t.Fatalf("FindStale() error = %v", err)
	}
	if len(items) != 2 || items[0].ID != first.ID || items[1].ID != second.ID {
		t.Fatalf("FindStale() = %+v, want first then second", items)
	}
	if !items[0].Date.Equal(first.CreatedAt) {
		t.Errorf("Date = %v, want creation time %v", items[0].Date, first.CreatedAt)
	}

	// touching first moves it behind second
	first.Status = metadata.StatusUpdated
	if err := store.Update(ctx, first); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	items, err = store.FindStale(ctx, metadata.MediaTypeMovie, 10)
	if err != nil {
		t.Fatalf("FindStale() error = %v", err)
	}
	if len(items) != 2 || items[0].ID != second.ID {
		t.Fatalf("FindStale() after update = %+v, want second first", items)
	}
	if !items[1].Date.Equal(first.UpdatedAt) {
		t.Errorf("Date = %v, want update time %v", items[1].Date, first.UpdatedAt)
	}

	items, _ = store.FindStale(ctx, metadata.MediaTypeMovie, 1)
	if len(items) != 1 {
		t.Errorf("FindStale(max 1) returned %d items", len(items))
	}

	items, _ = store.FindStale(ctx, metadata.MediaTypeSeries, 0)
	if len(items) != 1 || items[0].MediaType != metadata.MediaTypeSeries {
		t.Errorf("FindStale(series) = %+v", items)
	}
}

func TestStore_UpdateScanned(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	e := metadata.NewEntity(metadata.MediaTypeMovie, "heat")
	if err := store.Save(ctx, e); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	e.Status = metadata.StatusTempDone
	e.Plot = "A group of professional bank robbers."
	if err := store.UpdateScanned(ctx, e); err != nil {
		t.Fatalf("UpdateScanned() error = %v", err)
	}

	got, _ := store.Load(ctx, e.ID)
	if got.Status != metadata.StatusDone {
		t.Errorf("Status = %q, want DONE", got.Status)
	}
	if got.LastScanned.IsZero() {
		t.Error("LastScanned not set")
	}
	if got.Plot != e.Plot {
		t.Errorf("Plot = %q", got.Plot)
	}

	items, _ := store.FindArtworkStale(ctx, 10)
	if len(items) != 1 || items[0].ID != e.ID {
		t.Errorf("FindArtworkStale() = %+v, want the scanned entity", items)
	}

	if err := store.UpdateArtworkStatus(ctx, e.ID, metadata.StatusDone); err != nil {
		t.Fatalf("UpdateArtworkStatus() error = %v", err)
	}
	items, _ = store.FindArtworkStale(ctx, 10)
	if len(items) != 0 {
		t.Errorf("FindArtworkStale() after done = %+v", items)
	}
}

func TestStore_UpdateStatus(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	e := metadata.NewEntity(metadata.MediaTypePerson, "james.cameron")
	if err := store.Save(ctx, e); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := store.UpdateStatus(ctx, e.ID, metadata.StatusError, 3); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	got, _ := store.Load(ctx, e.ID)
	if got.Status != metadata.StatusError || got.Retries != 3 {
		t.Errorf("Status = %q, Retries = %d", got.Status, got.Retries)
	}

	if err := store.UpdateStatus(ctx, 999, metadata.StatusError, 0); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("UpdateStatus(missing) error = %v, want ErrEntityNotFound", err)
	}
}

func TestStore_Rescan(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	e := metadata.NewEntity(metadata.MediaTypeMovie, "avatar.2009")
	e.Title = "Wrong Title"
	e.Status = metadata.StatusError
	e.ArtworkStatus = metadata.StatusDone
	e.Retries = 2
	e.Plot = "Scanned plot."
	e.Genres = []string{"Science Fiction"}
	e.OverrideFlags = map[metadata.FieldTag]string{metadata.FieldTitle: "omdb", metadata.FieldPlot: "tmdb"}
	if err := store.Save(ctx, e); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := store.Rescan(ctx, e.ID, false); err != nil {
		t.Fatalf("Rescan() error = %v", err)
	}
	got, _ := store.Load(ctx, e.ID)
	if got.Status != metadata.StatusUpdated || got.ArtworkStatus != metadata.StatusUpdated || got.Retries != 0 {
		t.Errorf("Status = %q, ArtworkStatus = %q, Retries = %d", got.Status, got.ArtworkStatus, got.Retries)
	}
	if got.Title != "Wrong Title" {
		t.Errorf("Rescan without reset changed the title to %q", got.Title)
	}

	if err := store.Rescan(ctx, e.ID, true); err != nil {
		t.Fatalf("Rescan(reset) error = %v", err)
	}
	got, _ = store.Load(ctx, e.ID)
	if got.Title != "avatar" {
		t.Errorf("Title = %q, want identifier-derived title", got.Title)
	}
	if len(got.OverrideFlags) != 0 {
		t.Errorf("OverrideFlags = %v, want cleared", got.OverrideFlags)
	}
	if got.Plot != "" {
		t.Errorf("Plot = %q, want the scanned value dropped with its flag", got.Plot)
	}
	if len(got.Genres) != 1 {
		t.Errorf("Genres = %v, want the unflagged value kept", got.Genres)
	}
}

func TestStore_FindArtworkStale_BoxSets(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	set := metadata.NewEntity(metadata.MediaTypeBoxSet, "Alien Collection")
	pending := metadata.NewEntity(metadata.MediaTypeMovie, "alien.1979")
	gone := metadata.NewEntity(metadata.MediaTypeBoxSet, "Old Collection")
	gone.Status = metadata.StatusDeleted
	for _, e := range []*metadata.Entity{set, pending, gone} {
		if err := store.Save(ctx, e); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	items, err := store.FindArtworkStale(ctx, 10)
	if err != nil {
		t.Fatalf("FindArtworkStale() error = %v", err)
	}
	if len(items) != 1 || items[0].ID != set.ID || items[0].MediaType != metadata.MediaTypeBoxSet {
		t.Errorf("FindArtworkStale() = %+v, want only the live box set", items)
	}
}

func TestStore_Delete(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()
	ctx := context.Background()

	e := metadata.NewEntity(metadata.MediaTypeMovie, "gone")
	if err := store.Save(ctx, e); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Delete(ctx, e); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	got, err := store.Load(ctx, e.ID)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Status != metadata.StatusDeleted {
		t.Errorf("Status = %q, want DELETED", got.Status)
	}
	items, _ := store.FindStale(ctx, metadata.MediaTypeMovie, 10)
	if len(items) != 0 {
		t.Errorf("deleted entity still discovered: %+v", items)
	}
}
