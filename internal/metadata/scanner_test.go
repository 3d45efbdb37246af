package metadata

import (
	"context"
	"fmt"
	"sync"
)

// fakeScanner is a movie, series, episode and person scanner backed by maps.
type fakeScanner struct {
	name   string
	fields []FieldTag

	mu        sync.Mutex
	ids       map[string]string        // title -> external id
	records   map[string]*RemoteRecord // external id -> record
	lookupErr error
	fetchErr  error
	lookups   int
	fetches   []string
}

func newFakeScanner(name string) *fakeScanner {
	return &fakeScanner{
		name:    name,
		fields:  AllFields,
		ids:     make(map[string]string),
		records: make(map[string]*RemoteRecord),
	}
}

func (f *fakeScanner) Name() string       { return f.name }
func (f *fakeScanner) Fields() []FieldTag { return f.fields }

func (f *fakeScanner) LookupID(_ context.Context, q Query) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.lookupErr != nil {
		return "", f.lookupErr
	}
	return f.ids[q.Title], nil
}

func (f *fakeScanner) fetch(id string) (*RemoteRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, id)
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	rec, ok := f.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (f *fakeScanner) FetchMovie(_ context.Context, id string) (*RemoteRecord, error) {
	return f.fetch(id)
}

func (f *fakeScanner) FetchSeries(_ context.Context, id string) (*RemoteRecord, error) {
	return f.fetch(id)
}

func (f *fakeScanner) FetchEpisode(_ context.Context, seriesID string, season, episode int) (*RemoteRecord, error) {
	return f.fetch(fmt.Sprintf("%s/%d/%d", seriesID, season, episode))
}

func (f *fakeScanner) FetchPerson(_ context.Context, id string) (*RemoteRecord, error) {
	return f.fetch(id)
}

// artworkOnly implements only ArtworkScanner.
type artworkOnly struct{ name string }

func (a artworkOnly) Name() string { return a.name }

func (a artworkOnly) LookupID(context.Context, Query) (string, error) { return "", nil }

func (a artworkOnly) FetchArtwork(context.Context, string, MediaType, ArtworkType) ([]RemoteArtwork, error) {
	return nil, nil
}

type mapLoader map[int64]*Entity

func (m mapLoader) Load(_ context.Context, id int64) (*Entity, error) {
	e, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("entity %d: %w", id, ErrNotFound)
	}
	return e, nil
}
