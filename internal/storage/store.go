// Package storage persists entities, indexed stage files and artwork
// candidates in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelscan/reelscan/internal/metadata"
)

// ErrEntityNotFound is returned when no live entity matches a lookup.
var ErrEntityNotFound = fmt.Errorf("entity %w", metadata.ErrNotFound)

// Store is the SQLite-backed repository used by the processors.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a store on an open, migrated connection.
func New(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "storage").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

const entityColumns = `id, media_type, identifier, title, original_title, plot, outline, tagline,
	release_date, year, genres, studios, countries, source_ids, ratings, override_flags, boxed_sets,
	series_id, season, episode, status, artwork_status, retries, last_scanned, created_at, updated_at`

// FindStale returns up to maxResults entities of a media type in status NEW
// or UPDATED, least recently touched first.
func (s *Store) FindStale(ctx context.Context, mediaType metadata.MediaType, maxResults int) ([]metadata.QueueItem, error) {
	return s.queueItems(ctx, `
		SELECT id, media_type, updated_at, created_at
		FROM entities
		WHERE media_type = ? AND status IN (?, ?)
		ORDER BY COALESCE(updated_at, created_at) ASC, id ASC
		LIMIT ?`,
		string(mediaType), string(metadata.StatusNew), string(metadata.StatusUpdated), limit(maxResults))
}

// FindArtworkStale returns up to maxResults entities whose artwork has not
// been located yet. Box sets have no metadata scan and qualify while live;
// everything else must be scanned first.
func (s *Store) FindArtworkStale(ctx context.Context, maxResults int) ([]metadata.QueueItem, error) {
	return s.queueItems(ctx, `
		SELECT id, media_type, updated_at, created_at
		FROM entities
		WHERE (status = ? OR (media_type = ? AND status NOT IN (?, ?)))
			AND artwork_status IN (?, ?)
		ORDER BY COALESCE(updated_at, created_at) ASC, id ASC
		LIMIT ?`,
		string(metadata.StatusDone),
		string(metadata.MediaTypeBoxSet), string(metadata.StatusDuplicate), string(metadata.StatusDeleted),
		string(metadata.StatusNew), string(metadata.StatusUpdated), limit(maxResults))
}

func (s *Store) queueItems(ctx context.Context, query string, args ...any) ([]metadata.QueueItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue items: %w", err)
	}
	defer rows.Close()

	var items []metadata.QueueItem
	for rows.Next() {
		var (
			item      metadata.QueueItem
			mediaType string
			updatedAt sql.NullTime
			createdAt time.Time
		)
		if err := rows.Scan(&item.ID, &mediaType, &updatedAt, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan queue item: %w", err)
		}
		item.MediaType = metadata.MediaType(mediaType)
		item.Date = createdAt
		if updatedAt.Valid {
			item.Date = updatedAt.Time
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Load returns the entity with the given id.
func (s *Store) Load(ctx context.Context, id int64) (*metadata.Entity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE id = ?`, id)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load %d: %w", id, ErrEntityNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load entity %d: %w", id, err)
	}
	return e, nil
}

// FindByIdentifier returns the entity with a natural identifier. Identifiers
// compare case-insensitively.
func (s *Store) FindByIdentifier(ctx context.Context, mediaType metadata.MediaType, identifier string) (*metadata.Entity, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE media_type = ? AND identifier_key = ?`,
		string(mediaType), nameKey(identifier))
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %q: %w", mediaType, identifier, ErrEntityNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find entity: %w", err)
	}
	return e, nil
}

// Save inserts a new entity and assigns its id.
func (s *Store) Save(ctx context.Context, e *metadata.Entity) error {
	_, err := s.insert(ctx, e, "")
	return err
}

// SaveIfAbsent inserts e unless an entity with the same media type and
// identifier exists. It reports whether e was inserted; e.ID is only set
// when it was.
func (s *Store) SaveIfAbsent(ctx context.Context, e *metadata.Entity) (bool, error) {
	return s.insert(ctx, e, "ON CONFLICT (media_type, identifier_key) DO NOTHING")
}

func (s *Store) insert(ctx context.Context, e *metadata.Entity, onConflict string) (bool, error) {
	if e.Status == "" {
		e.Status = metadata.StatusNew
	}
	if e.ArtworkStatus == "" {
		e.ArtworkStatus = metadata.StatusNew
	}
	e.CreatedAt = s.now()

	cols, err := encodeEntity(e)
	if err != nil {
		return false, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO entities (media_type, identifier, identifier_key, title, original_title, plot, outline, tagline,
			release_date, year, genres, studios, countries, source_ids, ratings, override_flags, boxed_sets,
			series_id, season, episode, status, artwork_status, retries, last_scanned, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) `+onConflict,
		string(e.MediaType), e.Identifier, nameKey(e.Identifier), e.Title, e.OriginalTitle, e.Plot, e.Outline, e.Tagline,
		nullTime(e.ReleaseDate), e.Year, cols.genres, cols.studios, cols.countries, cols.sourceIDs,
		cols.ratings, cols.overrides, cols.boxedSets, nullID(e.SeriesID), e.Season, e.Episode,
		string(e.Status), string(e.ArtworkStatus), e.Retries, nullTime(e.LastScanned), e.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert entity %s %q: %w", e.MediaType, e.Identifier, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("failed to read entity id: %w", err)
	}
	e.ID = id

	s.logger.Debug().Int64("id", id).Str("mediaType", string(e.MediaType)).Str("identifier", e.Identifier).Msg("Entity saved")
	return true, nil
}

// Update writes every column of an existing entity.
func (s *Store) Update(ctx context.Context, e *metadata.Entity) error {
	return s.update(ctx, s.db, e)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) update(ctx context.Context, db execer, e *metadata.Entity) error {
	e.UpdatedAt = s.now()

	cols, err := encodeEntity(e)
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `
		UPDATE entities SET
			title = ?, original_title = ?, plot = ?, outline = ?, tagline = ?,
			release_date = ?, year = ?, genres = ?, studios = ?, countries = ?,
			source_ids = ?, ratings = ?, override_flags = ?, boxed_sets = ?,
			series_id = ?, season = ?, episode = ?, status = ?, artwork_status = ?,
			retries = ?, last_scanned = ?, updated_at = ?
		WHERE id = ?`,
		e.Title, e.OriginalTitle, e.Plot, e.Outline, e.Tagline,
		nullTime(e.ReleaseDate), e.Year, cols.genres, cols.studios, cols.countries,
		cols.sourceIDs, cols.ratings, cols.overrides, cols.boxedSets,
		nullID(e.SeriesID), e.Season, e.Episode, string(e.Status), string(e.ArtworkStatus),
		e.Retries, nullTime(e.LastScanned), e.UpdatedAt, e.ID)
	if err != nil {
		return fmt.Errorf("failed to update entity %d: %w", e.ID, err)
	}
	return expectRow(res, e.ID)
}

// Delete marks an entity as deleted. The row is kept so identifiers stay
// reserved.
func (s *Store) Delete(ctx context.Context, e *metadata.Entity) error {
	e.Status = metadata.StatusDeleted
	return s.Update(ctx, e)
}

// UpdateScanned persists the result of a scan in one transaction. A
// TEMP_DONE status is committed as DONE and the scan time is recorded.
func (s *Store) UpdateScanned(ctx context.Context, e *metadata.Entity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if e.Status == metadata.StatusTempDone {
		e.Status = metadata.StatusDone
	}
	e.LastScanned = s.now()

	if err := s.update(ctx, tx, e); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scan of entity %d: %w", e.ID, err)
	}
	return nil
}

// UpdateStatus sets the status and retry counter of an entity.
func (s *Store) UpdateStatus(ctx context.Context, id int64, status metadata.Status, retries int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE entities SET status = ?, retries = ?, updated_at = ? WHERE id = ?`,
		string(status), retries, s.now(), id)
	if err != nil {
		return fmt.Errorf("failed to update status of entity %d: %w", id, err)
	}
	return expectRow(res, id)
}

// UpdateArtworkStatus sets the artwork status of an entity without touching
// its discovery timestamp.
func (s *Store) UpdateArtworkStatus(ctx context.Context, id int64, status metadata.Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE entities SET artwork_status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update artwork status of entity %d: %w", id, err)
	}
	return expectRow(res, id)
}

// Rescan queues an entity for another metadata and artwork pass. With reset
// every scan-written field is emptied together with its provenance flag and
// the title is recomputed from the identifier, so all scanners may write
// again.
func (s *Store) Rescan(ctx context.Context, id int64, reset bool) error {
	e, err := s.Load(ctx, id)
	if err != nil {
		return err
	}
	if reset {
		e.ResetScanned(metadata.NewOverrideTracker(nil))
	}
	e.Status = metadata.StatusUpdated
	e.ArtworkStatus = metadata.StatusUpdated
	e.Retries = 0

	s.logger.Info().Int64("id", id).Bool("reset", reset).Msg("Entity queued for rescan")
	return s.Update(ctx, e)
}

type encodedColumns struct {
	genres, studios, countries, sourceIDs, ratings, overrides, boxedSets string
}

func encodeEntity(e *metadata.Entity) (encodedColumns, error) {
	var (
		cols encodedColumns
		err  error
	)
	enc := func(dst *string, v any, empty string) {
		if err != nil {
			return
		}
		var b []byte
		b, err = json.Marshal(v)
		if err == nil && string(b) == "null" {
			b = []byte(empty)
		}
		*dst = string(b)
	}
	enc(&cols.genres, e.Genres, "[]")
	enc(&cols.studios, e.Studios, "[]")
	enc(&cols.countries, e.Countries, "[]")
	enc(&cols.sourceIDs, e.SourceIDs, "{}")
	enc(&cols.ratings, e.Ratings, "{}")
	enc(&cols.overrides, e.OverrideFlags, "{}")
	enc(&cols.boxedSets, e.BoxedSets, "[]")
	if err != nil {
		return cols, fmt.Errorf("failed to encode entity %d: %w", e.ID, err)
	}
	return cols, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*metadata.Entity, error) {
	var (
		e                                metadata.Entity
		mediaType, status, artworkStatus string
		releaseDate, lastScanned         sql.NullTime
		updatedAt                        sql.NullTime
		seriesID                         sql.NullInt64
	)
	var genres, studios, countries, sourceIDs, ratings, overrides, boxedSets string
	err := row.Scan(&e.ID, &mediaType, &e.Identifier, &e.Title, &e.OriginalTitle, &e.Plot, &e.Outline, &e.Tagline,
		&releaseDate, &e.Year, &genres, &studios, &countries, &sourceIDs, &ratings, &overrides, &boxedSets,
		&seriesID, &e.Season, &e.Episode, &status, &artworkStatus, &e.Retries, &lastScanned, &e.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	e.MediaType = metadata.MediaType(mediaType)
	e.Status = metadata.Status(status)
	e.ArtworkStatus = metadata.Status(artworkStatus)
	e.ReleaseDate = releaseDate.Time
	e.LastScanned = lastScanned.Time
	e.UpdatedAt = updatedAt.Time
	e.SeriesID = seriesID.Int64

	for _, col := range []struct {
		raw string
		dst any
	}{
		{genres, &e.Genres},
		{studios, &e.Studios},
		{countries, &e.Countries},
		{sourceIDs, &e.SourceIDs},
		{ratings, &e.Ratings},
		{overrides, &e.OverrideFlags},
		{boxedSets, &e.BoxedSets},
	} {
		if strings.TrimSpace(col.raw) == "" {
			continue
		}
		if err := json.Unmarshal([]byte(col.raw), col.dst); err != nil {
			return nil, fmt.Errorf("failed to decode entity %d: %w", e.ID, err)
		}
	}
	return &e, nil
}

func expectRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update %d: %w", id, ErrEntityNotFound)
	}
	return nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullID(id int64) sql.NullInt64 {
	if id <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}

func limit(n int) int {
	if n <= 0 {
		return -1
	}
	return n
}
