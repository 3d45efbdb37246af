package storage

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/reelscan/reelscan/internal/metadata"
)

const stageFileColumns = `id, entity_id, library_id, directory, directory_name, base_name, extension, file_type, extra, status`

// AddStageFile records an indexed file and assigns its id.
func (s *Store) AddStageFile(ctx context.Context, f *metadata.StageFile) error {
	if f.DirectoryName == "" {
		f.DirectoryName = filepath.Base(f.Directory)
	}
	if f.Status == "" {
		f.Status = metadata.StatusNew
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO stage_files (entity_id, library_id, directory, directory_name, directory_name_key, base_name, base_name_key, extension, file_type, extra, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullID(f.EntityID), f.LibraryID, f.Directory, f.DirectoryName, nameKey(f.DirectoryName),
		f.BaseName, nameKey(f.BaseName), f.Extension,
		string(f.FileType), f.Extra, string(f.Status))
	if err != nil {
		return fmt.Errorf("failed to insert stage file %s: %w", f.Path(), err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read stage file id: %w", err)
	}
	f.ID = id
	return nil
}

// HasStageFile reports whether a file is already indexed.
func (s *Store) HasStageFile(ctx context.Context, directory, baseName, extension string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM stage_files
		WHERE directory = ? AND base_name = ? AND extension = ? AND status != ?`,
		directory, baseName, extension, string(metadata.StatusDeleted)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up stage file: %w", err)
	}
	return n > 0, nil
}

// VideoFiles returns the live, non-extra video files of an entity. Files of a
// series are those of its episodes.
func (s *Store) VideoFiles(ctx context.Context, e *metadata.Entity) ([]metadata.StageFile, error) {
	owner := `entity_id = ?`
	if e.MediaType == metadata.MediaTypeSeries {
		owner = `entity_id IN (SELECT id FROM entities WHERE series_id = ?)`
	}
	return s.stageFiles(ctx, `
		SELECT `+stageFileColumns+` FROM stage_files
		WHERE `+owner+` AND file_type = ? AND extra = 0 AND status NOT IN (?, ?)
		ORDER BY directory, base_name`,
		e.ID, string(metadata.FileTypeVideo), string(metadata.StatusDuplicate), string(metadata.StatusDeleted))
}

// ImagesInDirectories returns image files in any of dirs whose base name
// matches one of names, ignoring case.
func (s *Store) ImagesInDirectories(ctx context.Context, dirs, names []string) ([]metadata.StageFile, error) {
	if len(dirs) == 0 || len(names) == 0 {
		return nil, nil
	}
	args := []any{string(metadata.FileTypeImage), string(metadata.StatusDeleted)}
	args = append(args, stringArgs(dirs)...)
	args = append(args, lowerArgs(names)...)

	return s.stageFiles(ctx, `
		SELECT `+stageFileColumns+` FROM stage_files
		WHERE file_type = ? AND status != ?
			AND directory IN (`+placeholders(len(dirs))+`)
			AND base_name_key IN (`+placeholders(len(names))+`)
		ORDER BY id`, args...)
}

// ImagesInFolder returns image files in any directory named folder whose base
// name matches one of names. A libraryID of zero matches every library.
func (s *Store) ImagesInFolder(ctx context.Context, folder string, libraryID int64, names []string) ([]metadata.StageFile, error) {
	if folder == "" || len(names) == 0 {
		return nil, nil
	}
	args := []any{string(metadata.FileTypeImage), string(metadata.StatusDeleted), nameKey(folder), libraryID, libraryID}
	args = append(args, lowerArgs(names)...)

	return s.stageFiles(ctx, `
		SELECT `+stageFileColumns+` FROM stage_files
		WHERE file_type = ? AND status != ?
			AND directory_name_key = ?
			AND (? = 0 OR library_id = ?)
			AND base_name_key IN (`+placeholders(len(names))+`)
		ORDER BY id`, args...)
}

// ImagesWithPrefix returns image files whose base name starts with prefix,
// ignoring case.
func (s *Store) ImagesWithPrefix(ctx context.Context, prefix string) ([]metadata.StageFile, error) {
	if prefix == "" {
		return nil, nil
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(nameKey(prefix))

	return s.stageFiles(ctx, `
		SELECT `+stageFileColumns+` FROM stage_files
		WHERE file_type = ? AND status != ?
			AND base_name_key LIKE ? ESCAPE '\'
		ORDER BY id`,
		string(metadata.FileTypeImage), string(metadata.StatusDeleted), escaped+"%")
}

func (s *Store) stageFiles(ctx context.Context, query string, args ...any) ([]metadata.StageFile, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stage files: %w", err)
	}
	defer rows.Close()

	var files []metadata.StageFile
	for rows.Next() {
		var (
			f                metadata.StageFile
			entityID         sql.NullInt64
			fileType, status string
		)
		if err := rows.Scan(&f.ID, &entityID, &f.LibraryID, &f.Directory, &f.DirectoryName,
			&f.BaseName, &f.Extension, &fileType, &f.Extra, &status); err != nil {
			return nil, fmt.Errorf("failed to scan stage file: %w", err)
		}
		f.EntityID = entityID.Int64
		f.FileType = metadata.FileType(fileType)
		f.Status = metadata.Status(status)
		files = append(files, f)
	}
	return files, rows.Err()
}

// Candidates returns every artwork candidate of one type recorded for an
// entity, including deleted ones.
func (s *Store) Candidates(ctx context.Context, entityID int64, artworkType metadata.ArtworkType) ([]metadata.ArtworkCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_id, artwork_type, source, url, stage_file_id, hash_code, priority, status, created_at
		FROM artwork_candidates
		WHERE entity_id = ? AND artwork_type = ?
		ORDER BY priority DESC, id ASC`,
		entityID, string(artworkType))
	if err != nil {
		return nil, fmt.Errorf("failed to query artwork candidates: %w", err)
	}
	defer rows.Close()

	var out []metadata.ArtworkCandidate
	for rows.Next() {
		var (
			c               metadata.ArtworkCandidate
			stageFileID     sql.NullInt64
			artType, status string
		)
		if err := rows.Scan(&c.ID, &c.EntityID, &artType, &c.Source, &c.URL, &stageFileID,
			&c.HashCode, &c.Priority, &status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artwork candidate: %w", err)
		}
		c.ArtworkType = metadata.ArtworkType(artType)
		c.StageFileID = stageFileID.Int64
		c.Status = metadata.Status(status)
		out = append(out, c)
	}
	return out, rows.Err()
}

// AddCandidates inserts candidates in one transaction and assigns their ids.
func (s *Store) AddCandidates(ctx context.Context, candidates []metadata.ArtworkCandidate) error {
	if len(candidates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO artwork_candidates (entity_id, artwork_type, source, url, stage_file_id, hash_code, priority, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare candidate insert: %w", err)
	}
	defer stmt.Close()

	now := s.now()
	for i := range candidates {
		c := &candidates[i]
		if c.Status == "" {
			c.Status = metadata.StatusNew
		}
		c.CreatedAt = now
		res, err := stmt.ExecContext(ctx, c.EntityID, string(c.ArtworkType), c.Source, c.URL,
			nullID(c.StageFileID), c.HashCode, c.Priority, string(c.Status), c.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert %s candidate for entity %d: %w", c.ArtworkType, c.EntityID, err)
		}
		if c.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read candidate id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit candidates: %w", err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// nameKey folds a file or directory name for case-insensitive lookups.
// SQLite's lower() and NOCASE only fold ASCII.
func nameKey(name string) string {
	return strings.ToLower(name)
}

func lowerArgs(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = nameKey(v)
	}
	return out
}
