package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"platter/internal/config"
	"platter/internal/textutil"
)

const librarySchema = `
CREATE TABLE IF NOT EXISTS library_entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    artist TEXT NOT NULL,
    album TEXT NOT NULL,
    artist_key TEXT NOT NULL,
    album_key TEXT NOT NULL,
    release_id TEXT,
    track_count INTEGER NOT NULL DEFAULT 0,
    checksum TEXT,
    path TEXT,
    added_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_library_keys ON library_entries(artist_key, album_key);
CREATE INDEX IF NOT EXISTS idx_library_checksum ON library_entries(checksum);
`

// Store persists the catalog in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the catalog database configured under paths.library_db.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.Paths.LibraryDB)
}

// OpenPath connects to a catalog database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open library db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(librarySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create library schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const entryColumns = "id, artist, album, release_id, track_count, checksum, path, added_at"

// Add records an imported release and returns its identifier.
func (s *Store) Add(ctx context.Context, entry Entry) (int64, error) {
	added := entry.AddedAt
	if added.IsZero() {
		added = time.Now().UTC()
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO library_entries (
            artist, album, artist_key, album_key, release_id, track_count, checksum, path, added_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Artist,
		entry.Album,
		textutil.Normalize(entry.Artist),
		textutil.Normalize(entry.Album),
		nullable(entry.ReleaseID),
		entry.TrackCount,
		nullable(entry.Checksum),
		nullable(entry.Path),
		added.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert library entry: %w", err)
	}
	return res.LastInsertId()
}

// Remove deletes an entry by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM library_entries WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete library entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// FindByKeys returns entries whose normalized artist and album match. Empty
// key values match everything, which is how a key tuple narrower than
// artist+album is expressed.
func (s *Store) FindByKeys(ctx context.Context, artist, album string) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM library_entries`
	var (
		clauses []string
		args    []any
	)
	if artist != "" {
		clauses = append(clauses, "artist_key = ?")
		args = append(args, textutil.Normalize(artist))
	}
	if album != "" {
		clauses = append(clauses, "album_key = ?")
		args = append(args, textutil.Normalize(album))
	}
	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY added_at"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query library keys: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// FindByReleaseID returns entries sharing a catalog release identifier.
func (s *Store) FindByReleaseID(ctx context.Context, releaseID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+entryColumns+` FROM library_entries WHERE release_id = ? ORDER BY added_at`,
		releaseID,
	)
	if err != nil {
		return nil, fmt.Errorf("query library release id: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// FindByChecksum returns entries sharing a content checksum.
func (s *Store) FindByChecksum(ctx context.Context, checksum string) ([]Entry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+entryColumns+` FROM library_entries WHERE checksum = ? ORDER BY added_at`,
		checksum,
	)
	if err != nil {
		return nil, fmt.Errorf("query library checksum: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// List returns all catalog entries ordered by addition time.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM library_entries ORDER BY added_at`)
	if err != nil {
		return nil, fmt.Errorf("list library entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Count returns the number of catalog entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM library_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count library entries: %w", err)
	}
	return count, nil
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var (
			entry      Entry
			releaseID  sql.NullString
			checksum   sql.NullString
			path       sql.NullString
			addedRaw   string
			trackCount sql.NullInt64
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.Artist,
			&entry.Album,
			&releaseID,
			&trackCount,
			&checksum,
			&path,
			&addedRaw,
		); err != nil {
			return nil, err
		}
		entry.ReleaseID = releaseID.String
		entry.Checksum = checksum.String
		entry.Path = path.String
		if trackCount.Valid {
			entry.TrackCount = int(trackCount.Int64)
		}
		if added, err := time.Parse(time.RFC3339Nano, addedRaw); err == nil {
			entry.AddedAt = added
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entries, nil
		}
		return nil, err
	}
	return entries, nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
