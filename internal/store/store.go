// Package store keeps Sideline's local watch history in SQLite.
package store

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abelbrown/sideline/internal/feed"
)

// Store handles SQLite persistence. Concrete type, no interface.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db  *sql.DB
	mu  sync.RWMutex // Protects all database operations
	now func() time.Time
}

// View is one history row: the item as it was last seen, plus where and how
// often it was watched.
type View struct {
	Item      feed.Item
	Scope     string
	FirstSeen time.Time
	LastSeen  time.Time
	Count     int
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Shared cache so every pooled connection sees the same database.
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS views (
		item_id TEXT PRIMARY KEY,
		scope TEXT NOT NULL DEFAULT '',
		media_url TEXT NOT NULL DEFAULT '',
		media_type TEXT NOT NULL DEFAULT '',
		collage INTEGER NOT NULL DEFAULT 0,
		caption TEXT NOT NULL DEFAULT '',
		author_id TEXT NOT NULL DEFAULT '',
		author_name TEXT NOT NULL DEFAULT '',
		first_seen DATETIME NOT NULL,
		last_seen DATETIME NOT NULL,
		view_count INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_views_last_seen ON views(last_seen DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	// Databases written before collage was stored.
	has, err := s.columnExists("views", "collage")
	if err != nil {
		return err
	}
	if !has {
		if _, err := s.db.Exec("ALTER TABLE views ADD COLUMN collage INTEGER NOT NULL DEFAULT 0"); err != nil {
			return fmt.Errorf("add collage column: %w", err)
		}
	}
	return nil
}

// columnExists checks table for column via pragma_table_info. table is
// always a constant.
func (s *Store) columnExists(table, column string) (bool, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM pragma_table_info('%s') WHERE name = ?", table)
	if err := s.db.QueryRow(query, column).Scan(&n); err != nil {
		return false, fmt.Errorf("inspect %s: %w", table, err)
	}
	return n > 0, nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// RecordView upserts it into the history. A repeat view refreshes the stored
// copy and last_seen and bumps view_count; first_seen never changes.
// Thread-safe: acquires write lock.
func (s *Store) RecordView(scope string, it feed.Item) error {
	if it.ID == "" {
		return fmt.Errorf("record view: empty item id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	var authorID, authorName string
	if it.Author != nil {
		authorID, authorName = it.Author.ID, it.Author.DisplayName
	}
	_, err := s.db.Exec(`
		INSERT INTO views (
			item_id, scope, media_url, media_type, collage, caption, author_id, author_name,
			first_seen, last_seen, view_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(item_id) DO UPDATE SET
			scope = excluded.scope,
			media_url = excluded.media_url,
			media_type = excluded.media_type,
			collage = excluded.collage,
			caption = excluded.caption,
			author_id = excluded.author_id,
			author_name = excluded.author_name,
			last_seen = excluded.last_seen,
			view_count = views.view_count + 1
	`, it.ID, scope, it.MediaURL, string(it.MediaType), it.Collage, it.Caption, authorID, authorName, now, now)
	if err != nil {
		return fmt.Errorf("record view %s: %w", it.ID, err)
	}
	return nil
}

// RecentViews returns up to limit views, most recently seen first.
// Thread-safe: acquires read lock.
func (s *Store) RecentViews(limit int) ([]View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.Query(`
		SELECT item_id, scope, media_url, media_type, collage, caption, author_id, author_name,
			first_seen, last_seen, view_count
		FROM views
		ORDER BY last_seen DESC, item_id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []View
	for rows.Next() {
		var v View
		var mediaType, authorID, authorName string
		if err := rows.Scan(
			&v.Item.ID,
			&v.Scope,
			&v.Item.MediaURL,
			&mediaType,
			&v.Item.Collage,
			&v.Item.Caption,
			&authorID,
			&authorName,
			&v.FirstSeen,
			&v.LastSeen,
			&v.Count,
		); err != nil {
			return nil, err
		}
		v.Item.MediaType = feed.MediaType(mediaType)
		if authorID != "" {
			v.Item.Author = &feed.Author{ID: authorID, DisplayName: authorName}
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return views, nil
}

// Items flattens views into feed items for a static session.
func Items(views []View) []feed.Item {
	items := make([]feed.Item, len(views))
	for i, v := range views {
		items[i] = v.Item
	}
	return items
}

// PruneBefore deletes views last seen before cutoff and returns how many
// rows were removed.
// Thread-safe: acquires write lock.
func (s *Store) PruneBefore(cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM views WHERE last_seen < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune views: %w", err)
	}
	return res.RowsAffected()
}
