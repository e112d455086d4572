package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Like is a single stored like.
type Like struct {
	UserID    string
	ArticleID int
	LikedAt   int64 // Unix timestamp
}

// Store provides SQLite-backed persistence for per-user likes.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS likes (
	user_id TEXT NOT NULL,
	article_id INTEGER NOT NULL,
	liked_at INTEGER NOT NULL,
	PRIMARY KEY (user_id, article_id)
);

CREATE INDEX IF NOT EXISTS likes_by_user ON likes (user_id, liked_at);
`

// New opens the SQLite database at dbPath, creates tables if they don't exist, and returns a Store.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: set WAL mode: %w", err)
	}

	if _, err := db.Exec(createTablesSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create tables: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("storage: ping: %w", err)
	}
	return nil
}

// RecordLike stores a like with the current timestamp.
// Uses INSERT OR IGNORE so repeated calls keep the first timestamp.
func (s *Store) RecordLike(userID string, articleID int) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO likes (user_id, article_id, liked_at) VALUES (?, ?, ?)`,
		userID, articleID, s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("storage: record like %s/%d: %w", userID, articleID, err)
	}
	return nil
}

// RemoveLike deletes a like. It reports whether a like existed.
func (s *Store) RemoveLike(userID string, articleID int) (bool, error) {
	res, err := s.db.Exec(
		`DELETE FROM likes WHERE user_id = ? AND article_id = ?`, userID, articleID,
	)
	if err != nil {
		return false, fmt.Errorf("storage: remove like %s/%d: %w", userID, articleID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storage: remove like %s/%d: %w", userID, articleID, err)
	}
	return n > 0, nil
}

// IsLiked checks whether the user has liked the article.
func (s *Store) IsLiked(userID string, articleID int) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM likes WHERE user_id = ? AND article_id = ?`, userID, articleID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("storage: is liked %s/%d: %w", userID, articleID, err)
	}
	return count > 0, nil
}

// Likes returns the user's likes, oldest first.
func (s *Store) Likes(userID string) ([]Like, error) {
	rows, err := s.db.Query(
		`SELECT user_id, article_id, liked_at FROM likes
		 WHERE user_id = ? ORDER BY liked_at, article_id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: get likes for %s: %w", userID, err)
	}
	defer rows.Close()

	var likes []Like
	for rows.Next() {
		var l Like
		if err := rows.Scan(&l.UserID, &l.ArticleID, &l.LikedAt); err != nil {
			return nil, fmt.Errorf("storage: scan like: %w", err)
		}
		likes = append(likes, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate likes: %w", err)
	}
	return likes, nil
}

// LikedIDs returns the IDs of the articles the user liked, oldest first.
func (s *Store) LikedIDs(userID string) ([]int, error) {
	likes, err := s.Likes(userID)
	if err != nil {
		return nil, err
	}
	ids := make([]int, len(likes))
	for i, l := range likes {
		ids[i] = l.ArticleID
	}
	return ids, nil
}

// LikeCount returns the number of articles the user liked.
func (s *Store) LikeCount(userID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM likes WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("storage: get like count for %s: %w", userID, err)
	}
	return count, nil
}
