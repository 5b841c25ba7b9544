package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/jibang-data/regional-news-pipeline/internal/domain"
)

const newsSchema = `
CREATE TABLE IF NOT EXISTS news (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	title           TEXT NOT NULL,
	content         TEXT,
	region          TEXT,
	sentiment_score REAL,
	is_processed    INTEGER NOT NULL DEFAULT 0,
	published_time  TEXT,
	url             TEXT NOT NULL UNIQUE,
	keyword         TEXT,
	collected_at    TEXT,
	created_at      TEXT NOT NULL DEFAULT (datetime('now'))
);
CREATE INDEX IF NOT EXISTS idx_news_region ON news(region);
CREATE INDEX IF NOT EXISTS idx_news_published_time ON news(published_time);
`

const upsertNews = `
INSERT INTO news (title, content, region, published_time, url, keyword, collected_at)
VALUES (:title, :content, :region, :published_time, :url, :keyword, :collected_at)
ON CONFLICT(url) DO UPDATE SET
	title          = excluded.title,
	content        = excluded.content,
	region         = excluded.region,
	published_time = excluded.published_time,
	keyword        = excluded.keyword,
	collected_at   = excluded.collected_at
`

// newsRow is the relational projection of a record plus its keyword string.
type newsRow struct {
	Title         string `db:"title"`
	Content       string `db:"content"`
	Region        string `db:"region"`
	PublishedTime string `db:"published_time"`
	URL           string `db:"url"`
	Keyword       string `db:"keyword"`
	CollectedAt   string `db:"collected_at"`
}

// SQLStore mirrors accepted records into a SQLite database for downstream
// analyzers. Sentiment and processing flags belong to those analyzers; this
// store only inserts rows with their defaults.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(path string) (*SQLStore, error) {
	if path == "" {
		return nil, errors.New("sqlite store requires a path")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc's driver serializes writes; a single connection avoids
	// SQLITE_BUSY under the worker pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(newsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply news schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// KnownURLs returns every archived URL, for seeding deduplication.
func (s *SQLStore) KnownURLs(ctx context.Context) ([]string, error) {
	var urls []string
	if err := s.db.SelectContext(ctx, &urls, `SELECT url FROM news`); err != nil {
		return nil, fmt.Errorf("select known urls: %w", err)
	}
	return urls, nil
}

// Upsert writes the records in one transaction. A URL that already exists is
// overwritten with the fresh row; its id, sentiment_score and is_processed
// are left untouched.
func (s *SQLStore) Upsert(ctx context.Context, records []domain.Record, keywords map[string]string) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamedContext(ctx, upsertNews)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, r := range records {
		if r.URL == "" {
			continue
		}
		collected := ""
		if !r.CollectedAt.IsZero() {
			collected = r.CollectedAt.Format("2006-01-02 15:04:05")
		}
		row := newsRow{
			Title:         r.Title,
			Content:       r.Content,
			Region:        r.Region,
			PublishedTime: r.PublishDate,
			URL:           r.URL,
			Keyword:       keywords[r.URL],
			CollectedAt:   collected,
		}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return 0, fmt.Errorf("upsert %s: %w", r.URL, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return written, nil
}

// Count returns the archived row count, optionally filtered by region.
func (s *SQLStore) Count(ctx context.Context, region string) (int, error) {
	var n int
	var err error
	if region == "" {
		err = s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM news`)
	} else {
		err = s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM news WHERE region = ?`, region)
	}
	if err != nil {
		return 0, fmt.Errorf("count news rows: %w", err)
	}
	return n, nil
}
