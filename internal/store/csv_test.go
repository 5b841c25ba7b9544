package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jibang-data/regional-news-pipeline/internal/domain"
)

func rec(url, date, title string) domain.Record {
	return domain.Record{
		URL:         url,
		PublishDate: date,
		Title:       title,
		Press:       "중부매일",
		Region:      "충청",
		Content:     "본문",
	}
}

func TestCSVMergeIntoEmptyArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.csv")
	s, err := NewCSVStore(path)
	if err != nil {
		t.Fatalf("NewCSVStore: %v", err)
	}

	res, err := s.Merge([]domain.Record{
		rec("https://a/1", "2026-09-01", "첫 기사"),
		rec("https://a/2", "2026-08-30", "둘째 기사"),
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if res.Total != 2 || res.Added != 2 || res.Replaced != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.UsedFallback || res.Path != path {
		t.Fatalf("expected primary path, got %+v", res)
	}

	loaded, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(loaded))
	}
	if loaded[0].URL != "https://a/1" {
		t.Fatalf("expected newest date first, got %s", loaded[0].URL)
	}
	if loaded[0].Title != "첫 기사" || loaded[0].Press != "중부매일" {
		t.Fatalf("round trip mangled record: %+v", loaded[0])
	}
}

func TestCSVMergeFreshRecordWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.csv")
	s, _ := NewCSVStore(path)

	if _, err := s.Merge([]domain.Record{rec("https://a/1", "2026-08-30", "옛 제목")}); err != nil {
		t.Fatalf("first merge: %v", err)
	}

	res, err := s.Merge([]domain.Record{
		rec("https://a/1", "2026-08-30", "고친 제목"),
		rec("https://a/2", "2026-09-01", "새 기사"),
	})
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}
	if res.Total != 2 || res.Added != 1 || res.Replaced != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}

	loaded, _ := s.Load()
	for _, r := range loaded {
		if r.URL == "https://a/1" && r.Title != "고친 제목" {
			t.Fatalf("fresh record should replace archived one, got %q", r.Title)
		}
	}
}

func TestCSVMergeIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.csv")
	s, _ := NewCSVStore(path)

	batch := []domain.Record{rec("https://a/1", "2026-09-01", "기사")}
	if _, err := s.Merge(batch); err != nil {
		t.Fatalf("first merge: %v", err)
	}
	res, err := s.Merge(batch)
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}
	if res.Total != 1 || res.Added != 0 || res.Replaced != 1 {
		t.Fatalf("re-merging the same batch changed the archive: %+v", res)
	}
}

func TestCSVMergeSkipsDuplicateURLsWithinBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.csv")
	s, _ := NewCSVStore(path)

	res, err := s.Merge([]domain.Record{
		rec("https://a/1", "2026-09-01", "먼저 온 기사"),
		rec("https://a/1", "2026-09-01", "뒤에 온 기사"),
	})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if res.Total != 1 {
		t.Fatalf("duplicate URL within batch not collapsed: %+v", res)
	}
	loaded, _ := s.Load()
	if loaded[0].Title != "먼저 온 기사" {
		t.Fatalf("first occurrence should win, got %q", loaded[0].Title)
	}
}

func TestCSVMergeFallsBackWhenTargetBlocked(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "news.csv")

	// A non-empty directory at the target path makes rename fail.
	if err := os.MkdirAll(filepath.Join(path, "block"), 0o755); err != nil {
		t.Fatalf("setup: %v", err)
	}

	s := &CSVStore{path: path}
	got, usedFallback, err := s.writeAtomic([]domain.Record{rec("https://a/1", "2026-09-01", "기사")})
	if err != nil {
		t.Fatalf("writeAtomic: %v", err)
	}
	if !usedFallback {
		t.Fatalf("expected fallback write, got %s", got)
	}
	if !strings.Contains(got, ".fallback-") {
		t.Fatalf("fallback path missing marker: %s", got)
	}
	if _, err := os.Stat(got); err != nil {
		t.Fatalf("fallback file missing: %v", err)
	}
}

func TestCSVLoadMissingFileIsEmpty(t *testing.T) {
	s, _ := NewCSVStore(filepath.Join(t.TempDir(), "absent.csv"))
	records, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty archive, got %d rows", len(records))
	}
}
