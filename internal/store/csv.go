package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jibang-data/regional-news-pipeline/internal/domain"
)

// csvHeader is the fixed column order of the archive file. Readers downstream
// key on column position, so this never changes without a migration.
var csvHeader = []string{
	"date", "press", "region", "title", "sub_title",
	"description", "content", "article_url", "image_url",
}

const renameRetries = 3

// MergeResult summarizes one archive merge.
type MergeResult struct {
	Total        int
	Added        int
	Replaced     int
	Path         string
	UsedFallback bool
}

// CSVStore persists records to a single CSV archive, merged atomically on
// every run. The URL column is the identity key.
type CSVStore struct {
	path string
}

func NewCSVStore(path string) (*CSVStore, error) {
	if path == "" {
		return nil, errors.New("csv store requires a path")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create archive directory: %w", err)
		}
	}
	return &CSVStore{path: path}, nil
}

func (s *CSVStore) Path() string { return s.path }

// Load reads the existing archive. A missing file is an empty archive, not
// an error. Rows with a blank URL are dropped.
func (s *CSVStore) Load() ([]domain.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var records []domain.Record
	first := true
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read archive row: %w", err)
		}
		if first {
			first = false
			if len(row) > 0 && row[0] == csvHeader[0] {
				continue
			}
		}
		rec := rowToRecord(row)
		if rec.URL == "" {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// KnownURLs returns the URLs already archived, for seeding deduplication.
func (s *CSVStore) KnownURLs() ([]string, error) {
	records, err := s.Load()
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(records))
	for _, r := range records {
		urls = append(urls, r.URL)
	}
	return urls, nil
}

// Merge combines fresh records with the existing archive and rewrites the
// file atomically. When a URL appears in both, the fresh record wins. The
// merged archive is sorted newest date first.
func (s *CSVStore) Merge(fresh []domain.Record) (MergeResult, error) {
	existing, err := s.Load()
	if err != nil {
		return MergeResult{}, err
	}

	seen := make(map[string]bool, len(fresh)+len(existing))
	merged := make([]domain.Record, 0, len(fresh)+len(existing))
	result := MergeResult{Path: s.path}

	freshKept := 0
	for _, r := range fresh {
		if r.URL == "" || seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		merged = append(merged, r)
		freshKept++
	}
	for _, r := range existing {
		if seen[r.URL] {
			result.Replaced++
			continue
		}
		seen[r.URL] = true
		merged = append(merged, r)
	}
	result.Added = freshKept - result.Replaced
	result.Total = len(merged)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishDate > merged[j].PublishDate
	})

	path, usedFallback, err := s.writeAtomic(merged)
	if err != nil {
		return MergeResult{}, err
	}
	result.Path = path
	result.UsedFallback = usedFallback
	return result, nil
}

// writeAtomic writes the full archive to a temp file in the same directory
// and renames it over the target. If the rename keeps failing, the archive
// is saved under a timestamped fallback name so the run's data survives.
func (s *CSVStore) writeAtomic(records []domain.Record) (string, bool, error) {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return "", false, fmt.Errorf("create temp archive: %w", err)
	}
	tmpPath := tmp.Name()

	if err := writeCSV(tmp, records); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", false, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", false, fmt.Errorf("close temp archive: %w", err)
	}

	var renameErr error
	for attempt := 0; attempt < renameRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
		}
		if renameErr = os.Rename(tmpPath, s.path); renameErr == nil {
			return s.path, false, nil
		}
	}

	fallback := fallbackPath(s.path)
	if err := os.Rename(tmpPath, fallback); err != nil {
		os.Remove(tmpPath)
		return "", false, fmt.Errorf("replace archive: %w (fallback also failed: %v)", renameErr, err)
	}
	return fallback, true, nil
}

func fallbackPath(path string) string {
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	return fmt.Sprintf("%s.fallback-%s%s", base, time.Now().Format("20060102T150405"), ext)
}

func writeCSV(w io.Writer, records []domain.Record) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write archive header: %w", err)
	}
	for _, r := range records {
		if err := writer.Write(recordToRow(r)); err != nil {
			return fmt.Errorf("write archive row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func recordToRow(r domain.Record) []string {
	return []string{
		r.PublishDate, r.Press, r.Region, r.Title, r.Subtitle,
		r.Description, r.Content, r.URL, r.ImageURL,
	}
}

func rowToRecord(row []string) domain.Record {
	get := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	return domain.Record{
		PublishDate: get(0),
		Press:       get(1),
		Region:      get(2),
		Title:       get(3),
		Subtitle:    get(4),
		Description: get(5),
		Content:     get(6),
		URL:         get(7),
		ImageURL:    get(8),
	}
}
