package domain

import "time"

// Domain contains core models shared across the crawl pipeline.

// Record is the unit of output produced by a crawl run. URL is the
// canonical article URL and the unique key in every persisted store.
type Record struct {
	URL         string
	Title       string
	Subtitle    string
	Description string
	Content     string
	PublishDate string // YYYY-MM-DD, no time component
	Press       string
	Region      string
	ImageURL    string
	CollectedAt time.Time
}

// ListingItem is a single entry extracted from a listing page. RawDate is the
// date text exactly as the site printed it; normalization happens later.
type ListingItem struct {
	URL         string
	Title       string
	RawDate     string
	Description string
	ImageURL    string
}

// DetailFields holds what the detail page contributes to a Record.
type DetailFields struct {
	Subtitle string
	Content  string
}

// CutoffPolicy bounds how far back a run collects. Dates are YYYY-MM-DD
// strings, so ordinary string comparison orders them correctly.
type CutoffPolicy struct {
	CutoffDate string
}

// Includes reports whether an article published on date is still eligible.
func (c CutoffPolicy) Includes(date string) bool {
	return date >= c.CutoffDate
}

// OutcomeKind classifies the result of processing one listing item.
type OutcomeKind int

const (
	OutcomeFresh OutcomeKind = iota
	OutcomeStale
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeFresh:
		return "fresh"
	case OutcomeStale:
		return "stale"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result for one listing item. Processing never
// raises past this boundary: failures are carried in Err for logging only.
type Outcome struct {
	Kind   OutcomeKind
	Record Record
	Err    error
}

// StopReason explains why a page walker stopped advancing.
type StopReason string

const (
	StopNoItems          StopReason = "no_items"
	StopCutoffReached    StopReason = "cutoff_reached"
	StopMaxPagesExceeded StopReason = "max_pages_exceeded"
	StopArticleCap       StopReason = "article_cap"
	StopCancelled        StopReason = "cancelled"
)

// SiteStats are the per-site counters for one crawl run. A SiteStats value is
// owned by a single page walker and never shared across sites.
type SiteStats struct {
	Site         string
	Press        string
	Region       string
	PagesVisited int
	ItemsSeen    int
	Fresh        int
	Stale        int
	Failed       int
	Duplicates   int
	Stop         StopReason
}
