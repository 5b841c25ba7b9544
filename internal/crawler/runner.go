package crawler

import (
	"context"
	"time"

	"github.com/jibang-data/regional-news-pipeline/internal/dedup"
	"github.com/jibang-data/regional-news-pipeline/internal/domain"
	"github.com/jibang-data/regional-news-pipeline/internal/logger"
	"github.com/jibang-data/regional-news-pipeline/pkg/httpclient"
	"github.com/jibang-data/regional-news-pipeline/pkg/sites"
)

// Runner crawls a set of sites sequentially and aggregates the results. A
// failing site contributes its counters and nothing else; the run always
// completes.
type Runner struct {
	client      httpclient.Client
	dedup       *dedup.Deduplicator
	log         logger.Logger
	workers     int
	maxArticles int
	now         func() time.Time
}

// RunReport collects everything one crawl pass produced. SiteFor maps each
// accepted URL back to the site that yielded it.
type RunReport struct {
	Records      []domain.Record
	Stats        []domain.SiteStats
	RegionCounts map[string]int
	SiteFor      map[string]string
	StartedAt    time.Time
	FinishedAt   time.Time
}

func NewRunner(client httpclient.Client, dd *dedup.Deduplicator, log logger.Logger, workers, maxArticles int) *Runner {
	if log == nil {
		log = logger.Nop{}
	}
	return &Runner{
		client:      client,
		dedup:       dd,
		log:         log,
		workers:     workers,
		maxArticles: maxArticles,
		now:         time.Now,
	}
}

// CutoffForDays builds the inclusive date window ending at now and reaching
// days back.
func CutoffForDays(now time.Time, days int) domain.CutoffPolicy {
	if days < 0 {
		days = 0
	}
	return domain.CutoffPolicy{
		CutoffDate: now.AddDate(0, 0, -days).Format("2006-01-02"),
	}
}

// Crawl walks every site in order and returns the combined report. The
// per-site article cap applies to each site independently.
func (r *Runner) Crawl(ctx context.Context, siteList []sites.Site, cutoff domain.CutoffPolicy) RunReport {
	report := RunReport{
		RegionCounts: make(map[string]int),
		SiteFor:      make(map[string]string),
		StartedAt:    r.now(),
	}

	for _, site := range siteList {
		if ctx.Err() != nil {
			r.log.WarnObj("crawl cancelled", "remaining_site", site.Name)
			break
		}

		walker := NewPageWalker(r.client, NewItemProcessor(r.client, r.log), r.dedup, r.log, r.workers, r.maxArticles)
		records, stats := walker.Walk(ctx, site, cutoff)

		report.Records = append(report.Records, records...)
		report.Stats = append(report.Stats, stats)
		report.RegionCounts[site.Region] += len(records)
		for _, rec := range records {
			report.SiteFor[rec.URL] = site.Name
		}

		r.log.InfoObj("site crawl finished", "stats", stats)
	}

	report.FinishedAt = r.now()
	return report
}

// TotalFresh sums accepted articles across sites.
func (rep RunReport) TotalFresh() int {
	total := 0
	for _, s := range rep.Stats {
		total += s.Fresh
	}
	return total
}

// TotalFailed sums processing failures across sites.
func (rep RunReport) TotalFailed() int {
	total := 0
	for _, s := range rep.Stats {
		total += s.Failed
	}
	return total
}
