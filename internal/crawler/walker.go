package crawler

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jibang-data/regional-news-pipeline/internal/dedup"
	"github.com/jibang-data/regional-news-pipeline/internal/domain"
	"github.com/jibang-data/regional-news-pipeline/internal/logger"
	"github.com/jibang-data/regional-news-pipeline/pkg/httpclient"
	"github.com/jibang-data/regional-news-pipeline/pkg/sites"
)

// PageWalker crawls one site's listing pages in order, processing the items
// of each page concurrently. Stop decisions are made only after a page's
// worker pool has joined, so a page is always processed in full.
type PageWalker struct {
	client    httpclient.Client
	processor *ItemProcessor
	dedup     *dedup.Deduplicator
	log       logger.Logger

	workers     int
	maxArticles int

	sleep func(ctx context.Context, d time.Duration) error
}

func NewPageWalker(client httpclient.Client, processor *ItemProcessor, dd *dedup.Deduplicator, log logger.Logger, workers, maxArticles int) *PageWalker {
	if log == nil {
		log = logger.Nop{}
	}
	if workers <= 0 {
		workers = 1
	}
	return &PageWalker{
		client:      client,
		processor:   processor,
		dedup:       dd,
		log:         log,
		workers:     workers,
		maxArticles: maxArticles,
		sleep:       sleepCtx,
	}
}

// Walk crawls the site until a stop condition fires and returns the accepted
// records plus the run's counters. It never returns an error: a site that
// yields nothing is a statistic, not a failure.
func (w *PageWalker) Walk(ctx context.Context, site sites.Site, cutoff domain.CutoffPolicy) ([]domain.Record, domain.SiteStats) {
	stats := domain.SiteStats{
		Site:   site.Name,
		Press:  site.Press,
		Region: site.Region,
	}
	var accepted []domain.Record

	for page := 1; page <= site.MaxPages; page++ {
		if ctx.Err() != nil {
			stats.Stop = domain.StopCancelled
			return accepted, stats
		}

		items, ok := w.fetchListing(ctx, site, page)
		stats.PagesVisited++
		if !ok || len(items) == 0 {
			stats.Stop = domain.StopNoItems
			return accepted, stats
		}
		stats.ItemsSeen += len(items)

		batch := w.filterSeen(items, &stats)
		outcomes := w.processBatch(ctx, site, batch, cutoff)

		pageStale := 0
		capReached := false
		for _, outcome := range outcomes {
			switch outcome.Kind {
			case domain.OutcomeFresh:
				// Overflow past the cap stays unmarked so the next run
				// can still collect it.
				if w.maxArticles > 0 && len(accepted) >= w.maxArticles {
					capReached = true
					continue
				}
				stats.Fresh++
				if err := w.dedup.Mark(outcome.Record.URL); err != nil {
					w.log.WarnObj("failed to persist seen key", "error", err.Error())
				}
				accepted = append(accepted, outcome.Record)
			case domain.OutcomeStale:
				stats.Stale++
				pageStale++
			case domain.OutcomeFailed:
				stats.Failed++
				w.log.WarnObj("article processing failed", "detail", map[string]string{
					"site":  site.Name,
					"url":   outcome.Record.URL,
					"error": outcome.Err.Error(),
				})
			}
		}

		if pageStale >= site.StaleStopThreshold {
			stats.Stop = domain.StopCutoffReached
			return accepted, stats
		}
		if capReached || (w.maxArticles > 0 && len(accepted) >= w.maxArticles) {
			stats.Stop = domain.StopArticleCap
			return accepted, stats
		}

		if page < site.MaxPages {
			if err := w.sleep(ctx, site.PageDelay()); err != nil {
				stats.Stop = domain.StopCancelled
				return accepted, stats
			}
		}
	}

	stats.Stop = domain.StopMaxPagesExceeded
	return accepted, stats
}

func (w *PageWalker) fetchListing(ctx context.Context, site sites.Site, page int) ([]domain.ListingItem, bool) {
	url := site.ListingPageURL(page)
	resp, err := w.client.Get(ctx, url, site.RequestHeaders())
	if err != nil {
		w.log.WarnObj("listing page fetch failed", "detail", map[string]string{
			"site":  site.Name,
			"url":   url,
			"error": err.Error(),
		})
		return nil, false
	}

	items, err := sites.ListItems(site, resp.Body())
	if err != nil {
		w.log.WarnObj("listing page parse failed", "detail", map[string]string{
			"site":  site.Name,
			"url":   url,
			"error": err.Error(),
		})
		return nil, false
	}
	return items, true
}

// filterSeen drops items already accepted this run or recorded by earlier
// runs, before any detail fetch is spent on them.
func (w *PageWalker) filterSeen(items []domain.ListingItem, stats *domain.SiteStats) []domain.ListingItem {
	var batch []domain.ListingItem
	inBatch := make(map[string]bool, len(items))
	for _, item := range items {
		if item.URL == "" {
			continue
		}
		if inBatch[item.URL] || w.dedup.Seen(item.URL) {
			stats.Duplicates++
			continue
		}
		inBatch[item.URL] = true
		batch = append(batch, item)
	}
	return batch
}

// processBatch runs the page's items through a bounded worker pool. Every
// worker writes into its own slot, so outcomes need no lock and keep listing
// order.
func (w *PageWalker) processBatch(ctx context.Context, site sites.Site, batch []domain.ListingItem, cutoff domain.CutoffPolicy) []domain.Outcome {
	outcomes := make([]domain.Outcome, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.workers)
	for i, item := range batch {
		g.Go(func() error {
			if delay := site.RequestDelay(); delay > 0 {
				if err := w.sleep(gctx, delay); err != nil {
					outcomes[i] = domain.Outcome{Kind: domain.OutcomeFailed, Record: domain.Record{URL: item.URL}, Err: err}
					return nil
				}
			}
			outcomes[i] = w.processor.Process(gctx, site, item, cutoff)
			return nil
		})
	}
	g.Wait()

	return outcomes
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
