package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jibang-data/regional-news-pipeline/internal/config"
	"github.com/jibang-data/regional-news-pipeline/internal/crawler"
	"github.com/jibang-data/regional-news-pipeline/internal/dedup"
	"github.com/jibang-data/regional-news-pipeline/internal/keyword"
	"github.com/jibang-data/regional-news-pipeline/internal/logger"
	"github.com/jibang-data/regional-news-pipeline/internal/store"
	"github.com/jibang-data/regional-news-pipeline/pkg/httpclient"
	"github.com/jibang-data/regional-news-pipeline/pkg/publishers"
	"github.com/jibang-data/regional-news-pipeline/pkg/sites"
)

// RunOptions are the per-invocation switches from the CLI. Zero values fall
// back to config.
type RunOptions struct {
	Mode        string // "all" or "region"
	Region      string
	MaxArticles int
	Output      string
	SaveCSV     bool
	SaveDB      bool
	Publish     bool
	Loop        bool
}

// Pipeline is the crawl runtime. It wires sites, the fetcher, deduplication,
// stores and publishers, and runs crawl passes until told to stop.
type Pipeline struct {
	cfg      *config.Config
	opts     RunOptions
	log      logger.Logger
	siteReg  *sites.Registry
	fetcher  *httpclient.Fetcher
	cache    dedup.Cache
	csvStore *store.CSVStore
	sqlStore *store.SQLStore
	fanout   *publishers.Fanout
}

// NewPipeline builds a pipeline runtime from config files.
func NewPipeline(ctx context.Context, cfg *config.Config, log logger.Logger, opts RunOptions) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.Nop{}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Mode == "" {
		opts.Mode = "all"
	}
	if opts.Mode == "region" && strings.TrimSpace(opts.Region) == "" {
		return nil, fmt.Errorf("region mode requires a region")
	}

	siteReg, err := sites.LoadRegistry(cfg.SitesFile)
	if err != nil {
		return nil, fmt.Errorf("load sites registry: %w", err)
	}
	log.InfoObj("sites registry loaded", "sites_meta", map[string]any{
		"count":   len(siteReg.All()),
		"regions": siteReg.Regions(),
	})

	p := &Pipeline{
		cfg:     cfg,
		opts:    opts,
		log:     log,
		siteReg: siteReg,
		fetcher: httpclient.NewFetcher(httpclient.Options{
			Timeout:       cfg.FetchTimeout,
			MaxRetries:    cfg.MaxRetries,
			BackoffFactor: cfg.BackoffFactor,
		}),
	}

	p.cache, err = dedup.NewCache(cfg.CacheType, cfg.CachePath, dedup.Options{
		KeyTTL:          cfg.CacheTTL,
		CleanupInterval: cfg.CacheCleanupInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("init seen cache: %w", err)
	}

	if opts.SaveCSV {
		csvPath := cfg.CSVPath
		if opts.Output != "" {
			csvPath = opts.Output
		}
		p.csvStore, err = store.NewCSVStore(csvPath)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("init csv store: %w", err)
		}
	}
	if opts.SaveDB {
		p.sqlStore, err = store.NewSQLStore(cfg.SQLitePath)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
	}

	if opts.Publish {
		pubReg, err := publishers.LoadRegistry(cfg.PublishersFile)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("load publishers registry: %w", err)
		}
		enabled := pubReg.Enabled()
		if len(enabled) == 0 {
			p.Close()
			return nil, fmt.Errorf("publishing requested but no publishers enabled")
		}
		pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("build publishers: %w", err)
		}
		p.fanout = publishers.NewFanout(pubs)
		log.InfoObj("publishers ready", "publishers_meta", map[string]any{
			"count": p.fanout.Size(),
		})
	}

	return p, nil
}

// Run executes one crawl pass, or keeps crawling on the configured interval
// when loop mode is on, until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	defer p.Close()

	if err := p.RunOnce(ctx); err != nil {
		p.log.ErrorObj("crawl pass failed", "error", err.Error())
		if !p.opts.Loop {
			return err
		}
	}
	if !p.opts.Loop {
		return nil
	}

	ticker := time.NewTicker(p.cfg.CrawlInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.InfoObj("crawl loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := p.RunOnce(ctx); err != nil {
				p.log.ErrorObj("scheduled crawl pass failed", "error", err.Error())
			}
		}
	}
}

// RunOnce performs a single crawl pass over the selected sites and persists
// the results.
func (p *Pipeline) RunOnce(ctx context.Context) error {
	siteList := p.selectSites()
	if len(siteList) == 0 {
		return fmt.Errorf("no sites configured for mode %q region %q", p.opts.Mode, p.opts.Region)
	}

	start := time.Now()
	p.log.InfoObj("crawl started", "crawl_meta", map[string]any{
		"sites_count": len(siteList),
		"mode":        p.opts.Mode,
		"started_at":  start.UTC(),
	})

	dd := dedup.New(p.cache)
	p.seedDedup(ctx, dd)

	maxArticles := p.cfg.MaxArticles
	if p.opts.MaxArticles > 0 {
		maxArticles = p.opts.MaxArticles
	}

	runner := crawler.NewRunner(p.fetcher, dd, p.log, p.cfg.WorkerPoolSize, maxArticles)
	cutoff := crawler.CutoffForDays(start, p.cfg.CutoffDays)
	report := runner.Crawl(ctx, siteList, cutoff)

	if err := p.persist(ctx, report); err != nil {
		return err
	}
	p.publish(ctx, report)

	p.log.InfoObj("crawl completed", "crawl_summary", map[string]any{
		"accepted":      len(report.Records),
		"failed":        report.TotalFailed(),
		"region_counts": report.RegionCounts,
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
	return nil
}

// Close releases the pipeline's stores and cache.
func (p *Pipeline) Close() {
	if p.sqlStore != nil {
		if err := p.sqlStore.Close(); err != nil {
			p.log.ErrorObj("sqlite close failed", "error", err.Error())
		}
		p.sqlStore = nil
	}
	if p.cache != nil {
		if err := p.cache.Close(); err != nil {
			p.log.ErrorObj("cache close failed", "error", err.Error())
		}
		p.cache = nil
	}
}

func (p *Pipeline) selectSites() []sites.Site {
	if p.opts.Mode == "region" {
		return p.siteReg.ByRegion(p.opts.Region)
	}
	return p.siteReg.All()
}

// seedDedup pre-marks URLs already persisted, so a re-run with a wiped cache
// still cannot duplicate archive rows.
func (p *Pipeline) seedDedup(ctx context.Context, dd *dedup.Deduplicator) {
	if p.csvStore != nil {
		urls, err := p.csvStore.KnownURLs()
		if err != nil {
			p.log.WarnObj("csv archive seed failed", "error", err.Error())
		} else {
			dd.SeedKeys(urls)
		}
	}
	if p.sqlStore != nil {
		urls, err := p.sqlStore.KnownURLs(ctx)
		if err != nil {
			p.log.WarnObj("sqlite seed failed", "error", err.Error())
		} else {
			dd.SeedKeys(urls)
		}
	}
}

func (p *Pipeline) persist(ctx context.Context, report crawler.RunReport) error {
	if len(report.Records) == 0 {
		return nil
	}

	if p.csvStore != nil {
		res, err := p.csvStore.Merge(report.Records)
		if err != nil {
			return fmt.Errorf("merge csv archive: %w", err)
		}
		p.log.InfoObj("csv archive merged", "merge_result", map[string]any{
			"total":         res.Total,
			"added":         res.Added,
			"replaced":      res.Replaced,
			"path":          res.Path,
			"used_fallback": res.UsedFallback,
		})
	}

	if p.sqlStore != nil {
		keywords := make(map[string]string, len(report.Records))
		for _, r := range report.Records {
			keywords[r.URL] = keyword.Join(keyword.Extract(r.Title, r.Content, 5))
		}
		written, err := p.sqlStore.Upsert(ctx, report.Records, keywords)
		if err != nil {
			return fmt.Errorf("upsert sqlite rows: %w", err)
		}
		p.log.InfoObj("sqlite rows written", "written", written)
	}

	return nil
}

// publish fans accepted records out to the configured sinks. Publish failures
// are logged, never fatal: the archive already holds the data.
func (p *Pipeline) publish(ctx context.Context, report crawler.RunReport) {
	if p.fanout == nil || p.fanout.Size() == 0 {
		return
	}

	published := 0
	for _, record := range report.Records {
		evt := publishers.NewEvent(report.SiteFor[record.URL], record)
		if _, err := p.fanout.Publish(ctx, evt); err != nil {
			p.log.WarnObj("event publish failed", "detail", map[string]string{
				"url":   record.URL,
				"error": err.Error(),
			})
			continue
		}
		published++
	}
	p.log.InfoObj("events published", "published", published)
}
