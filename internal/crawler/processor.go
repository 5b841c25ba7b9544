package crawler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jibang-data/regional-news-pipeline/internal/domain"
	"github.com/jibang-data/regional-news-pipeline/internal/logger"
	"github.com/jibang-data/regional-news-pipeline/pkg/httpclient"
	"github.com/jibang-data/regional-news-pipeline/pkg/sites"
)

// ItemProcessor turns one listing item into a terminal Outcome. It never
// returns an error: failures are folded into the outcome so one broken
// article cannot take down a page.
type ItemProcessor struct {
	client httpclient.Client
	log    logger.Logger
	now    func() time.Time
}

func NewItemProcessor(client httpclient.Client, log logger.Logger) *ItemProcessor {
	if log == nil {
		log = logger.Nop{}
	}
	return &ItemProcessor{
		client: client,
		log:    log,
		now:    time.Now,
	}
}

// Process normalizes the item's date and, for items inside the cutoff window,
// fetches and parses the detail page. Items outside the window are classified
// Stale without any detail fetch.
func (p *ItemProcessor) Process(ctx context.Context, site sites.Site, item domain.ListingItem, cutoff domain.CutoffPolicy) domain.Outcome {
	date := sites.NormalizeDate(item.RawDate, p.now())

	record := domain.Record{
		URL:         item.URL,
		Title:       strings.TrimSpace(item.Title),
		Description: strings.TrimSpace(item.Description),
		PublishDate: date,
		Press:       site.Press,
		Region:      site.Region,
		ImageURL:    item.ImageURL,
		CollectedAt: p.now(),
	}

	if !cutoff.Includes(date) {
		return domain.Outcome{Kind: domain.OutcomeStale, Record: record}
	}

	resp, err := p.client.Get(ctx, item.URL, site.RequestHeaders())
	if err != nil {
		return domain.Outcome{
			Kind:   domain.OutcomeFailed,
			Record: record,
			Err:    fmt.Errorf("fetch detail: %w", err),
		}
	}

	fields, err := sites.ParseDetail(site, resp.Body())
	if err != nil {
		return domain.Outcome{
			Kind:   domain.OutcomeFailed,
			Record: record,
			Err:    fmt.Errorf("parse detail: %w", err),
		}
	}

	record.Subtitle = fields.Subtitle
	record.Content = fields.Content

	if record.Title == "" || record.Content == "" {
		return domain.Outcome{
			Kind:   domain.OutcomeFailed,
			Record: record,
			Err:    fmt.Errorf("article %s missing title or content", item.URL),
		}
	}

	return domain.Outcome{Kind: domain.OutcomeFresh, Record: record}
}
