package publishers

import (
	"time"

	"github.com/jibang-data/regional-news-pipeline/internal/domain"
)

// Event is the payload published downstream for every accepted article.
type Event struct {
	Site        string        `json:"site"`
	Press       string        `json:"press"`
	Region      string        `json:"region"`
	Article     domain.Record `json:"article"`
	PublishedAt time.Time     `json:"published_at"`
}

// NewEvent constructs an Event for the given site + record.
func NewEvent(site string, record domain.Record) Event {
	return Event{
		Site:        site,
		Press:       record.Press,
		Region:      record.Region,
		Article:     record,
		PublishedAt: time.Now().UTC(),
	}
}
