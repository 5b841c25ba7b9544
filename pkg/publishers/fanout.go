package publishers

import (
	"context"
	"errors"
	"fmt"
)

// Fanout delivers each accepted article event to every configured sink.
// One slow or broken sink never blocks the others from seeing the article.
type Fanout struct {
	sinks []Publisher
}

// NewFanout wraps the given publishers, dropping nil entries so disabled
// sinks from the registry cost nothing at publish time.
func NewFanout(pubs []Publisher) *Fanout {
	sinks := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			sinks = append(sinks, p)
		}
	}
	return &Fanout{sinks: sinks}
}

// Publish sends the article event to every sink and reports how many
// accepted it. Per-sink failures are joined into one error; delivery to
// the remaining sinks still happens.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil || len(f.sinks) == 0 {
		return 0, nil
	}

	delivered := 0
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("%s publisher[%s]: %w", sink.Type(), sink.ID(), err))
			continue
		}
		delivered++
	}
	return delivered, errors.Join(errs...)
}

// Size reports how many sinks are active.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.sinks)
}
