package httpclient

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
)

const (
	defaultTimeout       = 15 * time.Second
	defaultMaxRetries    = 3
	defaultBackoffFactor = 1.5
	maxSnippetBytes      = 512
)

// Options tunes a Fetcher. Zero values fall back to defaults.
type Options struct {
	Timeout       time.Duration
	MaxRetries    int
	BackoffFactor float64
}

// Fetcher is a retrying HTTP client. It retries transport errors and the
// transient status set with exponential backoff, normalizes response bytes to
// UTF-8, and reports everything else as a typed permanent failure. The
// underlying resty client pools connections and is safe for concurrent use,
// so one Fetcher serves a whole crawl run.
type Fetcher struct {
	client        *resty.Client
	maxRetries    int
	backoffFactor float64

	// sleep is swapped out in tests to avoid real waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher builds a Fetcher with the given options.
func NewFetcher(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if opts.BackoffFactor < 1 {
		opts.BackoffFactor = defaultBackoffFactor
	}

	c := resty.New()
	c.SetTimeout(opts.Timeout)

	return &Fetcher{
		client:        c,
		maxRetries:    opts.MaxRetries,
		backoffFactor: opts.BackoffFactor,
		sleep:         sleepCtx,
	}
}

// Get issues an HTTP GET with retry and backoff. A nil error means status 200
// and a body already re-decoded to UTF-8. After the retry budget is spent the
// last typed error is returned; callers treat that as "no data", never fatal.
func (f *Fetcher) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	var lastErr error

	for attempt := 0; attempt < f.maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(math.Pow(f.backoffFactor, float64(attempt-1)) * float64(time.Second))
			if err := f.sleep(ctx, wait); err != nil {
				return nil, &TransportError{URL: url, Err: err}
			}
		}

		req := f.client.R().SetContext(ctx)
		if len(headers) > 0 {
			req.SetHeaders(headers)
		}

		resp, err := req.Get(url)
		if err != nil {
			lastErr = &TransportError{URL: url, Err: err}
			continue
		}

		code := resp.StatusCode()
		if code == 200 {
			body := decodeToUTF8(resp.Body(), resp.Header().Get("Content-Type"))
			return &fetchedResponse{body: body, status: code}, nil
		}

		httpErr := &HTTPError{URL: url, StatusCode: code, Snippet: bodySnippet(resp.Body())}
		if !httpErr.Retriable() {
			return nil, httpErr
		}
		lastErr = httpErr
	}

	return nil, lastErr
}

type fetchedResponse struct {
	body   []byte
	status int
}

func (r *fetchedResponse) Body() []byte    { return r.body }
func (r *fetchedResponse) StatusCode() int { return r.status }

// bodySnippet trims the body to a short excerpt for error messages, cutting
// on a rune boundary so Korean text is not split mid-sequence.
func bodySnippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) <= maxSnippetBytes {
		return s
	}
	cut := maxSnippetBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
