package httpclient

import "fmt"

// retryStatus lists the HTTP statuses worth retrying: rate limits, transient
// upstream failures, and 403s that some sites emit under load.
var retryStatus = map[int]bool{
	403: true,
	429: true,
	500: true,
	502: true,
	503: true,
	504: true,
}

// TransportError wraps network-level failures (DNS, connect, timeout).
// These are retried up to the fetcher's retry budget.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error fetching %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError reports a non-200 response. Retriable errors exhausted their
// retry budget; permanent ones were not retried at all.
type HTTPError struct {
	URL        string
	StatusCode int
	Snippet    string
}

func (e *HTTPError) Error() string {
	if e.Snippet == "" {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: status %d body: %s", e.URL, e.StatusCode, e.Snippet)
}

// Retriable reports whether the status is in the transient set.
func (e *HTTPError) Retriable() bool { return retryStatus[e.StatusCode] }
