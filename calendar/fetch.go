package calendar

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// FetchError is a non-success HTTP response from the feed host. The
// message carries only the status line, never the URL, so it is safe to
// surface in a sync summary.
type FetchError struct {
	StatusCode int
	Status     string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("calendar fetch failed: %s", e.Status)
}

// EmptyFeedError is a 2xx response whose body is empty or whitespace.
type EmptyFeedError struct{}

func (e *EmptyFeedError) Error() string {
	return "calendar feed is empty"
}

// Fetcher retrieves raw calendar text. It never retries; retry policy
// belongs to the orchestrator's schedule.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Fetcher{client: client}
}

// NormalizeURL rewrites the webcal pseudo-schemes used by calendar
// subscription links to their secure HTTP equivalent.
func NormalizeURL(raw string) string {
	lower := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lower, "webcals://"):
		return "https://" + raw[len("webcals://"):]
	case strings.HasPrefix(lower, "webcal://"):
		return "https://" + raw[len("webcal://"):]
	}
	return raw
}

// Fetch downloads the feed at url and returns its raw bytes.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, NormalizeURL(url), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("User-Agent", "turnover-sync/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, &EmptyFeedError{}
	}

	return body, nil
}

// RedactURL hides the path and query of a feed URL for logging. Feed URLs
// embed per-property secrets and must never land in logs whole.
func RedactURL(u string) string {
	i := strings.Index(u, "://")
	if i == -1 {
		return "(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j != -1 {
		rest = rest[:j]
	}
	return u[:i+3] + rest + "/...(redacted)"
}
