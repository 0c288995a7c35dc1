// SPDX-License-Identifier: MPL-2.0

// Package fetch retrieves raw file contents from git-hosted repositories.
//
// Every retrieval runs behind a bounded retry policy (a fixed number of
// attempts with a fixed delay between them). Repository-relative paths are
// resolved against the main branch first, falling back to master for
// repositories that predate the default-branch rename.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// DefaultAttempts is the number of tries before a fetch is surfaced
	// as failed.
	DefaultAttempts = 3

	// DefaultDelay is the pause between consecutive attempts.
	DefaultDelay = time.Second

	// maxBodyBytes bounds a single fetched file (50 MB). Repository
	// manifests and shell libraries are tiny; anything near this limit
	// is malformed or hostile.
	maxBodyBytes = 50 << 20
)

// branchCandidates are the default branches tried, in order, when resolving
// a repository-relative path.
var branchCandidates = [...]string{"main", "master"}

type (
	// Error is the terminal failure of a fetch after the retry budget is
	// exhausted. URLs lists every location that was tried (one entry for a
	// direct fetch, two for a branch-fallback fetch).
	Error struct {
		URLs     []string
		Attempts int
		Cause    error
	}

	// Fetcher retrieves bytes over HTTP with bounded retries. The zero
	// value is not usable; construct with New.
	Fetcher struct {
		client   *http.Client
		attempts int
		delay    time.Duration
		logger   *log.Logger

		// sleep is a test seam so retry tests do not wait wall-clock time.
		sleep func(ctx context.Context, d time.Duration) error
	}

	// Option configures a Fetcher during construction.
	Option func(*Fetcher)
)

// Error formats the failure with every attempted URL and the attempt count.
func (e *Error) Error() string {
	return fmt.Sprintf("fetch failed after %d attempt(s): %s: %v",
		e.Attempts, strings.Join(e.URLs, ", "), e.Cause)
}

// Unwrap returns the last underlying transport error.
func (e *Error) Unwrap() error { return e.Cause }

// WithHTTPClient overrides the HTTP client, useful for tests and proxies.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithLogger sets the logger used for per-attempt retry warnings.
func WithLogger(l *log.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// WithRetryPolicy overrides the attempt count and inter-attempt delay.
func WithRetryPolicy(attempts int, delay time.Duration) Option {
	return func(f *Fetcher) {
		f.attempts = max(attempts, 1)
		f.delay = delay
	}
}

// New creates a Fetcher with the default retry policy (3 attempts, 1s
// fixed delay).
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:   http.DefaultClient,
		attempts: DefaultAttempts,
		delay:    DefaultDelay,
		logger:   log.Default(),
		sleep: func(ctx context.Context, d time.Duration) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
				return nil
			}
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves url and returns the body. An empty body counts as a
// failed attempt: package files and manifests are never legitimately empty,
// and a zero-byte response usually means a soft 404 from the host.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f.fetchRetry(ctx, url, false)
}

// FetchString retrieves url and returns the body decoded as text. Unlike
// Fetch, an empty body is returned as-is — callers validate content shape
// themselves (e.g. the self-update version marker).
func (f *Fetcher) FetchString(ctx context.Context, url string) (string, error) {
	body, err := f.fetchRetry(ctx, url, true)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchToFile retrieves url and writes the body to path, creating parent
// directories as needed. Nothing is written unless the fetch succeeds.
func (f *Fetcher) FetchToFile(ctx context.Context, url, path string) error {
	body, err := f.fetchRetry(ctx, url, false)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// FetchFallback retrieves relPath from repoURL, trying the main branch
// first and then master. The first success wins; when both fail the
// returned *Error names both URLs. Like Fetch, an empty body counts as a
// failed attempt: callers feed the result to a parser or install it as a
// binary, and neither may see a soft 404's zero bytes as content.
func (f *Fetcher) FetchFallback(ctx context.Context, repoURL, relPath string) ([]byte, error) {
	urls := make([]string, 0, len(branchCandidates))

	var lastErr error
	for _, branch := range branchCandidates {
		url := RawURL(repoURL, branch, relPath)
		urls = append(urls, url)

		body, err := f.fetchRetry(ctx, url, false)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}

	return nil, &Error{URLs: urls, Attempts: f.attempts, Cause: lastErr}
}

// RawURL builds the raw-content URL for a file on a branch of a git-hosted
// repository.
func RawURL(repoURL, branch, relPath string) string {
	base := strings.TrimSuffix(repoURL, "/")
	return base + "/raw/" + branch + "/" + strings.TrimPrefix(relPath, "/")
}

// fetchRetry runs the retry loop around a single URL. When emptyOK is
// false, a zero-byte body is treated as a failed attempt.
func (f *Fetcher) fetchRetry(ctx context.Context, url string, emptyOK bool) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= f.attempts; attempt++ {
		body, err := f.fetchOnce(ctx, url, emptyOK)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt < f.attempts {
			f.logger.Warn("fetch attempt failed, retrying",
				"url", url, "attempt", attempt, "err", err)
			if sleepErr := f.sleep(ctx, f.delay); sleepErr != nil {
				return nil, &Error{URLs: []string{url}, Attempts: attempt, Cause: sleepErr}
			}
		}
	}

	return nil, &Error{URLs: []string{url}, Attempts: f.attempts, Cause: lastErr}
}

// fetchOnce performs a single HTTP GET.
func (f *Fetcher) fetchOnce(ctx context.Context, url string, emptyOK bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() // read-only response body

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	if len(body) == 0 && !emptyOK {
		return nil, fmt.Errorf("empty response body")
	}

	return body, nil
}
