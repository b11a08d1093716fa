// Package github is a small client for the three GitHub REST endpoints the
// service proxies: repository search, repository detail, and the rendered
// README.
//
// AUTHENTICATION:
// Anonymous calls work but share a low per-IP rate limit. When a token is
// configured, the HTTP client comes from golang.org/x/oauth2 with a static
// token source, which adds "Authorization: Bearer <token>" to every request.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/repo-bookmarks/internal/metrics"
	"github.com/sakif/repo-bookmarks/internal/model"
)

const (
	DefaultBaseURL = "https://api.github.com"
	DefaultTimeout = 10 * time.Second

	mediaTypeJSON = "application/vnd.github+json"
	mediaTypeHTML = "application/vnd.github.html+json"
	apiVersion    = "2022-11-28"

	// maxReadmeBytes caps how much rendered README we buffer.
	maxReadmeBytes = 5 << 20
)

// ErrNotFound is wrapped by StatusError for a 404 response.
var ErrNotFound = errors.New("github: not found")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Endpoint   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github: %s returned status %d", e.Endpoint, e.StatusCode)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Config configures a Client. Zero values pick the defaults.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Metrics metrics.Recorder
	Logger  *slog.Logger
}

type Client struct {
	http    *http.Client
	baseURL string
	metrics metrics.Recorder
	logger  *slog.Logger
}

func NewClient(cfg Config) (*Client, error) {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("github: invalid base URL %q: %w", base, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// Without a token the client stays anonymous.
	httpClient := &http.Client{}
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	httpClient.Timeout = timeout

	rec := cfg.Metrics
	if rec == nil {
		rec = metrics.Noop{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(base, "/"),
		metrics: rec,
		logger:  logger,
	}, nil
}

// SearchRepositories runs GET /search/repositories?q=<query>&per_page=<perPage>
// and reshapes the items. The query is passed through as-is (GitHub's
// search qualifiers like "language:go" work).
func (c *Client) SearchRepositories(ctx context.Context, query string, perPage int) ([]model.RepoSummary, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("per_page", strconv.Itoa(perPage))

	var body searchResponse
	if err := c.getJSON(ctx, "search", "/search/repositories?"+params.Encode(), &body); err != nil {
		return nil, err
	}

	out := make([]model.RepoSummary, 0, len(body.Items))
	for _, item := range body.Items {
		out = append(out, item.summary())
	}
	return out, nil
}

// GetRepository runs GET /repos/{owner}/{repo}.
func (c *Client) GetRepository(ctx context.Context, owner, repo string) (*model.RepoDetail, error) {
	var body repository
	if err := c.getJSON(ctx, "repo", repoPath(owner, repo), &body); err != nil {
		return nil, err
	}
	d := body.detail()
	return &d, nil
}

// GetReadmeHTML runs GET /repos/{owner}/{repo}/readme asking for the
// rendered HTML representation.
func (c *Client) GetReadmeHTML(ctx context.Context, owner, repo string) (string, error) {
	resp, err := c.do(ctx, "readme", repoPath(owner, repo)+"/readme", mediaTypeHTML)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxReadmeBytes))
	if err != nil {
		return "", fmt.Errorf("github: reading readme: %w", err)
	}
	return string(b), nil
}

func repoPath(owner, repo string) string {
	return "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo)
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, v any) error {
	resp, err := c.do(ctx, endpoint, path, mediaTypeJSON)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("github: decoding %s response: %w", endpoint, err)
	}
	return nil
}

// do sends one GET request. Non-2xx responses are drained, closed, and
// returned as *StatusError. There is no retry.
func (c *Client) do(ctx context.Context, endpoint, path, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("github: building %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", "repo-bookmarks")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(endpoint, 0, time.Since(start))
		return nil, fmt.Errorf("github: %s request: %w", endpoint, err)
	}
	c.metrics.ObserveUpstream(endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()

		c.logger.Warn("github request failed",
			slog.String("endpoint", endpoint),
			slog.Int("status", resp.StatusCode),
			slog.String("rate_limit_remaining", resp.Header.Get("X-RateLimit-Remaining")),
		)
		return nil, &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}
	return resp, nil
}
