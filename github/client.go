package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/thesurlydev/wiwo/logger"
	"github.com/thesurlydev/wiwo/models"
)

const (
	userAgent = "wiwo-cli"
	accept    = "application/vnd.github.v3+json"

	// PageSize is GitHub's maximum allowed per_page.
	PageSize = 100

	// maxRetries bounds retries of transient network failures on GETs.
	maxRetries = 3
)

// RateLimit represents GitHub's rate limit information
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// Client represents a GitHub API client
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	limiter    *rate.Limiter
	authorized bool
}

// NewClient creates a GitHub API client. When a token is supplied the
// client authenticates through an oauth2 transport, unlocking the
// received-events and private-events endpoints.
func NewClient(token string, timeout time.Duration) *Client {
	baseURL, _ := url.Parse("https://api.github.com")

	httpClient := &http.Client{Timeout: timeout}
	if token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), src)
		httpClient.Timeout = timeout
	}

	logger.Debug("Initializing GitHub client",
		zap.String("base_url", baseURL.String()),
		zap.Bool("authorized", token != ""))

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		// Stays well under GitHub's secondary rate limits.
		limiter:    rate.NewLimiter(rate.Limit(5), 10),
		authorized: token != "",
	}
}

// Authorized reports whether the client carries a token.
func (c *Client) Authorized() bool {
	return c.authorized
}

// get performs a rate-limited GET with bounded retries for transient
// network failures. HTTP status codes are classified into the package's
// error taxonomy; rate-limit responses carry the advertised reset time.
func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", accept)
		req.Header.Set("User-Agent", userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			logger.Warn("Request failed, retrying",
				zap.Error(err),
				zap.String("url", reqURL),
				zap.Int("attempt", attempt))
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, reqURL)
		case resp.StatusCode == http.StatusTooManyRequests,
			resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
			return nil, &RateLimitError{Reset: parseRateLimit(resp).Reset}
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			return nil, fmt.Errorf("%w: %s", ErrUnauthorized, reqURL)
		default:
			return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, reqURL)
		}
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, lastErr)
}

// parseRateLimit parses rate limit information from response headers
func parseRateLimit(resp *http.Response) RateLimit {
	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))
	remaining, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	reset, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)

	return RateLimit{
		Limit:     limit,
		Remaining: remaining,
		Reset:     time.Unix(reset, 0),
	}
}

// fetchEventPage fetches one page of an events endpoint.
func (c *Client) fetchEventPage(ctx context.Context, path string, page int) ([]models.RawEvent, error) {
	reqURL := c.baseURL.ResolveReference(&url.URL{Path: path})
	q := reqURL.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(PageSize))
	reqURL.RawQuery = q.Encode()

	body, err := c.get(ctx, reqURL.String())
	if err != nil {
		return nil, err
	}

	var events []models.RawEvent
	if err := sonic.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return events, nil
}

// ListRepositories returns all repositories owned by a user, walking the
// paginated repository-listing endpoint to the end.
func (c *Client) ListRepositories(ctx context.Context, user string) ([]models.Repository, error) {
	var all []models.Repository
	for page := 1; ; page++ {
		reqURL := c.baseURL.ResolveReference(&url.URL{Path: fmt.Sprintf("/users/%s/repos", user)})
		q := reqURL.Query()
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", strconv.Itoa(PageSize))
		q.Set("type", "owner")
		reqURL.RawQuery = q.Encode()

		body, err := c.get(ctx, reqURL.String())
		if err != nil {
			return nil, fmt.Errorf("failed to list repositories for %s: %w", user, err)
		}

		var repos []models.Repository
		if err := sonic.Unmarshal(body, &repos); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}

		all = append(all, repos...)
		if len(repos) < PageSize {
			break
		}
	}

	logger.Debug("Listed repositories",
		zap.String("user", user),
		zap.Int("count", len(all)))
	return all, nil
}
