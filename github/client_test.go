package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/thesurlydev/wiwo/models"
)

// newTestClient returns an unauthenticated client pointed at a test server.
func newTestClient(serverURL string) *Client {
	baseURL, _ := url.Parse(serverURL)
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Inf, 1),
	}
}

func TestNewClient(t *testing.T) {
	c := NewClient("", 30*time.Second)
	assert.NotNil(t, c)
	assert.False(t, c.Authorized())
	assert.Equal(t, 30*time.Second, c.httpClient.Timeout)

	c = NewClient("test-token", 30*time.Second)
	assert.True(t, c.Authorized())
}

func TestFetchPage(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)

	tests := []struct {
		name          string
		source        func(*Client) EventSource
		expectedPath  string
		statusCode    int
		headers       map[string]string
		body          []models.RawEvent
		expectedErr   error
		expectedCount int
	}{
		{
			name:          "public events page",
			source:        NewPublicEventsSource,
			expectedPath:  "/users/octocat/events/public",
			statusCode:    http.StatusOK,
			body:          []models.RawEvent{{ID: "1", Type: "PushEvent", CreatedAt: now}},
			expectedCount: 1,
		},
		{
			name:         "received events page",
			source:       NewReceivedEventsSource,
			expectedPath: "/users/octocat/received_events",
			statusCode:   http.StatusOK,
			body:         []models.RawEvent{},
		},
		{
			name:         "private events endpoint",
			source:       NewPrivateEventsSource,
			expectedPath: "/users/octocat/events",
			statusCode:   http.StatusOK,
			body:         []models.RawEvent{},
		},
		{
			name:         "user not found",
			source:       NewPublicEventsSource,
			expectedPath: "/users/octocat/events/public",
			statusCode:   http.StatusNotFound,
			expectedErr:  ErrNotFound,
		},
		{
			name:         "missing scope",
			source:       NewPrivateEventsSource,
			expectedPath: "/users/octocat/events",
			statusCode:   http.StatusForbidden,
			headers:      map[string]string{"X-RateLimit-Remaining": "42"},
			expectedErr:  ErrUnauthorized,
		},
		{
			name:         "rate limited via headers",
			source:       NewPublicEventsSource,
			expectedPath: "/users/octocat/events/public",
			statusCode:   http.StatusForbidden,
			headers:      map[string]string{"X-RateLimit-Remaining": "0"},
			expectedErr:  ErrRateLimited,
		},
		{
			name:         "rate limited via 429",
			source:       NewPublicEventsSource,
			expectedPath: "/users/octocat/events/public",
			statusCode:   http.StatusTooManyRequests,
			expectedErr:  ErrRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.expectedPath, r.URL.Path)
				assert.Equal(t, "100", r.URL.Query().Get("per_page"))
				assert.Equal(t, "2", r.URL.Query().Get("page"))
				assert.Equal(t, accept, r.Header.Get("Accept"))
				assert.Equal(t, userAgent, r.Header.Get("User-Agent"))

				for k, v := range tt.headers {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.statusCode)
				if tt.body != nil {
					json.NewEncoder(w).Encode(tt.body)
				}
			}))
			defer server.Close()

			src := tt.source(newTestClient(server.URL))
			events, err := src.FetchPage(context.Background(), "octocat", 2)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Len(t, events, tt.expectedCount)
			if tt.expectedCount > 0 {
				assert.Equal(t, tt.body[0].ID, events[0].ID)
			}
		})
	}
}

func TestRateLimitErrorCarriesReset(t *testing.T) {
	reset := time.Now().Add(20 * time.Minute).Truncate(time.Second)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	src := NewPublicEventsSource(newTestClient(server.URL))
	_, err := src.FetchPage(context.Background(), "octocat", 1)

	var rateErr *RateLimitError
	require.ErrorAs(t, err, &rateErr)
	assert.True(t, rateErr.Reset.Equal(reset))
}

func TestListRepositories(t *testing.T) {
	pages := map[string][]models.Repository{
		"1": make([]models.Repository, PageSize),
		"2": {{Name: "wiwo", FullName: "octocat/wiwo", CloneURL: "https://github.com/octocat/wiwo.git"}},
	}
	for i := range pages["1"] {
		pages["1"][i] = models.Repository{
			Name:     fmt.Sprintf("repo-%d", i),
			FullName: fmt.Sprintf("octocat/repo-%d", i),
		}
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/octocat/repos", r.URL.Path)
		assert.Equal(t, "owner", r.URL.Query().Get("type"))
		json.NewEncoder(w).Encode(pages[r.URL.Query().Get("page")])
	}))
	defer server.Close()

	repos, err := newTestClient(server.URL).ListRepositories(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Len(t, repos, PageSize+1)
	assert.Equal(t, "octocat/wiwo", repos[PageSize].FullName)
}

func TestRetriesTransientFailures(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			// Drop the connection to simulate a transient network error.
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			conn, _, _ := hj.Hijack()
			conn.Close()
			return
		}
		json.NewEncoder(w).Encode([]models.RawEvent{{ID: "1", Type: "PushEvent"}})
	}))
	defer server.Close()

	src := NewPublicEventsSource(newTestClient(server.URL))
	events, err := src.FetchPage(context.Background(), "octocat", 1)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, 3, attempts)
}

func TestSourcePriority(t *testing.T) {
	assert.Greater(t, SourcePriority("private"), SourcePriority("received"))
	assert.Greater(t, SourcePriority("received"), SourcePriority("public"))
}

func TestAuthenticatedUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"login": "octocat"})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	c.authorized = true

	login, err := c.AuthenticatedUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "octocat", login)
}

func TestAuthenticatedUserWithoutToken(t *testing.T) {
	c := newTestClient("http://127.0.0.1:0")
	_, err := c.AuthenticatedUser(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
}
