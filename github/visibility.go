package github

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/bytedance/sonic"
)

type repoDetails struct {
	Private bool `json:"private"`
}

// VisibilityCache resolves and memoizes repository visibility. Lookups
// that fail (deleted repos, missing scope) are cached as public rather
// than surfaced, since visibility is display-only.
type VisibilityCache struct {
	client *Client

	mu   sync.RWMutex
	seen map[string]bool
}

// NewVisibilityCache creates a visibility cache backed by the client.
func NewVisibilityCache(c *Client) *VisibilityCache {
	return &VisibilityCache{client: c, seen: make(map[string]bool)}
}

// IsPrivate reports whether the repository "{owner}/{name}" is private.
func (v *VisibilityCache) IsPrivate(ctx context.Context, repo string) bool {
	v.mu.RLock()
	private, ok := v.seen[repo]
	v.mu.RUnlock()
	if ok {
		return private
	}

	private = v.lookup(ctx, repo)

	v.mu.Lock()
	v.seen[repo] = private
	v.mu.Unlock()
	return private
}

func (v *VisibilityCache) lookup(ctx context.Context, repo string) bool {
	reqURL := v.client.baseURL.ResolveReference(&url.URL{Path: fmt.Sprintf("/repos/%s", repo)})

	body, err := v.client.get(ctx, reqURL.String())
	if err != nil {
		// A failed lookup just means we can't prove the repo is private.
		return false
	}

	var details repoDetails
	if err := sonic.Unmarshal(body, &details); err != nil {
		return false
	}
	return details.Private
}
