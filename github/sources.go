package github

import (
	"context"
	"fmt"

	"github.com/thesurlydev/wiwo/models"
)

// EventSource abstracts one paginated event-producing endpoint. Pages
// are fetched sequentially; a page shorter than PageSize is the last.
type EventSource interface {
	// Name identifies the source in diagnostics and tie-breaking.
	Name() string
	// FetchPage fetches one page of events, 1-based.
	FetchPage(ctx context.Context, user string, page int) ([]models.RawEvent, error)
}

// eventSource is the shared implementation; variants differ only in the
// endpoint path and their priority when the same event shows up twice.
type eventSource struct {
	client   *Client
	name     string
	pathTmpl string
}

func (s *eventSource) Name() string { return s.name }

func (s *eventSource) FetchPage(ctx context.Context, user string, page int) ([]models.RawEvent, error) {
	return s.client.fetchEventPage(ctx, fmt.Sprintf(s.pathTmpl, user), page)
}

// NewPublicEventsSource returns the source for a user's public activity.
// Works without a token.
func NewPublicEventsSource(c *Client) EventSource {
	return &eventSource{client: c, name: "public", pathTmpl: "/users/%s/events/public"}
}

// NewReceivedEventsSource returns the source for activity directed at
// the user. Requires a token.
func NewReceivedEventsSource(c *Client) EventSource {
	return &eventSource{client: c, name: "received", pathTmpl: "/users/%s/received_events"}
}

// NewPrivateEventsSource returns the source for the user's own activity
// including private repositories. Requires a token with repo scope.
func NewPrivateEventsSource(c *Client) EventSource {
	return &eventSource{client: c, name: "private", pathTmpl: "/users/%s/events"}
}

// SourcePriority ranks sources for duplicate resolution: when two
// sources return the same event ID, the record from the higher-priority
// source wins. The private-capable endpoint returns the richer record,
// so private > received > public.
func SourcePriority(name string) int {
	switch name {
	case "private":
		return 2
	case "received":
		return 1
	default:
		return 0
	}
}
