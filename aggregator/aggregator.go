// Package aggregator drives the event sources, merges and deduplicates
// their output, and stitches in git-history events when the requested
// range reaches past the Events API horizon.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/thesurlydev/wiwo/github"
	"github.com/thesurlydev/wiwo/logger"
	"github.com/thesurlydev/wiwo/models"
	"github.com/thesurlydev/wiwo/timerange"
)

// maxPages bounds pagination per source.
const maxPages = 30

// ErrAllSourcesFailed reports that no event source produced data.
var ErrAllSourcesFailed = fmt.Errorf("all event sources failed")

// Fallback extends coverage from git history for the slice of the
// requested range the Events API no longer retains.
type Fallback interface {
	Extend(ctx context.Context, user string, cutoff, boundary time.Time) ([]models.SyntheticEvent, error)
}

// Aggregator collects events from the active sources into a timeline.
type Aggregator struct {
	sources  []github.EventSource
	fallback Fallback
}

// New creates an aggregator. fallback may be nil, in which case capped
// ranges are served from API data only.
func New(sources []github.EventSource, fallback Fallback) *Aggregator {
	return &Aggregator{sources: sources, fallback: fallback}
}

// SelectSources returns the active source set for the client's
// credentials: with a token all three endpoints, without it only the
// public one.
func SelectSources(c *github.Client) []github.EventSource {
	if c.Authorized() {
		return []github.EventSource{
			github.NewPrivateEventsSource(c),
			github.NewReceivedEventsSource(c),
			github.NewPublicEventsSource(c),
		}
	}
	return []github.EventSource{github.NewPublicEventsSource(c)}
}

// sourceResult is one source's drained output.
type sourceResult struct {
	name    string
	events  []models.RawEvent
	skipped bool
	err     error
}

// Collect runs every source to completion bounded by cutoff, merges and
// deduplicates the streams, and, when capped, extends coverage through
// the fallback for [cutoff, horizon boundary).
func (a *Aggregator) Collect(ctx context.Context, user string, cutoff, now time.Time, capped bool) (models.Timeline, error) {
	results := make(chan sourceResult, len(a.sources))
	var wg sync.WaitGroup

	for _, src := range a.sources {
		wg.Add(1)
		go func(src github.EventSource) {
			defer wg.Done()
			results <- a.drainSource(ctx, src, user, cutoff)
		}(src)
	}

	wg.Wait()
	close(results)

	var drained []sourceResult
	succeeded := 0
	for res := range results {
		if res.err != nil {
			if errors.Is(res.err, github.ErrRateLimited) {
				return nil, res.err
			}
			return nil, fmt.Errorf("source %s: %w", res.name, res.err)
		}
		if res.skipped {
			continue
		}
		succeeded++
		drained = append(drained, res)
	}

	if succeeded == 0 {
		return nil, fmt.Errorf("%w: user %s", ErrAllSourcesFailed, user)
	}

	// Dedup by event ID. Sources are processed in priority order, so on
	// a tie the richer record wins and per-source event order survives
	// into the stable sort below.
	sort.SliceStable(drained, func(i, j int) bool {
		return github.SourcePriority(drained[i].name) > github.SourcePriority(drained[j].name)
	})

	seen := make(map[string]struct{})
	var timeline models.Timeline
	earliest := time.Time{}
	for _, res := range drained {
		for _, ev := range res.events {
			if _, dup := seen[ev.ID]; dup {
				continue
			}
			seen[ev.ID] = struct{}{}
			timeline = append(timeline, models.EntryFromRaw(ev))
			if earliest.IsZero() || ev.CreatedAt.Before(earliest) {
				earliest = ev.CreatedAt
			}
		}
	}

	if capped && a.fallback != nil {
		boundary := now.Add(-timerange.Horizon)
		if !earliest.IsZero() {
			boundary = earliest
		}

		synthetic, err := a.fallback.Extend(ctx, user, cutoff, boundary)
		if err != nil {
			if errors.Is(err, github.ErrRateLimited) || ctx.Err() != nil {
				return nil, err
			}
			// Degraded coverage, not a failed invocation.
			logger.Warn("Git history fallback failed, returning API events only",
				zap.String("user", user),
				zap.Error(err))
		}

		seenSynthetic := make(map[string]struct{}, len(synthetic))
		for _, ev := range synthetic {
			key := ev.DedupKey()
			if _, dup := seenSynthetic[key]; dup {
				continue
			}
			seenSynthetic[key] = struct{}{}
			timeline = append(timeline, models.EntryFromSynthetic(ev))
		}
	}

	// Newest first; the stable sort keeps API entries ahead of synthetic
	// ones at equal timestamps.
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].Timestamp.After(timeline[j].Timestamp)
	})

	return timeline, nil
}

// drainSource pages through one source until the page falls short of the
// page size, everything left predates the cutoff, or the page cap hits.
func (a *Aggregator) drainSource(ctx context.Context, src github.EventSource, user string, cutoff time.Time) sourceResult {
	res := sourceResult{name: src.Name()}

	for page := 1; page <= maxPages; page++ {
		events, err := src.FetchPage(ctx, user, page)
		if err != nil {
			if errors.Is(err, github.ErrNotFound) || errors.Is(err, github.ErrUnauthorized) {
				logger.Warn("Event source unavailable, skipping",
					zap.String("source", src.Name()),
					zap.String("user", user),
					zap.Error(err))
				res.skipped = len(res.events) == 0
				return res
			}
			res.err = err
			return res
		}

		if len(events) == 0 {
			break
		}

		// Events arrive newest first; once the oldest on the page
		// predates the cutoff there is nothing left to fetch.
		oldest := events[len(events)-1]
		for _, ev := range events {
			if !ev.CreatedAt.Before(cutoff) {
				res.events = append(res.events, ev)
			}
		}
		if oldest.CreatedAt.Before(cutoff) || len(events) < github.PageSize {
			break
		}
	}

	return res
}
