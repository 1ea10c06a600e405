// Package history derives synthetic activity events from git history
// for the part of a requested range the Events API no longer retains.
// Each repository is cloned into an ephemeral working area and its
// commit and tag history mined; clones run in a bounded worker pool.
package history

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/thesurlydev/wiwo/logger"
	"github.com/thesurlydev/wiwo/models"
)

// Common errors
var (
	ErrNoRepositories = fmt.Errorf("no repositories")
	ErrCloneFailed    = fmt.Errorf("clone failed")
)

// RepoLister enumerates the repositories owned by a user.
type RepoLister interface {
	ListRepositories(ctx context.Context, user string) ([]models.Repository, error)
}

// Cache stores mined events between invocations so unchanged
// repositories are not re-cloned. Implementations may be nil-safe
// disabled; the fallback works without one.
type Cache interface {
	Load(ctx context.Context, repo string, from, to time.Time) ([]models.SyntheticEvent, error)
	Store(ctx context.Context, repo string, events []models.SyntheticEvent) error
}

// Fallback mines git history for out-of-horizon activity.
type Fallback struct {
	lister  RepoLister
	cache   Cache
	runner  Runner
	workers int
}

// New creates a fallback backed by the given repository lister. cache
// may be nil. workers caps concurrent clones.
func New(lister RepoLister, cache Cache, workers int) *Fallback {
	if workers <= 0 {
		workers = 4
	}
	return &Fallback{
		lister:  lister,
		cache:   cache,
		runner:  gitRunner{},
		workers: workers,
	}
}

// Extend returns synthetic events for all of the user's repositories in
// [cutoff, boundary). A repository that fails to clone or mine is
// logged and skipped; the rest still contribute.
func (f *Fallback) Extend(ctx context.Context, user string, cutoff, boundary time.Time) ([]models.SyntheticEvent, error) {
	repos, err := f.lister.ListRepositories(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate repositories: %w", err)
	}
	if len(repos) == 0 {
		return nil, fmt.Errorf("%w: user %s", ErrNoRepositories, user)
	}

	logger.Info("Extending coverage from git history",
		zap.String("user", user),
		zap.Int("repositories", len(repos)),
		zap.Time("cutoff", cutoff),
		zap.Time("boundary", boundary))

	sem := make(chan struct{}, f.workers)
	results := make(chan []models.SyntheticEvent, len(repos))
	var wg sync.WaitGroup

	for _, repo := range repos {
		wg.Add(1)
		go func(repo models.Repository) {
			defer wg.Done()
			sem <- struct{}{}        // Acquire semaphore
			defer func() { <-sem }() // Release semaphore

			if ctx.Err() != nil {
				return
			}

			events, err := f.mineRepository(ctx, repo, cutoff, boundary)
			if err != nil {
				logger.Warn("Skipping repository",
					zap.String("repo", repo.FullName),
					zap.Error(err))
				return
			}
			results <- events
		}(repo)
	}

	wg.Wait()
	close(results)

	var all []models.SyntheticEvent
	for events := range results {
		all = append(all, events...)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return all, nil
}

// mineRepository clones one repository into a temporary directory and
// walks its commit and tag history. The directory is removed on every
// exit path, including cancellation mid-clone.
func (f *Fallback) mineRepository(ctx context.Context, repo models.Repository, cutoff, boundary time.Time) ([]models.SyntheticEvent, error) {
	if f.cache != nil {
		cached, err := f.cache.Load(ctx, repo.FullName, cutoff, boundary)
		if err == nil && len(cached) > 0 {
			logger.Debug("Cache hit",
				zap.String("repo", repo.FullName),
				zap.Int("events", len(cached)))
			return cached, nil
		}
	}

	dir, err := os.MkdirTemp("", "wiwo-clone-")
	if err != nil {
		return nil, fmt.Errorf("failed to create working area: %w", err)
	}
	defer os.RemoveAll(dir)

	if _, err := f.runner.Run(ctx, "", "clone", "--bare", "--quiet", repo.CloneURL, dir); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCloneFailed, repo.FullName, err)
	}

	var events []models.SyntheticEvent

	// Empty repositories make git log fail; that just means no commits.
	logOut, err := f.runner.Run(ctx, dir, "log", "--all", "--format=%H%x1f%ct%x1f%s")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Debug("No commit history", zap.String("repo", repo.FullName), zap.Error(err))
	} else {
		events = append(events, parseCommitLog(repo.FullName, logOut, cutoff, boundary)...)
	}

	tagOut, err := f.runner.Run(ctx, dir, "for-each-ref", "refs/tags", "--format=%(refname:short)%1f%(creatordate:unix)")
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Debug("No tags", zap.String("repo", repo.FullName), zap.Error(err))
	} else {
		events = append(events, parseTagRefs(repo.FullName, tagOut, cutoff, boundary)...)
	}

	if f.cache != nil && len(events) > 0 {
		if err := f.cache.Store(ctx, repo.FullName, events); err != nil {
			logger.Warn("Failed to cache mined events",
				zap.String("repo", repo.FullName),
				zap.Error(err))
		}
	}

	return events, nil
}

// parseCommitLog parses `git log --format=%H%x1f%ct%x1f%s` output into
// synthetic commit events inside [cutoff, boundary).
func parseCommitLog(repo, out string, cutoff, boundary time.Time) []models.SyntheticEvent {
	var events []models.SyntheticEvent
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(line, "\x1f", 3)
		if len(parts) != 3 {
			continue
		}
		ts, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			continue
		}
		created := time.Unix(ts, 0).UTC()
		if created.Before(cutoff) || !created.Before(boundary) {
			continue
		}

		sha := parts[0]
		if len(sha) > 7 {
			sha = sha[:7]
		}
		events = append(events, models.SyntheticEvent{
			Kind:      models.KindCommit,
			Repo:      repo,
			CreatedAt: created,
			Summary:   sha + " " + parts[2],
		})
	}
	return events
}

// parseTagRefs parses `git for-each-ref refs/tags` output into synthetic
// tag events inside [cutoff, boundary).
func parseTagRefs(repo, out string, cutoff, boundary time.Time) []models.SyntheticEvent {
	var events []models.SyntheticEvent
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(line, "\x1f", 2)
		if len(parts) != 2 {
			continue
		}
		ts, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil {
			continue
		}
		created := time.Unix(ts, 0).UTC()
		if created.Before(cutoff) || !created.Before(boundary) {
			continue
		}

		events = append(events, models.SyntheticEvent{
			Kind:      models.KindTag,
			Repo:      repo,
			CreatedAt: created,
			Summary:   parts[0],
		})
	}
	return events
}
