// Package models defines the core data structures used throughout the application.
package models

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

// TimeUnit is the unit of a requested time range.
type TimeUnit string

const (
	UnitDay   TimeUnit = "day"
	UnitWeek  TimeUnit = "week"
	UnitMonth TimeUnit = "month"
	UnitYear  TimeUnit = "year"
)

// Days returns the calendar-approximate length of the unit in days.
func (u TimeUnit) Days() int {
	switch u {
	case UnitWeek:
		return 7
	case UnitMonth:
		return 30
	case UnitYear:
		return 365
	default:
		return 1
	}
}

// TimeRange is a requested activity window, e.g. {3, day} for "3d".
type TimeRange struct {
	Amount int      `json:"amount"`
	Unit   TimeUnit `json:"unit"`
}

// Duration returns the range as a time.Duration.
func (r TimeRange) Duration() time.Duration {
	return time.Duration(r.Amount*r.Unit.Days()) * 24 * time.Hour
}

func (r TimeRange) String() string {
	return fmt.Sprintf("%d%c", r.Amount, r.Unit[0])
}

// EntrySource identifies which pipeline stage produced a timeline entry.
type EntrySource int

const (
	SourceAPI EntrySource = iota
	SourceGitHistory
)

// RawEvent is a single event as returned by the GitHub Events API.
type RawEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Actor     Actor     `json:"actor"`
	Repo      Repo      `json:"repo"`
	Public    bool      `json:"public"`
	CreatedAt time.Time `json:"created_at"`
}

// Actor is the user who performed the action.
type Actor struct {
	ID    int    `json:"id"`
	Login string `json:"login"`
}

// Repo is the repository an event happened in, named "{owner}/{name}".
type Repo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// HTMLURL returns the browser URL for the repository.
func (r Repo) HTMLURL() string {
	return "https://github.com/" + r.Name
}

// FormattedType returns a compact display label for the event type,
// stripping the "Event" suffix and abbreviating the long names.
func (e RawEvent) FormattedType() string {
	t := strings.TrimSuffix(e.Type, "Event")
	switch t {
	case "PullRequest":
		return "PR"
	case "PullRequestReview":
		return "PR Review"
	case "PullRequestReviewComment":
		return "PR Comment"
	case "IssueComment":
		return "Issue Cmt"
	default:
		return t
	}
}

// SyntheticKind is the kind of activity mined from git history.
type SyntheticKind string

const (
	KindCommit SyntheticKind = "Commit"
	KindTag    SyntheticKind = "Tag"
)

// SyntheticEvent is an activity record derived from git history rather
// than the Events API. It has no stable ID; identity is the composite
// (repo, created_at, summary hash).
type SyntheticEvent struct {
	Kind      SyntheticKind `json:"kind" db:"kind"`
	Repo      string        `json:"repo" db:"repo"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	Summary   string        `json:"summary" db:"summary"`
}

// DedupKey returns the composite identity key for a synthetic event.
func (e SyntheticEvent) DedupKey() string {
	h := fnv.New64a()
	h.Write([]byte(e.Summary))
	return fmt.Sprintf("%s|%d|%x", e.Repo, e.CreatedAt.Unix(), h.Sum64())
}

// TimelineEntry is the normalized union of API and git-history events
// handed to the output stage.
type TimelineEntry struct {
	Timestamp time.Time
	Kind      string
	Repo      string
	Summary   string
	Source    EntrySource
}

// Timeline is the final sorted, deduplicated event sequence.
type Timeline []TimelineEntry

// EntryFromRaw converts an API event into a timeline entry.
func EntryFromRaw(e RawEvent) TimelineEntry {
	return TimelineEntry{
		Timestamp: e.CreatedAt,
		Kind:      e.FormattedType(),
		Repo:      e.Repo.Name,
		Summary:   e.Type,
		Source:    SourceAPI,
	}
}

// EntryFromSynthetic converts a mined git-history event into a timeline entry.
func EntryFromSynthetic(e SyntheticEvent) TimelineEntry {
	return TimelineEntry{
		Timestamp: e.CreatedAt,
		Kind:      string(e.Kind),
		Repo:      e.Repo,
		Summary:   e.Summary,
		Source:    SourceGitHistory,
	}
}

// Repository is an entry from the repository-listing endpoint, consumed
// by the history fallback.
type Repository struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	Private  bool   `json:"private"`
	Fork     bool   `json:"fork"`
	CloneURL string `json:"clone_url"`
	Size     int    `json:"size"`
}
