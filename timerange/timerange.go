// Package timerange parses compact duration expressions such as "30d"
// or "2w" and resolves them into absolute cutoff instants.
package timerange

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/thesurlydev/wiwo/models"
)

// Horizon is the retention window of the GitHub Events API. Requests
// reaching further back than this need the git-history fallback.
const Horizon = 90 * 24 * time.Hour

// ErrInvalidFormat reports a malformed time range expression.
var ErrInvalidFormat = fmt.Errorf("invalid time range format")

var exprRe = regexp.MustCompile(`^([1-9][0-9]*)([dwmy])$`)

var units = map[string]models.TimeUnit{
	"d": models.UnitDay,
	"w": models.UnitWeek,
	"m": models.UnitMonth,
	"y": models.UnitYear,
}

// Default returns the range used when no expression is supplied.
func Default() models.TimeRange {
	return models.TimeRange{Amount: 30, Unit: models.UnitDay}
}

// Parse parses an expression like "30d", "2w", "6m" or "1y". The unit is
// case-insensitive. Zero amounts, missing units and unknown units are
// rejected with ErrInvalidFormat.
func Parse(expr string) (models.TimeRange, error) {
	m := exprRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(expr)))
	if m == nil {
		return models.TimeRange{}, fmt.Errorf("%w: %q (use e.g. 30d, 2w, 6m, 1y)", ErrInvalidFormat, expr)
	}

	amount, err := strconv.Atoi(m[1])
	if err != nil {
		return models.TimeRange{}, fmt.Errorf("%w: %q", ErrInvalidFormat, expr)
	}

	return models.TimeRange{Amount: amount, Unit: units[m[2]]}, nil
}

// Resolve returns the absolute cutoff instant for a range, relative to
// the injected now. Pure and deterministic.
func Resolve(r models.TimeRange, now time.Time) time.Time {
	return now.Add(-r.Duration())
}

// Capped reports whether the requested range exceeds the Events API
// horizon, in which case the aggregator extends coverage from git
// history. The displayed cutoff stays the user-requested one.
func Capped(r models.TimeRange) bool {
	return r.Duration() > Horizon
}
