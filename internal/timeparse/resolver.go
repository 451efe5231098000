// ABOUTME: Resolves natural-language and ISO-8601 time expressions to timestamps
// ABOUTME: Enforces the future-only rule (with a grace window) for reminders

package timeparse

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// ErrInvalidExpression is returned when an input parses neither as natural
// language nor as an ISO-8601 timestamp or date.
var ErrInvalidExpression = errors.New("unrecognized time expression")

// ErrPastTime is returned when a future-only resolution lands in the past.
var ErrPastTime = errors.New("time is in the past")

// DefaultPastGrace is how far in the past a "future-only" time may resolve
// before it is rejected. Tolerates "now"-style phrasing and clock skew.
const DefaultPastGrace = 60 * time.Second

const dateOnlyLayout = "2006-01-02"

// Resolver turns time expressions like "in 5 minutes", "tomorrow at 8am",
// "2026-09-15T09:00:00Z", or "2026-09-15" into absolute timestamps.
type Resolver struct {
	parser *when.Parser
	grace  time.Duration
}

// New creates a resolver with the default grace window.
func New() *Resolver {
	return NewWithGrace(DefaultPastGrace)
}

// NewWithGrace creates a resolver with a custom past-time grace window.
func NewWithGrace(grace time.Duration) *Resolver {
	if grace <= 0 {
		grace = DefaultPastGrace
	}
	p := when.New(nil)
	p.Add(en.All...)
	p.Add(common.All...)
	return &Resolver{parser: p, grace: grace}
}

// Resolve parses input relative to ref. When futureOnly is set, results more
// than the grace window before ref are rejected with ErrPastTime.
func (r *Resolver) Resolve(input string, ref time.Time, futureOnly bool) (time.Time, error) {
	t, err := r.parse(input, ref)
	if err != nil {
		return time.Time{}, err
	}

	if futureOnly && t.Before(ref.Add(-r.grace)) {
		return time.Time{}, fmt.Errorf("%w: %q resolved to %s", ErrPastTime, input, t.Format(time.RFC3339))
	}
	return t, nil
}

// ResolveDate parses input the same way as Resolve but normalizes the result
// to local midnight of the resolved calendar day. Used for task due dates,
// which carry date-only semantics regardless of any parsed time of day.
func (r *Resolver) ResolveDate(input string, ref time.Time) (time.Time, error) {
	t, err := r.parse(input, ref)
	if err != nil {
		return time.Time{}, err
	}

	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()), nil
}

// parse attempts strict RFC 3339 first, then date-only (interpreted as
// local midnight), then natural language. Exact formats go first because an
// RFC 3339 string contains fragments ("09:30") that the natural-language
// rules would otherwise match on their own.
func (r *Resolver) parse(input string, ref time.Time) (time.Time, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: empty input", ErrInvalidExpression)
	}

	if t, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return t, nil
	}

	if t, err := time.ParseInLocation(dateOnlyLayout, trimmed, ref.Location()); err == nil {
		return t, nil
	}

	if result, err := r.parser.Parse(trimmed, ref); err == nil && result != nil {
		return result.Time, nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidExpression, input)
}
