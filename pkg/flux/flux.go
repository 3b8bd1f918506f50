// Package flux builds Flux queries from typed parts. Every identifier is
// checked and every string literal escaped before the query text is
// produced, so callers never interpolate raw values into Flux.
package flux

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidQuery is returned by Build when a query fails validation.
var ErrInvalidQuery = errors.New("invalid flux query")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Reducer is an aggregate function usable in aggregateWindow.
type Reducer string

const (
	First Reducer = "first"
	Last  Reducer = "last"
	Mean  Reducer = "mean"
	Count Reducer = "count"
)

func (r Reducer) valid() bool {
	switch r {
	case First, Last, Mean, Count:
		return true
	}
	return false
}

// Predicate is a row filter rendered inside filter(fn: (r) => ...).
type Predicate struct {
	column string
	op     string
	join   string
	values []string
}

// Eq keeps rows whose column equals value.
func Eq(column, value string) Predicate {
	return Predicate{column: column, op: "==", join: " or ", values: []string{value}}
}

// NotIn keeps rows whose column equals none of values.
func NotIn(column string, values ...string) Predicate {
	return Predicate{column: column, op: "!=", join: " and ", values: values}
}

func (p Predicate) render() (string, error) {
	if !identRe.MatchString(p.column) {
		return "", fmt.Errorf("%w: column %q is not an identifier", ErrInvalidQuery, p.column)
	}
	if len(p.values) == 0 {
		return "", fmt.Errorf("%w: predicate on %q has no values", ErrInvalidQuery, p.column)
	}
	parts := make([]string, len(p.values))
	for i, v := range p.values {
		parts[i] = fmt.Sprintf("r.%s %s %s", p.column, p.op, Quote(v))
	}
	return strings.Join(parts, p.join), nil
}

type stage func() (string, error)

// Query is a pipeline rooted at from(bucket:). The zero value is not usable;
// start with From.
type Query struct {
	bucket   string
	start    time.Time
	stop     time.Time
	hasRange bool
	stages   []stage
}

func From(bucket string) *Query {
	return &Query{bucket: bucket}
}

// Range bounds the query to [start, stop).
func (q *Query) Range(start, stop time.Time) *Query {
	q.start, q.stop, q.hasRange = start, stop, true
	return q
}

func (q *Query) Filter(p Predicate) *Query {
	q.stages = append(q.stages, func() (string, error) {
		body, err := p.render()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("filter(fn: (r) => %s)", body), nil
	})
	return q
}

// AggregateWindow down-samples each series to one value per every-wide window.
func (q *Query) AggregateWindow(every time.Duration, fn Reducer, createEmpty bool) *Query {
	q.stages = append(q.stages, func() (string, error) {
		if every <= 0 {
			return "", fmt.Errorf("%w: window must be positive, got %s", ErrInvalidQuery, every)
		}
		if !fn.valid() {
			return "", fmt.Errorf("%w: unknown reducer %q", ErrInvalidQuery, fn)
		}
		return fmt.Sprintf("aggregateWindow(every: %s, fn: %s, createEmpty: %t)", Duration(every), fn, createEmpty), nil
	})
	return q
}

// Group regroups by the given columns.
func (q *Query) Group(columns ...string) *Query {
	q.stages = append(q.stages, func() (string, error) {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			if !identRe.MatchString(c) {
				return "", fmt.Errorf("%w: group column %q is not an identifier", ErrInvalidQuery, c)
			}
			quoted[i] = Quote(c)
		}
		return fmt.Sprintf("group(columns: [%s])", strings.Join(quoted, ", ")), nil
	})
	return q
}

// Ungroup merges all tables into one.
func (q *Query) Ungroup() *Query {
	q.stages = append(q.stages, func() (string, error) { return "group()", nil })
	return q
}

func (q *Query) Count() *Query {
	q.stages = append(q.stages, func() (string, error) { return "count()", nil })
	return q
}

// Build validates the query and renders its Flux text.
func (q *Query) Build() (string, error) {
	if strings.TrimSpace(q.bucket) == "" {
		return "", fmt.Errorf("%w: bucket is required", ErrInvalidQuery)
	}
	if !q.hasRange {
		return "", fmt.Errorf("%w: range is required", ErrInvalidQuery)
	}
	if !q.stop.After(q.start) {
		return "", fmt.Errorf("%w: range stop must be after start", ErrInvalidQuery)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "from(bucket: %s)\n", Quote(q.bucket))
	fmt.Fprintf(&b, "  |> range(start: %s, stop: %s)\n", Time(q.start), Time(q.stop))
	for _, st := range q.stages {
		s, err := st()
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "  |> %s\n", s)
	}
	return b.String(), nil
}

var quoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "${", `\${`)

// Quote renders s as a Flux string literal.
func Quote(s string) string {
	return `"` + quoter.Replace(s) + `"`
}

// Time renders t as a Flux time literal in UTC.
func Time(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Duration renders d as a Flux duration literal using the coarsest exact unit.
func Duration(d time.Duration) string {
	switch {
	case d%time.Second == 0:
		return fmt.Sprintf("%ds", d/time.Second)
	case d%time.Millisecond == 0:
		return fmt.Sprintf("%dms", d/time.Millisecond)
	case d%time.Microsecond == 0:
		return fmt.Sprintf("%dus", d/time.Microsecond)
	}
	return fmt.Sprintf("%dns", d.Nanoseconds())
}
