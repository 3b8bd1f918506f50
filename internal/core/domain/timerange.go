package domain

import (
	"fmt"
	"time"

	coreerrors "fleetuptime/internal/core/errors"
)

// DefaultWindowInterval is the sampling granularity assumed by the ingestion
// side. Each qualifying window counts as this much up time.
const DefaultWindowInterval = 4 * time.Second

// TimeRange is a half-open interval [Start, Stop).
type TimeRange struct {
	Start time.Time
	Stop  time.Time
}

// NewTimeRange validates stop > start.
func NewTimeRange(start, stop time.Time) (TimeRange, error) {
	if !stop.After(start) {
		return TimeRange{}, fmt.Errorf("%w: start=%s stop=%s", coreerrors.ErrInvalidRange,
			start.Format(time.RFC3339), stop.Format(time.RFC3339))
	}
	return TimeRange{Start: start, Stop: stop}, nil
}

func (r TimeRange) Duration() time.Duration {
	return r.Stop.Sub(r.Start)
}
