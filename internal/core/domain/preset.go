package domain

import (
	"fmt"
	"strings"

	coreerrors "fleetuptime/internal/core/errors"
)

// Preset selects how a time range is resolved.
type Preset string

const (
	PresetRange          Preset = "range"
	PresetTrailingWeek   Preset = "trailing-week"
	PresetLastMondayWeek Preset = "last-monday-week"
)

// ParsePreset accepts the canonical names plus the short aliases the old
// dashboard used ("date", "now", "mon"). Empty means trailing-week.
func ParsePreset(s string) (Preset, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(PresetTrailingWeek), "now":
		return PresetTrailingWeek, nil
	case string(PresetRange), "date":
		return PresetRange, nil
	case string(PresetLastMondayWeek), "mon":
		return PresetLastMondayWeek, nil
	}
	return "", fmt.Errorf("%w: %q", coreerrors.ErrUnknownPreset, s)
}
