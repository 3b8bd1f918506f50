package domain

import "fmt"

// TotalAverageID is the device id of the synthetic aggregate row.
const TotalAverageID = "total_average"

// DeviceCount is one row of the telemetry store reply: the number of
// qualifying sample windows observed for a device.
type DeviceCount struct {
	DeviceID string
	Windows  int64
}

// DeviceUptime is one row of the uptime table. Aggregate marks the synthetic
// total_average row; a real device may carry the same id.
type DeviceUptime struct {
	DeviceID       string
	Uptime         float64
	Defined        bool
	Aggregate      bool
	UptimeReadable string
}

// NewDeviceUptime builds a defined row for the given ratio.
func NewDeviceUptime(id string, uptime float64) DeviceUptime {
	return DeviceUptime{
		DeviceID:       id,
		Uptime:         uptime,
		Defined:        true,
		UptimeReadable: FormatPercent(uptime),
	}
}

// NewAggregateUptime builds the total_average row. An aggregate over no
// devices is undefined.
func NewAggregateUptime(mean float64, defined bool) DeviceUptime {
	if !defined {
		return DeviceUptime{DeviceID: TotalAverageID, Aggregate: true, UptimeReadable: UndefinedReadable}
	}
	row := NewDeviceUptime(TotalAverageID, mean)
	row.Aggregate = true
	return row
}

// IsAggregate reports whether the row is the synthetic total_average row.
func (d DeviceUptime) IsAggregate() bool {
	return d.Aggregate
}

// FormatPercent renders a ratio as a percentage with two decimals: 0.6789 -> "67.89%".
func FormatPercent(ratio float64) string {
	return fmt.Sprintf("%.2f%%", ratio*100)
}

// UndefinedReadable is shown for an aggregate over an empty device set.
const UndefinedReadable = "n/a"
