package domain

import "time"

// UptimeResult is the outcome of one uptime computation. Rows holds the real
// devices in store order followed by exactly one total_average row; Uptimes
// carries the same real devices keyed by id.
type UptimeResult struct {
	Uptimes        map[string]float64
	Rows           []DeviceUptime
	Range          TimeRange
	MissingDevices []string
}

// NewUptimeResult converts window counts into uptime ratios over r. Each
// window is assumed to stand for exactly one interval of up time, so a
// device can exceed 1.0 when the store reports more windows than fit in r.
func NewUptimeResult(r TimeRange, counts []DeviceCount, interval time.Duration) *UptimeResult {
	duration := r.Duration().Seconds()
	step := interval.Seconds()

	order := make([]string, 0, len(counts))
	windows := make(map[string]int64, len(counts))
	for _, c := range counts {
		if _, seen := windows[c.DeviceID]; !seen {
			order = append(order, c.DeviceID)
		}
		windows[c.DeviceID] += c.Windows
	}

	res := &UptimeResult{
		Uptimes: make(map[string]float64, len(order)),
		Rows:    make([]DeviceUptime, 0, len(order)+1),
		Range:   r,
	}

	var sum float64
	for _, id := range order {
		uptime := float64(windows[id]) * step / duration
		res.Uptimes[id] = uptime
		res.Rows = append(res.Rows, NewDeviceUptime(id, uptime))
		sum += uptime
	}

	if len(order) == 0 {
		res.Rows = append(res.Rows, NewAggregateUptime(0, false))
		return res
	}
	res.Rows = append(res.Rows, NewAggregateUptime(sum/float64(len(order)), true))
	return res
}

// DeviceRows returns the real device rows, without the aggregate.
func (r *UptimeResult) DeviceRows() []DeviceUptime {
	out := make([]DeviceUptime, 0, len(r.Rows))
	for _, row := range r.Rows {
		if !row.IsAggregate() {
			out = append(out, row)
		}
	}
	return out
}

// Aggregate returns the total_average row.
func (r *UptimeResult) Aggregate() DeviceUptime {
	for i := len(r.Rows) - 1; i >= 0; i-- {
		if r.Rows[i].IsAggregate() {
			return r.Rows[i]
		}
	}
	return NewAggregateUptime(0, false)
}

// Empty reports whether the store returned no devices at all.
func (r *UptimeResult) Empty() bool {
	return len(r.Uptimes) == 0
}

// Clone returns a deep copy so cached results cannot be mutated by callers.
func (r *UptimeResult) Clone() *UptimeResult {
	if r == nil {
		return nil
	}
	c := &UptimeResult{
		Uptimes: make(map[string]float64, len(r.Uptimes)),
		Rows:    append([]DeviceUptime(nil), r.Rows...),
		Range:   r.Range,
	}
	for k, v := range r.Uptimes {
		c.Uptimes[k] = v
	}
	if r.MissingDevices != nil {
		c.MissingDevices = append([]string(nil), r.MissingDevices...)
	}
	return c
}
