package http

import (
	"time"

	"fleetuptime/internal/core/domain"
)

// UptimeRow is one table row. Uptime is null for an undefined aggregate.
type UptimeRow struct {
	DeviceID       string   `json:"device_id"`
	Uptime         *float64 `json:"uptime"`
	UptimeReadable string   `json:"uptime_readable"`
}

type UptimeResponse struct {
	Start          time.Time   `json:"start"`
	Stop           time.Time   `json:"stop"`
	Empty          bool        `json:"empty"`
	Rows           []UptimeRow `json:"rows"`
	MissingDevices []string    `json:"missing_devices"`
}

// ChartPoint is one bar of the uptime chart.
type ChartPoint struct {
	DeviceID string  `json:"device_id"`
	Uptime   float64 `json:"uptime"`
	Label    string  `json:"label"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Msg    string `json:"msg,omitempty"`
}

type ErrorResponse struct {
	Msg string `json:"msg"`
}

func newUptimeResponse(res *domain.UptimeResult) UptimeResponse {
	resp := UptimeResponse{
		Start:          res.Range.Start,
		Stop:           res.Range.Stop,
		Empty:          res.Empty(),
		Rows:           make([]UptimeRow, 0, len(res.Rows)),
		MissingDevices: []string{},
	}
	for _, row := range res.Rows {
		r := UptimeRow{DeviceID: row.DeviceID, UptimeReadable: row.UptimeReadable}
		if row.Defined {
			v := row.Uptime
			r.Uptime = &v
		}
		resp.Rows = append(resp.Rows, r)
	}
	resp.MissingDevices = append(resp.MissingDevices, res.MissingDevices...)
	return resp
}

func newChartSeries(res *domain.UptimeResult, includeTotal bool) []ChartPoint {
	points := make([]ChartPoint, 0, len(res.Rows))
	for _, row := range res.Rows {
		if !row.Defined || (row.IsAggregate() && !includeTotal) {
			continue
		}
		points = append(points, ChartPoint{DeviceID: row.DeviceID, Uptime: row.Uptime, Label: row.UptimeReadable})
	}
	return points
}
