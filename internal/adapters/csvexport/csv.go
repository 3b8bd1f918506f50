package csvexport

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"fleetuptime/internal/core/domain"
)

// FileTimeLayout keeps the exported file name free of ':' characters.
const FileTimeLayout = "2006-01-02T15-04-05"

var header = []string{"device_id", "uptime", "uptime_readable"}

// FileName names an export after the bounds of the range it covers.
func FileName(r domain.TimeRange) string {
	return fmt.Sprintf("uptimes_%s--%s.csv", r.Start.Format(FileTimeLayout), r.Stop.Format(FileTimeLayout))
}

// Write renders every row of res, total_average included. An undefined
// aggregate leaves the uptime cell empty.
func Write(w io.Writer, res *domain.UptimeResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range res.Rows {
		uptime := ""
		if row.Defined {
			uptime = strconv.FormatFloat(row.Uptime, 'f', -1, 64)
		}
		if err := cw.Write([]string{row.DeviceID, uptime, row.UptimeReadable}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
