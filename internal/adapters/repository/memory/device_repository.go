package memory

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	"fleetuptime/pkg/utils"
)

// DeviceRepository is the fleet inventory: the devices expected to report
// telemetry, in the order they were listed.
type DeviceRepository struct {
	mu      sync.RWMutex
	order   []string
	devices map[string]struct{}
}

// NewDeviceRepository creates an empty in-memory DeviceRepository.
func NewDeviceRepository() *DeviceRepository {
	return &DeviceRepository{
		devices: make(map[string]struct{}),
	}
}

// LoadFromCSV initializes the repository from a CSV file.
// Expected format: header line with "device_id", then one ID per line.
// Rows whose first column is not a valid device id are skipped; the number
// of skipped rows is returned.
func (r *DeviceRepository) LoadFromCSV(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	skipped := 0
	for i := 0; ; i++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return skipped, err
		}
		if i == 0 {
			// skip header
			continue
		}
		if len(row) == 0 {
			continue
		}
		id := strings.TrimSpace(row[0])
		if !utils.IsDeviceID(id) {
			skipped++
			continue
		}
		r.Add(id)
	}
	return skipped, nil
}

// Add registers a device; adding a known id is a no-op.
func (r *DeviceRepository) Add(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.devices[id]; !exists {
		r.devices[id] = struct{}{}
		r.order = append(r.order, id)
	}
}

func (r *DeviceRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

func (r *DeviceRepository) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.devices[id]
	return ok
}

// IDs returns a copy of the inventory in listing order.
func (r *DeviceRepository) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
