package utils

import (
	"regexp"

	"github.com/google/uuid"
)

var deviceIDRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]{0,127}$`)

// IsDeviceID accepts the ids devices are tagged with: MAC addresses, serials
// and host-like names.
func IsDeviceID(id string) bool {
	return deviceIDRe.MatchString(id)
}

// IsSessionID accepts canonical UUID strings only.
func IsSessionID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
