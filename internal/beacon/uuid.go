package beacon

import (
	"fmt"
	"strings"

	"tinygo.org/x/bluetooth"
)

// ParseUUID validates a 128-bit UUID string and returns its canonical
// lowercase dashed form, which is what the radio transmits and what scan
// results are compared against.
func ParseUUID(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 36 {
		return "", fmt.Errorf("%w: uuid %q must be 36 characters", ErrInvalidConfig, s)
	}
	for _, i := range []int{8, 13, 18, 23} {
		if s[i] != '-' {
			return "", fmt.Errorf("%w: uuid %q is not dashed 8-4-4-4-12", ErrInvalidConfig, s)
		}
	}
	u, err := bluetooth.ParseUUID(s)
	if err != nil {
		return "", fmt.Errorf("%w: uuid %q: %v", ErrInvalidConfig, s, err)
	}
	return strings.ToLower(u.String()), nil
}

// SameUUID compares two UUID strings ignoring case.
func SameUUID(a, b string) bool {
	return strings.EqualFold(a, b)
}
