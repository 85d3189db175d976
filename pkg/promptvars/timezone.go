package promptvars

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

const defaultTimezone = "UTC"

// NormalizeTimezone validates an IANA timezone name and loads it.
func NormalizeTimezone(raw string) (string, *time.Location, error) {
	tz := strings.TrimSpace(raw)
	if tz == "" {
		return "", nil, errors.New("empty timezone")
	}
	if strings.EqualFold(tz, "utc") {
		tz = "UTC"
	}
	if strings.EqualFold(tz, "local") {
		return "", nil, fmt.Errorf("timezone must be an IANA name, not %q", tz)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return "", nil, err
	}
	return loc.String(), loc, nil
}

// ResolveTimezone picks the first valid timezone out of the configured value
// and $TZ, falling back to UTC.
func ResolveTimezone(configured string) (string, *time.Location) {
	if tz, loc, err := NormalizeTimezone(configured); err == nil {
		return tz, loc
	}
	if env := os.Getenv("TZ"); env != "" {
		if tz, loc, err := NormalizeTimezone(env); err == nil {
			return tz, loc
		}
	}
	return defaultTimezone, time.UTC
}
