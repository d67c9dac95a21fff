package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// SecondsPerMonth is the month length used by the vesting table: 30 days.
const SecondsPerMonth = 30 * 24 * 60 * 60

// ParseSeconds converts a table duration to seconds. Accepted forms are a
// plain integer ("3600"), months ("12mo") and Go durations ("720h").
func ParseSeconds(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n, nil
	}

	if months, ok := strings.CutSuffix(s, "mo"); ok {
		n, err := strconv.ParseUint(strings.TrimSpace(months), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid month count %q", s)
		}
		if n > math.MaxUint64/SecondsPerMonth {
			return 0, fmt.Errorf("duration %q overflows", s)
		}
		return n * SecondsPerMonth, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: use seconds, <n>mo or a Go duration", s)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	if d%time.Second != 0 {
		return 0, fmt.Errorf("duration %q is not a whole number of seconds", s)
	}
	return uint64(d / time.Second), nil
}
