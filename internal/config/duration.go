package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidDuration = errors.New("invalid duration")

// ParseDuration accepts the forms time.ParseDuration understands plus the
// day-scale suffixes used in deployment configs: "2d", "1w", "1mon". The
// extended units are fixed spans (d=24h, w=7d, mon=30d); no calendar or DST
// arithmetic is performed.
func ParseDuration(value string) (time.Duration, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidDuration)
	}

	unit := time.Duration(0)
	switch {
	case strings.HasSuffix(s, "mon"):
		unit = 30 * 24 * time.Hour
		s = strings.TrimSuffix(s, "mon")
	case strings.HasSuffix(s, "w"):
		unit = 7 * 24 * time.Hour
		s = strings.TrimSuffix(s, "w")
	case strings.HasSuffix(s, "d"):
		unit = 24 * time.Hour
		s = strings.TrimSuffix(s, "d")
	}

	if unit > 0 {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, value)
		}
		return time.Duration(n) * unit, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, value)
	}
	return d, nil
}
