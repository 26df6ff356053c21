package settings

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var intervalUnits = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"d": 24 * time.Hour, "day": 24 * time.Hour, "days": 24 * time.Hour,
	"w": 7 * 24 * time.Hour, "week": 7 * 24 * time.Hour, "weeks": 7 * 24 * time.Hour,
}

// ParseInterval parses the interval text PostgreSQL accepts and prints:
// "60 seconds", "11 hours", "1 day 02:00:00", "00:01:30". Go durations
// such as "90s" are accepted too.
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("empty interval")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	var total time.Duration
	fields := strings.Fields(s)
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if strings.Contains(f, ":") {
			d, err := parseClock(f)
			if err != nil {
				return 0, fmt.Errorf("invalid interval %q: %w", s, err)
			}
			total += d
			continue
		}
		n, err := strconv.ParseFloat(f, 64)
		if err != nil || i+1 >= len(fields) {
			return 0, fmt.Errorf("invalid interval %q", s)
		}
		i++
		unit, ok := intervalUnits[fields[i]]
		if !ok {
			return 0, fmt.Errorf("invalid interval %q: unknown unit %q", s, fields[i])
		}
		total += time.Duration(n * float64(unit))
	}
	return total, nil
}

func parseClock(f string) (time.Duration, error) {
	neg := strings.HasPrefix(f, "-")
	parts := strings.Split(strings.TrimPrefix(f, "-"), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("bad time %q", f)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	var sec float64
	if len(parts) == 3 {
		if sec, err = strconv.ParseFloat(parts[2], 64); err != nil {
			return 0, err
		}
	}
	d := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec*float64(time.Second))
	if neg {
		d = -d
	}
	return d, nil
}
