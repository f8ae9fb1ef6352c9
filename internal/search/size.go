package search

import (
	"math"
	"strconv"
	"strings"
)

var sizeUnits = []struct {
	suffix     string
	multiplier float64
}{
	// Longer suffixes first so "GIB" is not read as "B".
	{"TIB", 1 << 40},
	{"GIB", 1 << 30},
	{"MIB", 1 << 20},
	{"KIB", 1 << 10},
	{"TB", 1 << 40},
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// ParseSize converts a human size such as "1.5 GB" or "700 MiB" into bytes
// using base-1024 multipliers. Units are case-insensitive; a bare number is
// taken as bytes. Anything unparseable yields 0.
func ParseSize(raw string) int64 {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return 0
	}

	multiplier := float64(1)
	for _, unit := range sizeUnits {
		if strings.HasSuffix(value, unit.suffix) {
			multiplier = unit.multiplier
			value = strings.TrimSpace(strings.TrimSuffix(value, unit.suffix))
			break
		}
	}

	number, err := strconv.ParseFloat(normalizeDecimal(value), 64)
	if err != nil || number < 0 || math.IsNaN(number) || math.IsInf(number, 0) {
		return 0
	}
	bytes := number * multiplier
	if bytes >= math.MaxInt64 {
		return 0
	}
	return int64(bytes)
}

// normalizeDecimal accepts both "1,5" and "1,234.5" style numbers.
func normalizeDecimal(s string) string {
	if strings.Contains(s, ".") {
		return strings.ReplaceAll(s, ",", "")
	}
	if strings.Count(s, ",") == 1 {
		parts := strings.Split(s, ",")
		if len(parts[1]) == 3 {
			return parts[0] + parts[1]
		}
		return parts[0] + "." + parts[1]
	}
	return strings.ReplaceAll(s, ",", "")
}
