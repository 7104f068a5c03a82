package config

import (
	"fmt"
	"strconv"
	"strings"
)

// rateUnits maps the suffixes accepted in data_rate/bandwidth strings (e.g.
// "1Mbps", "10Gbps") to a bits-per-second multiplier. Longer suffixes are
// matched first so "Mbps" doesn't get shadowed by "bps".
var rateUnits = []struct {
	suffix string
	mult   float64
}{
	{"Gbps", 1e9},
	{"Mbps", 1e6},
	{"Kbps", 1e3},
	{"bps", 1},
}

// ParseDataRate parses a data-rate string like "1Mbps" into bits per
// second. Case-sensitive on the unit letters; configuration files always
// write these with a capitalized magnitude prefix.
func ParseDataRate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	for _, u := range rateUnits {
		if strings.HasSuffix(s, u.suffix) {
			numPart := strings.TrimSuffix(s, u.suffix)
			val, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				return 0, fmt.Errorf("config: invalid data rate %q: %w", s, err)
			}
			return val * u.mult, nil
		}
	}
	return 0, fmt.Errorf("config: data rate %q has no recognized unit suffix (Gbps/Mbps/Kbps/bps)", s)
}

// durationUnits maps the suffixes accepted in delay strings (e.g. "2ms",
// "500us", "1s") to a seconds multiplier. Longer suffixes are matched first
// so "ms" doesn't get shadowed by "s".
var durationUnits = []struct {
	suffix string
	mult   float64
}{
	{"ms", 1e-3},
	{"us", 1e-6},
	{"ns", 1e-9},
	{"s", 1},
}

// ParseDurationSeconds parses a delay string like "2ms" into seconds,
// covering the unit suffixes link delays are written with in configuration
// files.
func ParseDurationSeconds(s string) (float64, error) {
	s = strings.TrimSpace(s)
	for _, u := range durationUnits {
		if strings.HasSuffix(s, u.suffix) {
			numPart := strings.TrimSuffix(s, u.suffix)
			val, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				return 0, fmt.Errorf("config: invalid delay %q: %w", s, err)
			}
			return val * u.mult, nil
		}
	}
	return 0, fmt.Errorf("config: delay %q has no recognized unit suffix (ms/us/ns/s)", s)
}
