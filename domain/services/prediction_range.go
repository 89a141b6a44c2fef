package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// PointTolerance is the +/- window applied to single-number predictions
const PointTolerance = 2.0

// unit suffixes stripped before parsing; longer tokens first so "km/h" wins over "h"
var unitStripper = strings.NewReplacer(
	"km/h", "",
	"hpa", "",
	"mm", "",
	"°", "",
	"%", "",
	"c", "",
)

var (
	reThreshold      = regexp.MustCompile(`^(>=|<=|>|<|above|over|below|under|at least|at most)\s*(-?\d+(?:\.\d+)?)$`)
	reThresholdPlus  = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*\+$`)
	thresholdUnbound = math.Inf(1)
)

// PredictionRange is a numeric interval, inclusive unless an end is marked exclusive.
// Threshold predictions leave one end infinite.
type PredictionRange struct {
	Min          float64
	Max          float64
	MinExclusive bool
	MaxExclusive bool
}

// Contains reports whether v lies within the range
func (r PredictionRange) Contains(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	if v < r.Min || v > r.Max {
		return false
	}
	if r.MinExclusive && v == r.Min {
		return false
	}
	if r.MaxExclusive && v == r.Max {
		return false
	}
	return true
}

// Bounded reports whether both ends are finite
func (r PredictionRange) Bounded() bool {
	return !math.IsInf(r.Min, 0) && !math.IsInf(r.Max, 0)
}

// Threshold returns the finite end of a one-sided range
func (r PredictionRange) Threshold() float64 {
	if math.IsInf(r.Max, 1) {
		return r.Min
	}
	return r.Max
}

// Center returns the midpoint of the range
func (r PredictionRange) Center() float64 {
	return (r.Min + r.Max) / 2
}

// HalfWidth returns half the width of the range
func (r PredictionRange) HalfWidth() float64 {
	return (r.Max - r.Min) / 2
}

// ParseRange parses "<min>-<max>" (hyphen or en-dash, optional unit suffixes), a threshold
// ("above 25", "below 10", ">25", "<=0", "at least 5", "30+") or a single number, which
// becomes a point prediction of +/- PointTolerance.
// The second return value is false for anything that does not parse.
func ParseRange(value string) (PredictionRange, bool) {
	s := strings.ToLower(strings.TrimSpace(value))
	s = strings.ReplaceAll(s, "–", "-")
	s = strings.ReplaceAll(s, "—", "-")
	s = unitStripper.Replace(s)
	s = strings.TrimSpace(s)
	if s == "" {
		return PredictionRange{}, false
	}

	if r, ok := parseThreshold(s); ok {
		return r, true
	}

	if idx := rangeSeparator(s); idx > 0 {
		lo, errLo := strconv.ParseFloat(strings.TrimSpace(s[:idx]), 64)
		hi, errHi := strconv.ParseFloat(strings.TrimSpace(s[idx+1:]), 64)
		if errLo != nil || errHi != nil || !finite(lo) || !finite(hi) {
			return PredictionRange{}, false
		}
		return PredictionRange{Min: lo, Max: hi}, true
	}

	point, err := strconv.ParseFloat(s, 64)
	if err != nil || !finite(point) {
		return PredictionRange{}, false
	}
	return PredictionRange{Min: point - PointTolerance, Max: point + PointTolerance}, true
}

func parseThreshold(s string) (PredictionRange, bool) {
	if m := reThresholdPlus.FindStringSubmatch(s); len(m) == 2 {
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil || !finite(n) {
			return PredictionRange{}, false
		}
		return PredictionRange{Min: n, Max: thresholdUnbound}, true
	}

	m := reThreshold.FindStringSubmatch(s)
	if len(m) != 3 {
		return PredictionRange{}, false
	}
	n, err := strconv.ParseFloat(m[2], 64)
	if err != nil || !finite(n) {
		return PredictionRange{}, false
	}

	switch m[1] {
	case ">", "above", "over":
		return PredictionRange{Min: n, Max: thresholdUnbound, MinExclusive: true}, true
	case ">=", "at least":
		return PredictionRange{Min: n, Max: thresholdUnbound}, true
	case "<", "below", "under":
		return PredictionRange{Min: -thresholdUnbound, Max: n, MaxExclusive: true}, true
	default:
		return PredictionRange{Min: -thresholdUnbound, Max: n}, true
	}
}

// rangeSeparator finds the hyphen splitting min from max. A leading minus sign or a
// minus directly after the separator belongs to the number, not the range.
func rangeSeparator(s string) int {
	for i := 1; i < len(s); i++ {
		if s[i] != '-' {
			continue
		}
		j := i - 1
		for j >= 0 && s[j] == ' ' {
			j--
		}
		if j >= 0 && (s[j] >= '0' && s[j] <= '9' || s[j] == '.') {
			return i
		}
	}
	return -1
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
