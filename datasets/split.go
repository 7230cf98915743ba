package datasets

import (
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Split selects one of the three contiguous partitions of a manifest.
type Split int

const (
	Train Split = iota
	Val
	Test
)

var splitNames = [...]string{Train: "train", Val: "val", Test: "test"}

func (s Split) String() string {
	if s < Train || s > Test {
		return "unknown"
	}
	return splitNames[s]
}

// ParseSplit converts "train", "val" or "test" into a Split.
func ParseSplit(name string) (Split, error) {
	name = strings.TrimSpace(strings.ToLower(name))
	for i, n := range splitNames {
		if n == name {
			return Split(i), nil
		}
	}
	return Train, errors.Errorf("invalid split %q, must be one of train, val or test", name)
}

// MarshalText implements encoding.TextMarshaler so Split can be used in JSON configs.
func (s Split) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Split) UnmarshalText(b []byte) error {
	v, err := ParseSplit(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Proportions holds the train, val and test fractions of a manifest.
type Proportions [3]float64

// DefaultProportions is a 90/5/5 split.
var DefaultProportions = Proportions{0.9, 0.05, 0.05}

const proportionTolerance = 1e-6

// Validate checks all fractions are non-negative and sum to 1.
func (p Proportions) Validate() error {
	sum := 0.0
	for i, v := range p {
		if v < 0 || math.IsNaN(v) {
			return errors.Errorf("split proportion %d is invalid: %g", i, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > proportionTolerance {
		return errors.Errorf("split proportions %v must sum to 1, got %g", p, sum)
	}
	return nil
}

// bounds returns the [start, end) fractions covered by split s.
func (p Proportions) bounds(s Split) (float64, float64) {
	switch s {
	case Val:
		return p[0], p[0] + p[1]
	case Test:
		return p[0] + p[1], 1.0
	default:
		return 0.0, p[0]
	}
}

// Range returns the half-open index range [lo, hi) of split s in a manifest of
// n entries. Boundaries are floored, so the three ranges partition [0, n).
func (p Proportions) Range(s Split, n int) (lo, hi int) {
	f0, f1 := p.bounds(s)
	lo = int(math.Floor(f0 * float64(n)))
	hi = int(math.Floor(f1 * float64(n)))
	lo = min(max(lo, 0), n)
	hi = min(max(hi, lo), n)
	return lo, hi
}
