package datasets

import (
	"testing"
)

func TestParseSplit(t *testing.T) {
	for _, s := range []Split{Train, Val, Test} {
		got, err := ParseSplit(s.String())
		if err != nil || got != s {
			t.Fatalf("ParseSplit(%q) = %v, %v", s.String(), got, err)
		}
	}
	if got, err := ParseSplit(" VAL "); err != nil || got != Val {
		t.Fatalf("ParseSplit should trim and ignore case, got %v, %v", got, err)
	}
	if _, err := ParseSplit("validation"); err == nil {
		t.Fatalf("expected error for unknown split")
	}
}

func TestProportionsValidate(t *testing.T) {
	if err := DefaultProportions.Validate(); err != nil {
		t.Fatalf("default proportions should be valid: %v", err)
	}
	if err := (Proportions{0.8, 0.1, 0.1}).Validate(); err != nil {
		t.Fatalf("0.8/0.1/0.1 should be valid: %v", err)
	}
	for _, p := range []Proportions{{0.9, 0.1, 0.1}, {0.5, 0.2, 0.2}, {1.2, -0.1, -0.1}} {
		if err := p.Validate(); err == nil {
			t.Fatalf("expected error for %v", p)
		}
	}
}

func TestRangeDefaultTwenty(t *testing.T) {
	want := map[Split][2]int{Train: {0, 18}, Val: {18, 19}, Test: {19, 20}}
	for s, w := range want {
		lo, hi := DefaultProportions.Range(s, 20)
		if lo != w[0] || hi != w[1] {
			t.Fatalf("%s range: got [%d, %d), want [%d, %d)", s, lo, hi, w[0], w[1])
		}
	}
}

// TestRangePartitions checks that train/val/test always cover [0, n) with no
// overlap or gap.
func TestRangePartitions(t *testing.T) {
	props := []Proportions{DefaultProportions, {0.8, 0.1, 0.1}, {1, 0, 0}, {0, 0, 1}, {0.34, 0.33, 0.33}}
	for _, p := range props {
		for n := 0; n <= 257; n++ {
			tLo, tHi := p.Range(Train, n)
			vLo, vHi := p.Range(Val, n)
			sLo, sHi := p.Range(Test, n)
			if tLo != 0 || tHi != vLo || vHi != sLo || sHi != n {
				t.Fatalf("proportions %v n=%d: train [%d,%d) val [%d,%d) test [%d,%d)",
					p, n, tLo, tHi, vLo, vHi, sLo, sHi)
			}
			if tHi < tLo || vHi < vLo || sHi < sLo {
				t.Fatalf("proportions %v n=%d: negative range", p, n)
			}
		}
	}
}
