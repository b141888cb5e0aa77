package dice

import (
	"errors"
	"math/rand"
	"testing"
)

func TestNormalizeDropsAndClamps(t *testing.T) {
	tests := []struct {
		name string
		raw  map[int]int
		want Selection
	}{
		{
			name: "nil input",
			raw:  nil,
			want: Selection{},
		},
		{
			name: "unknown sides dropped",
			raw:  map[int]int{7: 3, 6: 1},
			want: Selection{6: 1},
		},
		{
			name: "non-positive counts dropped",
			raw:  map[int]int{6: 0, 8: -2, 10: 1},
			want: Selection{10: 1},
		},
		{
			name: "oversized counts clamped",
			raw:  map[int]int{6: 99},
			want: Selection{6: MaxPerKind},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Normalize(tc.raw)
			if len(got) != len(tc.want) {
				t.Fatalf("Normalize = %v, want %v", got, tc.want)
			}
			for sides, count := range tc.want {
				if got[sides] != count {
					t.Fatalf("Normalize[%d] = %d, want %d", sides, got[sides], count)
				}
			}
		})
	}
}

func TestSelectionLabel(t *testing.T) {
	sel := Selection{8: 1, 6: 2}
	if got := sel.Label(); got != "d6×2 • d8×1" {
		t.Fatalf("Label = %q", got)
	}
	if got := (Selection{}).Label(); got != "" {
		t.Fatalf("empty Label = %q, want empty", got)
	}
}

func TestRollEmptySelection(t *testing.T) {
	_, err := Roll(rand.New(rand.NewSource(1)), Selection{})
	if !errors.Is(err, ErrEmptySelection) {
		t.Fatalf("err = %v, want ErrEmptySelection", err)
	}
}

func TestRollUnknownSides(t *testing.T) {
	// Bypass Normalize to exercise the defensive check.
	_, err := Roll(rand.New(rand.NewSource(1)), Selection{7: 1})
	if !errors.Is(err, ErrUnknownSides) {
		t.Fatalf("err = %v, want ErrUnknownSides", err)
	}
}

func TestRollCountsAndShape(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	sel := Selection{6: 2, 8: 1}

	result, err := Roll(rng, sel)
	if err != nil {
		t.Fatalf("roll: %v", err)
	}
	if len(result.Icons[6]) != 2 {
		t.Fatalf("expected 2 d6 outcomes, got %d", len(result.Icons[6]))
	}
	if len(result.Icons[8]) != 1 {
		t.Fatalf("expected 1 d8 outcome, got %d", len(result.Icons[8]))
	}
	if _, ok := result.SuccessesByKind[6]; !ok {
		t.Fatal("expected d6 success total")
	}
	if result.Failures < 0 {
		t.Fatalf("failures = %d, want >= 0", result.Failures)
	}
}

func TestRollDeterministicBySeed(t *testing.T) {
	sel := Selection{6: 3, 10: 2}

	first, err := Roll(rand.New(rand.NewSource(7)), sel)
	if err != nil {
		t.Fatalf("first roll: %v", err)
	}
	second, err := Roll(rand.New(rand.NewSource(7)), sel)
	if err != nil {
		t.Fatalf("second roll: %v", err)
	}

	for _, sides := range sel.Kinds() {
		if len(first.Icons[sides]) != len(second.Icons[sides]) {
			t.Fatalf("d%d outcome count differs", sides)
		}
		for i := range first.Icons[sides] {
			if first.Icons[sides][i] != second.Icons[sides][i] {
				t.Fatalf("d%d outcome %d differs: %q vs %q", sides, i, first.Icons[sides][i], second.Icons[sides][i])
			}
		}
		if first.SuccessesByKind[sides] != second.SuccessesByKind[sides] {
			t.Fatalf("d%d successes differ", sides)
		}
	}
	if first.Failures != second.Failures {
		t.Fatalf("failures differ: %d vs %d", first.Failures, second.Failures)
	}
}

func TestFaceTablesMatchSides(t *testing.T) {
	for sides, layout := range tables {
		if len(layout) != sides {
			t.Errorf("d%d layout has %d faces", sides, len(layout))
		}
		for _, face := range layout {
			if _, ok := faces[face]; !ok {
				t.Errorf("d%d layout uses unknown face %q", sides, face)
			}
		}
	}
}
