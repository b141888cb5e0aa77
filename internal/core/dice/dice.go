// Package dice resolves Aeternum-style symbol dice.
//
// Each supported die kind maps to a fixed face table. Faces resolve to
// success and failure symbols rather than numeric values; a roll reports
// the ordered icons per die kind plus aggregate success and failure
// counts across the whole selection.
package dice

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// MaxPerKind caps how many dice of a single kind one roll may request.
// Larger counts are clamped, not rejected.
const MaxPerKind = 15

var (
	// ErrEmptySelection indicates a roll request with no resolvable dice.
	ErrEmptySelection = errors.New("dice selection is empty")
	// ErrUnknownSides indicates a die kind with no face table.
	ErrUnknownSides = errors.New("unknown die kind")
)

// Face is a symbolic die face code.
type Face string

const (
	FaceFailure       Face = "F"
	FaceDoubleFailure Face = "DF"
	FaceSuccess       Face = "S"
	FaceDoubleSuccess Face = "DS"
	FaceTripleSuccess Face = "TS"
)

type faceMeta struct {
	icon      string
	successes int
	failures  int
}

var faces = map[Face]faceMeta{
	FaceFailure:       {icon: "⚡", successes: 0, failures: 1},
	FaceDoubleFailure: {icon: "⚡⚡", successes: 0, failures: 2},
	FaceSuccess:       {icon: "🗡️", successes: 1, failures: 0},
	FaceDoubleSuccess: {icon: "🗡️🗡️", successes: 2, failures: 0},
	FaceTripleSuccess: {icon: "🗡️🗡️🗡️", successes: 3, failures: 0},
}

// tables holds the face layout per die kind. The layout length always
// equals the number of sides.
var tables = map[int][]Face{
	4:  {"F", "F", "S", "S"},
	6:  {"DF", "F", "F", "S", "S", "DS"},
	8:  {"DF", "F", "F", "F", "S", "S", "DS", "DS"},
	10: {"DF", "F", "F", "F", "F", "S", "S", "DS", "DS", "DS"},
	12: {"DF", "DF", "F", "F", "F", "F", "S", "S", "DS", "DS", "DS", "DS"},
	14: {"DF", "DF", "F", "F", "F", "F", "F", "S", "S", "DS", "DS", "DS", "DS", "TS"},
	16: {"DF", "DF", "F", "F", "F", "F", "F", "F", "S", "S", "DS", "DS", "DS", "DS", "TS", "TS"},
	18: {"DF", "DF", "F", "F", "F", "F", "F", "F", "F", "S", "S", "DS", "DS", "DS", "DS", "TS", "TS", "TS"},
	20: {"DF", "DF", "F", "F", "F", "F", "F", "F", "F", "F", "S", "S", "DS", "DS", "DS", "DS", "TS", "TS", "TS", "TS"},
}

// Selection maps die sides to the number of dice requested.
type Selection map[int]int

// Normalize filters a raw sides-to-count mapping into a rollable
// Selection. Unknown die kinds and non-positive counts are dropped,
// oversized counts are clamped to MaxPerKind.
func Normalize(raw map[int]int) Selection {
	out := Selection{}
	for sides, count := range raw {
		if _, ok := tables[sides]; !ok {
			continue
		}
		if count <= 0 {
			continue
		}
		if count > MaxPerKind {
			count = MaxPerKind
		}
		out[sides] = count
	}
	return out
}

// Kinds returns the selected die kinds in ascending side order.
func (s Selection) Kinds() []int {
	kinds := make([]int, 0, len(s))
	for sides := range s {
		kinds = append(kinds, sides)
	}
	sort.Ints(kinds)
	return kinds
}

// Label renders a short human-readable summary such as "d6×2 • d8×1".
func (s Selection) Label() string {
	parts := make([]string, 0, len(s))
	for _, sides := range s.Kinds() {
		parts = append(parts, fmt.Sprintf("d%d×%d", sides, s[sides]))
	}
	return strings.Join(parts, " • ")
}

// Result holds the resolved outcomes for a selection.
type Result struct {
	// Icons lists the rolled outcome icons per die kind, in roll order.
	Icons map[int][]string
	// SuccessesByKind totals successes per die kind.
	SuccessesByKind map[int]int
	// Failures totals failures across all kinds (a double failure face
	// counts twice).
	Failures int
}

// Roll resolves a selection using the provided random source.
//
// Roll is deterministic with respect to rng. Die kinds are processed in
// ascending side order so the same rng state always yields the same
// result for the same selection.
func Roll(rng *rand.Rand, selection Selection) (Result, error) {
	if len(selection) == 0 {
		return Result{}, ErrEmptySelection
	}

	result := Result{
		Icons:           make(map[int][]string, len(selection)),
		SuccessesByKind: make(map[int]int, len(selection)),
	}

	for _, sides := range selection.Kinds() {
		layout, ok := tables[sides]
		if !ok {
			return Result{}, fmt.Errorf("%w: d%d", ErrUnknownSides, sides)
		}

		count := selection[sides]
		icons := make([]string, 0, count)
		successes := 0
		for i := 0; i < count; i++ {
			face := layout[rng.Intn(len(layout))]
			meta := faces[face]
			icons = append(icons, meta.icon)
			successes += meta.successes
			result.Failures += meta.failures
		}

		result.Icons[sides] = icons
		result.SuccessesByKind[sides] = successes
	}

	return result, nil
}
