package devotional

import (
	"slices"
	"testing"
)

func TestCountBlanks(t *testing.T) {
	testCases := []struct {
		text string
		want int
	}{
		{"En el [blank] era el Verbo", 1},
		{"[___] y [_]", 2},
		{"[ Blank ] y [BLANK]", 2},
		{"Dios es ___ y ___.", 2},
		{"___ al principio", 1},
		{"snake_case no cuenta", 0},
		{"a__b tampoco", 0},
		{"sin marcadores", 0},
		{"", 0},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			if got := CountBlanks(tc.text); got != tc.want {
				t.Errorf("CountBlanks(%q) = %d, want %d", tc.text, got, tc.want)
			}
		})
	}
}

func TestSplitBlanks(t *testing.T) {
	testCases := []struct {
		text string
		want []string
	}{
		{"El [blank] es mi [blank].", []string{"El ", " es mi ", "."}},
		{"[blank]", []string{"", ""}},
		{"nada", []string{"nada"}},
		{"Luz ___ mundo", []string{"Luz ", " mundo"}},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			got := SplitBlanks(tc.text)
			if !slices.Equal(got, tc.want) {
				t.Errorf("SplitBlanks(%q) = %q, want %q", tc.text, got, tc.want)
			}
			if len(got) != CountBlanks(tc.text)+1 {
				t.Errorf("Expected %d segments, got %d", CountBlanks(tc.text)+1, len(got))
			}
		})
	}
}
