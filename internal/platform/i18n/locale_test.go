package i18n

import (
	"testing"

	"golang.org/x/text/language"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		locale string
		want   language.Tag
	}{
		{name: "empty falls back", locale: "", want: language.AmericanEnglish},
		{name: "garbage falls back", locale: "!!", want: language.AmericanEnglish},
		{name: "exact english", locale: "en-US", want: language.AmericanEnglish},
		{name: "generic english", locale: "en", want: language.AmericanEnglish},
		{name: "italian", locale: "it-IT", want: language.Italian},
		{name: "generic italian", locale: "it", want: language.Italian},
		{name: "unsupported matches fallback", locale: "ja-JP", want: language.AmericanEnglish},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Resolve(tc.locale); got != tc.want {
				t.Fatalf("Resolve(%q) = %v, want %v", tc.locale, got, tc.want)
			}
		})
	}
}
