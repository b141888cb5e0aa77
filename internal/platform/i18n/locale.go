// Package i18n resolves client-requested locales against the locales the
// service ships user-facing strings for.
package i18n

import "golang.org/x/text/language"

// Supported lists the locales with translated room notices. The first
// entry is the fallback for unknown or empty requests.
var Supported = []language.Tag{
	language.AmericanEnglish,
	language.Italian,
}

var matcher = language.NewMatcher(Supported)

// Resolve matches a BCP 47 locale string to a supported tag. Unparseable
// or unknown locales fall back to en-US.
func Resolve(locale string) language.Tag {
	if locale == "" {
		return Supported[0]
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return Supported[0]
	}
	_, index, _ := matcher.Match(tag)
	return Supported[index]
}
