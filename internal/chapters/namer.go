package chapters

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Namer turns a locale token into a branch label.
type Namer func(locale string) string

// LanguageNamer names a locale in its own language, title-cased
// ("en" -> "English", "es" -> "Español"). Unknown tokens are returned trimmed.
func LanguageNamer(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return ""
	}

	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return locale
	}

	name := display.Self.Name(tag)
	if name == "" {
		return locale
	}

	return cases.Title(tag).String(name)
}
