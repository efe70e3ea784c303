package conversion

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Language is a supported speech language.
type Language struct {
	Code string
	Name string
	Tag  language.Tag
}

var supportedTags = []language.Tag{
	language.English,
	language.Spanish,
	language.French,
	language.German,
	language.Hindi,
}

// DefaultLanguage is preselected on the text surface.
const DefaultLanguage = "en"

// SupportedLanguages lists the languages the backend can synthesize, in
// presentation order.
func SupportedLanguages() []Language {
	names := display.English.Tags()
	out := make([]Language, 0, len(supportedTags))
	for _, tag := range supportedTags {
		out = append(out, Language{Code: tag.String(), Name: names.Name(tag), Tag: tag})
	}
	return out
}

// LookupLanguage resolves a code such as "en", "EN" or "es-MX" to a supported
// language by its base subtag.
func LookupLanguage(code string) (Language, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Language{}, false
	}
	tag, err := language.Parse(code)
	if err != nil {
		return Language{}, false
	}
	base, _ := tag.Base()
	for _, lang := range SupportedLanguages() {
		candidate, _ := lang.Tag.Base()
		if candidate == base {
			return lang, true
		}
	}
	return Language{}, false
}
