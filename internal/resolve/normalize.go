package resolve

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var spaceRe = regexp.MustCompile(`\s+`)

var punctuation = strings.NewReplacer(
	",", "",
	".", "",
	"'", "",
	"’", "",
	"\"", "",
	"&", " and ",
	"-", " ",
	"/", " ",
)

// Normalize standardizes a facility name for matching by:
//  1. Trimming whitespace
//  2. Case folding
//  3. Stripping accents (NFD, drop non-spacing marks)
//  4. Stripping punctuation (commas, periods, quotes; "&" becomes "and")
//  5. Collapsing runs of whitespace into single spaces
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	name = cases.Fold().String(name)

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range norm.NFD.String(name) {
		if !unicode.Is(unicode.Mn, r) {
			b.WriteRune(r)
		}
	}
	name = punctuation.Replace(b.String())

	name = spaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
