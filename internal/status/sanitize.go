package status

import "regexp"

// colorCodes matches, in one pass, an escaped caret, a digit color code
// and an extended ^xRGB color code. Only the escaped caret has a capture group.
var colorCodes = regexp.MustCompile(`\^(\^)|\^\d|\^x[0-9a-fA-F]{3}`)

// Sanitize strips DarkPlaces color markup from a name and collapses "^^" to "^".
func Sanitize(raw string) string {
	return colorCodes.ReplaceAllString(raw, "$1")
}
