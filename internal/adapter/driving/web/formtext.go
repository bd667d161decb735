package web

import "strings"

// formText returns a submitted note field as entered. Browsers send textarea
// line breaks as CRLF; they are stored as LF so notes from the form and the
// JSON API compare equal. Markup is kept literally and escaped at render time.
func formText(src string) string {
	return strings.ReplaceAll(src, "\r\n", "\n")
}
