package notation

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds compatibility characters (full-width letters, digits and
// brackets pasted from rich-text sources) to their ASCII forms and trims
// surrounding whitespace. It does not canonicalize the notation itself, so
// two spellings of the same molecule stay distinct.
func Normalize(notation string) string {
	return strings.TrimSpace(norm.NFKC.String(notation))
}
