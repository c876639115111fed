package historize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// AttrsEqual reports whether two attribute bags agree. Values are compared
// after Unicode NFC normalization and space trimming so that accent-encoding
// differences between vintages (common in French labels) do not register as
// attribute changes.
func AttrsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		if canon(av) != canon(bv) {
			return false
		}
	}
	return true
}

func canon(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
