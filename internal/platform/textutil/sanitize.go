package textutil

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var plainTextPolicy = bluemonday.StrictPolicy()

// SanitizePlainText strips all markup from shopper-supplied free text such as
// order notes and address complements, then trims surrounding whitespace.
func SanitizePlainText(raw string) string {
	return strings.TrimSpace(plainTextPolicy.Sanitize(raw))
}
