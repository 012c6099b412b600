package validator

import (
	"html"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	strict     *bluemonday.Policy
	rich       *bluemonday.Policy
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	policyOnce.Do(func() {
		strict = bluemonday.StrictPolicy()
		rich = bluemonday.UGCPolicy()
	})
	return strict, rich
}

// Plain strips all markup and surrounding whitespace. Used for titles and
// short fields, which are stored as text rather than HTML.
func Plain(s string) string {
	p, _ := policies()
	return strings.TrimSpace(html.UnescapeString(p.Sanitize(s)))
}

// RichText keeps safe formatting and drops scripts, handlers and unsafe links.
func RichText(s string) string {
	_, p := policies()
	return strings.TrimSpace(p.Sanitize(s))
}

// FieldErrors collects per-field validation messages.
type FieldErrors map[string]string

func (f FieldErrors) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		f[field] = "is required"
	}
}

func (f FieldErrors) MaxLength(field, value string, max int) {
	if utf8.RuneCountInString(value) > max {
		f[field] = "is too long"
	}
}

func (f FieldErrors) Empty() bool { return len(f) == 0 }
