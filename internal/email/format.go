package email

import (
	"html"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// frPrinter renders numbers with French digit grouping ("1 234,5").
var frPrinter = message.NewPrinter(language.French)

// greetingWords are the openings that suppress the builder's own greeting
// line when the operator's message already starts with one.
var greetingWords = map[string]bool{
	"bonjour": true,
	"bonsoir": true,
	"salut":   true,
	"hello":   true,
	"hi":      true,
	"coucou":  true,
}

// escapeText HTML-escapes the five characters that matter in user input:
// & < > " '. Everything interpolated into the document goes through here
// unless it is an explicitly constructed markup fragment.
func escapeText(s string) string {
	return html.EscapeString(s)
}

// nl2br escapes s and converts plain-text line breaks to <br> markup.
func nl2br(s string) string {
	escaped := escapeText(s)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	return strings.ReplaceAll(escaped, "\n", "<br>")
}

// startsWithGreeting reports whether the message opens with a greeting
// word, case-insensitively, ignoring trailing punctuation on the first word.
func startsWithGreeting(msg string) bool {
	trimmed := strings.TrimSpace(msg)
	if trimmed == "" {
		return false
	}
	first := trimmed
	if i := strings.IndexAny(first, " \t\n"); i >= 0 {
		first = first[:i]
	}
	first = strings.ToLower(strings.TrimRight(first, ",.!:;"))
	return greetingWords[first]
}

// formatPrice renders a price for display.
//
// A value that already contains a currency symbol passes through escaped
// but unmodified (no double suffix). A numeric value is formatted with
// French grouping and the euro suffix. Anything else is escaped and
// suffixed with the symbol as a fallback.
func formatPrice(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ""
	}
	if strings.Contains(v, "€") {
		return escapeText(v)
	}
	if f, ok := parseNumber(v); ok {
		return frPrinter.Sprint(number.Decimal(f)) + " €"
	}
	return escapeText(v) + " €"
}

// formatMileage renders a mileage for display, following the same rules as
// formatPrice with "km" as the unit marker.
func formatMileage(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ""
	}
	if strings.Contains(strings.ToLower(v), "km") {
		return escapeText(v)
	}
	if f, ok := parseNumber(v); ok {
		return frPrinter.Sprint(number.Decimal(f)) + " km"
	}
	return escapeText(v) + " km"
}

// parseNumber parses a number the way an operator types it: spaces (and
// non-breaking spaces) as grouping, comma or dot as the decimal mark.
func parseNumber(v string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == ' ' || r == ' ' {
			return -1
		}
		return r
	}, v)
	if strings.Contains(cleaned, ",") && strings.Contains(cleaned, ".") {
		// "1.234,56": dots are grouping, comma is the decimal mark.
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// cssDecl is one CSS declaration of a style attribute.
type cssDecl struct {
	prop  string
	value string
}

// styleAttr serializes declarations, in order, into a single style
// attribute value. Merging happens on the declaration list before
// serialization, never by rewriting already-built markup.
func styleAttr(decls []cssDecl) string {
	var b strings.Builder
	for i, d := range decls {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(d.prop)
		b.WriteString(": ")
		b.WriteString(d.value)
		b.WriteString(";")
	}
	return b.String()
}

// orDash substitutes an em-dash placeholder for a missing table cell value.
func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return escapeText(s)
}
