// Package richtext converts between the plain multi-line text stored by the
// application and the HTML representation required by cold-email providers.
// Templating placeholders such as {{first_name}} are passed through verbatim:
// they are resolved by the provider's renderer, never here.
package richtext

import (
	"html"
	"regexp"
	"strings"
)

var (
	paragraphBreak = regexp.MustCompile(`\n{2,}`)
	placeholder    = regexp.MustCompile(`\{\{[^{}]+\}\}`)
	lineBreakTag   = regexp.MustCompile(`(?i)<br\s*/?>`)
	anyTag         = regexp.MustCompile(`<[^>]*>`)
)

// ToHTML converts plain text into paragraph markup: a blank line starts a new
// <p>, a single newline becomes <br>, and HTML-sensitive characters are
// entity-escaped except inside placeholders.
func ToHTML(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return ""
	}

	var b strings.Builder
	for _, paragraph := range paragraphBreak.Split(text, -1) {
		if paragraph == "" {
			continue
		}

		b.WriteString("<p>")
		for i, line := range strings.Split(paragraph, "\n") {
			if i > 0 {
				b.WriteString("<br>")
			}
			b.WriteString(escapeKeepingPlaceholders(line))
		}
		b.WriteString("</p>")
	}

	return b.String()
}

// ToPlain is the structural inverse of ToHTML, used when reading campaign
// content back from a provider: paragraphs become blank-line separated
// blocks, <br> becomes a newline, entities are unescaped and any remaining
// markup is dropped.
func ToPlain(markup string) string {
	if markup == "" {
		return ""
	}

	markup = lineBreakTag.ReplaceAllString(markup, "\n")
	markup = strings.ReplaceAll(markup, "</p>", "\n\n")
	markup = anyTag.ReplaceAllString(markup, "")

	return strings.TrimRight(html.UnescapeString(markup), "\n")
}

func escapeKeepingPlaceholders(line string) string {
	var b strings.Builder
	last := 0
	for _, match := range placeholder.FindAllStringIndex(line, -1) {
		b.WriteString(html.EscapeString(line[last:match[0]]))
		b.WriteString(line[match[0]:match[1]])
		last = match[1]
	}
	b.WriteString(html.EscapeString(line[last:]))

	return b.String()
}
