// Package composer transforms raw user input into the final title/note pair
// and drives the remote create-node call, resolving date-bucketed
// destinations on the way.
package composer

import (
	"strings"
	"time"
)

// timestampLayout is the local-timezone stamp prepended to notes.
const timestampLayout = "2006-01-02 15:04"

// ParseContent splits one editor blob into a node name and note body at the
// first blank line. Lines after the first blank line form the note; further
// blank lines inside the note are preserved as paragraph breaks.
func ParseContent(text string) (name, note string) {
	parts := splitOnBlankLines(text)
	if len(parts) == 0 {
		return "", ""
	}
	name = strings.TrimSpace(parts[0])
	if len(parts) > 1 {
		note = strings.TrimSpace(strings.Join(parts[1:], "\n\n"))
	}
	return name, note
}

func splitOnBlankLines(text string) []string {
	var parts []string
	var current []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			if len(current) > 0 {
				parts = append(parts, strings.Join(current, "\n"))
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		parts = append(parts, strings.Join(current, "\n"))
	}
	return parts
}

// ApplyTemplate expands a destination's content template. Placeholders
// {YYYY} {MM} {DD} {HH} {mm} {ss} take values from t; {content} takes the
// composed content. A template without a {content} placeholder has the
// content appended; an empty template passes the content through.
func ApplyTemplate(template, content string, t time.Time) string {
	r := strings.NewReplacer(
		"{YYYY}", t.Format("2006"),
		"{MM}", t.Format("01"),
		"{DD}", t.Format("02"),
		"{HH}", t.Format("15"),
		"{mm}", t.Format("04"),
		"{ss}", t.Format("05"),
	)
	result := r.Replace(template)

	if strings.Contains(result, "{content}") {
		return strings.ReplaceAll(result, "{content}", content)
	}
	return result + content
}

// WithTimestamp prepends the local-time stamp to a note. An empty note
// becomes the stamp itself.
func WithTimestamp(note string, t time.Time) string {
	stamp := t.Format(timestampLayout)
	if strings.TrimSpace(note) == "" {
		return stamp
	}
	return stamp + "\n\n" + note
}
