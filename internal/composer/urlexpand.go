package composer

import (
	"context"
	"regexp"
	"strings"

	"github.com/jun/jotflow/internal/pagetitle"
)

var urlPattern = regexp.MustCompile(`https?://[^\s)]+`)

// skippedHosts are domains prone to blocking or rate-limiting title fetches;
// their URLs are left bare.
var skippedHosts = []string{"x.com", "twitter.com"}

// ExpandURLs rewrites every bare URL in text as a markdown link
// [title](url). URLs already inside a markdown link target or a
// parenthetical are left alone, duplicates are fetched once, and a failed
// title lookup leaves the URL unexpanded. The send never blocks on this.
func ExpandURLs(ctx context.Context, text string, fetcher pagetitle.Fetcher) string {
	var unique []string
	seen := map[string]bool{}
	for _, loc := range urlPattern.FindAllStringIndex(text, -1) {
		u := text[loc[0]:loc[1]]
		if insideLink(text, loc[0]) || seen[u] {
			continue
		}
		seen[u] = true
		unique = append(unique, u)
	}
	if len(unique) == 0 {
		return text
	}

	titles := make(map[string]string, len(unique))
	for _, u := range unique {
		if skipHost(u) {
			continue
		}
		title := fetcher.FetchTitle(ctx, u)
		if title != "" && title != u {
			titles[u] = title
		}
	}

	// Rebuild the text, replacing each bare occurrence of an expandable URL.
	var b strings.Builder
	last := 0
	for _, loc := range urlPattern.FindAllStringIndex(text, -1) {
		u := text[loc[0]:loc[1]]
		title, ok := titles[u]
		if !ok || insideLink(text, loc[0]) {
			continue
		}
		b.WriteString(text[last:loc[0]])
		b.WriteString("[" + title + "](" + u + ")")
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

// insideLink reports whether the URL starting at pos is already a markdown
// link target or wrapped in parentheses: both are preceded by "(".
func insideLink(text string, pos int) bool {
	return pos > 0 && text[pos-1] == '('
}

func skipHost(rawURL string) bool {
	for _, host := range skippedHosts {
		if strings.Contains(rawURL, "://"+host+"/") || strings.HasSuffix(rawURL, "://"+host) ||
			strings.Contains(rawURL, "://www."+host+"/") || strings.HasSuffix(rawURL, "://www."+host) {
			return true
		}
	}
	return false
}
