package rss

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	scriptBlockRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	styleBlockRe  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`)
	imgSrcRe      = regexp.MustCompile(`(?i)src\s*=\s*(?:"([^"]*)"|'([^']*)')`)

	stripPolicy = bluemonday.StrictPolicy()

	entityReplacer = strings.NewReplacer(
		"&nbsp;", " ",
		"\u00a0", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", "\"",
		"&#34;", "\"",
		"&#39;", "'",
	)
)

// CleanHTML turns an HTML fragment into plain text. A nil input stays nil so
// that "no description" is distinguishable from an empty one.
func CleanHTML(raw *string) *string {
	if raw == nil {
		return nil
	}
	s := CleanText(*raw)
	return &s
}

// CleanText removes script and style blocks, strips the remaining tags and
// decodes the common entities.
func CleanText(raw string) string {
	s := scriptBlockRe.ReplaceAllString(raw, "")
	s = styleBlockRe.ReplaceAllString(s, "")
	s = stripPolicy.Sanitize(s)
	s = entityReplacer.Replace(s)
	return strings.TrimSpace(s)
}

// ExtractImage returns the first src attribute value found in raw HTML, or "".
// This is a scan, not a parse: any element's src counts.
func ExtractImage(raw string) string {
	m := imgSrcRe.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	if m[1] != "" {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(m[2])
}
