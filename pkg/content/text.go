package content

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Runs of three or more whitespace characters, including non-breaking and
// other Unicode spaces, become a paragraph break.
var whitespaceRunRe = regexp.MustCompile(`[\s\p{Zs}\x{FEFF}\x{2028}\x{2029}]{3,}`)

// text strips noise elements and returns the remaining body prose.
func (e *Extractor) text(doc *goquery.Document) string {
	for _, sel := range e.config.StripSelectors {
		doc.Find(sel).Remove()
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}

	var kept []string
	for _, line := range strings.Split(body.Text(), "\n") {
		line = strings.TrimSpace(line)
		if utf8.RuneCountInString(line) < e.config.MinLineLength {
			continue
		}
		kept = append(kept, line)
	}

	joined := whitespaceRunRe.ReplaceAllString(strings.Join(kept, "\n"), "\n\n")
	return strings.TrimSpace(joined)
}
