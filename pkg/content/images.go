package content

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	backgroundImageRe = regexp.MustCompile(`(?i)background-image\s*:\s*url\(\s*['"]?([^'")]+?)['"]?\s*\)`)
	leadingIntRe      = regexp.MustCompile(`^\s*[+-]?\d+`)
)

// images collects photo URLs from <img> elements and inline background
// styles, in document order.
func (e *Extractor) images(doc *goquery.Document, sourceURL string) []string {
	base, err := url.Parse(sourceURL)
	if err != nil {
		base = nil
	}

	var found []string
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		if e.tooSmall(s) {
			return
		}
		if u, ok := e.resolve(base, imageSource(s)); ok {
			found = append(found, u)
		}
	})

	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		for _, m := range backgroundImageRe.FindAllStringSubmatch(style, -1) {
			if u, ok := e.resolve(base, m[1]); ok {
				found = append(found, u)
			}
		}
	})

	seen := make(map[string]bool, len(found))
	images := make([]string, 0, e.config.MaxImages)
	for _, u := range found {
		if seen[u] {
			continue
		}
		seen[u] = true
		if e.excludedKeyword(u) {
			continue
		}
		images = append(images, u)
		if len(images) == e.config.MaxImages {
			break
		}
	}
	return images
}

// imageSource picks the candidate source: lazy-load attributes, then the
// first srcset URL, then src.
func imageSource(s *goquery.Selection) string {
	for _, attr := range []string{"data-src", "data-lazy-src"} {
		if v := strings.TrimSpace(s.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	if srcset := strings.TrimSpace(s.AttrOr("srcset", "")); srcset != "" {
		first, _, _ := strings.Cut(srcset, ",")
		if fields := strings.Fields(first); len(fields) > 0 {
			return fields[0]
		}
	}
	return strings.TrimSpace(s.AttrOr("src", ""))
}

// tooSmall reports whether a declared width or height is below the minimum.
// Values without a leading integer are ignored.
func (e *Extractor) tooSmall(s *goquery.Selection) bool {
	for _, attr := range []string{"width", "height"} {
		v, ok := s.Attr(attr)
		if !ok {
			continue
		}
		digits := leadingIntRe.FindString(v)
		if digits == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(digits))
		if err == nil && n < e.config.MinImageDimension {
			return true
		}
	}
	return false
}

// resolve makes raw absolute against base and applies the scheme and
// extension rules.
func (e *Extractor) resolve(base *url.URL, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(strings.ToLower(raw), "data:") {
		return "", false
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	abs := ref
	if base != nil {
		abs = base.ResolveReference(ref)
	}
	if (abs.Scheme != "http" && abs.Scheme != "https") || abs.Host == "" {
		return "", false
	}

	path := strings.ToLower(abs.Path)
	for _, ext := range e.config.ExcludedImageExtensions {
		if strings.HasSuffix(path, strings.ToLower(ext)) {
			return "", false
		}
	}
	return abs.String(), true
}

func (e *Extractor) excludedKeyword(u string) bool {
	lower := strings.ToLower(u)
	for _, kw := range e.config.ExcludedImageKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
