package analyzer

import (
	"net/url"
	"regexp"
	"strings"
)

// Extractor turns a fetched page into a FeatureSet. Implementations never
// fail: anything they cannot find is left empty.
type Extractor interface {
	Extract(page Page) FeatureSet
}

var (
	titlePattern       = regexp.MustCompile(`(?i)<title[^>]*>([^<]*)</title>`)
	descriptionPattern = regexp.MustCompile(`(?i)<meta[^>]*name=["']description["'][^>]*content=["']([^"']*)["'][^>]*>`)
	keywordsPattern    = regexp.MustCompile(`(?i)<meta[^>]*name=["']keywords["'][^>]*content=["']([^"']*)["'][^>]*>`)
	h1Pattern          = regexp.MustCompile(`(?is)<h1\b[^>]*>(.*?)</h1>`)
	h2Pattern          = regexp.MustCompile(`(?is)<h2\b[^>]*>(.*?)</h2>`)
	h3Pattern          = regexp.MustCompile(`(?is)<h3\b[^>]*>(.*?)</h3>`)
	tagPattern         = regexp.MustCompile(`<[^>]*>`)
	imgPattern         = regexp.MustCompile(`(?i)<img\b[^>]*>`)
	altPattern         = regexp.MustCompile(`(?i)alt=["'][^"']*["']`)
	anchorPattern      = regexp.MustCompile(`(?i)<a\s[^>]*href=["']([^"']*)["'][^>]*>`)
)

// PatternExtractor reads features from raw markup with regular expressions
// instead of building a DOM.
type PatternExtractor struct{}

var _ Extractor = PatternExtractor{}

// Extract implements Extractor.
func (PatternExtractor) Extract(page Page) FeatureSet {
	html := page.HTML

	fs := FeatureSet{
		URL:             page.URL,
		Title:           firstGroup(titlePattern, html),
		MetaDescription: firstGroup(descriptionPattern, html),
		MetaKeywords:    firstGroup(keywordsPattern, html),
		Headings: Headings{
			H1: headingTexts(h1Pattern, html),
			H2: headingTexts(h2Pattern, html),
			H3: headingTexts(h3Pattern, html),
		},
		Performance: Performance{
			LoadTime: page.LoadTime,
			Size:     page.Size,
		},
	}

	images := imgPattern.FindAllString(html, -1)
	fs.Images.Total = len(images)
	for _, img := range images {
		if altPattern.MatchString(img) {
			fs.Images.WithAlt++
		}
	}
	fs.Images.WithoutAlt = fs.Images.Total - fs.Images.WithAlt

	host := hostname(page.URL)
	for _, m := range anchorPattern.FindAllStringSubmatch(html, -1) {
		if isInternalLink(m[1], host) {
			fs.Links.Internal++
		} else {
			fs.Links.External++
		}
	}

	return fs
}

// firstGroup returns the trimmed first capture of the first match, or nil.
func firstGroup(re *regexp.Regexp, html string) *string {
	m := re.FindStringSubmatch(html)
	if m == nil {
		return nil
	}
	return stringPtr(strings.TrimSpace(m[1]))
}

// headingTexts keeps empty headings so counts reflect the markup.
func headingTexts(re *regexp.Regexp, html string) []string {
	matches := re.FindAllStringSubmatch(html, -1)
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, strings.TrimSpace(tagPattern.ReplaceAllString(m[1], "")))
	}
	return texts
}

// isInternalLink classifies hrefs textually: root-relative paths and any href
// mentioning the page host are internal.
func isInternalLink(href, host string) bool {
	if strings.HasPrefix(href, "/") {
		return true
	}
	return host != "" && strings.Contains(href, host)
}

func hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
