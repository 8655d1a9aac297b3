package analyzer

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DOMExtractor parses the page with goquery. It tolerates attribute order
// and nested markup that PatternExtractor does not, and reports an alt
// attribute as present even when it is unquoted or has no value.
type DOMExtractor struct{}

var _ Extractor = DOMExtractor{}

// Extract implements Extractor. Markup goquery cannot parse yields an empty
// FeatureSet carrying only the URL and measurements.
func (DOMExtractor) Extract(page Page) FeatureSet {
	fs := FeatureSet{
		URL: page.URL,
		Headings: Headings{
			H1: []string{},
			H2: []string{},
			H3: []string{},
		},
		Performance: Performance{
			LoadTime: page.LoadTime,
			Size:     page.Size,
		},
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return fs
	}

	if title := doc.Find("title").First(); title.Length() > 0 {
		fs.Title = stringPtr(strings.TrimSpace(title.Text()))
	}
	fs.MetaDescription = metaContent(doc, "description")
	fs.MetaKeywords = metaContent(doc, "keywords")

	fs.Headings.H1 = selectionTexts(doc.Find("h1"))
	fs.Headings.H2 = selectionTexts(doc.Find("h2"))
	fs.Headings.H3 = selectionTexts(doc.Find("h3"))

	images := doc.Find("img")
	fs.Images.Total = images.Length()
	images.Each(func(_ int, s *goquery.Selection) {
		if _, exists := s.Attr("alt"); exists {
			fs.Images.WithAlt++
		}
	})
	fs.Images.WithoutAlt = fs.Images.Total - fs.Images.WithAlt

	host := hostname(page.URL)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if isInternalLink(href, host) {
			fs.Links.Internal++
		} else {
			fs.Links.External++
		}
	})

	return fs
}

// metaContent returns the content of the first meta tag with the given name
// that also has a content attribute.
func metaContent(doc *goquery.Document, name string) *string {
	var content *string
	doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		n, _ := s.Attr("name")
		if !strings.EqualFold(n, name) {
			return true
		}
		c, exists := s.Attr("content")
		if !exists {
			return true
		}
		content = stringPtr(strings.TrimSpace(c))
		return false
	})
	return content
}

func selectionTexts(sel *goquery.Selection) []string {
	texts := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, strings.TrimSpace(s.Text()))
	})
	return texts
}
