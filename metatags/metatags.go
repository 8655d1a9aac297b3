// Package metatags validates meta tag sets and renders them as HTML.
package metatags

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/metalyz/backend/analyzer"
)

// Length and count limits for a publishable tag set.
const (
	TitleMinLength       = 30
	TitleMaxLength       = 60
	DescriptionMinLength = 120
	DescriptionMaxLength = 155
	MaxKeywords          = 10
)

// Tags is a set of meta tags for one page. Empty social fields fall back to
// Title and Description when rendered.
type Tags struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Keywords           []string `json:"keywords"`
	OGTitle            string   `json:"ogTitle,omitempty"`
	OGDescription      string   `json:"ogDescription,omitempty"`
	TwitterTitle       string   `json:"twitterTitle,omitempty"`
	TwitterDescription string   `json:"twitterDescription,omitempty"`
}

// Validation is the result of Validate.
type Validation struct {
	Valid  bool     `json:"isValid"`
	Issues []string `json:"issues"`
}

// Validate checks tags against the publishing limits.
func Validate(tags Tags) Validation {
	issues := []string{}

	switch n := utf8.RuneCountInString(tags.Title); {
	case n == 0:
		issues = append(issues, "Title is required")
	case n > TitleMaxLength:
		issues = append(issues, fmt.Sprintf("Title is too long (over %d characters)", TitleMaxLength))
	case n < TitleMinLength:
		issues = append(issues, fmt.Sprintf("Title is too short (under %d characters)", TitleMinLength))
	}

	switch n := utf8.RuneCountInString(tags.Description); {
	case n == 0:
		issues = append(issues, "Description is required")
	case n > DescriptionMaxLength:
		issues = append(issues, fmt.Sprintf("Description is too long (over %d characters)", DescriptionMaxLength))
	case n < DescriptionMinLength:
		issues = append(issues, fmt.Sprintf("Description is too short (under %d characters)", DescriptionMinLength))
	}

	switch n := len(tags.Keywords); {
	case n == 0:
		issues = append(issues, "Keywords are required")
	case n > MaxKeywords:
		issues = append(issues, fmt.Sprintf("Too many keywords (over %d)", MaxKeywords))
	}

	return Validation{Valid: len(issues) == 0, Issues: issues}
}

// FormatHTML renders tags as a head snippet with Open Graph and Twitter
// variants. Attribute values are HTML-escaped.
func FormatHTML(tags Tags) string {
	lines := []string{
		fmt.Sprintf("<title>%s</title>", html.EscapeString(tags.Title)),
		metaName("description", tags.Description),
		metaName("keywords", strings.Join(tags.Keywords, ", ")),
		"",
		"<!-- Open Graph / Facebook -->",
		metaProperty("og:title", orDefault(tags.OGTitle, tags.Title)),
		metaProperty("og:description", orDefault(tags.OGDescription, tags.Description)),
		metaProperty("og:type", "website"),
		"",
		"<!-- Twitter -->",
		metaName("twitter:card", "summary_large_image"),
		metaName("twitter:title", orDefault(tags.TwitterTitle, tags.Title)),
		metaName("twitter:description", orDefault(tags.TwitterDescription, tags.Description)),
	}
	return strings.Join(lines, "\n")
}

// FromAnalysis builds the tag set a page currently publishes, with any
// non-empty override taking precedence.
func FromAnalysis(a *analyzer.Analysis, override Tags) Tags {
	tags := override
	if tags.Title == "" && a.Title != nil {
		tags.Title = *a.Title
	}
	if tags.Description == "" && a.MetaDescription != nil {
		tags.Description = *a.MetaDescription
	}
	if len(tags.Keywords) == 0 && a.MetaKeywords != nil {
		tags.Keywords = SplitKeywords(*a.MetaKeywords)
	}
	if tags.Keywords == nil {
		tags.Keywords = []string{}
	}
	return tags
}

// SplitKeywords splits a comma separated list, trimming and dropping blanks.
func SplitKeywords(s string) []string {
	keywords := []string{}
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}

func metaName(name, content string) string {
	return fmt.Sprintf(`<meta name="%s" content="%s" />`, name, html.EscapeString(content))
}

func metaProperty(property, content string) string {
	return fmt.Sprintf(`<meta property="%s" content="%s" />`, property, html.EscapeString(content))
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
