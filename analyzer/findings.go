package analyzer

import (
	"fmt"
	"unicode/utf8"
)

// Findings derives the issue and recommendation lists for a feature set.
// It runs its own threshold checks rather than reading the numeric scores.
func Findings(fs FeatureSet) (issues, recommendations []string) {
	issues = []string{}
	recommendations = []string{}

	add := func(issue, recommendation string) {
		if issue != "" {
			issues = append(issues, issue)
		}
		if recommendation != "" {
			recommendations = append(recommendations, recommendation)
		}
	}

	switch {
	case isBlank(fs.Title):
		add("Missing title tag", "Add a descriptive title tag (30-60 characters)")
	case utf8.RuneCountInString(*fs.Title) < 30:
		add("Title too short", "Expand title to 30-60 characters for better SEO")
	case utf8.RuneCountInString(*fs.Title) > 60:
		add("Title too long", "Shorten title to under 60 characters to prevent truncation")
	}

	switch {
	case isBlank(fs.MetaDescription):
		add("Missing meta description", "Add a compelling meta description (120-155 characters)")
	case utf8.RuneCountInString(*fs.MetaDescription) < 120:
		add("Meta description too short", "Expand meta description to 120-155 characters")
	case utf8.RuneCountInString(*fs.MetaDescription) > 155:
		add("Meta description too long", "Shorten meta description to under 155 characters")
	}

	if isBlank(fs.MetaKeywords) {
		add("", "Consider adding meta keywords for better content targeting")
	}

	switch n := len(fs.Headings.H1); {
	case n == 0:
		add("Missing H1 heading", "Add a single H1 heading to define page topic")
	case n > 1:
		add("Multiple H1 headings found", "Use only one H1 heading per page")
	}

	if len(fs.Headings.H2) == 0 {
		add("", "Add H2 headings to structure your content")
	}

	if fs.Images.WithoutAlt > 0 {
		add(fmt.Sprintf("%d images missing alt text", fs.Images.WithoutAlt),
			"Add descriptive alt text to all images for accessibility")
	}

	if fs.Performance.LoadTime > 3000 {
		add("Slow page loading speed", "Optimize images and reduce file sizes to improve loading speed")
	}

	return issues, recommendations
}
