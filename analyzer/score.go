package analyzer

import (
	"strings"
	"unicode/utf8"
)

// Category caps. Every sub-score is clamped to its cap before summing.
const (
	MaxTitleScore       = 30
	MaxDescriptionScore = 25
	MaxKeywordsScore    = 10
	MaxHeadingScore     = 20
	MaxImageScore       = 10
	MaxPerformanceScore = 5
	MaxTotalScore       = 100
)

var (
	seoTitleWords      = []string{"seo", "optimization", "marketing"}
	businessTitleWords = []string{"business", "company", "service"}
	techTitleWords     = []string{"web", "digital", "online"}

	ctaWords = []string{"click", "visit", "learn", "discover", "get", "try", "buy", "download", "start", "join"}
)

// Score computes the deterministic breakdown for a feature set. It performs
// no I/O and reads no clock, so equal inputs always give equal outputs.
func Score(fs FeatureSet) ScoreBreakdown {
	s := Scores{
		TitleScore:       clamp(titleScore(fs.Title), MaxTitleScore),
		DescriptionScore: clamp(descriptionScore(fs.MetaDescription), MaxDescriptionScore),
		KeywordsScore:    clamp(keywordsScore(fs.MetaKeywords), MaxKeywordsScore),
		HeadingScore:     clamp(headingScore(fs.Headings), MaxHeadingScore),
		ImageScore:       clamp(imageScore(fs.Images), MaxImageScore),
		PerformanceScore: clamp(performanceScore(fs.Performance.LoadTime), MaxPerformanceScore),
	}
	s.TotalScore = clamp(
		s.TitleScore+s.DescriptionScore+s.KeywordsScore+s.HeadingScore+s.ImageScore+s.PerformanceScore,
		MaxTotalScore,
	)

	issues, recommendations := Findings(fs)
	return ScoreBreakdown{
		Scores:          s,
		Issues:          issues,
		Recommendations: recommendations,
	}
}

func titleScore(title *string) int {
	if isBlank(title) {
		return 0
	}
	n := utf8.RuneCountInString(*title)
	lower := strings.ToLower(*title)

	score := 0
	switch {
	case n >= 30 && n <= 60:
		score = 20
	case n >= 25 && n <= 65:
		score = 15
	case n >= 15 && n <= 70:
		score = 10
	default:
		score = 5
	}

	if containsAny(lower, seoTitleWords) {
		score += 5
	}
	if containsAny(lower, businessTitleWords) {
		score += 3
	}
	if containsAny(lower, techTitleWords) {
		score += 2
	}
	return score
}

func descriptionScore(description *string) int {
	if isBlank(description) {
		return 0
	}
	n := utf8.RuneCountInString(*description)

	score := 0
	switch {
	case n >= 140 && n <= 155:
		score = 15
	case n >= 120 && n <= 160:
		score = 12
	case n >= 100 && n <= 170:
		score = 8
	case n >= 50:
		score = 4
	default:
		score = 1
	}

	lower := strings.ToLower(*description)
	found := 0
	for _, word := range ctaWords {
		if strings.Contains(lower, word) {
			found++
		}
	}
	return score + min(found*2, 10)
}

func keywordsScore(keywords *string) int {
	if isBlank(keywords) || strings.TrimSpace(*keywords) == "" {
		return 0
	}
	n := len(splitKeywords(*keywords))
	switch {
	case n >= 3 && n <= 8:
		return 10
	case n >= 1 && n <= 12:
		return 6
	case n > 0:
		return 3
	default:
		return 0
	}
}

func headingScore(h Headings) int {
	score := 0

	switch len(h.H1) {
	case 0:
	case 1:
		n := utf8.RuneCountInString(h.H1[0])
		switch {
		case n >= 20 && n <= 70:
			score += 12
		case n >= 10:
			score += 8
		default:
			score += 4
		}
	default:
		score += 2
	}

	switch n := len(h.H2); {
	case n >= 2 && n <= 6:
		score += 5
	case n == 1:
		score += 3
	case n > 6:
		score += 2
	}

	if n := len(h.H3); n > 0 && n <= 10 {
		score += 3
	}
	return score
}

func imageScore(images ImageStats) int {
	// A page without images is acceptable, not penalized.
	if images.Total == 0 {
		return 8
	}
	ratio := float64(images.WithAlt) / float64(images.Total)
	switch {
	case ratio >= 0.95:
		return 10
	case ratio >= 0.8:
		return 7
	case ratio >= 0.6:
		return 4
	case ratio >= 0.3:
		return 2
	default:
		return 0
	}
}

func performanceScore(loadTime int64) int {
	switch {
	case loadTime <= 800:
		return 5
	case loadTime <= 1500:
		return 4
	case loadTime <= 2500:
		return 3
	case loadTime <= 4000:
		return 2
	case loadTime <= 6000:
		return 1
	default:
		return 0
	}
}

// splitKeywords splits a comma separated keyword list, dropping blanks.
func splitKeywords(keywords string) []string {
	var out []string
	for _, k := range strings.Split(keywords, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func isBlank(s *string) bool {
	return s == nil || *s == ""
}

func clamp(v, limit int) int {
	if v < 0 {
		return 0
	}
	return min(v, limit)
}
