package analyzer

// Headings holds the text of every h1, h2 and h3 element in document order.
type Headings struct {
	H1 []string `json:"h1"`
	H2 []string `json:"h2"`
	H3 []string `json:"h3"`
}

// ImageStats counts img tags and whether they carry an alt attribute.
// WithAlt + WithoutAlt always equals Total.
type ImageStats struct {
	Total      int `json:"total"`
	WithAlt    int `json:"withAlt"`
	WithoutAlt int `json:"withoutAlt"`
}

// LinkStats counts anchors by whether they point back at the analyzed host.
type LinkStats struct {
	Internal int `json:"internal"`
	External int `json:"external"`
}

// Performance holds the fetch measurements of a page.
type Performance struct {
	LoadTime int64 `json:"loadTime"` // milliseconds
	Size     int   `json:"size"`     // bytes
}

// FeatureSet is the flat set of facts extracted from one HTML document.
// Nil string pointers mean the element was not found.
type FeatureSet struct {
	URL             string      `json:"url"`
	Title           *string     `json:"title"`
	MetaDescription *string     `json:"metaDescription"`
	MetaKeywords    *string     `json:"metaKeywords"`
	Headings        Headings    `json:"headings"`
	Images          ImageStats  `json:"images"`
	Links           LinkStats   `json:"links"`
	Performance     Performance `json:"performance"`
}

// Scores are the six category sub-scores and their capped sum.
type Scores struct {
	TitleScore       int `json:"titleScore"`
	DescriptionScore int `json:"descriptionScore"`
	KeywordsScore    int `json:"keywordsScore"`
	HeadingScore     int `json:"headingScore"`
	ImageScore       int `json:"imageScore"`
	PerformanceScore int `json:"performanceScore"`
	TotalScore       int `json:"totalScore"`
}

// ScoreBreakdown is the output of Score.
type ScoreBreakdown struct {
	Scores
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// Analysis is what callers get back for a URL: the extracted features, the
// total score and the findings. Fallback analyses carry no breakdown.
type Analysis struct {
	FeatureSet
	SeoScore        int      `json:"seoScore"`
	Grade           string   `json:"grade"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
	Breakdown       *Scores  `json:"breakdown,omitempty"`
	Fallback        bool     `json:"fallback,omitempty"`
}

// Page is a fetched HTML document with its measurements.
type Page struct {
	URL      string
	HTML     string
	LoadTime int64 // milliseconds
	Size     int
}

// Report grades, matching the colour bands of the report view.
const (
	GradeExcellent        = "excellent"
	GradeGood             = "good"
	GradeNeedsImprovement = "needs-improvement"
)

// Grade maps a total score to its report band.
func Grade(score int) string {
	switch {
	case score >= 90:
		return GradeExcellent
	case score >= 70:
		return GradeGood
	default:
		return GradeNeedsImprovement
	}
}

func stringPtr(s string) *string {
	return &s
}
