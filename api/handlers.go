package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/metalyz/backend/analyzer"
	"github.com/metalyz/backend/metatags"
	"github.com/metalyz/backend/middleware"
)

type analyzeRequest struct {
	URL string `json:"url"`
}

type metaTagsRequest struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

type metaTagsResponse struct {
	Tags            metatags.Tags       `json:"tags"`
	Validation      metatags.Validation `json:"validation"`
	HTML            string              `json:"html"`
	SeoScore        int                 `json:"seoScore"`
	Recommendations []string            `json:"recommendations"`
}

func errorJSON(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// bindURL reads the request URL, writing a 400 and returning false when it
// is missing or the body is not JSON.
func bindURL(c *gin.Context, dst any, url func() string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		errorJSON(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if strings.TrimSpace(url()) == "" {
		errorJSON(c, http.StatusBadRequest, analyzer.ErrMissingURL.Error())
		return false
	}
	c.Set(middleware.AnalyzedURLKey, analyzer.NormalizeURL(strings.TrimSpace(url())))
	return true
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleAnalyze serves the cached analysis. Unreachable sites still get a
// 200 with the fallback analysis.
func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if !bindURL(c, &req, func() string { return req.URL }) {
		return
	}

	analysis, err := s.analyzer.Analyze(c.Request.Context(), req.URL)
	if err != nil {
		s.analysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// handleAnalyzeURL always fetches and reports fetch failures as errors.
func (s *Server) handleAnalyzeURL(c *gin.Context) {
	var req analyzeRequest
	if !bindURL(c, &req, func() string { return req.URL }) {
		return
	}

	analysis, err := s.analyzer.Live(c.Request.Context(), req.URL)
	if err != nil {
		s.analysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func (s *Server) analysisError(c *gin.Context, err error) {
	if errors.Is(err, analyzer.ErrMissingURL) {
		errorJSON(c, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error("analysis failed", "url", c.GetString(middleware.AnalyzedURLKey), "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Failed to analyze URL",
		"message": err.Error(),
	})
}

func (s *Server) handleScore(c *gin.Context) {
	var fs analyzer.FeatureSet
	if err := c.ShouldBindJSON(&fs); err != nil {
		errorJSON(c, http.StatusBadRequest, "Invalid feature set")
		return
	}
	c.JSON(http.StatusOK, analyzer.Score(fs))
}

func (s *Server) handleMetaTags(c *gin.Context) {
	var req metaTagsRequest
	if !bindURL(c, &req, func() string { return req.URL }) {
		return
	}

	analysis, err := s.analyzer.Analyze(c.Request.Context(), req.URL)
	if err != nil {
		s.analysisError(c, err)
		return
	}

	tags := metatags.FromAnalysis(analysis, metatags.Tags{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Keywords:    req.Keywords,
	})

	c.JSON(http.StatusOK, metaTagsResponse{
		Tags:            tags,
		Validation:      metatags.Validate(tags),
		HTML:            metatags.FormatHTML(tags),
		SeoScore:        analysis.SeoScore,
		Recommendations: analysis.Recommendations,
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		errorJSON(c, http.StatusNotFound, "History is not enabled")
		return
	}

	rawURL := strings.TrimSpace(c.Query("url"))
	if rawURL == "" {
		errorJSON(c, http.StatusBadRequest, analyzer.ErrMissingURL.Error())
		return
	}

	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errorJSON(c, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	records, err := s.history.List(c.Request.Context(), analyzer.NormalizeURL(rawURL), limit)
	if err != nil {
		s.logger.Error("failed to list history", "url", rawURL, "err", err)
		errorJSON(c, http.StatusInternalServerError, "Failed to load history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": analyzer.NormalizeURL(rawURL), "records": records})
}

func (s *Server) handleStatistics(c *gin.Context) {
	out := gin.H{}
	if s.requests != nil {
		for k, v := range s.requests.Snapshot(s.devMode) {
			out[k] = v
		}
	}
	if s.storage != nil {
		out["monthly"] = s.storage.GetCurrentStats()
	}

	cacheStats, err := s.analyzer.CacheStats(c.Request.Context())
	if err != nil {
		s.logger.Warn("failed to read cache statistics", "err", err)
	} else {
		out["cache"] = cacheStats
	}

	c.JSON(http.StatusOK, out)
}
