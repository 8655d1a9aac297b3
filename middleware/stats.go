package middleware

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/metalyz/backend/stats"
)

// AnalyzedURLKey is the gin context key handlers set to the URL they analyzed.
const AnalyzedURLKey = "analyzedURL"

// saveEvery is how many analysis requests pass between statistics saves.
const saveEvery = 100

// Stats tracks visitors on every request and timing and errors on analysis
// requests, which are POSTs to any of analysisPaths.
func Stats(requests *stats.Requests, logger *log.Logger, analysisPaths ...string) gin.HandlerFunc {
	tracked := make(map[string]bool, len(analysisPaths))
	for _, p := range analysisPaths {
		tracked[p] = true
	}

	return func(c *gin.Context) {
		start := time.Now()
		requests.TrackVisitor(c.ClientIP())

		c.Next()

		if c.Request.Method != http.MethodPost || !tracked[c.FullPath()] {
			return
		}

		loadTime := float64(time.Since(start).Milliseconds())
		requests.TrackAnalysis(c.GetString(AnalyzedURLKey), loadTime, c.Writer.Status() >= 400)

		if requests.TotalRequests()%saveEvery == 0 {
			go func() {
				if err := requests.Save(); err != nil {
					logger.Error("failed to save statistics", "err", err)
				}
			}()
		}
	}
}
