package stats

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Requests collects request-level statistics for the API
type Requests struct {
	UniqueVisitors   map[string]time.Time `json:"uniqueVisitors"` // IP -> last visit
	AnalysisRequests int                  `json:"analysisRequests"`
	ErrorCount       int                  `json:"errorCount"`
	PopularURLs      map[string]int       `json:"popularUrls"`
	AverageLoadTime  float64              `json:"averageLoadTime"` // milliseconds
	TotalLoadTime    float64              `json:"totalLoadTime"`
	LastPersisted    time.Time            `json:"lastPersisted"`

	mutex    sync.RWMutex
	filePath string
	now      func() time.Time
}

// NewRequests creates request statistics persisted to dataDir/statistics.json,
// loading the previous state if present.
func NewRequests(dataDir string) (*Requests, error) {
	r := &Requests{
		UniqueVisitors: make(map[string]time.Time),
		PopularURLs:    make(map[string]int),
		filePath:       filepath.Join(dataDir, "statistics.json"),
		now:            time.Now,
	}
	if err := r.Load(); err != nil {
		return nil, err
	}
	return r, nil
}

// TrackVisitor records a visit from ip
func (r *Requests) TrackVisitor(ip string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.UniqueVisitors[ip] = r.now()
}

// cleanURL reduces an analyzed URL to scheme, host and path. Local and API
// URLs are not tracked.
func cleanURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}

	if strings.Contains(u.Host, "localhost") ||
		strings.Contains(u.Host, "127.0.0.1") ||
		strings.Contains(strings.ToLower(u.Path), "/api/") {
		return ""
	}

	cleaned := u.Scheme + "://" + u.Host
	if u.Path != "" && u.Path != "/" {
		cleaned += u.Path
	}
	return strings.TrimSuffix(cleaned, "/")
}

// TrackAnalysis records one analysis request for target
func (r *Requests) TrackAnalysis(target string, loadTime float64, hasError bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.AnalysisRequests++

	if cleaned := cleanURL(target); cleaned != "" {
		r.PopularURLs[cleaned]++
	}

	if hasError {
		r.ErrorCount++
	}

	r.TotalLoadTime += loadTime
	r.AverageLoadTime = r.TotalLoadTime / float64(r.AnalysisRequests)
}

// TotalRequests returns the number of tracked analysis requests
func (r *Requests) TotalRequests() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.AnalysisRequests
}

// uniqueVisitors24h counts visitors seen in the last 24 hours; callers hold the lock
func (r *Requests) uniqueVisitors24h() int {
	cutoff := r.now().Add(-24 * time.Hour)
	count := 0
	for _, lastVisit := range r.UniqueVisitors {
		if lastVisit.After(cutoff) {
			count++
		}
	}
	return count
}

// URLCount is a tracked URL with its analysis count
type URLCount struct {
	URL   string `json:"url"`
	Count int    `json:"count"`
}

// popularURLs returns the n most analyzed URLs; callers hold the lock
func (r *Requests) popularURLs(n int) []URLCount {
	counts := make([]URLCount, 0, len(r.PopularURLs))
	for u, c := range r.PopularURLs {
		counts = append(counts, URLCount{URL: u, Count: c})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].URL < counts[j].URL
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// errorRate returns the error rate as a percentage; callers hold the lock
func (r *Requests) errorRate() float64 {
	if r.AnalysisRequests == 0 {
		return 0
	}
	return float64(r.ErrorCount) / float64(r.AnalysisRequests) * 100
}

// Snapshot returns the public statistics. Popular URLs are only included
// when detailed is set, as they reveal what users analyze.
func (r *Requests) Snapshot(detailed bool) map[string]any {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	out := map[string]any{
		"uniqueVisitors24h": r.uniqueVisitors24h(),
		"totalRequests":     r.AnalysisRequests,
		"errorRate":         r.errorRate(),
		"averageLoadTime":   r.AverageLoadTime,
	}
	if detailed {
		out["popularUrls"] = r.popularURLs(5)
	}
	return out
}

// Save persists the statistics
func (r *Requests) Save() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.LastPersisted = r.now()

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("could not encode statistics: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.filePath), 0o755); err != nil {
		return fmt.Errorf("could not create statistics directory: %w", err)
	}
	if err := os.WriteFile(r.filePath, data, 0o644); err != nil {
		return fmt.Errorf("could not write statistics file: %w", err)
	}
	return nil
}

// Load reads the statistics from disk; a missing file is not an error
func (r *Requests) Load() error {
	data, err := os.ReadFile(r.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not open statistics file: %w", err)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := json.Unmarshal(data, r); err != nil {
		return fmt.Errorf("could not decode statistics: %w", err)
	}
	if r.UniqueVisitors == nil {
		r.UniqueVisitors = make(map[string]time.Time)
	}
	if r.PopularURLs == nil {
		r.PopularURLs = make(map[string]int)
	}
	return nil
}
