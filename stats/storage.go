package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// MonthlyStats represents analysis cache outcomes for a specific month
type MonthlyStats struct {
	AnalysisCacheHits   int       `json:"analysis_hits"`
	AnalysisCacheMisses int       `json:"analysis_misses"`
	Fallbacks           int       `json:"fallbacks"`
	LastUpdated         time.Time `json:"last_updated"`
}

// Storage handles persistent storage of statistics
type Storage struct {
	mutex       sync.RWMutex
	stats       map[string]*MonthlyStats // key: "YYYY-MM"
	filePath    string
	lastWrite   time.Time
	writeBuffer chan struct{}
	done        chan struct{}
	stopped     chan struct{}
	closeOnce   sync.Once
	logger      *log.Logger
	now         func() time.Time
}

// NewStorage creates a new statistics storage instance persisted in dataDir
func NewStorage(dataDir string, logger *log.Logger) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}

	s := &Storage{
		stats:       make(map[string]*MonthlyStats),
		filePath:    filepath.Join(dataDir, "stats.json"),
		writeBuffer: make(chan struct{}, 1),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		logger:      logger,
		now:         time.Now,
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load stats: %w", err)
	}

	go s.backgroundWriter()

	return s, nil
}

// load reads statistics from file
func (s *Storage) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	return json.Unmarshal(data, &s.stats)
}

// save writes statistics to file
func (s *Storage) save() error {
	s.mutex.RLock()
	data, err := json.Marshal(s.stats)
	s.mutex.RUnlock()

	if err != nil {
		return fmt.Errorf("failed to marshal stats: %w", err)
	}

	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary file: %w", err)
	}

	// Rename is atomic on the same filesystem
	if err := os.Rename(tempFile, s.filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return nil
}

// backgroundWriter handles periodic writes to disk until Shutdown
func (s *Storage) backgroundWriter() {
	defer close(s.stopped)

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.writeBuffer:
		case <-ticker.C:
		case <-s.done:
			return
		}
		if err := s.save(); err != nil {
			s.logger.Error("failed to persist statistics", "err", err)
		}
	}
}

// month is the key of the current month, "YYYY-MM"
func (s *Storage) month() string {
	return s.now().Format("2006-01")
}

// requestWrite signals that a write to disk is needed
func (s *Storage) requestWrite() {
	select {
	case s.writeBuffer <- struct{}{}:
	default:
		// write already pending
	}
}

// IncrementStats adds to the current month's counters
func (s *Storage) IncrementStats(cacheHits, cacheMisses, fallbacks int) {
	if s == nil {
		return
	}
	month := s.month()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	stats, exists := s.stats[month]
	if !exists {
		stats = &MonthlyStats{}
		s.stats[month] = stats
	}

	stats.AnalysisCacheHits += cacheHits
	stats.AnalysisCacheMisses += cacheMisses
	stats.Fallbacks += fallbacks
	stats.LastUpdated = s.now()

	if stats.LastUpdated.Sub(s.lastWrite) > time.Minute {
		s.requestWrite()
		s.lastWrite = stats.LastUpdated
	}
}

// GetCurrentStats returns statistics for the current month
func (s *Storage) GetCurrentStats() MonthlyStats {
	stats, _ := s.GetMonthlyStats(s.month())
	return stats
}

// Cleanup removes statistics older than retainMonths months before the current one
func (s *Storage) Cleanup(retainMonths int) {
	now := s.now()
	keep := make(map[string]bool, retainMonths+1)
	for i := 0; i <= retainMonths; i++ {
		keep[now.AddDate(0, -i, 0).Format("2006-01")] = true
	}

	s.mutex.Lock()
	for key := range s.stats {
		if !keep[key] {
			delete(s.stats, key)
		}
	}
	s.mutex.Unlock()

	s.requestWrite()
	s.logger.Debug("pruned statistics", "retainMonths", retainMonths)
}

// GetMonthlyStats returns statistics for a specific month
func (s *Storage) GetMonthlyStats(yearMonth string) (MonthlyStats, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if stats, exists := s.stats[yearMonth]; exists {
		return *stats, true
	}
	return MonthlyStats{}, false
}

// GetAllMonths returns all months that have statistics, newest first
func (s *Storage) GetAllMonths() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	months := make([]string, 0, len(s.stats))
	for month := range s.stats {
		months = append(months, month)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))

	return months
}

// Shutdown stops the background writer and persists the final state
func (s *Storage) Shutdown() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		close(s.done)
	})
	<-s.stopped
	return s.save()
}
