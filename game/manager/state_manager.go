package manager

import (
	"sort"
	"sync"
	"time"
)

// GameRecord is one finished game.
type GameRecord struct {
	ID        string        `json:"id"`
	Score     int           `json:"score"`
	Ticks     int           `json:"ticks"`
	Outcome   string        `json:"outcome"`
	Duration  time.Duration `json:"duration"`
	StartTime time.Time     `json:"startTime"`
}

// GameStats summarises the games of the current process.
type GameStats struct {
	GamesPlayed  int     `json:"gamesPlayed"`
	HighScore    int     `json:"highScore"`
	AverageScore float64 `json:"averageScore"`
	LastScore    int     `json:"lastScore"`

	// Computed over the retained history only.
	MedianScore     float64       `json:"medianScore"`
	AverageDuration time.Duration `json:"averageDuration"`
	MaxDuration     time.Duration `json:"maxDuration"`
}

// StatsManager keeps the score history in memory. Nothing is written to disk.
type StatsManager struct {
	mutex        sync.RWMutex
	maxHistory   int
	highScore    int
	gamesPlayed  int
	totalScore   int
	scoreHistory []GameRecord
}

func NewStatsManager(maxHistory int) *StatsManager {
	if maxHistory <= 0 {
		maxHistory = 50
	}
	return &StatsManager{
		maxHistory:   maxHistory,
		scoreHistory: make([]GameRecord, 0, maxHistory),
	}
}

// AddGame records a finished game and returns the updated summary.
func (sm *StatsManager) AddGame(rec GameRecord) GameStats {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	sm.gamesPlayed++
	sm.totalScore += rec.Score
	if rec.Score > sm.highScore {
		sm.highScore = rec.Score
	}
	if len(sm.scoreHistory) >= sm.maxHistory {
		sm.scoreHistory = sm.scoreHistory[1:]
	}
	sm.scoreHistory = append(sm.scoreHistory, rec)
	return sm.statsLocked()
}

func (sm *StatsManager) GetStats() GameStats {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.statsLocked()
}

func (sm *StatsManager) statsLocked() GameStats {
	stats := GameStats{
		GamesPlayed: sm.gamesPlayed,
		HighScore:   sm.highScore,
	}
	if sm.gamesPlayed > 0 {
		stats.AverageScore = float64(sm.totalScore) / float64(sm.gamesPlayed)
	}
	n := len(sm.scoreHistory)
	if n == 0 {
		return stats
	}
	stats.LastScore = sm.scoreHistory[n-1].Score

	scores := make([]int, n)
	var total time.Duration
	for i, rec := range sm.scoreHistory {
		scores[i] = rec.Score
		total += rec.Duration
		if rec.Duration > stats.MaxDuration {
			stats.MaxDuration = rec.Duration
		}
	}
	stats.AverageDuration = total / time.Duration(n)

	sort.Ints(scores)
	if n%2 == 0 {
		stats.MedianScore = float64(scores[n/2-1]+scores[n/2]) / 2
	} else {
		stats.MedianScore = float64(scores[n/2])
	}
	return stats
}

// GetScoreHistory returns the most recent games, oldest first.
func (sm *StatsManager) GetScoreHistory() []GameRecord {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()

	history := make([]GameRecord, len(sm.scoreHistory))
	copy(history, sm.scoreHistory)
	return history
}
