package history

import (
	"context"
	"math"

	"scorekeeper/core"
)

// Stats summarises one partition. Pointer fields are nil when there is nothing
// to aggregate. Averages are rounded half up to whole numbers.
type Stats struct {
	TotalGames     int      `json:"totalGames"`
	CompletedGames int      `json:"completedGames"`
	BestScore      *float64 `json:"bestScore"`
	AverageScore   *float64 `json:"averageScore"`
	WorstScore     *float64 `json:"worstScore"`
	TotalTime      int64    `json:"totalTime"`
	AverageTime    *float64 `json:"averageTime"`
	TotalMoves     int      `json:"totalMoves"`
	AverageMoves   *float64 `json:"averageMoves"`
	Recent5Avg     *float64 `json:"recent5Avg"`
	Recent10Avg    *float64 `json:"recent10Avg"`
}

// GetGameStats aggregates the history of (g, d). The best score comes from the
// best-score index so it survives retention; the rest is computed over the
// completed plays still in history.
func (m *Manager) GetGameStats(ctx context.Context, g core.GameType, d core.Difficulty) (Stats, error) {
	p, err := partition(g, d)
	if err != nil {
		return Stats{}, err
	}
	records, err := m.loadHistory(ctx, p)
	if err != nil {
		return Stats{}, err
	}
	st := computeStats(records)
	if best, ok, err := m.cachedBest(ctx, p); err != nil {
		return Stats{}, err
	} else if ok {
		st.BestScore = &best
	}
	return st, nil
}

func computeStats(records []core.Record) Stats {
	st := Stats{TotalGames: len(records)}
	var (
		scoreSum float64
		minScore = math.Inf(1)
		maxScore = math.Inf(-1)
	)
	for _, r := range records {
		if !r.Completed {
			continue
		}
		st.CompletedGames++
		scoreSum += r.Score
		minScore = math.Min(minScore, r.Score)
		maxScore = math.Max(maxScore, r.Score)
		st.TotalTime += r.TimeSpent
		st.TotalMoves += r.Moves
	}
	if n := float64(st.CompletedGames); n > 0 {
		st.BestScore = ptr(minScore)
		st.WorstScore = ptr(maxScore)
		st.AverageScore = ptr(roundHalfUp(scoreSum / n))
		st.AverageTime = ptr(roundHalfUp(float64(st.TotalTime) / n))
		st.AverageMoves = ptr(roundHalfUp(float64(st.TotalMoves) / n))
	}
	st.Recent5Avg = recentAverage(records, 5)
	st.Recent10Avg = recentAverage(records, 10)
	return st
}

// recentAverage averages the scores of the n newest records, or of all of them if fewer.
func recentAverage(newestFirst []core.Record, n int) *float64 {
	if len(newestFirst) == 0 {
		return nil
	}
	window := newestFirst[:min(n, len(newestFirst))]
	var sum float64
	for _, r := range window {
		sum += r.Score
	}
	return ptr(roundHalfUp(sum / float64(len(window))))
}

// roundHalfUp rounds like JavaScript's Math.round: halves go towards +Inf.
func roundHalfUp(x float64) float64 { return math.Floor(x + 0.5) }

func ptr[T any](v T) *T { return &v }
