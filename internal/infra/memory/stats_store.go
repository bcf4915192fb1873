package memory

import (
	"context"
	"sort"
	"sync"

	"quizcraze/internal/domain"
)

type statsKey struct {
	userID string
	quizID string
}

// StatsStore keeps best-of-N stats in memory. SaveIfBetter is atomic per store.
type StatsStore struct {
	mu    sync.RWMutex
	stats map[statsKey]domain.UserQuizStats
}

func NewStatsStore() *StatsStore {
	return &StatsStore{stats: make(map[statsKey]domain.UserQuizStats)}
}

func (s *StatsStore) SaveIfBetter(_ context.Context, candidate domain.UserQuizStats) (domain.UserQuizStats, domain.RetainStatus, error) {
	key := statsKey{userID: candidate.UserID, quizID: candidate.QuizID}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.stats[key]
	if !ok {
		s.stats[key] = candidate
		return candidate, domain.StatsCreated, nil
	}
	if candidate.Score <= existing.Score {
		return existing, domain.StatsKept, nil
	}
	existing.CorrectAnswersCount = candidate.CorrectAnswersCount
	existing.CorrectAnswersPercentage = candidate.CorrectAnswersPercentage
	existing.Score = candidate.Score
	existing.Timestamp = candidate.Timestamp
	s.stats[key] = existing
	return existing, domain.StatsImproved, nil
}

func (s *StatsStore) ForUser(_ context.Context, userID string) ([]domain.UserQuizStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.UserQuizStats
	for key, st := range s.stats {
		if key.userID == userID {
			out = append(out, st)
		}
	}
	sortStats(out)
	return out, nil
}

func (s *StatsStore) All(_ context.Context) ([]domain.UserQuizStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UserQuizStats, 0, len(s.stats))
	for _, st := range s.stats {
		out = append(out, st)
	}
	sortStats(out)
	return out, nil
}

func sortStats(stats []domain.UserQuizStats) {
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].UserID != stats[j].UserID {
			return stats[i].UserID < stats[j].UserID
		}
		return stats[i].QuizID < stats[j].QuizID
	})
}
