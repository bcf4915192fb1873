package memory

import (
	"context"
	"sync"

	"quizcraze/internal/domain"
)

// AchievementStore holds achievement definitions and per-user grants.
type AchievementStore struct {
	mu      sync.RWMutex
	defs    []domain.Achievement
	granted map[string]map[string]struct{}
}

func NewAchievementStore(defs ...domain.Achievement) *AchievementStore {
	return &AchievementStore{
		defs:    defs,
		granted: make(map[string]map[string]struct{}),
	}
}

func (s *AchievementStore) List(_ context.Context) ([]domain.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Achievement, len(s.defs))
	copy(out, s.defs)
	return out, nil
}

func (s *AchievementStore) Earned(_ context.Context, userID string) ([]domain.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Achievement{}
	for _, a := range s.defs {
		if _, ok := s.granted[userID][a.ID]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *AchievementStore) Grant(_ context.Context, userID string, achievementIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.granted[userID]
	if !ok {
		set = make(map[string]struct{})
		s.granted[userID] = set
	}
	for _, id := range achievementIDs {
		set[id] = struct{}{}
	}
	return nil
}
