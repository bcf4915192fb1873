package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"quizcraze/internal/domain"
	"quizcraze/internal/ranking"
)

// RankingService builds leaderboards from a snapshot of users and stats.
type RankingService struct {
	stats     StatsRepository
	users     UserDirectory
	cache     RankingCache
	maxAmount int
	log       logrus.FieldLogger
}

// NewRankingService wires the ranking source. cache may be nil; maxAmount <= 0 disables clamping.
func NewRankingService(stats StatsRepository, users UserDirectory, cache RankingCache, maxAmount int, log logrus.FieldLogger) *RankingService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RankingService{stats: stats, users: users, cache: cache, maxAmount: maxAmount, log: log}
}

// GetRanking returns the top amount users, globally or for one quiz.
//
// When the snapshot read fails but an earlier leaderboard is cached, that
// leaderboard is returned together with ErrStaleRankingRead.
func (s *RankingService) GetRanking(ctx context.Context, quizID string, amount int) ([]domain.RankingEntry, error) {
	if amount < 1 {
		return nil, domain.ErrInvalidAmount
	}
	if s.maxAmount > 0 && amount > s.maxAmount {
		amount = s.maxAmount
	}
	key := RankingKey{QuizID: quizID, Amount: amount}
	log := s.log.WithField("ranking", key.String())

	var version int64
	cached := false
	if s.cache != nil {
		v, err := s.cache.Version(ctx)
		if err != nil {
			log.WithError(err).Warn("ranking cache unavailable")
		} else {
			version, cached = v, true
			if entries, ok := s.cache.Get(ctx, key, version); ok {
				return entries, nil
			}
		}
	}

	entries, err := s.build(ctx, quizID, amount)
	if err != nil {
		if s.cache != nil {
			if stale, ok := s.cache.Latest(ctx, key); ok {
				log.WithError(err).Warn("serving stale ranking")
				return stale, fmt.Errorf("%w: %v", domain.ErrStaleRankingRead, err)
			}
		}
		return nil, err
	}

	if cached {
		if err := s.cache.Put(ctx, key, version, entries); err != nil {
			log.WithError(err).Warn("failed to cache ranking")
		}
	}
	return entries, nil
}

func (s *RankingService) build(ctx context.Context, quizID string, amount int) ([]domain.RankingEntry, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	stats, err := s.stats.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("read stats snapshot: %w", err)
	}
	return ranking.Build(ranking.GroupByUser(users, stats), quizID, amount)
}
