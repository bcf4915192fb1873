package app

import (
	"context"
	"fmt"

	"quizcraze/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// SessionRepository keeps live play sessions by session id (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// StatsRepository stores one best-scoring stats record per (user, quiz).
type StatsRepository interface {
	// SaveIfBetter stores candidate when no record exists or its score is strictly
	// higher than the stored one, and returns the record that is retained.
	SaveIfBetter(ctx context.Context, candidate domain.UserQuizStats) (domain.UserQuizStats, domain.RetainStatus, error)
	ForUser(ctx context.Context, userID string) ([]domain.UserQuizStats, error)
	// All returns a point-in-time snapshot of every stored record.
	All(ctx context.Context) ([]domain.UserQuizStats, error)
}

// UserDirectory exposes the accounts owned by the user service.
type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
}

// AchievementRepository stores achievement definitions and grants.
type AchievementRepository interface {
	List(ctx context.Context) ([]domain.Achievement, error)
	Earned(ctx context.Context, userID string) ([]domain.Achievement, error)
	Grant(ctx context.Context, userID string, achievementIDs []string) error
}

// RankingKey identifies a cached leaderboard. An empty QuizID is the global ranking.
type RankingKey struct {
	QuizID string
	Amount int
}

func (k RankingKey) String() string {
	scope := k.QuizID
	if scope == "" {
		scope = "global"
	}
	return fmt.Sprintf("%s:%d", scope, k.Amount)
}

// RankingCache memoises built leaderboards. Entries are tagged with the ranking
// version current when they were built; Bump invalidates all of them at once.
type RankingCache interface {
	Version(ctx context.Context) (int64, error)
	Bump(ctx context.Context) error
	Get(ctx context.Context, key RankingKey, version int64) ([]domain.RankingEntry, bool)
	Put(ctx context.Context, key RankingKey, version int64, entries []domain.RankingEntry) error
	// Latest returns the last stored leaderboard for key regardless of version.
	Latest(ctx context.Context, key RankingKey) ([]domain.RankingEntry, bool)
}

// ResultGateway persists finished attempts and returns the retained stats.
type ResultGateway interface {
	SubmitAttempt(ctx context.Context, userID, quizID string, answers []domain.SubmittedAnswer) (domain.UserQuizStats, error)
}

// RankingSource serves leaderboards, optionally scoped to one quiz.
type RankingSource interface {
	GetRanking(ctx context.Context, quizID string, amount int) ([]domain.RankingEntry, error)
}
