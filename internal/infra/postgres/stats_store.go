package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"quizcraze/internal/domain"
)

// StatsStore keeps one best-scoring row per (user_id, quiz_id) in user_quiz_stats.
type StatsStore struct {
	db *bun.DB
}

func NewStatsStore(db *bun.DB) *StatsStore {
	return &StatsStore{db: db}
}

// SaveIfBetter inserts the first record for a (user, quiz) pair or, under a row lock,
// replaces the stored one when the candidate scores strictly higher.
func (s *StatsStore) SaveIfBetter(ctx context.Context, candidate domain.UserQuizStats) (domain.UserQuizStats, domain.RetainStatus, error) {
	var (
		retained domain.UserQuizStats
		status   domain.RetainStatus
	)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := statsRowFrom(candidate)
		res, err := tx.NewInsert().
			Model(&row).
			On("CONFLICT (user_id, quiz_id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("insert stats: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			retained, status = row.toDomain(), domain.StatsCreated
			return nil
		}

		var existing statsRow
		err = tx.NewSelect().
			Model(&existing).
			Where("user_id = ? AND quiz_id = ?", candidate.UserID, candidate.QuizID).
			For("UPDATE").
			Scan(ctx)
		if err != nil {
			return fmt.Errorf("lock stats: %w", err)
		}
		if candidate.Score <= existing.Score {
			retained, status = existing.toDomain(), domain.StatsKept
			return nil
		}

		existing.CorrectAnswersCount = candidate.CorrectAnswersCount
		existing.CorrectAnswersPercentage = candidate.CorrectAnswersPercentage
		existing.Score = candidate.Score
		existing.Timestamp = candidate.Timestamp
		_, err = tx.NewUpdate().
			Model(&existing).
			Column("correct_answers_count", "correct_answers_percentage", "score", "timestamp").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update stats: %w", err)
		}
		retained, status = existing.toDomain(), domain.StatsImproved
		return nil
	})
	if err != nil {
		return domain.UserQuizStats{}, "", err
	}
	return retained, status, nil
}

func (s *StatsStore) ForUser(ctx context.Context, userID string) ([]domain.UserQuizStats, error) {
	var rows []statsRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", userID).
		Order("quiz_id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select user stats: %w", err)
	}
	return toStats(rows), nil
}

// All reads every row in one statement, so the result is a consistent snapshot.
func (s *StatsStore) All(ctx context.Context) ([]domain.UserQuizStats, error) {
	var rows []statsRow
	err := s.db.NewSelect().
		Model(&rows).
		Order("user_id", "quiz_id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select stats: %w", err)
	}
	return toStats(rows), nil
}

func toStats(rows []statsRow) []domain.UserQuizStats {
	out := make([]domain.UserQuizStats, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out
}
