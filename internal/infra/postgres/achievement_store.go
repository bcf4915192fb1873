package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"quizcraze/internal/domain"
)

// AchievementStore keeps achievement definitions and the user_achievements join table.
type AchievementStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewAchievementStore(db *bun.DB) *AchievementStore {
	return &AchievementStore{db: db, now: time.Now}
}

func (s *AchievementStore) List(ctx context.Context) ([]domain.Achievement, error) {
	var rows []achievementRow
	if err := s.db.NewSelect().Model(&rows).Order("id").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select achievements: %w", err)
	}
	return toAchievements(rows), nil
}

func (s *AchievementStore) Earned(ctx context.Context, userID string) ([]domain.Achievement, error) {
	var rows []achievementRow
	err := s.db.NewSelect().
		Model(&rows).
		Join("JOIN user_achievements AS ua ON ua.achievement_id = a.id").
		Where("ua.user_id = ?", userID).
		Order("a.id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select earned achievements: %w", err)
	}
	return toAchievements(rows), nil
}

// Grant records the achievements as earned. Granting twice keeps the first earned_at.
func (s *AchievementStore) Grant(ctx context.Context, userID string, achievementIDs []string) error {
	if len(achievementIDs) == 0 {
		return nil
	}
	now := s.now().UTC()
	rows := make([]userAchievementRow, len(achievementIDs))
	for i, id := range achievementIDs {
		rows[i] = userAchievementRow{UserID: userID, AchievementID: id, EarnedAt: now}
	}
	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (user_id, achievement_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("grant achievements: %w", err)
	}
	return nil
}

// Define upserts achievement definitions; used for seeding.
func (s *AchievementStore) Define(ctx context.Context, defs ...domain.Achievement) error {
	if len(defs) == 0 {
		return nil
	}
	rows := make([]achievementRow, len(defs))
	for i, a := range defs {
		rows[i] = achievementRowFrom(a)
	}
	_, err := s.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("description = EXCLUDED.description").
		Set("icon = EXCLUDED.icon").
		Set("criteria = EXCLUDED.criteria").
		Set("target_value = EXCLUDED.target_value").
		Exec(ctx)
	return err
}

func toAchievements(rows []achievementRow) []domain.Achievement {
	out := make([]domain.Achievement, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out
}
