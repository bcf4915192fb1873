package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"quizcraze/internal/domain"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes"`

	ID   string      `bun:"id,pk"`
	Data domain.Quiz `bun:"data,type:jsonb"`
}

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID             string `bun:"id,pk"`
	Nickname       string `bun:"nickname"`
	QuizzesCreated int    `bun:"quizzes_created"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{ID: r.ID, Nickname: r.Nickname, QuizzesCreated: r.QuizzesCreated}
}

type statsRow struct {
	bun.BaseModel `bun:"table:user_quiz_stats,alias:s"`

	ID                       string    `bun:"id,pk"`
	UserID                   string    `bun:"user_id"`
	QuizID                   string    `bun:"quiz_id"`
	CorrectAnswersCount      int       `bun:"correct_answers_count"`
	CorrectAnswersPercentage float64   `bun:"correct_answers_percentage"`
	Score                    int       `bun:"score"`
	Timestamp                time.Time `bun:"timestamp"`
}

func statsRowFrom(s domain.UserQuizStats) statsRow {
	return statsRow{
		ID:                       s.ID,
		UserID:                   s.UserID,
		QuizID:                   s.QuizID,
		CorrectAnswersCount:      s.CorrectAnswersCount,
		CorrectAnswersPercentage: s.CorrectAnswersPercentage,
		Score:                    s.Score,
		Timestamp:                s.Timestamp,
	}
}

func (r statsRow) toDomain() domain.UserQuizStats {
	return domain.UserQuizStats{
		ID:                       r.ID,
		UserID:                   r.UserID,
		QuizID:                   r.QuizID,
		CorrectAnswersCount:      r.CorrectAnswersCount,
		CorrectAnswersPercentage: r.CorrectAnswersPercentage,
		Score:                    r.Score,
		Timestamp:                r.Timestamp.UTC(),
	}
}

type achievementRow struct {
	bun.BaseModel `bun:"table:achievements,alias:a"`

	ID          string  `bun:"id,pk"`
	Name        string  `bun:"name"`
	Description string  `bun:"description"`
	Icon        string  `bun:"icon"`
	Criteria    string  `bun:"criteria"`
	TargetValue float64 `bun:"target_value"`
}

func achievementRowFrom(a domain.Achievement) achievementRow {
	return achievementRow{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Icon:        a.Icon,
		Criteria:    string(a.Criteria),
		TargetValue: a.TargetValue,
	}
}

func (r achievementRow) toDomain() domain.Achievement {
	return domain.Achievement{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Icon:        r.Icon,
		Criteria:    domain.AchievementCriteria(r.Criteria),
		TargetValue: r.TargetValue,
	}
}

type userAchievementRow struct {
	bun.BaseModel `bun:"table:user_achievements,alias:ua"`

	UserID        string    `bun:"user_id,pk"`
	AchievementID string    `bun:"achievement_id,pk"`
	EarnedAt      time.Time `bun:"earned_at"`
}
