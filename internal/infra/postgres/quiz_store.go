package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"quizcraze/internal/domain"
)

// SaveQuiz upserts a quiz document into the quizzes table.
func SaveQuiz(ctx context.Context, db bun.IDB, quiz domain.Quiz) error {
	row := quizRow{ID: quiz.ID, Data: quiz}
	_, err := db.NewInsert().
		Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Exec(ctx)
	return err
}
