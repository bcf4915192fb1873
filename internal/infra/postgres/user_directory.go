package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"quizcraze/internal/domain"
)

// UserDirectory reads the users table owned by the account service.
type UserDirectory struct {
	db *bun.DB
}

func NewUserDirectory(db *bun.DB) *UserDirectory {
	return &UserDirectory{db: db}
}

func (d *UserDirectory) GetUser(ctx context.Context, userID string) (domain.User, error) {
	var row userRow
	err := d.db.NewSelect().Model(&row).Where("id = ?", userID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	return row.toDomain(), nil
}

func (d *UserDirectory) ListUsers(ctx context.Context) ([]domain.User, error) {
	var rows []userRow
	if err := d.db.NewSelect().Model(&rows).Order("id").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	out := make([]domain.User, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

// Upsert writes a user; used for seeding.
func (d *UserDirectory) Upsert(ctx context.Context, user domain.User) error {
	row := userRow{ID: user.ID, Nickname: user.Nickname, QuizzesCreated: user.QuizzesCreated}
	_, err := d.db.NewInsert().
		Model(&row).
		On("CONFLICT (id) DO UPDATE").
		Set("nickname = EXCLUDED.nickname").
		Set("quizzes_created = EXCLUDED.quizzes_created").
		Exec(ctx)
	return err
}
