package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quizcraze/internal/config"
	"quizcraze/internal/domain"
	"quizcraze/internal/infra/postgres"
	pgmigrations "quizcraze/internal/infra/postgres/migrations"
	infraredis "quizcraze/internal/infra/redis"
	"quizcraze/internal/logging"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logging.Configure(cfg.Log.Level, cfg.Log.Format)
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			if seed {
				return seedDatabase(cmd.Context(), cfg)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "insert the sample quizzes, users and achievements")
	return cmd
}

func openBun(cfg config.Config) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	db := openBun(cfg)
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	log := logging.Logger()
	if group.IsZero() {
		log.Info("no new migrations")
		return nil
	}
	log.WithField("group", group.String()).Info("migrations applied")
	return nil
}

// quizInvalidator drops cached copies of a quiz after it was rewritten.
type quizInvalidator interface {
	Invalidate(ctx context.Context, quizID string) error
}

// publishQuizzes stores each quiz and evicts its cached copy, so running servers
// pick up the new content on the next load instead of after the cache TTL.
func publishQuizzes(ctx context.Context, save func(context.Context, domain.Quiz) error, cache quizInvalidator, quizzes []domain.Quiz) error {
	for _, quiz := range quizzes {
		if err := save(ctx, quiz); err != nil {
			return fmt.Errorf("seed quiz %s: %w", quiz.ID, err)
		}
		if cache == nil {
			continue
		}
		if err := cache.Invalidate(ctx, quiz.ID); err != nil {
			logging.Logger().WithError(err).WithField("quiz_id", quiz.ID).Warn("failed to evict cached quiz")
		}
	}
	return nil
}

func seedDatabase(ctx context.Context, cfg config.Config) error {
	db := openBun(cfg)
	defer db.Close()

	var cache quizInvalidator
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		cache = infraredis.NewQuizRepository(client, nil, 0)
	}
	save := func(ctx context.Context, quiz domain.Quiz) error {
		return postgres.SaveQuiz(ctx, db, quiz)
	}
	if err := publishQuizzes(ctx, save, cache, sampleQuizzes()); err != nil {
		return err
	}
	users := postgres.NewUserDirectory(db)
	for _, user := range sampleUsers() {
		if err := users.Upsert(ctx, user); err != nil {
			return fmt.Errorf("seed user %s: %w", user.ID, err)
		}
	}
	if err := postgres.NewAchievementStore(db).Define(ctx, sampleAchievements()...); err != nil {
		return fmt.Errorf("seed achievements: %w", err)
	}
	logging.Logger().Info("sample data seeded")
	return nil
}
