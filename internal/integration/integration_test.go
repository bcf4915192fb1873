package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quizcraze/internal/app"
	"quizcraze/internal/clock"
	"quizcraze/internal/domain"
	"quizcraze/internal/infra/postgres"
	pgmigrations "quizcraze/internal/infra/postgres/migrations"
	infraredis "quizcraze/internal/infra/redis"
)

func TestPlayAndRankEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openDB(pgURL)
	defer db.Close()
	migrateAndSeed(t, ctx, db)

	pool, err := pgxpool.Connect(ctx, pgURL)
	require.NoError(t, err)
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	require.NoError(t, err)
	defer redisClient.Close()

	quizRepo := infraredis.NewQuizRepository(redisClient, postgres.NewQuizLoader(pool), 5*time.Minute)
	sessions := infraredis.NewSessionStore(redisClient, 5*time.Minute)
	cache := infraredis.NewRankingCache(redisClient, time.Minute)
	stats := postgres.NewStatsStore(db)
	users := postgres.NewUserDirectory(db)
	achievements := postgres.NewAchievementStore(db)

	statsService := app.NewStatsService(quizRepo, stats, users, achievements, cache, nil)
	rankings := app.NewRankingService(stats, users, cache, 50, nil)

	src := clock.NewManualSource()
	play := app.NewPlayService(sessions, quizRepo, statsService, rankings, app.PlayConfig{
		Session:       app.SessionConfig{CountdownSeconds: 1, Source: src},
		FinishTimeout: 10 * time.Second,
	}, nil)

	view, err := play.StartSession(ctx, "u2", "quiz-1")
	require.NoError(t, err)
	src.Tick()
	_, err = play.SubmitAnswer(view.SessionID, "4")
	require.NoError(t, err)
	session, err := play.Session(view.SessionID)
	require.NoError(t, err)
	select {
	case <-session.Done():
	case <-time.After(15 * time.Second):
		require.FailNow(t, "finish did not complete")
	}
	outcome := session.View().Outcome
	require.NotNil(t, outcome)
	require.NotNil(t, outcome.Stats, "stats are stored")
	assert.Equal(t, 200, outcome.Stats.Score, "hard quiz doubles the score")
	require.NotEmpty(t, outcome.Leaderboard)
	assert.Equal(t, "u2", outcome.Leaderboard[0].UserID)

	// A worse attempt keeps the stored record; a miss on the quiz leaves alice at zero.
	sub, err := statsService.Submit(ctx, "u2", "quiz-1", []domain.SubmittedAnswer{{QuestionID: "q1", Answers: []string{"3"}}})
	require.NoError(t, err)
	assert.Equal(t, domain.StatsKept, sub.Status)
	assert.Equal(t, 200, sub.Stats.Score)

	earned, err := statsService.UserAchievements(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, earned, 2, "first-quiz and sharpshooter")

	lb, err := rankings.GetRanking(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, lb, 2)
	assert.Equal(t, "u2", lb[0].UserID)
	assert.Equal(t, "u1", lb[1].UserID)
	assert.Equal(t, 2, lb[1].Rank)
}

func TestStatsStoreKeepsBestConcurrently(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	db := openDB(pgURL)
	defer db.Close()
	migrateAndSeed(t, ctx, db)

	store := postgres.NewStatsStore(db)
	errs := make(chan error, 10)
	for i := 1; i <= 10; i++ {
		score := i * 10
		go func() {
			_, _, err := store.SaveIfBetter(ctx, domain.UserQuizStats{
				ID:        fmt.Sprintf("s-%d", score),
				UserID:    "u1",
				QuizID:    "quiz-1",
				Score:     score,
				Timestamp: time.Now(),
			})
			errs <- err
		}()
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, <-errs)
	}

	all, err := store.ForUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 100, all[0].Score, "best score wins")
}

func migrateAndSeed(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err := migrator.Migrate(ctx)
	require.NoError(t, err)

	require.NoError(t, postgres.SaveQuiz(ctx, db, sampleQuiz()))
	users := postgres.NewUserDirectory(db)
	for _, u := range []domain.User{{ID: "u1", Nickname: "Alice"}, {ID: "u2", Nickname: "Bob"}} {
		require.NoError(t, users.Upsert(ctx, u))
	}
	err = postgres.NewAchievementStore(db).Define(ctx,
		domain.Achievement{ID: "first-quiz", Name: "First Steps", Criteria: domain.QuizzesCompleted, TargetValue: 1},
		domain.Achievement{ID: "sharpshooter", Name: "Sharpshooter", Criteria: domain.Accuracy, TargetValue: 90},
		domain.Achievement{ID: "creator", Name: "Creator", Criteria: domain.QuizzesCreated, TargetValue: 1},
	)
	require.NoError(t, err)
}

func openDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		require.NoError(t, err, "start postgres")
	}
	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		require.NoError(t, err, "start redis")
	}
	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:         "quiz-1",
		Name:       "Arithmetic",
		Difficulty: domain.Hard,
		Questions: []domain.Question{
			{
				ID:      "q1",
				Type:    domain.SingleChoice,
				Content: "What is 2 + 2?",
				Answers: []domain.Answer{
					{Content: "3", IsCorrect: false},
					{Content: "4", IsCorrect: true},
					{Content: "5", IsCorrect: false},
				},
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
