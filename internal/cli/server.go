package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"quizcraze/internal/app"
	"quizcraze/internal/config"
	"quizcraze/internal/infra/memory"
	"quizcraze/internal/infra/postgres"
	infraredis "quizcraze/internal/infra/redis"
	"quizcraze/internal/logging"
	transport "quizcraze/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// stores groups the adapters selected from config.
type stores struct {
	quizzes      app.QuizRepository
	sessions     app.SessionRepository
	stats        app.StatsRepository
	users        app.UserDirectory
	achievements app.AchievementRepository
	cache        app.RankingCache
	closers      []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.Configure(cfg.Log.Level, cfg.Log.Format)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	st, err := buildStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	maxAmount := cfg.Ranking.MaxAmount
	statsService := app.NewStatsService(st.quizzes, st.stats, st.users, st.achievements, st.cache, log.WithField("component", "stats"))
	rankings := app.NewRankingService(st.stats, st.users, st.cache, maxAmount, log.WithField("component", "ranking"))
	play := app.NewPlayService(st.sessions, st.quizzes, statsService, rankings, app.PlayConfig{
		Session: app.SessionConfig{
			CountdownSeconds: cfg.Quiz.CountdownSeconds,
			AdvanceDelay:     config.TTLDuration(cfg.Quiz.AdvanceDelay, 1500*time.Millisecond),
			DefaultTimeLimit: cfg.Quiz.DefaultTimeLimit,
		},
		FinishAmount: cfg.Ranking.FinishAmount,
	}, log.WithField("component", "play"))

	handler := transport.NewRouter(transport.NewWSHandler(play), transport.NewAPIHandler(rankings, statsService))

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: it would cut long-lived websocket sessions.
	}

	go func() {
		log.WithField("port", finalPort).Info("starting quizcraze")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("failed to start server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server...")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildStores(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*stores, error) {
	st := &stores{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		st.closers = append(st.closers, func() { _ = redisClient.Close() })
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var (
		pool *pgxpool.Pool
		db   *bun.DB
	)
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			st.close()
			return nil, err
		}
		st.closers = append(st.closers, pool.Close)
		db = openBun(cfg)
		st.closers = append(st.closers, func() { _ = db.Close() })
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzesByID())
	if pool != nil {
		loader = postgres.NewQuizLoader(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if redisClient != nil {
		st.quizzes = infraredis.NewQuizRepository(redisClient, loader, quizTTL)
		st.sessions = infraredis.NewSessionStore(redisClient, redisTTL)
	} else {
		st.quizzes = memory.NewQuizRepository(loader, quizTTL)
		st.sessions = memory.NewSessionStore()
	}

	if db != nil {
		st.stats = postgres.NewStatsStore(db)
		st.users = postgres.NewUserDirectory(db)
		st.achievements = postgres.NewAchievementStore(db)
	} else {
		log.Warn("postgres not configured; stats are kept in memory with sample users")
		st.stats = memory.NewStatsStore()
		st.users = memory.NewUserDirectory(sampleUsers()...)
		st.achievements = memory.NewAchievementStore(sampleAchievements()...)
	}

	cacheTTL := config.TTLDuration(cfg.Ranking.CacheTTL, time.Minute)
	if redisClient != nil {
		st.cache = infraredis.NewRankingCache(redisClient, cacheTTL)
	} else {
		st.cache = memory.NewRankingCache(cacheTTL)
	}
	return st, nil
}
