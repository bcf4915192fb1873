package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"quizcraze/internal/domain"
	"quizcraze/internal/ranking"
	"quizcraze/internal/scoring"
)

// Submission is the full result of storing an attempt.
type Submission struct {
	Stats           domain.UserQuizStats `json:"stats"`
	Status          domain.RetainStatus  `json:"status"`
	NewAchievements []domain.Achievement `json:"newAchievements,omitempty"`
}

// UserStatsReport is a user's retained stats and their aggregate.
type UserStatsReport struct {
	Stats   []domain.UserQuizStats `json:"stats"`
	Summary domain.StatsSummary    `json:"summary"`
}

// StatsService grades finished attempts authoritatively and keeps best-of-N stats.
type StatsService struct {
	quizzes      QuizRepository
	stats        StatsRepository
	users        UserDirectory
	achievements AchievementRepository
	cache        RankingCache
	now          func() time.Time
	log          logrus.FieldLogger
}

// NewStatsService wires the result gateway. achievements and cache may be nil.
func NewStatsService(quizzes QuizRepository, stats StatsRepository, users UserDirectory, achievements AchievementRepository, cache RankingCache, log logrus.FieldLogger) *StatsService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &StatsService{
		quizzes:      quizzes,
		stats:        stats,
		users:        users,
		achievements: achievements,
		cache:        cache,
		now:          time.Now,
		log:          log,
	}
}

// SubmitAttempt implements ResultGateway.
func (s *StatsService) SubmitAttempt(ctx context.Context, userID, quizID string, answers []domain.SubmittedAnswer) (domain.UserQuizStats, error) {
	sub, err := s.Submit(ctx, userID, quizID, answers)
	if err != nil {
		return domain.UserQuizStats{}, err
	}
	return sub.Stats, nil
}

// Submit grades the answers against the stored quiz, retains the better of the new
// and stored stats, and evaluates achievements when the retained record changed.
func (s *StatsService) Submit(ctx context.Context, userID, quizID string, answers []domain.SubmittedAnswer) (Submission, error) {
	log := s.log.WithFields(logrus.Fields{"user_id": userID, "quiz_id": quizID})

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return Submission{}, err
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return Submission{}, err
	}
	result, err := scoring.Grade(quiz, answers)
	if err != nil {
		return Submission{}, err
	}

	candidate := domain.UserQuizStats{
		ID:                       uuid.NewString(),
		UserID:                   userID,
		QuizID:                   quizID,
		CorrectAnswersCount:      result.CorrectCount,
		CorrectAnswersPercentage: result.Percentage,
		Score:                    result.Score,
		Timestamp:                s.now().UTC(),
	}
	retained, status, err := s.stats.SaveIfBetter(ctx, candidate)
	if err != nil {
		log.WithError(err).Error("failed to store stats")
		return Submission{}, fmt.Errorf("%w: %w", domain.ErrSubmissionFailed, err)
	}

	sub := Submission{Stats: retained, Status: status}
	if status == domain.StatsKept {
		log.WithField("score", result.Score).Info("previous score was better")
		return sub, nil
	}

	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			log.WithError(err).Warn("failed to invalidate ranking cache")
		}
	}

	granted, err := s.evaluateAchievements(ctx, user)
	if err != nil {
		// The stats are stored; achievements are re-evaluated on the next improvement.
		log.WithError(err).Warn("achievement evaluation failed")
	}
	sub.NewAchievements = granted

	log.WithFields(logrus.Fields{
		"score":  retained.Score,
		"status": status,
	}).Info("stats retained")
	return sub, nil
}

// UserStats returns the user's retained stats with their aggregate.
func (s *StatsService) UserStats(ctx context.Context, userID string) (UserStatsReport, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return UserStatsReport{}, err
	}
	stats, err := s.stats.ForUser(ctx, userID)
	if err != nil {
		return UserStatsReport{}, err
	}
	if stats == nil {
		stats = []domain.UserQuizStats{}
	}
	return UserStatsReport{Stats: stats, Summary: ranking.Aggregate(stats)}, nil
}

// UserAchievements lists the achievements a user has earned.
func (s *StatsService) UserAchievements(ctx context.Context, userID string) ([]domain.Achievement, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	if s.achievements == nil {
		return []domain.Achievement{}, nil
	}
	return s.achievements.Earned(ctx, userID)
}

func (s *StatsService) evaluateAchievements(ctx context.Context, user domain.User) ([]domain.Achievement, error) {
	if s.achievements == nil {
		return nil, nil
	}
	all, err := s.achievements.List(ctx)
	if err != nil {
		return nil, err
	}
	earned, err := s.achievements.Earned(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	stats, err := s.stats.ForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	granted := NewlyEarned(user, stats, all, earned)
	if len(granted) == 0 {
		return nil, nil
	}
	ids := make([]string, len(granted))
	for i, a := range granted {
		ids[i] = a.ID
	}
	if err := s.achievements.Grant(ctx, user.ID, ids); err != nil {
		return nil, err
	}
	return granted, nil
}

// NewlyEarned returns the achievements from all that the user now qualifies for
// and has not earned yet.
func NewlyEarned(user domain.User, stats []domain.UserQuizStats, all, earned []domain.Achievement) []domain.Achievement {
	have := make(map[string]struct{}, len(earned))
	for _, a := range earned {
		have[a.ID] = struct{}{}
	}

	var out []domain.Achievement
	for _, a := range all {
		if _, ok := have[a.ID]; ok {
			continue
		}
		if qualifies(a, user, stats) {
			out = append(out, a)
		}
	}
	return out
}

func qualifies(a domain.Achievement, user domain.User, stats []domain.UserQuizStats) bool {
	switch a.Criteria {
	case domain.QuizzesCompleted:
		return float64(len(stats)) >= a.TargetValue
	case domain.QuizzesCreated:
		return float64(user.QuizzesCreated) >= a.TargetValue
	case domain.Accuracy:
		if len(stats) == 0 {
			return false
		}
		return ranking.Aggregate(stats).AverageCorrectAnswersPercentage >= a.TargetValue
	default:
		return false
	}
}
