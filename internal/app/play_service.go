package app

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"quizcraze/internal/domain"
)

// PlayConfig configures the play use cases.
type PlayConfig struct {
	Session SessionConfig
	// FinishAmount is the leaderboard size fetched when a session finishes.
	FinishAmount int
	// FinishTimeout bounds the submission and leaderboard calls made on finish.
	FinishTimeout time.Duration
}

// PlayService drives play sessions on behalf of the presentation layer.
type PlayService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	results  ResultGateway
	rankings RankingSource
	cfg      PlayConfig
	log      logrus.FieldLogger
	newID    func() string
}

func NewPlayService(sessions SessionRepository, quizzes QuizRepository, results ResultGateway, rankings RankingSource, cfg PlayConfig, log logrus.FieldLogger) *PlayService {
	if cfg.FinishAmount <= 0 {
		cfg.FinishAmount = 10
	}
	if cfg.FinishTimeout <= 0 {
		cfg.FinishTimeout = 10 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PlayService{
		sessions: sessions,
		quizzes:  quizzes,
		results:  results,
		rankings: rankings,
		cfg:      cfg,
		log:      log,
		newID:    func() string { return uuid.NewString() },
	}
}

// StartSession loads the quiz and starts a new attempt in the countdown state.
func (s *PlayService) StartSession(ctx context.Context, userID, quizID string) (View, error) {
	session, err := s.start(ctx, userID, quizID)
	if err != nil {
		return View{}, err
	}
	return session.View(), nil
}

// Session returns a live session by id.
func (s *PlayService) Session(sessionID string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// CurrentView returns the snapshot of a live session.
func (s *PlayService) CurrentView(sessionID string) (View, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return View{}, err
	}
	return session.View(), nil
}

// SubmitAnswer forwards player input to the session.
func (s *PlayService) SubmitAnswer(sessionID string, values ...string) (View, error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return View{}, err
	}
	return session.SubmitAnswer(values...)
}

// Restart discards the session and starts a fresh attempt with a new question order.
func (s *PlayService) Restart(ctx context.Context, sessionID string) (View, error) {
	old, err := s.Session(sessionID)
	if err != nil {
		return View{}, err
	}
	s.Leave(sessionID)

	session, err := s.start(ctx, old.UserID(), old.QuizID())
	if err != nil {
		return View{}, err
	}
	return session.View(), nil
}

// Leave cancels the session's timers and forgets it.
func (s *PlayService) Leave(sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	session.Close()
	s.sessions.Delete(sessionID)
}

// Subscribe returns a channel that receives session views.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *PlayService) Subscribe(sessionID string) (<-chan View, func(), error) {
	session, err := s.Session(sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

func (s *PlayService) start(ctx context.Context, userID, quizID string) (*Session, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	session, err := NewSession(s.newID(), userID, quiz, s.cfg.Session, s.finish)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"quiz_id": quizID,
			"user_id": userID,
		}).Warn("refused to start session")
		return nil, err
	}
	s.sessions.Put(session)
	s.log.WithFields(logrus.Fields{
		"session_id": session.ID(),
		"quiz_id":    quizID,
		"user_id":    userID,
	}).Info("session started")
	return session, nil
}

// finish submits the attempt and fetches the quiz leaderboard concurrently.
// Neither call can change the finished attempt; failures are reported in the outcome.
func (s *PlayService) finish(session *Session, attempt Attempt) {
	log := s.log.WithFields(logrus.Fields{
		"session_id": attempt.SessionID,
		"quiz_id":    attempt.QuizID,
		"user_id":    attempt.UserID,
	})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.FinishTimeout)
		defer cancel()

		var outcome Outcome
		var g errgroup.Group
		g.Go(func() error {
			stats, err := s.results.SubmitAttempt(ctx, attempt.UserID, attempt.QuizID, attempt.Answers)
			if err != nil {
				log.WithError(err).Warn("attempt submission failed")
				outcome.SubmitErr = err
				return nil
			}
			outcome.Stats = &stats
			return nil
		})
		g.Go(func() error {
			entries, err := s.rankings.GetRanking(ctx, attempt.QuizID, s.cfg.FinishAmount)
			if err != nil {
				log.WithError(err).Warn("leaderboard fetch failed")
				outcome.LeaderboardErr = err
			}
			outcome.Leaderboard = entries
			return nil
		})
		_ = g.Wait()

		session.Complete(outcome)
		log.WithField("score", attempt.Score).Info("session finished")
	}()
}

// Heartbeat refreshes the session's liveness marker when the store keeps one.
func (s *PlayService) Heartbeat(ctx context.Context, sessionID string) error {
	if _, err := s.Session(sessionID); err != nil {
		return err
	}
	if t, ok := s.sessions.(interface {
		Touch(ctx context.Context, sessionID string) error
	}); ok {
		return t.Touch(ctx, sessionID)
	}
	return nil
}
