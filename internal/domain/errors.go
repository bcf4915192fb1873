package domain

import "errors"

var (
	// ErrEmptyQuiz is returned when a session is started for a quiz without questions.
	ErrEmptyQuiz = errors.New("quiz has no questions")
	// ErrInvalidQuestion indicates malformed correctness data on a question.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrInvalidDuration is returned by the session clock for countdowns shorter than one second.
	ErrInvalidDuration = errors.New("countdown duration must be at least one second")
	// ErrSubmissionFailed wraps persistence errors raised while storing a finished attempt.
	ErrSubmissionFailed = errors.New("attempt submission failed")
	// ErrStaleRankingRead marks a ranking served from the last known snapshot. Not fatal.
	ErrStaleRankingRead = errors.New("ranking served from a stale snapshot")

	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrSessionNotFound is returned when a play session does not exist (or was discarded).
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrUserNotFound is returned when the user directory has no such user.
	ErrUserNotFound = errors.New("user not found")
	// ErrUnknownAnswer indicates a submitted choice is not one of the question's answers.
	ErrUnknownAnswer = errors.New("answer not found")
	// ErrInvalidAttempt indicates an attempt payload that does not cover the quiz questions.
	ErrInvalidAttempt = errors.New("invalid attempt")
	// ErrInvalidAmount is returned for ranking requests with amount < 1.
	ErrInvalidAmount = errors.New("ranking amount must be positive")
)
