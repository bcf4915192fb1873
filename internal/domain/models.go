package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultTimeLimitSeconds applies to questions stored without a time limit.
const DefaultTimeLimitSeconds = 30

// QuestionType selects the evaluation rule of a question.
type QuestionType string

const (
	SingleChoice   QuestionType = "Single Choice"
	MultipleChoice QuestionType = "Multiple Choice"
	Open           QuestionType = "Open"
)

// Difficulty scales the stored score of an attempt.
type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// Answer is one answer option of a question. For Open questions it is the accepted text.
type Answer struct {
	Content   string `json:"content"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question models a quiz question of any supported type.
type Question struct {
	ID               string       `json:"id"`
	Type             QuestionType `json:"type"`
	Content          string       `json:"content"`
	Answers          []Answer     `json:"answers"`
	Hint             string       `json:"hint,omitempty"`
	TimeLimitSeconds int          `json:"timeLimitSeconds"` // defaults to 30 if zero
}

// TimeLimit returns the effective time limit in seconds.
func (q Question) TimeLimit() int {
	if q.TimeLimitSeconds == 0 {
		return DefaultTimeLimitSeconds
	}
	return q.TimeLimitSeconds
}

// CorrectAnswers lists the contents of the correct answers in question order.
func (q Question) CorrectAnswers() []string {
	out := make([]string, 0, len(q.Answers))
	for _, a := range q.Answers {
		if a.IsCorrect {
			out = append(out, a.Content)
		}
	}
	return out
}

// FindAnswer looks up an answer option by its content.
func (q Question) FindAnswer(content string) (Answer, bool) {
	for _, a := range q.Answers {
		if a.Content == content {
			return a, true
		}
	}
	return Answer{}, false
}

// Validate checks that the quiz has questions, that question ids are unique
// and that every question carries valid correctness data.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return ErrEmptyQuiz
	}
	ids := make(map[string]struct{}, len(q.Questions))
	for _, question := range q.Questions {
		if _, dup := ids[question.ID]; dup {
			return fmt.Errorf("%w: quiz %s repeats question id %s", ErrInvalidQuestion, q.ID, question.ID)
		}
		ids[question.ID] = struct{}{}
		if err := question.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the correctness data of the question.
func (q Question) Validate() error {
	if q.TimeLimitSeconds < 0 {
		return fmt.Errorf("%w: question %s has negative time limit", ErrInvalidQuestion, q.ID)
	}
	seen := make(map[string]struct{}, len(q.Answers))
	for _, a := range q.Answers {
		if _, dup := seen[a.Content]; dup {
			return fmt.Errorf("%w: question %s has duplicate answer %q", ErrInvalidQuestion, q.ID, a.Content)
		}
		seen[a.Content] = struct{}{}
	}

	correct := len(q.CorrectAnswers())
	switch q.Type {
	case SingleChoice:
		if correct != 1 {
			return fmt.Errorf("%w: single choice question %s has %d correct answers", ErrInvalidQuestion, q.ID, correct)
		}
	case MultipleChoice:
		if correct < 1 {
			return fmt.Errorf("%w: multiple choice question %s has no correct answer", ErrInvalidQuestion, q.ID)
		}
	case Open:
		if len(q.Answers) != 1 || correct != 1 {
			return fmt.Errorf("%w: open question %s needs exactly one accepted answer", ErrInvalidQuestion, q.ID)
		}
	default:
		return fmt.Errorf("%w: question %s has unknown type %q", ErrInvalidQuestion, q.ID, q.Type)
	}
	return nil
}

// NormalizeOpen folds free-text answers for comparison.
func NormalizeOpen(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Quiz is a collection of questions.
type Quiz struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Category   string     `json:"category"`
	Difficulty Difficulty `json:"difficulty"`
	Questions  []Question `json:"questions"`
}

// AnswerRecord is the immutable outcome of one question within a session.
type AnswerRecord struct {
	QuestionID       string   `json:"questionId"`
	SubmittedAnswers []string `json:"submittedAnswers"`
	TimeTakenSeconds int      `json:"timeTakenSeconds"`
	IsCorrect        bool     `json:"isCorrect"`
	IsTimeout        bool     `json:"isTimeout"`
}

// SubmittedAnswer is what a finished attempt sends for grading. Correctness is never included.
type SubmittedAnswer struct {
	QuestionID string   `json:"questionId"`
	Answers    []string `json:"answers"`
}

// UserQuizStats is the best-scoring attempt of a user on a quiz.
type UserQuizStats struct {
	ID                       string    `json:"id"`
	UserID                   string    `json:"userId"`
	QuizID                   string    `json:"quizId"`
	CorrectAnswersCount      int       `json:"correctAnswersCount"`
	CorrectAnswersPercentage float64   `json:"correctAnswersPercentage"`
	Score                    int       `json:"score"`
	Timestamp                time.Time `json:"timestamp"`
}

// StatsSummary aggregates a set of UserQuizStats.
type StatsSummary struct {
	AverageCorrectAnswersPercentage float64 `json:"averageCorrectAnswersPercentage"`
	TotalCorrectAnswers             int     `json:"totalCorrectAnswers"`
	AverageScore                    float64 `json:"averageScore"`
}

// User is the subset of account data the ranking needs.
type User struct {
	ID             string `json:"id"`
	Nickname       string `json:"nickname"`
	QuizzesCreated int    `json:"quizzesCreated"`
}

// UserWithStats pairs a user with their retained stats.
type UserWithStats struct {
	User  User
	Stats []UserQuizStats
}

// RankingEntry is a derived leaderboard row.
type RankingEntry struct {
	UserID                          string  `json:"userId"`
	Nickname                        string  `json:"nickname"`
	Rank                            int     `json:"rank"`
	AverageCorrectAnswersPercentage float64 `json:"averageCorrectAnswersPercentage"`
	TotalCorrectAnswers             int     `json:"totalCorrectAnswers"`
	AverageScore                    float64 `json:"averageScore"`
}

// AchievementCriteria names what an achievement measures.
type AchievementCriteria string

const (
	QuizzesCompleted AchievementCriteria = "quizzesCompleted"
	QuizzesCreated   AchievementCriteria = "quizzesCreated"
	Accuracy         AchievementCriteria = "accuracy"
)

// Achievement is a badge granted when a criteria reaches its target.
type Achievement struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Icon        string              `json:"icon"`
	Criteria    AchievementCriteria `json:"criteria"`
	TargetValue float64             `json:"targetValue"`
}

// RetainStatus tells what best-of-N retention did with a new attempt.
type RetainStatus string

const (
	StatsCreated  RetainStatus = "created"
	StatsImproved RetainStatus = "improved"
	StatsKept     RetainStatus = "kept"
)
