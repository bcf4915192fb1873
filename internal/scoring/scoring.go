// Package scoring holds the answer evaluation rules and the authoritative score formula.
package scoring

import (
	"fmt"
	"math"

	"quizcraze/internal/domain"
)

var multipliers = map[domain.Difficulty]float64{
	domain.Easy:   1,
	domain.Medium: 1.5,
	domain.Hard:   2,
}

// Multiplier returns the difficulty weight. Unknown difficulties weigh like Easy.
func Multiplier(d domain.Difficulty) float64 {
	if m, ok := multipliers[d]; ok {
		return m
	}
	return 1
}

// Percentage is 100 * correct / total, or 0 for an empty quiz.
func Percentage(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return 100 * float64(correct) / float64(total)
}

// Score weights a correct-answer percentage by difficulty and rounds half away from zero.
func Score(percentage float64, d domain.Difficulty) int {
	return int(math.Round(percentage * Multiplier(d)))
}

// CheckOpen compares free text against the accepted answer, ignoring case and surrounding space.
func CheckOpen(q domain.Question, text string) bool {
	if len(q.Answers) == 0 {
		return false
	}
	return domain.NormalizeOpen(text) == domain.NormalizeOpen(q.Answers[0].Content)
}

// CheckChoice reports whether the chosen answer is marked correct.
func CheckChoice(q domain.Question, content string) (bool, error) {
	a, ok := q.FindAnswer(content)
	if !ok {
		return false, fmt.Errorf("%w: %q on question %s", domain.ErrUnknownAnswer, content, q.ID)
	}
	return a.IsCorrect, nil
}

// SameSet reports whether a and b hold the same distinct members and the same count.
func SameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, v := range a {
		set[v] = struct{}{}
	}
	if len(set) != len(a) {
		return false
	}
	for _, v := range b {
		if _, ok := set[v]; !ok {
			return false
		}
	}
	return true
}

// IsCorrect grades one stored answer. Multiple choice needs the exact correct set;
// the other types need the single submitted value to be an accepted answer.
func IsCorrect(q domain.Question, submitted []string) bool {
	switch q.Type {
	case domain.MultipleChoice:
		return SameSet(submitted, q.CorrectAnswers())
	case domain.Open:
		return len(submitted) == 1 && CheckOpen(q, submitted[0])
	default:
		if len(submitted) != 1 {
			return false
		}
		for _, c := range q.CorrectAnswers() {
			if c == submitted[0] {
				return true
			}
		}
		return false
	}
}

// Result is the graded outcome of a full attempt.
type Result struct {
	CorrectCount int
	Total        int
	Percentage   float64
	Score        int
}

// Grade matches answers to questions by id and computes the stored statistics.
// The quiz must be valid and every question answered exactly once; timeouts are sent with no answers.
func Grade(quiz domain.Quiz, answers []domain.SubmittedAnswer) (Result, error) {
	if err := quiz.Validate(); err != nil {
		return Result{}, err
	}
	total := len(quiz.Questions)
	if len(answers) != total {
		return Result{}, fmt.Errorf("%w: got %d answers for %d questions", domain.ErrInvalidAttempt, len(answers), total)
	}

	byID := make(map[string][]string, total)
	for _, a := range answers {
		if _, dup := byID[a.QuestionID]; dup {
			return Result{}, fmt.Errorf("%w: question %s answered twice", domain.ErrInvalidAttempt, a.QuestionID)
		}
		byID[a.QuestionID] = a.Answers
	}

	correct := 0
	for _, q := range quiz.Questions {
		submitted, ok := byID[q.ID]
		if !ok {
			return Result{}, fmt.Errorf("%w: question %s not answered", domain.ErrInvalidAttempt, q.ID)
		}
		if IsCorrect(q, submitted) {
			correct++
		}
	}

	pct := Percentage(correct, total)
	return Result{
		CorrectCount: correct,
		Total:        total,
		Percentage:   pct,
		Score:        Score(pct, quiz.Difficulty),
	}, nil
}
