package app_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizcraze/internal/app"
	"quizcraze/internal/clock"
	"quizcraze/internal/domain"
)

func keepOrder([]domain.Question) {}

func singleQ(id string, limit int) domain.Question {
	return domain.Question{
		ID:               id,
		Type:             domain.SingleChoice,
		Content:          "What is 2 + 2?",
		TimeLimitSeconds: limit,
		Answers: []domain.Answer{
			{Content: "3"},
			{Content: "4", IsCorrect: true},
			{Content: "5"},
		},
	}
}

func multiQ(id string) domain.Question {
	return domain.Question{
		ID:      id,
		Type:    domain.MultipleChoice,
		Content: "Pick the primes",
		Answers: []domain.Answer{
			{Content: "2", IsCorrect: true},
			{Content: "3", IsCorrect: true},
			{Content: "4"},
			{Content: "5", IsCorrect: true},
		},
	}
}

func openQ(id string) domain.Question {
	return domain.Question{
		ID:      id,
		Type:    domain.Open,
		Content: "Capital of Poland?",
		Hint:    "Vistula",
		Answers: []domain.Answer{{Content: "Warsaw", IsCorrect: true}},
	}
}

type harness struct {
	src      *clock.ManualSource
	session  *app.Session
	attempts []app.Attempt
}

func newHarness(t *testing.T, delay time.Duration, questions ...domain.Question) *harness {
	t.Helper()
	h := &harness{src: clock.NewManualSource()}
	cfg := app.SessionConfig{
		CountdownSeconds: 5,
		AdvanceDelay:     delay,
		Source:           h.src,
		Now:              func() time.Time { return time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC) },
		Shuffle:          keepOrder,
	}
	quiz := domain.Quiz{ID: "quiz-1", Difficulty: domain.Easy, Questions: questions}
	session, err := app.NewSession("s1", "u1", quiz, cfg, func(_ *app.Session, a app.Attempt) {
		h.attempts = append(h.attempts, a)
	})
	require.NoError(t, err)
	h.session = session
	return h
}

func (h *harness) play(t *testing.T) {
	t.Helper()
	h.src.TickN(5)
	require.Equal(t, app.StatePlaying, h.session.View().State)
}

func TestCountdownEntersPlaying(t *testing.T) {
	h := newHarness(t, 0, singleQ("q1", 12))

	v := h.session.View()
	assert.Equal(t, app.StateCountdown, v.State)
	assert.Equal(t, 5, v.RemainingSeconds)
	assert.Nil(t, v.Question)

	h.src.TickN(4)
	v = h.session.View()
	assert.Equal(t, app.StateCountdown, v.State)
	assert.Equal(t, 1, v.RemainingSeconds)

	h.src.Tick()
	v = h.session.View()
	assert.Equal(t, app.StatePlaying, v.State)
	assert.Equal(t, 0, v.QuestionIndex)
	assert.Equal(t, 12, v.RemainingSeconds)
	require.NotNil(t, v.Question)
	assert.Equal(t, []string{"3", "4", "5"}, v.Question.Answers)
}

func TestSubmitIgnoredDuringCountdown(t *testing.T) {
	h := newHarness(t, 0, singleQ("q1", 0))
	v, err := h.session.SubmitAnswer("4")
	require.NoError(t, err)
	assert.Equal(t, app.StateCountdown, v.State)
	assert.Empty(t, h.session.AnswerLog())
}

func TestSingleChoiceCorrectness(t *testing.T) {
	for _, answer := range singleQ("q1", 0).Answers {
		t.Run(answer.Content, func(t *testing.T) {
			h := newHarness(t, 0, singleQ("q1", 0), singleQ("q2", 0))
			h.play(t)

			v, err := h.session.SubmitAnswer(answer.Content)
			require.NoError(t, err)
			log := h.session.AnswerLog()
			require.Len(t, log, 1)
			assert.Equal(t, answer.IsCorrect, log[0].IsCorrect)
			assert.Equal(t, []string{answer.Content}, log[0].SubmittedAnswers)
			assert.False(t, log[0].IsTimeout)
			assert.Equal(t, 1, v.QuestionIndex)
			if answer.IsCorrect {
				assert.Equal(t, 1, v.Score)
			} else {
				assert.Equal(t, 0, v.Score)
			}
		})
	}
}

func TestSingleChoiceUnknownAnswerDoesNotLock(t *testing.T) {
	h := newHarness(t, 0, singleQ("q1", 0))
	h.play(t)

	v, err := h.session.SubmitAnswer("42")
	assert.ErrorIs(t, err, domain.ErrUnknownAnswer)
	assert.False(t, v.Locked)
	assert.Empty(t, h.session.AnswerLog())
}

func TestMultipleChoiceProperSubsetNeverLocks(t *testing.T) {
	h := newHarness(t, 0, multiQ("q1"))
	h.play(t)

	for _, v := range []string{"2", "3", "3", "5", "2", "3"} {
		view, err := h.session.SubmitAnswer(v)
		require.NoError(t, err)
		assert.False(t, view.Locked, "selection %v must not lock", view.SelectedAnswers)
	}
	assert.ElementsMatch(t, []string{"5", "3"}, h.session.View().SelectedAnswers)
	assert.Empty(t, h.session.AnswerLog())
}

func TestMultipleChoiceExactSetLocksCorrect(t *testing.T) {
	orders := [][]string{{"2", "3", "5"}, {"5", "3", "2"}, {"3", "5", "2"}}
	for _, order := range orders {
		h := newHarness(t, time.Second, multiQ("q1"), singleQ("q2", 0))
		h.play(t)

		var view app.View
		for _, v := range order {
			var err error
			view, err = h.session.SubmitAnswer(v)
			require.NoError(t, err)
		}
		assert.True(t, view.Locked)
		assert.Equal(t, 1, view.Score)
		log := h.session.AnswerLog()
		require.Len(t, log, 1)
		assert.True(t, log[0].IsCorrect)
		assert.Equal(t, order, log[0].SubmittedAnswers)
	}
}

func TestMultipleChoiceWrongPickLocksIncorrect(t *testing.T) {
	h := newHarness(t, time.Second, multiQ("q1"), singleQ("q2", 0))
	h.play(t)

	_, err := h.session.SubmitAnswer("2")
	require.NoError(t, err)
	view, err := h.session.SubmitAnswer("4")
	require.NoError(t, err)

	assert.True(t, view.Locked)
	assert.Equal(t, 0, view.Score)
	log := h.session.AnswerLog()
	require.Len(t, log, 1)
	assert.False(t, log[0].IsCorrect)
	assert.Equal(t, []string{"4"}, log[0].SubmittedAnswers)
}

func TestMultipleChoiceValuesInOneCallStopAtLock(t *testing.T) {
	h := newHarness(t, time.Second, multiQ("q1"), singleQ("q2", 0))
	h.play(t)

	view, err := h.session.SubmitAnswer("2", "4", "3", "5")
	require.NoError(t, err)
	assert.True(t, view.Locked)
	log := h.session.AnswerLog()
	require.Len(t, log, 1)
	assert.Equal(t, []string{"4"}, log[0].SubmittedAnswers)
}

func TestOpenAnswerIsTrimmedAndCaseInsensitive(t *testing.T) {
	h := newHarness(t, 0, openQ("q1"), openQ("q2"))
	h.play(t)

	assert.Nil(t, h.session.View().Question.Answers, "open questions do not reveal the accepted text")
	assert.Equal(t, "Vistula", h.session.View().Question.Hint)

	_, err := h.session.SubmitAnswer("  wArSaW ")
	require.NoError(t, err)
	_, err = h.session.SubmitAnswer("Krakow")
	require.NoError(t, err)

	log := h.session.AnswerLog()
	require.Len(t, log, 2)
	assert.True(t, log[0].IsCorrect)
	assert.Equal(t, []string{"wArSaW"}, log[0].SubmittedAnswers)
	assert.False(t, log[1].IsCorrect)
	assert.Equal(t, app.StateFinished, h.session.View().State)
}

func TestSubmitOnLockedQuestionIsNoop(t *testing.T) {
	h := newHarness(t, 1500*time.Millisecond, singleQ("q1", 5), singleQ("q2", 5))
	h.play(t)

	_, err := h.session.SubmitAnswer("3")
	require.NoError(t, err)
	before := h.session.AnswerLog()

	view, err := h.session.SubmitAnswer("4")
	require.NoError(t, err)
	assert.True(t, view.Locked)
	assert.Equal(t, before, h.session.AnswerLog())

	// The locked question's timer no longer fires.
	h.src.TickN(10)
	assert.Equal(t, before, h.session.AnswerLog())
	assert.Equal(t, 0, h.session.View().QuestionIndex)

	require.Equal(t, 1, h.src.Pending())
	h.src.Flush()
	view = h.session.View()
	assert.Equal(t, 1, view.QuestionIndex)
	assert.False(t, view.Locked)
	assert.Empty(t, view.SelectedAnswers)
	assert.Equal(t, 5, view.RemainingSeconds)
}

func TestTimeoutRecordsAndAdvances(t *testing.T) {
	h := newHarness(t, time.Second, singleQ("q1", 5), singleQ("q2", 7))
	h.play(t)

	h.src.TickN(4)
	assert.Equal(t, 1, h.session.View().RemainingSeconds)
	assert.Empty(t, h.session.AnswerLog())

	h.src.Tick()
	log := h.session.AnswerLog()
	require.Len(t, log, 1)
	assert.Equal(t, domain.AnswerRecord{
		QuestionID:       "q1",
		SubmittedAnswers: []string{},
		TimeTakenSeconds: 5,
		IsCorrect:        false,
		IsTimeout:        true,
	}, log[0])

	v := h.session.View()
	assert.Equal(t, 1, v.QuestionIndex)
	assert.Equal(t, 7, v.RemainingSeconds)
	assert.Equal(t, 0, h.src.Pending(), "timeouts advance without the display delay")
}

func TestTimeoutDiscardsPartialSelection(t *testing.T) {
	h := newHarness(t, 0, domain.Question{
		ID: "q1", Type: domain.MultipleChoice, TimeLimitSeconds: 2,
		Answers: []domain.Answer{{Content: "a", IsCorrect: true}, {Content: "b", IsCorrect: true}},
	})
	h.play(t)

	_, err := h.session.SubmitAnswer("a")
	require.NoError(t, err)
	h.src.TickN(2)

	log := h.session.AnswerLog()
	require.Len(t, log, 1)
	assert.True(t, log[0].IsTimeout)
	assert.Empty(t, log[0].SubmittedAnswers)
	assert.Equal(t, app.StateFinished, h.session.View().State)
}

func TestFinishedSessionHasOneRecordPerQuestionInOrder(t *testing.T) {
	h := newHarness(t, 0, singleQ("q1", 3), multiQ("q2"), openQ("q3"), singleQ("q4", 2))
	h.play(t)

	_, err := h.session.SubmitAnswer("4")
	require.NoError(t, err)
	_, err = h.session.SubmitAnswer("5", "2", "3")
	require.NoError(t, err)
	h.src.TickN(30) // q3 times out
	_, err = h.session.SubmitAnswer("3")
	require.NoError(t, err)

	v := h.session.View()
	assert.Equal(t, app.StateFinished, v.State)
	assert.Equal(t, 2, v.Score)
	assert.InDelta(t, 50, v.Percentage, 1e-9)
	assert.Nil(t, v.Question)

	log := h.session.AnswerLog()
	require.Len(t, log, 4)
	ids := make([]string, len(log))
	for i, rec := range log {
		ids[i] = rec.QuestionID
	}
	assert.Equal(t, []string{"q1", "q2", "q3", "q4"}, ids)
	assert.True(t, log[2].IsTimeout)

	require.Len(t, h.attempts, 1, "finish side effects run exactly once")
	assert.Equal(t, []domain.SubmittedAnswer{
		{QuestionID: "q1", Answers: []string{"4"}},
		{QuestionID: "q2", Answers: []string{"5", "2", "3"}},
		{QuestionID: "q3", Answers: []string{}},
		{QuestionID: "q4", Answers: []string{"3"}},
	}, h.attempts[0].Answers)

	_, err = h.session.SubmitAnswer("4")
	require.NoError(t, err)
	h.src.TickN(5)
	assert.Len(t, h.session.AnswerLog(), 4)
	assert.Len(t, h.attempts, 1)
}

func TestNewSessionRefusesBadQuizzes(t *testing.T) {
	cfg := app.SessionConfig{Source: clock.NewManualSource()}

	_, err := app.NewSession("s1", "u1", domain.Quiz{ID: "empty"}, cfg, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyQuiz)

	bad := singleQ("q2", 0)
	bad.Answers[0].IsCorrect = true
	_, err = app.NewSession("s1", "u1", domain.Quiz{ID: "bad", Questions: []domain.Question{singleQ("q1", 0), bad}}, cfg, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidQuestion)

	_, err = app.NewSession("s1", "u1", domain.Quiz{ID: "dup", Questions: []domain.Question{singleQ("dup", 0), singleQ("dup", 0)}}, cfg, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidQuestion)
	assert.Zero(t, cfg.Source.(*clock.ManualSource).Active(), "refused quizzes start no clock")
}

func TestShuffleIsFrozenAtStart(t *testing.T) {
	src := clock.NewManualSource()
	reverse := func(qs []domain.Question) {
		for i, j := 0, len(qs)-1; i < j; i, j = i+1, j-1 {
			qs[i], qs[j] = qs[j], qs[i]
		}
	}
	quiz := domain.Quiz{ID: "quiz-1", Questions: []domain.Question{singleQ("q1", 0), singleQ("q2", 0), singleQ("q3", 0)}}
	session, err := app.NewSession("s1", "u1", quiz, app.SessionConfig{Source: src, Shuffle: reverse}, nil)
	require.NoError(t, err)

	order := session.Questions()
	assert.Equal(t, "q3", order[0].ID)
	assert.Equal(t, "q1", order[2].ID)
	assert.Equal(t, "q1", quiz.Questions[0].ID, "quiz passed in is not mutated")

	src.TickN(5)
	assert.Equal(t, "q3", session.View().Question.ID)
}

func TestCloseCancelsTimers(t *testing.T) {
	h := newHarness(t, time.Second, singleQ("q1", 5), singleQ("q2", 5))
	h.play(t)
	_, err := h.session.SubmitAnswer("4")
	require.NoError(t, err)
	require.Equal(t, 1, h.src.Pending())

	h.session.Close()
	assert.Equal(t, 0, h.src.Active())
	assert.Equal(t, 0, h.src.Pending())

	h.src.TickN(10)
	h.src.Flush()
	assert.Equal(t, 0, h.session.View().QuestionIndex)

	_, err = h.session.SubmitAnswer("4")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSubscribersReceiveViews(t *testing.T) {
	h := newHarness(t, 0, singleQ("q1", 0))
	ch, cancel := h.session.Subscribe()
	defer cancel()

	initial := <-ch
	assert.Equal(t, app.StateCountdown, initial.State)

	h.src.Tick()
	update := <-ch
	assert.Equal(t, 4, update.RemainingSeconds)

	h.session.Complete(app.Outcome{Leaderboard: []domain.RankingEntry{{UserID: "u1", Rank: 1}}})
	<-h.session.Done()
	final := <-ch
	require.NotNil(t, final.Outcome)
	assert.Len(t, final.Outcome.Leaderboard, 1)
}
