package app

import (
	"math"
	"math/rand"
	"strings"
	"sync"
	"time"

	"quizcraze/internal/clock"
	"quizcraze/internal/domain"
	"quizcraze/internal/scoring"
)

// State is the lifecycle phase of a play session.
type State string

const (
	StateCountdown State = "countdown"
	StatePlaying   State = "playing"
	StateFinished  State = "finished"
)

const (
	defaultCountdownSeconds = 5
	defaultAdvanceDelay     = 1500 * time.Millisecond
)

// SessionConfig tunes timing and randomness of a session.
type SessionConfig struct {
	CountdownSeconds int
	// AdvanceDelay keeps an answered question on screen before moving on. Zero advances at once.
	AdvanceDelay time.Duration
	// DefaultTimeLimit replaces a zero per-question time limit, in seconds.
	DefaultTimeLimit int
	Source           clock.Source
	Now              func() time.Time
	Shuffle          func([]domain.Question)
}

// DefaultSessionConfig mirrors the player-facing timings: 5 s countdown, 1.5 s answer display.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		CountdownSeconds: defaultCountdownSeconds,
		AdvanceDelay:     defaultAdvanceDelay,
	}
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.CountdownSeconds <= 0 {
		c.CountdownSeconds = defaultCountdownSeconds
	}
	if c.AdvanceDelay < 0 {
		c.AdvanceDelay = 0
	}
	if c.Source == nil {
		c.Source = clock.RealSource{}
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Shuffle == nil {
		c.Shuffle = func(qs []domain.Question) {
			rand.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
		}
	}
	return c
}

// Attempt is what a finished session hands to the result gateway.
type Attempt struct {
	SessionID string
	UserID    string
	QuizID    string
	Answers   []domain.SubmittedAnswer
	// Score and Percentage are computed locally for display only.
	Score      int
	Percentage float64
}

// Outcome collects the results of the finish side effects.
type Outcome struct {
	Stats            *domain.UserQuizStats `json:"stats,omitempty"`
	Leaderboard      []domain.RankingEntry `json:"leaderboard,omitempty"`
	SubmitError      string                `json:"submitError,omitempty"`
	LeaderboardError string                `json:"leaderboardError,omitempty"`

	SubmitErr      error `json:"-"`
	LeaderboardErr error `json:"-"`
}

// QuestionView is a question without its correctness data.
type QuestionView struct {
	ID               string              `json:"id"`
	Type             domain.QuestionType `json:"type"`
	Content          string              `json:"content"`
	Answers          []string            `json:"answers,omitempty"`
	Hint             string              `json:"hint,omitempty"`
	TimeLimitSeconds int                 `json:"timeLimitSeconds"`
}

// View is the snapshot the presentation layer renders.
type View struct {
	SessionID        string               `json:"sessionId"`
	QuizID           string               `json:"quizId"`
	State            State                `json:"state"`
	Question         *QuestionView        `json:"question,omitempty"`
	QuestionIndex    int                  `json:"questionIndex"`
	QuestionCount    int                  `json:"questionCount"`
	RemainingSeconds int                  `json:"remainingSeconds"`
	Score            int                  `json:"score"`
	Percentage       float64              `json:"percentage"`
	SelectedAnswers  []string             `json:"selectedAnswers"`
	Locked           bool                 `json:"locked"`
	LastAnswer       *domain.AnswerRecord `json:"lastAnswer,omitempty"`
	Outcome          *Outcome             `json:"outcome,omitempty"`
}

// FinishFunc is invoked once, with the session lock held, when a session enters Finished.
// It must not block; results are delivered later through Session.Complete.
type FinishFunc func(s *Session, attempt Attempt)

// Session is one player's attempt at one quiz. Every input (clock tick, timeout,
// submission, deferred advance) is processed to completion under mu.
type Session struct {
	id        string
	userID    string
	quizID    string
	questions []domain.Question
	cfg       SessionConfig
	clock     *clock.Clock
	onFinish  FinishFunc

	mu            sync.Mutex
	state         State
	index         int
	remaining     int
	score         int
	answerLog     []domain.AnswerRecord
	selected      []string
	locked        bool
	questionStart time.Time
	advanceGen    uint64
	stopAdvance   func()
	closed        bool
	outcome       *Outcome
	done          chan struct{}
	subscribers   map[chan View]struct{}
}

// NewSession validates the quiz, freezes a shuffled question order and starts the countdown.
// It refuses quizzes without questions (ErrEmptyQuiz) or with malformed questions (ErrInvalidQuestion).
func NewSession(id, userID string, quiz domain.Quiz, cfg SessionConfig, onFinish FinishFunc) (*Session, error) {
	if err := quiz.Validate(); err != nil {
		return nil, err
	}

	cfg = cfg.withDefaults()
	questions := make([]domain.Question, len(quiz.Questions))
	copy(questions, quiz.Questions)
	if cfg.DefaultTimeLimit > 0 {
		for i := range questions {
			if questions[i].TimeLimitSeconds == 0 {
				questions[i].TimeLimitSeconds = cfg.DefaultTimeLimit
			}
		}
	}
	cfg.Shuffle(questions)

	s := &Session{
		id:          id,
		userID:      userID,
		quizID:      quiz.ID,
		questions:   questions,
		cfg:         cfg,
		clock:       clock.New(cfg.Source),
		onFinish:    onFinish,
		state:       StateCountdown,
		remaining:   cfg.CountdownSeconds,
		done:        make(chan struct{}),
		subscribers: make(map[chan View]struct{}),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.clock.Start(cfg.CountdownSeconds, s.onCountdownTick, s.onCountdownZero); err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// UserID returns the player id.
func (s *Session) UserID() string { return s.userID }

// QuizID returns the quiz id.
func (s *Session) QuizID() string { return s.quizID }

// Questions returns the frozen question order.
func (s *Session) Questions() []domain.Question {
	out := make([]domain.Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// AnswerLog returns a copy of the answer records written so far.
func (s *Session) AnswerLog() []domain.AnswerRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AnswerRecord, len(s.answerLog))
	copy(out, s.answerLog)
	return out
}

// Done is closed once the finish side effects have reported back.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// View returns the current snapshot.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// SubmitAnswer applies player input to the current question.
//
// Open questions take the typed text, single choice questions take the chosen
// answer, and multiple choice questions toggle each value in order until the
// question locks. Input outside Playing or on a locked question is ignored.
func (s *Session) SubmitAnswer(values ...string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return View{}, domain.ErrSessionNotFound
	}
	if s.state != StatePlaying || s.locked || len(values) == 0 {
		return s.viewLocked(), nil
	}

	q := s.questions[s.index]
	switch q.Type {
	case domain.Open:
		text := strings.TrimSpace(values[0])
		s.selected = []string{text}
		s.lockLocked(scoring.CheckOpen(q, text), []string{text})
	case domain.SingleChoice:
		correct, err := scoring.CheckChoice(q, values[0])
		if err != nil {
			return s.viewLocked(), err
		}
		s.selected = []string{values[0]}
		s.lockLocked(correct, []string{values[0]})
	case domain.MultipleChoice:
		for _, v := range values {
			if err := s.toggleLocked(q, v); err != nil {
				s.broadcastLocked()
				return s.viewLocked(), err
			}
			if s.locked {
				break
			}
		}
	}
	return s.broadcastLocked(), nil
}

// Close cancels the clock and any deferred advance and detaches subscribers.
// A closed session ignores every further event.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.clock.Cancel()
	s.cancelAdvanceLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Complete records the finish outcome. Only the first call has an effect.
func (s *Session) Complete(outcome Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome != nil {
		return
	}
	if outcome.SubmitErr != nil {
		outcome.SubmitError = outcome.SubmitErr.Error()
	}
	if outcome.LeaderboardErr != nil {
		outcome.LeaderboardError = outcome.LeaderboardErr.Error()
	}
	s.outcome = &outcome
	close(s.done)
	s.broadcastLocked()
}

// Subscribe returns a channel that receives a view after every event.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *Session) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.viewLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) onCountdownTick(remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateCountdown {
		return
	}
	s.remaining = remaining
	s.broadcastLocked()
}

func (s *Session) onCountdownZero() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StateCountdown {
		return
	}
	s.state = StatePlaying
	s.index = 0
	s.beginQuestionLocked()
	s.broadcastLocked()
}

func (s *Session) onQuestionTick(index, remaining int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acceptsLocked(index) {
		return
	}
	s.remaining = remaining
	s.broadcastLocked()
}

func (s *Session) onTimeout(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acceptsLocked(index) {
		return
	}
	q := s.questions[s.index]
	s.locked = true
	s.remaining = 0
	s.selected = nil
	s.answerLog = append(s.answerLog, domain.AnswerRecord{
		QuestionID:       q.ID,
		SubmittedAnswers: []string{},
		TimeTakenSeconds: q.TimeLimit(),
		IsCorrect:        false,
		IsTimeout:        true,
	})
	s.advanceLocked()
	s.broadcastLocked()
}

func (s *Session) onDeferredAdvance(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StatePlaying || gen != s.advanceGen {
		return
	}
	s.stopAdvance = nil
	s.advanceLocked()
	s.broadcastLocked()
}

// acceptsLocked filters clock events that belong to an earlier question or session phase.
func (s *Session) acceptsLocked(index int) bool {
	return !s.closed && s.state == StatePlaying && s.index == index && !s.locked
}

func (s *Session) toggleLocked(q domain.Question, value string) error {
	correct, err := scoring.CheckChoice(q, value)
	if err != nil {
		return err
	}
	if !correct {
		// Any wrong pick fails the question.
		s.selected = []string{value}
		s.lockLocked(false, []string{value})
		return nil
	}

	if i := indexOf(s.selected, value); i >= 0 {
		s.selected = append(s.selected[:i:i], s.selected[i+1:]...)
	} else {
		s.selected = append(s.selected, value)
	}
	if scoring.SameSet(s.selected, q.CorrectAnswers()) {
		submitted := make([]string, len(s.selected))
		copy(submitted, s.selected)
		s.lockLocked(true, submitted)
	}
	return nil
}

func (s *Session) lockLocked(correct bool, submitted []string) {
	q := s.questions[s.index]
	s.locked = true
	s.clock.Cancel()
	if correct {
		s.score++
	}
	s.answerLog = append(s.answerLog, domain.AnswerRecord{
		QuestionID:       q.ID,
		SubmittedAnswers: submitted,
		TimeTakenSeconds: s.elapsedLocked(q),
		IsCorrect:        correct,
	})

	if s.cfg.AdvanceDelay <= 0 {
		s.advanceLocked()
		return
	}
	s.cancelAdvanceLocked()
	gen := s.advanceGen
	s.stopAdvance = s.cfg.Source.After(s.cfg.AdvanceDelay, func() { s.onDeferredAdvance(gen) })
}

func (s *Session) elapsedLocked(q domain.Question) int {
	taken := int(math.Round(s.cfg.Now().Sub(s.questionStart).Seconds()))
	if taken < 0 {
		return 0
	}
	if limit := q.TimeLimit(); taken > limit {
		return limit
	}
	return taken
}

func (s *Session) cancelAdvanceLocked() {
	s.advanceGen++
	if s.stopAdvance != nil {
		s.stopAdvance()
		s.stopAdvance = nil
	}
}

func (s *Session) advanceLocked() {
	if s.index+1 >= len(s.questions) {
		s.finishLocked()
		return
	}
	s.index++
	s.beginQuestionLocked()
}

func (s *Session) beginQuestionLocked() {
	q := s.questions[s.index]
	index := s.index
	s.selected = nil
	s.locked = false
	s.remaining = q.TimeLimit()
	s.questionStart = s.cfg.Now()
	// Time limits are validated when the session is built, so Start cannot fail here.
	_ = s.clock.Start(q.TimeLimit(),
		func(remaining int) { s.onQuestionTick(index, remaining) },
		func() { s.onTimeout(index) },
	)
}

func (s *Session) finishLocked() {
	s.state = StateFinished
	s.clock.Cancel()
	s.cancelAdvanceLocked()
	s.remaining = 0
	s.selected = nil
	s.locked = true

	answers := make([]domain.SubmittedAnswer, len(s.answerLog))
	for i, rec := range s.answerLog {
		submitted := make([]string, len(rec.SubmittedAnswers))
		copy(submitted, rec.SubmittedAnswers)
		answers[i] = domain.SubmittedAnswer{QuestionID: rec.QuestionID, Answers: submitted}
	}
	attempt := Attempt{
		SessionID:  s.id,
		UserID:     s.userID,
		QuizID:     s.quizID,
		Answers:    answers,
		Score:      s.score,
		Percentage: scoring.Percentage(s.score, len(s.questions)),
	}
	if s.onFinish != nil {
		s.onFinish(s, attempt)
	}
}

func (s *Session) viewLocked() View {
	v := View{
		SessionID:        s.id,
		QuizID:           s.quizID,
		State:            s.state,
		QuestionIndex:    s.index,
		QuestionCount:    len(s.questions),
		RemainingSeconds: s.remaining,
		Score:            s.score,
		Percentage:       scoring.Percentage(s.score, len(s.questions)),
		SelectedAnswers:  append([]string{}, s.selected...),
		Locked:           s.locked,
	}
	if s.state == StatePlaying {
		v.Question = questionView(s.questions[s.index])
	}
	if n := len(s.answerLog); n > 0 {
		last := s.answerLog[n-1]
		v.LastAnswer = &last
	}
	if s.outcome != nil {
		o := *s.outcome
		v.Outcome = &o
	}
	return v
}

func (s *Session) broadcastLocked() View {
	v := s.viewLocked()
	for ch := range s.subscribers {
		select {
		case ch <- v:
		default:
			// Drop the stale view so a slow reader never blocks the session.
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
	return v
}

func questionView(q domain.Question) *QuestionView {
	qv := &QuestionView{
		ID:               q.ID,
		Type:             q.Type,
		Content:          q.Content,
		Hint:             q.Hint,
		TimeLimitSeconds: q.TimeLimit(),
	}
	if q.Type != domain.Open {
		qv.Answers = make([]string, len(q.Answers))
		for i, a := range q.Answers {
			qv.Answers[i] = a.Content
		}
	}
	return qv
}

func indexOf(values []string, v string) int {
	for i, x := range values {
		if x == v {
			return i
		}
	}
	return -1
}
