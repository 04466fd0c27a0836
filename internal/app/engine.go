package app

import (
	"math/rand"
	"sync"
	"time"

	"timed-quiz-service/internal/clock"
	"timed-quiz-service/internal/domain"
)

// State is the lifecycle phase of a session.
type State string

const (
	StateUnavailable State = "unavailable"
	StateCounting    State = "counting"
	StateStarting    State = "starting"
	StateActive      State = "active"
	StateRevealing   State = "revealing"
	StateComplete    State = "complete"
	StateClosed      State = "closed"
)

// Feedback is shown while a session is revealing.
type Feedback string

const (
	FeedbackNone      Feedback = ""
	FeedbackCorrect   Feedback = "correct"
	FeedbackIncorrect Feedback = "incorrect"
	FeedbackReveal    Feedback = "reveal"
)

// Timing holds every delay of a session, counted in Units.
type Timing struct {
	Unit           time.Duration
	Countdown      int
	StartDelay     int
	QuestionBudget int
	RevealDelay    int
	ReviewBudget   int
	// Retain keeps a completed session around for late readers.
	Retain int
	// Idle closes a review session stuck waiting for a manual advance.
	Idle int
}

// DefaultTiming returns the stock pacing: 3-2-1, "go", 12 per question, 1 to reveal, 5 per review card.
func DefaultTiming() Timing {
	return Timing{
		Unit:           time.Second,
		Countdown:      3,
		StartDelay:     1,
		QuestionBudget: 12,
		RevealDelay:    1,
		ReviewBudget:   5,
		Retain:         300,
		Idle:           600,
	}
}

// Mode is the capability set that distinguishes a scored quiz from a review pass.
type Mode struct {
	Kind           string
	AcceptsInput   bool
	Scoring        bool
	Shuffle        bool
	ManualAdvance  bool
	QuestionBudget int
	RevealDelay    int
}

const (
	KindQuiz   = "quiz"
	KindReview = "review"
)

// QuizMode answers under a countdown, scores, and moves on by itself after the reveal pause.
func QuizMode(t Timing) Mode {
	return Mode{
		Kind:           KindQuiz,
		AcceptsInput:   true,
		Scoring:        true,
		Shuffle:        true,
		QuestionBudget: t.QuestionBudget,
		RevealDelay:    t.RevealDelay,
	}
}

// ReviewMode shows each missed question for a fixed budget, then reveals the
// answer and waits for Next.
func ReviewMode(t Timing) Mode {
	return Mode{
		Kind:           KindReview,
		ManualAdvance:  true,
		QuestionBudget: t.ReviewBudget,
		RevealDelay:    t.RevealDelay,
	}
}

// Outcome is handed to the completion hook once a session reaches StateComplete.
type Outcome struct {
	SessionID string
	Kind      string
	Category  string
	UserID    string
	Records   []domain.AnswerRecord
	Tally     int
	Total     int
}

// EngineConfig wires one session.
type EngineConfig struct {
	ID        string
	Mode      Mode
	Timing    Timing
	Clock     clock.Clock
	Rand      *rand.Rand
	Questions []domain.Question
	Category  string
	UserID    string
	// OnComplete runs with the session locked and must not call back into it.
	OnComplete func(Outcome)
	// OnClose runs once the session is retired, with the session locked.
	OnClose func(id string)
}

// QuestionView is the client-facing projection of the current question.
type QuestionView struct {
	Prompt  string        `json:"question"`
	Choices []string      `json:"choices"`
	Image   *domain.Image `json:"image,omitempty"`
	Answer  string        `json:"answer,omitempty"`
}

// View is a point-in-time snapshot of a session.
type View struct {
	SessionID  string               `json:"sessionId"`
	Kind       string               `json:"kind"`
	Category   string               `json:"category,omitempty"`
	State      State                `json:"state"`
	Countdown  int                  `json:"countdown"`
	Index      int                  `json:"index"`
	Total      int                  `json:"total"`
	Remaining  int                  `json:"remaining"`
	Feedback   Feedback             `json:"feedback,omitempty"`
	Question   *QuestionView        `json:"question,omitempty"`
	Correct    int                  `json:"correct"`
	Answered   int                  `json:"answered"`
	LastRecord *domain.AnswerRecord `json:"lastRecord,omitempty"`
	UpdatedAt  time.Time            `json:"updatedAt"`
}

// Engine owns one quiz or review attempt. Every transition happens under mu,
// either from a caller (Submit, Next) or from a clock callback. Each scheduled
// callback carries the generation it was scheduled in; a callback whose
// generation is no longer current is ignored.
type Engine struct {
	id       string
	mode     Mode
	timing   Timing
	clock    clock.Clock
	category string
	userID   string

	onComplete func(Outcome)
	onClose    func(id string)

	mu          sync.Mutex
	questions   []domain.Question
	state       State
	started     bool
	countdown   int
	index       int
	remaining   int
	feedback    Feedback
	tally       int
	records     []domain.AnswerRecord
	gen         uint64
	timer       clock.Timer
	subscribers map[chan View]struct{}
}

// NewEngine builds a session in its pre-start state. Questions are shuffled
// once here when the mode asks for it and never change afterwards.
func NewEngine(cfg EngineConfig) *Engine {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	timing := cfg.Timing
	if timing.Unit <= 0 {
		timing.Unit = time.Second
	}
	questions := cfg.Questions
	if cfg.Mode.Shuffle && len(questions) > 0 {
		rnd := cfg.Rand
		if rnd == nil {
			rnd = rand.New(rand.NewSource(clk.Now().UnixNano()))
		}
		questions = domain.ShuffleQuestions(questions, rnd)
	} else {
		questions = append([]domain.Question(nil), questions...)
	}
	return &Engine{
		id:          cfg.ID,
		mode:        cfg.Mode,
		timing:      timing,
		clock:       clk,
		category:    cfg.Category,
		userID:      cfg.UserID,
		onComplete:  cfg.OnComplete,
		onClose:     cfg.OnClose,
		questions:   questions,
		state:       StateCounting,
		countdown:   timing.Countdown,
		records:     make([]domain.AnswerRecord, 0, len(questions)),
		subscribers: make(map[chan View]struct{}),
	}
}

func (e *Engine) ID() string { return e.id }

// Owner is the user the session was started for; empty for anonymous sessions.
func (e *Engine) Owner() string { return e.userID }

func (e *Engine) Kind() string { return e.mode.Kind }

func (e *Engine) Category() string { return e.category }

// Start begins the pre-start countdown. An empty question set leaves the
// session unavailable for good.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	if len(e.questions) == 0 {
		e.state = StateUnavailable
		e.broadcastLocked()
		return
	}
	e.state = StateCounting
	if e.countdown <= 0 {
		e.enterStartingLocked()
	} else {
		e.scheduleLocked(1, e.countdownTickLocked)
	}
	e.broadcastLocked()
}

// Submit records choice as the answer to the current question. It returns
// false when input is not accepted right now or the question already has a
// record.
func (e *Engine) Submit(choice string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateActive || !e.mode.AcceptsInput {
		return false
	}
	return e.recordLocked(choice)
}

// Next advances a session waiting on a manual confirmation.
func (e *Engine) Next() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRevealing || !e.mode.ManualAdvance {
		return false
	}
	e.advanceLocked()
	return true
}

// Snapshot returns the current view.
func (e *Engine) Snapshot() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Records returns a copy of the answer records captured so far.
func (e *Engine) Records() []domain.AnswerRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.AnswerRecord(nil), e.records...)
}

// Subscribe returns a channel of views, primed with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (e *Engine) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 8)

	e.mu.Lock()
	if e.state == StateClosed {
		ch <- e.snapshotLocked()
		close(ch)
		e.mu.Unlock()
		return ch, func() {}
	}
	e.subscribers[ch] = struct{}{}
	ch <- e.snapshotLocked()
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		if _, ok := e.subscribers[ch]; ok {
			delete(e.subscribers, ch)
			close(ch)
		}
		e.mu.Unlock()
	}
	return ch, cancel
}

// Close retires the session: pending timers are cancelled and subscribers
// are released. Closing twice is a no-op.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeLocked()
}

func (e *Engine) closeLocked() {
	if e.state == StateClosed {
		return
	}
	e.cancelLocked()
	e.state = StateClosed
	e.broadcastLocked()
	for ch := range e.subscribers {
		delete(e.subscribers, ch)
		close(ch)
	}
	if e.onClose != nil {
		e.onClose(e.id)
	}
}

func (e *Engine) scheduleLocked(units int, step func()) {
	e.cancelLocked()
	gen := e.gen
	e.timer = e.clock.AfterFunc(time.Duration(units)*e.timing.Unit, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if gen != e.gen || e.state == StateClosed {
			return
		}
		e.timer = nil
		step()
	})
}

// cancelLocked invalidates any scheduled callback.
func (e *Engine) cancelLocked() {
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Engine) countdownTickLocked() {
	e.countdown--
	if e.countdown > 0 {
		e.scheduleLocked(1, e.countdownTickLocked)
	} else {
		e.enterStartingLocked()
	}
	e.broadcastLocked()
}

func (e *Engine) enterStartingLocked() {
	e.countdown = 0
	e.state = StateStarting
	e.scheduleLocked(e.timing.StartDelay, func() {
		e.beginQuestionLocked(0)
	})
}

func (e *Engine) beginQuestionLocked(i int) {
	e.index = i
	e.state = StateActive
	e.feedback = FeedbackNone
	e.remaining = e.mode.QuestionBudget
	if e.remaining <= 0 {
		e.expireLocked()
		return
	}
	e.scheduleLocked(1, e.questionTickLocked)
	e.broadcastLocked()
}

func (e *Engine) questionTickLocked() {
	e.remaining--
	if e.remaining > 0 {
		e.scheduleLocked(1, e.questionTickLocked)
		e.broadcastLocked()
		return
	}
	e.expireLocked()
}

func (e *Engine) expireLocked() {
	e.remaining = 0
	if e.mode.AcceptsInput {
		e.recordLocked(domain.TimeoutSentinel)
		return
	}
	e.revealLocked()
}

// recordLocked appends at most one record per question index.
func (e *Engine) recordLocked(selected string) bool {
	if len(e.records) > e.index {
		return false
	}
	q := e.questions[e.index]
	rec := domain.AnswerRecord{
		Question:      q.Prompt,
		CorrectAnswer: q.Answer,
		Choices:       append([]string(nil), q.Choices...),
		Selected:      selected,
		Image:         q.Image,
	}
	e.records = append(e.records, rec)
	if rec.Correct() {
		if e.mode.Scoring {
			e.tally++
		}
		e.feedback = FeedbackCorrect
	} else {
		e.feedback = FeedbackIncorrect
	}
	e.state = StateRevealing
	e.scheduleLocked(e.mode.RevealDelay, e.advanceLocked)
	e.broadcastLocked()
	return true
}

func (e *Engine) revealLocked() {
	e.state = StateRevealing
	e.feedback = FeedbackReveal
	if e.mode.ManualAdvance {
		if e.timing.Idle > 0 {
			e.scheduleLocked(e.timing.Idle, e.closeLocked)
		} else {
			e.cancelLocked()
		}
	} else {
		e.scheduleLocked(e.mode.RevealDelay, e.advanceLocked)
	}
	e.broadcastLocked()
}

func (e *Engine) advanceLocked() {
	if e.index+1 < len(e.questions) {
		e.beginQuestionLocked(e.index + 1)
		return
	}
	e.completeLocked()
}

func (e *Engine) completeLocked() {
	e.cancelLocked()
	e.state = StateComplete
	e.feedback = FeedbackNone
	e.index = len(e.questions)
	e.remaining = 0
	if e.onComplete != nil {
		e.onComplete(Outcome{
			SessionID: e.id,
			Kind:      e.mode.Kind,
			Category:  e.category,
			UserID:    e.userID,
			Records:   append([]domain.AnswerRecord(nil), e.records...),
			Tally:     e.tally,
			Total:     len(e.questions),
		})
	}
	if e.timing.Retain > 0 {
		e.scheduleLocked(e.timing.Retain, e.closeLocked)
	}
	e.broadcastLocked()
}

func (e *Engine) broadcastLocked() {
	view := e.snapshotLocked()
	for ch := range e.subscribers {
		select {
		case ch <- view:
		default:
			// drop the stale view so slow readers always see the latest state
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
}

func (e *Engine) snapshotLocked() View {
	view := View{
		SessionID: e.id,
		Kind:      e.mode.Kind,
		Category:  e.category,
		State:     e.state,
		Countdown: e.countdown,
		Index:     e.index,
		Total:     len(e.questions),
		Remaining: e.remaining,
		Feedback:  e.feedback,
		Correct:   e.tally,
		Answered:  len(e.records),
		UpdatedAt: e.clock.Now(),
	}
	if (e.state == StateActive || e.state == StateRevealing) && e.index < len(e.questions) {
		q := e.questions[e.index]
		qv := &QuestionView{
			Prompt:  q.Prompt,
			Choices: append([]string(nil), q.Choices...),
			Image:   q.Image,
		}
		if e.state == StateRevealing {
			qv.Answer = q.Answer
		}
		view.Question = qv
	}
	if e.state == StateRevealing && len(e.records) > e.index {
		rec := e.records[e.index]
		view.LastRecord = &rec
	}
	return view
}
