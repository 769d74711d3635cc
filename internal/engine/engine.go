package engine

import (
	"math/rand/v2"
	"riskierwas/internal/model"
	"sync"
	"time"
)

// Phase is the state of the round engine
type Phase string

const (
	PhaseNoQuestion     Phase = "no_question"     // Selected pool is empty
	PhaseQuestionActive Phase = "question_active" // A question is on screen
)

// ForfeitRule decides what a wrong reveal costs the acting team
type ForfeitRule string

const (
	// ForfeitPending drops only the unbanked points of the running turn.
	ForfeitPending ForfeitRule = "pending"
	// ForfeitRound also takes back what the team banked during the current question.
	ForfeitRound ForfeitRule = "round"
)

// Settings configures scoring and decay for one game
type Settings struct {
	BasePoints       int
	PointStep        int
	DecayEnabled     bool
	DecayInterval    time.Duration
	ProgressInterval time.Duration
	Forfeit          ForfeitRule
}

// DefaultSettings returns the classic rules: 50 points, +50 per correct reveal,
// decay every 10s when enabled.
func DefaultSettings() Settings {
	return Settings{
		BasePoints:       50,
		PointStep:        50,
		DecayInterval:    10 * time.Second,
		ProgressInterval: 100 * time.Millisecond,
		Forfeit:          ForfeitPending,
	}
}

func (s Settings) normalized() Settings {
	d := DefaultSettings()
	if s.BasePoints <= 0 {
		s.BasePoints = d.BasePoints
	}
	if s.PointStep < 0 {
		s.PointStep = d.PointStep
	}
	if s.DecayInterval <= 0 {
		s.DecayInterval = d.DecayInterval
	}
	if s.ProgressInterval <= 0 || s.ProgressInterval > s.DecayInterval {
		s.ProgressInterval = min(d.ProgressInterval, s.DecayInterval)
	}
	if s.Forfeit != ForfeitRound {
		s.Forfeit = ForfeitPending
	}
	return s
}

// Option customises an Engine
type Option func(*Engine)

// WithClock replaces the real clock, mostly for tests
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithRand fixes the shuffle source
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// Engine is the round/turn state machine of one game. All transitions and
// decay ticks are serialised by mu.
type Engine struct {
	mu       sync.Mutex
	settings Settings
	clock    Clock
	rng      *rand.Rand

	questions []*model.Question
	teams     []*model.Team

	questionIndex int
	current       *model.Question
	played        int
	teamIndex     int
	basePoints    int
	nextPoints    int
	roundBanked   []int // per team, banked during the current question

	decayPaused  bool
	decayElapsed time.Duration
	lastTick     time.Time
	stopTimer    func()
	timerGen     uint64

	subs    map[int]chan Event
	nextSub int
	closed  bool
}

// New creates an engine over a private copy of the questions and a fresh
// roster. No question is active until AdvanceQuestion is called.
func New(questions []*model.Question, teams []model.Team, settings Settings, opts ...Option) *Engine {
	settings = settings.normalized()
	e := &Engine{
		settings:      settings,
		clock:         RealClock{},
		questions:     model.CloneQuestions(questions),
		questionIndex: -1,
		basePoints:    settings.BasePoints,
		nextPoints:    settings.BasePoints,
		subs:          make(map[int]chan Event),
	}
	for _, t := range teams {
		if t.PendingScore < 0 {
			t.PendingScore = 0
		}
		e.teams = append(e.teams, &t)
	}
	e.roundBanked = make([]int, len(e.teams))

	for _, opt := range opts {
		opt(e)
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return e
}

// Settings returns the effective settings after normalisation
func (e *Engine) Settings() Settings {
	return e.settings
}

// AdvanceQuestion activates the next selected question, wrapping around at the
// end of the pool. With an empty pool the engine falls back to PhaseNoQuestion.
func (e *Engine) AdvanceQuestion() (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopDecayLocked()

	pool := e.selectedPoolLocked()
	if len(pool) == 0 {
		e.current = nil
		e.publishLocked(EventAdvance)
		return e.snapshotLocked(), true
	}

	e.questionIndex = (e.questionIndex + 1) % len(pool)
	e.current = pool[e.questionIndex]
	e.played++

	e.shuffleLocked(e.current.Answers)
	for i := range e.current.Answers {
		e.current.Answers[i].Revealed = false
	}

	e.basePoints = e.settings.BasePoints
	e.nextPoints = e.basePoints
	for i := range e.roundBanked {
		e.roundBanked[i] = 0
	}
	if team := e.currentTeamLocked(); team != nil {
		team.PendingScore = 0
	}

	e.startDecayLocked(true)
	e.publishLocked(EventAdvance)
	return e.snapshotLocked(), true
}

// RevealAnswer reveals the answer at index in the current display order.
// Misses (no question, bad index, already revealed) are silent no-ops.
func (e *Engine) RevealAnswer(index int) (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil || index < 0 || index >= len(e.current.Answers) || e.current.Answers[index].Revealed {
		return e.snapshotLocked(), false
	}

	e.stopDecayLocked()

	answer := &e.current.Answers[index]
	answer.Revealed = true

	team := e.currentTeamLocked()
	if answer.Correct {
		if team != nil {
			team.PendingScore += e.nextPoints
		}
		e.basePoints += e.settings.PointStep
		e.nextPoints = e.basePoints
	} else {
		if team != nil {
			e.forfeitLocked(team)
		}
		e.nextPoints = e.basePoints
		e.passTurnLocked()
	}

	e.autoRevealLocked()

	e.startDecayLocked(true)
	e.publishLocked(EventReveal)
	return e.snapshotLocked(), true
}

// PassTurn banks the current team's round points and hands over to the next
// team. It needs an active question and at least one team.
func (e *Engine) PassTurn() (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil || len(e.teams) == 0 {
		return e.snapshotLocked(), false
	}

	e.stopDecayLocked()
	e.passTurnLocked()
	e.startDecayLocked(true)
	e.publishLocked(EventPass)
	return e.snapshotLocked(), true
}

// PauseDecay freezes the decay timer and its progress
func (e *Engine) PauseDecay() (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.settings.DecayEnabled || e.decayPaused {
		return e.snapshotLocked(), false
	}

	e.stopDecayLocked()
	e.decayPaused = true
	e.publishLocked(EventPause)
	return e.snapshotLocked(), true
}

// ResumeDecay continues decay from where it was paused
func (e *Engine) ResumeDecay() (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.settings.DecayEnabled || !e.decayPaused {
		return e.snapshotLocked(), false
	}

	e.decayPaused = false
	e.startDecayLocked(false)
	e.publishLocked(EventResume)
	return e.snapshotLocked(), true
}

// CanInvoke reports whether cmd would currently change state
func (e *Engine) CanInvoke(cmd Command) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canInvokeLocked(cmd)
}

// Snapshot returns the current observable state
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Close stops the decay timer and closes every subscription
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	e.stopDecayLocked()
	e.closed = true
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
}

func (e *Engine) selectedPoolLocked() []*model.Question {
	pool := make([]*model.Question, 0, len(e.questions))
	for _, q := range e.questions {
		if q.Selected {
			pool = append(pool, q)
		}
	}
	return pool
}

// shuffleLocked is a Fisher–Yates shuffle
func (e *Engine) shuffleLocked(answers []model.Answer) {
	for i := len(answers) - 1; i > 0; i-- {
		j := e.rng.IntN(i + 1)
		answers[i], answers[j] = answers[j], answers[i]
	}
}

// currentTeamLocked clamps the index if the roster ever shrank under it
func (e *Engine) currentTeamLocked() *model.Team {
	if len(e.teams) == 0 {
		return nil
	}
	if e.teamIndex < 0 || e.teamIndex >= len(e.teams) {
		e.teamIndex = 0
	}
	return e.teams[e.teamIndex]
}

func (e *Engine) forfeitLocked(team *model.Team) {
	if e.settings.Forfeit == ForfeitRound {
		team.Score -= e.roundBanked[e.teamIndex]
		e.roundBanked[e.teamIndex] = 0
	}
	team.PendingScore = 0
}

func (e *Engine) passTurnLocked() {
	team := e.currentTeamLocked()
	if team == nil {
		return
	}

	if team.PendingScore > 0 {
		team.Score += team.PendingScore
		e.roundBanked[e.teamIndex] += team.PendingScore
		team.PendingScore = 0
	}

	e.teamIndex = (e.teamIndex + 1) % len(e.teams)
	e.nextPoints = e.basePoints
}

// autoRevealLocked opens the whole question once either all correct or all
// wrong answers are out.
func (e *Engine) autoRevealLocked() {
	if e.current == nil {
		return
	}

	noCorrectLeft, noWrongLeft := true, true
	for _, a := range e.current.Answers {
		if a.Revealed {
			continue
		}
		if a.Correct {
			noCorrectLeft = false
		} else {
			noWrongLeft = false
		}
	}
	if !noCorrectLeft && !noWrongLeft {
		return
	}
	for i := range e.current.Answers {
		e.current.Answers[i].Revealed = true
	}
}

func (e *Engine) questionCompleteLocked() bool {
	if e.current == nil {
		return false
	}
	for _, a := range e.current.Answers {
		if !a.Revealed {
			return false
		}
	}
	return true
}

func (e *Engine) canInvokeLocked(cmd Command) bool {
	switch cmd {
	case CmdAdvance:
		return !e.closed
	case CmdReveal:
		return e.current != nil && !e.questionCompleteLocked()
	case CmdPass:
		return e.current != nil && len(e.teams) > 0
	case CmdPauseDecay:
		return e.settings.DecayEnabled && !e.decayPaused
	case CmdResumeDecay:
		return e.settings.DecayEnabled && e.decayPaused
	default:
		return false
	}
}
