package engine

import (
	"riskierwas/internal/model"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decaySettings() Settings {
	s := DefaultSettings()
	s.DecayEnabled = true
	return s
}

func fourAnswerQuestion() *model.Question {
	return question("Q", right("R1"), right("R2"), wrong("W1"), wrong("W2"))
}

func TestDecayPoints(t *testing.T) {
	cases := map[int]int{
		50:  45,
		45:  41,
		41:  37,
		100: 90,
		11:  10,
		10:  9,
		2:   2,
		1:   1,
		0:   1,
	}
	for in, want := range cases {
		assert.Equal(t, want, decayPoints(in), "decayPoints(%d)", in)
	}
}

func TestDecayReducesNextPoints(t *testing.T) {
	e, clock := newTestEngine(t, []*model.Question{fourAnswerQuestion()}, twoTeams(), decaySettings())
	e.AdvanceQuestion()

	clock.Advance(5 * time.Second)
	s := e.Snapshot()
	assert.Equal(t, 50, s.NextPoints)
	assert.InDelta(t, 0.5, s.Decay.Progress, 1e-9)

	clock.Advance(5 * time.Second)
	s = e.Snapshot()
	assert.Equal(t, 45, s.NextPoints)
	assert.InDelta(t, 0, s.Decay.Progress, 1e-9)
	assert.Equal(t, 50, s.BasePoints, "decay only touches the next value")

	clock.Advance(10 * time.Second)
	assert.Equal(t, 41, e.Snapshot().NextPoints)
}

func TestDecayNeverDropsBelowOne(t *testing.T) {
	e, clock := newTestEngine(t, []*model.Question{fourAnswerQuestion()}, twoTeams(), decaySettings())
	e.AdvanceQuestion()

	clock.Advance(2 * time.Hour)
	assert.Equal(t, 1, e.Snapshot().NextPoints)
}

func TestRevealRestartsDecay(t *testing.T) {
	e, clock := newTestEngine(t, []*model.Question{fourAnswerQuestion()}, twoTeams(), decaySettings())
	s, _ := e.AdvanceQuestion()

	clock.Advance(9 * time.Second)
	s, _ = e.RevealAnswer(answerIndex(t, s, "R1"))
	assert.Equal(t, 50, s.Teams[0].PendingScore)
	assert.Equal(t, 100, s.NextPoints)
	assert.InDelta(t, 0, s.Decay.Progress, 1e-9)

	clock.Advance(9 * time.Second)
	assert.Equal(t, 100, e.Snapshot().NextPoints)
	clock.Advance(time.Second)
	assert.Equal(t, 90, e.Snapshot().NextPoints)
}

func TestDecayedValueIsAwarded(t *testing.T) {
	e, clock := newTestEngine(t, []*model.Question{fourAnswerQuestion()}, twoTeams(), decaySettings())
	s, _ := e.AdvanceQuestion()

	clock.Advance(10 * time.Second)
	s, _ = e.RevealAnswer(answerIndex(t, s, "R1"))
	assert.Equal(t, 45, s.Teams[0].PendingScore)
	assert.Equal(t, 100, s.NextPoints)
}

func TestPassResetsDecayedValue(t *testing.T) {
	e, clock := newTestEngine(t, []*model.Question{fourAnswerQuestion()}, twoTeams(), decaySettings())
	e.AdvanceQuestion()

	clock.Advance(20 * time.Second)
	require.Equal(t, 41, e.Snapshot().NextPoints)

	s, _ := e.PassTurn()
	assert.Equal(t, 50, s.NextPoints)
	assert.Equal(t, 1, s.CurrentTeam)
}

func TestPauseFreezesProgress(t *testing.T) {
	e, clock := newTestEngine(t, []*model.Question{fourAnswerQuestion()}, twoTeams(), decaySettings())
	e.AdvanceQuestion()

	clock.Advance(4 * time.Second)
	s, ok := e.PauseDecay()
	require.True(t, ok)
	assert.True(t, s.Decay.Paused)
	assert.InDelta(t, 0.4, s.Decay.Progress, 1e-9)
	assert.False(t, s.CanInvoke[CmdPauseDecay])
	assert.True(t, s.CanInvoke[CmdResumeDecay])
	assert.Equal(t, 0, clock.ActiveTimers())

	_, ok = e.PauseDecay()
	assert.False(t, ok)

	clock.Advance(time.Minute)
	s = e.Snapshot()
	assert.Equal(t, 50, s.NextPoints)
	assert.InDelta(t, 0.4, s.Decay.Progress, 1e-9)

	s, ok = e.ResumeDecay()
	require.True(t, ok)
	assert.False(t, s.Decay.Paused)
	assert.InDelta(t, 0.4, s.Decay.Progress, 1e-9)

	clock.Advance(5 * time.Second)
	assert.Equal(t, 50, e.Snapshot().NextPoints)
	clock.Advance(time.Second)
	assert.Equal(t, 45, e.Snapshot().NextPoints)

	_, ok = e.ResumeDecay()
	assert.False(t, ok)
}

func TestPausedDecayStaysPausedAcrossTransitions(t *testing.T) {
	e, clock := newTestEngine(t, []*model.Question{fourAnswerQuestion()}, twoTeams(), decaySettings())
	s, _ := e.AdvanceQuestion()
	e.PauseDecay()

	s, _ = e.RevealAnswer(answerIndex(t, s, "R1"))
	assert.True(t, s.Decay.Paused)
	assert.Equal(t, 0, clock.ActiveTimers())

	clock.Advance(30 * time.Second)
	assert.Equal(t, 100, e.Snapshot().NextPoints)
}

func TestDecayDisabled(t *testing.T) {
	e, clock := newTestEngine(t, []*model.Question{fourAnswerQuestion()}, twoTeams(), DefaultSettings())
	s, _ := e.AdvanceQuestion()
	assert.False(t, s.Decay.Enabled)
	assert.Equal(t, 0, clock.ActiveTimers())

	_, ok := e.PauseDecay()
	assert.False(t, ok)

	clock.Advance(time.Minute)
	assert.Equal(t, 50, e.Snapshot().NextPoints)
}

func TestDecayStopsOnCompleteQuestion(t *testing.T) {
	e, clock := newTestEngine(t, []*model.Question{abcQuestion()}, twoTeams(), decaySettings())
	s, _ := e.AdvanceQuestion()
	require.Equal(t, 1, clock.ActiveTimers())

	s, _ = e.RevealAnswer(answerIndex(t, s, "A_wrong"))
	require.True(t, s.Question.Complete)
	assert.Equal(t, 0, clock.ActiveTimers())

	clock.Advance(time.Minute)
	assert.Equal(t, 50, e.Snapshot().NextPoints)
}

func TestTransitionsKeepOneTimer(t *testing.T) {
	e, clock := newTestEngine(t, []*model.Question{fourAnswerQuestion(), fourAnswerQuestion()}, twoTeams(), decaySettings())
	e.AdvanceQuestion()
	e.PassTurn()
	e.PassTurn()
	e.AdvanceQuestion()
	assert.Equal(t, 1, clock.ActiveTimers())

	e.Close()
	assert.Equal(t, 0, clock.ActiveTimers())
}

func TestStaleTickIsDiscarded(t *testing.T) {
	e, clock := newTestEngine(t, []*model.Question{fourAnswerQuestion()}, twoTeams(), decaySettings())
	e.AdvanceQuestion()

	e.mu.Lock()
	stale := e.timerGen
	e.mu.Unlock()

	clock.Advance(9 * time.Second)
	e.PassTurn()
	clock.Advance(2 * time.Second)

	// A tick of the previous timer that lost the race for the lock
	e.tick(stale)
	s := e.Snapshot()
	assert.Equal(t, 50, s.NextPoints)
	assert.InDelta(t, 0.2, s.Decay.Progress, 1e-9)
}

func TestDecayEventsArePublished(t *testing.T) {
	e, clock := newTestEngine(t, []*model.Question{fourAnswerQuestion()}, twoTeams(), decaySettings())
	e.AdvanceQuestion()
	events, cancel := e.Subscribe()
	defer cancel()

	clock.Advance(100 * time.Millisecond)
	ev := <-events
	assert.Equal(t, EventProgress, ev.Kind)

	var decays []int
	for i := 0; i < 20; i++ {
		clock.Advance(time.Second)
		for len(events) > 0 {
			if ev := <-events; ev.Kind == EventDecay {
				decays = append(decays, ev.Snapshot.NextPoints)
			}
		}
	}
	assert.Equal(t, []int{45, 41}, decays)
}

func TestConcurrentCommandsWithRealClock(t *testing.T) {
	settings := decaySettings()
	settings.DecayInterval = 2 * time.Millisecond
	settings.ProgressInterval = time.Millisecond
	questions := []*model.Question{fourAnswerQuestion(), abcQuestion()}
	e := New(questions, twoTeams(), settings)
	defer e.Close()
	e.AdvanceQuestion()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				switch (i + w) % 5 {
				case 0:
					e.AdvanceQuestion()
				case 1:
					e.PassTurn()
				case 2:
					e.PauseDecay()
				case 3:
					e.ResumeDecay()
				default:
					e.RevealAnswer(i % 4)
				}
			}
		}(w)
	}
	wg.Wait()

	s := e.Snapshot()
	for _, team := range s.Teams {
		assert.GreaterOrEqual(t, team.PendingScore, 0)
	}
	assert.GreaterOrEqual(t, s.NextPoints, 1)
}
