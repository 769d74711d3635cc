package engine

// decayRunnableLocked is true when the decay timer should be ticking
func (e *Engine) decayRunnableLocked() bool {
	return e.settings.DecayEnabled &&
		!e.decayPaused &&
		!e.closed &&
		e.current != nil &&
		!e.questionCompleteLocked()
}

// startDecayLocked (re)arms the progress timer. reset starts a fresh decay
// interval, otherwise the elapsed time frozen by a pause carries over.
func (e *Engine) startDecayLocked(reset bool) {
	if reset {
		e.decayElapsed = 0
	}
	if !e.decayRunnableLocked() {
		return
	}

	e.timerGen++
	gen := e.timerGen
	e.lastTick = e.clock.Now()
	e.stopTimer = e.clock.Every(e.settings.ProgressInterval, func() {
		e.tick(gen)
	})
}

// stopDecayLocked disarms the timer. Bumping the generation discards a tick
// that is already waiting on mu.
func (e *Engine) stopDecayLocked() {
	if e.stopTimer == nil {
		return
	}
	e.decayElapsed += e.clock.Now().Sub(e.lastTick)
	e.stopTimer()
	e.stopTimer = nil
	e.timerGen++
}

func (e *Engine) tick(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.timerGen || e.stopTimer == nil {
		return
	}

	now := e.clock.Now()
	e.decayElapsed += now.Sub(e.lastTick)
	e.lastTick = now

	kind := EventProgress
	for e.decayElapsed >= e.settings.DecayInterval {
		e.decayElapsed -= e.settings.DecayInterval
		e.nextPoints = decayPoints(e.nextPoints)
		kind = EventDecay
	}
	e.publishLocked(kind)
}

func (e *Engine) decayProgressLocked() float64 {
	p := float64(e.decayElapsed) / float64(e.settings.DecayInterval)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// decayPoints is ceil(points * 0.9), never below 1
func decayPoints(points int) int {
	d := (points*9 + 9) / 10
	if d < 1 {
		return 1
	}
	return d
}
