package engine

// Command names a host action
type Command string

const (
	CmdAdvance     Command = "advance"
	CmdReveal      Command = "reveal"
	CmdPass        Command = "pass"
	CmdPauseDecay  Command = "pause"
	CmdResumeDecay Command = "resume"
)

// Commands lists every host action in display order
var Commands = []Command{CmdAdvance, CmdReveal, CmdPass, CmdPauseDecay, CmdResumeDecay}

// EventKind tells subscribers which transition produced a snapshot
type EventKind string

const (
	EventAdvance  EventKind = "advance"
	EventReveal   EventKind = "reveal"
	EventPass     EventKind = "pass"
	EventDecay    EventKind = "decay"
	EventProgress EventKind = "progress"
	EventPause    EventKind = "pause"
	EventResume   EventKind = "resume"
)

// Event is a state change notification
type Event struct {
	Kind     EventKind `json:"kind"`
	Snapshot Snapshot  `json:"snapshot"`
}

const subscriberBuffer = 32

// Subscribe returns a channel of state changes. Events are dropped for a
// subscriber that falls behind. cancel is safe to call more than once.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if e.closed {
		close(ch)
		return ch, func() {}
	}

	id := e.nextSub
	e.nextSub++
	e.subs[id] = ch

	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if c, ok := e.subs[id]; ok {
			close(c)
			delete(e.subs, id)
		}
	}
}

func (e *Engine) publishLocked(kind EventKind) {
	if len(e.subs) == 0 {
		return
	}
	ev := Event{Kind: kind, Snapshot: e.snapshotLocked()}
	for _, ch := range e.subs {
		select {
		case ch <- ev:
		default:
			// Drop if subscriber is behind
		}
	}
}
