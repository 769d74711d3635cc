package engine

import "riskierwas/internal/model"

// AnswerView is an answer as shown on screen. Correct and Comment are nil/empty
// in viewer snapshots until the answer is revealed.
type AnswerView struct {
	Index    int    `json:"index"`
	Text     string `json:"text"`
	Revealed bool   `json:"revealed"`
	Correct  *bool  `json:"correct,omitempty"`
	Comment  string `json:"comment,omitempty"`
}

// QuestionView is the current question with its reveal counters
type QuestionView struct {
	Text             string       `json:"text"`
	Answers          []AnswerView `json:"answers"`
	CorrectTotal     int          `json:"correctTotal"`
	RevealedCorrect  int          `json:"revealedCorrect"`
	RevealedWrong    int          `json:"revealedWrong"`
	RemainingCorrect int          `json:"remainingCorrect"`
	RemainingWrong   int          `json:"remainingWrong"`
	Complete         bool         `json:"complete"`
}

// DecayView is the decay timer state
type DecayView struct {
	Enabled  bool    `json:"enabled"`
	Paused   bool    `json:"paused"`
	Progress float64 `json:"progress"` // 0..1 through the current decay interval
}

// Snapshot is everything the presentation layer renders
type Snapshot struct {
	Phase           Phase            `json:"phase"`
	Question        *QuestionView    `json:"question,omitempty"`
	QuestionNumber  int              `json:"questionNumber"` // 1-based position in the selected pool
	QuestionCount   int              `json:"questionCount"`
	QuestionsPlayed int              `json:"questionsPlayed"`
	Teams           []model.Team     `json:"teams"`
	CurrentTeam     int              `json:"currentTeam"`
	CurrentTeamName string           `json:"currentTeamName"`
	RoundPoints     int              `json:"roundPoints"` // Pending score of the current team
	NextPoints      int              `json:"nextPoints"`
	BasePoints      int              `json:"basePoints"`
	Decay           DecayView        `json:"decay"`
	CanInvoke       map[Command]bool `json:"canInvoke"`
}

func (e *Engine) snapshotLocked() Snapshot {
	s := Snapshot{
		Phase:           PhaseNoQuestion,
		QuestionCount:   len(e.selectedPoolLocked()),
		QuestionsPlayed: e.played,
		Teams:           make([]model.Team, len(e.teams)),
		NextPoints:      e.nextPoints,
		BasePoints:      e.basePoints,
		Decay: DecayView{
			Enabled:  e.settings.DecayEnabled,
			Paused:   e.decayPaused,
			Progress: e.decayProgressLocked(),
		},
		CanInvoke: make(map[Command]bool, len(Commands)),
	}

	for i, t := range e.teams {
		s.Teams[i] = *t
	}
	if team := e.currentTeamLocked(); team != nil {
		s.CurrentTeam = e.teamIndex
		s.CurrentTeamName = team.Name
		s.RoundPoints = team.PendingScore
	}
	for _, cmd := range Commands {
		s.CanInvoke[cmd] = e.canInvokeLocked(cmd)
	}

	if e.current == nil {
		return s
	}

	s.Phase = PhaseQuestionActive
	s.QuestionNumber = e.questionIndex + 1

	qv := &QuestionView{
		Text:    e.current.Text,
		Answers: make([]AnswerView, len(e.current.Answers)),
	}
	for i, a := range e.current.Answers {
		correct := a.Correct
		qv.Answers[i] = AnswerView{
			Index:    i,
			Text:     a.Text,
			Revealed: a.Revealed,
			Correct:  &correct,
			Comment:  a.Comment,
		}
		switch {
		case a.Correct && a.Revealed:
			qv.CorrectTotal++
			qv.RevealedCorrect++
		case a.Correct:
			qv.CorrectTotal++
			qv.RemainingCorrect++
		case a.Revealed:
			qv.RevealedWrong++
		default:
			qv.RemainingWrong++
		}
	}
	qv.Complete = qv.RemainingCorrect == 0 && qv.RemainingWrong == 0
	s.Question = qv
	return s
}

// ForViewer hides the outcome of answers that are still covered
func (s Snapshot) ForViewer() Snapshot {
	out := s
	out.CanInvoke = nil
	if s.Question == nil {
		return out
	}

	qv := *s.Question
	qv.Answers = make([]AnswerView, len(s.Question.Answers))
	for i, a := range s.Question.Answers {
		if !a.Revealed {
			a.Correct = nil
			a.Comment = ""
		}
		qv.Answers[i] = a
	}
	out.Question = &qv
	return out
}
