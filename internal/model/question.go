package model

import "encoding/json"

// MaxAnswersPerQuestion is the editor limit; the engine does not enforce it.
const MaxAnswersPerQuestion = 16

// Question is a bank entry with its ordered answers
type Question struct {
	Text     string   `json:"text" bson:"text"`
	Selected bool     `json:"selected" bson:"selected"` // Takes part in the game rotation
	Answers  []Answer `json:"answers" bson:"answers"`
}

// UnmarshalJSON defaults Selected to true when the field is absent and never
// leaves Answers nil.
func (q *Question) UnmarshalJSON(data []byte) error {
	type plain Question
	p := plain{Selected: true}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Answers == nil {
		p.Answers = []Answer{}
	}
	*q = Question(p)
	return nil
}

// Clone returns a deep copy so a game can shuffle and reveal without touching the bank
func (q *Question) Clone() *Question {
	c := *q
	c.Answers = make([]Answer, len(q.Answers))
	copy(c.Answers, q.Answers)
	return &c
}

// CloneQuestions deep-copies a question list
func CloneQuestions(questions []*Question) []*Question {
	out := make([]*Question, 0, len(questions))
	for _, q := range questions {
		if q == nil {
			continue
		}
		out = append(out, q.Clone())
	}
	return out
}
