package model

// Answer is one option of a question. Revealed is runtime state owned by the
// round engine and is never persisted.
type Answer struct {
	Text     string `json:"text" bson:"text"`
	Correct  bool   `json:"correct" bson:"correct"`
	Comment  string `json:"comment,omitempty" bson:"comment,omitempty"` // Shown to the audience once revealed
	Revealed bool   `json:"-" bson:"-"`
}
