package model

import "time"

// QuestionSet is a named copy of a question bank kept in the library
type QuestionSet struct {
	ID        string      `json:"id" bson:"_id,omitempty"`
	HostID    string      `json:"hostId" bson:"hostId"`
	Name      string      `json:"name" bson:"name"`
	Questions []*Question `json:"questions" bson:"questions"`
	CreatedAt time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt" bson:"updatedAt"`
}

// QuestionSetSummary is the list view of a library entry
type QuestionSetSummary struct {
	ID            string    `json:"id" bson:"_id"`
	Name          string    `json:"name" bson:"name"`
	QuestionCount int       `json:"questionCount" bson:"questionCount"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedAt"`
}
