package model

// Team is a competing team. PendingScore holds the points of the running turn
// and only moves into Score when the turn is passed.
type Team struct {
	Name         string `json:"name" bson:"name"`
	Score        int    `json:"score" bson:"score"`
	PendingScore int    `json:"pendingScore" bson:"pendingScore"`
}
