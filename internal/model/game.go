package model

import "time"

type GameStatus string

const (
	GameLive  GameStatus = "live"
	GameEnded GameStatus = "ended"
)

// GameSettings is what the host picks on the start screen
type GameSettings struct {
	TeamCount   int      `json:"teamCount" bson:"teamCount"`
	TeamNames   []string `json:"teamNames,omitempty" bson:"teamNames,omitempty"`
	PointDecay  bool     `json:"pointDecay" bson:"pointDecay"`
	ForfeitRule string   `json:"forfeitRule,omitempty" bson:"forfeitRule,omitempty"` // "pending" or "round"
}

// Game is a running or finished game hosted under a short code
type Game struct {
	ID        string       `json:"id" bson:"_id"`
	Code      string       `json:"code" bson:"code"`
	HostID    string       `json:"hostId" bson:"hostId"`
	Status    GameStatus   `json:"status" bson:"status"`
	Settings  GameSettings `json:"settings" bson:"settings"`
	CreatedAt time.Time    `json:"createdAt" bson:"createdAt"`
	EndedAt   *time.Time   `json:"endedAt,omitempty" bson:"endedAt,omitempty"`
}

// TeamStanding is one line of a final scoreboard
type TeamStanding struct {
	Rank  int    `json:"rank" bson:"rank"`
	Name  string `json:"name" bson:"name"`
	Score int    `json:"score" bson:"score"`
}

// GameResult is persisted when a host ends a game
type GameResult struct {
	GameID          string         `json:"gameId" bson:"_id"`
	Code            string         `json:"code" bson:"code"`
	HostID          string         `json:"hostId" bson:"hostId"`
	Standings       []TeamStanding `json:"standings" bson:"standings"`
	QuestionsPlayed int            `json:"questionsPlayed" bson:"questionsPlayed"`
	PointDecay      bool           `json:"pointDecay" bson:"pointDecay"`
	StartedAt       time.Time      `json:"startedAt" bson:"startedAt"`
	EndedAt         time.Time      `json:"endedAt" bson:"endedAt"`
}
