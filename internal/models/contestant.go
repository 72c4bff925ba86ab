package models

import "time"

// Contestant is one entry on the ballot. VotePercentage and Rank are derived
// by the client on every change and never trusted from the server.
type Contestant struct {
	ID             string  `json:"_id"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Image          string  `json:"image"`
	Votes          int64   `json:"votes"`
	VotePercentage float64 `json:"votePercentage"`
	Rank           int     `json:"-"`
}

// TallyUpdateEvent carries absolute values, so applying it twice is the same
// as applying it once.
type TallyUpdateEvent struct {
	ContestantID   string  `json:"contestantId"`
	NewVoteCount   int64   `json:"newVoteCount"`
	VotePercentage float64 `json:"votePercentage"`
	TotalVotes     int64   `json:"totalVotes"`
}

// SessionVote is the single vote remembered for a session-scoped visitor.
type SessionVote struct {
	ContestantID   string    `json:"contestantId" mapstructure:"contestant_id"`
	ContestantName string    `json:"contestantName" mapstructure:"contestant_name"`
	VoteTime       time.Time `json:"voteTime" mapstructure:"vote_time"`
}
