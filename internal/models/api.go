package models

import (
	"encoding/json"
	"time"
)

// Envelope is the common response shape of the voting API.
type Envelope struct {
	Success          bool            `json:"success"`
	Data             json.RawMessage `json:"data,omitempty"`
	Message          string          `json:"message,omitempty"`
	TotalVotes       *int64          `json:"totalVotes,omitempty"`
	TotalContestants *int            `json:"totalContestants,omitempty"`
}

// ContestantList is GET /voting/contestants.
type ContestantList struct {
	Contestants      []Contestant
	TotalVotes       int64
	TotalContestants int
}

type VotedContestant struct {
	ContestantID string    `json:"contestantId"`
	VoteTime     time.Time `json:"voteTime"`
}

// VotingStatus is GET /voting/status, the daily-quota eligibility record.
type VotingStatus struct {
	DailyVoteCount   int               `json:"dailyVoteCount"`
	RemainingVotes   int               `json:"remainingVotes"`
	VotedContestants []VotedContestant `json:"votedContestants"`
}

type SubmitVoteRequest struct {
	ContestantID string `json:"contestantId" binding:"required"`
}

// SubmitVoteResult is the data of a successful POST /voting/submit. Fields
// are optional on the wire.
type SubmitVoteResult struct {
	RemainingVotes *int   `json:"remainingVotes,omitempty"`
	ContestantName string `json:"contestantName,omitempty"`
	Message        string `json:"-"`
}

// PushMessage is one frame on a push transport.
type PushMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

const (
	EventVoteUpdate      = "voteUpdate"
	EventSubscribeVoting = "subscribe-voting"
)
