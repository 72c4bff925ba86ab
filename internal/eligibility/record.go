// Package eligibility tracks whether the current visitor may still vote.
//
// A deployment runs exactly one Kind. SessionScoped allows a single vote per
// client session; DailyQuota allows a fixed number of votes per calendar day,
// at most one per contestant, with the server as the source of truth.
package eligibility

import (
	"fmt"
	"sort"
	"time"

	domainerrors "github.com/saxenaaman628/contestant-voting-client/internal/domain/errors"
)

type Kind int

const (
	SessionScoped Kind = iota + 1
	DailyQuota
)

func (k Kind) String() string {
	switch k {
	case SessionScoped:
		return "session"
	case DailyQuota:
		return "daily-quota"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Record is the local cache of the visitor's eligibility. Fields outside the
// active Kind are ignored.
type Record struct {
	Kind Kind

	// SessionScoped
	HasVoted            bool
	VotedContestantID   string
	VotedContestantName string
	VoteTime            time.Time

	// DailyQuota. DailyVoteCount is the server's count as of the last load.
	DailyVoteCount     int
	RemainingVotes     int
	VotedContestantIDs map[string]struct{}
	// Day is the calendar day (YYYY-MM-DD, schedule location) the quota was
	// loaded for. Empty until the first load.
	Day string
}

func NewSessionRecord() Record {
	return Record{Kind: SessionScoped}
}

// NewQuotaRecord is the state before the server status has been read.
func NewQuotaRecord(quota int) Record {
	return Record{
		Kind:               DailyQuota,
		RemainingVotes:     quota,
		VotedContestantIDs: map[string]struct{}{},
	}
}

// Allow checks a vote for contestantID against the record. An already-voted
// contestant is reported before an exhausted quota.
func (r Record) Allow(contestantID string) error {
	switch r.Kind {
	case SessionScoped:
		if r.HasVoted {
			return domainerrors.ErrAlreadyVoted
		}
		return nil
	case DailyQuota:
		if _, ok := r.VotedContestantIDs[contestantID]; ok {
			return domainerrors.ErrAlreadyVoted
		}
		if r.RemainingVotes <= 0 {
			return domainerrors.ErrQuotaExhausted
		}
		return nil
	default:
		return fmt.Errorf("eligibility: unknown kind %d", int(r.Kind))
	}
}

// Vote is an accepted submission as reported by the server.
type Vote struct {
	ContestantID   string
	ContestantName string
	Time           time.Time
	// RemainingVotes is nil when the server did not report it.
	RemainingVotes *int
}

// AfterVote returns the record with an accepted vote applied. complete is
// false when the server response lacked a field the record needs, in which
// case the caller should reload instead of trusting the local value.
func (r Record) AfterVote(v Vote) (next Record, complete bool) {
	next = r.Clone()
	switch r.Kind {
	case SessionScoped:
		next.HasVoted = true
		next.VotedContestantID = v.ContestantID
		next.VotedContestantName = v.ContestantName
		next.VoteTime = v.Time
		return next, true
	case DailyQuota:
		if next.VotedContestantIDs == nil {
			next.VotedContestantIDs = map[string]struct{}{}
		}
		next.VotedContestantIDs[v.ContestantID] = struct{}{}
		if v.RemainingVotes == nil {
			return next, false
		}
		next.RemainingVotes = *v.RemainingVotes
		return next, true
	default:
		return next, false
	}
}

// HasVotedFor reports whether contestantID already holds this visitor's vote.
func (r Record) HasVotedFor(contestantID string) bool {
	switch r.Kind {
	case SessionScoped:
		return r.HasVoted && r.VotedContestantID == contestantID
	case DailyQuota:
		_, ok := r.VotedContestantIDs[contestantID]
		return ok
	default:
		return false
	}
}

// VotedIDs returns the voted contestant ids in sorted order.
func (r Record) VotedIDs() []string {
	if r.Kind == SessionScoped {
		if r.HasVoted {
			return []string{r.VotedContestantID}
		}
		return nil
	}
	ids := make([]string, 0, len(r.VotedContestantIDs))
	for id := range r.VotedContestantIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stale reports whether a daily quota was loaded on an earlier day than now.
func (r Record) Stale(now time.Time) bool {
	return r.Kind == DailyQuota && r.Day != "" && r.Day != DayOf(now)
}

// Summary is the human-readable eligibility line.
func (r Record) Summary() string {
	switch r.Kind {
	case SessionScoped:
		if !r.HasVoted {
			return "You can vote once this session"
		}
		name := r.VotedContestantName
		if name == "" {
			name = r.VotedContestantID
		}
		return fmt.Sprintf("You have already voted for %s this session", name)
	case DailyQuota:
		if r.RemainingVotes <= 0 {
			return "You have reached your daily vote limit"
		}
		if r.RemainingVotes == 1 {
			return "You can vote for 1 more contestant today"
		}
		return fmt.Sprintf("You can vote for %d more contestants today", r.RemainingVotes)
	default:
		return ""
	}
}

// Clone returns a copy that shares no mutable state with r.
func (r Record) Clone() Record {
	out := r
	if r.VotedContestantIDs != nil {
		out.VotedContestantIDs = make(map[string]struct{}, len(r.VotedContestantIDs))
		for id := range r.VotedContestantIDs {
			out.VotedContestantIDs[id] = struct{}{}
		}
	}
	return out
}

// DayOf is the calendar day of t in t's location.
func DayOf(t time.Time) string {
	return t.Format(time.DateOnly)
}
