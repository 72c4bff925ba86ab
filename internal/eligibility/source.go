package eligibility

import (
	"context"
	"sync"
	"time"

	"github.com/saxenaaman628/contestant-voting-client/internal/models"
)

// Source loads and persists the record for one Kind. It is chosen once at
// startup and never swapped.
type Source interface {
	Kind() Kind
	// Empty is the record in force before the first successful Load.
	Empty() Record
	Load(ctx context.Context, now time.Time) (Record, error)
	// Remember persists a record after an accepted vote. Sources whose state
	// lives on the server do nothing.
	Remember(ctx context.Context, rec Record) error
}

// SessionStore keeps the session-scoped vote for the lifetime of a session.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (models.SessionVote, bool, error)
	Put(ctx context.Context, sessionID string, vote models.SessionVote) error
}

type SessionSource struct {
	store     SessionStore
	sessionID string
}

func NewSessionSource(store SessionStore, sessionID string) *SessionSource {
	return &SessionSource{store: store, sessionID: sessionID}
}

func (s *SessionSource) Kind() Kind { return SessionScoped }

func (s *SessionSource) Empty() Record { return NewSessionRecord() }

func (s *SessionSource) Load(ctx context.Context, _ time.Time) (Record, error) {
	vote, ok, err := s.store.Get(ctx, s.sessionID)
	if err != nil {
		return Record{}, err
	}
	rec := NewSessionRecord()
	if !ok {
		return rec, nil
	}
	rec.HasVoted = true
	rec.VotedContestantID = vote.ContestantID
	rec.VotedContestantName = vote.ContestantName
	rec.VoteTime = vote.VoteTime
	return rec, nil
}

func (s *SessionSource) Remember(ctx context.Context, rec Record) error {
	if !rec.HasVoted {
		return nil
	}
	return s.store.Put(ctx, s.sessionID, models.SessionVote{
		ContestantID:   rec.VotedContestantID,
		ContestantName: rec.VotedContestantName,
		VoteTime:       rec.VoteTime,
	})
}

// StatusFetcher reads the server-side daily quota.
type StatusFetcher interface {
	Status(ctx context.Context) (models.VotingStatus, error)
}

type QuotaSource struct {
	api   StatusFetcher
	quota int
}

func NewQuotaSource(api StatusFetcher, quota int) *QuotaSource {
	return &QuotaSource{api: api, quota: quota}
}

func (s *QuotaSource) Kind() Kind { return DailyQuota }

func (s *QuotaSource) Empty() Record { return NewQuotaRecord(s.quota) }

func (s *QuotaSource) Load(ctx context.Context, now time.Time) (Record, error) {
	status, err := s.api.Status(ctx)
	if err != nil {
		return Record{}, err
	}
	rec := Record{
		Kind:               DailyQuota,
		DailyVoteCount:     status.DailyVoteCount,
		RemainingVotes:     status.RemainingVotes,
		VotedContestantIDs: make(map[string]struct{}, len(status.VotedContestants)),
		Day:                DayOf(now),
	}
	for _, v := range status.VotedContestants {
		rec.VotedContestantIDs[v.ContestantID] = struct{}{}
	}
	return rec, nil
}

func (s *QuotaSource) Remember(context.Context, Record) error { return nil }

// MemoryStore is a process-local SessionStore. Entries expire after ttl; a
// zero ttl keeps them for the life of the process.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	vote      models.SessionVote
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{ttl: ttl, now: now, entries: map[string]memoryEntry{}}
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (models.SessionVote, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sessionID]
	if !ok {
		return models.SessionVote{}, false, nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, sessionID)
		return models.SessionVote{}, false, nil
	}
	return e.vote, true, nil
}

func (m *MemoryStore) Put(_ context.Context, sessionID string, vote models.SessionVote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := memoryEntry{vote: vote}
	if m.ttl > 0 {
		e.expiresAt = m.now().Add(m.ttl)
	}
	m.entries[sessionID] = e
	return nil
}
