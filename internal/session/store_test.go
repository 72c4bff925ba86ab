package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	domainerrors "github.com/saxenaaman628/contestant-voting-client/internal/domain/errors"
	"github.com/saxenaaman628/contestant-voting-client/internal/eligibility"
	"github.com/saxenaaman628/contestant-voting-client/internal/models"
)

func TestTokenStore_VoteSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session")
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	current := now
	clock := func() time.Time { return current }

	sess, err := Resume(path, "secret", time.Hour, now, nil)
	if err != nil {
		t.Fatal(err)
	}
	src := eligibility.NewSessionSource(NewTokenStore(path, "secret", clock), sess.ID)
	rec, err := src.Load(ctx, now)
	if err != nil || rec.HasVoted {
		t.Fatalf("expected an empty session record, got %+v (%v)", rec, err)
	}
	next, _ := rec.AfterVote(eligibility.Vote{ContestantID: "c1", ContestantName: "Alice", Time: now})
	if err := src.Remember(ctx, next); err != nil {
		t.Fatal(err)
	}

	// Restart: everything is rebuilt from the token file.
	current = now.Add(10 * time.Minute)
	again, err := Resume(path, "secret", time.Hour, current, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Resumed || again.ID != sess.ID {
		t.Fatalf("expected to resume %s, got %+v", sess.ID, again)
	}
	if !again.ExpiresAt.Equal(sess.ExpiresAt) {
		t.Errorf("saving the vote must not extend the session: %v vs %v", again.ExpiresAt, sess.ExpiresAt)
	}
	restarted := eligibility.NewSessionSource(NewTokenStore(path, "secret", clock), again.ID)
	rec, err = restarted.Load(ctx, current)
	if err != nil {
		t.Fatal(err)
	}
	if !rec.HasVoted || rec.VotedContestantName != "Alice" || !rec.VoteTime.Equal(now) {
		t.Errorf("vote lost across restart: %+v", rec)
	}
	if err := rec.Allow("c2"); !errors.Is(err, domainerrors.ErrAlreadyVoted) {
		t.Errorf("expected ErrAlreadyVoted, got %v", err)
	}

	// Session end forgets the vote.
	current = now.Add(2 * time.Hour)
	ended, err := Resume(path, "secret", time.Hour, current, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec, err = eligibility.NewSessionSource(NewTokenStore(path, "secret", clock), ended.ID).Load(ctx, current)
	if err != nil || rec.HasVoted {
		t.Errorf("expected a fresh session, got %+v (%v)", rec, err)
	}
}

func TestTokenStore_Get(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	missing := NewTokenStore(filepath.Join(t.TempDir(), "none"), "secret", clock)
	if _, ok, err := missing.Get(ctx, "sid"); ok || err != nil {
		t.Errorf("missing token file: expected no vote, got %v %v", ok, err)
	}

	path := filepath.Join(t.TempDir(), "session")
	sess, err := Resume(path, "secret", time.Hour, now, nil)
	if err != nil {
		t.Fatal(err)
	}
	store := NewTokenStore(path, "secret", clock)
	if err := store.Put(ctx, sess.ID, models.SessionVote{ContestantID: "c1", VoteTime: now}); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := store.Get(ctx, "another-session"); ok {
		t.Error("vote leaked to another session id")
	}
	if err := store.Put(ctx, "another-session", models.SessionVote{ContestantID: "c2"}); err == nil {
		t.Error("expected error writing a vote for another session")
	}

	if err := os.WriteFile(path, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := store.Get(ctx, sess.ID); err == nil {
		t.Error("expected error for a tampered token")
	}
}
