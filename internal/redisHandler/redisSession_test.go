package redishandler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/saxenaaman628/contestant-voting-client/internal/eligibility"
	"github.com/saxenaaman628/contestant-voting-client/internal/models"
)

func setup(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestSessionStore_PutGet(t *testing.T) {
	mr, rdb := setup(t)
	store := NewSessionStore(rdb, time.Hour)
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "s1"); err != nil || ok {
		t.Fatalf("expected no vote, got ok=%v err=%v", ok, err)
	}

	voteTime := time.Date(2026, 3, 4, 10, 15, 30, 123000000, time.UTC)
	want := models.SessionVote{ContestantID: "c1", ContestantName: "Alice", VoteTime: voteTime}
	if err := store.Put(ctx, "s1", want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := store.Get(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.ContestantID != want.ContestantID || got.ContestantName != want.ContestantName || !got.VoteTime.Equal(voteTime) {
		t.Errorf("expected %+v, got %+v", want, got)
	}

	if ttl := mr.TTL(SessionKey("s1")); ttl != time.Hour {
		t.Errorf("expected 1h TTL, got %v", ttl)
	}
	if v := mr.HGet(SessionKey("s1"), "contestant_id"); v != "c1" {
		t.Errorf("unexpected hash field %q", v)
	}
}

func TestSessionStore_Expires(t *testing.T) {
	mr, rdb := setup(t)
	store := NewSessionStore(rdb, time.Minute)
	ctx := context.Background()

	if err := store.Put(ctx, "s1", models.SessionVote{ContestantID: "c1", VoteTime: time.Now()}); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(2 * time.Minute)

	if _, ok, err := store.Get(ctx, "s1"); err != nil || ok {
		t.Errorf("expected vote to expire with the session, ok=%v err=%v", ok, err)
	}
}

func TestSessionStore_BadTime(t *testing.T) {
	mr, rdb := setup(t)
	mr.HSet(SessionKey("s1"), "contestant_id", "c1", "vote_time", "yesterday")

	if _, _, err := NewSessionStore(rdb, 0).Get(context.Background(), "s1"); err == nil {
		t.Error("expected decode error")
	}
}

func TestSessionStore_BacksSessionSource(t *testing.T) {
	_, rdb := setup(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	src := eligibility.NewSessionSource(NewSessionStore(rdb, time.Hour), "s1")

	rec, err := src.Load(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	next, _ := rec.AfterVote(eligibility.Vote{ContestantID: "c2", ContestantName: "Bob", Time: now})
	if err := src.Remember(ctx, next); err != nil {
		t.Fatal(err)
	}

	reloaded, err := src.Load(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if !reloaded.HasVoted || reloaded.VotedContestantName != "Bob" {
		t.Errorf("unexpected record %+v", reloaded)
	}
}
