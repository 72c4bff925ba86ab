package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/saxenaaman628/contestant-voting-client/internal/models"
	"github.com/saxenaaman628/contestant-voting-client/internal/testutil"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantOK  bool
		wantErr bool
	}{
		{"vote update", `{"event":"voteUpdate","data":{"contestantId":"c1","newVoteCount":12,"votePercentage":40.5,"totalVotes":30}}`, true, false},
		{"other event", `{"event":"connected","data":{}}`, false, false},
		{"not json", `voteUpdate`, false, true},
		{"bad payload", `{"event":"voteUpdate","data":"nope"}`, false, true},
		{"missing id", `{"event":"voteUpdate","data":{"newVoteCount":1}}`, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok, err := Decode([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if ok && (ev.ContestantID != "c1" || ev.NewVoteCount != 12 || ev.TotalVotes != 30) {
				t.Errorf("unexpected event %+v", ev)
			}
		})
	}
}

func TestNone(t *testing.T) {
	err := None{}.Run(context.Background(), func() {}, func(models.TallyUpdateEvent) {})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestNewWebsocket_URL(t *testing.T) {
	tests := map[string]string{
		"http://localhost:3000":     "ws://localhost:3000/voting/ws",
		"https://vote.example.com/": "wss://vote.example.com/voting/ws",
		"ws://host/base":            "ws://host/base/voting/ws",
	}
	for in, want := range tests {
		ws, err := NewWebsocket(in, nil)
		if err != nil {
			t.Fatalf("%s: %v", in, err)
		}
		if ws.URL() != want {
			t.Errorf("%s: expected %s, got %s", in, want, ws.URL())
		}
	}
	if _, err := NewWebsocket("ftp://host", nil); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

type runResult struct {
	connected chan struct{}
	updates   chan models.TallyUpdateEvent
	done      chan error
}

func run(ctx context.Context, p Push) runResult {
	r := runResult{
		connected: make(chan struct{}, 1),
		updates:   make(chan models.TallyUpdateEvent, 16),
		done:      make(chan error, 1),
	}
	go func() {
		r.done <- p.Run(ctx,
			func() { r.connected <- struct{}{} },
			func(ev models.TallyUpdateEvent) { r.updates <- ev },
		)
	}()
	return r
}

func wait[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
	var zero T
	return zero
}

func TestWebsocket_DeliversUpdates(t *testing.T) {
	fs := testutil.NewFakeServer(t, nil, 3)
	ws, err := NewWebsocket(fs.URL(), nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := run(ctx, ws)

	wait(t, r.connected, "connect")
	fs.WaitSubscribed(t, 3*time.Second)

	fs.Broadcast(models.TallyUpdateEvent{ContestantID: "c1", NewVoteCount: 7, TotalVotes: 10})
	fs.Broadcast(models.TallyUpdateEvent{ContestantID: "c2", NewVoteCount: 3, TotalVotes: 10})

	first := wait(t, r.updates, "first update")
	second := wait(t, r.updates, "second update")
	if first.ContestantID != "c1" || second.ContestantID != "c2" {
		t.Errorf("updates out of order: %+v, %+v", first, second)
	}

	cancel()
	if err := wait(t, r.done, "shutdown"); err != nil {
		t.Errorf("expected nil on cancel, got %v", err)
	}
}

func TestWebsocket_ConnectionLost(t *testing.T) {
	fs := testutil.NewFakeServer(t, nil, 3)
	ws, _ := NewWebsocket(fs.URL(), nil)

	r := run(context.Background(), ws)
	wait(t, r.connected, "connect")
	fs.WaitSubscribed(t, 3*time.Second)

	fs.CloseConnections()
	if err := wait(t, r.done, "disconnect"); err == nil {
		t.Error("expected an error when the server drops the connection")
	}
}

func TestWebsocket_Unavailable(t *testing.T) {
	fs := testutil.NewFakeServer(t, nil, 3)
	ws, _ := NewWebsocket(fs.URL()+"/missing", nil)

	err := ws.Run(context.Background(), func() { t.Error("should not connect") }, func(models.TallyUpdateEvent) {})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestRedisPubSub_DeliversUpdates(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := run(ctx, NewRedisPubSub(rdb, "voting:updates", nil))
	wait(t, r.connected, "subscribe")

	mr.Publish("voting:updates", `not json`)
	mr.Publish("voting:updates", `{"event":"voteUpdate","data":{"contestantId":"c9","newVoteCount":4,"totalVotes":4}}`)

	ev := wait(t, r.updates, "update")
	if ev.ContestantID != "c9" || ev.NewVoteCount != 4 {
		t.Errorf("unexpected event %+v", ev)
	}

	cancel()
	if err := wait(t, r.done, "shutdown"); err != nil {
		t.Errorf("expected nil on cancel, got %v", err)
	}
}
