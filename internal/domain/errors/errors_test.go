package errors

import (
	"errors"
	"fmt"
	"io"
	"testing"
	"time"
)

func TestNetworkError(t *testing.T) {
	err := fmt.Errorf("load: %w", &NetworkError{Op: "load contestants", Err: io.ErrUnexpectedEOF})
	if !errors.Is(err, ErrNetwork) {
		t.Error("expected ErrNetwork")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("expected the cause to unwrap")
	}
	if errors.Is(err, ErrRejectedByServer) {
		t.Error("a network error is not a rejection")
	}
}

func TestClosedError(t *testing.T) {
	err := &ClosedError{OpensAt: time.Now(), Countdown: "1d 2h 3m 4s"}
	if !errors.Is(err, ErrVotingClosed) {
		t.Error("expected ErrVotingClosed")
	}
	if got := err.Error(); got != "voting is closed: opens in 1d 2h 3m 4s" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestRejectedError(t *testing.T) {
	var err error = &RejectedError{Status: 400, Message: "You have reached your daily vote limit"}
	var rejected *RejectedError
	if !errors.As(err, &rejected) || rejected.Status != 400 {
		t.Fatal("expected errors.As to find the rejection")
	}
	if !errors.Is(err, ErrRejectedByServer) || errors.Is(err, ErrNetwork) {
		t.Error("unexpected classification")
	}
	if (&RejectedError{}).Error() != ErrRejectedByServer.Error() {
		t.Error("empty message should fall back to the sentinel text")
	}
}
