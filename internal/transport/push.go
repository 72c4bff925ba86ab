// Package transport delivers live tally updates from the voting server.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/saxenaaman628/contestant-voting-client/internal/models"
)

// ErrUnavailable means no push channel could be established.
var ErrUnavailable = errors.New("push transport unavailable")

// Push is a persistent server-to-client channel.
type Push interface {
	// Run connects, sends the subscription handshake, calls onConnected and
	// then delivers each update in arrival order. It blocks until ctx is done,
	// returning nil, or the connection ends, returning the reason.
	Run(ctx context.Context, onConnected func(), onUpdate func(models.TallyUpdateEvent)) error
}

// None is used when push is disabled.
type None struct{}

func (None) Run(context.Context, func(), func(models.TallyUpdateEvent)) error {
	return ErrUnavailable
}

// Decode parses one push frame. ok is false for events other than voteUpdate.
func Decode(raw []byte) (ev models.TallyUpdateEvent, ok bool, err error) {
	var msg models.PushMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return ev, false, fmt.Errorf("decode push frame: %w", err)
	}
	if msg.Event != models.EventVoteUpdate {
		return ev, false, nil
	}
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		return ev, false, fmt.Errorf("decode %s: %w", msg.Event, err)
	}
	if ev.ContestantID == "" {
		return ev, false, fmt.Errorf("decode %s: missing contestantId", msg.Event)
	}
	return ev, true, nil
}
