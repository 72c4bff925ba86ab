package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainerrors "github.com/saxenaaman628/contestant-voting-client/internal/domain/errors"
	"github.com/saxenaaman628/contestant-voting-client/internal/eligibility"
	"github.com/saxenaaman628/contestant-voting-client/internal/models"
)

// Confirm is the confirmation step shown before a vote is submitted. It
// returns true only on explicit confirmation.
type Confirm func(contestant models.Contestant) bool

// RequestVote checks the voting window, then eligibility, then asks confirm
// and submits. A nil confirm counts as declined. The window is checked again
// once confirm returns, since it may close while the visitor decides.
func (c *Controller) RequestVote(ctx context.Context, contestantID string, confirm Confirm) error {
	now := c.now()
	if err := c.windowOpen(now); err != nil {
		return err
	}

	c.mu.Lock()
	stale := c.record.Stale(now)
	c.mu.Unlock()
	if stale {
		c.LoadEligibility(ctx)
	}

	c.mu.Lock()
	rec := c.record.Clone()
	contestant, found := c.findLocked(contestantID)
	loaded := c.loaded
	c.mu.Unlock()

	if err := rec.Allow(contestantID); err != nil {
		c.logger.Info("vote refused locally",
			"event", "voting_request_refused",
			"contestant_id", contestantID,
			"reason", err.Error(),
		)
		return fmt.Errorf("vote for %s: %w", contestantID, err)
	}
	if loaded && !found {
		return fmt.Errorf("%w: %s", domainerrors.ErrUnknownContestant, contestantID)
	}
	if !found {
		contestant = models.Contestant{ID: contestantID}
	}

	if confirm == nil || !confirm(contestant) {
		return domainerrors.ErrVoteCancelled
	}
	if err := c.windowOpen(c.now()); err != nil {
		return err
	}
	return c.SubmitVote(ctx, contestantID)
}

func (c *Controller) windowOpen(now time.Time) error {
	window := c.policy.Evaluate(now)
	if window.IsOpen {
		return nil
	}
	return &domainerrors.ClosedError{
		OpensAt:   window.NextTransitionAt,
		Remaining: window.Remaining(now),
		Countdown: window.Countdown(now).String(),
	}
}

// SubmitVote posts the vote. On success the eligibility record is updated
// from the server's response and the contestant list is reloaded. A server
// rejection leaves the record alone and forces a reload of both. A network
// failure changes nothing. When the vote is accepted but the record cannot be
// persisted, the returned error wraps ErrEligibilityNotPersisted.
func (c *Controller) SubmitVote(ctx context.Context, contestantID string) error {
	res, err := c.api.Submit(ctx, contestantID)
	if err != nil {
		var rejected *domainerrors.RejectedError
		if errors.As(err, &rejected) {
			c.logger.Warn("vote rejected by server, reloading",
				"event", "voting_submit_rejected",
				"contestant_id", contestantID,
				"message", rejected.Message,
			)
			c.LoadEligibility(ctx)
			_ = c.LoadContestants(ctx)
			return err
		}
		c.logger.Warn("vote submission failed",
			"event", "voting_submit_failed",
			"contestant_id", contestantID,
			"error", err.Error(),
		)
		return err
	}

	now := c.now()
	c.mu.Lock()
	name := res.ContestantName
	if name == "" {
		if ct, ok := c.findLocked(contestantID); ok {
			name = ct.Name
		}
	}
	next, complete := c.record.AfterVote(eligibility.Vote{
		ContestantID:   contestantID,
		ContestantName: name,
		Time:           now,
		RemainingVotes: res.RemainingVotes,
	})
	c.record = next
	snap := c.mutateLocked(now)
	c.mu.Unlock()

	c.logger.Info("vote submitted",
		"event", "voting_submit_succeeded",
		"contestant_id", contestantID,
		"contestant_name", name,
		"summary", next.Summary(),
	)
	c.notify(EventEligibility, snap)

	persistErr := c.source.Remember(ctx, next)
	if persistErr != nil {
		c.logger.Error("failed to persist eligibility",
			"event", "voting_eligibility_persist_failed",
			"kind", next.Kind.String(),
			"error", persistErr.Error(),
		)
	}
	if !complete {
		c.LoadEligibility(ctx)
	}
	_ = c.LoadContestants(ctx)
	if persistErr != nil {
		return fmt.Errorf("%w: %v", domainerrors.ErrEligibilityNotPersisted, persistErr)
	}
	return nil
}

func (c *Controller) findLocked(id string) (models.Contestant, bool) {
	for _, ct := range c.contestants {
		if ct.ID == id {
			return ct, true
		}
	}
	return models.Contestant{}, false
}
