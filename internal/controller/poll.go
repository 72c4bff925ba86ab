package controller

import (
	"context"
	"errors"

	"github.com/saxenaaman628/contestant-voting-client/internal/models"
	"github.com/saxenaaman628/contestant-voting-client/internal/stats"
	"github.com/saxenaaman628/contestant-voting-client/internal/transport"
)

// LoadContestants replaces the contestant list from the server and
// recomputes every derived value. Failures are returned unchanged (a
// NetworkError) and leave the current list in place.
func (c *Controller) LoadContestants(ctx context.Context) error {
	list, err := c.api.Contestants(ctx)
	if err != nil {
		c.logger.Warn("contestant load failed",
			"event", "voting_contestants_load_failed",
			"error", err.Error(),
		)
		return err
	}

	now := c.now()
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	c.contestants = append([]models.Contestant(nil), list.Contestants...)
	c.derived = stats.Recompute(c.contestants)
	c.serverTotalVotes = list.TotalVotes
	c.totalContestants = list.TotalContestants
	c.loaded = true
	snap := c.mutateLocked(now)
	c.mu.Unlock()

	c.logger.Debug("contestants loaded",
		"event", "voting_contestants_loaded",
		"contestants", len(list.Contestants),
		"total_votes", list.TotalVotes,
	)
	c.notify(EventContestants, snap)
	return nil
}

// LoadEligibility refreshes the eligibility record from its source. A
// failure is logged and the current record is kept.
func (c *Controller) LoadEligibility(ctx context.Context) {
	rec, err := c.source.Load(ctx, c.now())
	if err != nil {
		c.logger.Warn("eligibility load failed",
			"event", "voting_eligibility_load_failed",
			"kind", c.source.Kind().String(),
			"error", err.Error(),
		)
		return
	}

	now := c.now()
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.record = rec
	snap := c.mutateLocked(now)
	c.mu.Unlock()

	c.notify(EventEligibility, snap)
}

// ApplyTallyUpdate merges an absolute tally for one contestant. Updates for
// unknown contestants are ignored. Replaying an update changes nothing.
func (c *Controller) ApplyTallyUpdate(ev models.TallyUpdateEvent) {
	now := c.now()
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	idx := -1
	for i := range c.contestants {
		if c.contestants[i].ID == ev.ContestantID {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		c.logger.Debug("ignoring tally update for unknown contestant",
			"event", "voting_tally_update_unknown",
			"contestant_id", ev.ContestantID,
		)
		return
	}

	changed := c.contestants[idx].Votes != ev.NewVoteCount
	c.contestants[idx].Votes = ev.NewVoteCount
	c.contestants[idx].VotePercentage = ev.VotePercentage
	if ev.TotalVotes > 0 && ev.TotalVotes != c.serverTotalVotes {
		c.serverTotalVotes = ev.TotalVotes
		changed = true
	}
	if !changed {
		c.mu.Unlock()
		return
	}
	c.derived = stats.Recompute(c.contestants)
	snap := c.mutateLocked(now)
	c.mu.Unlock()

	c.notify(EventContestants, snap)
}

// connect runs the push transport in the background. When it cannot connect
// or the connection ends, the controller falls back to polling for the rest
// of its life.
func (c *Controller) connect() {
	if _, none := c.push.(transport.None); none {
		c.fallback(transport.ErrUnavailable)
		return
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	ctx := c.ctx
	c.wg.Add(1)
	c.mu.Unlock()

	c.setMode(ModeConnecting)
	go func() {
		defer c.wg.Done()
		err := c.push.Run(ctx,
			func() { c.setMode(ModePushConnected) },
			c.ApplyTallyUpdate,
		)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errors.New("push connection closed")
		}
		c.fallback(err)
	}()
}

func (c *Controller) fallback(reason error) {
	if !c.pollingFallback {
		c.logger.Warn("push transport unavailable, polling disabled",
			"event", "voting_push_unavailable",
			"error", reason.Error(),
		)
		c.setMode(ModeDisconnected)
		return
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.tasks = append(c.tasks, c.clock.Every(c.pollInterval, c.poll))
	c.mu.Unlock()

	c.logger.Warn("push transport unavailable, falling back to polling",
		"event", "voting_push_fallback",
		"interval", c.pollInterval.String(),
		"error", reason.Error(),
	)
	c.setMode(ModePolling)
}

func (c *Controller) poll() {
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()

	_ = c.LoadContestants(ctx)
	c.LoadEligibility(ctx)
}
