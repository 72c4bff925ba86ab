// Package controller owns the client-side voting session: the contestant
// list with derived stats, the visitor's eligibility, the voting window and
// the live-update connection. Consumers read snapshots and subscribe to
// change events; they never mutate controller state.
package controller

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/saxenaaman628/contestant-voting-client/internal/clock"
	"github.com/saxenaaman628/contestant-voting-client/internal/eligibility"
	"github.com/saxenaaman628/contestant-voting-client/internal/models"
	"github.com/saxenaaman628/contestant-voting-client/internal/schedule"
	"github.com/saxenaaman628/contestant-voting-client/internal/stats"
	"github.com/saxenaaman628/contestant-voting-client/internal/transport"
)

const (
	DefaultPollInterval = 30 * time.Second
	countdownInterval   = time.Second
)

type ConnectionMode string

const (
	ModeDisconnected  ConnectionMode = "disconnected"
	ModeConnecting    ConnectionMode = "connecting"
	ModePushConnected ConnectionMode = "push-connected"
	ModePolling       ConnectionMode = "polling"
)

var (
	ErrAlreadyStarted = errors.New("controller already started")
	ErrDisposed       = errors.New("controller disposed")
)

// VotingAPI is the part of the remote API the controller calls directly.
// Eligibility status is read through the eligibility.Source.
type VotingAPI interface {
	Contestants(ctx context.Context) (models.ContestantList, error)
	Submit(ctx context.Context, contestantID string) (models.SubmitVoteResult, error)
}

type Options struct {
	API         VotingAPI
	Eligibility eligibility.Source
	// Push may be nil, which behaves like transport.None.
	Push transport.Push
	// Policy defaults to schedule.DefaultConfig when left zero.
	Policy schedule.Policy
	Clock  clock.Clock
	// Location is where the schedule is evaluated. Defaults to the clock's.
	Location        *time.Location
	PollInterval    time.Duration
	PollingFallback bool
	Logger          *slog.Logger
}

type EventKind string

const (
	EventContestants EventKind = "contestants"
	EventEligibility EventKind = "eligibility"
	EventWindow      EventKind = "window"
	EventConnection  EventKind = "connection"
)

// Event tells subscribers what changed, with the state right after the change.
type Event struct {
	Kind     EventKind
	Snapshot Snapshot
}

// Snapshot is a read-only copy of the controller state. Version increases
// with every mutation, so a subscriber can drop an older snapshot delivered
// after a newer one.
type Snapshot struct {
	Version uint64
	Now     time.Time

	Contestants []models.Contestant
	Ranking     []models.Contestant
	Leader      *models.Contestant
	// TotalVotes is the sum of contestant votes, the percentage denominator.
	TotalVotes int64
	// ServerTotalVotes is the aggregate last reported by the server.
	ServerTotalVotes int64
	TotalContestants int
	Loaded           bool

	Eligibility        eligibility.Record
	EligibilitySummary string

	Window        schedule.Window
	Countdown     schedule.Countdown
	WindowMessage string

	Connection ConnectionMode
}

// Clone returns a copy sharing no slices or maps with s.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Contestants = append([]models.Contestant(nil), s.Contestants...)
	out.Ranking = append([]models.Contestant(nil), s.Ranking...)
	if s.Leader != nil {
		leader := *s.Leader
		out.Leader = &leader
	}
	out.Eligibility = s.Eligibility.Clone()
	return out
}

type Controller struct {
	api             VotingAPI
	source          eligibility.Source
	push            transport.Push
	policy          schedule.Policy
	clock           clock.Clock
	location        *time.Location
	pollInterval    time.Duration
	pollingFallback bool
	logger          *slog.Logger

	mu               sync.Mutex
	version          uint64
	contestants      []models.Contestant
	derived          stats.Derived
	serverTotalVotes int64
	totalContestants int
	loaded           bool
	record           eligibility.Record
	mode             ConnectionMode
	subscribers      map[int]func(Event)
	nextSubscriber   int
	tasks            []clock.Task
	started          bool
	disposed         bool
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
}

func New(opts Options) (*Controller, error) {
	if opts.API == nil {
		return nil, errors.New("controller: API is required")
	}
	if opts.Eligibility == nil {
		return nil, errors.New("controller: eligibility source is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Push == nil {
		opts.Push = transport.None{}
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if (opts.Policy == schedule.Policy{}) {
		policy, err := schedule.NewPolicy(schedule.DefaultConfig)
		if err != nil {
			return nil, err
		}
		opts.Policy = policy
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		api:             opts.API,
		source:          opts.Eligibility,
		push:            opts.Push,
		policy:          opts.Policy,
		clock:           opts.Clock,
		location:        opts.Location,
		pollInterval:    opts.PollInterval,
		pollingFallback: opts.PollingFallback,
		logger:          ResolveLogger(opts.Logger),
		record:          opts.Eligibility.Empty(),
		mode:            ModeDisconnected,
		subscribers:     map[int]func(Event){},
		ctx:             ctx,
		cancel:          cancel,
	}, nil
}

// ResolveLogger guarantees a non-nil logger.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// Start loads the initial state, starts the countdown tick and connects the
// push transport, falling back to polling when push is unavailable. A failed
// initial contestant load is returned but the controller keeps running.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.disposed:
		c.mu.Unlock()
		return ErrDisposed
	case c.started:
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.tasks = append(c.tasks, c.clock.Every(countdownInterval, c.tick))
	c.mu.Unlock()

	loadErr := c.LoadContestants(ctx)
	c.LoadEligibility(ctx)
	c.connect()
	return loadErr
}

// Dispose stops every task and the push connection. Subscribers receive no
// further events. It is safe to call more than once.
func (c *Controller) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	for _, task := range c.tasks {
		task.Stop()
	}
	c.tasks = nil
	c.subscribers = map[int]func(Event){}
	c.mode = ModeDisconnected
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()
	c.logger.Info("voting controller disposed", "event", "voting_controller_disposed")
}

// Subscribe registers fn for state-change events and returns a function that
// removes it. fn runs on the goroutine that caused the change and must not
// block for long.
func (c *Controller) Subscribe(fn func(Event)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubscriber
	c.nextSubscriber++
	c.subscribers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// Snapshot returns the current state with the window evaluated now.
func (c *Controller) Snapshot() Snapshot {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(now)
}

// Mode returns the current connection mode.
func (c *Controller) Mode() ConnectionMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Controller) now() time.Time {
	now := c.clock.Now()
	if c.location != nil {
		now = now.In(c.location)
	}
	return now
}

func (c *Controller) snapshotLocked(now time.Time) Snapshot {
	w := c.policy.Evaluate(now)
	s := Snapshot{
		Version:            c.version,
		Now:                now,
		TotalVotes:         c.derived.TotalVotes,
		ServerTotalVotes:   c.serverTotalVotes,
		TotalContestants:   c.totalContestants,
		Loaded:             c.loaded,
		Eligibility:        c.record,
		EligibilitySummary: c.record.Summary(),
		Window:             w,
		Countdown:          w.Countdown(now),
		WindowMessage:      w.Message(now),
		Connection:         c.mode,
		Contestants:        c.derived.Contestants,
		Ranking:            c.derived.Ranking,
		Leader:             c.derived.Leader,
	}
	return s.Clone()
}

// mutateLocked bumps the version and returns the resulting snapshot.
func (c *Controller) mutateLocked(now time.Time) Snapshot {
	c.version++
	return c.snapshotLocked(now)
}

func (c *Controller) notify(kind EventKind, snap Snapshot) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	ids := make([]int, 0, len(c.subscribers))
	for id := range c.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Event), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.subscribers[id])
	}
	c.mu.Unlock()

	for i, fn := range fns {
		s := snap
		if i > 0 {
			s = snap.Clone()
		}
		fn(Event{Kind: kind, Snapshot: s})
	}
}

func (c *Controller) setMode(mode ConnectionMode) {
	now := c.now()
	c.mu.Lock()
	if c.disposed || c.mode == mode {
		c.mu.Unlock()
		return
	}
	c.mode = mode
	snap := c.mutateLocked(now)
	c.mu.Unlock()

	c.logger.Info("voting connection mode changed", "event", "voting_connection_mode_changed", "mode", string(mode))
	c.notify(EventConnection, snap)
}

// tick re-evaluates the window. Nothing about the window is cached between
// ticks.
func (c *Controller) tick() {
	now := c.now()
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	snap := c.snapshotLocked(now)
	c.mu.Unlock()
	c.notify(EventWindow, snap)
}
