// Package clock abstracts wall-clock reads and repeating tasks so the voting
// controller can be driven deterministically in tests.
package clock

import (
	"sort"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
	// Every runs fn each interval d until the returned task is stopped.
	Every(d time.Duration, fn func()) Task
}

type Task interface {
	Stop()
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Every(d time.Duration, fn func()) Task {
	t := &tickerTask{
		ticker: time.NewTicker(d),
		stop:   make(chan struct{}),
	}
	go func() {
		defer t.ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case <-t.ticker.C:
				fn()
			}
		}
	}()
	return t
}

type tickerTask struct {
	ticker *time.Ticker
	stop   chan struct{}
	once   sync.Once
}

func (t *tickerTask) Stop() {
	t.once.Do(func() { close(t.stop) })
}

// Fake is a manually advanced Clock. Tasks fire synchronously inside Advance,
// on the calling goroutine, in due-time order.
type Fake struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	tasks []*fakeTask
}

type fakeTask struct {
	clock    *Fake
	id       int
	interval time.Duration
	next     time.Time
	fn       func()
	stopped  bool
}

func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Every(d time.Duration, fn func()) Task {
	if d <= 0 {
		panic("clock: non-positive interval for Every")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	t := &fakeTask{clock: f, id: f.seq, interval: d, next: f.now.Add(d), fn: fn}
	f.tasks = append(f.tasks, t)
	return t
}

// Set moves the clock to t without firing any task.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
	for _, task := range f.tasks {
		task.next = t.Add(task.interval)
	}
}

// Advance moves the clock forward by d, firing every task that falls due.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		due := f.nextDue(target)
		if due == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = due.next
		due.next = due.next.Add(due.interval)
		fn := due.fn
		f.mu.Unlock()

		fn()
	}
}

// Pending returns the number of live tasks.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (f *Fake) nextDue(target time.Time) *fakeTask {
	live := f.tasks[:0]
	for _, t := range f.tasks {
		if !t.stopped {
			live = append(live, t)
		}
	}
	f.tasks = live
	sort.SliceStable(live, func(i, j int) bool {
		if live[i].next.Equal(live[j].next) {
			return live[i].id < live[j].id
		}
		return live[i].next.Before(live[j].next)
	})
	if len(live) == 0 || live[0].next.After(target) {
		return nil
	}
	return live[0]
}

func (t *fakeTask) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.stopped = true
}
