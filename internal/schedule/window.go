// Package schedule decides whether voting is open for a weekly window and when
// the window next opens or closes.
package schedule

import (
	"fmt"
	"time"
)

// Config is a weekly voting window. Weekdays follow time.Weekday (0 = Sunday).
// Voting opens on OpenWeekday at OpenHour and stays open through the end of
// CloseWeekday. The window may not wrap around the end of the week.
type Config struct {
	OpenWeekday  int
	OpenHour     int
	CloseWeekday int
}

// DefaultConfig is Monday 6 AM through Friday 11:59 PM.
var DefaultConfig = Config{OpenWeekday: 1, OpenHour: 6, CloseWeekday: 5}

func (c Config) Validate() error {
	if c.OpenWeekday < 0 || c.OpenWeekday > 6 {
		return fmt.Errorf("open weekday %d out of range 0-6", c.OpenWeekday)
	}
	if c.CloseWeekday < 0 || c.CloseWeekday > 6 {
		return fmt.Errorf("close weekday %d out of range 0-6", c.CloseWeekday)
	}
	if c.OpenHour < 0 || c.OpenHour > 23 {
		return fmt.Errorf("open hour %d out of range 0-23", c.OpenHour)
	}
	if c.OpenWeekday > c.CloseWeekday {
		return fmt.Errorf("open weekday %d is after close weekday %d", c.OpenWeekday, c.CloseWeekday)
	}
	return nil
}

// Describe renders the window the way the site footer shows it, e.g.
// "Monday 6 AM - Friday 11:59 PM".
func (c Config) Describe() string {
	return fmt.Sprintf("%s %s - %s 11:59 PM",
		time.Weekday(c.OpenWeekday), formatHour(c.OpenHour), time.Weekday(c.CloseWeekday))
}

// Window is the voting state at one instant.
type Window struct {
	IsOpen           bool
	NextTransitionAt time.Time
}

// Remaining is the time left until the next transition, never negative.
func (w Window) Remaining(now time.Time) time.Duration {
	d := w.NextTransitionAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

func (w Window) Countdown(now time.Time) Countdown {
	return CountdownFrom(w.Remaining(now))
}

// Message is the status line shown next to the countdown.
func (w Window) Message(now time.Time) string {
	if w.IsOpen {
		return "Voting is OPEN! Closes in " + w.Countdown(now).String()
	}
	return "Voting is CLOSED - Opens in " + w.Countdown(now).String()
}

type Policy struct {
	cfg Config
}

func NewPolicy(cfg Config) (Policy, error) {
	if err := cfg.Validate(); err != nil {
		return Policy{}, err
	}
	return Policy{cfg: cfg}, nil
}

func (p Policy) Config() Config { return p.cfg }

// IsOpen reports whether votes are accepted at now, in now's location.
func (p Policy) IsOpen(now time.Time) bool {
	day := int(now.Weekday())
	hour := now.Hour()

	switch {
	case day < p.cfg.OpenWeekday:
		return false
	case day == p.cfg.OpenWeekday:
		return hour >= p.cfg.OpenHour
	case day <= p.cfg.CloseWeekday:
		return true
	default:
		return false
	}
}

// Evaluate returns the window state at now. It is a pure function of now and
// the configuration and must be called again on every tick.
func (p Policy) Evaluate(now time.Time) Window {
	if p.IsOpen(now) {
		return Window{IsOpen: true, NextTransitionAt: p.closeAt(now)}
	}
	return Window{IsOpen: false, NextTransitionAt: p.openAt(now)}
}

// closeAt is the end of CloseWeekday in the current week. Only meaningful
// while open, where the close day is never behind today.
func (p Policy) closeAt(now time.Time) time.Time {
	days := p.cfg.CloseWeekday - int(now.Weekday())
	if days < 0 {
		days += 7
	}
	y, m, d := now.Date()
	return time.Date(y, m, d+days, 23, 59, 59, int(999*time.Millisecond), now.Location())
}

func (p Policy) openAt(now time.Time) time.Time {
	days := (p.cfg.OpenWeekday - int(now.Weekday()) + 7) % 7
	y, m, d := now.Date()
	next := time.Date(y, m, d+days, p.cfg.OpenHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(y, m, d+days+7, p.cfg.OpenHour, 0, 0, 0, now.Location())
	}
	return next
}

// Countdown splits a duration into whole days, hours, minutes and seconds.
type Countdown struct {
	Days    int
	Hours   int
	Minutes int
	Seconds int
}

func CountdownFrom(d time.Duration) Countdown {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return Countdown{
		Days:    total / 86400,
		Hours:   (total % 86400) / 3600,
		Minutes: (total % 3600) / 60,
		Seconds: total % 60,
	}
}

func (c Countdown) String() string {
	return fmt.Sprintf("%dd %dh %dm %ds", c.Days, c.Hours, c.Minutes, c.Seconds)
}

func formatHour(h int) string {
	switch {
	case h == 0:
		return "12 AM"
	case h < 12:
		return fmt.Sprintf("%d AM", h)
	case h == 12:
		return "12 PM"
	default:
		return fmt.Sprintf("%d PM", h-12)
	}
}
