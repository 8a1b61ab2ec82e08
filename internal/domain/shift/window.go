// internal/domain/shift/window.go
package shift

import (
	"fmt"
	"time"
)

const minutesPerDay = 24 * 60

// TimeOfDay is minutes since midnight, 0..1439.
type TimeOfDay int

// ParseTimeOfDay parses a strict 24-hour "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	if len(s) != len("15:04") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidTimeOfDay, s, err)
	}
	return TimeOfDayOf(t), nil
}

// TimeOfDayOf extracts the time of day of t in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Window is one shift of the daily cycle. End <= Start means it wraps midnight.
type Window struct {
	Number int
	Code   string // shift type used by assignments, e.g. "A"
	Name   string
	Start  TimeOfDay
	End    TimeOfDay
}

// Overnight reports whether the window wraps midnight.
func (w Window) Overnight() bool {
	return w.End <= w.Start
}

// Contains reports whether t falls inside [Start, End).
func (w Window) Contains(t TimeOfDay) bool {
	if w.Overnight() {
		return t >= w.Start || t < w.End
	}
	return t >= w.Start && t < w.End
}

// StartedOn returns the calendar date on which the most recent occurrence of w started, as seen
// from now. Windows that began before midnight belong to yesterday once now is past midnight.
func (w Window) StartedOn(now time.Time) time.Time {
	day := DateOf(now)
	if TimeOfDayOf(now) < w.Start {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

func (w Window) duration() int {
	d := (int(w.End) - int(w.Start) + minutesPerDay) % minutesPerDay
	if d == 0 {
		return minutesPerDay
	}
	return d
}

// Schedule is the ordered, gap-free set of windows covering a day.
type Schedule struct {
	windows []Window
}

// NewSchedule validates that the windows chain end-to-start in cyclic order and cover exactly
// 24 hours.
func NewSchedule(windows []Window) (*Schedule, error) {
	if len(windows) == 0 {
		return nil, fmt.Errorf("%w: no windows", ErrInvalidSchedule)
	}
	seenNumbers := make(map[int]bool, len(windows))
	seenCodes := make(map[string]bool, len(windows))
	total := 0
	for i, w := range windows {
		if seenNumbers[w.Number] {
			return nil, fmt.Errorf("%w: duplicate shift number %d", ErrInvalidSchedule, w.Number)
		}
		if w.Code == "" || seenCodes[w.Code] {
			return nil, fmt.Errorf("%w: missing or duplicate shift code %q", ErrInvalidSchedule, w.Code)
		}
		seenNumbers[w.Number] = true
		seenCodes[w.Code] = true

		next := windows[(i+1)%len(windows)]
		if w.End != next.Start {
			return nil, fmt.Errorf("%w: shift %s ends at %s but shift %s starts at %s",
				ErrInvalidSchedule, w.Code, w.End, next.Code, next.Start)
		}
		total += w.duration()
	}
	if total != minutesPerDay {
		return nil, fmt.Errorf("%w: shifts cover %d minutes, want %d", ErrInvalidSchedule, total, minutesPerDay)
	}
	cp := make([]Window, len(windows))
	copy(cp, windows)
	return &Schedule{windows: cp}, nil
}

// DefaultSchedule is the three-shift day: A 08-16, B 16-00, C 00-08.
func DefaultSchedule() *Schedule {
	s, err := NewSchedule([]Window{
		{Number: 1, Code: "A", Name: "Morning", Start: 8 * 60, End: 16 * 60},
		{Number: 2, Code: "B", Name: "Evening", Start: 16 * 60, End: 0},
		{Number: 3, Code: "C", Name: "Night", Start: 0, End: 8 * 60},
	})
	if err != nil {
		panic(err)
	}
	return s
}

// Windows returns a copy of the ordered windows.
func (s *Schedule) Windows() []Window {
	cp := make([]Window, len(s.windows))
	copy(cp, s.windows)
	return cp
}

// Locate returns the window containing now's time of day.
func (s *Schedule) Locate(now time.Time) Window {
	t := TimeOfDayOf(now)
	for _, w := range s.windows {
		if w.Contains(t) {
			return w
		}
	}
	// unreachable for a validated schedule
	return s.windows[0]
}

// Previous returns the window immediately before w in cyclic order.
func (s *Schedule) Previous(w Window) Window {
	for i, cand := range s.windows {
		if cand.Number == w.Number {
			return s.windows[(i-1+len(s.windows))%len(s.windows)]
		}
	}
	return w
}

// ByCode finds a window by its shift code.
func (s *Schedule) ByCode(code string) (Window, bool) {
	for _, w := range s.windows {
		if w.Code == code {
			return w, true
		}
	}
	return Window{}, false
}

// DateOf truncates t to midnight in t's location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
