// Package mute implements the daily quiet-window check. The window is a pure
// configuration value; evaluation has no side effects and no clock of its own.
package mute

import (
	"fmt"
	"time"
)

// Window is a daily time-of-day interval during which delivery is suppressed.
// From and To are minutes since midnight. From > To means the window wraps
// past midnight. A zero-width window (From == To) never mutes.
type Window struct {
	From int
	To   int
}

// ParseWindow builds a Window from "HH:MM" strings
func ParseWindow(from, to string) (Window, error) {
	f, err := parseMinutes(from)
	if err != nil {
		return Window{}, fmt.Errorf("parse mute from: %w", err)
	}
	t, err := parseMinutes(to)
	if err != nil {
		return Window{}, fmt.Errorf("parse mute to: %w", err)
	}
	return Window{From: f, To: t}, nil
}

// Contains reports whether now falls inside the window. The lower bound is
// inclusive and the upper bound exclusive, so a 22:00-06:00 window mutes
// 22:00 and 05:59 but not 06:00.
func (w Window) Contains(now time.Time) bool {
	if w.From == w.To {
		return false
	}
	minute := now.Hour()*60 + now.Minute()
	if w.From < w.To {
		return w.From <= minute && minute < w.To
	}
	// wraps midnight
	return minute >= w.From || minute < w.To
}

// IsZero reports whether the window is unset
func (w Window) IsZero() bool {
	return w.From == 0 && w.To == 0
}

func parseMinutes(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
