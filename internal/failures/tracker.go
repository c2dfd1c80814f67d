// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package failures

import (
	"fmt"
	"log/slog"
	"time"
)

// Action is what RecordFailure decided to do.
type Action int

const (
	// Counted means the stored count was incremented.
	Counted Action = iota
	// Held means the count is past the limit but the hour is outside the
	// restart window, so nothing changed.
	Held
	// Rebooted means the Rebooter was invoked.
	Rebooted
)

func (a Action) String() string {
	switch a {
	case Counted:
		return "counted"
	case Held:
		return "held"
	case Rebooted:
		return "rebooted"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Rebooter restarts the host.
type Rebooter interface {
	Reboot() error
}

// RebooterFunc adapts a function to Rebooter.
type RebooterFunc func() error

func (f RebooterFunc) Reboot() error { return f() }

// Tracker applies the restart policy to a Storage.
//
// Only failed cycles during daylight hours (strictly between StartHour and
// StopHour) can trigger a restart; at night the inverter is expected to be
// off and the count is left alone once it is over the limit.
type Tracker struct {
	Storage     Storage
	MaxFailures int
	StartHour   int
	StopHour    int
	Rebooter    Rebooter
	Now         func() time.Time
}

// NewTracker creates a Tracker that reboots the host through the platform
// Rebooter.
func NewTracker(storage Storage, maxFailures, startHour, stopHour int) *Tracker {
	return &Tracker{
		Storage:     storage,
		MaxFailures: maxFailures,
		StartHour:   startHour,
		StopHour:    stopHour,
		Rebooter:    SystemRebooter{},
		Now:         time.Now,
	}
}

// RecordSuccess resets the count.
func (t *Tracker) RecordSuccess() error {
	if err := t.Storage.Save(0); err != nil {
		return fmt.Errorf("failed to reset failure count: %w", err)
	}
	return nil
}

// RecordFailure registers one failed cycle.
func (t *Tracker) RecordFailure() (Action, error) {
	count, err := t.Storage.Load()
	if err != nil {
		return Counted, fmt.Errorf("failed to load failure count: %w", err)
	}
	slog.Info("Communication failure count", "count", count)

	if count > t.MaxFailures {
		hour := t.now().Hour()
		if hour > t.StartHour && hour < t.StopHour {
			slog.Warn("Rebooting device because of too many failures", "count", count, "hour", hour)
			if err := t.Rebooter.Reboot(); err != nil {
				return Rebooted, fmt.Errorf("reboot failed: %w", err)
			}
			return Rebooted, nil
		}
		return Held, nil
	}

	if err := t.Storage.Save(count + 1); err != nil {
		return Counted, fmt.Errorf("failed to store failure count: %w", err)
	}
	return Counted, nil
}

func (t *Tracker) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}
