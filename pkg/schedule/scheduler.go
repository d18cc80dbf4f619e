// ePoster Core
// Copyright (c) 2026 The PosterBridge Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of ePoster Core.
//
// ePoster Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// ePoster Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with ePoster Core.  If not, see <http://www.gnu.org/licenses/>.

package schedule

import "time"

// SelectionState classifies how the selected item relates to the clock.
type SelectionState string

const (
	// StateActive means the item's window contains now.
	StateActive SelectionState = "active"
	// StateUpcoming means no item is active and this one starts soonest.
	StateUpcoming SelectionState = "upcoming"
	// StateFallback means every window has ended; the most recently
	// concluded item is shown so the screen is never blank.
	StateFallback SelectionState = "fallback"
	// StateNoContent means the snapshot holds nothing selectable.
	StateNoContent SelectionState = "no_content"
	// StatePinned means an operator pinned the item, bypassing the clock.
	StatePinned SelectionState = "pinned"
)

// Selection is the scheduler's verdict for a single point in time.
type Selection struct {
	Item     *Item
	State    SelectionState
	Duration time.Duration
}

// IsFallback reports whether the renderer is showing stale content.
func (s Selection) IsFallback() bool {
	return s.State == StateFallback
}

// SelectCurrent picks the item a screen should display at now. It is pure:
// callers re-invoke it on their own cadence and it never mutates the
// snapshot.
//
// Priority order: an active item (latest start wins, then lowest id), else
// the soonest upcoming item, else the most recently ended item as a
// fallback. Duration is capped at the next schedule boundary so the
// renderer re-evaluates before a new window opens.
func SelectCurrent(snap Snapshot, now time.Time, displayTime time.Duration) Selection {
	active := pickActive(&snap, now)
	if active != nil {
		boundary := active.EndTime
		if next := pickUpcoming(&snap, now); next != nil && next.StartTime.Before(boundary) {
			boundary = next.StartTime
		}
		return Selection{
			Item:     active,
			State:    StateActive,
			Duration: clampDuration(displayTime, boundary.Sub(now)),
		}
	}

	if next := pickUpcoming(&snap, now); next != nil {
		return Selection{
			Item:     next,
			State:    StateUpcoming,
			Duration: clampDuration(displayTime, next.StartTime.Sub(now)),
		}
	}

	if last := pickFallback(&snap, now); last != nil {
		return Selection{
			Item:     last,
			State:    StateFallback,
			Duration: displayTime,
		}
	}

	return Selection{State: StateNoContent, Duration: displayTime}
}

// pickActive returns the active item with the latest start, tie broken by
// lowest id.
func pickActive(snap *Snapshot, now time.Time) *Item {
	var best *Item
	for idx := range snap.Items {
		it := &snap.Items[idx]
		if !it.ActiveAt(now) {
			continue
		}
		if best == nil ||
			it.StartTime.After(best.StartTime) ||
			(it.StartTime.Equal(best.StartTime) && it.ID < best.ID) {
			best = it
		}
	}
	return best
}

// pickUpcoming returns the item with the smallest start strictly after now,
// tie broken by lowest id.
func pickUpcoming(snap *Snapshot, now time.Time) *Item {
	var best *Item
	for idx := range snap.Items {
		it := &snap.Items[idx]
		if !it.HasWindow() || !it.StartTime.After(now) {
			continue
		}
		if best == nil ||
			it.StartTime.Before(best.StartTime) ||
			(it.StartTime.Equal(best.StartTime) && it.ID < best.ID) {
			best = it
		}
	}
	return best
}

// pickFallback returns the item with the largest end at or before now, tie
// broken by lowest id.
func pickFallback(snap *Snapshot, now time.Time) *Item {
	var best *Item
	for idx := range snap.Items {
		it := &snap.Items[idx]
		if !it.HasWindow() || it.EndTime.After(now) {
			continue
		}
		if best == nil ||
			it.EndTime.After(best.EndTime) ||
			(it.EndTime.Equal(best.EndTime) && it.ID < best.ID) {
			best = it
		}
	}
	return best
}

func clampDuration(displayTime, untilBoundary time.Duration) time.Duration {
	if untilBoundary > 0 && untilBoundary < displayTime {
		return untilBoundary
	}
	return displayTime
}
