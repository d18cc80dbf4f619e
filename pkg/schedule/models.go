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

// Package schedule holds the canonical poster model and the time-based
// selection logic that decides which poster a screen shows right now.
package schedule

import (
	"sort"
	"time"
)

// Item is a schedulable poster record. Items are created on each successful
// API fetch and superseded, never mutated, by the next fetch.
type Item struct {
	StartTime time.Time
	EndTime   time.Time
	Title     string
	ImageURL  string
	Location  string
	Presenter string
	ID        int
}

// HasWindow reports whether the item carries a display window. Items without
// one are cached for the renderer's menu but never auto-selected.
func (i *Item) HasWindow() bool {
	return !i.StartTime.IsZero() && !i.EndTime.IsZero()
}

// ActiveAt reports whether now falls inside the item's window, using the
// half-open convention start <= now < end.
func (i *Item) ActiveAt(now time.Time) bool {
	if !i.HasWindow() {
		return false
	}
	return !now.Before(i.StartTime) && now.Before(i.EndTime)
}

// Snapshot is an immutable ordered set of items valid at a point in time.
// Snapshots are replaced whole; the renderer never observes a partial update.
type Snapshot struct {
	FetchedAt time.Time
	Items     []Item
}

// NewSnapshot copies and orders items by start time, then id, so selection
// scans and API listings are deterministic.
func NewSnapshot(items []Item, fetchedAt time.Time) Snapshot {
	ordered := make([]Item, len(items))
	copy(ordered, items)
	sort.Slice(ordered, func(a, b int) bool {
		if !ordered[a].StartTime.Equal(ordered[b].StartTime) {
			return ordered[a].StartTime.Before(ordered[b].StartTime)
		}
		return ordered[a].ID < ordered[b].ID
	})
	return Snapshot{FetchedAt: fetchedAt, Items: ordered}
}

// Empty reports whether the snapshot holds no items at all.
func (s Snapshot) Empty() bool {
	return len(s.Items) == 0
}

// Find returns the item with the given id, or nil.
func (s Snapshot) Find(id int) *Item {
	for idx := range s.Items {
		if s.Items[idx].ID == id {
			return &s.Items[idx]
		}
	}
	return nil
}
