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

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(hour, minute int) time.Time {
	return time.Date(2026, 3, 14, hour, minute, 0, 0, time.Local)
}

func window(id, startHour, endHour int) Item {
	return Item{
		ID:        id,
		Title:     "poster",
		StartTime: day(startHour, 0),
		EndTime:   day(endHour, 0),
		ImageURL:  "https://example.com/poster.png",
	}
}

func TestSelectCurrent(t *testing.T) {
	t.Parallel()

	displayTime := 5 * time.Minute
	itemA := window(1, 9, 10)
	itemB := window(2, 10, 11)

	tests := []struct {
		now          time.Time
		name         string
		wantState    SelectionState
		items        []Item
		wantID       int
		wantDuration time.Duration
	}{
		{
			name:         "active item mid-window",
			items:        []Item{itemA, itemB},
			now:          day(9, 30),
			wantState:    StateActive,
			wantID:       1,
			wantDuration: displayTime,
		},
		{
			name:         "active switches at boundary",
			items:        []Item{itemA, itemB},
			now:          day(10, 5),
			wantState:    StateActive,
			wantID:       2,
			wantDuration: displayTime,
		},
		{
			name:         "all windows ended falls back to latest end",
			items:        []Item{itemA, itemB},
			now:          day(12, 0),
			wantState:    StateFallback,
			wantID:       2,
			wantDuration: displayTime,
		},
		{
			name:         "before all windows selects soonest upcoming",
			items:        []Item{itemA, itemB},
			now:          day(8, 0),
			wantState:    StateUpcoming,
			wantID:       1,
			wantDuration: displayTime,
		},
		{
			name:         "upcoming duration capped at its start",
			items:        []Item{itemA},
			now:          day(8, 58),
			wantState:    StateUpcoming,
			wantID:       1,
			wantDuration: 2 * time.Minute,
		},
		{
			name:         "active duration capped at own end",
			items:        []Item{itemA},
			now:          day(9, 57),
			wantState:    StateActive,
			wantID:       1,
			wantDuration: 3 * time.Minute,
		},
		{
			name: "active duration capped at overlapping next start",
			items: []Item{
				window(1, 9, 12),
				window(2, 10, 11),
			},
			now:          day(9, 58),
			wantState:    StateActive,
			wantID:       1,
			wantDuration: 2 * time.Minute,
		},
		{
			name: "overlapping active items prefer later start",
			items: []Item{
				window(1, 9, 12),
				window(2, 10, 11),
			},
			now:          day(10, 30),
			wantState:    StateActive,
			wantID:       2,
			wantDuration: displayTime,
		},
		{
			name: "equal starts prefer lower id",
			items: []Item{
				window(7, 9, 11),
				window(3, 9, 10),
			},
			now:          day(9, 30),
			wantState:    StateActive,
			wantID:       3,
			wantDuration: displayTime,
		},
		{
			name: "equal fallback ends prefer lower id",
			items: []Item{
				window(9, 8, 10),
				window(4, 9, 10),
			},
			now:          day(11, 0),
			wantState:    StateFallback,
			wantID:       4,
			wantDuration: displayTime,
		},
		{
			name: "windowless items are never selected",
			items: []Item{
				{ID: 5, ImageURL: "https://example.com/5.png"},
			},
			now:       day(9, 0),
			wantState: StateNoContent,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			snap := NewSnapshot(tt.items, day(0, 0))
			sel := SelectCurrent(snap, tt.now, displayTime)

			assert.Equal(t, tt.wantState, sel.State)
			if tt.wantState == StateNoContent {
				assert.Nil(t, sel.Item)
				return
			}
			require.NotNil(t, sel.Item)
			assert.Equal(t, tt.wantID, sel.Item.ID)
			if tt.wantDuration > 0 {
				assert.Equal(t, tt.wantDuration, sel.Duration)
			}
		})
	}
}

func TestSelectCurrentEmptySnapshot(t *testing.T) {
	t.Parallel()

	sel := SelectCurrent(Snapshot{}, day(9, 0), time.Minute)
	assert.Equal(t, StateNoContent, sel.State)
	assert.Nil(t, sel.Item)
	assert.False(t, sel.IsFallback())
}

func TestSelectCurrentStateIsExclusive(t *testing.T) {
	t.Parallel()

	// Sweep a full day in coarse steps and check the returned state always
	// matches its time predicate.
	items := []Item{
		window(1, 9, 10),
		window(2, 10, 11),
		window(3, 14, 15),
	}
	snap := NewSnapshot(items, day(0, 0))

	for hour := 0; hour < 24; hour++ {
		now := day(hour, 30)
		sel := SelectCurrent(snap, now, time.Minute)
		require.NotNil(t, sel.Item, "non-empty snapshot must always select")

		switch sel.State {
		case StateActive:
			assert.True(t, sel.Item.ActiveAt(now))
		case StateUpcoming:
			assert.True(t, sel.Item.StartTime.After(now))
		case StateFallback:
			assert.False(t, sel.Item.EndTime.After(now))
		case StateNoContent:
			t.Fatalf("no content returned for non-empty snapshot at %s", now)
		}
	}
}

func TestNewSnapshotOrdersAndCopies(t *testing.T) {
	t.Parallel()

	items := []Item{
		window(2, 10, 11),
		window(1, 9, 10),
		window(3, 9, 12),
	}
	snap := NewSnapshot(items, day(0, 0))

	require.Len(t, snap.Items, 3)
	assert.Equal(t, []int{1, 3, 2}, []int{snap.Items[0].ID, snap.Items[1].ID, snap.Items[2].ID})

	// Mutating the input must not affect the snapshot.
	items[0].ID = 99
	assert.NotNil(t, snap.Find(2))
	assert.Nil(t, snap.Find(99))
}
