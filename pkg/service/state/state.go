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

package state

import (
	"context"
	"errors"
	"time"

	"github.com/PosterBridge/eposter-core/pkg/api/models"
	"github.com/PosterBridge/eposter-core/pkg/api/notifications"
	"github.com/PosterBridge/eposter-core/pkg/connectivity"
	"github.com/PosterBridge/eposter-core/pkg/helpers/syncutil"
	"github.com/PosterBridge/eposter-core/pkg/schedule"
	"github.com/rs/zerolog/log"
)

// ErrItemNotFound is returned when pinning an id absent from the snapshot.
var ErrItemNotFound = errors.New("item not found in current snapshot")

// State holds the runtime state of the ePoster service.
//
// LOCKING RULES: The mu mutex protects all mutable fields. To prevent deadlocks:
//   - Never send to channels while holding the lock (notifications)
//   - Pattern: lock → modify state → copy needed data → unlock → send notifications
//
// See SetSnapshot, Pin, SetConnectivity for examples.
type State struct {
	ctx           context.Context
	ctxCancelFunc context.CancelFunc
	Notifications chan<- models.Notification
	bootUUID      string
	snapshot      schedule.Snapshot
	conn          connectivity.Status
	displayTime   time.Duration
	pinnedID      int
	mu            syncutil.RWMutex
	stopService   bool
}

func NewState(bootUUID string, displayTime time.Duration) (state *State, notificationCh <-chan models.Notification) {
	// Buffered so a slow websocket client never blocks the refresh loop.
	ns := make(chan models.Notification, 100)
	ctx, ctxCancelFunc := context.WithCancel(context.Background())
	return &State{
		Notifications: ns,
		ctx:           ctx,
		ctxCancelFunc: ctxCancelFunc,
		bootUUID:      bootUUID,
		conn:          connectivity.StatusUnknown,
		displayTime:   displayTime,
	}, ns
}

// SetSnapshot replaces the published snapshot. A pin pointing at an item
// that left the schedule is cleared.
func (s *State) SetSnapshot(snap schedule.Snapshot) {
	s.mu.Lock()

	s.snapshot = snap

	unpinned := false
	if s.pinnedID != 0 && snap.Find(s.pinnedID) == nil {
		log.Info().Int("item", s.pinnedID).Msg("pinned item left schedule, unpinning")
		s.pinnedID = 0
		unpinned = true
	}

	payload := models.SnapshotUpdatedParams{
		FetchedAt: snap.FetchedAt,
		Items:     len(snap.Items),
	}
	s.mu.Unlock()

	notifications.SnapshotUpdated(s.Notifications, payload)
	if unpinned {
		notifications.SelectionUnpinned(s.Notifications)
	}
}

func (s *State) GetSnapshot() schedule.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// SetDisplayTime sets the per-item dwell duration, which the remote schedule
// may override per event.
func (s *State) SetDisplayTime(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d > 0 {
		s.displayTime = d
	}
}

func (s *State) DisplayTime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.displayTime
}

// SetConnectivity records the latest probe result and notifies clients when
// it changed.
func (s *State) SetConnectivity(status connectivity.Status) {
	s.mu.Lock()
	changed := s.conn != status
	s.conn = status
	s.mu.Unlock()

	if changed {
		notifications.ConnectivityChanged(s.Notifications, string(status))
	}
}

func (s *State) Connectivity() connectivity.Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}

// Pin forces an item to the front of selection until Unpin or until the item
// leaves the schedule.
func (s *State) Pin(id int) error {
	s.mu.Lock()
	if s.snapshot.Find(id) == nil {
		s.mu.Unlock()
		return ErrItemNotFound
	}
	s.pinnedID = id
	s.mu.Unlock()

	notifications.SelectionPinned(s.Notifications, id)
	return nil
}

func (s *State) Unpin() {
	s.mu.Lock()
	wasPinned := s.pinnedID != 0
	s.pinnedID = 0
	s.mu.Unlock()

	if wasPinned {
		notifications.SelectionUnpinned(s.Notifications)
	}
}

func (s *State) PinnedID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pinnedID
}

// GetSelection resolves what the display should show at now. A pinned item
// wins over the clock; otherwise the scheduler decides.
func (s *State) GetSelection(now time.Time) schedule.Selection {
	s.mu.RLock()
	snap := s.snapshot
	pinnedID := s.pinnedID
	displayTime := s.displayTime
	s.mu.RUnlock()

	if pinnedID != 0 {
		if item := snap.Find(pinnedID); item != nil {
			return schedule.Selection{
				Item:     item,
				State:    schedule.StatePinned,
				Duration: displayTime,
			}
		}
	}

	return schedule.SelectCurrent(snap, now, displayTime)
}

func (s *State) BootUUID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bootUUID
}

func (s *State) GetContext() context.Context {
	return s.ctx
}

func (s *State) StopService() {
	s.mu.Lock()
	s.stopService = true
	s.mu.Unlock()
	s.ctxCancelFunc()
}

func (s *State) ShouldStopService() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stopService
}
