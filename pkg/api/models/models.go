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

package models

import "time"

const (
	NotificationSnapshotUpdated     = "snapshot.updated"
	NotificationConnectivityChanged = "connectivity.changed"
	NotificationSelectionPinned     = "selection.pinned"
	NotificationSelectionUnpinned   = "selection.unpinned"
)

// Notification is a server-push event broadcast to all websocket clients.
type Notification struct {
	Params any    `json:"params,omitempty"`
	Method string `json:"method"`
}

// ItemResponse is the wire form of a schedule item.
type ItemResponse struct {
	StartTime *time.Time `json:"startTime,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Title     string     `json:"title"`
	Location  string     `json:"location,omitempty"`
	Presenter string     `json:"presenter,omitempty"`
	MediaURL  string     `json:"mediaUrl"`
	ID        int        `json:"id"`
}

// SelectionResponse is the renderer contract: what to show right now, why,
// and for how long before asking again.
type SelectionResponse struct {
	Item            *ItemResponse `json:"item,omitempty"`
	State           string        `json:"state"`
	DurationSeconds int           `json:"durationSeconds"`
	IsFallback      bool          `json:"isFallback"`
}

// SnapshotUpdatedParams accompanies a snapshot.updated notification.
type SnapshotUpdatedParams struct {
	FetchedAt time.Time `json:"fetchedAt"`
	Items     int       `json:"items"`
}

// ConnectivityChangedParams accompanies a connectivity.changed notification.
type ConnectivityChangedParams struct {
	Status string `json:"status"`
}

// PinnedParams accompanies a selection.pinned notification.
type PinnedParams struct {
	ID int `json:"id"`
}

// StatusResponse summarises device health for dashboards.
type StatusResponse struct {
	SnapshotFetchedAt *time.Time `json:"snapshotFetchedAt,omitempty"`
	Version           string     `json:"version"`
	BootUUID          string     `json:"bootUuid"`
	Connectivity      string     `json:"connectivity"`
	Items             int        `json:"items"`
	PinnedID          int        `json:"pinnedId,omitempty"`
	RotationDegrees   int        `json:"rotationDegrees"`
}

// ErrorResponse is the body for any non-2xx REST response.
type ErrorResponse struct {
	Error string `json:"error"`
}
