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

// Package connectivity tracks whether the device can reach the content
// server. The probe tests network reachability only: any HTTP response
// counts as online, including error statuses.
package connectivity

import (
	"context"

	"github.com/PosterBridge/eposter-core/pkg/config"
	"github.com/PosterBridge/eposter-core/pkg/helpers/syncutil"
	"github.com/PosterBridge/eposter-core/pkg/shared/httpclient"
	"github.com/rs/zerolog/log"
)

type Status string

const (
	// StatusUnknown is the state before the first probe completes.
	StatusUnknown Status = "unknown"
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// Monitor probes the content server and tracks transitions between online
// and offline. A transition from offline to online signals the Recovered
// channel so a sync can run immediately instead of waiting for the next
// scheduled tick.
type Monitor struct {
	cfg       *config.Instance
	recovered chan struct{}
	status    Status
	mu        syncutil.RWMutex
}

func NewMonitor(cfg *config.Instance) *Monitor {
	return &Monitor{
		cfg:       cfg,
		status:    StatusUnknown,
		recovered: make(chan struct{}, 1),
	}
}

// Check probes the configured URL and updates the tracked status. The probe
// uses its own short timeout so an unreachable network fails fast instead of
// stalling the refresh loop.
func (m *Monitor) Check(ctx context.Context) Status {
	status := StatusOffline
	client := httpclient.NewClientWithTimeout(m.cfg.ProbeTimeout())
	resp, err := client.Get(ctx, m.cfg.ProbeURL())
	if err == nil {
		status = StatusOnline
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing probe response body")
		}
	}

	m.update(status)
	return status
}

func (m *Monitor) update(status Status) {
	m.mu.Lock()
	prev := m.status
	m.status = status
	m.mu.Unlock()

	if prev == status {
		return
	}

	log.Info().
		Str("from", string(prev)).
		Str("to", string(status)).
		Msg("connectivity changed")

	if prev == StatusOffline && status == StatusOnline {
		select {
		case m.recovered <- struct{}{}:
		default:
		}
	}
}

// Status returns the result of the most recent probe.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Recovered signals once per offline-to-online transition.
func (m *Monitor) Recovered() <-chan struct{} {
	return m.recovered
}
