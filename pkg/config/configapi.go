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

package config

import "time"

func (c *Instance) PosterURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.API.PosterURL
}

func (c *Instance) EventURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.API.EventURL
}

func (c *Instance) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.API.Token
}

// ProbeURL returns the endpoint used for the connectivity probe. Falls back
// to the poster API itself, which is the host that actually matters.
func (c *Instance) ProbeURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.API.ProbeURL != "" {
		return c.vals.API.ProbeURL
	}
	return c.vals.API.PosterURL
}

func (c *Instance) RequestTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.vals.API.RequestTimeout) * time.Second
}

func (c *Instance) RefreshInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.vals.API.RefreshInterval) * time.Second
}

func (c *Instance) ProbeTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.vals.API.ProbeTimeout) * time.Second
}
