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

// DeviceID is the screen number this unit claims when picking its records
// out of the schedule API response.
func (c *Instance) DeviceID() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Display.DeviceID
}

func (c *Instance) SetDeviceID(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Display.DeviceID = id
}

// DisplayTime is how long the renderer holds a poster before re-evaluating,
// absent a nearer schedule boundary.
func (c *Instance) DisplayTime() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.vals.Display.DisplayTime) * time.Second
}

// Rotation is an opaque passthrough for the renderer, in degrees.
func (c *Instance) Rotation() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Display.Rotation
}
