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

package platforms

type Settings struct {
	// DataDir is the root folder where the image cache and databases are
	// permanently stored. WARNING: This value should be accessed using the
	// DataDir function in the helpers package.
	DataDir string
	// ConfigDir is the directory where the config file is stored. WARNING:
	// This value should be accessed using the ConfigDir function in the
	// helpers package.
	ConfigDir string
	// TempDir is a temporary directory where the logs and pid file are
	// stored. Expect it to be deleted between boots.
	TempDir string
}

// Platform is the small surface the daemon needs from the host device. The
// signage image only ships on Linux but tests substitute their own
// implementation to redirect all paths into a temp dir.
type Platform interface {
	// ID returns the unique identifier of the platform.
	ID() string
	// Settings returns the platform's filesystem layout.
	// NOTE: Some values on the Settings struct should be accessed using
	// helper functions in the helpers package instead of directly.
	Settings() Settings
}
