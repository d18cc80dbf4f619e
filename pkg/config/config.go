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

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PosterBridge/eposter-core/pkg/helpers/syncutil"
	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"
)

const (
	SchemaVersion = 1
	CfgEnv        = "EPOSTER_CFG"
	AppEnv        = "EPOSTER_APP"
)

type Values struct {
	API          API     `toml:"api"`
	Display      Display `toml:"display,omitempty"`
	Service      Service `toml:"service,omitempty"`
	ConfigSchema int     `toml:"config_schema"`
	DebugLogging bool    `toml:"debug_logging"`
}

type API struct {
	PosterURL       string `toml:"poster_url"       validate:"required,url"`
	EventURL        string `toml:"event_url,omitempty"        validate:"omitempty,url"`
	ProbeURL        string `toml:"probe_url,omitempty"        validate:"omitempty,url"`
	Token           string `toml:"token"            validate:"required"`
	RequestTimeout  int    `toml:"request_timeout,omitempty"  validate:"omitempty,min=1"`
	RefreshInterval int    `toml:"refresh_interval,omitempty" validate:"omitempty,min=1"`
	ProbeTimeout    int    `toml:"probe_timeout,omitempty"    validate:"omitempty,min=1"`
}

type Display struct {
	DeviceID    int `toml:"device_id"`
	DisplayTime int `toml:"display_time,omitempty" validate:"omitempty,min=1"`
	Rotation    int `toml:"rotation_degree,omitempty"`
}

type Service struct {
	APIPort int `toml:"api_port,omitempty" validate:"omitempty,min=1,max=65535"`
}

var BaseDefaults = Values{
	ConfigSchema: SchemaVersion,
	API: API{
		PosterURL:       "https://posterbridge.incandescentsolution.com/api/v1/eposter-list",
		EventURL:        "https://posterbridge.incandescentsolution.com/api/v1/event-data",
		RequestTimeout:  10,
		RefreshInterval: 30,
		ProbeTimeout:    3,
	},
	Display: Display{
		DisplayTime: 300,
	},
	Service: Service{
		APIPort: 7497,
	},
}

type Instance struct {
	appPath  string
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		mu:       syncutil.RWMutex{},
		appPath:  os.Getenv(AppEnv),
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		err := os.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	if _, err := os.Stat(c.cfgPath); err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then unmarshal file values on top.
	// This ensures fields not present in the file retain their default values.
	newVals := c.defaults
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return errors.New("schema version mismatch")
	}

	c.vals = newVals

	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	err = os.WriteFile(c.cfgPath, data, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that required API settings are present. The daemon must not
// start with a missing token or poster URL; a misconfigured display would
// otherwise sit silently blank.
func (c *Instance) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&c.vals); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Instance) Path() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfgPath
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
}
