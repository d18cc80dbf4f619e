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

//go:build linux

package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/PosterBridge/eposter-core/pkg/cli"
	"github.com/PosterBridge/eposter-core/pkg/config"
	"github.com/PosterBridge/eposter-core/pkg/platforms/linux"
	"github.com/PosterBridge/eposter-core/pkg/service"
	"github.com/PosterBridge/eposter-core/pkg/service/daemon"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	pl := &linux.Platform{}
	flags := cli.SetupFlags()

	flags.Pre(pl)

	var logWriters []io.Writer
	if *flags.Daemon {
		logWriters = []io.Writer{os.Stderr}
	}

	cfg := cli.Setup(
		pl,
		config.BaseDefaults,
		logWriters,
	)

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	svc, err := daemon.NewService(daemon.ServiceArgs{
		Platform: pl,
		Entry: func() (func() error, <-chan struct{}, error) {
			return service.Start(pl, cfg)
		},
		NoDaemon: !*flags.Daemon,
	})
	if err != nil {
		return fmt.Errorf("error creating service: %w", err)
	}

	if *flags.Service != "" {
		return svc.ServiceHandler(flags.Service)
	}

	// No service command: run in the foreground until interrupted.
	stopSvc, done, err := service.Start(pl, cfg)
	if err != nil {
		log.Error().Msgf("error starting service: %s", err)
		return fmt.Errorf("error starting service: %w", err)
	}

	log.Info().Msg("started in foreground mode")

	sigs := make(chan os.Signal, 1)
	defer close(sigs)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigs:
	case <-done:
	}

	if err := stopSvc(); err != nil {
		log.Error().Msgf("error stopping service: %s", err)
		return fmt.Errorf("error stopping service: %w", err)
	}

	return nil
}
