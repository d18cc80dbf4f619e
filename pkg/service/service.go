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

// Package service runs the core daemon: the periodic sync loop that fetches
// the remote schedule, reconciles the image cache and publishes snapshots,
// plus the local API server.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/PosterBridge/eposter-core/pkg/api"
	"github.com/PosterBridge/eposter-core/pkg/cache"
	"github.com/PosterBridge/eposter-core/pkg/config"
	"github.com/PosterBridge/eposter-core/pkg/connectivity"
	"github.com/PosterBridge/eposter-core/pkg/database/cachedb"
	"github.com/PosterBridge/eposter-core/pkg/helpers"
	"github.com/PosterBridge/eposter-core/pkg/platforms"
	"github.com/PosterBridge/eposter-core/pkg/posterapi"
	"github.com/PosterBridge/eposter-core/pkg/schedule"
	"github.com/PosterBridge/eposter-core/pkg/service/state"
	"github.com/PosterBridge/eposter-core/pkg/shared/httpclient"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type posterFetcher interface {
	FetchPosters(ctx context.Context) (*posterapi.FetchResult, error)
}

type imageReconciler interface {
	Reconcile(ctx context.Context, items []schedule.Item) (*cache.Result, error)
	Evict(items []schedule.Item) (int, error)
	LoadLastKnown() ([]schedule.Item, error)
	ImagePath(itemID int) (string, error)
}

type connectivityProbe interface {
	Check(ctx context.Context) connectivity.Status
	Recovered() <-chan struct{}
}

type itemStore interface {
	ReplaceItems(items []schedule.Item) error
}

// Service owns the sync loop. Collaborators are interfaces so tests can run
// the loop against fakes and a fake clock.
type Service struct {
	cfg     *config.Instance
	st      *state.State
	fetcher posterFetcher
	rec     imageReconciler
	probe   connectivityProbe
	store   itemStore
	clock   clockwork.Clock
}

// runSync performs one full cycle: probe, fetch, reconcile, publish,
// persist. Any failure keeps the previously published snapshot; stale
// content beats a blank screen.
func (s *Service) runSync(ctx context.Context) {
	if status := s.probe.Check(ctx); status != connectivity.StatusOnline {
		s.st.SetConnectivity(status)
		log.Debug().Msg("offline, skipping sync")
		return
	}

	result, err := s.fetcher.FetchPosters(ctx)
	if err != nil {
		// A reachable probe with a failing API still counts as offline:
		// the device cannot get content either way.
		s.st.SetConnectivity(connectivity.StatusOffline)
		log.Error().Err(err).Msg("failed to fetch posters")
		return
	}
	s.st.SetConnectivity(connectivity.StatusOnline)

	if result.DisplayTime > 0 {
		s.st.SetDisplayTime(result.DisplayTime)
	} else {
		s.st.SetDisplayTime(s.cfg.DisplayTime())
	}

	if len(result.Items) == 0 {
		// An empty response is indistinguishable from a portal mishap, so
		// the previous snapshot stays published.
		log.Warn().Msg("api returned no items, keeping current snapshot")
		return
	}

	recResult, err := s.rec.Reconcile(ctx, result.Items)
	if err != nil {
		if errors.Is(err, cache.ErrReconcileInFlight) {
			log.Debug().Msg("reconcile still running, skipping cycle")
			return
		}
		log.Error().Err(err).Msg("failed to reconcile image cache")
		return
	}
	if recResult.Failed > 0 {
		log.Warn().
			Int("failed", recResult.Failed).
			Int("downloaded", recResult.Downloaded).
			Msg("some image downloads failed")
	}
	if len(recResult.Ready) == 0 {
		log.Warn().Msg("no items have cached images, keeping current snapshot")
		return
	}

	s.st.SetSnapshot(schedule.NewSnapshot(recResult.Ready, result.FetchedAt))

	if err := s.store.ReplaceItems(recResult.Ready); err != nil {
		log.Error().Err(err).Msg("failed to persist item list")
	}

	// Eviction runs last: until the new snapshot was published above, the
	// old one could still reference the files being removed.
	evicted, err := s.rec.Evict(result.Items)
	if err != nil {
		log.Error().Err(err).Msg("failed to evict stale cached images")
	} else if evicted > 0 {
		log.Info().Int("evicted", evicted).Msg("evicted stale cached images")
	}
}

// refreshLoop drives runSync on the configured interval. A connectivity
// recovery triggers a sync immediately instead of waiting for the next tick.
func (s *Service) refreshLoop(done chan<- struct{}) {
	defer close(done)

	ctx := s.st.GetContext()
	s.runSync(ctx)

	ticker := s.clock.NewTicker(s.cfg.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("stopping refresh loop")
			return
		case <-ticker.Chan():
			s.runSync(ctx)
		case <-s.probe.Recovered():
			log.Info().Msg("connectivity recovered, syncing immediately")
			s.runSync(ctx)
		}
	}
}

// warmStart publishes the persisted last-known-good items so the display has
// content before the first fetch completes.
func (s *Service) warmStart() {
	items, err := s.rec.LoadLastKnown()
	if err != nil {
		log.Error().Err(err).Msg("failed to load last known items")
		return
	}
	if len(items) == 0 {
		return
	}
	log.Info().Int("items", len(items)).Msg("restored last known content")
	s.st.SetSnapshot(schedule.NewSnapshot(items, s.clock.Now()))
}

// Start wires up the daemon and returns a stop function and a channel that
// closes when the sync loop exits.
func Start(pl platforms.Platform, cfg *config.Instance) (func() error, <-chan struct{}, error) {
	log.Info().Msgf("starting %s service (%s)", config.AppName, config.AppVersion)

	if err := helpers.EnsureDirectories(pl); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directories: %w", err)
	}

	st, ns := state.NewState(uuid.New().String(), cfg.DisplayTime())

	db, err := cachedb.OpenCacheDB(st.GetContext(), pl)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	if err := db.MigrateUp(); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate cache database: %w", err)
	}

	rec := cache.NewReconciler(
		db,
		httpclient.NewClientWithTimeout(cfg.RequestTimeout()),
		helpers.MediaDir(pl),
	)

	poster := posterapi.NewClient(cfg)

	svc := &Service{
		cfg:     cfg,
		st:      st,
		fetcher: poster,
		rec:     rec,
		probe:   connectivity.NewMonitor(cfg),
		store:   db,
		clock:   clockwork.NewRealClock(),
	}

	svc.warmStart()

	done := make(chan struct{})
	go svc.refreshLoop(done)
	go api.Start(cfg, st, rec, poster, ns)

	stop := func() error {
		st.StopService()
		<-done
		if err := db.Close(); err != nil {
			return fmt.Errorf("failed to close cache database: %w", err)
		}
		return nil
	}

	return stop, done, nil
}
