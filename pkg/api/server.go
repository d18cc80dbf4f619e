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

// Package api exposes the local HTTP surface consumed by the on-device
// renderer and remote dashboards: REST endpoints for the current selection
// and a websocket for push notifications.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/PosterBridge/eposter-core/pkg/api/models"
	"github.com/PosterBridge/eposter-core/pkg/config"
	"github.com/PosterBridge/eposter-core/pkg/schedule"
	"github.com/PosterBridge/eposter-core/pkg/service/state"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/olahol/melody"
	"github.com/rs/zerolog/log"
)

// MediaResolver maps an item id to the path of its cached image.
type MediaResolver interface {
	ImagePath(itemID int) (string, error)
}

// EventFetcher retrieves the raw event metadata document from the remote
// API. The shape is owned by the portal, so it passes through undecoded.
type EventFetcher interface {
	FetchEvent(ctx context.Context) (json.RawMessage, error)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("error encoding response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

func itemResponse(item *schedule.Item) *models.ItemResponse {
	if item == nil {
		return nil
	}
	resp := &models.ItemResponse{
		ID:        item.ID,
		Title:     item.Title,
		Location:  item.Location,
		Presenter: item.Presenter,
		MediaURL:  "/api/v0/media/" + strconv.Itoa(item.ID),
	}
	if item.HasWindow() {
		start := item.StartTime
		end := item.EndTime
		resp.StartTime = &start
		resp.EndTime = &end
	}
	return resp
}

func handleSelection(st *state.State) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		sel := st.GetSelection(time.Now())
		writeJSON(w, http.StatusOK, models.SelectionResponse{
			Item:            itemResponse(sel.Item),
			State:           string(sel.State),
			DurationSeconds: int(sel.Duration.Seconds()),
			IsFallback:      sel.IsFallback(),
		})
	}
}

func handleStatus(cfg *config.Instance, st *state.State) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		snap := st.GetSnapshot()
		resp := models.StatusResponse{
			Version:         config.AppVersion,
			BootUUID:        st.BootUUID(),
			Connectivity:    string(st.Connectivity()),
			Items:           len(snap.Items),
			PinnedID:        st.PinnedID(),
			RotationDegrees: cfg.Rotation(),
		}
		if !snap.FetchedAt.IsZero() {
			fetchedAt := snap.FetchedAt
			resp.SnapshotFetchedAt = &fetchedAt
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handlePin(st *state.State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid item id")
			return
		}
		if err := st.Pin(id); err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, models.PinnedParams{ID: id})
	}
}

func handleUnpin(st *state.State) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		st.Unpin()
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleEvent(events EventFetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := events.FetchEvent(r.Context())
		if err != nil {
			log.Error().Err(err).Msg("error fetching event data")
			writeError(w, http.StatusBadGateway, "event data unavailable")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if _, err := w.Write(body); err != nil {
			log.Error().Err(err).Msg("error writing event response")
		}
	}
}

func handleMedia(media MediaResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid item id")
			return
		}
		path, err := media.ImagePath(id)
		if err != nil {
			log.Error().Err(err).Int("item", id).Msg("error resolving media path")
			writeError(w, http.StatusInternalServerError, "error resolving media")
			return
		}
		if path == "" {
			writeError(w, http.StatusNotFound, "media not cached")
			return
		}
		http.ServeFile(w, r, path)
	}
}

func broadcastNotifications(
	st *state.State,
	session *melody.Melody,
	notifications <-chan models.Notification,
) {
	for {
		select {
		case <-st.GetContext().Done():
			log.Debug().Msg("closing notification broadcaster via context cancellation")
			return
		case notif := <-notifications:
			data, err := json.Marshal(notif)
			if err != nil {
				log.Error().Err(err).Msg("marshalling notification")
				continue
			}

			err = session.Broadcast(data)
			if err != nil {
				log.Error().Err(err).Msg("broadcasting notification")
			}
		}
	}
}

// NewRouter builds the HTTP routes. Split from Start so tests can mount the
// router on httptest servers.
func NewRouter(
	cfg *config.Instance,
	st *state.State,
	media MediaResolver,
	events EventFetcher,
	notifications <-chan models.Notification,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.NoCache)
	r.Use(middleware.Timeout(config.APIRequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://*", "http://*"},
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{},
	}))

	session := melody.New()
	session.Upgrader.CheckOrigin = func(_ *http.Request) bool { return true }
	go broadcastNotifications(st, session, notifications)

	// ping command for heartbeat operation
	session.HandleMessage(func(s *melody.Session, msg []byte) {
		if bytes.Equal(msg, []byte("ping")) {
			if err := s.Write([]byte("pong")); err != nil {
				log.Error().Err(err).Msg("sending pong")
			}
		}
	})

	r.Get("/api/v0", func(w http.ResponseWriter, r *http.Request) {
		if err := session.HandleRequest(w, r); err != nil {
			log.Error().Err(err).Msg("handling websocket request")
		}
	})

	r.Get("/api/v0/selection", handleSelection(st))
	r.Get("/api/v0/status", handleStatus(cfg, st))
	r.Get("/api/v0/event", handleEvent(events))
	r.Post("/api/v0/pin/{id}", handlePin(st))
	r.Delete("/api/v0/pin", handleUnpin(st))
	r.Get("/api/v0/media/{id}", handleMedia(media))

	return r
}

// Start serves the API on the configured port and blocks until the listener
// fails or the process exits.
func Start(
	cfg *config.Instance,
	st *state.State,
	media MediaResolver,
	events EventFetcher,
	notifications <-chan models.Notification,
) {
	r := NewRouter(cfg, st, media, events, notifications)

	err := http.ListenAndServe(":"+strconv.Itoa(cfg.APIPort()), r) //nolint:gosec // local device API
	if err != nil {
		log.Error().Err(err).Msg("error starting http server")
	}
}
