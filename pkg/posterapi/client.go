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

// Package posterapi is the client for the remote PosterBridge content API.
// It normalizes every response shape the API has served over its lifetime
// into the canonical schedule.Item model; nothing downstream branches on
// wire field names.
package posterapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/PosterBridge/eposter-core/pkg/config"
	"github.com/PosterBridge/eposter-core/pkg/schedule"
	"github.com/PosterBridge/eposter-core/pkg/shared/httpclient"
	"github.com/rs/zerolog/log"
)

var (
	// ErrMalformedResponse means the body decoded but matched no known
	// shape. The caller skips the cycle and keeps its prior snapshot.
	ErrMalformedResponse = errors.New("malformed api response")
	// ErrRequestFailed means the API answered with a non-200 status.
	ErrRequestFailed = errors.New("api request failed")
)

// FetchResult is one normalized API fetch.
type FetchResult struct {
	FetchedAt time.Time
	Items     []schedule.Item
	// DisplayTime is the per-record hold duration the schedule asked for,
	// zero when the response didn't carry one.
	DisplayTime time.Duration
}

// Client fetches and normalizes remote poster data.
type Client struct {
	client *httpclient.Client
	cfg    *config.Instance
}

func NewClient(cfg *config.Instance) *Client {
	return &Client{
		client: httpclient.NewClientWithTimeout(cfg.RequestTimeout()),
		cfg:    cfg,
	}
}

// FetchPosters retrieves the poster list for this device. The device id
// from config selects which screen's records apply when the API serves the
// multi-screen schedule shape.
func (c *Client) FetchPosters(ctx context.Context) (*FetchResult, error) {
	body, err := c.get(ctx, c.cfg.PosterURL())
	if err != nil {
		return nil, err
	}

	result, err := parseResponse(body, c.cfg.DeviceID())
	if err != nil {
		return nil, err
	}

	result.FetchedAt = time.Now()
	return result, nil
}

// FetchEvent retrieves the raw event metadata document. The shape is owned
// by the portal UI, so it passes through undecoded.
func (c *Client) FetchEvent(ctx context.Context) (json.RawMessage, error) {
	eventURL := c.cfg.EventURL()
	if eventURL == "" {
		return nil, errors.New("event url not configured")
	}

	body, err := c.get(ctx, eventURL)
	if err != nil {
		return nil, err
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: event body is not json", ErrMalformedResponse)
	}
	return json.RawMessage(body), nil
}

func (c *Client) get(ctx context.Context, baseURL string) ([]byte, error) {
	reqURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse api url: %w", err)
	}
	query := reqURL.Query()
	query.Set("key", c.cfg.Token())
	reqURL.RawQuery = query.Encode()

	log.Debug().Str("url", reqURL.Redacted()).Msg("poster api request")

	resp, err := c.client.Get(ctx, reqURL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from api: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// parseResponse tries every shape the API has served: an envelope with a
// data array, an envelope with the multi-screen schedule object, or a bare
// array of records.
func parseResponse(body []byte, deviceID int) (*FetchResult, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Data != nil {
		return parseData(env.Data, deviceID)
	}

	var bare []rawItem
	if err := json.Unmarshal(body, &bare); err == nil {
		return &FetchResult{Items: normalizeAll(bare)}, nil
	}

	return nil, fmt.Errorf("%w: unrecognized body", ErrMalformedResponse)
}

func parseData(data json.RawMessage, deviceID int) (*FetchResult, error) {
	var flat []rawItem
	if err := json.Unmarshal(data, &flat); err == nil {
		return &FetchResult{Items: normalizeAll(flat)}, nil
	}

	var sched scheduleData
	if err := json.Unmarshal(data, &sched); err == nil &&
		(len(sched.Screens) > 0 || len(sched.BookingSlot) > 0) {
		return parseSchedule(&sched, deviceID), nil
	}

	return nil, fmt.Errorf("%w: unrecognized data shape", ErrMalformedResponse)
}

func parseSchedule(sched *scheduleData, deviceID int) *FetchResult {
	result := &FetchResult{}

	for i := range sched.Screens {
		screen := &sched.Screens[i]
		if screen.ScreenNumber == nil || int(*screen.ScreenNumber) != deviceID {
			continue
		}
		result.Items = append(result.Items, normalizeAll(screen.Records)...)
		if screen.MinutesPerRecord != nil && *screen.MinutesPerRecord > 0 {
			result.DisplayTime = time.Duration(*screen.MinutesPerRecord) * time.Minute
		}
	}

	// Booking-slot posters have no window but still belong in the cache so
	// the renderer's menu can show them.
	for i := range sched.BookingSlot {
		details := sched.BookingSlot[i].PaperDetails
		if details == nil {
			continue
		}
		if item, ok := details.normalize(); ok {
			result.Items = append(result.Items, item)
		}
	}

	return result
}

func normalizeAll(records []rawItem) []schedule.Item {
	items := make([]schedule.Item, 0, len(records))
	for i := range records {
		if item, ok := records[i].normalize(); ok {
			items = append(items, item)
		}
	}
	return items
}
