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

package posterapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/PosterBridge/eposter-core/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(t *testing.T, posterURL string, deviceID int) *config.Instance {
	t.Helper()

	dir := t.TempDir()
	content := `
config_schema = 1

[api]
poster_url = "` + posterURL + `"
event_url = "` + posterURL + `"
token = "test-token"

[display]
device_id = ` + strconv.Itoa(deviceID) + `
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.CfgFile), []byte(content), 0o600))

	cfg, err := config.NewConfig(dir, config.BaseDefaults)
	require.NoError(t, err)
	return cfg
}

func serveJSON(t *testing.T, body string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-token", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchPostersEnvelopeShape(t *testing.T) {
	body := `{
		"status": "success",
		"message": "ok",
		"data": [
			{"PosterId": 6, "title": "Keynote", "eposter_file": "https://cdn.example.com/6.png"},
			{"PosterId": 7, "title": "Break", "eposter_file": "https://cdn.example.com/7.png"}
		]
	}`
	server := serveJSON(t, body)
	client := NewClient(newTestConfig(t, server.URL, 1))

	result, err := client.FetchPosters(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, 6, result.Items[0].ID)
	assert.Equal(t, "Keynote", result.Items[0].Title)
	assert.Equal(t, "https://cdn.example.com/6.png", result.Items[0].ImageURL)
	assert.False(t, result.Items[0].HasWindow())
	assert.Zero(t, result.DisplayTime)
}

func TestFetchPostersLegacyFieldNames(t *testing.T) {
	body := `{"data": [{"id": "9", "file": "https://cdn.example.com/9.png"}]}`
	server := serveJSON(t, body)
	client := NewClient(newTestConfig(t, server.URL, 1))

	result, err := client.FetchPosters(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, 9, result.Items[0].ID)
	assert.Equal(t, "https://cdn.example.com/9.png", result.Items[0].ImageURL)
}

func TestFetchPostersBareArray(t *testing.T) {
	body := `[{"PosterId": 3, "eposter_file": "https://cdn.example.com/3.png"}]`
	server := serveJSON(t, body)
	client := NewClient(newTestConfig(t, server.URL, 1))

	result, err := client.FetchPosters(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, 3, result.Items[0].ID)
}

func TestFetchPostersScheduleShape(t *testing.T) {
	body := `{
		"status": "success",
		"data": {
			"screens": [
				{
					"screen_number": 2,
					"minutes_per_record": 5,
					"records": [
						{
							"id": 11,
							"title": "Session A",
							"file": "https://cdn.example.com/11.png",
							"start_date_time": "14-03-2026 09:00:00",
							"end_date_time": "14-03-2026 10:00:00"
						}
					]
				},
				{
					"screen_number": 3,
					"minutes_per_record": 2,
					"records": [
						{"id": 99, "file": "https://cdn.example.com/99.png"}
					]
				}
			],
			"booking_slot": [
				{"paper_details": {"id": 42, "file": "https://cdn.example.com/42.png"}}
			]
		}
	}`
	server := serveJSON(t, body)
	client := NewClient(newTestConfig(t, server.URL, 2))

	result, err := client.FetchPosters(context.Background())
	require.NoError(t, err)

	// Only this device's screen plus booking-slot passthroughs.
	require.Len(t, result.Items, 2)
	assert.Equal(t, 11, result.Items[0].ID)
	assert.True(t, result.Items[0].HasWindow())
	assert.Equal(t, time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local), result.Items[0].StartTime)
	assert.Equal(t, 42, result.Items[1].ID)
	assert.False(t, result.Items[1].HasWindow())
	assert.Equal(t, 5*time.Minute, result.DisplayTime)
}

func TestFetchPostersSkipsIncompleteRecords(t *testing.T) {
	body := `{"data": [
		{"PosterId": 1, "eposter_file": "https://cdn.example.com/1.png"},
		{"PosterId": 2},
		{"eposter_file": "https://cdn.example.com/orphan.png"}
	]}`
	server := serveJSON(t, body)
	client := NewClient(newTestConfig(t, server.URL, 1))

	result, err := client.FetchPosters(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, 1, result.Items[0].ID)
}

func TestFetchPostersUnparseableWindowKeptCacheOnly(t *testing.T) {
	body := `{"data": {"screens": [{
		"screen_number": 1,
		"records": [{
			"id": 5,
			"file": "https://cdn.example.com/5.png",
			"start_date_time": "not a date",
			"end_date_time": "also not"
		}]
	}]}}`
	server := serveJSON(t, body)
	client := NewClient(newTestConfig(t, server.URL, 1))

	result, err := client.FetchPosters(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.False(t, result.Items[0].HasWindow())
}

func TestFetchPostersMalformedResponse(t *testing.T) {
	server := serveJSON(t, `{"unexpected": true}`)
	client := NewClient(newTestConfig(t, server.URL, 1))

	_, err := client.FetchPosters(context.Background())
	require.ErrorIs(t, err, ErrMalformedResponse)
}

func TestFetchPostersBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	client := NewClient(newTestConfig(t, server.URL, 1))

	_, err := client.FetchPosters(context.Background())
	require.ErrorIs(t, err, ErrRequestFailed)
}

func TestFetchEventPassthrough(t *testing.T) {
	server := serveJSON(t, `{"event": "GoCon", "venue": "Hall 4"}`)
	client := NewClient(newTestConfig(t, server.URL, 1))

	raw, err := client.FetchEvent(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"event": "GoCon", "venue": "Hall 4"}`, string(raw))
}
