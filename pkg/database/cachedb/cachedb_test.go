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

package cachedb

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/PosterBridge/eposter-core/pkg/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *CacheDB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	db := &CacheDB{}
	require.NoError(t, db.SetSQLForTesting(context.Background(), sqlDB, nil))
	return db
}

func TestReplaceAndGetItems(t *testing.T) {
	db := newTestDB(t)

	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)
	items := []schedule.Item{
		{
			ID:        2,
			Title:     "Session B",
			StartTime: start.Add(time.Hour),
			EndTime:   start.Add(2 * time.Hour),
			ImageURL:  "https://cdn.example.com/2.png",
			Location:  "Hall 2",
		},
		{
			ID:        1,
			Title:     "Session A",
			StartTime: start,
			EndTime:   start.Add(time.Hour),
			ImageURL:  "https://cdn.example.com/1.png",
			Presenter: "Dr. Example",
		},
	}
	require.NoError(t, db.ReplaceItems(items))

	got, err := db.GetItems()
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ordered by start time.
	assert.Equal(t, 1, got[0].ID)
	assert.Equal(t, "Session A", got[0].Title)
	assert.Equal(t, "Dr. Example", got[0].Presenter)
	assert.True(t, got[0].StartTime.Equal(start))
	assert.Equal(t, 2, got[1].ID)
	assert.Equal(t, "Hall 2", got[1].Location)
}

func TestReplaceItemsSwapsWhole(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.ReplaceItems([]schedule.Item{
		{ID: 1, ImageURL: "https://cdn.example.com/1.png"},
		{ID: 2, ImageURL: "https://cdn.example.com/2.png"},
	}))
	require.NoError(t, db.ReplaceItems([]schedule.Item{
		{ID: 3, ImageURL: "https://cdn.example.com/3.png"},
	}))

	got, err := db.GetItems()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].ID)
}

func TestWindowlessItemRoundTrip(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.ReplaceItems([]schedule.Item{
		{ID: 42, ImageURL: "https://cdn.example.com/42.png"},
	}))

	got, err := db.GetItems()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].StartTime.IsZero())
	assert.True(t, got[0].EndTime.IsZero())
	assert.False(t, got[0].HasWindow())
}

func TestCachedImageLifecycle(t *testing.T) {
	db := newTestDB(t)

	missing, err := db.GetCachedImage(6)
	require.NoError(t, err)
	assert.Nil(t, missing)

	img := &CachedImage{
		ItemID:       6,
		LocalPath:    "/var/cache/eposter/6.png",
		SourceURL:    "https://cdn.example.com/6.png",
		DownloadedAt: time.Now().Truncate(time.Second),
	}
	require.NoError(t, db.UpsertCachedImage(img))

	got, err := db.GetCachedImage(6)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, img.LocalPath, got.LocalPath)
	assert.Equal(t, img.SourceURL, got.SourceURL)

	// Republished asset updates in place.
	img.SourceURL = "https://cdn.example.com/6-v2.png"
	require.NoError(t, db.UpsertCachedImage(img))

	got, err = db.GetCachedImage(6)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "https://cdn.example.com/6-v2.png", got.SourceURL)

	list, err := db.ListCachedImages()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, db.DeleteCachedImage(6))
	got, err = db.GetCachedImage(6)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTruncate(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.ReplaceItems([]schedule.Item{
		{ID: 1, ImageURL: "https://cdn.example.com/1.png"},
	}))
	require.NoError(t, db.UpsertCachedImage(&CachedImage{
		ItemID: 1, LocalPath: "/tmp/1.png", SourceURL: "https://cdn.example.com/1.png",
		DownloadedAt: time.Now(),
	}))

	require.NoError(t, db.Truncate())

	items, err := db.GetItems()
	require.NoError(t, err)
	assert.Empty(t, items)
	images, err := db.ListCachedImages()
	require.NoError(t, err)
	assert.Empty(t, images)
}
