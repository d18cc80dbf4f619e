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

package cache

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/PosterBridge/eposter-core/pkg/database/cachedb"
	"github.com/PosterBridge/eposter-core/pkg/schedule"
	"github.com/PosterBridge/eposter-core/pkg/shared/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReconciler(t *testing.T, handler http.Handler) (*Reconciler, *httptest.Server, string) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sqlDB, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	db := &cachedb.CacheDB{}
	require.NoError(t, db.SetSQLForTesting(context.Background(), sqlDB, nil))

	mediaDir := t.TempDir()
	return NewReconciler(db, httpclient.NewClient(), mediaDir), srv, mediaDir
}

func countingImageHandler(requests *atomic.Int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte("image-bytes-" + r.URL.Path))
	})
}

func testItems(baseURL string, ids ...int) []schedule.Item {
	items := make([]schedule.Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, schedule.Item{
			ID:       id,
			Title:    "Item",
			ImageURL: baseURL + "/posters/" + strconv.Itoa(id) + ".png",
		})
	}
	return items
}

func TestReconcileDownloadsMissingImages(t *testing.T) {
	var requests atomic.Int64
	r, srv, mediaDir := newTestReconciler(t, countingImageHandler(&requests))

	items := testItems(srv.URL, 1, 2, 3)
	result, err := r.Reconcile(context.Background(), items)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Downloaded)
	assert.Equal(t, 0, result.Failed)
	assert.Len(t, result.Ready, 3)
	assert.Equal(t, int64(3), requests.Load())

	for _, id := range []int{1, 2, 3} {
		path := filepath.Join(mediaDir, strconv.Itoa(id)+".png")
		data, readErr := os.ReadFile(path) // #nosec G304 -- test path
		require.NoError(t, readErr)
		assert.Contains(t, string(data), "image-bytes-")
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	var requests atomic.Int64
	r, srv, _ := newTestReconciler(t, countingImageHandler(&requests))

	items := testItems(srv.URL, 1, 2)
	_, err := r.Reconcile(context.Background(), items)
	require.NoError(t, err)
	require.Equal(t, int64(2), requests.Load())

	result, err := r.Reconcile(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Downloaded)
	assert.Len(t, result.Ready, 2)
	assert.Equal(t, int64(2), requests.Load(), "cached images must not be re-downloaded")
}

func TestReconcileRedownloadsChangedSource(t *testing.T) {
	var requests atomic.Int64
	r, srv, _ := newTestReconciler(t, countingImageHandler(&requests))

	_, err := r.Reconcile(context.Background(), testItems(srv.URL, 1))
	require.NoError(t, err)
	require.Equal(t, int64(1), requests.Load())

	// Same item id, republished asset at a new URL.
	updated := []schedule.Item{{
		ID:       1,
		Title:    "Item",
		ImageURL: srv.URL + "/posters/1-v2.png",
	}}
	result, err := r.Reconcile(context.Background(), updated)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Downloaded)
	assert.Equal(t, int64(2), requests.Load())
}

func TestReconcileExcludesFailedDownloads(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "2.png") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("image-bytes"))
	})
	r, srv, _ := newTestReconciler(t, handler)

	result, err := r.Reconcile(context.Background(), testItems(srv.URL, 1, 2, 3))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Downloaded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Ready, 2)
	for _, item := range result.Ready {
		assert.NotEqual(t, 2, item.ID)
	}

	// A later pass retries the failed item.
	path, err := r.ImagePath(2)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestEvictRemovesStaleImages(t *testing.T) {
	var requests atomic.Int64
	r, srv, mediaDir := newTestReconciler(t, countingImageHandler(&requests))

	_, err := r.Reconcile(context.Background(), testItems(srv.URL, 1, 2))
	require.NoError(t, err)

	// Item 2 leaves the remote list. Reconcile alone must not touch its
	// image: the renderer may still be serving the old snapshot.
	remaining := testItems(srv.URL, 1)
	_, err = r.Reconcile(context.Background(), remaining)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(mediaDir, "2.png"))
	assert.NoError(t, err, "image must survive until eviction runs")

	evicted, err := r.Evict(remaining)
	require.NoError(t, err)
	assert.Equal(t, 1, evicted)

	_, err = os.Stat(filepath.Join(mediaDir, "1.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(mediaDir, "2.png"))
	assert.True(t, os.IsNotExist(err))

	path, err := r.ImagePath(2)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestReconcileKeepsStaleImageWhenRedownloadFails(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "v2") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("image-bytes"))
	})
	r, srv, mediaDir := newTestReconciler(t, handler)

	_, err := r.Reconcile(context.Background(), testItems(srv.URL, 1))
	require.NoError(t, err)

	// The item is republished at a URL that errors. The old image stays
	// usable until a replacement actually lands.
	updated := []schedule.Item{{
		ID:       1,
		Title:    "Item",
		ImageURL: srv.URL + "/posters/1-v2.png",
	}}
	result, err := r.Reconcile(context.Background(), updated)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Ready, 1)

	evicted, err := r.Evict(updated)
	require.NoError(t, err)
	assert.Equal(t, 0, evicted)

	path, err := r.ImagePath(1)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(mediaDir, "1.png"), path)
}

func TestReconcileEmptyInputKeepsCache(t *testing.T) {
	var requests atomic.Int64
	r, srv, mediaDir := newTestReconciler(t, countingImageHandler(&requests))

	_, err := r.Reconcile(context.Background(), testItems(srv.URL, 1))
	require.NoError(t, err)

	result, err := r.Reconcile(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Ready)

	evicted, err := r.Evict(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, evicted)

	_, err = os.Stat(filepath.Join(mediaDir, "1.png"))
	assert.NoError(t, err)
}

func TestReconcileSuppressesOverlappingRuns(t *testing.T) {
	inHandler := make(chan struct{})
	release := make(chan struct{})
	var once atomic.Bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if once.CompareAndSwap(false, true) {
			close(inHandler)
			<-release
		}
		_, _ = w.Write([]byte("image-bytes"))
	})
	r, srv, _ := newTestReconciler(t, handler)

	done := make(chan error, 1)
	go func() {
		_, err := r.Reconcile(context.Background(), testItems(srv.URL, 1))
		done <- err
	}()

	<-inHandler
	_, err := r.Reconcile(context.Background(), testItems(srv.URL, 1))
	assert.ErrorIs(t, err, ErrReconcileInFlight)

	close(release)
	require.NoError(t, <-done)
}

func TestLoadLastKnown(t *testing.T) {
	var requests atomic.Int64
	r, srv, mediaDir := newTestReconciler(t, countingImageHandler(&requests))

	_, err := r.Reconcile(context.Background(), testItems(srv.URL, 1, 2))
	require.NoError(t, err)
	require.NoError(t, r.db.ReplaceItems(testItems(srv.URL, 1, 2)))

	// An image removed from disk out of band is not last-known-good.
	require.NoError(t, os.Remove(filepath.Join(mediaDir, "2.png")))

	items, err := r.LoadLastKnown()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].ID)
}

func TestImagePath(t *testing.T) {
	var requests atomic.Int64
	r, srv, mediaDir := newTestReconciler(t, countingImageHandler(&requests))

	_, err := r.Reconcile(context.Background(), testItems(srv.URL, 7))
	require.NoError(t, err)

	path, err := r.ImagePath(7)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(mediaDir, "7.png"), path)

	path, err = r.ImagePath(8)
	require.NoError(t, err)
	assert.Empty(t, path)
}
