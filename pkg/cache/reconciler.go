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

// Package cache keeps the on-disk image cache in sync with the item list.
// Every item the device may ever display must have its image on local disk
// before it is published, so playback never blocks on the network.
package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/PosterBridge/eposter-core/pkg/database/cachedb"
	"github.com/PosterBridge/eposter-core/pkg/helpers/syncutil"
	"github.com/PosterBridge/eposter-core/pkg/schedule"
	"github.com/PosterBridge/eposter-core/pkg/shared/httpclient"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrReconcileInFlight is returned when a reconcile is requested while a
// previous one is still running. The caller should skip the cycle and try
// again on the next tick.
var ErrReconcileInFlight = errors.New("reconcile already in progress")

const maxConcurrentDownloads = 4

// Result summarises one reconcile pass.
type Result struct {
	// Ready holds the items whose image is on disk, in snapshot order.
	Ready      []schedule.Item
	Downloaded int
	Failed     int
}

// Reconciler downloads missing or changed poster images into the media
// directory and evicts files for items that left the remote list. At most
// one reconcile runs at a time.
type Reconciler struct {
	db       *cachedb.CacheDB
	client   *httpclient.Client
	mediaDir string
	mu       syncutil.Mutex
}

func NewReconciler(db *cachedb.CacheDB, client *httpclient.Client, mediaDir string) *Reconciler {
	return &Reconciler{
		db:       db,
		client:   client,
		mediaDir: mediaDir,
	}
}

// Reconcile brings the image cache in line with items. Missing images and
// images whose source URL changed are downloaded. An item whose download
// fails stays in the result as long as a previously cached image is still
// usable; otherwise it is left out until a later pass succeeds. Reconcile
// never deletes anything: callers run Evict once the new snapshot is live.
func (r *Reconciler) Reconcile(ctx context.Context, items []schedule.Item) (*Result, error) {
	if !r.mu.TryLock() {
		return nil, ErrReconcileInFlight
	}
	defer r.mu.Unlock()

	result := &Result{}
	if len(items) == 0 {
		return result, nil
	}

	if err := os.MkdirAll(r.mediaDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	toFetch := make([]schedule.Item, 0, len(items))
	for i := range items {
		needed, err := r.needsDownload(&items[i])
		if err != nil {
			log.Warn().Err(err).Int("item", items[i].ID).
				Msg("failed to check cached image, re-downloading")
			needed = true
		}
		if needed {
			toFetch = append(toFetch, items[i])
		}
	}

	failed := r.downloadAll(ctx, toFetch, result)

	for i := range items {
		if _, ok := failed[items[i].ID]; ok {
			if !r.hasUsableImage(items[i].ID) {
				continue
			}
			log.Warn().Int("item", items[i].ID).
				Msg("download failed, keeping previously cached image")
		}
		result.Ready = append(result.Ready, items[i])
	}

	return result, nil
}

// downloadAll fetches the given items concurrently and returns the ids that
// failed. A failed download never aborts the others.
func (r *Reconciler) downloadAll(
	ctx context.Context, toFetch []schedule.Item, result *Result,
) map[int]struct{} {
	failed := make(map[int]struct{})
	if len(toFetch) == 0 {
		return failed
	}

	var resultMu syncutil.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentDownloads)

	for i := range toFetch {
		item := toFetch[i]
		g.Go(func() error {
			if err := r.download(gctx, &item); err != nil {
				log.Error().Err(err).
					Int("item", item.ID).
					Str("url", item.ImageURL).
					Msg("failed to download image")
				resultMu.Lock()
				failed[item.ID] = struct{}{}
				result.Failed++
				resultMu.Unlock()
				return nil
			}
			resultMu.Lock()
			result.Downloaded++
			resultMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return failed
}

// hasUsableImage reports whether an item has a cached image on disk, even a
// stale one whose source URL has since changed.
func (r *Reconciler) hasUsableImage(itemID int) bool {
	img, err := r.db.GetCachedImage(itemID)
	if err != nil || img == nil {
		return false
	}
	_, err = os.Stat(img.LocalPath)
	return err == nil
}

func (r *Reconciler) needsDownload(item *schedule.Item) (bool, error) {
	img, err := r.db.GetCachedImage(item.ID)
	if err != nil {
		return true, fmt.Errorf("failed to look up cached image: %w", err)
	}
	if img == nil {
		return true, nil
	}
	if img.SourceURL != item.ImageURL {
		return true, nil
	}
	if _, err := os.Stat(img.LocalPath); err != nil {
		return true, nil
	}
	return false, nil
}

func (r *Reconciler) download(ctx context.Context, item *schedule.Item) error {
	localPath := filepath.Join(
		r.mediaDir,
		strconv.Itoa(item.ID)+imageExt(item.ImageURL),
	)
	args := httpclient.DownloadFileArgs{
		URL:        item.ImageURL,
		OutputPath: localPath,
		TempPath:   localPath + ".tmp",
	}
	if err := r.client.DownloadFile(ctx, args); err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}

	err := r.db.UpsertCachedImage(&cachedb.CachedImage{
		ItemID:       item.ID,
		LocalPath:    localPath,
		SourceURL:    item.ImageURL,
		DownloadedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to record cached image: %w", err)
	}

	log.Debug().
		Int("item", item.ID).
		Str("url", item.ImageURL).
		Str("path", localPath).
		Msg("downloaded image")
	return nil
}

// Evict removes database records and files for anything not in keep, which
// must be the full remote item list: an item whose download merely failed
// keeps its old image, only items that left the list lose theirs. Files in
// the media directory not tracked for a kept item are removed too, which
// also cleans up abandoned temp files. Callers invoke Evict only after the
// snapshot built from the same list is published, so the renderer never
// holds a reference to a deleted file. An empty list is a no-op.
func (r *Reconciler) Evict(keep []schedule.Item) (int, error) {
	if len(keep) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	keepIDs := make(map[int]struct{}, len(keep))
	for i := range keep {
		keepIDs[keep[i].ID] = struct{}{}
	}

	images, err := r.db.ListCachedImages()
	if err != nil {
		return 0, fmt.Errorf("failed to list cached images: %w", err)
	}

	evicted := 0
	keepFiles := make(map[string]struct{}, len(images))
	for i := range images {
		img := &images[i]
		if _, ok := keepIDs[img.ItemID]; ok {
			keepFiles[filepath.Base(img.LocalPath)] = struct{}{}
			continue
		}
		if err := r.db.DeleteCachedImage(img.ItemID); err != nil {
			log.Warn().Err(err).Int("item", img.ItemID).
				Msg("failed to delete cached image record")
			continue
		}
		evicted++
	}

	entries, err := os.ReadDir(r.mediaDir)
	if err != nil {
		return evicted, fmt.Errorf("failed to read media directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := keepFiles[entry.Name()]; ok {
			continue
		}
		stalePath := filepath.Join(r.mediaDir, entry.Name())
		if err := os.Remove(stalePath); err != nil {
			log.Warn().Err(err).Str("path", stalePath).
				Msg("failed to remove stale media file")
		}
	}

	return evicted, nil
}

// LoadLastKnown returns the persisted item list restricted to items whose
// image is still on disk, for serving content before the first fetch
// completes.
func (r *Reconciler) LoadLastKnown() ([]schedule.Item, error) {
	items, err := r.db.GetItems()
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted items: %w", err)
	}

	ready := make([]schedule.Item, 0, len(items))
	for i := range items {
		img, err := r.db.GetCachedImage(items[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up cached image: %w", err)
		}
		if img == nil {
			continue
		}
		if _, err := os.Stat(img.LocalPath); err != nil {
			continue
		}
		ready = append(ready, items[i])
	}
	return ready, nil
}

// ImagePath returns the on-disk path for an item's image, or an empty string
// when the image is not cached.
func (r *Reconciler) ImagePath(itemID int) (string, error) {
	img, err := r.db.GetCachedImage(itemID)
	if err != nil {
		return "", fmt.Errorf("failed to look up cached image: %w", err)
	}
	if img == nil {
		return "", nil
	}
	if _, err := os.Stat(img.LocalPath); err != nil {
		return "", nil
	}
	return img.LocalPath, nil
}

// imageExt extracts a file extension from an image URL, defaulting to .jpg
// when the URL has none.
func imageExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".jpg"
	}
	ext := path.Ext(u.Path)
	if ext == "" || len(ext) > 5 {
		return ".jpg"
	}
	return ext
}
