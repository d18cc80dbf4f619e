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

// Package cachedb persists the last-known-good item list and the image
// cache bookkeeping, so a restarted device serves stale-but-valid content
// immediately instead of booting to a blank screen.
package cachedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/PosterBridge/eposter-core/pkg/config"
	"github.com/PosterBridge/eposter-core/pkg/helpers"
	"github.com/PosterBridge/eposter-core/pkg/platforms"
	"github.com/PosterBridge/eposter-core/pkg/schedule"
	_ "github.com/mattn/go-sqlite3"
)

var ErrNullSQL = errors.New("CacheDB is not connected")

const sqliteConnParams = "?_journal_mode=WAL&_synchronous=FULL&_busy_timeout=5000"

// CachedImage records one downloaded poster image. SourceURL is the content
// marker: a changed URL means the asset was republished and must be fetched
// again.
type CachedImage struct {
	DownloadedAt time.Time
	LocalPath    string
	SourceURL    string
	ItemID       int
}

type CacheDB struct {
	sql *sql.DB
	pl  platforms.Platform
	ctx context.Context
}

func OpenCacheDB(ctx context.Context, pl platforms.Platform) (*CacheDB, error) {
	db := &CacheDB{sql: nil, pl: pl, ctx: ctx}
	err := db.Open()
	return db, err
}

func (db *CacheDB) Open() error {
	dbPath := db.GetDBPath()
	if _, err := os.Stat(dbPath); err != nil {
		mkdirErr := os.MkdirAll(filepath.Dir(dbPath), 0o750)
		if mkdirErr != nil {
			return fmt.Errorf("failed to create directory for database: %w", mkdirErr)
		}
	}
	sqlInstance, err := sql.Open("sqlite3", dbPath+sqliteConnParams)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.sql = sqlInstance
	return nil
}

func (db *CacheDB) GetDBPath() string {
	return filepath.Join(helpers.DataDir(db.pl), config.CacheDbFile)
}

func (db *CacheDB) MigrateUp() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlMigrateUp(db.sql)
}

func (db *CacheDB) Truncate() error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlTruncate(db.ctx, db.sql)
}

func (db *CacheDB) Close() error {
	if db.sql == nil {
		return nil
	}
	err := db.sql.Close()
	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// SetSQLForTesting allows injection of a sql.DB instance for testing
// purposes, to set up in-memory databases.
func (db *CacheDB) SetSQLForTesting(ctx context.Context, sqlDB *sql.DB, platform platforms.Platform) error {
	db.sql = sqlDB
	db.pl = platform
	db.ctx = ctx
	return db.MigrateUp()
}

// ReplaceItems swaps the persisted last-known-good item list for a new one,
// in a single transaction.
func (db *CacheDB) ReplaceItems(items []schedule.Item) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlReplaceItems(db.ctx, db.sql, items)
}

// GetItems returns the persisted last-known-good item list.
func (db *CacheDB) GetItems() ([]schedule.Item, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlGetItems(db.ctx, db.sql)
}

func (db *CacheDB) UpsertCachedImage(img *CachedImage) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlUpsertCachedImage(db.ctx, db.sql, img)
}

// GetCachedImage returns the record for an item id, or nil when the image
// was never downloaded.
func (db *CacheDB) GetCachedImage(itemID int) (*CachedImage, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlGetCachedImage(db.ctx, db.sql, itemID)
}

func (db *CacheDB) ListCachedImages() ([]CachedImage, error) {
	if db.sql == nil {
		return nil, ErrNullSQL
	}
	return sqlListCachedImages(db.ctx, db.sql)
}

func (db *CacheDB) DeleteCachedImage(itemID int) error {
	if db.sql == nil {
		return ErrNullSQL
	}
	return sqlDeleteCachedImage(db.ctx, db.sql, itemID)
}
