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
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/PosterBridge/eposter-core/pkg/database"
	"github.com/PosterBridge/eposter-core/pkg/schedule"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func sqlMigrateUp(db *sql.DB) error {
	if err := database.MigrateUp(db, migrationFiles, "migrations"); err != nil {
		return fmt.Errorf("failed to run cache database migrations: %w", err)
	}
	return nil
}

//goland:noinspection SqlWithoutWhere
func sqlTruncate(ctx context.Context, db *sql.DB) error {
	sqlStmt := `
	delete from Items;
	delete from CachedImages;
	vacuum;
	`
	_, err := db.ExecContext(ctx, sqlStmt)
	if err != nil {
		return fmt.Errorf("failed to truncate database: %w", err)
	}
	return nil
}

// unixOrZero maps the zero time to 0 so windowless items round-trip.
func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func timeOrZero(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}

func sqlReplaceItems(ctx context.Context, db *sql.DB, items []schedule.Item) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil &&
			!errors.Is(rollbackErr, sql.ErrTxDone) {
			log.Warn().Err(rollbackErr).Msg("failed to rollback transaction")
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM Items;`); err != nil {
		return fmt.Errorf("failed to clear items: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO Items (ID, Title, StartTime, EndTime, ImageURL, Location, Presenter)
	VALUES (?, ?, ?, ?, ?, ?, ?);`)
	if err != nil {
		return fmt.Errorf("failed to prepare item insert: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close sql statement")
		}
	}()

	for i := range items {
		it := &items[i]
		_, err := stmt.ExecContext(ctx,
			it.ID, it.Title,
			unixOrZero(it.StartTime), unixOrZero(it.EndTime),
			it.ImageURL, it.Location, it.Presenter,
		)
		if err != nil {
			return fmt.Errorf("failed to insert item %d: %w", it.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit item replacement: %w", err)
	}
	return nil
}

func sqlGetItems(ctx context.Context, db *sql.DB) ([]schedule.Item, error) {
	rows, err := db.QueryContext(ctx, `
	SELECT ID, Title, StartTime, EndTime, ImageURL, Location, Presenter
	FROM Items ORDER BY StartTime, ID;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close rows")
		}
	}()

	var items []schedule.Item
	for rows.Next() {
		var it schedule.Item
		var start, end int64
		err := rows.Scan(&it.ID, &it.Title, &start, &end, &it.ImageURL, &it.Location, &it.Presenter)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		it.StartTime = timeOrZero(start)
		it.EndTime = timeOrZero(end)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return items, nil
}

func sqlUpsertCachedImage(ctx context.Context, db *sql.DB, img *CachedImage) error {
	_, err := db.ExecContext(ctx, `
	INSERT INTO CachedImages (ItemID, LocalPath, SourceURL, DownloadedAt)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(ItemID) DO UPDATE SET
		LocalPath = excluded.LocalPath,
		SourceURL = excluded.SourceURL,
		DownloadedAt = excluded.DownloadedAt;`,
		img.ItemID, img.LocalPath, img.SourceURL, img.DownloadedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert cached image %d: %w", img.ItemID, err)
	}
	return nil
}

func sqlGetCachedImage(ctx context.Context, db *sql.DB, itemID int) (*CachedImage, error) {
	row := db.QueryRowContext(ctx, `
	SELECT ItemID, LocalPath, SourceURL, DownloadedAt
	FROM CachedImages WHERE ItemID = ?;`, itemID)

	var img CachedImage
	var downloadedAt int64
	err := row.Scan(&img.ItemID, &img.LocalPath, &img.SourceURL, &downloadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // missing row is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan cached image: %w", err)
	}
	img.DownloadedAt = time.Unix(downloadedAt, 0)
	return &img, nil
}

func sqlListCachedImages(ctx context.Context, db *sql.DB) ([]CachedImage, error) {
	rows, err := db.QueryContext(ctx, `
	SELECT ItemID, LocalPath, SourceURL, DownloadedAt
	FROM CachedImages ORDER BY ItemID;`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cached images: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to close rows")
		}
	}()

	var images []CachedImage
	for rows.Next() {
		var img CachedImage
		var downloadedAt int64
		err := rows.Scan(&img.ItemID, &img.LocalPath, &img.SourceURL, &downloadedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cached image: %w", err)
		}
		img.DownloadedAt = time.Unix(downloadedAt, 0)
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cached images: %w", err)
	}
	return images, nil
}

func sqlDeleteCachedImage(ctx context.Context, db *sql.DB, itemID int) error {
	_, err := db.ExecContext(ctx, `DELETE FROM CachedImages WHERE ItemID = ?;`, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete cached image %d: %w", itemID, err)
	}
	return nil
}
