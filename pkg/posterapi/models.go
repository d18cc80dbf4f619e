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
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/PosterBridge/eposter-core/pkg/schedule"
	"github.com/rs/zerolog/log"
)

// dateTimeLayout is the wire format for schedule windows, local time.
const dateTimeLayout = "02-01-2006 15:04:05"

// flexInt decodes an integer that the API serves either as a JSON number or
// as a quoted string, depending on endpoint vintage.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) >= 2 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to unmarshal quoted int: %w", err)
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("failed to parse quoted int %q: %w", s, err)
		}
		*f = flexInt(v)
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("failed to unmarshal int: %w", err)
	}
	*f = flexInt(v)
	return nil
}

// envelope is the outer response shape: {status, message, data}. Older
// deployments serve {data: [...]} or a bare array; Data stays raw so the
// caller can try each inner shape.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Status  json.RawMessage `json:"status"`
}

// rawItem carries both field-naming conventions the API has used. Exactly
// one of PosterID/ID and EposterFile/File is expected per record.
type rawItem struct {
	PosterID      *flexInt `json:"PosterId"`
	ID            *flexInt `json:"id"`
	Title         string   `json:"title"`
	EposterFile   string   `json:"eposter_file"`
	File          string   `json:"file"`
	StartDateTime string   `json:"start_date_time"`
	EndDateTime   string   `json:"end_date_time"`
	Location      string   `json:"location"`
	Presenter     string   `json:"presenter"`
}

type rawScreen struct {
	ScreenNumber     *flexInt  `json:"screen_number"`
	MinutesPerRecord *flexInt  `json:"minutes_per_record"`
	Records          []rawItem `json:"records"`
}

type rawBooking struct {
	PaperDetails *rawItem `json:"paper_details"`
}

// scheduleData is the schedule-variant inner shape: per-screen record lists
// plus optional booking-slot passthrough posters.
type scheduleData struct {
	Screens     []rawScreen  `json:"screens"`
	BookingSlot []rawBooking `json:"booking_slot"`
}

// itemID resolves the id across naming conventions. Returns 0 when absent.
func (r *rawItem) itemID() int {
	switch {
	case r.PosterID != nil:
		return int(*r.PosterID)
	case r.ID != nil:
		return int(*r.ID)
	default:
		return 0
	}
}

// imageURL resolves the image URL across naming conventions.
func (r *rawItem) imageURL() string {
	if r.EposterFile != "" {
		return r.EposterFile
	}
	return r.File
}

// normalize converts a raw record into the canonical item shape. Records
// with no id or no image are dropped; a record with an unparseable window
// is kept as cache-only rather than discarded.
func (r *rawItem) normalize() (schedule.Item, bool) {
	id := r.itemID()
	url := r.imageURL()
	if id == 0 || url == "" {
		log.Debug().Msgf("skipping record with missing id or image: %+v", r)
		return schedule.Item{}, false
	}

	item := schedule.Item{
		ID:        id,
		Title:     r.Title,
		ImageURL:  url,
		Location:  r.Location,
		Presenter: r.Presenter,
	}

	if r.StartDateTime != "" && r.EndDateTime != "" {
		start, startErr := time.ParseInLocation(dateTimeLayout, r.StartDateTime, time.Local)
		end, endErr := time.ParseInLocation(dateTimeLayout, r.EndDateTime, time.Local)
		if startErr != nil || endErr != nil {
			log.Warn().Msgf(
				"record %d has unparseable window %q..%q, keeping as cache-only",
				id, r.StartDateTime, r.EndDateTime,
			)
		} else if end.Before(start) {
			log.Warn().Msgf("record %d has end before start, keeping as cache-only", id)
		} else {
			item.StartTime = start
			item.EndTime = end
		}
	}

	return item, true
}
