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

// Package httpclient provides the shared HTTP client used for all outbound
// requests: API fetches, image downloads and the connectivity probe.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeoutSeconds is the default timeout for HTTP requests
	DefaultTimeoutSeconds = 30
)

// DefaultTransport provides a configured transport with connection pooling
// and reasonable timeouts.
var DefaultTransport = &http.Transport{
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ResponseHeaderTimeout: 30 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
}

// Client provides an HTTP client with sensible defaults.
type Client struct {
	*http.Client
}

// NewClient creates a new HTTP client using the default timeout.
func NewClient() *Client {
	return NewClientWithTimeout(DefaultTimeoutSeconds * time.Second)
}

// NewClientWithTimeout creates a new HTTP client with a custom timeout.
func NewClientWithTimeout(timeout time.Duration) *Client {
	return &Client{
		Client: &http.Client{
			Transport: DefaultTransport,
			Timeout:   timeout,
		},
	}
}

// Get performs a GET request with the given context.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error performing request: %w", err)
	}
	return resp, nil
}

// DownloadFileArgs contains arguments for file download operations
type DownloadFileArgs struct {
	URL        string
	OutputPath string
	TempPath   string
}

// DownloadFile downloads a file from the given URL to the output path. If a
// temp path is given the download is written there first and renamed into
// place, so a partially written file is never visible at the output path.
func (c *Client) DownloadFile(ctx context.Context, args DownloadFileArgs) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, args.URL, http.NoBody)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return fmt.Errorf("error getting url: %w", err)
	}
	if resp == nil {
		return errors.New("received nil response")
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("error closing response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("invalid status code: %d", resp.StatusCode)
	}

	outputPath := args.OutputPath
	if args.TempPath != "" {
		outputPath = args.TempPath
	}

	file, err := os.Create(outputPath) // #nosec G304 - outputPath is validated by caller
	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}

	written, err := io.Copy(file, resp.Body)
	if err != nil {
		closeErr := file.Close()
		if closeErr != nil {
			log.Warn().Err(closeErr).Msgf("error closing file: %s", outputPath)
		}
		removeErr := os.Remove(outputPath)
		if removeErr != nil {
			log.Warn().Err(removeErr).Msgf("error removing partial download: %s", outputPath)
		}
		return fmt.Errorf("error downloading file: %w", err)
	}

	expected := resp.ContentLength
	if expected > 0 && written != expected {
		closeErr := file.Close()
		if closeErr != nil {
			log.Warn().Err(closeErr).Msgf("error closing file: %s", outputPath)
		}
		removeErr := os.Remove(outputPath)
		if removeErr != nil {
			log.Warn().Err(removeErr).Msgf("error removing partial download: %s", outputPath)
		}
		return fmt.Errorf("download incomplete: expected %d bytes, got %d", expected, written)
	}

	err = file.Close()
	if err != nil {
		return fmt.Errorf("error closing file: %w", err)
	}

	if args.TempPath != "" && args.TempPath != args.OutputPath {
		if err := os.Rename(args.TempPath, args.OutputPath); err != nil {
			removeErr := os.Remove(args.TempPath)
			if removeErr != nil {
				log.Warn().Err(removeErr).Msgf("error removing temp file: %s", args.TempPath)
			}
			return fmt.Errorf("error renaming temp file: %w", err)
		}
	}

	return nil
}
