// This file is part of Gopher2600.
//
// Gopher2600 is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Gopher2600 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Gopher2600.  If not, see <https://www.gnu.org/licenses/>.

// Package upload enriches a memory report with commit metadata and posts it
// to the MemBrowse platform.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jetsetilly/membrowse/internal/model"
)

// Metadata is the commit/build context attached to an uploaded report.
type Metadata struct {
	CommitSHA        string `json:"commit_sha"`
	CommitMessage    string `json:"commit_message"`
	BaseSHA          string `json:"base_sha,omitempty"`
	BranchName       string `json:"branch_name,omitempty"`
	Repository       string `json:"repository,omitempty"`
	TargetName       string `json:"target_name"`
	Timestamp        string `json:"timestamp"`
	AnalysisVersion  string `json:"analysis_version"`
	PullRequestNum   string `json:"pr_number,omitempty"`
}

// Envelope is the enriched document the platform accepts.
type Envelope struct {
	Metadata      Metadata     `json:"metadata"`
	MemoryAnalysis model.Report `json:"memory_analysis"`
}

// Client posts enriched reports to a MemBrowse API endpoint.
type Client struct {
	APIKey     string
	Endpoint   string
	HTTPClient *http.Client
}

// NewClient builds a Client with a sensible request timeout.
func NewClient(apiKey, endpoint string) *Client {
	return &Client{
		APIKey:     apiKey,
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Upload enriches the report with metadata and POSTs it as JSON, returning
// an error describing any response other than 200 OK or 201 Created, or a
// transport failure.
func (c *Client) Upload(ctx context.Context, report model.Report, metadata Metadata) error {
	envelope := Envelope{Metadata: metadata, MemoryAnalysis: report}

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encoding upload envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "MemBrowse-Action/1.0.0")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("uploading report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		return nil
	}

	respBody, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("upload failed: HTTP %d: %s", resp.StatusCode, string(respBody))
}
