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

package cliapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jetsetilly/membrowse/internal/ghcomment"
	"github.com/jetsetilly/membrowse/internal/model"
)

const defaultSummaryAPIURL = "https://api.membrowse.com"

func newSummaryCommand() *cobra.Command {
	var apiKey, apiURL string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "summary <commit-sha>",
		Short: "Retrieve a memory footprint summary for a commit from MemBrowse",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := fetchReport(cmd.Context(), apiURL, apiKey, args[0])
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(r, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			body, err := ghcomment.Body(r, "")
			if err != nil {
				return err
			}
			fmt.Println(body)
			return nil
		},
	}

	cmd.Flags().StringVar(&apiKey, "api-key", "", "MemBrowse API key")
	cmd.Flags().StringVar(&apiURL, "api-url", defaultSummaryAPIURL, "MemBrowse API base URL")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON response")
	cmd.MarkFlagRequired("api-key")

	return cmd
}

func fetchReport(ctx context.Context, apiURL, apiKey, commitSHA string) (model.Report, error) {
	url := apiURL + "/summary/" + commitSHA

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return model.Report{}, err
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return model.Report{}, fmt.Errorf("fetching summary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return model.Report{}, fmt.Errorf("summary request failed: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var r model.Report
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return model.Report{}, fmt.Errorf("decoding summary response: %w", err)
	}
	return r, nil
}
