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
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jetsetilly/membrowse/internal/analysis"
	"github.com/jetsetilly/membrowse/internal/gitwalk"
	"github.com/jetsetilly/membrowse/internal/upload"
)

const defaultAPIURL = "https://membrowse.appspot.com/api/upload"

func newOnboardCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "onboard <num-commits> <build-cmd> <elf-path> <ld-scripts> <target> <api-key> [api-url]",
		Short: "Analyze memory footprints across historical commits and upload them to MemBrowse",
		Args:  cobra.RangeArgs(6, 7),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid num-commits %q: %w", args[0], err)
			}
			buildCmd := args[1]
			elfPath := args[2]
			ldScripts := strings.Fields(args[3])
			target := args[4]
			apiKey := args[5]
			apiURL := defaultAPIURL
			if len(args) == 7 {
				apiURL = args[6]
			}

			return runOnboard(n, buildCmd, elfPath, ldScripts, target, apiKey, apiURL)
		},
	}
	return cmd
}

func runOnboard(n int, buildCmd, elfPath string, ldScripts []string, target, apiKey, apiURL string) error {
	originalHead, err := exec.Command("git", "rev-parse", "HEAD").Output()
	if err != nil {
		return fmt.Errorf("onboard must run inside a git repository: %w", err)
	}
	defer gitwalk.Checkout(strings.TrimSpace(string(originalHead)))

	shas, err := gitwalk.Log(n)
	if err != nil {
		return fmt.Errorf("walking commit history: %w", err)
	}

	client := upload.NewClient(apiKey, apiURL)

	// oldest first, matching the Python onboarder's documented order.
	for i := len(shas) - 1; i >= 0; i-- {
		sha := shas[i]

		if err := gitwalk.Checkout(sha); err != nil {
			return fmt.Errorf("checking out %s: %w", sha, err)
		}

		build := exec.Command("sh", "-c", buildCmd)
		build.Stdout = os.Stdout
		build.Stderr = os.Stderr
		if err := build.Run(); err != nil {
			return fmt.Errorf("build failed at %s: %w", sha, err)
		}

		r, err := analysis.Analyze(analysis.Options{ELFPath: elfPath, LinkerScripts: ldScripts})
		if err != nil {
			return fmt.Errorf("analyzing %s at %s: %w", elfPath, sha, err)
		}

		meta := gitwalk.CommitMetadata(sha)
		if err := client.Upload(context.Background(), r, upload.Metadata{
			CommitSHA:       sha,
			CommitMessage:   meta.CommitMessage,
			TargetName:      target,
			Timestamp:       meta.CommitTimestamp,
			AnalysisVersion: "1.0.0",
		}); err != nil {
			return fmt.Errorf("uploading report for %s: %w", sha, err)
		}

		fmt.Fprintf(os.Stderr, "membrowse: onboarded %s\n", sha)
	}

	return nil
}
