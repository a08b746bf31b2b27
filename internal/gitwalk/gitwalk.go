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

// Package gitwalk shells out to git to recover the commit metadata attached
// to an uploaded report, preferring GitHub Actions environment variables
// and event payload when present.
package gitwalk

import (
	"encoding/json"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Metadata is everything about the current commit worth attaching to a
// report upload.
type Metadata struct {
	CommitSHA       string
	BaseSHA         string
	BranchName      string
	RepoName        string
	CommitMessage   string
	CommitTimestamp string
	AuthorName      string
	AuthorEmail     string
	PRNumber        string
}

type githubEvent struct {
	Before      string `json:"before"`
	PullRequest struct {
		Number int `json:"number"`
		Base   struct {
			SHA string `json:"sha"`
		} `json:"base"`
		Head struct {
			Ref string `json:"ref"`
		} `json:"head"`
	} `json:"pull_request"`
}

// run executes `git <args...>` in the current directory, returning trimmed
// stdout, or "" if git is unavailable or the command fails - never an
// error, since metadata detection is always best-effort.
func run(args ...string) string {
	cmd := exec.Command("git", args...)
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// Log returns the SHAs of the last n commits reachable from HEAD, most
// recent first, for the onboard command's historical walk.
func Log(n int) ([]string, error) {
	cmd := exec.Command("git", "log", "--format=%H", "-n", strconv.Itoa(n))
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return nil, nil
	}
	return strings.Split(trimmed, "\n"), nil
}

// Checkout switches the working tree to the given commit.
func Checkout(sha string) error {
	cmd := exec.Command("git", "checkout", sha)
	return cmd.Run()
}

// DetectGitHub reads GitHub Actions environment variables and the event
// payload (if present), falling back to plain git commands for anything
// the environment doesn't supply.
func DetectGitHub() Metadata {
	eventName := os.Getenv("GITHUB_EVENT_NAME")
	commitSHA := os.Getenv("GITHUB_SHA")
	eventPath := os.Getenv("GITHUB_EVENT_PATH")

	var baseSHA, branchName, prNumber string

	if eventPath != "" {
		if data, err := os.ReadFile(eventPath); err == nil {
			var event githubEvent
			if json.Unmarshal(data, &event) == nil {
				switch eventName {
				case "pull_request":
					baseSHA = event.PullRequest.Base.SHA
					branchName = event.PullRequest.Head.Ref
					if event.PullRequest.Number != 0 {
						prNumber = strconv.Itoa(event.PullRequest.Number)
					}
				case "push":
					baseSHA = event.Before
					branchName = firstNonEmpty(
						run("symbolic-ref", "--short", "HEAD"),
						run("for-each-ref", "--points-at", "HEAD", "--format=%(refname:short)", "refs/heads/"),
						os.Getenv("GITHUB_REF_NAME"),
					)
				}
			}
		}
	}

	if commitSHA == "" {
		commitSHA = run("rev-parse", "HEAD")
	}
	if branchName == "" {
		branchName = firstNonEmpty(
			run("symbolic-ref", "--short", "HEAD"),
			run("for-each-ref", "--points-at", "HEAD", "--format=%(refname:short)", "refs/heads/"),
			"unknown",
		)
	}

	meta := commitMetadata(commitSHA)
	meta.BaseSHA = baseSHA
	meta.BranchName = branchName
	meta.RepoName = repoName()
	meta.PRNumber = prNumber

	return meta
}

// CommitMetadata returns what's knowable about a single commit via plain
// git commands, independent of any CI environment.
func CommitMetadata(commitSHA string) Metadata {
	meta := commitMetadata(commitSHA)
	if base := run("rev-parse", commitSHA+"~1"); base != "" {
		meta.BaseSHA = base
	}
	return meta
}

func commitMetadata(commitSHA string) Metadata {
	meta := Metadata{
		CommitSHA:       commitSHA,
		CommitMessage:   "Unknown commit message",
		CommitTimestamp: time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		AuthorName:      "Unknown",
		AuthorEmail:     "unknown@example.com",
	}
	if commitSHA == "" {
		return meta
	}

	if msg := run("log", "-1", "--pretty=format:%B", commitSHA); msg != "" {
		meta.CommitMessage = msg
	}
	if ts := run("log", "-1", "--pretty=format:%cI", commitSHA); ts != "" {
		meta.CommitTimestamp = ts
	}
	if name := run("log", "-1", "--pretty=format:%an", commitSHA); name != "" {
		meta.AuthorName = name
	}
	if email := run("log", "-1", "--pretty=format:%ae", commitSHA); email != "" {
		meta.AuthorEmail = email
	}

	return meta
}

func repoName() string {
	remote := run("config", "--get", "remote.origin.url")
	if remote == "" {
		return "unknown"
	}
	remote = strings.TrimSuffix(remote, ".git")
	parts := strings.Split(remote, "/")
	if len(parts) == 0 {
		return "unknown"
	}
	return parts[len(parts)-1]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
