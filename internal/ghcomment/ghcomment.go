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

// Package ghcomment renders a Markdown memory-report summary and posts it
// as a pull-request comment via the gh CLI, updating a prior MemBrowse
// comment in place rather than piling up duplicates.
package ghcomment

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"text/template"

	"github.com/jetsetilly/membrowse/internal/model"
)

// commentMarker tags MemBrowse's own comments so a later run can find and
// update them instead of creating a duplicate.
const commentMarker = "<!-- membrowse-pr-comment -->"

const commentTemplate = commentMarker + `
## MemBrowse Memory Analysis
{{if .ComparisonURL}}
[View Build Comparison]({{.ComparisonURL}})

Memory footprint analysis has been uploaded to MemBrowse.
{{else}}
Memory footprint analysis completed.

*Build comparison not available (this may be the first build for this project)*
{{end}}
{{if .Regions}}
| Region | Type | Used | Limit | Utilization |
|---|---|---|---|---|
{{range .Regions}}| {{.Name}} | {{.Type}} | {{.Used}} | {{.Limit}} | {{printf "%.1f" .Utilization}}% |
{{end}}{{end}}`

type regionRow struct {
	Name        string
	Type        model.RegionType
	Used        int64
	Limit       uint64
	Utilization float64
}

type templateData struct {
	ComparisonURL string
	Regions       []regionRow
}

var parsedTemplate = template.Must(template.New("comment").Parse(commentTemplate))

// Body renders the Markdown comment body for a report, with an optional
// comparison-dashboard URL. Regions are rendered in name order for
// deterministic output between runs.
func Body(report model.Report, comparisonURL string) (string, error) {
	data := templateData{ComparisonURL: comparisonURL}

	names := make([]string, 0, len(report.MemoryLayout))
	for name := range report.MemoryLayout {
		names = append(names, name)
	}
	sortStrings(names)

	for _, name := range names {
		r := report.MemoryLayout[name]
		data.Regions = append(data.Regions, regionRow{
			Name:        name,
			Type:        r.Type,
			Used:        r.UsedSize,
			Limit:       r.LimitSize,
			Utilization: r.UtilizationPercent,
		})
	}

	var sb strings.Builder
	if err := parsedTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("rendering PR comment: %w", err)
	}
	return sb.String(), nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// PostOrUpdate posts body as a new PR comment, or updates MemBrowse's
// existing comment on the current PR if one is found. Any failure - gh
// unavailable, not running in a pull_request context, API error - is
// swallowed and logged to stderr rather than failing the caller: a PR
// comment is a nice-to-have, never the substance of a report run.
func PostOrUpdate(body string) {
	if os.Getenv("GITHUB_EVENT_NAME") != "pull_request" {
		return
	}
	if !ghAvailable() {
		fmt.Fprintln(os.Stderr, "ghcomment: gh CLI not available, skipping PR comment")
		return
	}

	if id, ok := findExistingComment(); ok {
		if err := updateComment(id, body); err != nil {
			fmt.Fprintf(os.Stderr, "ghcomment: failed to update PR comment: %v\n", err)
		}
		return
	}

	if err := createComment(body); err != nil {
		fmt.Fprintf(os.Stderr, "ghcomment: failed to create PR comment: %v\n", err)
	}
}

func ghAvailable() bool {
	cmd := exec.Command("gh", "--version")
	return cmd.Run() == nil
}

func findExistingComment() (string, bool) {
	jq := fmt.Sprintf(`.comments[] | select(.body | contains("%s")) | .id`, commentMarker)
	cmd := exec.Command("gh", "pr", "view", "--json", "comments", "--jq", jq)
	out, err := cmd.Output()
	if err != nil {
		return "", false
	}
	id := strings.TrimSpace(string(out))
	return id, id != ""
}

func updateComment(id, body string) error {
	path := fmt.Sprintf("repos/{owner}/{repo}/issues/comments/%s", id)
	cmd := exec.Command("gh", "api", "-X", "PATCH", path, "-f", "body="+body)
	return cmd.Run()
}

func createComment(body string) error {
	cmd := exec.Command("gh", "pr", "comment", "--body", body)
	return cmd.Run()
}
