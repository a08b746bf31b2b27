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

// Package cliapp builds the membrowse command-line tool: report generation,
// historical onboarding across commits, and summary retrieval.
package cliapp

import (
	"github.com/spf13/cobra"
)

// Root builds the membrowse root command with all subcommands attached.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "membrowse",
		Short: "Firmware memory-footprint analysis",
		Long: "membrowse parses linker scripts and ELF binaries to report\n" +
			"per-region memory utilization and per-symbol source attribution.",
		SilenceUsage: true,
	}

	root.AddCommand(newReportCommand())
	root.AddCommand(newOnboardCommand())
	root.AddCommand(newSummaryCommand())

	return root
}
