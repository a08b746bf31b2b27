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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jetsetilly/membrowse/internal/analysis"
	"github.com/jetsetilly/membrowse/internal/report"
	"github.com/jetsetilly/membrowse/logger"
)

func newReportCommand() *cobra.Command {
	var (
		skipLineProgram bool
		verbose         bool
		output          string
	)

	cmd := &cobra.Command{
		Use:   "report <elf> <linker-script>...",
		Short: "Generate a memory footprint report from an ELF file and its linker scripts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := analysis.Analyze(analysis.Options{
				ELFPath:         args[0],
				LinkerScripts:   args[1:],
				SkipLineProgram: skipLineProgram,
			})
			if err != nil {
				return err
			}

			if verbose {
				fmt.Fprintf(os.Stderr, "membrowse: analyzed %d symbols, %d memory regions\n",
					len(r.Symbols), len(r.MemoryLayout))
			}

			data, err := report.MarshalJSON(r)
			if err != nil {
				return err
			}

			if output == "" {
				fmt.Println(string(data))
				return nil
			}

			logger.Logf("cliapp", "writing report to %s", output)
			return os.WriteFile(output, data, 0o644)
		},
	}

	cmd.Flags().BoolVar(&skipLineProgram, "skip-line-program", false, "skip DWARF line-program processing for faster analysis")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "print summary statistics to stderr")
	cmd.Flags().StringVar(&output, "output", "", "write the report to this path instead of stdout")

	return cmd
}
