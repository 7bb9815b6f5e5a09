/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/
// Package inspect provides the inspect command for splitpack.
package inspect

import (
	"github.com/spf13/cobra"

	"bennypowers.dev/splitpack/fs"
	"bennypowers.dev/splitpack/internal/cli"
	"bennypowers.dev/splitpack/internal/output"
)

// Cmd is the inspect cobra command that prints the chunk plan without
// writing any output.
var Cmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print how modules are split into chunks",
	Long: `Build the module graph and classify it into chunks, then print each
chunk with its modules and each entry and split point with the chunks it
loads. Nothing is written to the output directory.`,
	Example: `  # Table of chunks and their load order
  splitpack inspect

  # Full plan as YAML
  splitpack inspect --format yaml`,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "text", "Output format (text, json, yaml)")
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()

	format, _ := cmd.Flags().GetString("format")
	if err := output.ValidateFormat(format); err != nil {
		return err
	}

	ctx, err := cli.NewContext(osfs)
	if err != nil {
		return err
	}
	res, err := ctx.Plan(cmd.Context())
	if err != nil {
		return err
	}
	return output.Print(osfs, output.NewPlan(res), format)
}
