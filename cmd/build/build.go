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
// Package build provides the build command for splitpack.
package build

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/splitpack/check"
	"bennypowers.dev/splitpack/fs"
	"bennypowers.dev/splitpack/internal/cli"
	"bennypowers.dev/splitpack/internal/output"
)

// Cmd is the build cobra command that bundles a project into its output
// directory.
var Cmd = &cobra.Command{
	Use:   "build",
	Short: "Bundle the project into the output directory",
	Long: `Bundle the project's entry points into content-addressed chunks.

Modules are grouped by the configured cache groups, split points load
their chunks on demand, and the HTML template is written with the
initial chunks of every entry. Production builds are minified and hashed.`,
	Example: `  # Production build of the current directory
  splitpack build

  # Development build without hashes or minification
  splitpack build --mode development

  # Precompress output and print a JSON report
  splitpack build --compress gzip,zstd --format json

  # Serve assets from a CDN path
  splitpack build --public-path https://cdn.example.com/app/`,
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "text", "Report format (text, json, yaml)")
	Cmd.Flags().String("out-dir", "", "Output directory (default: config output)")
	Cmd.Flags().String("public-path", "", "URL prefix for emitted files (default: config publicPath)")
	Cmd.Flags().String("checker", "", "Type checker to run alongside the build (syntax, tsc, none)")
	Cmd.Flags().StringSlice("compress", nil, "Precompress output in production (gzip, zstd)")
	Cmd.Flags().Bool("source-map", false, "Emit source maps (default: production only)")
	Cmd.Flags().IntP("jobs", "j", 0, "Number of parallel minify workers (default: number of CPUs)")
	Cmd.Flags().Bool("quiet", false, "Print no report")

	_ = viper.BindPFlag("out-dir", Cmd.Flags().Lookup("out-dir"))
	_ = viper.BindPFlag("public-path", Cmd.Flags().Lookup("public-path"))
	_ = viper.BindPFlag("checker", Cmd.Flags().Lookup("checker"))
	_ = viper.BindPFlag("compress", Cmd.Flags().Lookup("compress"))
	_ = viper.BindPFlag("source-map", Cmd.Flags().Lookup("source-map"))
	_ = viper.BindPFlag("jobs", Cmd.Flags().Lookup("jobs"))
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

	res, err := ctx.Build(cmd.Context())
	var failed *check.FailedError
	if err != nil && !errors.As(err, &failed) {
		return err
	}

	if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
		report := output.NewBuild(res, string(ctx.Config.Mode), ctx.Config.OutputDir())
		if perr := output.Print(osfs, report, format); perr != nil {
			return errors.Join(err, perr)
		}
	}
	if failed != nil {
		return fmt.Errorf("type check: %d error(s)", len(failed.Diagnostics))
	}
	return nil
}
