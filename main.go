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
// Command splitpack bundles web applications into code-split chunks.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"bennypowers.dev/splitpack/cmd/build"
	"bennypowers.dev/splitpack/cmd/inspect"
	"bennypowers.dev/splitpack/cmd/version"
)

var (
	cpuprofile string
	prof       profiler
	rootCmd    = &cobra.Command{
		Use:   "splitpack",
		Short: "Bundle web applications into code-split chunks",
		Long: `splitpack bundles TypeScript, JSX and Less sources into vendor, shared
and per-route chunks with content-hashed filenames.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return prof.start(cpuprofile)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return prof.stop()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringP("dir", "C", ".", "Project directory")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default: splitpack.{yaml,yml,json,toml} in the project)")
	rootCmd.PersistentFlags().StringP("mode", "m", "", "Build mode, development or production (default: NODE_ENV, else production)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Report file (default: stdout)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log each module and stage")
	rootCmd.PersistentFlags().StringVar(&cpuprofile, "cpuprofile", "", "Write CPU profile to file")

	_ = viper.BindPFlag("dir", rootCmd.PersistentFlags().Lookup("dir"))
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("mode", rootCmd.PersistentFlags().Lookup("mode"))
	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(build.Cmd)
	rootCmd.AddCommand(inspect.Cmd)
	rootCmd.AddCommand(version.Cmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
