/*
Copyright © 2024 the zonalstats authors.
This file is part of zonalstats.

zonalstats is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

zonalstats is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with zonalstats.  If not, see <http://www.gnu.org/licenses/>.
*/

package main

import (
	"github.com/spf13/cobra"

	"github.com/spatialmodel/zonalstats"
	"github.com/spatialmodel/zonalstats/internal/zlog"
)

var logLevel string

// rootCmd is the top-level "zonalstats" command.
var rootCmd = &cobra.Command{
	Use:     "zonalstats",
	Short:   "Coverage-weighted raster statistics over polygon zones.",
	Version: zonalstats.Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		zlog.SetGlobal(zlog.New(logLevel))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.AddCommand(runCmd, describeCmd, initCmd)
}
