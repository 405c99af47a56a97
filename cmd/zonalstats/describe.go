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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spatialmodel/zonalstats"
	"github.com/spatialmodel/zonalstats/internal/config"
)

var describeCmd = &cobra.Command{
	Use:   "describe [config.toml]",
	Short: "Parse a configuration's stat descriptors and print the resulting output fields without running.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return describe(args[0])
	},
}

func describe(configPath string) error {
	cfg, err := config.Read(configPath)
	if err != nil {
		return err
	}
	valueRasters, err := openRasters(cfg.ValueRasters)
	if err != nil {
		return err
	}
	weightRasters, err := openRasters(cfg.WeightRasters)
	if err != nil {
		return err
	}
	ops, err := zonalstats.BuildOperations(cfg.Stats, valueRasters, weightRasters)
	if err != nil {
		return err
	}
	for _, op := range ops {
		if op.WeightRaster == "" {
			fmt.Printf("%s\t%s(%s)\n", op.FieldName, op.Stat, op.ValueRaster)
		} else {
			fmt.Printf("%s\t%s(%s, %s)\n", op.FieldName, op.Stat, op.ValueRaster, op.WeightRaster)
		}
	}
	return nil
}
