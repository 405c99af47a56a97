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
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spatialmodel/zonalstats"
	"github.com/spatialmodel/zonalstats/internal/config"
	"github.com/spatialmodel/zonalstats/internal/geomio"
)

var skipFeatureErrors bool

var runCmd = &cobra.Command{
	Use:   "run [config.toml]",
	Short: "Run a zonal-statistics job described by a TOML configuration file.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(args[0])
	},
}

func init() {
	runCmd.Flags().BoolVar(&skipFeatureErrors, "skip-feature-errors", false, "log and skip features that fail instead of aborting the run")
}

func run(configPath string) error {
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

	features, err := openFeatures(cfg.Features)
	if err != nil {
		return err
	}

	ops, err := zonalstats.BuildOperations(cfg.Stats, valueRasters, weightRasters)
	if err != nil {
		return err
	}

	proc := &zonalstats.Processor{
		Features:      features,
		ValueRasters:  valueRasters,
		WeightRasters: weightRasters,
		Operations:    ops,
		Config: zonalstats.ProcessorConfig{
			MaxCellsInMemory: cfg.MaxCellsInMemory,
			IncludeFields:    cfg.Features.KeepPaths,
			IncludeID:        cfg.Features.IDField != "",
		},
	}
	if skipFeatureErrors {
		proc.Config.OnFeatureError = zonalstats.SkipFeatureErrors
	}

	writer, err := openWriter(cfg.Output, proc.FieldNames())
	if err != nil {
		return err
	}
	proc.Output = writer

	if err := proc.Run(context.Background()); err != nil {
		writer.Close()
		return err
	}
	return writer.Close()
}

func openRasters(cfgs []config.RasterConfig) ([]zonalstats.RasterSource, error) {
	sources := make([]zonalstats.RasterSource, len(cfgs))
	for i, c := range cfgs {
		src, err := geomio.OpenFlatRaster(c.Name, c.Path)
		if err != nil {
			return nil, err
		}
		sources[i] = src
	}
	return sources, nil
}

func openFeatures(cfg config.FeatureConfig) (zonalstats.FeatureSource, error) {
	switch {
	case strings.HasSuffix(strings.ToLower(cfg.Path), ".shp"):
		return geomio.OpenShapefile(cfg.Path, cfg.IDField, cfg.KeepPaths)
	case strings.HasSuffix(strings.ToLower(cfg.Path), ".geojson"), strings.HasSuffix(strings.ToLower(cfg.Path), ".json"):
		return geomio.OpenGeoJSON(cfg.Path, cfg.IDField, cfg.KeepPaths)
	default:
		return nil, fmt.Errorf("zonalstats: cannot infer feature format from %q", cfg.Path)
	}
}

func openWriter(cfg config.OutputConfig, fields []string) (zonalstats.OutputWriter, error) {
	switch strings.ToLower(cfg.Format) {
	case "geojson":
		return geomio.NewGeoJSONWriter(cfg.Path), nil
	default:
		return geomio.NewCSVWriter(cfg.Path, cfg.Unnest, fields)
	}
}
