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

// Package config reads a zonalstats run's TOML configuration file through
// viper: a single struct is unmarshaled from whatever the user supplied,
// with environment-variable expansion for path-like fields.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/viper"
)

// RasterConfig names one raster input and how to read it.
type RasterConfig struct {
	Name string
	Path string
	Band int
}

// FeatureConfig names the vector feature input.
type FeatureConfig struct {
	Path      string
	IDField   string
	KeepPaths []string // property names to pass through as output fields
}

// OutputConfig controls where and how results are written.
type OutputConfig struct {
	Path   string
	Format string // "csv", "geojson"
	Unnest bool   // one output row per raster cell instead of per feature
}

// RunConfig is the top-level configuration for a zonalstats run.
type RunConfig struct {
	LogLevel         string
	MaxCellsInMemory int
	Stats            []string
	ValueRasters     []RasterConfig
	WeightRasters    []RasterConfig
	Features         FeatureConfig
	Output           OutputConfig
}

// Read loads a RunConfig from the TOML file at path. Path-like string
// fields have environment variables expanded, so a run's configuration
// stays portable across machines with different data directory layouts.
func Read(path string) (*RunConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetDefault("LogLevel", "info")
	v.SetDefault("MaxCellsInMemory", 1_000_000)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("zonalstats: reading config %q: %w", path, err)
	}

	var cfg RunConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("zonalstats: parsing config %q: %w", path, err)
	}

	cfg.Features.Path = os.ExpandEnv(cfg.Features.Path)
	cfg.Output.Path = os.ExpandEnv(cfg.Output.Path)
	for i := range cfg.ValueRasters {
		cfg.ValueRasters[i].Path = os.ExpandEnv(cfg.ValueRasters[i].Path)
	}
	for i := range cfg.WeightRasters {
		cfg.WeightRasters[i].Path = os.ExpandEnv(cfg.WeightRasters[i].Path)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseRasterDescriptor parses the "name:path[band]" shorthand for one
// raster input, e.g. "elevation:dem.tif[1]", into a RasterConfig. The
// band suffix is optional and defaults to 1. No zonalstats command calls
// it, and the CLI's raster reader does not consult RasterConfig.Band.
func ParseRasterDescriptor(s string) (RasterConfig, error) {
	name, path, found := strings.Cut(s, ":")
	if !found {
		return RasterConfig{}, fmt.Errorf("zonalstats: raster descriptor %q must be of the form name:path[band]", s)
	}
	band := 1
	if i := strings.IndexByte(path, '['); i >= 0 {
		if !strings.HasSuffix(path, "]") {
			return RasterConfig{}, fmt.Errorf("zonalstats: raster descriptor %q has an unterminated band selector", s)
		}
		bandStr := path[i+1 : len(path)-1]
		n, err := fmt.Sscanf(bandStr, "%d", &band)
		if err != nil || n != 1 {
			return RasterConfig{}, fmt.Errorf("zonalstats: raster descriptor %q has a non-numeric band selector", s)
		}
		path = path[:i]
	}
	if name == "" || path == "" {
		return RasterConfig{}, fmt.Errorf("zonalstats: raster descriptor %q is missing a name or path", s)
	}
	return RasterConfig{Name: name, Path: path, Band: band}, nil
}

// WriteExample writes a starter RunConfig to w, encoded directly with
// toml rather than through viper, since there is no existing file to
// merge defaults into.
func WriteExample(w io.Writer) error {
	example := RunConfig{
		LogLevel:         "info",
		MaxCellsInMemory: 1_000_000,
		Stats:            []string{"mean", "weighted_mean(raster=elevation, weight_raster=pop)"},
		ValueRasters:     []RasterConfig{{Name: "elevation", Path: "elevation.zsr", Band: 1}},
		WeightRasters:    []RasterConfig{{Name: "pop", Path: "population.zsr", Band: 1}},
		Features:         FeatureConfig{Path: "zones.shp", IDField: "ZONE_ID"},
		Output:           OutputConfig{Path: "results.csv", Format: "csv"},
	}
	return toml.NewEncoder(w).Encode(example)
}

func (c *RunConfig) validate() error {
	if len(c.Stats) == 0 {
		return fmt.Errorf("zonalstats: config has no Stats descriptors")
	}
	if len(c.ValueRasters) == 0 {
		return fmt.Errorf("zonalstats: config has no ValueRasters")
	}
	if c.Features.Path == "" {
		return fmt.Errorf("zonalstats: config Features.Path is required")
	}
	if c.Output.Path == "" {
		return fmt.Errorf("zonalstats: config Output.Path is required")
	}
	switch strings.ToLower(c.Output.Format) {
	case "", "csv", "geojson":
	default:
		return fmt.Errorf("zonalstats: unsupported Output.Format %q", c.Output.Format)
	}
	return nil
}
