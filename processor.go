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

package zonalstats

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// OutputWriter is the narrow external collaborator contract this core
// depends on to emit results. Implementations live outside the core
// (CSV, GeoJSON, database sinks, in-memory test fixtures).
type OutputWriter interface {
	// WriteFeature emits one feature's output row. row's keys are the
	// requested operations' field names plus any passthrough fields
	// configured on the Processor.
	WriteFeature(ctx context.Context, feature Feature, row map[string]any) error

	// Close flushes and releases any resources the writer holds.
	Close() error
}

// FeatureErrorPolicy decides what happens when processing a single
// feature fails. Returning nil skips the feature and continues; returning
// a non-nil error aborts the run with that error.
type FeatureErrorPolicy func(feature Feature, err error) error

// AbortOnFeatureError is a FeatureErrorPolicy that always aborts the run.
func AbortOnFeatureError(_ Feature, err error) error { return err }

// SkipFeatureErrors is a FeatureErrorPolicy that logs and continues.
func SkipFeatureErrors(feature Feature, err error) error {
	logrus.WithFields(logrus.Fields{
		"feature": feature.Index,
		"id":      feature.ID,
	}).WithError(err).Warn("skipping feature")
	return nil
}

// ProcessorConfig controls the resource and error-handling behavior of a
// Processor run. It carries no statistical semantics of its own.
type ProcessorConfig struct {
	// MaxCellsInMemory bounds how many raster cells a single coverage or
	// read call may materialize at once. Features whose bounding window
	// exceeds this are processed in row-wise tiles (also split by column
	// when a single row exceeds it), accumulated into the same running
	// StatsRegistry entry. Zero means unbounded.
	MaxCellsInMemory int

	// OnFeatureError decides how to handle a per-feature failure. A nil
	// value defaults to AbortOnFeatureError.
	OnFeatureError FeatureErrorPolicy

	// IncludeFields lists Feature.Fields keys to copy verbatim into every
	// output row, alongside the computed stat fields.
	IncludeFields []string

	// IncludeID copies Feature.ID into the output row under "id" when
	// true.
	IncludeID bool
}

// Processor is the orchestration entry point tying a feature source,
// value/weight raster sources, a set of operations, and an output writer
// together into one run.
type Processor struct {
	Features      FeatureSource
	ValueRasters  []RasterSource
	WeightRasters []RasterSource
	Operations    []Operation
	Output        OutputWriter
	Config        ProcessorConfig

	log *logrus.Entry
}

// Run iterates every feature from Features, accumulates the configured
// Operations against it, and writes one output row per feature.
func (p *Processor) Run(ctx context.Context) error {
	log := p.log
	if log == nil {
		log = logrus.WithField("component", "processor")
	}

	rasterType := func(name string) PixelType {
		if src, err := findRaster(p.ValueRasters, name); err == nil {
			return src.PixelType()
		}
		return PixelF64
	}
	registry := NewStatsRegistry(p.Operations, rasterType)

	keys := make(map[AccumulatorKey]bool)
	for _, op := range p.Operations {
		keys[op.Key()] = true
	}

	n := p.Features.NumFeatures()
	log.WithField("features", n).WithField("operations", len(p.Operations)).Info("starting run")

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		feature, err := p.Features.Feature(ctx, i)
		if err != nil {
			if handled := p.handleError(Feature{Index: i}, fmt.Errorf("zonalstats: reading feature %d: %w", i, err)); handled != nil {
				return handled
			}
			continue
		}

		if err := p.processFeature(ctx, feature, registry, keys); err != nil {
			if handled := p.handleError(feature, err); handled != nil {
				return handled
			}
			continue
		}

		row := p.buildRow(feature, registry)
		if err := p.Output.WriteFeature(ctx, feature, row); err != nil {
			return fmt.Errorf("zonalstats: writing feature %d: %w", feature.Index, err)
		}
		registry.Flush(feature.Index)
	}
	return nil
}

// FieldNames returns the static output column order a writer should use:
// "id" if configured, then IncludeFields, then every operation's
// FieldName in the order the operations were given. It does not list the
// "q_<n>" fields quantile writes, nor the per-observed-value fields frac
// and weighted_frac write when given no value argument; those rows carry
// keys this list does not contain.
func (p *Processor) FieldNames() []string {
	var fields []string
	if p.Config.IncludeID {
		fields = append(fields, "id")
	}
	fields = append(fields, p.Config.IncludeFields...)
	for _, op := range p.Operations {
		fields = append(fields, op.FieldName)
	}
	return fields
}

func (p *Processor) handleError(feature Feature, err error) error {
	policy := p.Config.OnFeatureError
	if policy == nil {
		policy = AbortOnFeatureError
	}
	return policy(feature, err)
}

func (p *Processor) processFeature(ctx context.Context, feature Feature, registry *StatsRegistry, keys map[AccumulatorKey]bool) error {
	if err := validateRings(feature.Geometry); err != nil {
		return err
	}
	bounds := feature.Geometry.Bounds()
	if bounds.Empty() {
		return nil
	}
	featBox := NewBox(bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)

	for key := range keys {
		valueSrc, err := findRaster(p.ValueRasters, key.ValueRaster)
		if err != nil {
			return err
		}
		var weightSrc RasterSource
		if key.WeightRaster != "" {
			weightSrc, err = findRaster(p.WeightRasters, key.WeightRaster)
			if err != nil {
				return err
			}
		}

		grid := valueSrc.Grid()
		window, ok := grid.Window(featBox)
		if !ok {
			continue // no overlap: registry stays empty for this key
		}

		for _, tile := range p.splitWindow(window) {
			tileBox := grid.SubGrid(tile).Bounds()
			coverage, err := CoverageInBox(feature.Geometry, grid, tileBox)
			if err != nil {
				return err
			}
			values, err := valueSrc.ReadWindow(ctx, tileBox)
			if err != nil {
				return fmt.Errorf("zonalstats: reading %q: %w", valueSrc.Name(), err)
			}

			acc := registry.Get(feature.Index, key)
			if weightSrc == nil {
				if err := acc.Process(coverage, values); err != nil {
					return err
				}
				continue
			}
			wv, err := weightSrc.ReadWindow(ctx, tileBox)
			if err != nil {
				return fmt.Errorf("zonalstats: reading %q: %w", weightSrc.Name(), err)
			}
			if err := acc.ProcessWeighted(coverage, values, WidenToFloat64(wv)); err != nil {
				return err
			}
		}
	}
	return nil
}

// splitWindow divides w into row-wise tiles no larger than
// MaxCellsInMemory cells, splitting each row band by column as well when
// one row alone exceeds the budget, and preserving w if the budget is
// zero or already satisfied.
func (p *Processor) splitWindow(w Window) []Window {
	if p.Config.MaxCellsInMemory <= 0 || w.Cells() <= p.Config.MaxCellsInMemory {
		return []Window{w}
	}
	colsPerTile := w.Cols()
	if colsPerTile > p.Config.MaxCellsInMemory {
		colsPerTile = p.Config.MaxCellsInMemory
	}
	rowsPerTile := p.Config.MaxCellsInMemory / colsPerTile
	var tiles []Window
	for r := w.RowMin; r < w.RowMax; r += rowsPerTile {
		end := r + rowsPerTile
		if end > w.RowMax {
			end = w.RowMax
		}
		for c := w.ColMin; c < w.ColMax; c += colsPerTile {
			colEnd := c + colsPerTile
			if colEnd > w.ColMax {
				colEnd = w.ColMax
			}
			tiles = append(tiles, Window{RowMin: r, RowMax: end, ColMin: c, ColMax: colEnd})
		}
	}
	return tiles
}

func (p *Processor) buildRow(feature Feature, registry *StatsRegistry) map[string]any {
	row := make(map[string]any, len(p.Operations)+len(p.Config.IncludeFields)+1)
	if p.Config.IncludeID {
		row["id"] = feature.ID
	}
	for _, f := range p.Config.IncludeFields {
		if v, ok := feature.Fields[f]; ok {
			row[f] = v
		}
	}
	for _, op := range p.Operations {
		var acc Accumulator
		if registry.Contains(feature.Index, op.Key()) {
			acc = registry.Get(feature.Index, op.Key()).Accumulator()
		} else {
			acc = registry.Empty(op.Key()).Accumulator()
		}
		if err := op.SetResult(row, acc, p.missingValue(op.ValueRaster)); err != nil {
			row[op.FieldName] = nil
			logrus.WithError(err).WithField("field", op.FieldName).Error("stat evaluation failed")
		}
	}
	return row
}

// missingValue is the sentinel Operation.SetResult substitutes for an
// empty accumulator result: the named raster's declared nodata value if
// it has one, else NaN.
func (p *Processor) missingValue(valueRaster string) float64 {
	src, err := findRaster(p.ValueRasters, valueRaster)
	if err != nil {
		return math.NaN()
	}
	if nodata, ok := src.NodataF64(); ok {
		return nodata
	}
	return math.NaN()
}
