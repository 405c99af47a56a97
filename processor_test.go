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
	"errors"
	"testing"

	"github.com/ctessum/geom"
	"github.com/google/uuid"
)

// memRasterSource is an in-memory RasterSource fixture backing a single
// Raster[float64] over the whole grid, used to exercise Processor.Run
// without any real file I/O.
type memRasterSource struct {
	name      string
	data      Raster[float64]
	nodata    float64
	hasNodata bool
}

func newMemRasterSource(name string, g Grid, values []float64) memRasterSource {
	r := NewRaster[float64](g)
	copy(r.Data, values)
	return memRasterSource{name: name, data: r}
}

func newMemRasterSourceWithNodata(name string, g Grid, values []float64, nodata float64) memRasterSource {
	src := newMemRasterSource(name, g, values)
	src.nodata, src.hasNodata = nodata, true
	return src
}

func (m memRasterSource) Name() string { return m.name }
func (m memRasterSource) Grid() Grid   { return m.data.Grid }
func (m memRasterSource) NodataF64() (float64, bool) { return m.nodata, m.hasNodata }
func (m memRasterSource) PixelType() PixelType { return PixelF64 }

func (m memRasterSource) ReadWindow(_ context.Context, box Box) (RasterVariant, error) {
	w, ok := m.data.Grid.Window(box)
	if !ok {
		return VariantOf(NewRaster[float64](m.data.Grid.SubGrid(Window{}))), nil
	}
	return VariantOf(m.data.SubWindow(w)), nil
}

func (m memRasterSource) ReadEmpty() RasterVariant {
	return VariantOf(NewRaster[float64](m.data.Grid.SubGrid(Window{})))
}

// memFeatureSource holds a fixed list of features in memory.
type memFeatureSource struct {
	features []Feature
}

func (m memFeatureSource) Name() string      { return "mem" }
func (m memFeatureSource) NumFeatures() int  { return len(m.features) }
func (m memFeatureSource) Feature(_ context.Context, index int) (Feature, error) {
	if index < 0 || index >= len(m.features) {
		return Feature{}, errors.New("index out of range")
	}
	return m.features[index], nil
}

// memWriter records every row written to it, in order.
type memWriter struct {
	rows []map[string]any
}

func (w *memWriter) WriteFeature(_ context.Context, _ Feature, row map[string]any) error {
	w.rows = append(w.rows, row)
	return nil
}

func (w *memWriter) Close() error { return nil }

func squarePoly(x0, y0, x1, y1 float64) geom.Polygon {
	return geom.Polygon{{
		{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0},
	}}
}

func TestProcessorRunBasic(t *testing.T) {
	g, err := NewGrid(0, 0, 4, 4, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	values := make([]float64, 16)
	for i := range values {
		values[i] = float64(i)
	}
	elevation := newMemRasterSource("elevation", g, values)

	features := memFeatureSource{features: []Feature{
		{Index: 0, UUID: uuid.New(), ID: "zoneA", Geometry: squarePoly(0, 0, 4, 4), Fields: map[string]any{"name": "A"}},
	}}

	ops, err := BuildOperations([]string{"mean", "sum"}, []RasterSource{elevation}, nil)
	if err != nil {
		t.Fatal(err)
	}

	w := &memWriter{}
	p := &Processor{
		Features:     features,
		ValueRasters: []RasterSource{elevation},
		Operations:   ops,
		Output:       w,
		Config:       ProcessorConfig{IncludeID: true, IncludeFields: []string{"name"}},
	}
	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(w.rows) != 1 {
		t.Fatalf("wrote %d rows, want 1", len(w.rows))
	}
	row := w.rows[0]
	if row["id"] != "zoneA" || row["name"] != "A" {
		t.Errorf("row passthrough fields = %v, want id=zoneA name=A", row)
	}
	wantSum := 0.0
	for _, v := range values {
		wantSum += v
	}
	if row["sum"] != wantSum {
		t.Errorf("sum = %v, want %v", row["sum"], wantSum)
	}
	if row["mean"] != wantSum/16 {
		t.Errorf("mean = %v, want %v", row["mean"], wantSum/16)
	}
}

func TestProcessorRunTilesLargeWindow(t *testing.T) {
	g, err := NewGrid(0, 0, 4, 4, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	values := make([]float64, 16)
	for i := range values {
		values[i] = 1
	}
	elevation := newMemRasterSource("elevation", g, values)
	features := memFeatureSource{features: []Feature{
		{Index: 0, UUID: uuid.New(), ID: "zoneA", Geometry: squarePoly(0, 0, 4, 4)},
	}}
	ops, err := BuildOperations([]string{"count"}, []RasterSource{elevation}, nil)
	if err != nil {
		t.Fatal(err)
	}
	w := &memWriter{}
	// Force tiling: 4 cols per row, cap at 4 cells/tile means one row per tile.
	p := &Processor{
		Features:     features,
		ValueRasters: []RasterSource{elevation},
		Operations:   ops,
		Output:       w,
		Config:       ProcessorConfig{MaxCellsInMemory: 4},
	}
	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	// Additive accumulation across tiles should still see every cell once.
	if got := w.rows[0]["count"]; got != 16.0 {
		t.Errorf("count = %v, want 16 (tiling must not double-count or drop cells)", got)
	}
}

func TestProcessorRunEmptyFeatureGetsFallbackRow(t *testing.T) {
	g, err := NewGrid(0, 0, 4, 4, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	elevation := newMemRasterSource("elevation", g, make([]float64, 16))
	// Feature geometry lies entirely outside the raster's extent.
	features := memFeatureSource{features: []Feature{
		{Index: 0, UUID: uuid.New(), ID: "faraway", Geometry: squarePoly(100, 100, 101, 101)},
	}}
	ops, err := BuildOperations([]string{"count", "mean"}, []RasterSource{elevation}, nil)
	if err != nil {
		t.Fatal(err)
	}
	w := &memWriter{}
	p := &Processor{Features: features, ValueRasters: []RasterSource{elevation}, Operations: ops, Output: w}
	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	row := w.rows[0]
	if row["count"] != 0.0 {
		t.Errorf("count = %v, want 0", row["count"])
	}
}

func TestProcessorRunEmptyFeatureUsesRasterNodata(t *testing.T) {
	g, err := NewGrid(0, 0, 4, 4, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	elevation := newMemRasterSourceWithNodata("elevation", g, make([]float64, 16), -9999)
	// Feature geometry lies entirely outside the raster's extent, so min
	// gets its result from an empty accumulator.
	features := memFeatureSource{features: []Feature{
		{Index: 0, UUID: uuid.New(), ID: "faraway", Geometry: squarePoly(100, 100, 101, 101)},
	}}
	ops, err := BuildOperations([]string{"min"}, []RasterSource{elevation}, nil)
	if err != nil {
		t.Fatal(err)
	}
	w := &memWriter{}
	p := &Processor{Features: features, ValueRasters: []RasterSource{elevation}, Operations: ops, Output: w}
	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := w.rows[0]["min"]; got != -9999.0 {
		t.Errorf("min = %v, want the raster's declared nodata value -9999", got)
	}
}

func TestProcessorRunSkipsFeatureErrorsWhenConfigured(t *testing.T) {
	g, err := NewGrid(0, 0, 4, 4, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	elevation := newMemRasterSource("elevation", g, make([]float64, 16))
	features := memFeatureSource{features: []Feature{
		{Index: 0, ID: "bad", Geometry: geom.Polygon{{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}}}, // unclosed ring
		{Index: 1, ID: "good", Geometry: squarePoly(0, 0, 4, 4)},
	}}
	ops, err := BuildOperations([]string{"count"}, []RasterSource{elevation}, nil)
	if err != nil {
		t.Fatal(err)
	}
	w := &memWriter{}
	p := &Processor{
		Features:     features,
		ValueRasters: []RasterSource{elevation},
		Operations:   ops,
		Output:       w,
		Config:       ProcessorConfig{OnFeatureError: SkipFeatureErrors},
	}
	if err := p.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(w.rows) != 1 {
		t.Fatalf("wrote %d rows, want 1 (the bad feature should be skipped, not aborted)", len(w.rows))
	}
}

func TestProcessorRunAbortsOnFeatureErrorByDefault(t *testing.T) {
	g, err := NewGrid(0, 0, 4, 4, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	elevation := newMemRasterSource("elevation", g, make([]float64, 16))
	features := memFeatureSource{features: []Feature{
		{Index: 0, ID: "bad", Geometry: geom.Polygon{{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}}},
	}}
	ops, err := BuildOperations([]string{"count"}, []RasterSource{elevation}, nil)
	if err != nil {
		t.Fatal(err)
	}
	w := &memWriter{}
	p := &Processor{Features: features, ValueRasters: []RasterSource{elevation}, Operations: ops, Output: w}
	if err := p.Run(context.Background()); err == nil {
		t.Fatal("Run() error = nil, want an error for the malformed geometry")
	}
}
