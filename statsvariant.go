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
	"fmt"
	"math"
)

// StatsVariant wraps a *RasterStats[T] for exactly one pixel type T,
// giving the registry and operation dispatch a single concrete type to
// hold regardless of which values raster an operation was built against.
type StatsVariant struct {
	Type PixelType
	I8   *RasterStats[int8]
	I16  *RasterStats[int16]
	I32  *RasterStats[int32]
	I64  *RasterStats[int64]
	F32  *RasterStats[float32]
	F64  *RasterStats[float64]
}

// NewStatsVariant allocates an accumulator matching t.
func NewStatsVariant(t PixelType, storeValues bool) StatsVariant {
	v := StatsVariant{Type: t}
	switch t {
	case PixelI8:
		v.I8 = NewRasterStats[int8](storeValues)
	case PixelI16:
		v.I16 = NewRasterStats[int16](storeValues)
	case PixelI32:
		v.I32 = NewRasterStats[int32](storeValues)
	case PixelI64:
		v.I64 = NewRasterStats[int64](storeValues)
	case PixelF32:
		v.F32 = NewRasterStats[float32](storeValues)
	default:
		v.F64 = NewRasterStats[float64](storeValues)
	}
	return v
}

// Accumulator returns the wrapped accumulator through the type-erased
// Accumulator interface.
func (v StatsVariant) Accumulator() Accumulator {
	switch v.Type {
	case PixelI8:
		return v.I8
	case PixelI16:
		return v.I16
	case PixelI32:
		return v.I32
	case PixelI64:
		return v.I64
	case PixelF32:
		return v.F32
	default:
		return v.F64
	}
}

// Process dispatches to the wrapped accumulator's Process method, failing
// with ErrPixelTypeMismatch if coverage/values pixel types disagree with
// the variant.
func (v StatsVariant) Process(coverage Raster[float32], values RasterVariant) error {
	if values.Type != v.Type {
		return fmt.Errorf("zonalstats: %w: variant is %s, values raster is %s", ErrPixelTypeMismatch, v.Type, values.Type)
	}
	switch v.Type {
	case PixelI8:
		v.I8.Process(coverage, *values.I8)
	case PixelI16:
		v.I16.Process(coverage, *values.I16)
	case PixelI32:
		v.I32.Process(coverage, *values.I32)
	case PixelI64:
		v.I64.Process(coverage, *values.I64)
	case PixelF32:
		v.F32.Process(coverage, *values.F32)
	default:
		v.F64.Process(coverage, *values.F64)
	}
	return nil
}

// ProcessWeighted dispatches to the wrapped accumulator's ProcessWeighted
// method. weights has already been widened to float64 by the caller.
func (v StatsVariant) ProcessWeighted(coverage Raster[float32], values RasterVariant, weights Raster[float64]) error {
	if values.Type != v.Type {
		return fmt.Errorf("zonalstats: %w: variant is %s, values raster is %s", ErrPixelTypeMismatch, v.Type, values.Type)
	}
	switch v.Type {
	case PixelI8:
		v.I8.ProcessWeighted(coverage, *values.I8, weights)
	case PixelI16:
		v.I16.ProcessWeighted(coverage, *values.I16, weights)
	case PixelI32:
		v.I32.ProcessWeighted(coverage, *values.I32, weights)
	case PixelI64:
		v.I64.ProcessWeighted(coverage, *values.I64, weights)
	case PixelF32:
		v.F32.ProcessWeighted(coverage, *values.F32, weights)
	default:
		v.F64.ProcessWeighted(coverage, *values.F64, weights)
	}
	return nil
}

// WidenToFloat64 copies a RasterVariant's cell data into a Raster[float64],
// mapping the source's nodata sentinel to NaN. This is the single
// conversion point that lets ProcessWeighted treat every weights raster
// pixel type uniformly.
func WidenToFloat64(v RasterVariant) Raster[float64] {
	switch v.Type {
	case PixelI8:
		return widen(*v.I8)
	case PixelI16:
		return widen(*v.I16)
	case PixelI32:
		return widen(*v.I32)
	case PixelI64:
		return widen(*v.I64)
	case PixelF32:
		return widen(*v.F32)
	default:
		return widen(*v.F64)
	}
}

// widen copies r into a float64 raster, mapping its nodata sentinel (if
// any) to NaN. The returned raster's NoData is left nil: nodata cells are
// thereafter recognized via math.IsNaN, not equality.
func widen[T Pixel](r Raster[T]) Raster[float64] {
	out := NewRaster[float64](r.Grid)
	for i, v := range r.Data {
		if r.IsNoData(v) {
			out.Data[i] = math.NaN()
			continue
		}
		out.Data[i] = float64(v)
	}
	return out
}
