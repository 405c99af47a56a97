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
)

// Pixel is the closed set of pixel types a Raster may carry.
type Pixel interface {
	int8 | int16 | int32 | int64 | float32 | float64
}

// PixelType tags which concrete instantiation of Raster[T] a RasterVariant
// or RasterSource carries, so dispatch can happen once per raster rather
// than once per cell.
type PixelType int

const (
	PixelI8 PixelType = iota
	PixelI16
	PixelI32
	PixelI64
	PixelF32
	PixelF64
)

func (t PixelType) String() string {
	switch t {
	case PixelI8:
		return "int8"
	case PixelI16:
		return "int16"
	case PixelI32:
		return "int32"
	case PixelI64:
		return "int64"
	case PixelF32:
		return "float32"
	case PixelF64:
		return "float64"
	default:
		return "unknown"
	}
}

// Raster is a read-only, logical view over a rectangular subgrid of cells
// of pixel type T. Data is stored row-major, matching Grid's (row, col)
// addressing with row 0 at the top.
type Raster[T Pixel] struct {
	Grid   Grid
	Data   []T
	NoData *T
}

// NewRaster allocates a zero-valued Raster over g.
func NewRaster[T Pixel](g Grid) Raster[T] {
	return Raster[T]{Grid: g, Data: make([]T, g.Rows()*g.Cols())}
}

// At returns the value at (r, c), relative to the Raster's own Grid.
func (r Raster[T]) At(row, col int) T {
	return r.Data[row*r.Grid.Cols()+col]
}

// Set assigns the value at (r, c), relative to the Raster's own Grid.
func (r Raster[T]) Set(row, col int, v T) {
	r.Data[row*r.Grid.Cols()+col] = v
}

// IsNoData reports whether v matches this raster's nodata sentinel.
func (r Raster[T]) IsNoData(v T) bool {
	return r.NoData != nil && v == *r.NoData
}

// SubWindow returns the portion of r lying within w, where w is expressed
// in the row/col space of r.Grid.
func (r Raster[T]) SubWindow(w Window) Raster[T] {
	sub := NewRaster[T](r.Grid.SubGrid(w))
	sub.NoData = r.NoData
	srcCols := r.Grid.Cols()
	for row := 0; row < w.Rows(); row++ {
		srcRow := w.RowMin + row
		copy(sub.Data[row*w.Cols():(row+1)*w.Cols()],
			r.Data[srcRow*srcCols+w.ColMin:srcRow*srcCols+w.ColMax])
	}
	return sub
}

// RasterVariant is a tagged union over the six supported pixel types: a
// visitor dispatches once on Type rather than paying a virtual call per
// cell.
type RasterVariant struct {
	Type PixelType
	I8   *Raster[int8]
	I16  *Raster[int16]
	I32  *Raster[int32]
	I64  *Raster[int64]
	F32  *Raster[float32]
	F64  *Raster[float64]
}

// VariantOf wraps a concrete Raster[T] in a RasterVariant.
func VariantOf[T Pixel](r Raster[T]) RasterVariant {
	var v RasterVariant
	switch any(r).(type) {
	case Raster[int8]:
		v.Type, v.I8 = PixelI8, any(&r).(*Raster[int8])
	case Raster[int16]:
		v.Type, v.I16 = PixelI16, any(&r).(*Raster[int16])
	case Raster[int32]:
		v.Type, v.I32 = PixelI32, any(&r).(*Raster[int32])
	case Raster[int64]:
		v.Type, v.I64 = PixelI64, any(&r).(*Raster[int64])
	case Raster[float32]:
		v.Type, v.F32 = PixelF32, any(&r).(*Raster[float32])
	case Raster[float64]:
		v.Type, v.F64 = PixelF64, any(&r).(*Raster[float64])
	default:
		panic(fmt.Sprintf("zonalstats: unsupported pixel type %T", r))
	}
	return v
}

// Grid returns the grid of whichever concrete raster the variant carries.
func (v RasterVariant) Grid() Grid {
	switch v.Type {
	case PixelI8:
		return v.I8.Grid
	case PixelI16:
		return v.I16.Grid
	case PixelI32:
		return v.I32.Grid
	case PixelI64:
		return v.I64.Grid
	case PixelF32:
		return v.F32.Grid
	default:
		return v.F64.Grid
	}
}

// SubWindow returns the portion of the wrapped raster lying within w.
func (v RasterVariant) SubWindow(w Window) RasterVariant {
	switch v.Type {
	case PixelI8:
		return VariantOf(v.I8.SubWindow(w))
	case PixelI16:
		return VariantOf(v.I16.SubWindow(w))
	case PixelI32:
		return VariantOf(v.I32.SubWindow(w))
	case PixelI64:
		return VariantOf(v.I64.SubWindow(w))
	case PixelF32:
		return VariantOf(v.F32.SubWindow(w))
	default:
		return VariantOf(v.F64.SubWindow(w))
	}
}

// RasterSource is the narrow external collaborator contract this core
// depends on for raster I/O. Implementations live outside the core
// (GeoTIFF readers, in-memory test fixtures, etc).
type RasterSource interface {
	// Name identifies the raster, used to build default field names and
	// to resolve explicit descriptor raster references.
	Name() string

	// Grid returns the raster's full extent and cell size.
	Grid() Grid

	// NodataF64 returns the nodata sentinel, if any, widened to float64
	// for type-agnostic comparison, and whether one is defined.
	NodataF64() (float64, bool)

	// PixelType reports the concrete pixel type this source carries,
	// discoverable before any Read call.
	PixelType() PixelType

	// ReadWindow returns the cell data within box, clipped to the
	// source's grid.
	ReadWindow(ctx context.Context, box Box) (RasterVariant, error)

	// ReadEmpty returns a zero-cell raster of the source's pixel type,
	// used for type introspection without reading any data.
	ReadEmpty() RasterVariant
}
