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

package geomio

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/spatialmodel/zonalstats"
)

// flatRasterMagic identifies a raster written in the format FlatRaster
// reads: a minimal single-band grid dump, standing in for a real
// GeoTIFF/NetCDF driver, which is deliberately out of scope for this
// core (see RasterSource in raster.go).
const flatRasterMagic = "ZSR1"

// FlatRasterSource is a zonalstats.RasterSource backed by a single-band
// flat binary raster file, read fully into memory at Open time.
//
// File layout, all little-endian:
//
//	4 bytes  magic "ZSR1"
//	1 byte   PixelType tag
//	1 byte   has-nodata flag
//	8 bytes  nodata value (float64, ignored if has-nodata is 0)
//	48 bytes xmin,ymin,xmax,ymax,dx,dy (float64 each)
//	4 bytes  row count (int32)
//	4 bytes  col count (int32)
//	...      row-major pixel data in the type PixelType names
type FlatRasterSource struct {
	name string
	data zonalstats.RasterVariant
}

// OpenFlatRaster reads a FlatRaster file from path and names the
// resulting source name (used for descriptor resolution and default
// output field names).
func OpenFlatRaster(name, path string) (*FlatRasterSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("zonalstats: opening raster %q: %w", path, err)
	}
	defer f.Close()

	var magic [4]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil || string(magic[:]) != flatRasterMagic {
		return nil, fmt.Errorf("zonalstats: %q is not a recognized raster file", path)
	}

	var pixelType, hasNodata uint8
	if err := binary.Read(f, binary.LittleEndian, &pixelType); err != nil {
		return nil, err
	}
	if err := binary.Read(f, binary.LittleEndian, &hasNodata); err != nil {
		return nil, err
	}
	var nodata float64
	if err := binary.Read(f, binary.LittleEndian, &nodata); err != nil {
		return nil, err
	}

	var extent [6]float64
	if err := binary.Read(f, binary.LittleEndian, &extent); err != nil {
		return nil, err
	}
	var rows, cols int32
	if err := binary.Read(f, binary.LittleEndian, &rows); err != nil {
		return nil, err
	}
	if err := binary.Read(f, binary.LittleEndian, &cols); err != nil {
		return nil, err
	}

	grid, err := zonalstats.NewGrid(extent[0], extent[1], extent[2], extent[3], extent[4], extent[5])
	if err != nil {
		return nil, fmt.Errorf("zonalstats: raster %q: %w", path, err)
	}

	variant, err := readFlatRasterBody(f, zonalstats.PixelType(pixelType), grid, int(rows)*int(cols), hasNodata != 0, nodata)
	if err != nil {
		return nil, fmt.Errorf("zonalstats: raster %q: %w", path, err)
	}
	return &FlatRasterSource{name: name, data: variant}, nil
}

func readFlatRasterBody(r io.Reader, t zonalstats.PixelType, grid zonalstats.Grid, n int, hasNodata bool, nodata float64) (zonalstats.RasterVariant, error) {
	switch t {
	case zonalstats.PixelI8:
		return readTyped[int8](r, grid, n, hasNodata, nodata)
	case zonalstats.PixelI16:
		return readTyped[int16](r, grid, n, hasNodata, nodata)
	case zonalstats.PixelI32:
		return readTyped[int32](r, grid, n, hasNodata, nodata)
	case zonalstats.PixelI64:
		return readTyped[int64](r, grid, n, hasNodata, nodata)
	case zonalstats.PixelF32:
		return readTyped[float32](r, grid, n, hasNodata, nodata)
	default:
		return readTyped[float64](r, grid, n, hasNodata, nodata)
	}
}

func readTyped[T zonalstats.Pixel](r io.Reader, grid zonalstats.Grid, n int, hasNodata bool, nodata float64) (zonalstats.RasterVariant, error) {
	raster := zonalstats.NewRaster[T](grid)
	if err := binary.Read(r, binary.LittleEndian, raster.Data[:n]); err != nil {
		return zonalstats.RasterVariant{}, err
	}
	if hasNodata {
		v := T(nodata)
		raster.NoData = &v
	}
	return zonalstats.VariantOf(raster), nil
}

// Name implements zonalstats.RasterSource.
func (s *FlatRasterSource) Name() string { return s.name }

// Grid implements zonalstats.RasterSource.
func (s *FlatRasterSource) Grid() zonalstats.Grid { return s.data.Grid() }

// NodataF64 implements zonalstats.RasterSource.
func (s *FlatRasterSource) NodataF64() (float64, bool) {
	switch s.data.Type {
	case zonalstats.PixelI8:
		if s.data.I8.NoData == nil {
			return 0, false
		}
		return float64(*s.data.I8.NoData), true
	case zonalstats.PixelI16:
		if s.data.I16.NoData == nil {
			return 0, false
		}
		return float64(*s.data.I16.NoData), true
	case zonalstats.PixelI32:
		if s.data.I32.NoData == nil {
			return 0, false
		}
		return float64(*s.data.I32.NoData), true
	case zonalstats.PixelI64:
		if s.data.I64.NoData == nil {
			return 0, false
		}
		return float64(*s.data.I64.NoData), true
	case zonalstats.PixelF32:
		if s.data.F32.NoData == nil {
			return 0, false
		}
		return float64(*s.data.F32.NoData), true
	default:
		if s.data.F64.NoData == nil {
			return 0, false
		}
		return *s.data.F64.NoData, true
	}
}

// PixelType implements zonalstats.RasterSource.
func (s *FlatRasterSource) PixelType() zonalstats.PixelType { return s.data.Type }

// ReadWindow implements zonalstats.RasterSource.
func (s *FlatRasterSource) ReadWindow(_ context.Context, box zonalstats.Box) (zonalstats.RasterVariant, error) {
	window, ok := s.data.Grid().Window(box)
	if !ok {
		return zonalstats.RasterVariant{}, fmt.Errorf("zonalstats: box does not overlap raster %q", s.name)
	}
	return s.data.SubWindow(window), nil
}

// ReadEmpty implements zonalstats.RasterSource.
func (s *FlatRasterSource) ReadEmpty() zonalstats.RasterVariant {
	return s.data.SubWindow(zonalstats.Window{})
}
