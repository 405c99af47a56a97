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

import "errors"

// Input descriptor errors. These are reported eagerly, before any
// feature is processed.
var (
	// ErrInvalidDescriptor is returned for any malformed stat descriptor.
	ErrInvalidDescriptor = errors.New("invalid stat descriptor")

	// ErrUnknownRaster is returned when an explicit descriptor names a
	// raster that was not supplied to the operation builder.
	ErrUnknownRaster = errors.New("unknown raster name in stat descriptor")

	// ErrMissingWeights is returned when a weighted stat is requested
	// without a weights raster.
	ErrMissingWeights = errors.New("no weights provided for weighted stat")

	// ErrBandCountMismatch is returned when implicit descriptor expansion
	// is given incompatible numbers of value and weight rasters.
	ErrBandCountMismatch = errors.New("value and weight rasters must have a single band or the same number of bands")
)

// Geometry errors. Reported per feature.
var (
	// ErrInvalidGeometry covers unclosed rings, empty geometries passed to
	// the coverage engine, and unsupported geometry types.
	ErrInvalidGeometry = errors.New("invalid or unsupported geometry")
)

// Type-mismatch / programmer errors.
var (
	// ErrUnhandledStat is raised when Operation.SetResult is asked to emit
	// a stat name it does not recognize.
	ErrUnhandledStat = errors.New("unhandled stat")

	// ErrPixelTypeMismatch is raised when a RasterVariant does not carry
	// the pixel type an accumulator was constructed for.
	ErrPixelTypeMismatch = errors.New("raster pixel type does not match accumulator")

	// ErrIncompatibleGrid is raised when two grids that are expected to
	// share a cell size and alignment do not (no resampling is performed
	// by this core).
	ErrIncompatibleGrid = errors.New("grids are not aligned and cannot be combined without resampling")
)
