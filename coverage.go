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

	"bitbucket.org/ctessum/sparse"
	"github.com/ctessum/geom"
)

// coverageEpsilon absorbs floating-point drift at cell boundaries: areas
// within coverageEpsilon times the cell area of 0 or of the cell area
// round to exactly 0 or 1.
const coverageEpsilon = 1e-12

// Coverage computes the exact fractional coverage of poly over grid g,
// returning a Raster[float32] over the minimal enclosing cell window.
// Coverage is computed analytically by clipping poly against each
// candidate cell rectangle and comparing the clipped area to the cell
// area — the same "intersect, then take area" operation used to apportion
// irregular polygons onto a regular grid cell by cell rather than
// polygon by polygon.
func Coverage(poly geom.Polygonal, g Grid) (Raster[float32], error) {
	bounds := poly.Bounds()
	if bounds.Empty() {
		if err := validateRings(poly); err != nil {
			return Raster[float32]{}, err
		}
		return emptyCoverage(g), nil
	}
	return CoverageInBox(poly, g, NewBox(bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y))
}

// CoverageInBox is Coverage restricted to the cells overlapping box, used
// by the processor to tile a large feature's coverage computation into
// windows bounded by max_cells_in_memory without revisiting the whole
// polygon each time.
func CoverageInBox(poly geom.Polygonal, g Grid, box Box) (Raster[float32], error) {
	if err := validateRings(poly); err != nil {
		return Raster[float32]{}, err
	}

	window, ok := g.Window(box)
	if !ok {
		return emptyCoverage(g), nil
	}

	sub := g.SubGrid(window)
	rows, cols := window.Rows(), window.Cols()
	areas := sparse.ZerosDense(rows, cols)
	cellArea := g.Dx * g.Dy
	areaTol := coverageEpsilon * cellArea

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			cellBox := sub.CellBounds(r, c)
			rect := cellRectangle(cellBox)

			clipped := poly.Intersection(rect)
			area := clipped.Area()

			switch {
			case area <= areaTol:
				area = 0
			case cellArea-area <= areaTol:
				area = cellArea
			}
			areas.Set(area, r, c)
		}
	}

	out := NewRaster[float32](sub)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			frac := float32(areas.Get(r, c) / cellArea)
			if frac < 0 {
				frac = 0
			} else if frac > 1 {
				frac = 1
			}
			out.Set(r, c, frac)
		}
	}
	return out, nil
}

// emptyCoverage returns a zero-cell coverage raster anchored at g's own
// origin, used for degenerate geometry and geometry outside g's extent.
func emptyCoverage(g Grid) Raster[float32] {
	return NewRaster[float32](g.SubGrid(Window{}))
}

// cellRectangle builds the counter-clockwise closed ring geom.Polygon
// expects for a single grid cell.
func cellRectangle(b Box) geom.Polygon {
	return geom.Polygon{{
		{X: b.XMin, Y: b.YMin},
		{X: b.XMax, Y: b.YMin},
		{X: b.XMax, Y: b.YMax},
		{X: b.XMin, Y: b.YMax},
		{X: b.XMin, Y: b.YMin},
	}}
}

// validateRings enforces the closed-ring requirement. Self-intersection is
// not checked: the clipping library below will produce a geometrically
// sensible (if not strictly OGC-valid) result for minor self-touching,
// and a full validity check is out of scope for this core.
func validateRings(poly geom.Polygonal) error {
	for _, p := range poly.Polygons() {
		if len(p) == 0 {
			return fmt.Errorf("zonalstats: %w: polygon has no rings", ErrInvalidGeometry)
		}
		for _, ring := range p {
			if len(ring) < 4 {
				return fmt.Errorf("zonalstats: %w: ring has fewer than 4 points", ErrInvalidGeometry)
			}
			if ring[0] != ring[len(ring)-1] {
				return fmt.Errorf("zonalstats: %w: unclosed ring", ErrInvalidGeometry)
			}
		}
	}
	return nil
}
