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

// alignEpsilon bounds the floating-point slop tolerated when comparing
// grid origins and cell sizes for alignment.
const alignEpsilon = 1e-9

// Grid is an axis-aligned regular grid of cells, addressed by (row, col)
// with row 0 at the top (maximum Y).
type Grid struct {
	XMin, YMin, XMax, YMax float64
	Dx, Dy                 float64
}

// NewGrid builds a Grid from an extent and cell size, rounding the derived
// row/column count to the nearest integer.
func NewGrid(xmin, ymin, xmax, ymax, dx, dy float64) (Grid, error) {
	if !(dx > 0) || !(dy > 0) {
		return Grid{}, fmt.Errorf("zonalstats: grid cell size must be positive, got dx=%g dy=%g", dx, dy)
	}
	if xmax < xmin || ymax < ymin {
		return Grid{}, fmt.Errorf("zonalstats: grid extent is inverted")
	}
	return Grid{XMin: xmin, YMin: ymin, XMax: xmax, YMax: ymax, Dx: dx, Dy: dy}, nil
}

// Cols is the number of columns in the grid.
func (g Grid) Cols() int {
	return int(math.Round((g.XMax - g.XMin) / g.Dx))
}

// Rows is the number of rows in the grid.
func (g Grid) Rows() int {
	return int(math.Round((g.YMax - g.YMin) / g.Dy))
}

// CellBounds returns the world-coordinate box occupied by cell (r, c).
func (g Grid) CellBounds(r, c int) Box {
	x0 := g.XMin + float64(c)*g.Dx
	x1 := x0 + g.Dx
	y1 := g.YMax - float64(r)*g.Dy
	y0 := y1 - g.Dy
	return Box{XMin: x0, YMin: y0, XMax: x1, YMax: y1}
}

// Bounds returns the full extent of the grid as a Box.
func (g Grid) Bounds() Box {
	return Box{XMin: g.XMin, YMin: g.YMin, XMax: g.XMax, YMax: g.YMax}
}

// Window is a half-open range of rows and columns within a Grid: rows
// [RowMin, RowMax) and columns [ColMin, ColMax).
type Window struct {
	RowMin, RowMax int
	ColMin, ColMax int
}

// Rows is the number of rows spanned by the window.
func (w Window) Rows() int { return w.RowMax - w.RowMin }

// Cols is the number of columns spanned by the window.
func (w Window) Cols() int { return w.ColMax - w.ColMin }

// Empty reports whether the window spans no cells.
func (w Window) Empty() bool { return w.Rows() <= 0 || w.Cols() <= 0 }

// Cells reports the number of cells in the window.
func (w Window) Cells() int {
	if w.Empty() {
		return 0
	}
	return w.Rows() * w.Cols()
}

// SubGrid returns the Grid describing exactly the cells in w, with its own
// origin and extent.
func (g Grid) SubGrid(w Window) Grid {
	return Grid{
		XMin: g.XMin + float64(w.ColMin)*g.Dx,
		XMax: g.XMin + float64(w.ColMax)*g.Dx,
		YMax: g.YMax - float64(w.RowMin)*g.Dy,
		YMin: g.YMax - float64(w.RowMax)*g.Dy,
		Dx:   g.Dx,
		Dy:   g.Dy,
	}
}

// Window returns the minimal window of cells intersecting b, clipped to
// the grid's own extent. The second return value is false if b does not
// overlap the grid at all (degenerate or out-of-extent geometry).
//
// Ties are broken so that an edge exactly on a cell boundary is attributed
// to exactly one cell: left/top boundaries are inclusive, right/bottom
// boundaries are exclusive.
func (g Grid) Window(b Box) (Window, bool) {
	if b.Empty {
		return Window{}, false
	}
	clipped, ok := b.Intersect(g.Bounds())
	if !ok {
		return Window{}, false
	}

	colMin := int(math.Floor((clipped.XMin - g.XMin) / g.Dx))
	colMax := int(math.Ceil((clipped.XMax - g.XMin) / g.Dx))
	rowMin := int(math.Floor((g.YMax - clipped.YMax) / g.Dy))
	rowMax := int(math.Ceil((g.YMax - clipped.YMin) / g.Dy))

	if colMin < 0 {
		colMin = 0
	}
	if rowMin < 0 {
		rowMin = 0
	}
	if colMax > g.Cols() {
		colMax = g.Cols()
	}
	if rowMax > g.Rows() {
		rowMax = g.Rows()
	}
	if colMax <= colMin || rowMax <= rowMin {
		return Window{}, false
	}
	return Window{RowMin: rowMin, RowMax: rowMax, ColMin: colMin, ColMax: colMax}, true
}

// CommonGrid returns a Grid usable by both g and other. This core never
// resamples or reprojects: the two grids must already share a cell size
// and an aligned origin, and the returned grid is their extent
// intersection.
func CommonGrid(g, other Grid) (Grid, error) {
	if math.Abs(g.Dx-other.Dx) > alignEpsilon || math.Abs(g.Dy-other.Dy) > alignEpsilon {
		return Grid{}, fmt.Errorf("zonalstats: %w: cell sizes (%g,%g) vs (%g,%g)", ErrIncompatibleGrid, g.Dx, g.Dy, other.Dx, other.Dy)
	}
	if math.Mod(math.Abs(g.XMin-other.XMin), g.Dx) > alignEpsilon ||
		math.Mod(math.Abs(g.YMin-other.YMin), g.Dy) > alignEpsilon {
		return Grid{}, fmt.Errorf("zonalstats: %w: origins are not cell-aligned", ErrIncompatibleGrid)
	}
	return NewGrid(
		math.Max(g.XMin, other.XMin),
		math.Max(g.YMin, other.YMin),
		math.Min(g.XMax, other.XMax),
		math.Min(g.YMax, other.YMax),
		g.Dx, g.Dy,
	)
}

// Box is an axis-aligned, inclusive extent. A Box may be empty, which is
// tracked explicitly rather than via a sentinel coordinate.
type Box struct {
	XMin, YMin, XMax, YMax float64
	Empty                  bool
}

// EmptyBox returns the distinguished empty box.
func EmptyBox() Box {
	return Box{Empty: true}
}

// NewBox returns a box with the given extent, or an empty box if the
// extent is inverted in either dimension.
func NewBox(xmin, ymin, xmax, ymax float64) Box {
	if xmax < xmin || ymax < ymin {
		return EmptyBox()
	}
	return Box{XMin: xmin, YMin: ymin, XMax: xmax, YMax: ymax}
}

// Intersect returns the overlap of b and other. The second return value
// is false if the boxes do not overlap.
func (b Box) Intersect(other Box) (Box, bool) {
	if b.Empty || other.Empty {
		return EmptyBox(), false
	}
	xmin := math.Max(b.XMin, other.XMin)
	ymin := math.Max(b.YMin, other.YMin)
	xmax := math.Min(b.XMax, other.XMax)
	ymax := math.Min(b.YMax, other.YMax)
	if xmax < xmin || ymax < ymin {
		return EmptyBox(), false
	}
	return Box{XMin: xmin, YMin: ymin, XMax: xmax, YMax: ymax}, true
}

// ExpandToGrid grows b to align with the cell boundaries of g, without
// exceeding g's own extent.
func (b Box) ExpandToGrid(g Grid) Box {
	if b.Empty {
		return b
	}
	clipped, ok := b.Intersect(g.Bounds())
	if !ok {
		return EmptyBox()
	}
	w, ok := g.Window(clipped)
	if !ok {
		return EmptyBox()
	}
	sub := g.SubGrid(w)
	return sub.Bounds()
}
