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
	"errors"
	"testing"
)

func TestGridRowsCols(t *testing.T) {
	g, err := NewGrid(0, 0, 10, 5, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if g.Cols() != 10 {
		t.Errorf("Cols() = %d, want 10", g.Cols())
	}
	if g.Rows() != 5 {
		t.Errorf("Rows() = %d, want 5", g.Rows())
	}
}

func TestGridCellBounds(t *testing.T) {
	g, err := NewGrid(0, 0, 10, 10, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	// Row 0 is at the top (max Y).
	b := g.CellBounds(0, 0)
	want := Box{XMin: 0, YMin: 8, XMax: 2, YMax: 10}
	if b != want {
		t.Errorf("CellBounds(0,0) = %+v, want %+v", b, want)
	}

	b = g.CellBounds(4, 4)
	want = Box{XMin: 8, YMin: 0, XMax: 10, YMax: 2}
	if b != want {
		t.Errorf("CellBounds(4,4) = %+v, want %+v", b, want)
	}
}

func TestGridWindow(t *testing.T) {
	g, err := NewGrid(0, 0, 10, 10, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	w, ok := g.Window(NewBox(2.5, 2.5, 5.5, 5.5))
	if !ok {
		t.Fatal("expected overlap")
	}
	if w.RowMin != 4 || w.RowMax != 8 || w.ColMin != 2 || w.ColMax != 6 {
		t.Errorf("Window = %+v, want rows [4,8) cols [2,6)", w)
	}
}

func TestGridWindowNoOverlap(t *testing.T) {
	g, err := NewGrid(0, 0, 10, 10, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := g.Window(NewBox(20, 20, 30, 30)); ok {
		t.Error("expected no overlap")
	}
}

func TestGridWindowExactBoundary(t *testing.T) {
	// A box that exactly spans one row/column should attribute to
	// exactly one cell, per the left/top-inclusive, right/bottom-exclusive
	// tie-break rule.
	g, err := NewGrid(0, 0, 10, 10, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	w, ok := g.Window(NewBox(3, 7, 4, 8))
	if !ok {
		t.Fatal("expected overlap")
	}
	if w.Rows() != 1 || w.Cols() != 1 {
		t.Errorf("Window = %+v, want a single cell", w)
	}
}

func TestCommonGridMismatchedCellSize(t *testing.T) {
	a, _ := NewGrid(0, 0, 10, 10, 1, 1)
	b, _ := NewGrid(0, 0, 10, 10, 2, 2)
	_, err := CommonGrid(a, b)
	if !errors.Is(err, ErrIncompatibleGrid) {
		t.Errorf("CommonGrid() error = %v, want ErrIncompatibleGrid", err)
	}
}

func TestCommonGridUnaligned(t *testing.T) {
	a, _ := NewGrid(0, 0, 10, 10, 1, 1)
	b, _ := NewGrid(0.5, 0, 10.5, 10, 1, 1)
	_, err := CommonGrid(a, b)
	if !errors.Is(err, ErrIncompatibleGrid) {
		t.Errorf("CommonGrid() error = %v, want ErrIncompatibleGrid", err)
	}
}

func TestCommonGridIntersection(t *testing.T) {
	a, _ := NewGrid(0, 0, 10, 10, 1, 1)
	b, _ := NewGrid(5, 5, 15, 15, 1, 1)
	c, err := CommonGrid(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if c.XMin != 5 || c.YMin != 5 || c.XMax != 10 || c.YMax != 10 {
		t.Errorf("CommonGrid() = %+v, want extent [5,5,10,10]", c)
	}
}

func TestBoxIntersectEmpty(t *testing.T) {
	a := NewBox(0, 0, 1, 1)
	b := NewBox(5, 5, 6, 6)
	if _, ok := a.Intersect(b); ok {
		t.Error("expected no intersection")
	}
}
