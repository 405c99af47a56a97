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

import "testing"

func rasterType(name string) PixelType {
	return PixelF32
}

func TestStatsRegistryLazyCreate(t *testing.T) {
	ops := []Operation{{FieldName: "mean_elevation", Stat: "mean", ValueRaster: "elevation"}}
	r := NewStatsRegistry(ops, rasterType)
	key := ops[0].Key()

	if r.Contains(0, key) {
		t.Fatal("Contains() = true before any Get()")
	}
	acc := r.Get(0, key)
	if !r.Contains(0, key) {
		t.Fatal("Contains() = false after Get()")
	}
	if acc.Type != PixelF32 {
		t.Errorf("Type = %v, want PixelF32", acc.Type)
	}
	// Getting the same key again returns the same accumulator, not a
	// fresh one, so that repeated windowed Process calls accumulate.
	again := r.Get(0, key)
	if acc.Accumulator() != again.Accumulator() {
		t.Error("Get() returned a different accumulator on second call")
	}
}

func TestStatsRegistryEmptyIsUnregistered(t *testing.T) {
	ops := []Operation{{FieldName: "mean_elevation", Stat: "mean", ValueRaster: "elevation"}}
	r := NewStatsRegistry(ops, rasterType)
	key := ops[0].Key()

	empty := r.Empty(key)
	if r.Contains(0, key) {
		t.Error("Empty() should not register an accumulator")
	}
	if empty.Accumulator().Count() != 0 {
		t.Errorf("Empty() accumulator Count() = %v, want 0", empty.Accumulator().Count())
	}
}

func TestStatsRegistryFlushIsolatesFeatures(t *testing.T) {
	ops := []Operation{
		{FieldName: "mean_elevation", Stat: "mean", ValueRaster: "elevation"},
		{FieldName: "mean_slope", Stat: "mean", ValueRaster: "slope"},
	}
	r := NewStatsRegistry(ops, rasterType)
	kElev, kSlope := ops[0].Key(), ops[1].Key()

	r.Get(0, kElev)
	r.Get(0, kSlope)
	r.Get(1, kElev)

	flushed := r.Flush(0)
	if len(flushed) != 2 {
		t.Fatalf("Flush(0) returned %d accumulators, want 2", len(flushed))
	}
	if r.Contains(0, kElev) || r.Contains(0, kSlope) {
		t.Error("Flush(0) should remove feature 0's accumulators from the registry")
	}
	if !r.Contains(1, kElev) {
		t.Error("Flush(0) should not touch feature 1's accumulators")
	}
}
