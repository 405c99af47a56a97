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
	"math"
	"testing"
)

func fullCoverage(g Grid) Raster[float32] {
	r := NewRaster[float32](g)
	for i := range r.Data {
		r.Data[i] = 1
	}
	return r
}

func TestRasterStatsBasic(t *testing.T) {
	g, _ := NewGrid(0, 0, 2, 2, 1, 1)
	values := NewRaster[int32](g)
	values.Data = []int32{1, 2, 3, 4}
	cov := fullCoverage(g)

	s := NewRasterStats[int32](true)
	s.Process(cov, values)

	if got := s.Count(); got != 4 {
		t.Errorf("Count() = %v, want 4", got)
	}
	if got := s.Sum(); got != 10 {
		t.Errorf("Sum() = %v, want 10", got)
	}
	if got := s.Mean(); got != 2.5 {
		t.Errorf("Mean() = %v, want 2.5", got)
	}
	if v, ok := s.Min(); !ok || v != 1 {
		t.Errorf("Min() = %v,%v, want 1,true", v, ok)
	}
	if v, ok := s.Max(); !ok || v != 4 {
		t.Errorf("Max() = %v,%v, want 4,true", v, ok)
	}
	if got := s.Variety(); got != 4 {
		t.Errorf("Variety() = %v, want 4", got)
	}
	if got := s.Frac(2); got != 0.25 {
		t.Errorf("Frac(2) = %v, want 0.25", got)
	}
	wantVariance := 1.25
	if got := s.Variance(); math.Abs(got-wantVariance) > 1e-9 {
		t.Errorf("Variance() = %v, want %v", got, wantVariance)
	}
	if got := s.Stdev(); math.Abs(got-math.Sqrt(wantVariance)) > 1e-9 {
		t.Errorf("Stdev() = %v, want %v", got, math.Sqrt(wantVariance))
	}
}

func TestRasterStatsModeAndMinorityTieBreak(t *testing.T) {
	g, _ := NewGrid(0, 0, 2, 2, 1, 1)
	values := NewRaster[int32](g)
	values.Data = []int32{1, 2, 3, 4} // every value occurs once: a four-way tie
	cov := fullCoverage(g)

	s := NewRasterStats[int32](false)
	s.Process(cov, values)

	if v, ok := s.Mode(); !ok || v != 4 {
		t.Errorf("Mode() = %v,%v, want 4,true (tie broken toward largest key)", v, ok)
	}
	if v, ok := s.Minority(); !ok || v != 1 {
		t.Errorf("Minority() = %v,%v, want 1,true (tie broken toward smallest key)", v, ok)
	}
}

func TestRasterStatsEmpty(t *testing.T) {
	s := NewRasterStats[float64](true)

	if got := s.Count(); got != 0 {
		t.Errorf("Count() = %v, want 0", got)
	}
	if got := s.Sum(); got != 0 {
		t.Errorf("Sum() = %v, want 0", got)
	}
	if got := s.Mean(); !math.IsNaN(got) {
		t.Errorf("Mean() = %v, want NaN", got)
	}
	if _, ok := s.Min(); ok {
		t.Error("Min() ok = true, want false")
	}
	if _, ok := s.Max(); ok {
		t.Error("Max() ok = true, want false")
	}
	if got := s.Stdev(); !math.IsNaN(got) {
		t.Errorf("Stdev() = %v, want NaN", got)
	}
	if got := s.Variety(); got != 0 {
		t.Errorf("Variety() = %v, want 0", got)
	}
	if got := s.Frac(1); got != 0 {
		t.Errorf("Frac(1) = %v, want 0", got)
	}
	if _, ok := s.Quantile(0.5); ok {
		t.Error("Quantile() ok = true, want false")
	}
}

func TestRasterStatsSkipsNodataAndPartialCoverage(t *testing.T) {
	g, _ := NewGrid(0, 0, 2, 2, 1, 1)
	values := NewRaster[int32](g)
	nodata := int32(-9999)
	values.NoData = &nodata
	values.Data = []int32{1, -9999, 3, 4}

	cov := NewRaster[float32](g)
	cov.Data = []float32{1, 1, 0, 0.5} // third cell has zero coverage

	s := NewRasterStats[int32](false)
	s.Process(cov, values)

	// Cell 1 excluded for nodata, cell 2 excluded for zero coverage:
	// only cells 0 and 3 remain.
	if got := s.Count(); got != 1.5 {
		t.Errorf("Count() = %v, want 1.5", got)
	}
	if got := s.Variety(); got != 2 {
		t.Errorf("Variety() = %v, want 2", got)
	}
}

func TestRasterStatsQuantileBounds(t *testing.T) {
	g, _ := NewGrid(0, 0, 4, 1, 1, 1)
	values := NewRaster[float64](g)
	values.Data = []float64{1, 2, 3, 10}
	cov := fullCoverage(g)

	s := NewRasterStats[float64](true)
	s.Process(cov, values)

	min, _ := s.Min()
	max, _ := s.Max()
	if v, ok := s.Quantile(0); !ok || v != min {
		t.Errorf("Quantile(0) = %v,%v, want %v,true", v, ok, min)
	}
	if v, ok := s.Quantile(1); !ok || v != max {
		t.Errorf("Quantile(1) = %v,%v, want %v,true", v, ok, max)
	}
	median, ok := s.Quantile(0.5)
	if !ok {
		t.Fatal("Quantile(0.5) ok = false")
	}
	if median < min || median > max {
		t.Errorf("Quantile(0.5) = %v, want a value within [%v,%v]", median, min, max)
	}
}

func TestRasterStatsWeighted(t *testing.T) {
	g, _ := NewGrid(0, 0, 2, 1, 1, 1)
	values := NewRaster[float64](g)
	values.Data = []float64{10, 20}
	weights := NewRaster[float64](g)
	weights.Data = []float64{1, 3}
	cov := fullCoverage(g)

	s := NewRasterStats[float64](false)
	s.ProcessWeighted(cov, values, weights)

	// weighted mean = (1*10 + 3*20) / (1+3) = 70/4 = 17.5
	if got := s.WeightedMean(); math.Abs(got-17.5) > 1e-9 {
		t.Errorf("WeightedMean() = %v, want 17.5", got)
	}
	// unweighted stats are still populated from the same pass.
	if got := s.Mean(); got != 15 {
		t.Errorf("Mean() = %v, want 15", got)
	}
}

func TestRasterStatsWeightedSkipsNodataWeight(t *testing.T) {
	g, _ := NewGrid(0, 0, 2, 1, 1, 1)
	values := NewRaster[float64](g)
	values.Data = []float64{10, 20}
	weights := NewRaster[float64](g)
	weights.Data = []float64{1, math.NaN()}
	cov := fullCoverage(g)

	s := NewRasterStats[float64](false)
	s.ProcessWeighted(cov, values, weights)

	if got := s.WeightedMean(); got != 10 {
		t.Errorf("WeightedMean() = %v, want 10 (second cell's weight is NaN and excluded)", got)
	}
	// The unweighted mean still includes both cells.
	if got := s.Mean(); got != 15 {
		t.Errorf("Mean() = %v, want 15", got)
	}
}

func TestRasterStatsWeightsStored(t *testing.T) {
	g, _ := NewGrid(0, 0, 2, 1, 1, 1)
	values := NewRaster[float64](g)
	values.Data = []float64{10, 20}
	weights := NewRaster[float64](g)
	weights.Data = []float64{1, math.NaN()}
	cov := fullCoverage(g)

	s := NewRasterStats[float64](true)
	s.ProcessWeighted(cov, values, weights)

	got := s.Weights()
	if len(got) != 2 {
		t.Fatalf("len(Weights()) = %d, want 2 (aligned with Values/Coverage)", len(got))
	}
	if got[0] != 1 {
		t.Errorf("Weights()[0] = %v, want 1", got[0])
	}
	if !math.IsNaN(got[1]) {
		t.Errorf("Weights()[1] = %v, want NaN (weight was undefined for that cell)", got[1])
	}
	if len(s.Values()) != len(got) || len(s.Coverage()) != len(got) {
		t.Errorf("Weights()/Values()/Coverage() lengths diverge: %d/%d/%d", len(got), len(s.Values()), len(s.Coverage()))
	}
}
