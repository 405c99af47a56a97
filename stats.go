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
	"sort"
)

// Accumulator is the type-erased read surface of a RasterStats[T],
// letting Operation and StatsRegistry work with an accumulator without
// knowing its pixel type: dispatch on the values raster's runtime pixel
// type happens once per raster, not once per method call.
type Accumulator interface {
	Count() float64
	Sum() float64
	Mean() float64
	Min() (float64, bool)
	Max() (float64, bool)
	Stdev() float64
	Variance() float64
	CoefficientOfVariation() float64
	WeightedSum() float64
	WeightedMean() float64
	WeightedStdev() float64
	WeightedVariance() float64
	Mode() (float64, bool)
	Minority() (float64, bool)
	Variety() int
	Frac(v float64) float64
	WeightedFrac(v float64) float64
	Quantile(q float64) (float64, bool)
	Frequencies() []float64
	Coverage() []float32
	Values() []float64
	Weights() []float64
	CenterX() []float64
	CenterY() []float64
	CellID() []int64
}

// RasterStats is the zonal-statistics accumulator: it ingests
// (coverage, value[, weight]) triples and derives the full statistic
// catalog. It is parameterized by the values raster's pixel type so that
// min/max/mode/frequency comparisons happen in the pixel's native type
// rather than after a lossy widening to float64.
type RasterStats[T Pixel] struct {
	storeValues bool

	countWeight float64 // sum of coverage for included cells
	sumWV       float64
	sumWV2      float64

	sumW    float64 // sum of coverage for weight-defined cells
	sumWW   float64 // sum of coverage * weight
	sumWWV  float64 // sum of coverage * weight * value
	sumWWV2 float64 // sum of coverage * weight * value^2

	minVal, maxVal     T
	hasMin, hasMax     bool
	anyDefined         bool
	anyWeightedDefined bool

	freq         map[T]float64
	weightedFreq map[T]float64

	covStore []float32
	valStore []T
	wStore   []float64
	cxStore  []float64
	cyStore  []float64
	idStore  []int64
}

// NewRasterStats creates an empty accumulator. storeValues must be true
// for any operation that needs the array-returning stats (quantile,
// median, coverage, values, weights, center_x, center_y, cell_id).
func NewRasterStats[T Pixel](storeValues bool) *RasterStats[T] {
	return &RasterStats[T]{storeValues: storeValues}
}

func isNaNPixel[T Pixel](v T) bool {
	switch x := any(v).(type) {
	case float32:
		return math.IsNaN(float64(x))
	case float64:
		return math.IsNaN(x)
	default:
		return false
	}
}

// cellMeta is the per-cell identity carried alongside a value in storage.
type cellMeta struct {
	centerX, centerY float64
	id               int64
}

// Process ingests one coverage/value window pair. Multiple calls on the
// same accumulator are additive, supporting streaming windows under a
// max_cells_in_memory budget.
func (s *RasterStats[T]) Process(coverage Raster[float32], values Raster[T]) {
	overlap, ok := coverage.Grid.Bounds().Intersect(values.Grid.Bounds())
	if !ok {
		return
	}
	covWin, ok := coverage.Grid.Window(overlap)
	if !ok {
		return
	}
	valWin, ok := values.Grid.Window(overlap)
	if !ok {
		return
	}
	rows, cols := covWin.Rows(), covWin.Cols()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			f := float64(coverage.At(covWin.RowMin+r, covWin.ColMin+c))
			if f <= 0 {
				continue
			}
			v := values.At(valWin.RowMin+r, valWin.ColMin+c)
			if values.IsNoData(v) || isNaNPixel(v) {
				continue
			}
			meta := s.cellMetaAt(coverage.Grid, covWin.RowMin+r, covWin.ColMin+c)
			s.include(f, v, meta)
		}
	}
}

// ProcessWeighted ingests one coverage/value/weight window triple.
// weights is widened to float64 ahead of time by the caller
// (Processor, via WidenToFloat64), since a weight raster's own pixel type does not
// participate in this accumulator's type-specific statistics.
func (s *RasterStats[T]) ProcessWeighted(coverage Raster[float32], values Raster[T], weights Raster[float64]) {
	overlap, ok := coverage.Grid.Bounds().Intersect(values.Grid.Bounds())
	if !ok {
		return
	}
	overlap, ok = overlap.Intersect(weights.Grid.Bounds())
	if !ok {
		return
	}
	covWin, ok := coverage.Grid.Window(overlap)
	if !ok {
		return
	}
	valWin, ok := values.Grid.Window(overlap)
	if !ok {
		return
	}
	wWin, ok := weights.Grid.Window(overlap)
	if !ok {
		return
	}
	rows, cols := covWin.Rows(), covWin.Cols()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			f := float64(coverage.At(covWin.RowMin+r, covWin.ColMin+c))
			if f <= 0 {
				continue
			}
			v := values.At(valWin.RowMin+r, valWin.ColMin+c)
			if values.IsNoData(v) || isNaNPixel(v) {
				continue
			}
			meta := s.cellMetaAt(coverage.Grid, covWin.RowMin+r, covWin.ColMin+c)
			s.include(f, v, meta)

			w := weights.At(wWin.RowMin+r, wWin.ColMin+c)
			weightDefined := !weights.IsNoData(w) && !math.IsNaN(w)
			if s.storeValues {
				if weightDefined {
					s.wStore = append(s.wStore, w)
				} else {
					s.wStore = append(s.wStore, math.NaN())
				}
			}
			if !weightDefined {
				continue
			}
			s.sumW += f
			s.sumWW += f * w
			s.sumWWV += f * w * float64(v)
			s.sumWWV2 += f * w * float64(v) * float64(v)
			s.anyWeightedDefined = true
			if s.weightedFreq == nil {
				s.weightedFreq = make(map[T]float64)
			}
			s.weightedFreq[v] += f * w
		}
	}
}

func (s *RasterStats[T]) cellMetaAt(g Grid, row, col int) cellMeta {
	b := g.CellBounds(row, col)
	return cellMeta{
		centerX: (b.XMin + b.XMax) / 2,
		centerY: (b.YMin + b.YMax) / 2,
		id:      int64(row)*int64(g.Cols()) + int64(col),
	}
}

func (s *RasterStats[T]) include(f float64, v T, meta cellMeta) {
	s.countWeight += f
	vf := float64(v)
	s.sumWV += f * vf
	s.sumWV2 += f * vf * vf

	if !s.hasMin || v < s.minVal {
		s.minVal, s.hasMin = v, true
	}
	if !s.hasMax || v > s.maxVal {
		s.maxVal, s.hasMax = v, true
	}
	if s.freq == nil {
		s.freq = make(map[T]float64)
	}
	s.freq[v] += f
	s.anyDefined = true

	if s.storeValues {
		s.covStore = append(s.covStore, float32(f))
		s.valStore = append(s.valStore, v)
		s.cxStore = append(s.cxStore, meta.centerX)
		s.cyStore = append(s.cyStore, meta.centerY)
		s.idStore = append(s.idStore, meta.id)
	}
}

// Count is the coverage-weighted number of included cells.
func (s *RasterStats[T]) Count() float64 { return s.countWeight }

// Sum is the coverage-weighted sum of included values.
func (s *RasterStats[T]) Sum() float64 { return s.sumWV }

// Mean is Sum/Count, or NaN for an empty accumulator.
func (s *RasterStats[T]) Mean() float64 {
	if s.countWeight == 0 {
		return math.NaN()
	}
	return s.sumWV / s.countWeight
}

// Min is the smallest included value.
func (s *RasterStats[T]) Min() (float64, bool) {
	if !s.hasMin {
		return 0, false
	}
	return float64(s.minVal), true
}

// Max is the largest included value.
func (s *RasterStats[T]) Max() (float64, bool) {
	if !s.hasMax {
		return 0, false
	}
	return float64(s.maxVal), true
}

// Variance is the population variance of included values, computed from
// the running sums Σf, Σfv, Σfv², never by revisiting storage.
func (s *RasterStats[T]) Variance() float64 {
	if s.countWeight == 0 {
		return math.NaN()
	}
	mean := s.sumWV / s.countWeight
	return s.sumWV2/s.countWeight - mean*mean
}

// Stdev is the square root of Variance.
func (s *RasterStats[T]) Stdev() float64 {
	v := s.Variance()
	if math.IsNaN(v) {
		return v
	}
	return math.Sqrt(math.Max(v, 0))
}

// CoefficientOfVariation is Stdev/Mean.
func (s *RasterStats[T]) CoefficientOfVariation() float64 {
	return s.Stdev() / s.Mean()
}

// WeightedSum is the external-weight-weighted sum of included values.
func (s *RasterStats[T]) WeightedSum() float64 { return s.sumWWV }

// WeightedMean is WeightedSum/Σfw, or NaN if no weighted cell was
// included.
func (s *RasterStats[T]) WeightedMean() float64 {
	if s.sumWW == 0 {
		return math.NaN()
	}
	return s.sumWWV / s.sumWW
}

// WeightedVariance is the population variance of weighted values,
// computed from Σfw, Σfwv, Σfwv².
func (s *RasterStats[T]) WeightedVariance() float64 {
	if s.sumWW == 0 {
		return math.NaN()
	}
	mean := s.sumWWV / s.sumWW
	return s.sumWWV2/s.sumWW - mean*mean
}

// WeightedStdev is the square root of WeightedVariance.
func (s *RasterStats[T]) WeightedStdev() float64 {
	v := s.WeightedVariance()
	if math.IsNaN(v) {
		return v
	}
	return math.Sqrt(math.Max(v, 0))
}

// Mode is the most frequent value, with ties broken toward the largest
// key.
func (s *RasterStats[T]) Mode() (float64, bool) {
	if len(s.freq) == 0 {
		return 0, false
	}
	best, have := T(0), false
	var bestFreq float64
	for k, fv := range s.freq {
		if !have || fv > bestFreq || (fv == bestFreq && k > best) {
			best, bestFreq, have = k, fv, true
		}
	}
	return float64(best), true
}

// Minority is the least frequent value, with ties broken toward the
// smallest key.
func (s *RasterStats[T]) Minority() (float64, bool) {
	if len(s.freq) == 0 {
		return 0, false
	}
	best, have := T(0), false
	var bestFreq float64
	for k, fv := range s.freq {
		if !have || fv < bestFreq || (fv == bestFreq && k < best) {
			best, bestFreq, have = k, fv, true
		}
	}
	return float64(best), true
}

// Variety is the number of distinct observed values.
func (s *RasterStats[T]) Variety() int { return len(s.freq) }

// Frac is the coverage-weighted fraction of cells equal to v.
func (s *RasterStats[T]) Frac(v float64) float64 {
	if s.countWeight == 0 {
		return 0
	}
	fv, ok := s.freq[T(v)]
	if !ok {
		return 0
	}
	return fv / s.countWeight
}

// WeightedFrac is the external-weight-weighted fraction of cells equal
// to v, over the weighted frequency table.
func (s *RasterStats[T]) WeightedFrac(v float64) float64 {
	if s.sumWW == 0 {
		return 0
	}
	fv, ok := s.weightedFreq[T(v)]
	if !ok {
		return 0
	}
	return fv / s.sumWW
}

// Frequencies returns the distinct observed values, ascending, used to
// drive dynamic field generation for frac/weighted_frac when no single
// target value was given.
func (s *RasterStats[T]) Frequencies() []float64 {
	out := make([]float64, 0, len(s.freq))
	for k := range s.freq {
		out = append(out, float64(k))
	}
	sort.Float64s(out)
	return out
}

// Quantile is the coverage-weighted q-quantile of included values,
// interpolated linearly over the sorted (value, coverage) storage; with
// equal coverage it matches the usual (n-1)*q rank, so q=0.25 over
// 1,2,3,4,5 is 2. Requires storeValues; q is clamped to [0,1] and q=0/q=1
// return Min/Max exactly, so the boundary values never drift from the raw
// extrema on account of floating-point weight normalization.
func (s *RasterStats[T]) Quantile(q float64) (float64, bool) {
	if len(s.valStore) == 0 {
		return 0, false
	}
	if q <= 0 {
		return s.Min()
	}
	if q >= 1 {
		return s.Max()
	}

	xs := make([]float64, len(s.valStore))
	ws := make([]float64, len(s.valStore))
	for i, v := range s.valStore {
		xs[i] = float64(v)
		ws[i] = float64(s.covStore[i])
	}
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return xs[idx[i]] < xs[idx[j]] })
	sortedX := make([]float64, len(xs))
	sortedW := make([]float64, len(ws))
	for i, j := range idx {
		sortedX[i], sortedW[i] = xs[j], ws[j]
	}
	// Rank of sorted value i: i*w_i + (n-1)*(sum of weights before i).
	n := float64(len(sortedX))
	ranks := make([]float64, len(sortedX))
	var cum float64
	for i, w := range sortedW {
		ranks[i] = float64(i)*w + (n-1)*cum
		cum += w
	}
	target := q * ranks[len(ranks)-1]
	i := sort.SearchFloat64s(ranks, target)
	if i == 0 {
		return sortedX[0], true
	}
	return sortedX[i-1] + (target-ranks[i-1])*(sortedX[i]-sortedX[i-1])/(ranks[i]-ranks[i-1]), true
}

// Coverage returns the stored per-cell coverage fractions.
func (s *RasterStats[T]) Coverage() []float32 { return append([]float32(nil), s.covStore...) }

// Values returns the stored per-cell values, widened to float64.
func (s *RasterStats[T]) Values() []float64 {
	out := make([]float64, len(s.valStore))
	for i, v := range s.valStore {
		out[i] = float64(v)
	}
	return out
}

// Weights returns the stored per-cell external weight values, aligned
// index-for-index with Coverage and Values. A cell whose weight was
// nodata or NaN is recorded as NaN rather than dropped, so all three
// stay the same length. Empty unless ProcessWeighted was used with
// storeValues set.
func (s *RasterStats[T]) Weights() []float64 { return append([]float64(nil), s.wStore...) }

// CenterX returns the stored per-cell x-coordinates.
func (s *RasterStats[T]) CenterX() []float64 { return append([]float64(nil), s.cxStore...) }

// CenterY returns the stored per-cell y-coordinates.
func (s *RasterStats[T]) CenterY() []float64 { return append([]float64(nil), s.cyStore...) }

// CellID returns the stored per-cell stable identifiers (row*cols+col in
// the grid used during Process).
func (s *RasterStats[T]) CellID() []int64 { return append([]int64(nil), s.idStore...) }
