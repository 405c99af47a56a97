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

// registryKey identifies one accumulator: a feature, and the raster pair
// its value comes from. Feature identity is Feature.Index, not a
// pointer, so the registry is stable across whatever in-memory
// representation a FeatureSource happens to use.
type registryKey struct {
	feature int
	accKey  AccumulatorKey
}

// StatsRegistry owns the lifetime of every accumulator created while
// processing a run: one per (feature, value/weight raster pair),
// created lazily the first time a window overlapping that feature is
// processed, and released once the feature's row has been emitted.
type StatsRegistry struct {
	pixelTypes  map[AccumulatorKey]PixelType
	storeValues map[AccumulatorKey]bool
	accs        map[registryKey]StatsVariant
}

// NewStatsRegistry builds an empty registry. pixelTypes and storeValues
// are decided once, from the operation list, before any feature is
// processed: every operation sharing an AccumulatorKey must agree on
// whether per-cell storage is needed, since they share one accumulator.
func NewStatsRegistry(ops []Operation, valueRasterType func(name string) PixelType) *StatsRegistry {
	pixelTypes := make(map[AccumulatorKey]PixelType)
	storeValues := make(map[AccumulatorKey]bool)
	for _, op := range ops {
		k := op.Key()
		pixelTypes[k] = valueRasterType(op.ValueRaster)
		storeValues[k] = storeValues[k] || op.needsStorage()
	}
	return &StatsRegistry{
		pixelTypes:  pixelTypes,
		storeValues: storeValues,
		accs:        make(map[registryKey]StatsVariant),
	}
}

// Contains reports whether an accumulator already exists for (feature,
// key), so callers can distinguish "never saw an overlapping cell" from
// "saw cells but they were all nodata" without allocating one just to
// check.
func (r *StatsRegistry) Contains(feature int, key AccumulatorKey) bool {
	_, ok := r.accs[registryKey{feature: feature, accKey: key}]
	return ok
}

// Get returns the accumulator for (feature, key), creating it on first
// use. The pixel type and storage requirement come from the operation
// list passed to NewStatsRegistry, never from the caller.
func (r *StatsRegistry) Get(feature int, key AccumulatorKey) StatsVariant {
	rk := registryKey{feature: feature, accKey: key}
	if v, ok := r.accs[rk]; ok {
		return v
	}
	v := NewStatsVariant(r.pixelTypes[key], r.storeValues[key])
	r.accs[rk] = v
	return v
}

// Empty returns a fresh, empty accumulator for key without recording it
// in the registry, for features that never had an overlapping cell but
// still need every stat's well-defined empty-input result.
func (r *StatsRegistry) Empty(key AccumulatorKey) StatsVariant {
	return NewStatsVariant(r.pixelTypes[key], r.storeValues[key])
}

// Flush removes and returns every accumulator recorded for feature, one
// per AccumulatorKey it was ever addressed under. Call this once a
// feature's output row has been written, so the registry's memory
// footprint tracks the window currently in flight rather than the whole
// feature set.
func (r *StatsRegistry) Flush(feature int) map[AccumulatorKey]StatsVariant {
	out := make(map[AccumulatorKey]StatsVariant)
	for k := range r.pixelTypes {
		rk := registryKey{feature: feature, accKey: k}
		if v, ok := r.accs[rk]; ok {
			out[k] = v
			delete(r.accs, rk)
		}
	}
	return out
}
