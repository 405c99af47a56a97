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

// Package zonalstats computes coverage-fraction-weighted raster
// statistics over vector polygon zones: given a grid of raster cells and
// a set of polygon features, it reports, per feature, the exact
// fractional overlap of each cell the feature touches and derives a
// catalog of summary statistics from the covered cell values.
//
// The package depends only on the narrow RasterSource, FeatureSource,
// and OutputWriter contracts in this package; it does no I/O of its own.
// Concrete raster/vector backends live under internal/geomio.
package zonalstats

// Version is the semantic version of the zonalstats module, reported by
// the CLI's --version flag.
const Version = "0.1.0"
