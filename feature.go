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
	"context"

	"github.com/ctessum/geom"
	"github.com/google/uuid"
)

// Feature is one polygonal zone to accumulate statistics over. Index is
// its stable identity within a run: a plain integer assigned by the
// FeatureSource in iteration order, used as the registry key instead of
// a pointer or the feature's own possibly-duplicated ID field. UUID is a
// second, run-independent identity a FeatureSource may assign on
// ingestion, useful for correlating output rows once a run's features
// have been tiled or reordered upstream of this core.
type Feature struct {
	Index    int
	UUID     uuid.UUID
	ID       string
	Geometry geom.Polygonal
	Fields   map[string]any
}

// FeatureSource is the narrow external collaborator contract this core
// depends on for vector feature I/O. Implementations live outside the
// core (shapefile readers, GeoJSON readers, in-memory test fixtures).
type FeatureSource interface {
	// Name identifies the feature source, used in log messages.
	Name() string

	// NumFeatures reports the total feature count, known in advance for
	// every source this core ships with (shapefile and GeoJSON are both
	// read fully before iteration starts).
	NumFeatures() int

	// Feature returns the feature at index, in the source's own stable
	// iteration order.
	Feature(ctx context.Context, index int) (Feature, error)
}
