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

// Package geomio provides the concrete FeatureSource and OutputWriter
// implementations that sit outside the zonalstats core: shapefile and
// GeoJSON feature readers, and CSV and GeoJSON output writers.
package geomio

import (
	"context"
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/google/uuid"

	"github.com/spatialmodel/zonalstats"
)

// ShapefileSource is a zonalstats.FeatureSource backed by a shapefile,
// decoded eagerly at construction since go-shp only supports forward
// iteration.
type ShapefileSource struct {
	path     string
	features []zonalstats.Feature
}

// OpenShapefile reads every record of the shapefile at path. idField, if
// non-empty, is copied into each Feature's ID; keepFields are copied into
// Feature.Fields under their own names.
func OpenShapefile(path, idField string, keepFields []string) (*ShapefileSource, error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("zonalstats: opening shapefile %q: %w", path, err)
	}
	defer dec.Close()

	fieldNames := keepFields
	if idField != "" {
		fieldNames = append(append([]string(nil), keepFields...), idField)
	}

	src := &ShapefileSource{path: path}
	for {
		g, fields, more := dec.DecodeRowFields(fieldNames...)
		if !more {
			break
		}
		if dec.Error() != nil {
			return nil, fmt.Errorf("zonalstats: decoding shapefile %q: %w", path, dec.Error())
		}
		poly, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("zonalstats: %w: shapefile %q contains a non-polygonal geometry", zonalstats.ErrInvalidGeometry, path)
		}
		feat := zonalstats.Feature{
			Index:    len(src.features),
			UUID:     uuid.New(),
			Geometry: poly,
			Fields:   make(map[string]any, len(keepFields)),
		}
		if idField != "" {
			feat.ID = fields[idField]
		}
		for _, k := range keepFields {
			feat.Fields[k] = fields[k]
		}
		src.features = append(src.features, feat)
	}
	return src, nil
}

// Name implements zonalstats.FeatureSource.
func (s *ShapefileSource) Name() string { return s.path }

// NumFeatures implements zonalstats.FeatureSource.
func (s *ShapefileSource) NumFeatures() int { return len(s.features) }

// Feature implements zonalstats.FeatureSource.
func (s *ShapefileSource) Feature(_ context.Context, index int) (zonalstats.Feature, error) {
	if index < 0 || index >= len(s.features) {
		return zonalstats.Feature{}, fmt.Errorf("zonalstats: feature index %d out of range", index)
	}
	return s.features[index], nil
}
