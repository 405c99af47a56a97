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

package geomio

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
	"github.com/google/uuid"

	"github.com/spatialmodel/zonalstats"
)

// rawFeature mirrors the GeoJSON Feature envelope. geojson only codes bare
// Geometry objects, so the FeatureCollection/Feature/Properties layer is
// unmarshaled here and handed off to geojson.FromGeoJSON per geometry.
type rawFeature struct {
	Properties map[string]any    `json:"properties"`
	Geometry   *geojson.Geometry `json:"geometry"`
}

type rawFeatureCollection struct {
	Features []rawFeature `json:"features"`
}

// GeoJSONSource is a zonalstats.FeatureSource backed by a GeoJSON
// FeatureCollection file, read fully into memory at construction.
type GeoJSONSource struct {
	path     string
	features []zonalstats.Feature
}

// OpenGeoJSON reads every feature of the FeatureCollection at path.
// idField, if non-empty, is copied into each Feature's ID from its
// properties; keepFields are copied into Feature.Fields.
func OpenGeoJSON(path, idField string, keepFields []string) (*GeoJSONSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("zonalstats: reading GeoJSON %q: %w", path, err)
	}
	var fc rawFeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("zonalstats: parsing GeoJSON %q: %w", path, err)
	}

	src := &GeoJSONSource{path: path}
	for _, rf := range fc.Features {
		g, err := geojson.FromGeoJSON(rf.Geometry)
		if err != nil {
			return nil, fmt.Errorf("zonalstats: decoding geometry in %q: %w", path, err)
		}
		poly, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("zonalstats: %w: GeoJSON %q contains a non-polygonal geometry", zonalstats.ErrInvalidGeometry, path)
		}
		feat := zonalstats.Feature{
			Index:    len(src.features),
			UUID:     uuid.New(),
			Geometry: poly,
			Fields:   make(map[string]any, len(keepFields)),
		}
		if idField != "" {
			if v, ok := rf.Properties[idField]; ok {
				feat.ID = fmt.Sprint(v)
			}
		}
		for _, k := range keepFields {
			if v, ok := rf.Properties[k]; ok {
				feat.Fields[k] = v
			}
		}
		src.features = append(src.features, feat)
	}
	return src, nil
}

// Name implements zonalstats.FeatureSource.
func (s *GeoJSONSource) Name() string { return s.path }

// NumFeatures implements zonalstats.FeatureSource.
func (s *GeoJSONSource) NumFeatures() int { return len(s.features) }

// Feature implements zonalstats.FeatureSource.
func (s *GeoJSONSource) Feature(_ context.Context, index int) (zonalstats.Feature, error) {
	if index < 0 || index >= len(s.features) {
		return zonalstats.Feature{}, fmt.Errorf("zonalstats: feature index %d out of range", index)
	}
	return s.features[index], nil
}

// GeoJSONWriter is a zonalstats.OutputWriter that accumulates features in
// memory and writes one FeatureCollection on Close.
type GeoJSONWriter struct {
	path string

	mu   sync.Mutex
	rows []map[string]any
}

// NewGeoJSONWriter creates a writer that will write to path on Close.
func NewGeoJSONWriter(path string) *GeoJSONWriter {
	return &GeoJSONWriter{path: path}
}

// WriteFeature implements zonalstats.OutputWriter. Feature geometry is
// not round-tripped into the output; only the computed row is kept,
// matching a results table rather than an annotated copy of the input.
func (w *GeoJSONWriter) WriteFeature(_ context.Context, feature zonalstats.Feature, row map[string]any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[string]any, len(row)+2)
	out["feature_index"] = feature.Index
	out["feature_uuid"] = feature.UUID.String()
	for k, v := range row {
		out[k] = v
	}
	w.rows = append(w.rows, out)
	return nil
}

type plainFeature struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// Close writes the accumulated rows as a GeoJSON-shaped document. Since
// zonal statistics attach to a feature's identity rather than a new
// geometry, geometry is omitted per feature (null), matching a properties
// table dressed as a FeatureCollection for downstream tools that already
// expect one.
func (w *GeoJSONWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	features := make([]plainFeature, len(w.rows))
	for i, r := range w.rows {
		features[i] = plainFeature{Type: "Feature", Properties: r}
	}
	doc := struct {
		Type     string         `json:"type"`
		Features []plainFeature `json:"features"`
	}{Type: "FeatureCollection", Features: features}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("zonalstats: encoding GeoJSON output: %w", err)
	}
	return os.WriteFile(w.path, data, 0o644)
}
