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
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/spatialmodel/zonalstats"
)

// CSVWriter is a zonalstats.OutputWriter that writes one row per feature,
// in a fixed column order decided up front.
//
// When Unnest is true, any array-valued stat result (coverage, values,
// weights, center_x, center_y, cell_id) is expanded: the feature's row is
// repeated once per array element, with scalar columns copied across the
// repeats and array columns walking their own index. This mirrors how a
// zonal-statistics report with per-cell detail columns is usually joined
// back into a flat table for downstream analysis.
type CSVWriter struct {
	fields []string
	unnest bool

	f *os.File
	w *csv.Writer

	wroteHeader bool
}

// NewCSVWriter opens path for writing and prepares a writer that will
// emit fields, in order, as its columns (preceded by "feature_index").
func NewCSVWriter(path string, unnest bool, fields []string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("zonalstats: creating output %q: %w", path, err)
	}
	return &CSVWriter{fields: fields, unnest: unnest, f: f, w: csv.NewWriter(f)}, nil
}

// WriteFeature implements zonalstats.OutputWriter.
func (w *CSVWriter) WriteFeature(_ context.Context, feature zonalstats.Feature, row map[string]any) error {
	if !w.wroteHeader {
		header := append([]string{"feature_index"}, w.fields...)
		if err := w.w.Write(header); err != nil {
			return err
		}
		w.wroteHeader = true
	}

	n := 1
	if w.unnest {
		n = arrayLen(row, w.fields)
	}
	for i := 0; i < n; i++ {
		record := make([]string, 0, len(w.fields)+1)
		record = append(record, strconv.Itoa(feature.Index))
		for _, f := range w.fields {
			record = append(record, formatCell(row[f], i, w.unnest))
		}
		if err := w.w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// Close implements zonalstats.OutputWriter.
func (w *CSVWriter) Close() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return err
	}
	return w.f.Close()
}

// arrayLen returns the longest array-valued field's length across row, or
// 1 if row has no array-valued fields.
func arrayLen(row map[string]any, fields []string) int {
	max := 1
	for _, f := range fields {
		switch v := row[f].(type) {
		case []float32:
			if len(v) > max {
				max = len(v)
			}
		case []float64:
			if len(v) > max {
				max = len(v)
			}
		case []int64:
			if len(v) > max {
				max = len(v)
			}
		}
	}
	return max
}

func formatCell(v any, i int, unnest bool) string {
	switch x := v.(type) {
	case []float32:
		if !unnest {
			return joinFloat32(x)
		}
		if i < len(x) {
			return strconv.FormatFloat(float64(x[i]), 'g', -1, 32)
		}
		return ""
	case []float64:
		if !unnest {
			return joinFloat64(x)
		}
		if i < len(x) {
			return strconv.FormatFloat(x[i], 'g', -1, 64)
		}
		return ""
	case []int64:
		if !unnest {
			return joinInt64(x)
		}
		if i < len(x) {
			return strconv.FormatInt(x[i], 10)
		}
		return ""
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

func joinFloat32(xs []float32) string {
	s := ""
	for i, x := range xs {
		if i > 0 {
			s += ";"
		}
		s += strconv.FormatFloat(float64(x), 'g', -1, 32)
	}
	return s
}

func joinFloat64(xs []float64) string {
	s := ""
	for i, x := range xs {
		if i > 0 {
			s += ";"
		}
		s += strconv.FormatFloat(x, 'g', -1, 64)
	}
	return s
}

func joinInt64(xs []int64) string {
	s := ""
	for i, x := range xs {
		if i > 0 {
			s += ";"
		}
		s += strconv.FormatInt(x, 10)
	}
	return s
}
