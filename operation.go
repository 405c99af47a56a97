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
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Arg is one positional or keyword argument in a parsed stat descriptor.
// Key is empty for a positional argument.
type Arg struct {
	Key   string
	Value string
}

// Descriptor is a single parsed stat request, in one of four surface
// forms: "stat", "name=stat", "stat(args)", or "name=stat(args)".
type Descriptor struct {
	Name string // explicit output field name, empty if auto-generated
	Stat string
	Args []Arg
}

// arg looks up a keyword argument by name, falling back to the
// positional argument at index pos if no keyword match exists.
func (d Descriptor) arg(key string, pos int) (string, bool) {
	for _, a := range d.Args {
		if a.Key == key {
			return a.Value, true
		}
	}
	n := 0
	for _, a := range d.Args {
		if a.Key != "" {
			continue
		}
		if n == pos {
			return a.Value, true
		}
		n++
	}
	return "", false
}

func (d Descriptor) floatArg(key string, pos int) (float64, bool, error) {
	s, ok := d.arg(key, pos)
	if !ok {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("zonalstats: %w: argument %q of %q is not numeric", ErrInvalidDescriptor, s, d.Stat)
	}
	return f, true, nil
}

// floatListArg parses a comma-separated list of floats, as accepted by
// quantile's "q" argument (e.g. "q=0.25,0.5,0.75").
func (d Descriptor) floatListArg(key string, pos int) ([]float64, bool, error) {
	s, ok := d.arg(key, pos)
	if !ok {
		return nil, false, nil
	}
	parts := strings.Split(s, ",")
	vals := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, false, fmt.Errorf("zonalstats: %w: argument %q of %q is not numeric", ErrInvalidDescriptor, s, d.Stat)
		}
		vals[i] = f
	}
	return vals, true, nil
}

// ParseDescriptor parses one stat descriptor by hand: a lexical scan
// rather than a regular expression, so that error positions and
// malformed-input handling stay explicit and testable.
//
//	mean
//	pop_mean=mean
//	quantile(0.9)
//	q90=quantile(q=0.9)
//	mean(raster=elevation, weight_raster=pop)
func ParseDescriptor(s string) (Descriptor, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Descriptor{}, fmt.Errorf("zonalstats: %w: empty descriptor", ErrInvalidDescriptor)
	}

	rest := s
	var name string
	if i := strings.IndexByte(rest, '='); i >= 0 {
		if j := strings.IndexByte(rest, '('); j < 0 || j > i {
			name = strings.TrimSpace(rest[:i])
			rest = strings.TrimSpace(rest[i+1:])
			if !isIdent(name) {
				return Descriptor{}, fmt.Errorf("zonalstats: %w: %q is not a valid field name", ErrInvalidDescriptor, name)
			}
		}
	}

	stat := rest
	var argsPart string
	hasArgs := false
	if i := strings.IndexByte(rest, '('); i >= 0 {
		if !strings.HasSuffix(rest, ")") {
			return Descriptor{}, fmt.Errorf("zonalstats: %w: unterminated argument list in %q", ErrInvalidDescriptor, s)
		}
		stat = strings.TrimSpace(rest[:i])
		argsPart = rest[i+1 : len(rest)-1]
		hasArgs = true
	}
	stat = strings.TrimSpace(stat)
	if !isIdent(stat) {
		return Descriptor{}, fmt.Errorf("zonalstats: %w: %q is not a valid stat name", ErrInvalidDescriptor, s)
	}

	d := Descriptor{Name: name, Stat: stat}
	if hasArgs && strings.TrimSpace(argsPart) != "" {
		args, err := parseArgs(argsPart)
		if err != nil {
			return Descriptor{}, fmt.Errorf("zonalstats: %w: %s in %q", ErrInvalidDescriptor, err, s)
		}
		d.Args = args
	}
	return d, nil
}

func parseArgs(s string) ([]Arg, error) {
	var args []Arg
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty argument")
		}
		if i := strings.IndexByte(part, '='); i >= 0 {
			key := strings.TrimSpace(part[:i])
			if !isIdent(key) {
				return nil, fmt.Errorf("invalid argument name %q", key)
			}
			args = append(args, Arg{Key: key, Value: strings.TrimSpace(part[i+1:])})
		} else {
			args = append(args, Arg{Value: part})
		}
	}
	return args, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Operation ties one parsed Descriptor to the value/weight raster pair
// that feeds its accumulator, and knows how to render its own result
// into a feature's output row.
type Operation struct {
	FieldName    string
	Stat         string
	Args         []Arg
	ValueRaster  string
	WeightRaster string
}

// AccumulatorKey groups operations that can share one accumulator: any
// number of stat requests against the same value/weight raster pair only
// need the raster data visited once.
type AccumulatorKey struct {
	ValueRaster  string
	WeightRaster string
}

// Key returns the AccumulatorKey this operation's accumulator is filed
// under in a StatsRegistry.
func (op Operation) Key() AccumulatorKey {
	return AccumulatorKey{ValueRaster: op.ValueRaster, WeightRaster: op.WeightRaster}
}

// needsStorage reports whether op's stat requires per-cell storage
// (quantile/median need the sorted value/coverage arrays; the raw array
// outputs need it directly).
func (op Operation) needsStorage() bool {
	switch op.Stat {
	case "quantile", "median", "coverage", "values", "weights", "center_x", "center_y", "cell_id":
		return true
	default:
		return false
	}
}

// BuildOperations expands a list of descriptor strings against the
// available value and weight rasters, producing one Operation per
// (descriptor, raster) combination.
//
// A descriptor is explicit if it names its rasters via "raster=" and/or
// "weight_raster=" keyword arguments; those arguments are resolved here
// and stay in the Operation's Args, where no stat reads them, since their
// names differ from every stat's own arguments (frac's own "value"
// argument, for instance). Otherwise the descriptor is
// implicit and is applied once per value raster, recycled against the
// weight rasters (the shorter list repeats) the way spec's cross-product
// rule requires — a descriptor whose stat needs a weight but no weight
// raster was supplied is rejected eagerly.
func BuildOperations(descriptors []string, valueRasters, weightRasters []RasterSource) ([]Operation, error) {
	var ops []Operation
	for _, raw := range descriptors {
		d, err := ParseDescriptor(raw)
		if err != nil {
			return nil, err
		}

		explicitValue, hasValue := d.arg("raster", -1)
		explicitWeight, hasWeight := d.arg("weight_raster", -1)
		if hasValue {
			vr, err := findRaster(valueRasters, explicitValue)
			if err != nil {
				return nil, err
			}
			wr := ""
			if hasWeight {
				if _, err := findRaster(weightRasters, explicitWeight); err != nil {
					return nil, err
				}
				wr = explicitWeight
			} else if needsWeight(d.Stat) {
				return nil, fmt.Errorf("zonalstats: %w: %q requires a weight raster", ErrMissingWeights, d.Stat)
			}
			ops = append(ops, newOperation(d, vr.Name(), wr, true, 1))
			continue
		}

		if len(valueRasters) == 0 {
			return nil, fmt.Errorf("zonalstats: %w: no value rasters available for %q", ErrInvalidDescriptor, raw)
		}
		if !needsWeight(d.Stat) {
			for _, vr := range valueRasters {
				ops = append(ops, newOperation(d, vr.Name(), "", false, len(valueRasters)))
			}
			continue
		}
		if len(weightRasters) == 0 {
			return nil, fmt.Errorf("zonalstats: %w: %q requires a weight raster", ErrMissingWeights, d.Stat)
		}
		if len(valueRasters) != len(weightRasters) && len(valueRasters) != 1 && len(weightRasters) != 1 {
			return nil, fmt.Errorf("zonalstats: %w", ErrBandCountMismatch)
		}
		n := len(valueRasters)
		if len(weightRasters) > n {
			n = len(weightRasters)
		}
		for i := 0; i < n; i++ {
			vr := valueRasters[i%len(valueRasters)]
			wr := weightRasters[i%len(weightRasters)]
			ops = append(ops, newOperation(d, vr.Name(), wr.Name(), false, n))
		}
	}
	return ops, nil
}

func newOperation(d Descriptor, valueRaster, weightRaster string, explicit bool, pairingCount int) Operation {
	name := d.Name
	if name == "" {
		name = autoFieldName(d, valueRaster, weightRaster, explicit, pairingCount)
	}
	return Operation{
		FieldName:    name,
		Stat:         d.Stat,
		Args:         d.Args,
		ValueRaster:  valueRaster,
		WeightRaster: weightRaster,
	}
}

// autoFieldName derives an output column name for a descriptor that
// carries no explicit "name=" prefix.
//
// An implicit descriptor (explicit is false) is named "<valueRaster>_<stat>",
// or "<valueRaster>_<weightRaster>_<stat>" for a weighted stat, unless
// pairingCount is 1, in which case the bare stat name is used since there
// is nothing to disambiguate. An explicit descriptor is always named
// "<valueRaster>_<stat>", regardless of pairing count or weight.
//
// quantile is the exception: its output field names are always the fixed
// "q_<floor(100*q)>" form computed in SetResult, independent of FieldName,
// so the name this function assigns for a quantile descriptor is never
// actually used to key an output value.
func autoFieldName(d Descriptor, valueRaster, weightRaster string, explicit bool, pairingCount int) string {
	base := d.Stat
	if fv, ok, err := d.floatArg("value", 0); (d.Stat == "frac" || d.Stat == "weighted_frac") && ok && err == nil {
		base = fmt.Sprintf("%s_%s", d.Stat, strconv.FormatFloat(fv, 'g', -1, 64))
	}
	if !explicit {
		if pairingCount == 1 {
			return base
		}
		if strings.HasPrefix(d.Stat, "weighted") && weightRaster != "" {
			return fmt.Sprintf("%s_%s_%s", valueRaster, weightRaster, base)
		}
	}
	return valueRaster + "_" + base
}

func needsWeight(stat string) bool {
	switch stat {
	case "weighted_sum", "weighted_mean", "weighted_std", "weighted_stdev", "weighted_variance", "weighted_frac":
		return true
	default:
		return false
	}
}

func findRaster(sources []RasterSource, name string) (RasterSource, error) {
	for _, s := range sources {
		if s.Name() == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("zonalstats: %w: %q", ErrUnknownRaster, name)
}

// SetResult evaluates op against acc and stores the result under
// op.FieldName in dest (quantile is the exception: its fields are named
// "q_<floor(100*q)>" and never keyed by op.FieldName). Every stat this
// core knows about is listed here; anything else is ErrUnhandledStat.
// acc must never be nil: a feature with no overlapping cells still gets
// a freshly constructed, empty accumulator of the right pixel type from
// the registry, so that "no data" and "an accumulator that saw zero
// cells" are the same code path. missing is substituted for min/max/
// mode/minority/median/quantile when the accumulator saw nothing to
// report: the values raster's declared nodata value if it has one, else
// NaN — the caller (Processor.buildRow) resolves which.
func (op Operation) SetResult(dest map[string]any, acc Accumulator, missing float64) error {
	switch op.Stat {
	case "count":
		dest[op.FieldName] = acc.Count()
	case "sum":
		dest[op.FieldName] = acc.Sum()
	case "mean":
		dest[op.FieldName] = acc.Mean()
	case "min":
		v, ok := acc.Min()
		dest[op.FieldName] = missingIfNotOK(v, ok, missing)
	case "max":
		v, ok := acc.Max()
		dest[op.FieldName] = missingIfNotOK(v, ok, missing)
	case "std", "stdev":
		dest[op.FieldName] = acc.Stdev()
	case "variance":
		dest[op.FieldName] = acc.Variance()
	case "coefficient_of_variation":
		dest[op.FieldName] = acc.CoefficientOfVariation()
	case "weighted_sum":
		dest[op.FieldName] = acc.WeightedSum()
	case "weighted_mean":
		dest[op.FieldName] = acc.WeightedMean()
	case "weighted_std", "weighted_stdev":
		dest[op.FieldName] = acc.WeightedStdev()
	case "weighted_variance":
		dest[op.FieldName] = acc.WeightedVariance()
	case "majority", "mode":
		v, ok := acc.Mode()
		dest[op.FieldName] = missingIfNotOK(v, ok, missing)
	case "minority":
		v, ok := acc.Minority()
		dest[op.FieldName] = missingIfNotOK(v, ok, missing)
	case "variety":
		dest[op.FieldName] = acc.Variety()
	case "frac":
		v, ok, err := (Descriptor{Stat: op.Stat, Args: op.Args}).floatArg("value", 0)
		if err != nil {
			return err
		}
		if ok {
			dest[op.FieldName] = acc.Frac(v)
			break
		}
		// No explicit value: report one field per distinct value the
		// accumulator actually observed, rather than a fixed list. The
		// field name is always "frac_<value>", never raster-prefixed.
		for _, fv := range acc.Frequencies() {
			dest[fracFieldName("frac_", fv)] = acc.Frac(fv)
		}
	case "weighted_frac":
		v, ok, err := (Descriptor{Stat: op.Stat, Args: op.Args}).floatArg("value", 0)
		if err != nil {
			return err
		}
		if ok {
			dest[op.FieldName] = acc.WeightedFrac(v)
			break
		}
		for _, fv := range acc.Frequencies() {
			dest[fracFieldName("weighted_frac_", fv)] = acc.WeightedFrac(fv)
		}
	case "quantile":
		qs, ok, err := (Descriptor{Stat: op.Stat, Args: op.Args}).floatListArg("q", 0)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("zonalstats: %w: quantile requires a q argument", ErrInvalidDescriptor)
		}
		for _, q := range qs {
			v, ok2 := acc.Quantile(q)
			dest[quantileFieldName(q)] = missingIfNotOK(v, ok2, missing)
		}
	case "median":
		v, ok := acc.Quantile(0.5)
		dest[op.FieldName] = missingIfNotOK(v, ok, missing)
	case "coverage":
		dest[op.FieldName] = acc.Coverage()
	case "values":
		dest[op.FieldName] = acc.Values()
	case "weights":
		dest[op.FieldName] = acc.Weights()
	case "center_x":
		dest[op.FieldName] = acc.CenterX()
	case "center_y":
		dest[op.FieldName] = acc.CenterY()
	case "cell_id":
		dest[op.FieldName] = acc.CellID()
	default:
		return fmt.Errorf("zonalstats: %w: %q", ErrUnhandledStat, op.Stat)
	}
	return nil
}

// fracFieldName appends an observed value to the literal "frac_"/
// "weighted_frac_" prefix, used when the descriptor did not pin a single
// value and the field set is instead driven by what the accumulator
// observed. The prefix is always the bare stat name, never raster-
// prefixed, regardless of how many value rasters are in play.
func fracFieldName(prefix string, v float64) string {
	return prefix + strconv.FormatFloat(v, 'g', -1, 64)
}

// quantileFieldName is the fixed "q_<floor(100*q)>" name every quantile
// output field uses, independent of any raster prefixing or name=
// override.
func quantileFieldName(q float64) string {
	return fmt.Sprintf("q_%d", int(math.Floor(100*q)))
}

// missingIfNotOK substitutes missing for an accumulator result the
// accumulator could not produce (an empty sample set).
func missingIfNotOK(v float64, ok bool, missing float64) float64 {
	if !ok {
		return missing
	}
	return v
}
