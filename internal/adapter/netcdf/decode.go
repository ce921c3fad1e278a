package netcdf

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
)

// flatten converts the nested slices returned by VarGetter.Values into a flat
// row-major []float64 and the shape of each nesting level.
func flatten(raw any) ([]float64, []int, error) {
	v := reflect.ValueOf(raw)
	if v.Kind() != reflect.Slice {
		f, ok := toFloat(v)
		if !ok {
			return nil, nil, fmt.Errorf("unsupported value type %T", raw)
		}
		return []float64{f}, nil, nil
	}

	var shape []int
	for cur := v; cur.Kind() == reflect.Slice; {
		shape = append(shape, cur.Len())
		if cur.Len() == 0 {
			break
		}
		cur = cur.Index(0)
	}

	out := make([]float64, 0, product(shape))
	if err := appendFlat(&out, v, shape, 0); err != nil {
		return nil, nil, err
	}
	return out, shape, nil
}

func appendFlat(out *[]float64, v reflect.Value, shape []int, depth int) error {
	if v.Len() != shape[depth] {
		return fmt.Errorf("ragged values at depth %d: %d vs %d", depth, v.Len(), shape[depth])
	}
	if depth == len(shape)-1 {
		for i := 0; i < v.Len(); i++ {
			f, ok := toFloat(v.Index(i))
			if !ok {
				return fmt.Errorf("unsupported element type %s", v.Index(i).Type())
			}
			*out = append(*out, f)
		}
		return nil
	}
	for i := 0; i < v.Len(); i++ {
		if err := appendFlat(out, v.Index(i), shape, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func toFloat(v reflect.Value) (float64, bool) {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), true
	case reflect.Interface:
		return toFloat(v.Elem())
	default:
		return 0, false
	}
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// attrFloat reads a numeric attribute stored either as a scalar or as the
// first element of a vector.
func attrFloat(attrs api.AttributeMap, key string) (float64, bool) {
	if attrs == nil {
		return 0, false
	}
	raw, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	v := reflect.ValueOf(raw)
	if v.Kind() == reflect.Slice {
		if v.Len() == 0 {
			return 0, false
		}
		v = v.Index(0)
	}
	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func attrString(attrs api.AttributeMap, key string) (string, bool) {
	if attrs == nil {
		return "", false
	}
	raw, ok := attrs.Get(key)
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return strings.TrimSpace(s), ok
}

var referenceLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-1-2 15:04:05",
	"2006-1-2",
}

// decodeTimes converts CF "<unit> since <reference>" offsets to UTC times.
func decodeTimes(units string, offsets []float64) ([]time.Time, error) {
	unit, ref, ok := strings.Cut(strings.TrimSpace(units), " since ")
	if !ok {
		return nil, fmt.Errorf("units %q are not of the form '<unit> since <reference>'", units)
	}

	var step time.Duration
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "days", "day", "d":
		step = 24 * time.Hour
	case "hours", "hour", "h":
		step = time.Hour
	case "minutes", "minute", "min":
		step = time.Minute
	case "seconds", "second", "s":
		step = time.Second
	default:
		return nil, fmt.Errorf("unsupported time unit %q", unit)
	}

	base, err := parseReference(ref)
	if err != nil {
		return nil, err
	}

	out := make([]time.Time, len(offsets))
	for i, off := range offsets {
		if math.IsNaN(off) {
			return nil, fmt.Errorf("time offset %d is missing", i)
		}
		secs := off * step.Seconds()
		whole := math.Floor(secs)
		out[i] = time.Unix(base.Unix()+int64(whole), int64((secs-whole)*1e9)).UTC()
	}
	return out, nil
}

func parseReference(ref string) (time.Time, error) {
	ref = strings.TrimSpace(ref)
	ref = strings.TrimSuffix(ref, "UTC")
	ref = strings.TrimSuffix(ref, "Z")
	ref = strings.TrimSpace(ref)
	for _, layout := range referenceLayouts {
		if t, err := time.Parse(layout, ref); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable time reference %q", ref)
}
