package netcdf

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

var (
	latNames  = []string{"latitude", "lat", "y"}
	lonNames  = []string{"longitude", "lon", "x"}
	timeNames = []string{"time", "valid_time"}
)

// defaultTimeUnits applies when the time coordinate has no units attribute
// (ERA5 convention).
const defaultTimeUnits = "hours since 1900-01-01 00:00:00"

// Loader reads one variable of a NetCDF file into a domain.Grid.
// It implements pipeline.RasterLoader.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a NetCDF raster loader.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load reads variable from path. The variable must span time, latitude and
// longitude; extra dimensions of length one are squeezed.
func (l *Loader) Load(ctx context.Context, path, variable string) (domain.Grid, error) {
	return l.load(ctx, path, variable, nil)
}

// LoadAt reads a single-band variable with no time axis and stamps it with
// at. Variables that do have a time axis are read as in Load.
func (l *Loader) LoadAt(ctx context.Context, path, variable string, at time.Time) (domain.Grid, error) {
	return l.load(ctx, path, variable, &at)
}

func (l *Loader) load(ctx context.Context, path, variable string, at *time.Time) (domain.Grid, error) {
	if err := ctx.Err(); err != nil {
		return domain.Grid{}, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Grid{}, &domain.InputNotFoundError{Path: path}
		}
		return domain.Grid{}, &domain.FormatError{Path: path, Err: err}
	}

	nc, err := netcdf.Open(path)
	if err != nil {
		return domain.Grid{}, &domain.FormatError{Path: path, Err: fmt.Errorf("open: %w", err)}
	}
	defer nc.Close()

	grid, err := readGrid(nc, variable, at)
	if err != nil {
		return domain.Grid{}, &domain.FormatError{Path: path, Err: err}
	}

	nt, ny, nx := grid.Dims()
	l.logger.Debug("netcdf variable loaded",
		"path", path,
		"variable", variable,
		"times", nt,
		"lats", ny,
		"lons", nx,
		"lat_ascending", grid.LatAscending(),
		"crs", grid.CRS(),
	)
	return grid, nil
}

func readGrid(nc api.Group, variable string, at *time.Time) (domain.Grid, error) {
	vg, err := nc.GetVarGetter(variable)
	if err != nil {
		return domain.Grid{}, fmt.Errorf("variable %q: %w", variable, err)
	}
	dims := vg.Dimensions()

	latDim, lonDim, timeDim := pickDim(dims, latNames), pickDim(dims, lonNames), pickDim(dims, timeNames)
	if latDim == "" || lonDim == "" {
		return domain.Grid{}, fmt.Errorf("variable %q dimensions %v lack latitude/longitude", variable, dims)
	}

	lats, _, err := readCoord(nc, latDim)
	if err != nil {
		return domain.Grid{}, err
	}
	lons, _, err := readCoord(nc, lonDim)
	if err != nil {
		return domain.Grid{}, err
	}

	var times []time.Time
	switch {
	case timeDim != "":
		offsets, attrs, err := readCoord(nc, timeDim)
		if err != nil {
			return domain.Grid{}, err
		}
		units, _ := attrString(attrs, "units")
		if units == "" {
			units = defaultTimeUnits
		}
		times, err = decodeTimes(units, offsets)
		if err != nil {
			return domain.Grid{}, fmt.Errorf("time coordinate %q: %w", timeDim, err)
		}
	case at != nil:
		times = []time.Time{at.UTC()}
	default:
		return domain.Grid{}, fmt.Errorf("variable %q has no time dimension", variable)
	}

	raw, err := vg.Values()
	if err != nil {
		return domain.Grid{}, fmt.Errorf("read %q: %w", variable, err)
	}
	flat, shape, err := flatten(raw)
	if err != nil {
		return domain.Grid{}, fmt.Errorf("decode %q: %w", variable, err)
	}
	if len(shape) != len(dims) {
		return domain.Grid{}, fmt.Errorf("variable %q has %d dimensions but %d-deep values", variable, len(dims), len(shape))
	}

	attrs := vg.Attributes()
	unpack(flat, attrs)

	values, err := reorder(flat, shape, dims, timeDim, latDim, lonDim, len(times), len(lats), len(lons))
	if err != nil {
		return domain.Grid{}, fmt.Errorf("variable %q: %w", variable, err)
	}

	units, _ := attrString(attrs, "units")
	return domain.NewGrid(domain.GridSpec{
		Variable: variable,
		Units:    units,
		CRS:      gridCRS(nc, attrs),
		Times:    times,
		Lats:     lats,
		Lons:     lons,
		Values:   values,
	})
}

func pickDim(dims, candidates []string) string {
	for _, c := range candidates {
		for _, d := range dims {
			if d == c {
				return d
			}
		}
	}
	return ""
}

func readCoord(nc api.Group, name string) ([]float64, api.AttributeMap, error) {
	vg, err := nc.GetVarGetter(name)
	if err != nil {
		return nil, nil, fmt.Errorf("coordinate %q: %w", name, err)
	}
	raw, err := vg.Values()
	if err != nil {
		return nil, nil, fmt.Errorf("read coordinate %q: %w", name, err)
	}
	vals, shape, err := flatten(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("decode coordinate %q: %w", name, err)
	}
	if len(shape) != 1 {
		return nil, nil, fmt.Errorf("coordinate %q is not one-dimensional", name)
	}
	return vals, vg.Attributes(), nil
}

// unpack applies CF packing attributes in place: fill and missing markers
// become NaN, then scale_factor and add_offset are applied.
func unpack(vals []float64, attrs api.AttributeMap) {
	fill, hasFill := attrFloat(attrs, "_FillValue")
	missing, hasMissing := attrFloat(attrs, "missing_value")
	scale, hasScale := attrFloat(attrs, "scale_factor")
	offset, hasOffset := attrFloat(attrs, "add_offset")
	if !hasScale {
		scale = 1
	}
	if !hasOffset {
		offset = 0
	}

	for i, v := range vals {
		if (hasFill && v == fill) || (hasMissing && v == missing) {
			vals[i] = math.NaN()
			continue
		}
		vals[i] = v*scale + offset
	}
}

// reorder maps the stored dimension order onto time-major, latitude,
// longitude layout.
func reorder(flat []float64, shape []int, dims []string, timeDim, latDim, lonDim string, nt, ny, nx int) ([]float64, error) {
	strides := make([]int, len(shape))
	stride := 1
	for k := len(shape) - 1; k >= 0; k-- {
		strides[k] = stride
		stride *= shape[k]
	}

	var st, sy, sx int
	for k, d := range dims {
		switch d {
		case timeDim:
			st = strides[k]
			if shape[k] != nt {
				return nil, fmt.Errorf("time dimension has %d steps, coordinate has %d", shape[k], nt)
			}
		case latDim:
			sy = strides[k]
			if shape[k] != ny {
				return nil, fmt.Errorf("latitude dimension has %d rows, coordinate has %d", shape[k], ny)
			}
		case lonDim:
			sx = strides[k]
			if shape[k] != nx {
				return nil, fmt.Errorf("longitude dimension has %d columns, coordinate has %d", shape[k], nx)
			}
		default:
			if shape[k] != 1 {
				return nil, fmt.Errorf("unsupported dimension %q of length %d", d, shape[k])
			}
		}
	}

	out := make([]float64, 0, nt*ny*nx)
	for t := 0; t < nt; t++ {
		for i := 0; i < ny; i++ {
			for j := 0; j < nx; j++ {
				out = append(out, flat[t*st+i*sy+j*sx])
			}
		}
	}
	return out, nil
}

// gridCRS looks for a CF grid_mapping variable carrying WKT or PROJ text.
func gridCRS(nc api.Group, attrs api.AttributeMap) string {
	name, ok := attrString(attrs, "grid_mapping")
	if !ok || name == "" {
		return ""
	}
	vg, err := nc.GetVarGetter(name)
	if err != nil {
		return ""
	}
	for _, key := range []string{"crs_wkt", "spatial_ref", "proj4", "proj4text"} {
		if s, ok := attrString(vg.Attributes(), key); ok && s != "" {
			return s
		}
	}
	return ""
}
