// Command genmock writes a synthetic input set for local runs and the
// integration suite: ERA5-style monthly NetCDF files for temperature and
// precipitation, twelve WorldClim-style monthly Tmax files, and a region
// shapefile covering the grid's interior.
//
// Usage:
//
//	go run ./cmd/genmock -out data -start 1940 -end 2024
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
)

// Grid extent and the fill value ERA5 uses for missing cells.
const (
	latNorth  = -22.0
	latSouth  = -34.0
	lonWest   = -58.0
	lonEast   = -47.0
	fillValue = float32(-32767)
)

var era5Epoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

const wgs84PRJ = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

type regionRecord struct {
	geom.Polygon
	ID float64
}

type varWriter interface {
	AddVar(name string, v api.Variable) error
}

type grid struct {
	lats  []float32
	lons  []float32
	times []time.Time
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data", "output directory")
	start := flag.Int("start", 1940, "first year")
	end := flag.Int("end", 2024, "last year")
	res := flag.Float64("res", 0.5, "grid resolution in degrees")
	seed := flag.Uint64("seed", 42, "noise seed")
	flag.Parse()

	if *end < *start {
		return fmt.Errorf("-end %d precedes -start %d", *end, *start)
	}
	if *res <= 0 {
		return errors.New("-res must be positive")
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}

	g := newGrid(*start, *end, *res)
	rng := rand.New(rand.NewPCG(*seed, 0))

	if err := writeMonthly(filepath.Join(*out, "data_0.nc"), "t2m", "K", g, func(t time.Time, lat float32) float32 {
		return temperature(t, lat) + float32(rng.NormFloat64())
	}); err != nil {
		return err
	}
	log.Printf("data_0.nc: t2m %d steps x %d x %d", len(g.times), len(g.lats), len(g.lons))

	if err := writeMonthly(filepath.Join(*out, "data_1.nc"), "tp", "m", g, func(t time.Time, lat float32) float32 {
		return max(0, precipitation(t, lat)+float32(rng.NormFloat64()*0.0008))
	}); err != nil {
		return err
	}
	log.Printf("data_1.nc: tp %d steps x %d x %d", len(g.times), len(g.lats), len(g.lons))

	for m := time.January; m <= time.December; m++ {
		name := fmt.Sprintf("tmax_%02d.nc", int(m))
		if err := writeTmax(filepath.Join(*out, name), m, g); err != nil {
			return err
		}
	}
	log.Printf("tmax_01.nc..tmax_12.nc written")

	if err := writeRegion(filepath.Join(*out, "regiao_sul.shp")); err != nil {
		return err
	}
	log.Printf("regiao_sul.shp written")
	return nil
}

func newGrid(start, end int, res float64) grid {
	var g grid
	// ERA5 stores latitude north to south.
	for lat := latNorth; lat >= latSouth-1e-9; lat -= res {
		g.lats = append(g.lats, float32(lat))
	}
	for lon := lonWest; lon <= lonEast+1e-9; lon += res {
		g.lons = append(g.lons, float32(lon))
	}
	for y := start; y <= end; y++ {
		for m := time.January; m <= time.December; m++ {
			g.times = append(g.times, time.Date(y, m, 1, 0, 0, 0, 0, time.UTC))
		}
	}
	return g
}

// temperature is a southern-hemisphere seasonal cycle peaking in January,
// cooler to the south, with a warming of 0.015 K per year.
func temperature(t time.Time, lat float32) float32 {
	phase := 2 * math.Pi * float64(t.Month()-1) / 12
	k := 273.15 + 20 + 0.5*(float64(lat)+28) + 5*math.Cos(phase) + 0.015*float64(t.Year()-1940)
	return float32(k)
}

// precipitation is a daily mean in metres, wetter in summer.
func precipitation(t time.Time, lat float32) float32 {
	phase := 2 * math.Pi * float64(t.Month()-1) / 12
	m := 0.0045 + 0.0012*math.Cos(phase) - 0.00005*(float64(lat)+28)
	return float32(m)
}

func writeMonthly(path, name, units string, g grid, value func(time.Time, float32) float32) (err error) {
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := cw.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	hours := make([]int32, len(g.times))
	for i, t := range g.times {
		hours[i] = int32(t.Sub(era5Epoch).Hours())
	}
	values := make([][][]float32, len(g.times))
	for ti, t := range g.times {
		values[ti] = make([][]float32, len(g.lats))
		for i, lat := range g.lats {
			row := make([]float32, len(g.lons))
			for j := range g.lons {
				row[j] = value(t, lat)
			}
			values[ti][i] = row
		}
	}
	// One corner cell is missing throughout, as over open sea.
	for ti := range values {
		values[ti][len(g.lats)-1][len(g.lons)-1] = fillValue
	}

	if err := addCoords(cw, g, "latitude", "longitude"); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if err := addVar(cw, "time", hours, []string{"time"}, map[string]any{
		"units":    "hours since 1900-01-01 00:00:00.0",
		"calendar": "gregorian",
	}); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return addVar(cw, name, values, []string{"time", "latitude", "longitude"}, map[string]any{
		"units":      units,
		"_FillValue": fillValue,
	})
}

// writeTmax writes a single-band climatological Tmax in degrees Celsius for
// month m on an ascending latitude axis.
func writeTmax(path string, m time.Month, g grid) (err error) {
	cw, err := cdf.OpenWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := cw.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	asc := grid{lats: make([]float32, len(g.lats)), lons: g.lons}
	for i, lat := range g.lats {
		asc.lats[len(g.lats)-1-i] = lat
	}
	at := time.Date(1970, m, 1, 0, 0, 0, 0, time.UTC)
	values := make([][]float32, len(asc.lats))
	for i, lat := range asc.lats {
		row := make([]float32, len(asc.lons))
		for j := range asc.lons {
			row[j] = temperature(at, lat) - 273.15 + 6
		}
		values[i] = row
	}

	if err := addCoords(cw, asc, "lat", "lon"); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return addVar(cw, "tmax", values, []string{"lat", "lon"}, map[string]any{"units": "degC"})
}

func addCoords(cw varWriter, g grid, latName, lonName string) error {
	if err := addVar(cw, latName, g.lats, []string{latName}, map[string]any{"units": "degrees_north"}); err != nil {
		return err
	}
	return addVar(cw, lonName, g.lons, []string{lonName}, map[string]any{"units": "degrees_east"})
}

func addVar(cw varWriter, name string, values any, dims []string, kv map[string]any) error {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	attrs, err := util.NewOrderedMap(keys, kv)
	if err != nil {
		return fmt.Errorf("attributes of %s: %w", name, err)
	}
	if err := cw.AddVar(name, api.Variable{Values: values, Dimensions: dims, Attributes: attrs}); err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	return nil
}

// writeRegion writes two adjoining polygons inside the grid plus a WGS84
// projection file.
func writeRegion(path string) error {
	enc, err := shp.NewEncoder(path, regionRecord{})
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	parts := []geom.Polygon{
		square(-57, -33.5, -52, -27),
		square(-54, -29, -48, -22.5),
	}
	for i, p := range parts {
		if err := enc.Encode(regionRecord{Polygon: p, ID: float64(i)}); err != nil {
			enc.Close()
			return fmt.Errorf("encode %s: %w", path, err)
		}
	}
	enc.Close()

	prj := path[:len(path)-len(filepath.Ext(path))] + ".prj"
	if err := os.WriteFile(prj, []byte(wgs84PRJ), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", prj, err)
	}
	return nil
}

func square(minX, minY, maxX, maxY float64) geom.Polygon {
	return geom.Polygon{{
		{X: minX, Y: minY}, {X: maxX, Y: minY}, {X: maxX, Y: maxY}, {X: minX, Y: maxY}, {X: minX, Y: minY},
	}}
}
