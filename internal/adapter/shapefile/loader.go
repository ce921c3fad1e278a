package shapefile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"

	"github.com/couchcryptid/climate-data-etl/internal/domain"
)

// Loader reads an ESRI shapefile boundary into a domain.Region.
// It implements pipeline.RegionLoader.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a shapefile region loader.
func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logger}
}

// Load decodes every polygonal feature of the shapefile at path and merges
// them into one region. The .prj sidecar, when present and parseable, sets
// the region's spatial reference.
func (l *Loader) Load(ctx context.Context, path string) (domain.Region, error) {
	if err := ctx.Err(); err != nil {
		return domain.Region{}, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Region{}, &domain.InputNotFoundError{Path: path}
		}
		return domain.Region{}, &domain.FormatError{Path: path, Err: err}
	}

	dec, err := shp.NewDecoder(path)
	if err != nil {
		return domain.Region{}, &domain.FormatError{Path: path, Err: fmt.Errorf("open: %w", err)}
	}
	defer dec.Close()

	var parts geom.MultiPolygon
	features, skipped := 0, 0
	for {
		g, _, more := dec.DecodeRowFields()
		if !more {
			break
		}
		features++
		poly, ok := g.(geom.Polygonal)
		if !ok {
			skipped++
			continue
		}
		parts = append(parts, poly.Polygons()...)
	}
	if err := dec.Error(); err != nil {
		return domain.Region{}, &domain.FormatError{Path: path, Err: fmt.Errorf("decode: %w", err)}
	}
	if len(parts) == 0 {
		return domain.Region{}, &domain.FormatError{Path: path, Err: fmt.Errorf("no polygon features among %d records", features)}
	}
	if skipped > 0 {
		l.logger.Warn("non-polygon features ignored", "path", path, "skipped", skipped)
	}

	region := domain.Region{
		Name:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Geometry: parts,
	}

	sr, crs, err := readProjection(dec, path)
	if err != nil {
		l.logger.Warn("region has no usable projection, clipping will fall back to bounding box",
			"path", path, "error", err)
	} else {
		region.SR = sr
		region.CRS = crs
	}

	b := region.Bounds()
	l.logger.Debug("region loaded",
		"path", path,
		"features", features,
		"parts", len(parts),
		"min_x", b.Min.X, "min_y", b.Min.Y, "max_x", b.Max.X, "max_y", b.Max.Y,
		"has_crs", region.HasCRS(),
	)
	return region, nil
}

func readProjection(dec *shp.Decoder, path string) (*proj.SR, string, error) {
	sr, err := dec.SR()
	if err != nil {
		return nil, "", err
	}
	if sr == nil {
		return nil, "", errors.New("missing .prj")
	}
	raw, err := os.ReadFile(strings.TrimSuffix(path, filepath.Ext(path)) + ".prj")
	if err != nil {
		return sr, "", nil //nolint:nilerr // the decoder already parsed the projection
	}
	return sr, strings.TrimSpace(string(raw)), nil
}
