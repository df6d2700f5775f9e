package proj4_converter

import (
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	proj4 "github.com/xeonx/proj4"

	"github.com/ecopia-map/mesh_tiler/internal/converters"
)

const (
	wgs84Geographic = "+proj=longlat +datum=WGS84 +no_defs"
	wgs84Geocentric = "+proj=geocent +datum=WGS84 +units=m +no_defs"
)

type proj4CoordinateConverter struct {
	source     string
	projection map[string]*proj4.Proj
	mu         sync.Mutex
}

// Converter for coordinates expressed in the CRS described by the proj4 definition source
func NewProj4CoordinateConverter(source string) converters.CoordinateConverter {
	return &proj4CoordinateConverter{
		source:     source,
		projection: make(map[string]*proj4.Proj),
	}
}

func (c *proj4CoordinateConverter) ToWGS84Geographic(coord r3.Vector) (r3.Vector, error) {
	out, err := c.transform(c.source, wgs84Geographic, coord)
	if err != nil {
		return r3.Vector{}, errors.Wrap(err, "convert to wgs84 geographic")
	}
	return out, nil
}

func (c *proj4CoordinateConverter) GeographicToCartesian(coord r3.Vector) (r3.Vector, error) {
	out, err := c.transform(wgs84Geographic, wgs84Geocentric, coord)
	if err != nil {
		return r3.Vector{}, errors.Wrap(err, "convert to wgs84 cartesian")
	}
	return out, nil
}

// Releases all the loaded projection objects
func (c *proj4CoordinateConverter) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, proj := range c.projection {
		proj.Close()
		delete(c.projection, key)
	}
}

// Geographic coordinates are exchanged in degrees, proj4 works in radians
func (c *proj4CoordinateConverter) transform(source, target string, coord r3.Vector) (r3.Vector, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	src, err := c.getProjection(source)
	if err != nil {
		return r3.Vector{}, err
	}
	dst, err := c.getProjection(target)
	if err != nil {
		return r3.Vector{}, err
	}

	x, y, z := []float64{coord.X}, []float64{coord.Y}, []float64{coord.Z}
	if isGeographic(source) {
		x[0], y[0] = mgl64.DegToRad(x[0]), mgl64.DegToRad(y[0])
	}
	if err := proj4.TransformRaw(src, dst, x, y, z); err != nil {
		return r3.Vector{}, err
	}
	if isGeographic(target) {
		x[0], y[0] = mgl64.RadToDeg(x[0]), mgl64.RadToDeg(y[0])
	}
	return r3.Vector{X: x[0], Y: y[0], Z: z[0]}, nil
}

// Returns the projection for the given definition, initializing and caching it if needed
func (c *proj4CoordinateConverter) getProjection(definition string) (*proj4.Proj, error) {
	if proj, ok := c.projection[definition]; ok {
		return proj, nil
	}
	proj, err := proj4.InitPlus(definition)
	if err != nil {
		return nil, errors.Wrapf(err, "init projection %q", definition)
	}
	c.projection[definition] = proj
	return proj, nil
}

func isGeographic(definition string) bool {
	return strings.Contains(definition, "+proj=longlat") || strings.Contains(definition, "+proj=latlong")
}
