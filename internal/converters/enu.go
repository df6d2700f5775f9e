package converters

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Transform from the local east north up frame at the given geographic position to earth centered
// coordinates. origin is the earth centered position of the frame origin.
func EnuToEcef(lonDeg, latDeg float64, origin r3.Vector) mgl64.Mat4 {
	lon, lat := lonDeg*math.Pi/180, latDeg*math.Pi/180
	sinLon, cosLon := math.Sincos(lon)
	sinLat, cosLat := math.Sincos(lat)

	east := mgl64.Vec4{-sinLon, cosLon, 0, 0}
	north := mgl64.Vec4{-sinLat * cosLon, -sinLat * sinLon, cosLat, 0}
	up := mgl64.Vec4{cosLat * cosLon, cosLat * sinLon, sinLat, 0}
	return mgl64.Mat4FromCols(east, north, up, mgl64.Vec4{origin.X, origin.Y, origin.Z, 1})
}

// Root transform placing a mesh whose local origin sits at origin (source CRS) on the globe
func GeoreferenceTransform(converter CoordinateConverter, corrector ElevationCorrector, origin r3.Vector) (mgl64.Mat4, error) {
	geographic, err := converter.ToWGS84Geographic(origin)
	if err != nil {
		return mgl64.Mat4{}, errors.Wrap(err, "georeference origin")
	}
	if corrector != nil {
		geographic.Z = corrector.CorrectElevation(geographic.X, geographic.Y, geographic.Z)
	}
	cartesian, err := converter.GeographicToCartesian(geographic)
	if err != nil {
		return mgl64.Mat4{}, errors.Wrap(err, "georeference origin")
	}
	return EnuToEcef(geographic.X, geographic.Y, cartesian), nil
}
