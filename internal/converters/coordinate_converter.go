package converters

import "github.com/golang/geo/r3"

type CoordinateConverter interface {
	// Converts a coordinate of the source CRS to WGS84 longitude, latitude (degrees) and height
	ToWGS84Geographic(coord r3.Vector) (r3.Vector, error)
	// Converts WGS84 longitude, latitude (degrees) and height to earth centered cartesian coordinates
	GeographicToCartesian(coord r3.Vector) (r3.Vector, error)
	Cleanup()
}

type ElevationCorrector interface {
	CorrectElevation(lon, lat, z float64) float64
}
