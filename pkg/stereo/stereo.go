// Package stereo implements the forward polar stereographic map projection
// (EPSG method 9829, "variant B") used to place geodetic station positions
// on a projected plane in meters. The default projection matches Antarctic
// Polar Stereographic (EPSG:3031): WGS84 ellipsoid, standard parallel 71°S,
// central meridian 0°.
package stereo

import "math"

// WGS84 ellipsoid parameters
const (
	semiMajorAxis = 6378137.0
	eccentricity  = 0.0818191908426215
)

// Projection holds the parameters of a south polar stereographic projection.
// StdParallel and CentralMeridian are in degrees; the standard parallel is
// expressed as a southern latitude (negative).
type Projection struct {
	StdParallel     float64
	CentralMeridian float64
	FalseEasting    float64
	FalseNorthing   float64

	// derived at construction
	mF float64
	tF float64
}

// South3031 returns the Antarctic Polar Stereographic projection (EPSG:3031).
func South3031() *Projection {
	return NewProjection(-71.0, 0.0, 0.0, 0.0)
}

// NewProjection builds a south polar stereographic projection with the given
// standard parallel, central meridian, and false origin, precomputing the
// scale terms at the standard parallel.
func NewProjection(stdParallel, centralMeridian, falseEasting, falseNorthing float64) *Projection {
	p := &Projection{
		StdParallel:     stdParallel,
		CentralMeridian: centralMeridian,
		FalseEasting:    falseEasting,
		FalseNorthing:   falseNorthing,
	}
	phiF := degToRad(stdParallel)
	sinF := math.Sin(phiF)
	p.mF = math.Cos(phiF) / math.Sqrt(1.0-eccentricity*eccentricity*sinF*sinF)
	p.tF = isometricT(phiF)
	return p
}

// Forward converts geodetic longitude and latitude (degrees, EPSG:4326 axis
// order lon/lat) to projected easting and northing in meters.
func (p *Projection) Forward(lon, lat float64) (x, y float64) {
	phi := degToRad(lat)
	lambda := degToRad(lon - p.CentralMeridian)

	t := isometricT(phi)
	rho := semiMajorAxis * p.mF * t / p.tF

	x = p.FalseEasting + rho*math.Sin(lambda)
	y = p.FalseNorthing + rho*math.Cos(lambda)
	return x, y
}

// isometricT computes the south-aspect isometric latitude function
// t = tan(π/4 + φ/2) / ((1 + e·sinφ)/(1 − e·sinφ))^(e/2), which shrinks to
// zero at the south pole.
func isometricT(phi float64) float64 {
	sinPhi := math.Sin(phi)
	esin := eccentricity * sinPhi
	return math.Tan(math.Pi/4.0+phi/2.0) /
		math.Pow((1.0+esin)/(1.0-esin), eccentricity/2.0)
}

func degToRad(deg float64) float64 {
	return deg * (math.Pi / 180.0)
}
