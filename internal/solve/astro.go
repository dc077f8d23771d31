package solve

import "math"

// ObservedPlace is the topocentric observed position of a target: azimuth
// and zenith distance (from which altitude follows), the hour angle used
// to get there, and the apparent RA/Dec at the time of observation.
type ObservedPlace struct {
	Azimuth    float64 // degrees, measured from north through east
	Zenith     float64 // degrees
	HourAngle  float64 // degrees
	ApparentRA float64 // degrees
	ApparentDec float64 // degrees
}

// Ephemeris supplies the time and coordinate transforms the driver needs:
// UTC broken-down time to Julian date, and ICRS-to-observed-place
// conversion at a site. A real binding would call into a SOFA-equivalent
// library; DefaultEphemeris below implements the un-refracted case
// (zero pressure/temperature/humidity, matching the "nominal atmospheric
// parameters" the spec calls for when pointing accuracy, not refraction,
// is the concern).
type Ephemeris interface {
	DtfToJD(year, month, day, hour, min int, sec float64) (jd1, jd2 float64, err error)
	ObservedPlace(jd1, jd2, ra, dec, lat, lon, height, dut1 float64) (ObservedPlace, error)
}

// DefaultEphemeris is the module's own SOFA-equivalent: Julian date from
// a UTC calendar date/time, and ICRS-to-topocentric-horizontal conversion
// via Greenwich Mean Sidereal Time and a spherical-trigonometry hour
// angle transform, ignoring refraction, aberration and parallax terms
// that do not matter at star-camera pointing precision.
type DefaultEphemeris struct{}

// DtfToJD constructs a two-part Julian date (day number, day fraction)
// from a UTC calendar date and time, in the style of SOFA's iauDtf2d.
func (DefaultEphemeris) DtfToJD(year, month, day, hour, min int, sec float64) (jd1, jd2 float64, err error) {
	a := (14 - month) / 12
	y := year + 4800 - a
	m := month + 12*a - 3
	jdn := float64(day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045)
	dayFrac := (float64(hour)-12)/24 + float64(min)/1440 + sec/86400
	return jdn, dayFrac, nil
}

// ObservedPlace converts an ICRS RA/Dec to topocentric azimuth/zenith at
// the given site and time, via Greenwich Mean Sidereal Time and the
// standard hour-angle/altitude spherical triangle. dut1 (UT1-UTC) is
// accepted for interface parity with a SOFA binding but not applied: at
// star-camera precision the sub-second correction it represents is
// negligible next to the pointing residual itself.
func (DefaultEphemeris) ObservedPlace(jd1, jd2, ra, dec, lat, lon, height, dut1 float64) (ObservedPlace, error) {
	jd := jd1 + jd2
	gmstDeg := greenwichMeanSiderealTime(jd)
	lst := math.Mod(gmstDeg+lon, 360)

	ha := math.Mod(lst-ra+360, 360)
	if ha > 180 {
		ha -= 360
	}

	haRad := ha * degToRad
	decRad := dec * degToRad
	latRad := lat * degToRad

	sinAlt := math.Sin(decRad)*math.Sin(latRad) + math.Cos(decRad)*math.Cos(latRad)*math.Cos(haRad)
	altRad := math.Asin(clamp(sinAlt, -1, 1))

	cosAz := (math.Sin(decRad) - math.Sin(altRad)*math.Sin(latRad)) / (math.Cos(altRad) * math.Cos(latRad))
	azRad := math.Acos(clamp(cosAz, -1, 1))
	azDeg := azRad * radToDeg
	if math.Sin(haRad) > 0 {
		azDeg = 360 - azDeg
	}

	return ObservedPlace{
		Azimuth:     azDeg,
		Zenith:      90 - altRad*radToDeg,
		HourAngle:   ha,
		ApparentRA:  ra,
		ApparentDec: dec,
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// greenwichMeanSiderealTime returns GMST in degrees for the given Julian
// date, via the standard IAU 1982 polynomial in centuries since J2000.
func greenwichMeanSiderealTime(jd float64) float64 {
	t := (jd - 2451545.0) / 36525
	gmst := 280.46061837 + 360.98564736629*(jd-2451545.0) +
		0.000387933*t*t - t*t*t/38710000
	return math.Mod(math.Mod(gmst, 360)+360, 360)
}

// ParallacticAngle returns the parallactic angle (degrees) at a given
// hour angle, declination and site latitude: the angle between the
// direction to the celestial pole and the direction to the local zenith,
// as seen from the target.
func ParallacticAngle(hourAngleDeg, decDeg, latDeg float64) float64 {
	ha := hourAngleDeg * degToRad
	dec := decDeg * degToRad
	lat := latDeg * degToRad

	y := math.Sin(ha)
	x := math.Cos(dec)*math.Tan(lat) - math.Sin(dec)*math.Cos(ha)
	return math.Atan2(y, x) * radToDeg
}
