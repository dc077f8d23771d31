package solve

import "math"

// WCS is a minimal tan-projection (gnomonic) world coordinate system
// centred on a reference pixel, following the CRPIX/CRVAL/CD convention.
type WCS struct {
	CRPIX1, CRPIX2 float64 // reference pixel (x, y)
	CRVAL1, CRVAL2 float64 // reference RA, Dec (degrees)
	CD1_1, CD1_2   float64 // pixel-to-intermediate-world-coordinate matrix
	CD2_1, CD2_2   float64
}

const degToRad = math.Pi / 180
const radToDeg = 180 / math.Pi

// PixelToEquatorial inverts the tan projection: given a pixel (x, y),
// returns the RA/Dec it corresponds to.
func (w WCS) PixelToEquatorial(x, y float64) (ra, dec float64) {
	xi := (w.CD1_1*(x-w.CRPIX1) + w.CD1_2*(y-w.CRPIX2)) * degToRad
	eta := (w.CD2_1*(x-w.CRPIX1) + w.CD2_2*(y-w.CRPIX2)) * degToRad
	if xi == 0 && eta == 0 {
		// The reference pixel maps to the reference coordinate exactly.
		return math.Mod(w.CRVAL1+360, 360), w.CRVAL2
	}

	ra0 := w.CRVAL1 * degToRad
	dec0 := w.CRVAL2 * degToRad

	denom := math.Cos(dec0) - eta*math.Sin(dec0)
	raRad := ra0 + math.Atan2(xi, denom)
	decRad := math.Atan2((math.Sin(dec0)+eta*math.Cos(dec0))*math.Cos(raRad-ra0), denom)

	ra = math.Mod(raRad*radToDeg+360, 360)
	dec = decRad * radToDeg
	return ra, dec
}

// EquatorialToPixel projects an RA/Dec through the forward tan projection
// back to pixel coordinates, for computing pointing-residual RMS.
func (w WCS) EquatorialToPixel(ra, dec float64) (x, y float64) {
	ra0 := w.CRVAL1 * degToRad
	dec0 := w.CRVAL2 * degToRad
	raRad := ra * degToRad
	decRad := dec * degToRad

	cosC := math.Sin(dec0)*math.Sin(decRad) + math.Cos(dec0)*math.Cos(decRad)*math.Cos(raRad-ra0)
	if cosC == 0 {
		return w.CRPIX1, w.CRPIX2
	}
	xi := math.Cos(decRad) * math.Sin(raRad-ra0) / cosC * radToDeg
	eta := (math.Cos(dec0)*math.Sin(decRad) - math.Sin(dec0)*math.Cos(decRad)*math.Cos(raRad-ra0)) / cosC * radToDeg

	det := w.CD1_1*w.CD2_2 - w.CD1_2*w.CD2_1
	if det == 0 {
		return w.CRPIX1, w.CRPIX2
	}
	dx := (w.CD2_2*xi - w.CD1_2*eta) / det
	dy := (w.CD1_1*eta - w.CD2_1*xi) / det
	return w.CRPIX1 + dx, w.CRPIX2 + dy
}

// PixelScale returns the average pixel scale in arcsec/pixel implied by
// the CD matrix.
func (w WCS) PixelScale() float64 {
	scaleX := math.Hypot(w.CD1_1, w.CD2_1)
	scaleY := math.Hypot(w.CD1_2, w.CD2_2)
	return (scaleX + scaleY) / 2 * 3600
}

// FieldRotation returns the rotation of the image x-axis relative to
// celestial north, in degrees, derived from the CD matrix.
func (w WCS) FieldRotation() float64 {
	return math.Atan2(w.CD2_1, w.CD1_1) * radToDeg
}
