// Package mask builds and applies the per-pixel hot-pixel mask that the
// boxcar filter and blob detector read: 1 means "include this pixel", 0
// means "exclude it".
package mask

// Mask is a per-pixel inclusion byte, 0 (excluded) or 1 (included), the
// same length as the frame it covers.
type Mask struct {
	Width  int
	Height int
	Pix    []byte
}

// New allocates a mask, defaulting every pixel to excluded.
func New(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Pix: make([]byte, width*height)}
}

// At returns 1 if pixel (i,j) is included, 0 otherwise.
func (m *Mask) At(i, j int) byte { return m.Pix[j*m.Width+i] }

// Set marks pixel (i,j) included (1) or excluded (0).
func (m *Mask) Set(i, j int, v byte) { m.Pix[j*m.Width+i] = v }

// Region bounds the active image area over which the mask is computed: the
// pipeline excludes a configured margin from the sensor's full frame.
type Region struct {
	I0, I1 int // columns [I0, I1)
	J0, J1 int // rows [J0, J1)
}

// Builder constructs the merged static+dynamic hot-pixel mask for one
// cycle. It owns the static-HP file path; dynamic detection reads the raw
// (unfiltered) image directly.
type Builder struct {
	StaticFilePath string
	SpikeLimit     float64
	DynamicHP      bool
}

// Build fills dst from the raw image over region, applying the dynamic-HP
// test (if enabled) and the one-pixel border-clearing rule. It does not
// apply the static mask; call ApplyStatic afterward once the static file is
// loaded, since the static list is usually cached across cycles.
func (b *Builder) Build(dst *Mask, raw []uint16, region Region) {
	w := dst.Width
	for j := region.J0; j < region.J1; j++ {
		border := j == region.J0 || j == region.J1-1
		for i := region.I0; i < region.I1; i++ {
			if border || i == region.I0 || i == region.I1-1 {
				dst.Pix[j*w+i] = 0
				continue
			}
			if !b.DynamicHP {
				dst.Pix[j*w+i] = 1
				continue
			}
			dst.Pix[j*w+i] = dynamicInclude(raw, w, i, j, b.SpikeLimit)
		}
	}
}

// dynamicInclude implements the dynamic hot-pixel test: the pixel is
// included iff 100*value/(spikeLimit*100) is strictly less than both the
// 4-neighbour cross sum+4 and the 4-neighbour diagonal sum+4.
func dynamicInclude(raw []uint16, w, i, j int, spikeLimit float64) byte {
	v := float64(raw[j*w+i])
	cross := float64(raw[j*w+i-1]) + float64(raw[j*w+i+1]) + float64(raw[(j-1)*w+i]) + float64(raw[(j+1)*w+i])
	diag := float64(raw[(j-1)*w+i-1]) + float64(raw[(j-1)*w+i+1]) + float64(raw[(j+1)*w+i-1]) + float64(raw[(j+1)*w+i+1])

	scaled := 100 * v / (spikeLimit * 100)
	if scaled < cross+4 && scaled < diag+4 {
		return 1
	}
	return 0
}
