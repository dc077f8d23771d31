package fitsio

import (
	"fmt"
	"io"
	"strings"
)

const (
	cardLen  = 80
	blockLen = 2880
)

// Metadata holds every header field spec.md §6 lists for the FITS
// writer: capture time, sensor/lens readbacks, and the compression
// algorithm/tile strings.
type Metadata struct {
	Origin   string
	Instrume string
	Telescop string
	Observat string
	Observer string
	Filename string
	Date     string // ISO-8601 write time
	UTCSec   int64  // capture time, UTC seconds since Unix epoch
	UTCUsec  int64  // capture time, microsecond remainder
	Filter   string

	CCDTemp  float64
	Focus    int
	Aperture int
	ExpTime  float64 // milliseconds

	Bunit  string
	FZAlgor string
	FZTile  string

	Detector string
	SensorID string
	BitDepth int

	PixScale1 float64
	PixScale2 float64
	PixSize1  float64
	PixSize2  float64

	DarkCur  float64
	RdNoise1 float64
	CCDBin1  int
	CCDBin2  int
	PixelClk float64
	Framerte float64
	GainFact float64
	TrigDlay float64
	BlOffset int

	AutoGain bool
	AutoExp  bool
	AutoBlk  bool
}

// card formats a single FITS header card. Strings are single-quoted and
// left-justified per the standard's fixed 8-char keyword field.
func card(keyword, value, comment string) string {
	line := fmt.Sprintf("%-8s= %20s", keyword, value)
	if comment != "" {
		line += " / " + comment
	}
	if len(line) > cardLen {
		line = line[:cardLen]
	}
	return fmt.Sprintf("%-80s", line)
}

func strCard(keyword, value, comment string) string {
	return card(keyword, fmt.Sprintf("'%-8s'", value), comment)
}

func intCard(keyword string, value int64, comment string) string {
	return card(keyword, fmt.Sprintf("%d", value), comment)
}

func floatCard(keyword string, value float64, comment string) string {
	return card(keyword, fmt.Sprintf("%g", value), comment)
}

func boolCard(keyword string, value bool, comment string) string {
	b := "F"
	if value {
		b = "T"
	}
	return card(keyword, b, comment)
}

// buildPrimaryCards returns the primary HDU's header cards for an image
// of the given dimensions, BITPIX=16 with BSCALE=1.0/BZERO=32768 per
// spec.md §6, followed by every metadata key it names.
func buildPrimaryCards(width, height int, m Metadata) []string {
	cards := []string{
		card("SIMPLE", "T", "conforms to FITS standard"),
		intCard("BITPIX", 16, "16-bit unsigned, via BSCALE/BZERO"),
		intCard("NAXIS", 2, "2-dimensional image"),
		intCard("NAXIS1", int64(width), "pixels per row"),
		intCard("NAXIS2", int64(height), "rows"),
		floatCard("BSCALE", 1.0, ""),
		floatCard("BZERO", 32768, "unsigned 16-bit offset"),
	}

	add := func(c string) { cards = append(cards, c) }

	add(strCard("ORIGIN", m.Origin, ""))
	add(strCard("INSTRUME", m.Instrume, ""))
	add(strCard("TELESCOP", m.Telescop, ""))
	add(strCard("OBSERVAT", m.Observat, ""))
	add(strCard("OBSERVER", m.Observer, ""))
	add(strCard("FILENAME", m.Filename, ""))
	add(strCard("DATE", m.Date, "file write time"))
	add(intCard("UTC-SEC", m.UTCSec, "capture time, UTC seconds"))
	add(intCard("UTC-USEC", m.UTCUsec, "capture time, microseconds"))
	add(strCard("FILTER", m.Filter, ""))
	add(floatCard("CCDTEMP", m.CCDTemp, "deg C"))
	add(intCard("FOCUS", int64(m.Focus), "lens focus position"))
	add(intCard("APERTURE", int64(m.Aperture), "lens aperture step"))
	add(floatCard("EXPTIME", m.ExpTime, "ms"))
	add(strCard("BUNIT", m.Bunit, ""))
	add(strCard("FZALGOR", m.FZAlgor, "tile compression algorithm"))
	add(strCard("FZTILE", m.FZTile, "tile shape"))
	add(strCard("DETECTOR", m.Detector, ""))
	add(strCard("SENSORID", m.SensorID, ""))
	add(intCard("BITDEPTH", int64(m.BitDepth), "sensor native bit depth"))
	add(floatCard("PIXSCAL1", m.PixScale1, "arcsec/pixel"))
	add(floatCard("PIXSCAL2", m.PixScale2, "arcsec/pixel"))
	add(floatCard("PIXSIZE1", m.PixSize1, "microns"))
	add(floatCard("PIXSIZE2", m.PixSize2, "microns"))
	add(floatCard("DARKCUR", m.DarkCur, ""))
	add(floatCard("RDNOISE1", m.RdNoise1, ""))
	add(intCard("CCDBIN1", int64(m.CCDBin1), ""))
	add(intCard("CCDBIN2", int64(m.CCDBin2), ""))
	add(floatCard("PIXELCLK", m.PixelClk, ""))
	add(floatCard("FRAMERTE", m.Framerte, "achieved framerate"))
	add(floatCard("GAINFACT", m.GainFact, ""))
	add(floatCard("TRIGDLAY", m.TrigDlay, "us"))
	add(intCard("BLOFFSET", int64(m.BlOffset), "black level offset"))
	add(boolCard("AUTOGAIN", m.AutoGain, ""))
	add(boolCard("AUTOEXP", m.AutoExp, ""))
	add(boolCard("AUTOBLK", m.AutoBlk, ""))

	return cards
}

// writeHeaderBlock writes cards to w, terminated by an END card and
// padded with blank cards to a multiple of one 2880-byte FITS block.
func writeHeaderBlock(w io.Writer, cards []string) error {
	cards = append(cards, fmt.Sprintf("%-80s", "END"))
	total := len(cards) * cardLen
	pad := (blockLen - total%blockLen) % blockLen

	var sb strings.Builder
	for _, c := range cards {
		sb.WriteString(c)
	}
	sb.WriteString(strings.Repeat(" ", pad))

	_, err := io.WriteString(w, sb.String())
	return err
}

// parseHeaderBlock reads FITS header cards from r until an END card,
// consuming the remainder of the final 2880-byte block, and returns the
// card strings (stripped of END/blank padding cards).
func parseHeaderBlock(r io.Reader) ([]string, error) {
	var cards []string
	buf := make([]byte, cardLen)
	read := 0

	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("fitsio: read header card: %w", err)
		}
		read += cardLen
		line := string(buf)
		if strings.HasPrefix(line, "END") {
			break
		}
		cards = append(cards, line)
	}

	pad := (blockLen - read%blockLen) % blockLen
	if pad > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(pad)); err != nil {
			return nil, fmt.Errorf("fitsio: skip header padding: %w", err)
		}
	}
	return cards, nil
}
