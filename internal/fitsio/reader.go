package fitsio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Read parses a file written by Write, verifying the row-tile payload
// checksum and reconstructing the 16-bit unsigned image exactly, per
// spec.md §8's FITS round-trip requirement.
func Read(path string) (Image, Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Image{}, Metadata{}, fmt.Errorf("fitsio: open %s: %w", path, err)
	}
	defer f.Close()

	cards, err := parseHeaderBlock(f)
	if err != nil {
		return Image{}, Metadata{}, fmt.Errorf("fitsio: parse header: %w", err)
	}

	width := cardInt(cards, "NAXIS1")
	height := cardInt(cards, "NAXIS2")
	if width <= 0 || height <= 0 {
		return Image{}, Metadata{}, fmt.Errorf("fitsio: invalid dimensions %dx%d", width, height)
	}
	meta := metadataFromCards(cards)

	var payload []byte
	img := Image{Width: width, Height: height, Pixels: make([]uint16, 0, width*height)}

	for y := 0; y < height; y++ {
		rowHeader := make([]byte, 5)
		if _, err := io.ReadFull(f, rowHeader); err != nil {
			return Image{}, Metadata{}, fmt.Errorf("fitsio: read row %d header: %w", y, err)
		}
		k := uint(rowHeader[0])
		n := binary.BigEndian.Uint32(rowHeader[1:])

		tile := make([]byte, n)
		if _, err := io.ReadFull(f, tile); err != nil {
			return Image{}, Metadata{}, fmt.Errorf("fitsio: read row %d tile: %w", y, err)
		}

		payload = append(payload, rowHeader...)
		payload = append(payload, tile...)

		row, err := decodeRiceRow(k, tile, width)
		if err != nil {
			return Image{}, Metadata{}, fmt.Errorf("fitsio: decode row %d: %w", y, err)
		}
		img.Pixels = append(img.Pixels, row...)
	}

	pad := (blockLen - len(payload)%blockLen) % blockLen
	if pad > 0 {
		if _, err := io.CopyN(io.Discard, f, int64(pad)); err != nil {
			return Image{}, Metadata{}, fmt.Errorf("fitsio: skip payload padding: %w", err)
		}
	}

	trailer, err := parseHeaderBlock(f)
	if err != nil {
		return Image{}, Metadata{}, fmt.Errorf("fitsio: parse trailer: %w", err)
	}
	want := checksumHex(checksum32(payload))
	got := cardString(trailer, "CHECKSUM")
	if got != want {
		return Image{}, Metadata{}, fmt.Errorf("fitsio: checksum mismatch: file has %s, computed %s", got, want)
	}

	return img, meta, nil
}

// cardValue returns the raw value field text of the named card, or ""
// if the card is absent.
func cardValue(cards []string, keyword string) string {
	prefix := fmt.Sprintf("%-8s=", keyword)
	for _, c := range cards {
		if strings.HasPrefix(c, prefix) {
			rest := strings.TrimSpace(c[len(prefix):])
			if i := strings.Index(rest, " / "); i >= 0 {
				rest = strings.TrimSpace(rest[:i])
			}
			return rest
		}
	}
	return ""
}

func cardInt(cards []string, keyword string) int {
	v, _ := strconv.Atoi(cardValue(cards, keyword))
	return v
}

func cardFloat(cards []string, keyword string) float64 {
	v, _ := strconv.ParseFloat(cardValue(cards, keyword), 64)
	return v
}

func cardBool(cards []string, keyword string) bool {
	return cardValue(cards, keyword) == "T"
}

func cardString(cards []string, keyword string) string {
	return strings.Trim(cardValue(cards, keyword), "'")
}

func metadataFromCards(cards []string) Metadata {
	return Metadata{
		Origin:   strings.TrimSpace(cardString(cards, "ORIGIN")),
		Instrume: strings.TrimSpace(cardString(cards, "INSTRUME")),
		Telescop: strings.TrimSpace(cardString(cards, "TELESCOP")),
		Observat: strings.TrimSpace(cardString(cards, "OBSERVAT")),
		Observer: strings.TrimSpace(cardString(cards, "OBSERVER")),
		Filename: strings.TrimSpace(cardString(cards, "FILENAME")),
		Date:     strings.TrimSpace(cardString(cards, "DATE")),
		UTCSec:   int64(cardInt(cards, "UTC-SEC")),
		UTCUsec:  int64(cardInt(cards, "UTC-USEC")),
		Filter:   strings.TrimSpace(cardString(cards, "FILTER")),
		CCDTemp:  cardFloat(cards, "CCDTEMP"),
		Focus:    cardInt(cards, "FOCUS"),
		Aperture: cardInt(cards, "APERTURE"),
		ExpTime:  cardFloat(cards, "EXPTIME"),
		Bunit:    strings.TrimSpace(cardString(cards, "BUNIT")),
		FZAlgor:  strings.TrimSpace(cardString(cards, "FZALGOR")),
		FZTile:   strings.TrimSpace(cardString(cards, "FZTILE")),
		Detector: strings.TrimSpace(cardString(cards, "DETECTOR")),
		SensorID: strings.TrimSpace(cardString(cards, "SENSORID")),
		BitDepth: cardInt(cards, "BITDEPTH"),

		PixScale1: cardFloat(cards, "PIXSCAL1"),
		PixScale2: cardFloat(cards, "PIXSCAL2"),
		PixSize1:  cardFloat(cards, "PIXSIZE1"),
		PixSize2:  cardFloat(cards, "PIXSIZE2"),

		DarkCur:  cardFloat(cards, "DARKCUR"),
		RdNoise1: cardFloat(cards, "RDNOISE1"),
		CCDBin1:  cardInt(cards, "CCDBIN1"),
		CCDBin2:  cardInt(cards, "CCDBIN2"),
		PixelClk: cardFloat(cards, "PIXELCLK"),
		Framerte: cardFloat(cards, "FRAMERTE"),
		GainFact: cardFloat(cards, "GAINFACT"),
		TrigDlay: cardFloat(cards, "TRIGDLAY"),
		BlOffset: cardInt(cards, "BLOFFSET"),

		AutoGain: cardBool(cards, "AUTOGAIN"),
		AutoExp:  cardBool(cards, "AUTOEXP"),
		AutoBlk:  cardBool(cards, "AUTOBLK"),
	}
}
