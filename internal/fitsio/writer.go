package fitsio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Write produces a RICE_1-row-tiled FITS file at path from img and meta,
// following spec.md §4.8: the 16-bit unsigned samples are first written
// to a temporary uncompressed file, then a compressed output file is
// built from the same in-memory image and metadata, a checksum is
// recorded, and the temp file is removed.
func Write(path string, img Image, meta Metadata) error {
	if len(img.Pixels) != img.Width*img.Height {
		return fmt.Errorf("fitsio: image has %d pixels, want %d for %dx%d", len(img.Pixels), img.Width*img.Height, img.Width, img.Height)
	}

	tmp, err := os.CreateTemp("", "starcam-fits-*.tmp")
	if err != nil {
		return fmt.Errorf("fitsio: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := writeUncompressed(tmp, img, meta); err != nil {
		tmp.Close()
		return fmt.Errorf("fitsio: write uncompressed temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("fitsio: close temp file: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fitsio: create %s: %w", path, err)
	}
	defer out.Close()

	if err := writeCompressed(out, img, meta); err != nil {
		return fmt.Errorf("fitsio: write compressed output: %w", err)
	}
	return nil
}

// writeUncompressed writes the raw 16-bit unsigned samples (as signed
// int16 via BSCALE=1/BZERO=32768) with no tile compression.
func writeUncompressed(w io.Writer, img Image, meta Metadata) error {
	cards := buildPrimaryCards(img.Width, img.Height, meta)
	if err := writeHeaderBlock(w, cards); err != nil {
		return err
	}

	buf := make([]byte, 0, len(img.Pixels)*2)
	for _, p := range img.Pixels {
		stored := int16(int32(p) - 32768)
		buf = binary.BigEndian.AppendUint16(buf, uint16(stored))
	}
	pad := (blockLen - len(buf)%blockLen) % blockLen
	if pad > 0 {
		buf = append(buf, make([]byte, pad)...)
	}
	_, err := w.Write(buf)
	return err
}

// writeCompressed writes the primary header followed by one Rice-coded
// tile per image row (1-byte k, 4-byte big-endian length, tile bytes),
// then an 8-hex-digit checksum card's worth of trailer and block
// padding.
func writeCompressed(w io.Writer, img Image, meta Metadata) error {
	cards := buildPrimaryCards(img.Width, img.Height, meta)
	cards = append(cards, strCard("ZCMPTYPE", meta.FZAlgor, "row-tiled Rice compression"))
	if err := writeHeaderBlock(w, cards); err != nil {
		return err
	}

	var payload []byte
	for y := 0; y < img.Height; y++ {
		k, tile := encodeRiceRow(img.Row(y))
		header := make([]byte, 5)
		header[0] = byte(k)
		binary.BigEndian.PutUint32(header[1:], uint32(len(tile)))
		payload = append(payload, header...)
		payload = append(payload, tile...)
	}

	sum := checksum32(payload)

	pad := (blockLen - len(payload)%blockLen) % blockLen
	if pad > 0 {
		payload = append(payload, make([]byte, pad)...)
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}

	trailer := []string{strCard("CHECKSUM", checksumHex(sum), "row-tile payload checksum")}
	return writeHeaderBlock(w, trailer)
}
