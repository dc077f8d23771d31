// Package telemetry serializes and UDP-sends the astrometry solution and
// parameter-block telemetry packets described in spec.md §4.7/§6.
package telemetry

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/banshee-data/starcam/internal/params"
	"github.com/banshee-data/starcam/internal/solve"
)

// AstrometryPacket mirrors spec.md §6's UDP astrometry telemetry packet:
// J2000 RA/Dec, observed RA/Dec, raw time, image RMS, field rotation,
// pixel scale, image rotation, altitude/azimuth, photo time and the
// number of blobs found in the solved frame.
type AstrometryPacket struct {
	J2000RA    float64
	J2000Dec   float64
	ObservedRA float64
	ObservedDec float64
	RawTimeUnixSec float64
	ImageRMSArcsec float64
	FieldRotationDeg float64
	PixelScaleArcsecPerPx float64
	ImageRotationDeg float64
	AltitudeDeg float64
	AzimuthDeg  float64
	PhotoTimeSec float64
	NumBlobs    int32
}

// wireAstrometryPacket is AstrometryPacket's fixed-width binary.Write
// shadow (NumBlobs as int32, everything else float64).
type wireAstrometryPacket struct {
	J2000RA               float64
	J2000Dec              float64
	ObservedRA            float64
	ObservedDec           float64
	RawTimeUnixSec        float64
	ImageRMSArcsec        float64
	FieldRotationDeg      float64
	PixelScaleArcsecPerPx float64
	ImageRotationDeg      float64
	AltitudeDeg           float64
	AzimuthDeg            float64
	PhotoTimeSec          float64
	NumBlobs              int32
}

// NewAstrometryPacket builds a telemetry packet from a solved Solution
// and the number of blobs the detector found in that frame.
func NewAstrometryPacket(sol solve.Solution, rawTimeUnixSec, photoTimeSec float64, numBlobs int) AstrometryPacket {
	return AstrometryPacket{
		J2000RA:               sol.RA,
		J2000Dec:              sol.Dec,
		ObservedRA:            sol.ObservedRA,
		ObservedDec:           sol.ObservedDec,
		RawTimeUnixSec:        rawTimeUnixSec,
		ImageRMSArcsec:        sol.PointingRMS,
		FieldRotationDeg:      sol.FieldRotation,
		PixelScaleArcsecPerPx: sol.PixelScale,
		ImageRotationDeg:      sol.ImageRotation,
		AltitudeDeg:           sol.Altitude,
		AzimuthDeg:            sol.Azimuth,
		PhotoTimeSec:          photoTimeSec,
		NumBlobs:              int32(numBlobs),
	}
}

// EncodeAstrometry serializes p to its fixed-size wire form.
func EncodeAstrometry(p AstrometryPacket) ([]byte, error) {
	w := wireAstrometryPacket(p)
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.BigEndian, w); err != nil {
		return nil, fmt.Errorf("telemetry: encode astrometry packet: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeAstrometry parses a fixed-size astrometry packet, for tests and
// the offline replay tool.
func DecodeAstrometry(data []byte) (AstrometryPacket, error) {
	var w wireAstrometryPacket
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, &w); err != nil {
		return AstrometryPacket{}, fmt.Errorf("telemetry: decode astrometry packet: %w", err)
	}
	return AstrometryPacket(w), nil
}

// ParameterPacket mirrors spec.md §6's UDP parameter telemetry packet: an
// echo of every tunable from the command packet plus hardware readbacks
// (min/max focus travel, current aperture).
type ParameterPacket struct {
	FocusPosition   int32
	MinFocusPos     int32
	MaxFocusPos     int32
	ApertureSteps   int32
	CurrentAperture int32
	MaxAperture     bool
	ExposureTimeMs  float64
	GainFactor      float64
	FocusInf        bool
	FocusMode       bool
	StartFocusPos   int32
	EndFocusPos     int32
	FocusStep       int32
	PhotosPerFocus  int32

	SpikeLimit            float64
	DynamicHP             bool
	SmoothingRadius       int32
	HighPass              bool
	HighPassRadius        int32
	CentroidBorder        int32
	SigmaCutoff           float64
	Spacing               int32
	MakeStaticHPThreshold int32
	UseStaticHP           bool

	LatitudeDeg     float64
	LongitudeDeg    float64
	HeightM         float64
	LogOdds         float64
	SolveTimeoutSec int32

	TriggerMode      bool
	TriggerTimeoutUs int32
}

// NewParameterPacket builds a ParameterPacket from the current parameter
// block snapshot.
func NewParameterPacket(s params.State) ParameterPacket {
	return ParameterPacket{
		FocusPosition:   int32(s.Camera.FocusPosition),
		MinFocusPos:     int32(s.Camera.MinFocusPos),
		MaxFocusPos:     int32(s.Camera.MaxFocusPos),
		ApertureSteps:   int32(s.Camera.ApertureSteps),
		CurrentAperture: int32(s.Camera.CurrentAperture),
		MaxAperture:     s.Camera.MaxAperture,
		ExposureTimeMs:  s.Camera.ExposureTimeMs,
		GainFactor:      s.Camera.GainFactor,
		FocusInf:        s.Camera.FocusInf,
		FocusMode:       s.Camera.FocusMode,
		StartFocusPos:   int32(s.Camera.StartFocusPos),
		EndFocusPos:     int32(s.Camera.EndFocusPos),
		FocusStep:       int32(s.Camera.FocusStep),
		PhotosPerFocus:  int32(s.Camera.PhotosPerFocus),

		SpikeLimit:            s.Blob.SpikeLimit,
		DynamicHP:             s.Blob.DynamicHP,
		SmoothingRadius:       int32(s.Blob.SmoothingRadius),
		HighPass:              s.Blob.HighPass,
		HighPassRadius:        int32(s.Blob.HighPassRadius),
		CentroidBorder:        int32(s.Blob.CentroidBorder),
		SigmaCutoff:           s.Blob.SigmaCutoff,
		Spacing:               int32(s.Blob.Spacing),
		MakeStaticHPThreshold: int32(s.Blob.MakeStaticHPThreshold),
		UseStaticHP:           s.Blob.UseStaticHP,

		LatitudeDeg:     s.Site.LatitudeDeg,
		LongitudeDeg:    s.Site.LongitudeDeg,
		HeightM:         s.Site.HeightM,
		LogOdds:         s.Site.LogOdds,
		SolveTimeoutSec: int32(s.Site.SolveTimeoutSec),

		TriggerMode:      s.Trigger.Mode,
		TriggerTimeoutUs: int32(s.Trigger.TimeoutUs),
	}
}

// EncodeParameter serializes p to its fixed-size wire form.
func EncodeParameter(p ParameterPacket) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.BigEndian, p); err != nil {
		return nil, fmt.Errorf("telemetry: encode parameter packet: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeParameter parses a fixed-size parameter packet, for tests and the
// offline replay tool.
func DecodeParameter(data []byte) (ParameterPacket, error) {
	var p ParameterPacket
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, &p); err != nil {
		return ParameterPacket{}, fmt.Errorf("telemetry: decode parameter packet: %w", err)
	}
	return p, nil
}
