// Package commandproto decodes fixed-size UDP command packets from
// flight-computer peers and applies their effect to a parameter block.
package commandproto

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// CommandPacket is the decoded form of the wire structure described in
// spec.md §4.6: an inCharge gate byte, per-field (update flag, value)
// pairs, and a 9-element blob parameter array with its own per-entry
// update flags.
type CommandPacket struct {
	InCharge bool

	UpdateLogOdds bool
	LogOdds       float64

	UpdateLatitude  bool
	Latitude        float64
	UpdateLongitude bool
	Longitude       float64
	UpdateHeight    bool
	Height          float64

	UpdateExposure bool
	ExposureMs     float64
	UpdateGain     bool
	GainFactor     float64

	UpdateSolveTimeLimit bool
	SolveTimeLimitSec    int

	UpdateFocusPosition bool
	FocusPosition       int
	UpdateFocusMode     bool
	FocusMode           bool
	UpdateFocusStart    bool
	FocusStart          int
	UpdateFocusEnd      bool
	FocusEnd            int
	UpdateFocusStep     bool
	FocusStep           int
	UpdatePhotosPerStep bool
	PhotosPerStep       int
	UpdateSetFocusInf   bool
	SetFocusInf         bool

	UpdateApertureSteps bool
	ApertureSteps       int
	UpdateMaxAperture   bool
	MaxAperture         bool

	UpdateMakeStaticHP bool
	MakeStaticHP       bool
	UpdateUseStaticHP  bool
	UseStaticHP        bool

	// Blob parameter array: spike_limit, dynamic_hp, smoothing_radius,
	// high_pass, high_pass_radius, centroid_border, sigma_cutoff,
	// spacing, make_static_hp_threshold — each with an independent
	// update flag, per spec.md §4.6's "9-element blob parameter array".
	BlobUpdate [9]bool
	BlobValue  [9]float64

	UpdateTriggerMode      bool
	TriggerMode            bool
	UpdateTriggerTimeoutUs bool
	TriggerTimeoutUs       int
}

// Blob parameter array indices, matching spec.md's ordering.
const (
	BlobSpikeLimit = iota
	BlobDynamicHP
	BlobSmoothingRadius
	BlobHighPass
	BlobHighPassRadius
	BlobCentroidBorder
	BlobSigmaCutoff
	BlobSpacing
	BlobMakeStaticHPThreshold
)

// wirePacket is the fixed-size, binary.Read/Write-compatible layout of a
// CommandPacket: only bool, int32 and float64 fields, so its size is
// stable across platforms regardless of the host's int width.
type wirePacket struct {
	InCharge bool

	UpdateLogOdds bool
	LogOdds       float64

	UpdateLatitude  bool
	Latitude        float64
	UpdateLongitude bool
	Longitude       float64
	UpdateHeight    bool
	Height          float64

	UpdateExposure bool
	ExposureMs     float64
	UpdateGain     bool
	GainFactor     float64

	UpdateSolveTimeLimit bool
	SolveTimeLimitSec    int32

	UpdateFocusPosition bool
	FocusPosition       int32
	UpdateFocusMode     bool
	FocusMode           bool
	UpdateFocusStart    bool
	FocusStart          int32
	UpdateFocusEnd      bool
	FocusEnd            int32
	UpdateFocusStep     bool
	FocusStep           int32
	UpdatePhotosPerStep bool
	PhotosPerStep       int32
	UpdateSetFocusInf   bool
	SetFocusInf         bool

	UpdateApertureSteps bool
	ApertureSteps       int32
	UpdateMaxAperture   bool
	MaxAperture         bool

	UpdateMakeStaticHP bool
	MakeStaticHP       bool
	UpdateUseStaticHP  bool
	UseStaticHP        bool

	BlobUpdate [9]bool
	BlobValue  [9]float64

	UpdateTriggerMode      bool
	TriggerMode            bool
	UpdateTriggerTimeoutUs bool
	TriggerTimeoutUs       int32
}

// PacketSize is the fixed wire size a datagram must match before it is
// considered a command packet, per spec.md §4.6's "datagram equal in
// size to the command packet."
var PacketSize = binary.Size(wirePacket{})

// Decode parses a fixed-size command datagram. It returns an error if
// data is not exactly PacketSize bytes.
func Decode(data []byte) (CommandPacket, error) {
	if len(data) != PacketSize {
		return CommandPacket{}, fmt.Errorf("commandproto: packet is %d bytes, want %d", len(data), PacketSize)
	}

	var w wirePacket
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, &w); err != nil {
		return CommandPacket{}, fmt.Errorf("commandproto: decode: %w", err)
	}

	return CommandPacket{
		InCharge:             w.InCharge,
		UpdateLogOdds:        w.UpdateLogOdds,
		LogOdds:              w.LogOdds,
		UpdateLatitude:       w.UpdateLatitude,
		Latitude:             w.Latitude,
		UpdateLongitude:      w.UpdateLongitude,
		Longitude:            w.Longitude,
		UpdateHeight:         w.UpdateHeight,
		Height:               w.Height,
		UpdateExposure:       w.UpdateExposure,
		ExposureMs:           w.ExposureMs,
		UpdateGain:           w.UpdateGain,
		GainFactor:           w.GainFactor,
		UpdateSolveTimeLimit: w.UpdateSolveTimeLimit,
		SolveTimeLimitSec:    int(w.SolveTimeLimitSec),
		UpdateFocusPosition:  w.UpdateFocusPosition,
		FocusPosition:        int(w.FocusPosition),
		UpdateFocusMode:      w.UpdateFocusMode,
		FocusMode:            w.FocusMode,
		UpdateFocusStart:     w.UpdateFocusStart,
		FocusStart:           int(w.FocusStart),
		UpdateFocusEnd:       w.UpdateFocusEnd,
		FocusEnd:             int(w.FocusEnd),
		UpdateFocusStep:      w.UpdateFocusStep,
		FocusStep:            int(w.FocusStep),
		UpdatePhotosPerStep:  w.UpdatePhotosPerStep,
		PhotosPerStep:        int(w.PhotosPerStep),
		UpdateSetFocusInf:    w.UpdateSetFocusInf,
		SetFocusInf:          w.SetFocusInf,
		UpdateApertureSteps:  w.UpdateApertureSteps,
		ApertureSteps:        int(w.ApertureSteps),
		UpdateMaxAperture:    w.UpdateMaxAperture,
		MaxAperture:          w.MaxAperture,
		UpdateMakeStaticHP:   w.UpdateMakeStaticHP,
		MakeStaticHP:         w.MakeStaticHP,
		UpdateUseStaticHP:    w.UpdateUseStaticHP,
		UseStaticHP:          w.UseStaticHP,
		BlobUpdate:           w.BlobUpdate,
		BlobValue:            w.BlobValue,
		UpdateTriggerMode:        w.UpdateTriggerMode,
		TriggerMode:              w.TriggerMode,
		UpdateTriggerTimeoutUs:   w.UpdateTriggerTimeoutUs,
		TriggerTimeoutUs:         int(w.TriggerTimeoutUs),
	}, nil
}

// Encode serializes a CommandPacket back to its fixed-size wire form,
// for tests and for the replay tool.
func Encode(p CommandPacket) ([]byte, error) {
	w := wirePacket{
		InCharge:             p.InCharge,
		UpdateLogOdds:        p.UpdateLogOdds,
		LogOdds:              p.LogOdds,
		UpdateLatitude:       p.UpdateLatitude,
		Latitude:             p.Latitude,
		UpdateLongitude:      p.UpdateLongitude,
		Longitude:            p.Longitude,
		UpdateHeight:         p.UpdateHeight,
		Height:               p.Height,
		UpdateExposure:       p.UpdateExposure,
		ExposureMs:           p.ExposureMs,
		UpdateGain:           p.UpdateGain,
		GainFactor:           p.GainFactor,
		UpdateSolveTimeLimit: p.UpdateSolveTimeLimit,
		SolveTimeLimitSec:    int32(p.SolveTimeLimitSec),
		UpdateFocusPosition:  p.UpdateFocusPosition,
		FocusPosition:        int32(p.FocusPosition),
		UpdateFocusMode:      p.UpdateFocusMode,
		FocusMode:            p.FocusMode,
		UpdateFocusStart:     p.UpdateFocusStart,
		FocusStart:           int32(p.FocusStart),
		UpdateFocusEnd:       p.UpdateFocusEnd,
		FocusEnd:             int32(p.FocusEnd),
		UpdateFocusStep:      p.UpdateFocusStep,
		FocusStep:            int32(p.FocusStep),
		UpdatePhotosPerStep:  p.UpdatePhotosPerStep,
		PhotosPerStep:        int32(p.PhotosPerStep),
		UpdateSetFocusInf:    p.UpdateSetFocusInf,
		SetFocusInf:          p.SetFocusInf,
		UpdateApertureSteps:  p.UpdateApertureSteps,
		ApertureSteps:        int32(p.ApertureSteps),
		UpdateMaxAperture:    p.UpdateMaxAperture,
		MaxAperture:          p.MaxAperture,
		UpdateMakeStaticHP:   p.UpdateMakeStaticHP,
		MakeStaticHP:         p.MakeStaticHP,
		UpdateUseStaticHP:    p.UpdateUseStaticHP,
		UseStaticHP:          p.UseStaticHP,
		BlobUpdate:           p.BlobUpdate,
		BlobValue:            p.BlobValue,
		UpdateTriggerMode:      p.UpdateTriggerMode,
		TriggerMode:            p.TriggerMode,
		UpdateTriggerTimeoutUs: p.UpdateTriggerTimeoutUs,
		TriggerTimeoutUs:       int32(p.TriggerTimeoutUs),
	}

	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.BigEndian, w); err != nil {
		return nil, fmt.Errorf("commandproto: encode: %w", err)
	}
	return buf.Bytes(), nil
}
