// Command starcam-replay exercises hot-pixel masking, blob detection,
// and centroid refinement against a saved FITS frame, without any
// camera or lens hardware attached. It is the offline counterpart to
// starcamd named in SPEC_FULL.md's CLI tools section, and doubles as a
// quick way to check a tuning config against a captured frame before
// loading it onto the flight computer.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/starcam/internal/blobs"
	"github.com/banshee-data/starcam/internal/boxcar"
	"github.com/banshee-data/starcam/internal/config"
	"github.com/banshee-data/starcam/internal/fitsio"
	starmask "github.com/banshee-data/starcam/internal/mask"
	"github.com/banshee-data/starcam/internal/pipeline"
	"github.com/banshee-data/starcam/internal/solve"
)

var (
	fitsPath   = flag.String("fits", "", "path to a FITS frame to replay (required)")
	configPath = flag.String("config", "", "optional tuning config JSON; defaults to the compiled-in defaults")
)

type result struct {
	Filename     string       `json:"filename"`
	Width        int          `json:"width"`
	Height       int          `json:"height"`
	UsedHighPass bool         `json:"used_high_pass"`
	Blobs        []blobs.Blob `json:"blobs"`
}

func main() {
	flag.Parse()
	if *fitsPath == "" {
		log.Fatal("starcam-replay: -fits is required")
	}

	out, err := replay(*fitsPath, *configPath)
	if err != nil {
		log.Fatalf("starcam-replay: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("starcam-replay: encode result: %v", err)
	}
}

func replay(path, tuningPath string) (result, error) {
	img, meta, err := fitsio.Read(path)
	if err != nil {
		return result{}, fmt.Errorf("read %s: %w", path, err)
	}

	tuning, err := loadTuning(tuningPath)
	if err != nil {
		return result{}, err
	}
	blobCfg := blobs.Config{
		Sigma:      tuning.GetSigmaCutoff(),
		Spacing:    tuning.GetSpacing(),
		Border:     tuning.GetCentroidBorder(),
		Saturation: 4095,
	}

	region := starmask.Region{I0: 0, I1: img.Width, J0: 0, J1: img.Height}
	m := starmask.New(img.Width, img.Height)
	builder := &starmask.Builder{SpikeLimit: tuning.GetSpikeLimit(), DynamicHP: tuning.GetDynamicHP()}
	builder.Build(m, img.Pixels, region)

	rawFloat := make([]float64, len(img.Pixels))
	for i, v := range img.Pixels {
		rawFloat[i] = float64(v)
	}

	filtered := boxcar.Run(rawFloat, m, tuning.GetSmoothingRadius(), region)
	found := blobs.Detect(filtered.Pix, img.Pixels, m, img.Width, img.Height, blobCfg)
	usedHighPass := false
	if len(found) < pipeline.MinBlobs || len(found) > solve.MaxBlobs {
		hp := boxcar.HighPass(rawFloat, m, tuning.GetSmoothingRadius(), tuning.GetHighPassRadius(), region)
		found = blobs.Detect(hp.Pix, img.Pixels, m, img.Width, img.Height, blobCfg)
		usedHighPass = true
	}
	blobs.Refine(found, img.Pixels, img.Width, img.Height)
	blobs.SortDescending(found)

	return result{
		Filename:     meta.Filename,
		Width:        img.Width,
		Height:       img.Height,
		UsedHighPass: usedHighPass,
		Blobs:        found,
	}, nil
}

func loadTuning(path string) (*config.TuningConfig, error) {
	if path != "" {
		return config.LoadTuningConfig(path)
	}
	if cfg, err := config.LoadTuningConfig(config.DefaultConfigPath); err == nil {
		return cfg, nil
	}
	return config.EmptyTuningConfig(), nil
}
