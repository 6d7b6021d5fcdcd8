// Package quality classifies artwork artifacts against configured
// high-quality thresholds. Classification is a pure function of the
// artifact's dimensions and size so it can be tested and cached in
// isolation from any I/O.
package quality

import (
	"image"
	"math"
	"os"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"artkeeper/internal/config"
	"artkeeper/internal/models"
)

// Classify applies the three thresholds. High requires all of them;
// anything measurable that falls short is Low. Callers that could not
// measure the artifact must not call Classify — an unreadable file is
// Unknown, never Low (see ProbeFile).
func Classify(width, height int, sizeBytes int64, th config.QualityConfig) models.QualityStatus {
	if height >= th.MinHeight && width >= th.MinWidth && sizeBytes >= int64(th.MinSizeKB)*1024 {
		return models.QualityHigh
	}
	return models.QualityLow
}

// ProbeFile measures the artifact at path and classifies it.
// A missing or undecodable file yields Status Unknown with zero
// dimensions; it is not a replaceable low-quality artifact, it is an
// artifact we know nothing about.
func ProbeFile(path string, th config.QualityConfig) models.Artifact {
	art := models.Artifact{Path: path, Status: models.QualityUnknown, CheckedAt: time.Now()}
	if path == "" {
		return art
	}

	fi, err := os.Stat(path)
	if err != nil {
		return art
	}

	f, err := os.Open(path)
	if err != nil {
		return art
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return art
	}

	art.Width = cfg.Width
	art.Height = cfg.Height
	art.SizeKB = math.Round(float64(fi.Size())/1024*100) / 100
	art.Status = Classify(cfg.Width, cfg.Height, fi.Size(), th)
	return art
}
