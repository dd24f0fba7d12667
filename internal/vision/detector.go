package vision

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/dj-oyu/presence-hud/pkg/types"
)

// CascadeConfig tunes the Haar cascade.
type CascadeConfig struct {
	Path         string
	ScaleFactor  float64
	MinNeighbors int
	MinSize      int
}

// FaceDetector finds frontal faces with a Haar cascade.
type FaceDetector struct {
	cfg        CascadeConfig
	classifier gocv.CascadeClassifier
	gray       gocv.Mat
}

// NewFaceDetector loads the cascade file.
func NewFaceDetector(cfg CascadeConfig) (*FaceDetector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(cfg.Path) {
		classifier.Close()
		return nil, fmt.Errorf("%w: %s", ErrCascade, cfg.Path)
	}
	return &FaceDetector{
		cfg:        cfg,
		classifier: classifier,
		gray:       gocv.NewMat(),
	}, nil
}

// Detect returns face boxes in frame coordinates. A conversion failure is
// reported as no faces.
func (d *FaceDetector) Detect(f *types.Frame) []image.Rectangle {
	bgr, err := gocv.ImageToMatRGB(f.Image)
	if err != nil {
		return nil
	}
	defer bgr.Close()

	gocv.CvtColor(bgr, &d.gray, gocv.ColorBGRToGray)
	minSize := image.Pt(d.cfg.MinSize, d.cfg.MinSize)
	return d.classifier.DetectMultiScaleWithParams(d.gray, d.cfg.ScaleFactor, d.cfg.MinNeighbors, 0, minSize, image.Pt(0, 0))
}

// Close releases the classifier.
func (d *FaceDetector) Close() error {
	d.gray.Close()
	return d.classifier.Close()
}

// JPEGWriter persists frames with imwrite, creating the target directory
// on demand.
type JPEGWriter struct{}

// Persist implements capture.Persister.
func (JPEGWriter) Persist(path string, f *types.Frame) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	mat, err := gocv.ImageToMatRGB(f.Image)
	if err != nil {
		return fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()
	if !gocv.IMWrite(path, mat) {
		return fmt.Errorf("imwrite %s failed", path)
	}
	return nil
}
