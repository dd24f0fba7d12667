// Package vision adapts OpenCV (through gocv) to the frame, detector,
// persistence and preview interfaces used by the rest of the application.
// Nothing outside this package imports gocv.
package vision

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/dj-oyu/presence-hud/internal/logger"
	"github.com/dj-oyu/presence-hud/pkg/types"
)

var (
	// ErrCapture is returned when the camera cannot be opened or stops
	// delivering frames.
	ErrCapture = errors.New("vision: capture failed")

	// ErrCascade is returned when the face classifier cannot be loaded.
	ErrCascade = errors.New("vision: cascade load failed")
)

// CameraConfig selects the device and the working resolution.
type CameraConfig struct {
	Device int
	Width  int
	Height int
	FPS    int
}

// Camera reads frames from a V4L2 device and resizes them to the working
// resolution.
type Camera struct {
	cfg CameraConfig
	vc  *gocv.VideoCapture
	raw gocv.Mat
	out gocv.Mat
	seq uint64
	log *logger.Module

	closeOnce sync.Once
}

// OpenCamera opens the device through V4L2 and falls back once to the
// default backend.
func OpenCamera(cfg CameraConfig) (*Camera, error) {
	log := logger.For("Camera")

	vc, err := gocv.OpenVideoCaptureWithAPI(cfg.Device, gocv.VideoCaptureV4L2)
	if err != nil || !vc.IsOpened() {
		log.Warnf("V4L2 open of device %d failed (%v), trying default backend", cfg.Device, err)
		if vc != nil {
			vc.Close()
		}
		vc, err = gocv.OpenVideoCapture(cfg.Device)
		if err != nil || !vc.IsOpened() {
			if vc != nil {
				vc.Close()
			}
			return nil, fmt.Errorf("%w: open device %d: %v", ErrCapture, cfg.Device, err)
		}
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.FPS))
	log.Infof("device %d opened (%dx%d @ %d fps requested)", cfg.Device, cfg.Width, cfg.Height, cfg.FPS)

	return &Camera{
		cfg: cfg,
		vc:  vc,
		raw: gocv.NewMat(),
		out: gocv.NewMat(),
		log: log,
	}, nil
}

// Read blocks for the next frame. Any failure is fatal to the caller.
func (c *Camera) Read() (*types.Frame, error) {
	if ok := c.vc.Read(&c.raw); !ok || c.raw.Empty() {
		return nil, fmt.Errorf("%w: read frame %d", ErrCapture, c.seq)
	}
	gocv.Resize(c.raw, &c.out, image.Pt(c.cfg.Width, c.cfg.Height), 0, 0, gocv.InterpolationLinear)

	img, err := c.out.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: convert frame %d: %v", ErrCapture, c.seq, err)
	}
	c.seq++
	return &types.Frame{Image: toRGBA(img), Timestamp: time.Now(), Seq: c.seq}, nil
}

// Close releases the device.
func (c *Camera) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.raw.Close()
		c.out.Close()
		err = c.vc.Close()
		c.log.Infof("device %d released", c.cfg.Device)
	})
	return err
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
