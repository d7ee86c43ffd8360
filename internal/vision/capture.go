// Package vision holds the OpenCV backed pieces: capture devices, frame
// drawing, JPEG encoding and local YOLO inference.
package vision

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"intrusion-worker-go/internal/models"
	"intrusion-worker-go/internal/services/streamcapture"
)

// CaptureOpener opens cameras and video files through gocv.VideoCapture.
type CaptureOpener struct{}

func (CaptureOpener) Open(_ context.Context, ref models.SourceRef, opts streamcapture.CaptureOptions) (streamcapture.Source, error) {
	var (
		cap *gocv.VideoCapture
		err error
	)
	if ref.IsLive() {
		cap, err = gocv.OpenVideoCapture(ref.Device)
	} else {
		cap, err = gocv.OpenVideoCapture(ref.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", streamcapture.ErrNotOpened, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, streamcapture.ErrNotOpened
	}

	if ref.IsLive() {
		cap.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
		cap.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
		if opts.FPS > 0 {
			cap.Set(gocv.VideoCaptureFPS, float64(opts.FPS))
		}
		if opts.BufferSize > 0 {
			cap.Set(gocv.VideoCaptureBufferSize, float64(opts.BufferSize))
		}
		log.Debug().
			Str("source", ref.String()).
			Float64("actual_width", cap.Get(gocv.VideoCaptureFrameWidth)).
			Float64("actual_height", cap.Get(gocv.VideoCaptureFrameHeight)).
			Float64("actual_fps", cap.Get(gocv.VideoCaptureFPS)).
			Msg("Camera opened")
	}
	return &captureSource{cap: cap, live: ref.IsLive()}, nil
}

type captureSource struct {
	cap  *gocv.VideoCapture
	live bool
}

// Read returns a new Mat the caller must Close. A failed read means end of
// stream for files and a device error for cameras.
func (s *captureSource) Read() (models.Frame, error) {
	mat := gocv.NewMat()
	if ok := s.cap.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		if s.live {
			return nil, streamcapture.ErrReadFailed
		}
		return nil, streamcapture.ErrEndOfStream
	}
	return &mat, nil
}

func (s *captureSource) Close() error {
	return s.cap.Close()
}
