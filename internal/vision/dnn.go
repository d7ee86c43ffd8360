package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"intrusion-worker-go/internal/models"
	"intrusion-worker-go/internal/services/detection"
	"intrusion-worker-go/internal/services/frameprocessing"
)

const yoloInputSize = 640

type DNNConfig struct {
	ModelPath     string
	MinConfidence float32
	NMSThreshold  float32
}

// DNNDetector runs a YOLOv8/YOLO11 ONNX export through OpenCV's dnn module.
// A gocv.Net is not safe for concurrent use, so the pool builds one per worker.
type DNNDetector struct {
	cfg    DNNConfig
	net    gocv.Net
	logger zerolog.Logger
}

func NewDNNDetector(cfg DNNConfig, logger zerolog.Logger) (*DNNDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("could not load ONNX model %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)
	logger.Info().Str("model", cfg.ModelPath).Msg("YOLO model loaded")
	return &DNNDetector{cfg: cfg, net: net, logger: logger}, nil
}

// NewDNNFactory builds a detector per pool worker.
func NewDNNFactory(cfg DNNConfig, logger zerolog.Logger) frameprocessing.Factory {
	return func() (frameprocessing.Detector, error) {
		return NewDNNDetector(cfg, logger)
	}
}

func (d *DNNDetector) Detect(_ context.Context, f models.Frame) ([]models.Detection, error) {
	m, err := asMat(f)
	if err != nil {
		return nil, err
	}
	lb := detection.NewLetterbox(m.Cols(), m.Rows(), yoloInputSize)
	blob := letterboxBlob(*m, lb)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	size := out.Size()
	if len(size) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", size)
	}
	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	cands, err := detection.DecodeYOLO(data, size[1], size[2], 1, 1, d.cfg.MinConfidence)
	if err != nil {
		return nil, err
	}
	if len(cands) == 0 {
		return nil, nil
	}
	for i := range cands {
		cands[i] = lb.Unmap(cands[i], m.Cols(), m.Rows())
	}

	boxes := make([]image.Rectangle, len(cands))
	scores := make([]float32, len(cands))
	for i, c := range cands {
		boxes[i] = image.Rect(int(c.X1), int(c.Y1), int(c.X2), int(c.Y2))
		scores[i] = c.Confidence
	}
	keep := gocv.NMSBoxes(boxes, scores, d.cfg.MinConfidence, d.cfg.NMSThreshold)

	dets := make([]models.Detection, 0, len(keep))
	for _, i := range keep {
		c := cands[i]
		dets = append(dets, models.Detection{
			ClassID:    c.ClassID,
			Label:      detection.ClassLabel(c.ClassID),
			Confidence: float64(c.Confidence),
			BBox:       models.BBox{X1: float64(c.X1), Y1: float64(c.Y1), X2: float64(c.X2), Y2: float64(c.Y2)},
		})
	}
	return dets, nil
}

// letterboxBlob pastes the scaled frame onto a black square canvas and
// turns it into a normalized RGB blob.
func letterboxBlob(frame gocv.Mat, lb detection.Letterbox) gocv.Mat {
	canvas := gocv.NewMatWithSize(lb.Size, lb.Size, gocv.MatTypeCV8UC3)
	defer canvas.Close()
	canvas.SetTo(gocv.NewScalar(0, 0, 0, 0))

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(frame, &resized, image.Pt(lb.Width, lb.Height), 0, 0, gocv.InterpolationLinear)

	roi := canvas.Region(image.Rect(lb.OffX, lb.OffY, lb.OffX+lb.Width, lb.OffY+lb.Height))
	defer roi.Close()
	resized.CopyTo(&roi)

	return gocv.BlobFromImage(canvas, 1.0/255.0, image.Pt(lb.Size, lb.Size), gocv.NewScalar(0, 0, 0, 0), true, false)
}

func (d *DNNDetector) Ready(context.Context) error {
	if d.net.Empty() {
		return errors.New("model not loaded")
	}
	return nil
}

func (d *DNNDetector) Close() error {
	return d.net.Close()
}
