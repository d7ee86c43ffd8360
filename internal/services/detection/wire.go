package detection

import (
	"encoding/json"
	"fmt"

	"intrusion-worker-go/internal/models"
)

// Encoder turns a frame into JPEG bytes for remote detectors.
type Encoder interface {
	EncodeJPEG(f models.Frame, quality int) ([]byte, error)
}

// wireDetection is the JSON shape shared by the HTTP and gRPC backends.
// "class" is accepted as an alias of "label".
type wireDetection struct {
	Class      string    `json:"class"`
	Label      string    `json:"label"`
	ClassID    int       `json:"class_id"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox"` // [x1, y1, x2, y2]
}

type wireResult struct {
	Detections      []wireDetection `json:"detections"`
	Count           int             `json:"count"`
	InferenceTimeMs float64         `json:"inference_time_ms"`
}

func decodeResult(data []byte) ([]models.Detection, error) {
	var res wireResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode detections: %w", err)
	}
	return res.toModels()
}

func (r wireResult) toModels() ([]models.Detection, error) {
	out := make([]models.Detection, 0, len(r.Detections))
	for i, d := range r.Detections {
		if len(d.BBox) != 4 {
			return nil, fmt.Errorf("detection %d: bbox has %d values, want 4", i, len(d.BBox))
		}
		label := d.Label
		if label == "" {
			label = d.Class
		}
		out = append(out, models.Detection{
			ClassID:    d.ClassID,
			Label:      label,
			Confidence: d.Confidence,
			BBox:       models.BBox{X1: d.BBox[0], Y1: d.BBox[1], X2: d.BBox[2], Y2: d.BBox[3]},
		})
	}
	return out, nil
}
