package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"intrusion-worker-go/internal/models"
	"intrusion-worker-go/internal/zone"
)

var (
	colorCyan    = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	colorYellow  = color.RGBA{R: 255, G: 255, B: 0, A: 255}
	colorBlack   = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	colorRed     = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	colorGreen   = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	colorWhite   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorMagenta = color.RGBA{R: 255, G: 0, B: 255, A: 255}
)

const zoneFillAlpha = 0.2

var errNotMat = errors.New("frame is not a gocv.Mat")

func asMat(f models.Frame) (*gocv.Mat, error) {
	m, ok := f.(*gocv.Mat)
	if !ok || m == nil {
		return nil, errNotMat
	}
	if m.Empty() {
		return nil, errors.New("empty frame")
	}
	return m, nil
}

// Renderer draws the zone and detection overlays and encodes frames.
// It holds no state and is safe for concurrent use.
type Renderer struct{}

func NewRenderer() *Renderer { return &Renderer{} }

// Resize returns a new frame of exactly width x height.
func (r *Renderer) Resize(f models.Frame, width, height int) (models.Frame, error) {
	src, err := asMat(f)
	if err != nil {
		return nil, err
	}
	dst := gocv.NewMat()
	if src.Cols() == width && src.Rows() == height {
		src.CopyTo(&dst)
		return &dst, nil
	}
	gocv.Resize(*src, &dst, image.Pt(width, height), 0, 0, gocv.InterpolationLinear)
	return &dst, nil
}

// EncodeJPEG compresses f at the given quality.
func (r *Renderer) EncodeJPEG(f models.Frame, quality int) ([]byte, error) {
	m, err := asMat(f)
	if err != nil {
		return nil, err
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *m, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	defer buf.Close()
	src := buf.GetBytes()
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

func toImagePoints(pts []models.Point) []image.Point {
	out := make([]image.Point, len(pts))
	for i, p := range pts {
		out[i] = image.Pt(p.X, p.Y)
	}
	return out
}

// DrawZone outlines the zone in cyan, blends a 20% cyan fill underneath and
// marks each vertex with a yellow dot.
func (r *Renderer) DrawZone(f models.Frame, z zone.Zone) error {
	m, err := asMat(f)
	if err != nil {
		return err
	}
	if z.Empty() {
		return zone.ErrInvalidPolygon
	}
	points := toImagePoints(z.Points())
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{points})
	defer pv.Close()

	gocv.Polylines(m, pv, true, colorCyan, 4)

	overlay := m.Clone()
	defer overlay.Close()
	gocv.FillPoly(&overlay, pv, colorCyan)
	gocv.AddWeighted(overlay, zoneFillAlpha, *m, 1-zoneFillAlpha, 0, m)

	for _, p := range points {
		gocv.Circle(m, p, 6, colorYellow, -1)
		gocv.Circle(m, p, 6, colorBlack, 2)
	}
	return nil
}

// DrawDetection draws one person. Intruders get a thick red box, an
// "INTRUDER!" label and an alert disc; others a thin green box.
func (r *Renderer) DrawDetection(f models.Frame, d models.ClassifiedDetection) error {
	m, err := asMat(f)
	if err != nil {
		return err
	}
	b := d.BBox
	x1, y1, x2, y2 := int(b.X1), int(b.Y1), int(b.X2), int(b.Y2)
	cxf, cyf := b.Centroid()
	center := image.Pt(int(cxf), int(cyf))
	bottom := image.Pt(int(cxf), y2)
	labelAt := image.Pt(x1, y1-10)

	if d.Inside {
		gocv.PutText(m, fmt.Sprintf("INTRUDER! (%.2f)", d.Confidence), labelAt, gocv.FontHersheySimplex, 0.8, colorRed, 2)
		gocv.Rectangle(m, image.Rect(x1, y1, x2, y2), colorRed, 4)

		gocv.Circle(m, center, 10, colorRed, -1)
		gocv.PutText(m, "!", image.Pt(center.X-5, center.Y+6), gocv.FontHersheySimplex, 0.8, colorWhite, 2)

		gocv.Circle(m, center, 3, colorMagenta, -1)
		gocv.Circle(m, bottom, 3, colorCyan, -1)
		return nil
	}

	gocv.Rectangle(m, image.Rect(x1, y1, x2, y2), colorGreen, 2)
	gocv.PutText(m, fmt.Sprintf("Person (%.2f)", d.Confidence), labelAt, gocv.FontHersheySimplex, 0.6, colorGreen, 2)
	gocv.Circle(m, center, 3, colorGreen, -1)
	gocv.Circle(m, bottom, 3, colorGreen, -1)
	return nil
}
