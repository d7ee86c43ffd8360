package vision

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"intrusion-worker-go/internal/models"
	"intrusion-worker-go/internal/zone"
)

func blankFrame(w, h int) *gocv.Mat {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), h, w, gocv.MatTypeCV8UC3)
	return &m
}

func pixel(m *gocv.Mat, x, y int) (b, g, r uint8) {
	return m.GetVecbAt(y, x)[0], m.GetVecbAt(y, x)[1], m.GetVecbAt(y, x)[2]
}

func TestResize(t *testing.T) {
	src := blankFrame(640, 480)
	defer src.Close()
	r := NewRenderer()

	out, err := r.Resize(src, models.FrameWidth, models.FrameHeight)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, models.FrameWidth, out.Cols())
	assert.Equal(t, models.FrameHeight, out.Rows())
}

func TestEncodeJPEG(t *testing.T) {
	src := blankFrame(64, 48)
	defer src.Close()

	data, err := NewRenderer().EncodeJPEG(src, 85)

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte{0xFF, 0xD8}))
}

func TestDrawZoneTintsInterior(t *testing.T) {
	m := blankFrame(200, 200)
	defer m.Close()
	z := zone.New([]models.Point{{X: 20, Y: 20}, {X: 180, Y: 20}, {X: 180, Y: 180}, {X: 20, Y: 180}})

	require.NoError(t, NewRenderer().DrawZone(m, z))

	b, g, r := pixel(m, 100, 100)
	assert.Equal(t, uint8(0), r, "cyan has no red")
	assert.Greater(t, g, uint8(0))
	assert.Greater(t, b, uint8(0))

	b, g, r = pixel(m, 5, 195)
	assert.Zero(t, int(b)+int(g)+int(r), "outside stays black")
}

func TestDrawZoneRejectsDegenerate(t *testing.T) {
	m := blankFrame(10, 10)
	defer m.Close()

	err := NewRenderer().DrawZone(m, zone.New([]models.Point{{X: 1, Y: 1}}))

	assert.ErrorIs(t, err, zone.ErrInvalidPolygon)
}

func TestDrawDetectionColors(t *testing.T) {
	r := NewRenderer()
	box := models.BBox{X1: 40, Y1: 40, X2: 120, Y2: 160}

	inside := blankFrame(200, 200)
	defer inside.Close()
	require.NoError(t, r.DrawDetection(inside, models.ClassifiedDetection{Detection: models.Detection{BBox: box, Confidence: 0.9}, Inside: true}))
	_, _, red := pixel(inside, 40, 100)
	assert.Equal(t, uint8(255), red)

	outside := blankFrame(200, 200)
	defer outside.Close()
	require.NoError(t, r.DrawDetection(outside, models.ClassifiedDetection{Detection: models.Detection{BBox: box, Confidence: 0.9}}))
	_, green, _ := pixel(outside, 40, 100)
	assert.Equal(t, uint8(255), green)
}

func TestRendererRejectsForeignFrames(t *testing.T) {
	_, err := NewRenderer().EncodeJPEG(fakeFrame{}, 80)
	assert.ErrorIs(t, err, errNotMat)
}

type fakeFrame struct{}

func (fakeFrame) Cols() int    { return 1 }
func (fakeFrame) Rows() int    { return 1 }
func (fakeFrame) Close() error { return nil }
