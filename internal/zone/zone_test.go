package zone

import (
	"math/rand"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"

	"intrusion-worker-go/internal/models"
)

func square() Zone {
	return New([]models.Point{{X: 100, Y: 100}, {X: 300, Y: 100}, {X: 300, Y: 300}, {X: 100, Y: 300}})
}

func TestContains(t *testing.T) {
	z := square()
	tests := []struct {
		name   string
		x, y   float64
		inside bool
	}{
		{"center", 200, 200, true},
		{"left of zone", 50, 200, false},
		{"below zone", 200, 350, false},
		{"on top edge", 200, 100, true},
		{"on vertex", 300, 300, true},
		{"on right edge", 300, 150, true},
		{"just outside corner", 301, 301, false},
		{"half pixel inside", 100.5, 299.5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.inside, z.Contains(tt.x, tt.y))
		})
	}
}

func TestContainsConcave(t *testing.T) {
	// U shape opening upward
	z := New([]models.Point{
		{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 300}, {X: 200, Y: 300},
		{X: 200, Y: 0}, {X: 300, Y: 0}, {X: 300, Y: 400}, {X: 0, Y: 400},
	})
	assert.True(t, z.Contains(50, 100))
	assert.True(t, z.Contains(250, 100))
	assert.False(t, z.Contains(150, 100), "notch is outside")
	assert.True(t, z.Contains(150, 350))
}

func TestContainsDegenerate(t *testing.T) {
	assert.False(t, New(nil).Contains(0, 0))
	assert.False(t, New([]models.Point{{X: 0, Y: 0}, {X: 5, Y: 5}}).Contains(1, 1))
}

func TestClassify(t *testing.T) {
	z := square()
	tests := []struct {
		name   string
		box    models.BBox
		inside bool
	}{
		{"centered inside", models.BBox{X1: 180, Y1: 150, X2: 220, Y2: 250}, true},
		{"feet inside, centroid above", models.BBox{X1: 180, Y1: 0, X2: 220, Y2: 150}, true},
		{"centroid inside, feet below", models.BBox{X1: 180, Y1: 200, X2: 220, Y2: 380}, true},
		{"entirely outside", models.BBox{X1: 400, Y1: 400, X2: 450, Y2: 500}, false},
		{"feet touching top edge", models.BBox{X1: 180, Y1: 0, X2: 220, Y2: 100}, true},
		{"overlapping but anchors outside", models.BBox{X1: 250, Y1: 0, X2: 450, Y2: 50}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := models.Detection{ClassID: 0, Label: "person", Confidence: 0.9, BBox: tt.box}
			assert.Equal(t, tt.inside, Classify(det, z))
		})
	}
}

func TestScenarioTriangleWithCenteredPerson(t *testing.T) {
	z := New([]models.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}})
	det := models.Detection{BBox: models.BBox{X1: 70, Y1: 20, X2: 90, Y2: 40}}
	assert.True(t, Classify(det, z))
}

func randomPolygon(r *rand.Rand) Zone {
	n := 3 + r.Intn(6)
	pts := make([]models.Point, n)
	for i := range pts {
		pts[i] = models.Point{X: r.Intn(200), Y: r.Intn(200)}
	}
	return New(pts)
}

func translate(z Zone, dx, dy int) Zone {
	pts := z.Points()
	for i := range pts {
		pts[i].X += dx
		pts[i].Y += dy
	}
	return New(pts)
}

// rotate90 maps (x, y) to (-y, x).
func rotate90(z Zone) Zone {
	pts := z.Points()
	for i := range pts {
		pts[i].X, pts[i].Y = -pts[i].Y, pts[i].X
	}
	return New(pts)
}

func TestContainsInvariantUnderTranslation(t *testing.T) {
	f := func(seed int64, dx, dy int16) bool {
		r := rand.New(rand.NewSource(seed))
		z := randomPolygon(r)
		moved := translate(z, int(dx), int(dy))
		for i := 0; i < 20; i++ {
			px := float64(r.Intn(400)-100) + 0.5*float64(r.Intn(2))
			py := float64(r.Intn(400)-100) + 0.5*float64(r.Intn(2))
			if z.Contains(px, py) != moved.Contains(px+float64(dx), py+float64(dy)) {
				return false
			}
		}
		return true
	}
	assert.NoError(t, quick.Check(f, nil))
}

func TestContainsInvariantUnderRotation(t *testing.T) {
	f := func(seed int64) bool {
		r := rand.New(rand.NewSource(seed))
		z := randomPolygon(r)
		turned := rotate90(z)
		for i := 0; i < 20; i++ {
			px := float64(r.Intn(240) - 20)
			py := float64(r.Intn(240) - 20)
			if z.Contains(px, py) != turned.Contains(-py, px) {
				return false
			}
		}
		return true
	}
	assert.NoError(t, quick.Check(f, nil))
}

func TestClassifyInvariantUnderTranslation(t *testing.T) {
	f := func(seed int64, dx, dy int16) bool {
		r := rand.New(rand.NewSource(seed))
		z := randomPolygon(r)
		moved := translate(z, int(dx), int(dy))
		x1, y1 := float64(r.Intn(200)), float64(r.Intn(200))
		box := models.BBox{X1: x1, Y1: y1, X2: x1 + float64(1+r.Intn(60)), Y2: y1 + float64(1+r.Intn(90))}
		shifted := models.BBox{X1: box.X1 + float64(dx), Y1: box.Y1 + float64(dy), X2: box.X2 + float64(dx), Y2: box.Y2 + float64(dy)}
		return Classify(models.Detection{BBox: box}, z) == Classify(models.Detection{BBox: shifted}, moved)
	}
	assert.NoError(t, quick.Check(f, nil))
}
