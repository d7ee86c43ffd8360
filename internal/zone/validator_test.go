package zone

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"testing/quick"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrusion-worker-go/internal/models"
)

func newTestValidator() *Validator {
	return NewValidator(models.FrameWidth, models.FrameHeight, zerolog.Nop())
}

func mustParse(t *testing.T, msg string) *Request {
	t.Helper()
	req, err := ParseRequest([]byte(msg))
	require.NoError(t, err)
	return req
}

func TestValidateAcceptsTriangle(t *testing.T) {
	req := mustParse(t, `{"polygon":[{"x":0,"y":0},{"x":100,"y":0},{"x":100,"y":100}]}`)

	z, err := newTestValidator().Validate(req.Polygon)

	require.NoError(t, err)
	assert.Equal(t, []models.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}}, z.Points())
}

func TestValidateRejectsTwoPoints(t *testing.T) {
	req := mustParse(t, `{"polygon":[{"x":0,"y":0},{"x":1,"y":1}]}`)

	_, err := newTestValidator().Validate(req.Polygon)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPolygon))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 2, verr.Valid)
}

func TestValidateSkipsMalformedEntries(t *testing.T) {
	req := mustParse(t, `{"polygon":[
		{"x":10,"y":10},
		"nope",
		{"x":"abc","y":3},
		{"x":5},
		null,
		{"x":null,"y":null},
		{"x":7,"y":null},
		{"x":"20.9","y":" 30 "},
		[1,2],
		{"x":40.7,"y":-3.2}
	]}`)

	z, err := newTestValidator().Validate(req.Polygon)

	require.NoError(t, err)
	assert.Equal(t, []models.Point{{X: 10, Y: 10}, {X: 20, Y: 30}, {X: 40, Y: 0}}, z.Points())
}

func TestValidateNullCoordinatesDoNotCount(t *testing.T) {
	req := mustParse(t, `{"polygon":[{"x":null,"y":null},{"x":100,"y":0},{"x":100,"y":100}]}`)

	_, err := newTestValidator().Validate(req.Polygon)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPolygon))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 2, verr.Valid)
}

func TestValidateClipsToFrame(t *testing.T) {
	req := mustParse(t, `{"polygon":[{"x":-50,"y":-1},{"x":5000,"y":10},{"x":640,"y":1e12}]}`)

	z, err := newTestValidator().Validate(req.Polygon)

	require.NoError(t, err)
	assert.Equal(t, []models.Point{{X: 0, Y: 0}, {X: 1279, Y: 10}, {X: 640, Y: 719}}, z.Points())
}

func TestValidatedPointsAlwaysInBounds(t *testing.T) {
	v := newTestValidator()
	f := func(xs, ys []float64) bool {
		n := min(len(xs), len(ys))
		raw := make([]json.RawMessage, 0, n)
		for i := 0; i < n; i++ {
			if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) || math.IsInf(xs[i], 0) || math.IsInf(ys[i], 0) {
				continue
			}
			b, _ := json.Marshal(map[string]float64{"x": xs[i], "y": ys[i]})
			raw = append(raw, b)
		}
		z, err := v.Validate(raw)
		if err != nil {
			return len(raw) < MinPoints
		}
		for _, p := range z.Points() {
			if p.X < 0 || p.X >= models.FrameWidth || p.Y < 0 || p.Y >= models.FrameHeight {
				return false
			}
		}
		return true
	}
	assert.NoError(t, quick.Check(f, nil))
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name    string
		msg     string
		wantErr bool
		points  int
	}{
		{"valid", `{"polygon":[{"x":1,"y":2}]}`, false, 1},
		{"missing polygon", `{"other":true}`, false, 0},
		{"not json", `polygon please`, true, 0},
		{"empty", ``, true, 0},
		{"polygon not array", `{"polygon":"abc"}`, true, 0},
		{"top level array", `[1,2,3]`, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ParseRequest([]byte(tt.msg))
			if tt.wantErr {
				var reqErr *RequestError
				assert.True(t, errors.As(err, &reqErr))
				return
			}
			require.NoError(t, err)
			assert.Len(t, req.Polygon, tt.points)
		})
	}
}
