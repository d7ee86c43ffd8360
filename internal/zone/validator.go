package zone

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"intrusion-worker-go/internal/models"
)

// MinPoints is the smallest vertex count that encloses an area.
const MinPoints = 3

var ErrInvalidPolygon = errors.New("invalid polygon")

// ValidationError is returned when too few vertices survive validation.
type ValidationError struct {
	Submitted int
	Valid     int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("polygon needs at least %d valid points, got %d of %d submitted", MinPoints, e.Valid, e.Submitted)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidPolygon }

// Validator turns client vertices into a Zone clipped to the frame.
type Validator struct {
	Width  int
	Height int
	Logger zerolog.Logger
}

func NewValidator(width, height int, logger zerolog.Logger) *Validator {
	return &Validator{Width: width, Height: height, Logger: logger}
}

// Validate keeps every entry that is an object with numeric x and y,
// truncates to integers and clips into the frame. Bad entries are skipped.
func (v *Validator) Validate(raw []json.RawMessage) (Zone, error) {
	points := make([]models.Point, 0, len(raw))
	for i, entry := range raw {
		p, err := v.parsePoint(entry)
		if err != nil {
			v.Logger.Warn().Err(err).Int("index", i).Str("entry", truncate(string(entry), 64)).Msg("Skipping invalid polygon point")
			continue
		}
		points = append(points, p)
	}
	if len(points) < MinPoints {
		return Zone{}, &ValidationError{Submitted: len(raw), Valid: len(points)}
	}
	return Zone{points: points}, nil
}

func (v *Validator) parsePoint(entry json.RawMessage) (models.Point, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(entry, &obj); err != nil || obj == nil {
		return models.Point{}, errors.New("point is not an object")
	}
	xr, okX := obj["x"]
	yr, okY := obj["y"]
	if !okX || !okY {
		return models.Point{}, errors.New("point is missing x or y")
	}
	x, err := coordinate(xr)
	if err != nil {
		return models.Point{}, fmt.Errorf("x: %w", err)
	}
	y, err := coordinate(yr)
	if err != nil {
		return models.Point{}, fmt.Errorf("y: %w", err)
	}
	return models.Point{
		X: clip(x, v.Width-1),
		Y: clip(y, v.Height-1),
	}, nil
}

// coordinate accepts a JSON number or a string holding a finite float.
func coordinate(raw json.RawMessage) (float64, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return 0, errors.New("not numeric: null")
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0, fmt.Errorf("not numeric: %s", truncate(string(raw), 32))
		}
		f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("not numeric: %q", s)
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("not finite")
	}
	return f, nil
}

// clip bounds in float space first so huge values never overflow int.
func clip(f float64, limit int) int {
	if limit < 0 {
		limit = 0
	}
	f = math.Trunc(f)
	if f < 0 {
		return 0
	}
	if f > float64(limit) {
		return limit
	}
	return int(f)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
