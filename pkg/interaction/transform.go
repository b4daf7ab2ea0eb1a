package interaction

import (
	"encoding/json"
	"fmt"
	"math"
)

// Scale extent of the zoom behaviour.
const (
	MinScale = 0.1
	MaxScale = 8.0
)

// Deviation from identity beyond which the view counts as panned.
const (
	panEpsilon   = 1.0  // pixels
	scaleEpsilon = 0.01 // one percent
)

// Transform is a zoom/pan transform: screen = world*K + (X, Y).
type Transform struct {
	K float64 `json:"k"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Identity returns the transform that leaves coordinates unchanged.
func Identity() Transform {
	return Transform{K: 1}
}

// Apply maps a world point to screen space.
func (t Transform) Apply(x, y float64) (float64, float64) {
	return x*t.K + t.X, y*t.K + t.Y
}

// Invert maps a screen point to world space.
func (t Transform) Invert(sx, sy float64) (float64, float64) {
	return (sx - t.X) / t.K, (sy - t.Y) / t.K
}

// Translate pans by a screen-space delta.
func (t Transform) Translate(dx, dy float64) Transform {
	return Transform{K: t.K, X: t.X + dx, Y: t.Y + dy}
}

// ZoomAbout scales by factor keeping the screen point (px, py) fixed. The
// resulting scale is clamped to [MinScale, MaxScale].
func (t Transform) ZoomAbout(factor, px, py float64) Transform {
	k := math.Min(MaxScale, math.Max(MinScale, t.K*factor))
	wx, wy := t.Invert(px, py)
	return Transform{K: k, X: px - wx*k, Y: py - wy*k}
}

// IsPanned reports a deviation from identity of more than a pixel or a percent.
func (t Transform) IsPanned() bool {
	return math.Abs(t.X) > panEpsilon || math.Abs(t.Y) > panEpsilon || math.Abs(t.K-1) > scaleEpsilon
}

// Valid reports whether every component is finite and the scale positive.
func (t Transform) Valid() bool {
	for _, v := range []float64{t.K, t.X, t.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return t.K > 0
}

// Lerp interpolates between two transforms; p is clamped to [0, 1].
func Lerp(a, b Transform, p float64) Transform {
	p = math.Min(1, math.Max(0, p))
	return Transform{
		K: a.K + (b.K-a.K)*p,
		X: a.X + (b.X-a.X)*p,
		Y: a.Y + (b.Y-a.Y)*p,
	}
}

// Encode serialises the transform as {"k","x","y"}.
func (t Transform) Encode() (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeTransform parses a persisted transform. Missing fields, non-finite values
// and non-positive scales are errors.
func DecodeTransform(s string) (Transform, error) {
	var raw struct {
		K *float64 `json:"k"`
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return Transform{}, fmt.Errorf("invalid transform: %w", err)
	}
	if raw.K == nil || raw.X == nil || raw.Y == nil {
		return Transform{}, fmt.Errorf("invalid transform: missing field in %q", s)
	}
	t := Transform{K: *raw.K, X: *raw.X, Y: *raw.Y}
	if !t.Valid() {
		return Transform{}, fmt.Errorf("invalid transform: %v", t)
	}
	return t, nil
}
