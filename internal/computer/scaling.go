// File: internal/computer/scaling.go
package computer

import (
	"fmt"
	"math"
)

// ScalingContext maps between the model's coordinate space (target) and real
// screen pixels. It is computed once and never changes.
type ScalingContext struct {
	RealWidth    int
	RealHeight   int
	TargetWidth  int
	TargetHeight int
	Scale        float64
}

// NewScalingContext derives the target geometry for a screen of the given
// size. Screens wider than maxWidth are scaled down preserving aspect ratio.
func NewScalingContext(realWidth, realHeight, maxWidth int) (ScalingContext, error) {
	if realWidth <= 0 || realHeight <= 0 {
		return ScalingContext{}, fmt.Errorf("invalid screen size %dx%d", realWidth, realHeight)
	}
	if maxWidth <= 0 {
		return ScalingContext{}, fmt.Errorf("max width must be positive, got %d", maxWidth)
	}

	if realWidth <= maxWidth {
		return ScalingContext{
			RealWidth:    realWidth,
			RealHeight:   realHeight,
			TargetWidth:  realWidth,
			TargetHeight: realHeight,
			Scale:        1,
		}, nil
	}

	scale := float64(maxWidth) / float64(realWidth)
	targetHeight := int(float64(realHeight) * scale)
	if targetHeight < 1 {
		targetHeight = 1
	}
	return ScalingContext{
		RealWidth:    realWidth,
		RealHeight:   realHeight,
		TargetWidth:  maxWidth,
		TargetHeight: targetHeight,
		Scale:        scale,
	}, nil
}

// Scaled reports whether model coordinates differ from real pixels.
func (s ScalingContext) Scaled() bool {
	return s.Scale < 1
}

// ToReal converts model coordinates to real screen pixels.
func (s ScalingContext) ToReal(x, y int) (int, int) {
	fx, fy := s.factors()
	return roundInt(float64(x) * fx), roundInt(float64(y) * fy)
}

// ToAPI converts real screen pixels to model coordinates.
func (s ScalingContext) ToAPI(x, y int) (int, int) {
	fx, fy := s.factors()
	return roundInt(float64(x) / fx), roundInt(float64(y) / fy)
}

// factors are computed per axis; TargetHeight is truncated, so the two
// ratios can differ slightly.
func (s ScalingContext) factors() (float64, float64) {
	return float64(s.RealWidth) / float64(s.TargetWidth), float64(s.RealHeight) / float64(s.TargetHeight)
}

func roundInt(v float64) int {
	return int(math.Round(v))
}
