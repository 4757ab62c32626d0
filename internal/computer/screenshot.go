// File: internal/computer/screenshot.go
package computer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

var pngEncoder = png.Encoder{CompressionLevel: png.BestCompression}

// encodeScreenshot resizes img to the target geometry when it differs and
// returns it as base64 encoded PNG.
func encodeScreenshot(img image.Image, scaling ScalingContext) (string, error) {
	bounds := img.Bounds()
	if bounds.Dx() != scaling.TargetWidth || bounds.Dy() != scaling.TargetHeight {
		dst := image.NewRGBA(image.Rect(0, 0, scaling.TargetWidth, scaling.TargetHeight))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := pngEncoder.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode screenshot: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
