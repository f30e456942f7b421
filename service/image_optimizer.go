package service

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
)

const (
	// Quality settings
	qualityLogoJPEG = 85
	// Size settings (max dimension)
	defaultLogoMaxDimension = 320
)

// OptimizeImage shrinks imageData so neither side exceeds maxDim.
// JPEG input is re-encoded as JPEG, everything else as PNG to keep transparency.
// Returns the encoded bytes and their MIME type.
func OptimizeImage(imageData []byte, maxDim int) ([]byte, string, error) {
	if maxDim <= 0 {
		maxDim = defaultLogoMaxDimension
	}

	// Decode the image
	img, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxDim || bounds.Dy() > maxDim {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)
	}

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: qualityLogoJPEG}); err != nil {
			return nil, "", fmt.Errorf("failed to encode to JPEG: %w", err)
		}
		return buf.Bytes(), "image/jpeg", nil
	default:
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("failed to encode to PNG: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	}
}
