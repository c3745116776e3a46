package ioutils

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // GIF decoder registration
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder registration
)

// DefaultJPEGQuality is used when re-encoding thumbnails.
const DefaultJPEGQuality = 90

// ImageService prepares thumbnails for saving and for embedding as cover
// art: any supported input (JPEG, PNG, GIF, WebP) comes out as a JPEG that
// fits a maximum size.
//
// Example usage:
//
//	svc := NewImageService(0)
//	jpg, err := svc.ToJPEG(thumbnailBytes, 1000, 1000)
type ImageService struct {
	quality int
}

// NewImageService creates a new ImageService. A quality outside 1..100
// falls back to DefaultJPEGQuality.
func NewImageService(quality int) *ImageService {
	if quality < 1 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &ImageService{quality: quality}
}

// ToJPEG decodes data and re-encodes it as JPEG, scaled down with
// Catmull-Rom to fit within maxWidth x maxHeight while keeping the aspect
// ratio. Images already within bounds keep their size. Non-positive
// bounds disable scaling.
//
// Example:
//
//	// A 1500x1000 image becomes 1000x667
//	// A 800x600 image remains 800x600 (but re-encoded)
//	out, err := svc.ToJPEG(data, 1000, 1000)
func (s *ImageService) ToJPEG(data []byte, maxWidth, maxHeight int) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := FitWithin(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)

	var out image.Image = img
	if width != bounds.Dx() || height != bounds.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		out = dst
	} else if format == "jpeg" {
		return data, nil
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: s.quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// FitWithin returns width x height scaled down to fit maxWidth x
// maxHeight with the same aspect ratio.
func FitWithin(width, height, maxWidth, maxHeight int) (int, int) {
	if maxWidth <= 0 || maxHeight <= 0 || width <= 0 || height <= 0 {
		return width, height
	}
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	ratio := float64(width) / float64(height)
	if float64(maxWidth)/float64(maxHeight) > ratio {
		// Height is the limiting factor
		return max(1, int(float64(maxHeight)*ratio)), maxHeight
	}
	// Width is the limiting factor
	return maxWidth, max(1, int(float64(maxWidth)/ratio))
}
