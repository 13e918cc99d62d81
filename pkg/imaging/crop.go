package imaging

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// CropJPEG cuts the region out of an encoded image and re-encodes it as
// JPEG. The rectangle is clamped to the image bounds first; a rectangle
// that collapses to zero area after clamping is an error.
func CropJPEG(data []byte, r Rect, quality int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	clamped := r.Clamp(bounds.Dx(), bounds.Dy())
	if !clamped.Valid() {
		return nil, fmt.Errorf("region %+v outside image bounds %dx%d", r, bounds.Dx(), bounds.Dy())
	}

	sub := imaging.Crop(img, image.Rect(clamped.XMin, clamped.YMin, clamped.XMax, clamped.YMax))

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, sub, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("encode sub-image: %w", err)
	}
	return buf.Bytes(), nil
}
