package calibration

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/photoscale/photoscale/internal/errors"
)

// DefaultAuditSize is the edge length of coin audit crops, in pixels.
const DefaultAuditSize = 256

// CoinAuditCrop cuts the coin circle out of the original photo with a 10%
// margin and scales it down to fit size x size, so a reviewer can check that
// the reference circle really sat on the coin's edge. Small crops are not
// enlarged.
func CoinAuditCrop(img image.Image, circle *CoinCircle, size int) (*image.NRGBA, error) {
	if img == nil || circle == nil {
		return nil, validationError("image and coin circle are required")
	}
	if size <= 0 {
		size = DefaultAuditSize
	}

	half := circle.Radius * 1.1
	rect := image.Rect(
		int(math.Floor(circle.CenterX-half)),
		int(math.Floor(circle.CenterY-half)),
		int(math.Ceil(circle.CenterX+half)),
		int(math.Ceil(circle.CenterY+half)),
	).Intersect(img.Bounds())
	if rect.Empty() {
		return nil, validationError("coin circle lies outside the image")
	}

	cropped := imaging.Crop(img, rect)
	return imaging.Fit(cropped, size, size, imaging.Lanczos), nil
}

// LoadAuditImage opens a photo for CoinAuditCrop, applying its EXIF
// orientation so coordinates match what the user saw.
func LoadAuditImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.New(err).
			Component("calibration").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	return img, nil
}

// SaveAuditImage writes img, choosing the format from the extension.
func SaveAuditImage(img image.Image, path string) error {
	if err := imaging.Save(img, path); err != nil {
		return errors.New(err).
			Component("calibration").
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Build()
	}
	return nil
}
