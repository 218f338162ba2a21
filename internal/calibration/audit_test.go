package calibration

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photoscale/photoscale/internal/errors"
)

func TestCoinAuditCrop(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 400, 300))
	for y := 100; y < 200; y++ {
		for x := 150; x < 250; x++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}

	crop, err := CoinAuditCrop(img, &CoinCircle{CenterX: 200, CenterY: 150, Radius: 50}, 64)
	require.NoError(t, err)
	assert.Equal(t, 64, crop.Bounds().Dx())
	assert.Equal(t, 64, crop.Bounds().Dy())

	r, _, _, _ := crop.At(32, 32).RGBA()
	assert.Greater(t, r>>8, uint32(150), "crop is centred on the coin")
}

func TestCoinAuditCropClipsToImage(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	crop, err := CoinAuditCrop(img, &CoinCircle{CenterX: 0, CenterY: 0, Radius: 40}, 0)
	require.NoError(t, err)
	assert.Equal(t, 44, crop.Bounds().Dx())
	assert.Equal(t, 44, crop.Bounds().Dy())

	_, err = CoinAuditCrop(img, &CoinCircle{CenterX: 500, CenterY: 500, Radius: 10}, 32)
	require.Error(t, err)

	_, err = CoinAuditCrop(nil, &CoinCircle{Radius: 10}, 32)
	require.Error(t, err)
}

func TestAuditImageSaveLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "audit.png")
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	require.NoError(t, SaveAuditImage(img, path))

	loaded, err := LoadAuditImage(path)
	require.NoError(t, err)
	assert.Equal(t, 16, loaded.Bounds().Dx())

	_, err = LoadAuditImage(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))

	err = SaveAuditImage(img, filepath.Join(t.TempDir(), "audit.unknown"))
	require.Error(t, err)
}
