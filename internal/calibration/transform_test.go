package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestViewTransformInverse(t *testing.T) {
	t.Parallel()

	v := ViewTransform{Scale: 2.5, TranslateX: -40, TranslateY: 12}

	var product mat.Dense
	product.Mul(v.Matrix(), v.Inverse())
	assert.True(t, mat.EqualApprox(&product, identity3(), 1e-12))

	sx, sy := v.ToScreen(100, 50)
	assert.InDelta(t, 210, sx, 1e-12)
	assert.InDelta(t, 137, sy, 1e-12)

	ix, iy := v.ToImage(sx, sy)
	assert.InDelta(t, 100, ix, 1e-12)
	assert.InDelta(t, 50, iy, 1e-12)

	assert.InDelta(t, 40, v.ToImageLength(100), 1e-12)
}

func TestViewTransformIdentity(t *testing.T) {
	t.Parallel()

	v := ViewTransform{Scale: 1}
	x, y := v.ToImage(7, 9)
	assert.InDelta(t, 7, x, 0)
	assert.InDelta(t, 9, y, 0)
}

func identity3() *mat.Dense {
	return mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
}
