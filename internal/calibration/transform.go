package calibration

import (
	"gonum.org/v1/gonum/mat"
)

// ViewTransform is the zoom and pan applied to a photo on screen:
// screen = Scale*image + (TranslateX, TranslateY). No rotation.
type ViewTransform struct {
	Scale      float64
	TranslateX float64
	TranslateY float64
}

// Matrix returns the homogeneous image-to-screen matrix.
func (v ViewTransform) Matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		v.Scale, 0, v.TranslateX,
		0, v.Scale, v.TranslateY,
		0, 0, 1,
	})
}

// Inverse returns the screen-to-image matrix in closed form. Scale must be
// non-zero.
func (v ViewTransform) Inverse() *mat.Dense {
	inv := 1 / v.Scale
	return mat.NewDense(3, 3, []float64{
		inv, 0, -v.TranslateX * inv,
		0, inv, -v.TranslateY * inv,
		0, 0, 1,
	})
}

// ToImage maps a screen point into image coordinates.
func (v ViewTransform) ToImage(x, y float64) (float64, float64) {
	return apply(v.Inverse(), x, y)
}

// ToScreen maps an image point onto the screen.
func (v ViewTransform) ToScreen(x, y float64) (float64, float64) {
	return apply(v.Matrix(), x, y)
}

// ToImageLength maps a screen length into image pixels.
func (v ViewTransform) ToImageLength(l float64) float64 {
	return l / v.Scale
}

func apply(m *mat.Dense, x, y float64) (float64, float64) {
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(3, []float64{x, y, 1}))
	return out.AtVec(0), out.AtVec(1)
}
