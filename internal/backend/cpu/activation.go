package cpu

import (
	"math"

	"github.com/petal-ml/petal/internal/tensor"
)

// ReLU applies max(0, x) element-wise.
func (b *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	out, err := tensor.NewRaw(x.Shape(), tensor.Float32)
	if err != nil {
		panic(err)
	}
	src := x.AsFloat32()
	dst := out.AsFloat32()
	for i, v := range src {
		if v > 0 {
			dst[i] = v
		}
	}
	return out
}

// Softmax normalizes along the last dimension using the max-subtraction
// trick to avoid overflow.
func (b *Backend) Softmax(x *tensor.RawTensor) *tensor.RawTensor {
	shape := x.Shape()
	width := shape[len(shape)-1]
	rows := x.NumElements() / width

	out, err := tensor.NewRaw(shape, tensor.Float32)
	if err != nil {
		panic(err)
	}

	src := x.AsFloat32()
	dst := out.AsFloat32()

	for r := 0; r < rows; r++ {
		row := src[r*width : (r+1)*width]
		outRow := dst[r*width : (r+1)*width]

		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}

		var sum float32
		for i, v := range row {
			e := float32(math.Exp(float64(v - maxVal)))
			outRow[i] = e
			sum += e
		}
		for i := range outRow {
			outRow[i] /= sum
		}
	}
	return out
}
