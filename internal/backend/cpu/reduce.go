package cpu

import (
	"fmt"

	"github.com/petal-ml/petal/internal/tensor"
)

// Sum reduces all elements to a scalar tensor of shape {1}.
func (b *Backend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	out, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32)
	if err != nil {
		panic(err)
	}
	var sum float32
	for _, v := range x.AsFloat32() {
		sum += v
	}
	out.AsFloat32()[0] = sum
	return out
}

// Argmax returns the index of the maximum along the last dimension as an
// Int32 tensor. For a [M, N] input the result has shape [M].
func (b *Backend) Argmax(x *tensor.RawTensor) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) < 1 {
		panic(fmt.Sprintf("cpu: argmax expects at least 1 dimension, got shape %v", shape))
	}
	width := shape[len(shape)-1]
	rows := x.NumElements() / width

	outShape := shape[:len(shape)-1].Clone()
	if len(outShape) == 0 {
		outShape = tensor.Shape{1}
	}
	out, err := tensor.NewRaw(outShape, tensor.Int32)
	if err != nil {
		panic(err)
	}

	src := x.AsFloat32()
	dst := out.AsInt32()

	for r := 0; r < rows; r++ {
		row := src[r*width : (r+1)*width]
		best := 0
		for i, v := range row {
			if v > row[best] {
				best = i
			}
		}
		dst[r] = int32(best)
	}
	return out
}
