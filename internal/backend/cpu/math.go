package cpu

import (
	"fmt"

	"github.com/petal-ml/petal/internal/tensor"
)

// Add returns a + b element-wise, with broadcasting.
func (b *Backend) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	return binaryOp("add", x, y, func(a, b float32) float32 { return a + b })
}

// Sub returns a - b element-wise, with broadcasting.
func (b *Backend) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	return binaryOp("sub", x, y, func(a, b float32) float32 { return a - b })
}

// Mul returns a * b element-wise, with broadcasting.
func (b *Backend) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	return binaryOp("mul", x, y, func(a, b float32) float32 { return a * b })
}

// MulScalar returns x scaled by s.
func (b *Backend) MulScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	out, err := tensor.NewRaw(x.Shape(), tensor.Float32)
	if err != nil {
		panic(err)
	}
	src := x.AsFloat32()
	dst := out.AsFloat32()
	for i, v := range src {
		dst[i] = v * s
	}
	return out
}

// binaryOp applies f element-wise over two float32 tensors, broadcasting
// shapes as needed.
func binaryOp(name string, x, y *tensor.RawTensor, f func(a, b float32) float32) *tensor.RawTensor {
	outShape, err := tensor.Broadcast(x.Shape(), y.Shape())
	if err != nil {
		panic(fmt.Sprintf("cpu: %s: %v", name, err))
	}

	out, err := tensor.NewRaw(outShape, tensor.Float32)
	if err != nil {
		panic(err)
	}

	xData := x.AsFloat32()
	yData := y.AsFloat32()
	dst := out.AsFloat32()

	// Fast path: identical shapes, no index translation.
	if x.Shape().Equal(y.Shape()) {
		for i := range dst {
			dst[i] = f(xData[i], yData[i])
		}
		return out
	}

	outStrides := outShape.Strides()
	xIndex := broadcastIndexer(x.Shape(), outShape)
	yIndex := broadcastIndexer(y.Shape(), outShape)

	for i := range dst {
		coords := unravel(i, outStrides)
		dst[i] = f(xData[xIndex(coords)], yData[yIndex(coords)])
	}
	return out
}

// unravel converts a flat index into per-dimension coordinates.
func unravel(flat int, strides []int) []int {
	coords := make([]int, len(strides))
	for d, stride := range strides {
		coords[d] = flat / stride
		flat %= stride
	}
	return coords
}

// broadcastIndexer returns a function mapping output coordinates to a flat
// index into a tensor of the given (possibly smaller) shape. Broadcast
// dimensions of size 1 pin the coordinate to 0; missing leading dimensions
// are skipped.
func broadcastIndexer(shape, outShape tensor.Shape) func(coords []int) int {
	strides := shape.Strides()
	offset := len(outShape) - len(shape)

	return func(coords []int) int {
		flat := 0
		for d := 0; d < len(shape); d++ {
			c := coords[d+offset]
			if shape[d] == 1 {
				c = 0
			}
			flat += c * strides[d]
		}
		return flat
	}
}
