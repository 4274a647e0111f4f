package cpu

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/petal-ml/petal/internal/tensor"
)

// MatMul performs 2D matrix multiplication via gonum's float32 BLAS:
// [M, K] @ [K, N] -> [M, N].
func (b *Backend) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	xShape, yShape := x.Shape(), y.Shape()
	if len(xShape) != 2 || len(yShape) != 2 {
		panic(fmt.Sprintf("cpu: matmul expects 2D tensors, got %v and %v", xShape, yShape))
	}
	m, k := xShape[0], xShape[1]
	if yShape[0] != k {
		panic(fmt.Sprintf("cpu: matmul inner dimensions differ: %v @ %v", xShape, yShape))
	}
	n := yShape[1]

	out, err := tensor.NewRaw(tensor.Shape{m, n}, tensor.Float32)
	if err != nil {
		panic(err)
	}

	a := blas32.General{Rows: m, Cols: k, Stride: k, Data: x.AsFloat32()}
	bm := blas32.General{Rows: k, Cols: n, Stride: n, Data: y.AsFloat32()}
	c := blas32.General{Rows: m, Cols: n, Stride: n, Data: out.AsFloat32()}

	blas32.Gemm(blas.NoTrans, blas.NoTrans, 1, a, bm, 0, c)
	return out
}
