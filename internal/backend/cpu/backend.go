// Package cpu implements the CPU compute backend.
//
// Element-wise kernels are plain Go loops over flat float32 slices; dense
// matrix multiplication goes through gonum's float32 BLAS. All operations
// allocate a fresh output tensor, which keeps the autodiff decorator free of
// aliasing concerns.
package cpu

import (
	"fmt"

	"github.com/klauspost/cpuid/v2"

	"github.com/petal-ml/petal/internal/tensor"
)

// Backend is the CPU implementation of tensor.Backend.
type Backend struct {
	name string
}

// New creates a CPU backend.
func New() *Backend {
	return &Backend{name: "cpu (" + vectorISA() + ")"}
}

// vectorISA reports the widest vector extension the host CPU supports.
func vectorISA() string {
	switch {
	case cpuid.CPU.Supports(cpuid.AVX512F):
		return "avx512"
	case cpuid.CPU.Supports(cpuid.AVX2):
		return "avx2"
	case cpuid.CPU.Supports(cpuid.AVX):
		return "avx"
	case cpuid.CPU.Supports(cpuid.SSE2):
		return "sse2"
	default:
		return "generic"
	}
}

// Name returns the backend name, including the detected vector ISA.
func (b *Backend) Name() string {
	return b.name
}

// Reshape returns a view of t with a new shape. The buffer is shared; only
// the shape header changes.
func (b *Backend) Reshape(t *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	out, err := t.View(shape)
	if err != nil {
		panic(fmt.Sprintf("cpu: reshape: %v", err))
	}
	return out
}

// Transpose returns the transpose of a 2D tensor.
func (b *Backend) Transpose(t *tensor.RawTensor) *tensor.RawTensor {
	shape := t.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("cpu: transpose expects a 2D tensor, got shape %v", shape))
	}
	rows, cols := shape[0], shape[1]

	out, err := tensor.NewRaw(tensor.Shape{cols, rows}, t.DType())
	if err != nil {
		panic(err)
	}

	src := t.AsFloat32()
	dst := out.AsFloat32()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dst[j*rows+i] = src[i*cols+j]
		}
	}
	return out
}
