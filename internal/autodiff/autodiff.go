// Package autodiff implements reverse-mode automatic differentiation.
//
// Backend is a decorator: it wraps any tensor.Backend and records every
// differentiable operation on a gradient tape during the forward pass.
// Walking the tape in reverse yields gradients for every tensor that
// contributed to the output, keyed by tensor identity.
//
// Usage:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	logits := model.Forward(images)
//	loss := criterion.Forward(logits, labels)
//	grads := autodiff.Backward(loss, backend)
//	optimizer.Step(grads)
package autodiff

import (
	"github.com/petal-ml/petal/internal/tensor"
)

// Backend wraps an inner compute backend and records operations on a tape.
// It implements tensor.Backend.
type Backend[B tensor.Backend] struct {
	inner B
	tape  *Tape
}

// New creates an autodiff Backend wrapping the given compute backend.
func New[B tensor.Backend](inner B) *Backend[B] {
	return &Backend[B]{inner: inner, tape: NewTape()}
}

// Tape returns the gradient tape for recording control.
func (b *Backend[B]) Tape() *Tape { return b.tape }

// Inner returns the wrapped backend.
func (b *Backend[B]) Inner() B { return b.inner }

// Name returns the backend name.
func (b *Backend[B]) Name() string {
	return "autodiff(" + b.inner.Name() + ")"
}

// Add performs element-wise addition and records the operation.
func (b *Backend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Add(x, y)
	b.tape.Record(&addOp{inputs: []*tensor.RawTensor{x, y}, output: out})
	return out
}

// Sub performs element-wise subtraction and records the operation.
func (b *Backend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sub(x, y)
	b.tape.Record(&subOp{inputs: []*tensor.RawTensor{x, y}, output: out})
	return out
}

// Mul performs element-wise multiplication and records the operation.
func (b *Backend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Mul(x, y)
	b.tape.Record(&mulOp{inputs: []*tensor.RawTensor{x, y}, output: out})
	return out
}

// MulScalar scales by a constant and records the operation.
func (b *Backend[B]) MulScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	out := b.inner.MulScalar(x, s)
	b.tape.Record(&mulScalarOp{input: x, output: out, scalar: s})
	return out
}

// MatMul performs matrix multiplication and records the operation.
func (b *Backend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.MatMul(x, y)
	b.tape.Record(&matMulOp{inputs: []*tensor.RawTensor{x, y}, output: out})
	return out
}

// Reshape reshapes a tensor and records the operation, so gradients reach
// the pre-reshape tensor (bias vectors are reshaped for broadcasting).
func (b *Backend[B]) Reshape(t *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	out := b.inner.Reshape(t, shape)
	b.tape.Record(&reshapeOp{input: t, output: out})
	return out
}

// Transpose transposes a tensor and records the operation.
func (b *Backend[B]) Transpose(t *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Transpose(t)
	b.tape.Record(&transposeOp{input: t, output: out})
	return out
}

// ReLU applies the rectifier and records the operation.
func (b *Backend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.ReLU(x)
	b.tape.Record(&reluOp{input: x, output: out})
	return out
}

// Sum reduces to a scalar and records the operation.
func (b *Backend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	out := b.inner.Sum(x)
	b.tape.Record(&sumOp{input: x, output: out})
	return out
}

// Softmax delegates to the inner backend. It is not differentiated: the
// training path uses the fused CrossEntropy operation, softmax appears only
// in evaluation.
func (b *Backend[B]) Softmax(x *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.Softmax(x)
}

// Argmax delegates to the inner backend (integer output, no gradient).
func (b *Backend[B]) Argmax(x *tensor.RawTensor) *tensor.RawTensor {
	return b.inner.Argmax(x)
}

// CrossEntropy computes mean softmax cross-entropy between logits
// [batch, classes] and integer targets [batch], recording the fused
// operation for the backward pass. Returns a scalar tensor of shape {1}.
func (b *Backend[B]) CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	out := crossEntropyForward(logits, targets)
	b.tape.Record(&crossEntropyOp{logits: logits, targets: targets, output: out})
	return out
}

// TapeBackend is satisfied by backends that can run a backward pass.
type TapeBackend interface {
	tensor.Backend
	Tape() *Tape
}

// Backward seeds the output gradient with ones and computes gradients for
// everything recorded on the backend's tape.
func Backward[T tensor.DType, B TapeBackend](t *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	tape := backend.Tape()
	if tape.NumOps() == 0 {
		panic("autodiff: no operations recorded (is the tape recording?)")
	}

	seed, err := tensor.NewRaw(t.Shape(), tensor.Float32)
	if err != nil {
		panic(err)
	}
	data := seed.AsFloat32()
	for i := range data {
		data[i] = 1
	}

	return tape.Backward(seed, backend)
}
