package tensor

// Backend defines the compute operations a tensor backend must provide.
//
// The op set is scoped to feed-forward classification networks: element-wise
// arithmetic with broadcasting, dense matrix multiplication, shape
// manipulation, the ReLU nonlinearity, softmax, and the reductions needed
// for loss and accuracy reporting.
//
// Implementations:
//   - cpu.Backend: pure Go with gonum BLAS kernels
//   - autodiff.Backend: decorator adding gradient recording to any Backend
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor

	// MulScalar multiplies every element by a scalar.
	MulScalar(x *RawTensor, scalar float32) *RawTensor

	// MatMul performs 2D matrix multiplication: [M, K] @ [K, N] -> [M, N].
	MatMul(a, b *RawTensor) *RawTensor

	// Shape operations.
	Reshape(t *RawTensor, shape Shape) *RawTensor
	Transpose(t *RawTensor) *RawTensor

	// ReLU applies max(0, x) element-wise.
	ReLU(x *RawTensor) *RawTensor

	// Softmax normalizes along the last dimension.
	Softmax(x *RawTensor) *RawTensor

	// Sum reduces all elements to a scalar tensor of shape {1}.
	Sum(x *RawTensor) *RawTensor

	// Argmax returns the index of the maximum along the last dimension
	// as an Int32 tensor. For input [M, N] the result has shape [M].
	Argmax(x *RawTensor) *RawTensor

	// Name identifies the backend (for logs and error messages).
	Name() string
}
