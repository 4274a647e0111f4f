package nn

import (
	"fmt"

	xrand "golang.org/x/exp/rand"

	"github.com/petal-ml/petal/internal/tensor"
)

// weightSigma is the standard deviation of the zero-mean Gaussian used for
// weight initialization.
const weightSigma = 0.01

// Linear is a fully connected layer computing y = x @ Wᵀ + b.
//
// Shapes:
//   - input x: [batch, in]
//   - weight W: [out, in]
//   - bias b: [out]
//   - output y: [batch, out]
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B]
	bias        *Parameter[B]
}

// NewLinear creates a Linear layer. Weights are drawn from N(0, 0.01²)
// using the given random source; biases start at zero.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, src xrand.Source, backend B) *Linear[B] {
	weight := Gaussian(tensor.Shape{outFeatures, inFeatures}, weightSigma, src, backend)
	bias := Zeros(tensor.Shape{outFeatures}, backend)

	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter("weight", weight),
		bias:        NewParameter("bias", bias),
	}
}

// Forward computes y = x @ Wᵀ + b for input of shape [batch, in].
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("nn: Linear expects 2D input [batch, features], got shape %v", shape))
	}
	if shape[1] != l.inFeatures {
		panic(fmt.Sprintf("nn: Linear expects %d input features, got %d", l.inFeatures, shape[1]))
	}

	// [batch, in] @ [in, out] -> [batch, out]
	out := input.MatMul(l.weight.Tensor().Transpose())

	// Bias broadcasts across the batch as [1, out].
	return out.Add(l.bias.Tensor().Reshape(1, l.outFeatures))
}

// Parameters returns [weight, bias].
func (l *Linear[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.weight, l.bias}
}

// Weight returns the weight parameter.
func (l *Linear[B]) Weight() *Parameter[B] { return l.weight }

// Bias returns the bias parameter.
func (l *Linear[B]) Bias() *Parameter[B] { return l.bias }

// InFeatures returns the input width.
func (l *Linear[B]) InFeatures() int { return l.inFeatures }

// OutFeatures returns the output width.
func (l *Linear[B]) OutFeatures() int { return l.outFeatures }
