// Package model defines the MNIST classification network in its two
// equivalent forms: a hand-written forward-pass struct and a sequential
// layer stack. Both describe the same architecture,
// 784 → hidden → hidden → 10 with ReLU between the affine layers,
// and given the same random source they initialize identically.
package model

import (
	"fmt"

	xrand "golang.org/x/exp/rand"

	"github.com/petal-ml/petal/internal/nn"
	"github.com/petal-ml/petal/internal/tensor"
)

// Network dimensions.
const (
	InputDim      = 784 // 28×28 flattened image
	NumClasses    = 10
	DefaultHidden = 64
)

// MLP is the hand-written composition: each layer is a named field and
// Forward spells out the data flow.
type MLP[B tensor.Backend] struct {
	fc1  *nn.Linear[B]
	fc2  *nn.Linear[B]
	fc3  *nn.Linear[B]
	relu *nn.ReLU[B]
}

// NewMLP builds the network with the given hidden width. Weights are drawn
// from the random source layer by layer, so a fixed source reproduces the
// same initial parameters.
func NewMLP[B tensor.Backend](hidden int, src xrand.Source, backend B) *MLP[B] {
	if hidden <= 0 {
		hidden = DefaultHidden
	}
	return &MLP[B]{
		fc1:  nn.NewLinear(InputDim, hidden, src, backend),
		fc2:  nn.NewLinear(hidden, hidden, src, backend),
		fc3:  nn.NewLinear(hidden, NumClasses, src, backend),
		relu: nn.NewReLU[B](),
	}
}

// Forward maps images [batch, 784] to class logits [batch, 10].
// A single flattened image [784] is accepted and treated as a batch of one.
// Softmax is not applied: CrossEntropyLoss fuses it.
func (m *MLP[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	switch {
	case len(shape) == 1 && shape[0] == InputDim:
		input = input.Reshape(1, InputDim)
	case len(shape) == 2 && shape[1] == InputDim:
		// Already [batch, 784].
	default:
		panic(fmt.Sprintf("model: MLP expects input shape [batch, %d] or [%d], got %v", InputDim, InputDim, shape))
	}

	x := m.relu.Forward(m.fc1.Forward(input))
	x = m.relu.Forward(m.fc2.Forward(x))
	return m.fc3.Forward(x)
}

// Parameters returns the parameters of all three layers.
func (m *MLP[B]) Parameters() []*nn.Parameter[B] {
	params := make([]*nn.Parameter[B], 0, 6)
	params = append(params, m.fc1.Parameters()...)
	params = append(params, m.fc2.Parameters()...)
	params = append(params, m.fc3.Parameters()...)
	return params
}

// NewSequentialMLP builds the same architecture as NewMLP using the
// Sequential container.
func NewSequentialMLP[B tensor.Backend](hidden int, src xrand.Source, backend B) *nn.Sequential[B] {
	if hidden <= 0 {
		hidden = DefaultHidden
	}
	return nn.NewSequential[B](
		nn.NewLinear(InputDim, hidden, src, backend),
		nn.NewReLU[B](),
		nn.NewLinear(hidden, hidden, src, backend),
		nn.NewReLU[B](),
		nn.NewLinear(hidden, NumClasses, src, backend),
	)
}
