// Package nn provides neural network building blocks: the Module interface,
// trainable parameters, the Linear layer, activations, the Sequential
// container, loss functions and weight initializers.
//
// Modules compose into networks either as hand-written structs with an
// explicit Forward method, or by stacking layers:
//
//	model := nn.NewSequential(
//	    nn.NewLinear(784, 64, src, backend),
//	    nn.NewReLU[B](),
//	    nn.NewLinear(64, 10, src, backend),
//	)
package nn

import (
	"github.com/petal-ml/petal/internal/tensor"
)

// Module is the base interface for all network components.
type Module[B tensor.Backend] interface {
	// Forward computes the module output for the given input.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of the module,
	// including those of nested modules. Modules without parameters
	// (activations) return nil.
	Parameters() []*Parameter[B]
}
