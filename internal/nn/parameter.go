package nn

import (
	"github.com/petal-ml/petal/internal/tensor"
)

// Parameter is a trainable tensor, typically a layer weight or bias.
// Optimizers mutate the underlying storage in place; gradients are looked
// up in the map produced by the backward pass using the parameter's raw
// tensor identity.
type Parameter[B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[float32, B]
}

// NewParameter wraps an initialized tensor as a trainable parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{name: name, tensor: t}
}

// Name returns the parameter name (e.g. "weight", "bias").
func (p *Parameter[B]) Name() string { return p.name }

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] { return p.tensor }
