// Package optim implements optimization algorithms for training networks.
//
// Optimizers consume the gradient map produced by the autodiff backward
// pass and mutate parameter storage in place:
//
//	grads := autodiff.Backward(loss, backend)
//	optimizer.Step(grads)
package optim

import (
	"github.com/petal-ml/petal/internal/nn"
	"github.com/petal-ml/petal/internal/tensor"
)

// Optimizer updates model parameters from computed gradients.
type Optimizer interface {
	// Step applies one update to all parameters. Gradients are looked up
	// by raw tensor identity; parameters absent from the map are skipped.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// LR returns the current learning rate.
	LR() float32
}

// gradientFor retrieves the gradient for a parameter, or nil when the
// parameter did not take part in the forward pass.
func gradientFor[B tensor.Backend](p *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) *tensor.RawTensor {
	if p == nil {
		return nil
	}
	return grads[p.Tensor().Raw()]
}
