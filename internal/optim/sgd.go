package optim

import (
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/petal-ml/petal/internal/nn"
	"github.com/petal-ml/petal/internal/tensor"
)

// SGD implements stochastic gradient descent with optional momentum.
//
// Without momentum:
//
//	param = param - lr * grad
//
// With momentum:
//
//	velocity = momentum * velocity + grad
//	param = param - lr * velocity
type SGD[B tensor.Backend] struct {
	params     []*nn.Parameter[B]
	lr         float32
	momentum   float32
	velocities map[*nn.Parameter[B]][]float32
}

// SGDConfig holds SGD hyperparameters.
type SGDConfig struct {
	LR       float32 // learning rate (default 0.01)
	Momentum float32 // momentum factor in [0, 1) (default 0)
}

// NewSGD creates an SGD optimizer over the given parameters.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig) *SGD[B] {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD[B]{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		velocities: make(map[*nn.Parameter[B]][]float32),
	}
}

// Step applies one gradient descent update to every parameter that has a
// gradient. Updates run through gonum's float32 BLAS vector kernels.
func (s *SGD[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, param := range s.params {
		grad := gradientFor(param, grads)
		if grad == nil {
			continue
		}

		paramData := param.Tensor().Raw().AsFloat32()
		gradData := grad.AsFloat32()

		update := gradData
		if s.momentum != 0 {
			velocity, ok := s.velocities[param]
			if !ok {
				velocity = make([]float32, len(paramData))
				s.velocities[param] = velocity
			}
			// velocity = momentum*velocity + grad
			blas32.Scal(s.momentum, vec(velocity))
			blas32.Axpy(1, vec(gradData), vec(velocity))
			update = velocity
		}

		// param -= lr * update
		blas32.Axpy(-s.lr, vec(update), vec(paramData))
	}
}

// LR returns the current learning rate.
func (s *SGD[B]) LR() float32 { return s.lr }

// SetLR updates the learning rate (for manual schedules).
func (s *SGD[B]) SetLR(lr float32) { s.lr = lr }

// vec wraps a slice as a unit-stride BLAS vector.
func vec(data []float32) blas32.Vector {
	return blas32.Vector{N: len(data), Inc: 1, Data: data}
}
