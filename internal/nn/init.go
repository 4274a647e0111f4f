package nn

import (
	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/petal-ml/petal/internal/tensor"
)

// Gaussian creates a tensor with elements drawn from N(0, sigma²).
//
// The random source controls reproducibility: the same source state yields
// identical parameters, which the training command relies on for seeded runs.
func Gaussian[B tensor.Backend](shape tensor.Shape, sigma float64, src xrand.Source, b B) *tensor.Tensor[float32, B] {
	normal := distuv.Normal{Mu: 0, Sigma: sigma, Src: src}

	t := tensor.Zeros[float32](shape, b)
	data := t.Data()
	for i := range data {
		data[i] = float32(normal.Rand())
	}
	return t
}

// Zeros creates a zero tensor, the conventional bias initialization.
func Zeros[B tensor.Backend](shape tensor.Shape, b B) *tensor.Tensor[float32, B] {
	return tensor.Zeros[float32](shape, b)
}
