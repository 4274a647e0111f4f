package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xrand "golang.org/x/exp/rand"

	"github.com/petal-ml/petal/internal/backend/cpu"
	"github.com/petal-ml/petal/internal/tensor"
)

type Backend = *cpu.Backend

func TestLinearForwardShape(t *testing.T) {
	backend := cpu.New()
	layer := NewLinear(4, 3, xrand.NewSource(1), backend)

	input := tensor.Zeros[float32](tensor.Shape{5, 4}, backend)
	out := layer.Forward(input)

	assert.True(t, tensor.Shape{5, 3}.Equal(out.Shape()))
	assert.Equal(t, 4, layer.InFeatures())
	assert.Equal(t, 3, layer.OutFeatures())
}

func TestLinearForwardValues(t *testing.T) {
	backend := cpu.New()
	layer := NewLinear(2, 2, xrand.NewSource(1), backend)

	// Overwrite the initialized parameters with known values.
	// W = [1 2; 3 4], b = [10, 20].
	copy(layer.Weight().Tensor().Data(), []float32{1, 2, 3, 4})
	copy(layer.Bias().Tensor().Data(), []float32{10, 20})

	input, err := tensor.FromSlice[float32]([]float32{1, 1, 2, 0}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)

	// y = x @ Wᵀ + b:
	// row 0: [1*1+1*2+10, 1*3+1*4+20] = [13, 27]
	// row 1: [2*1+0*2+10, 2*3+0*4+20] = [12, 26]
	out := layer.Forward(input)
	assert.Equal(t, []float32{13, 27, 12, 26}, out.Data())
}

func TestLinearRejectsBadInput(t *testing.T) {
	backend := cpu.New()
	layer := NewLinear(4, 3, xrand.NewSource(1), backend)

	assert.Panics(t, func() {
		layer.Forward(tensor.Zeros[float32](tensor.Shape{4}, backend))
	}, "1D input")
	assert.Panics(t, func() {
		layer.Forward(tensor.Zeros[float32](tensor.Shape{2, 5}, backend))
	}, "wrong feature count")
}

func TestLinearParameters(t *testing.T) {
	backend := cpu.New()
	layer := NewLinear(4, 3, xrand.NewSource(1), backend)

	params := layer.Parameters()
	require.Len(t, params, 2)
	assert.Equal(t, "weight", params[0].Name())
	assert.Equal(t, "bias", params[1].Name())
	assert.True(t, tensor.Shape{3, 4}.Equal(params[0].Tensor().Shape()))
	assert.True(t, tensor.Shape{3}.Equal(params[1].Tensor().Shape()))
}

func TestLinearInitialization(t *testing.T) {
	backend := cpu.New()
	layer := NewLinear(100, 100, xrand.NewSource(7), backend)

	// Bias starts at zero.
	for _, v := range layer.Bias().Tensor().Data() {
		require.Zero(t, v)
	}

	// Weights follow N(0, 0.01²): check sample mean and stddev.
	weights := layer.Weight().Tensor().Data()
	var sum, sumSq float64
	for _, v := range weights {
		sum += float64(v)
		sumSq += float64(v) * float64(v)
	}
	n := float64(len(weights))
	mean := sum / n
	std := math.Sqrt(sumSq/n - mean*mean)

	assert.InDelta(t, 0, mean, 1e-3)
	assert.InDelta(t, 0.01, std, 2e-3)
}

func TestGaussianReproducible(t *testing.T) {
	backend := cpu.New()

	a := Gaussian(tensor.Shape{10}, 0.01, xrand.NewSource(42), backend)
	b := Gaussian(tensor.Shape{10}, 0.01, xrand.NewSource(42), backend)
	c := Gaussian(tensor.Shape{10}, 0.01, xrand.NewSource(43), backend)

	assert.Equal(t, a.Data(), b.Data(), "same seed must reproduce the init")
	assert.NotEqual(t, a.Data(), c.Data())
}

func TestSequentialMatchesManualApplication(t *testing.T) {
	backend := cpu.New()

	l1 := NewLinear(4, 3, xrand.NewSource(1), backend)
	relu := NewReLU[Backend]()
	l2 := NewLinear(3, 2, xrand.NewSource(2), backend)
	seq := NewSequential[Backend](l1, relu, l2)

	input, err := tensor.FromSlice[float32]([]float32{1, -2, 3, -4}, tensor.Shape{1, 4}, backend)
	require.NoError(t, err)

	want := l2.Forward(relu.Forward(l1.Forward(input)))
	got := seq.Forward(input)

	assert.Equal(t, want.Data(), got.Data())
	assert.Equal(t, 3, seq.Len())
	assert.Len(t, seq.Parameters(), 4)
}

func TestSequentialAdd(t *testing.T) {
	backend := cpu.New()
	seq := NewSequential[Backend]()
	seq.Add(NewLinear(2, 2, xrand.NewSource(1), backend))
	assert.Equal(t, 1, seq.Len())
}

func TestReLUModule(t *testing.T) {
	backend := cpu.New()
	relu := NewReLU[Backend]()

	input, err := tensor.FromSlice[float32]([]float32{-1, 0, 2}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	assert.Equal(t, []float32{0, 0, 2}, relu.Forward(input).Data())
	assert.Nil(t, relu.Parameters())
}

func TestCrossEntropyUniformLogits(t *testing.T) {
	backend := cpu.New()
	criterion := NewCrossEntropyLoss(backend)

	logits := tensor.Zeros[float32](tensor.Shape{4, 10}, backend)
	targets, err := tensor.FromSlice[int32]([]int32{0, 3, 7, 9}, tensor.Shape{4}, backend)
	require.NoError(t, err)

	loss := criterion.Forward(logits, targets)
	assert.InDelta(t, math.Log(10), float64(loss.Data()[0]), 1e-5)
}

func TestCrossEntropyConfidentCorrectPrediction(t *testing.T) {
	backend := cpu.New()
	criterion := NewCrossEntropyLoss(backend)

	logits, err := tensor.FromSlice[float32]([]float32{10, 0, 0}, tensor.Shape{1, 3}, backend)
	require.NoError(t, err)
	targets, err := tensor.FromSlice[int32]([]int32{0}, tensor.Shape{1}, backend)
	require.NoError(t, err)

	loss := criterion.Forward(logits, targets)
	assert.Less(t, float64(loss.Data()[0]), 0.001)
	assert.GreaterOrEqual(t, float64(loss.Data()[0]), 0.0)
}

func TestCrossEntropyLargeLogitsStable(t *testing.T) {
	backend := cpu.New()
	criterion := NewCrossEntropyLoss(backend)

	logits, err := tensor.FromSlice[float32]([]float32{1000, 999, 998}, tensor.Shape{1, 3}, backend)
	require.NoError(t, err)
	targets, err := tensor.FromSlice[int32]([]int32{0}, tensor.Shape{1}, backend)
	require.NoError(t, err)

	loss := float64(criterion.Forward(logits, targets).Data()[0])
	assert.False(t, math.IsNaN(loss))
	assert.False(t, math.IsInf(loss, 0))
	assert.GreaterOrEqual(t, loss, 0.0)
}

func TestCrossEntropyRejectsBadTarget(t *testing.T) {
	backend := cpu.New()
	criterion := NewCrossEntropyLoss(backend)

	logits := tensor.Zeros[float32](tensor.Shape{1, 3}, backend)
	targets, err := tensor.FromSlice[int32]([]int32{5}, tensor.Shape{1}, backend)
	require.NoError(t, err)

	assert.Panics(t, func() { criterion.Forward(logits, targets) })
}

func TestAccuracy(t *testing.T) {
	backend := cpu.New()

	logits, err := tensor.FromSlice[float32]([]float32{
		0.9, 0.1, 0.0, // pred 0
		0.1, 0.8, 0.1, // pred 1
		0.2, 0.3, 0.5, // pred 2
		0.7, 0.2, 0.1, // pred 0
	}, tensor.Shape{4, 3}, backend)
	require.NoError(t, err)

	targets, err := tensor.FromSlice[int32]([]int32{0, 1, 0, 1}, tensor.Shape{4}, backend)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, Accuracy(logits, targets), 1e-9)
}
