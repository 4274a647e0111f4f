package optim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xrand "golang.org/x/exp/rand"

	"github.com/petal-ml/petal/internal/backend/cpu"
	"github.com/petal-ml/petal/internal/nn"
	"github.com/petal-ml/petal/internal/tensor"
)

type Backend = *cpu.Backend

func newParam(t *testing.T, data []float32, backend Backend) *nn.Parameter[Backend] {
	t.Helper()
	tt, err := tensor.FromSlice[float32](data, tensor.Shape{len(data)}, backend)
	require.NoError(t, err)
	return nn.NewParameter("weight", tt)
}

func gradMap(t *testing.T, param *nn.Parameter[Backend], grad []float32) map[*tensor.RawTensor]*tensor.RawTensor {
	t.Helper()
	g, err := tensor.NewRaw(tensor.Shape{len(grad)}, tensor.Float32)
	require.NoError(t, err)
	copy(g.AsFloat32(), grad)
	return map[*tensor.RawTensor]*tensor.RawTensor{param.Tensor().Raw(): g}
}

func TestSGDStep(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, []float32{1, 2, 3}, backend)

	sgd := NewSGD([]*nn.Parameter[Backend]{param}, SGDConfig{LR: 0.5})
	sgd.Step(gradMap(t, param, []float32{0.2, -0.4, 1.0}))

	// param -= lr * grad
	got := param.Tensor().Data()
	assert.InDelta(t, 0.9, float64(got[0]), 1e-6)
	assert.InDelta(t, 2.2, float64(got[1]), 1e-6)
	assert.InDelta(t, 2.5, float64(got[2]), 1e-6)
}

func TestSGDSkipsParamsWithoutGradient(t *testing.T) {
	backend := cpu.New()
	trained := newParam(t, []float32{1}, backend)
	frozen := newParam(t, []float32{5}, backend)

	sgd := NewSGD([]*nn.Parameter[Backend]{trained, frozen}, SGDConfig{LR: 1})
	sgd.Step(gradMap(t, trained, []float32{1}))

	assert.Equal(t, float32(0), trained.Tensor().Data()[0])
	assert.Equal(t, float32(5), frozen.Tensor().Data()[0], "parameter without gradient must not move")
}

func TestSGDMomentum(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, []float32{0}, backend)

	sgd := NewSGD([]*nn.Parameter[Backend]{param}, SGDConfig{LR: 0.1, Momentum: 0.9})

	// Step 1: v = g = 1, param = -0.1*1 = -0.1
	sgd.Step(gradMap(t, param, []float32{1}))
	assert.InDelta(t, -0.1, float64(param.Tensor().Data()[0]), 1e-6)

	// Step 2: v = 0.9*1 + 1 = 1.9, param = -0.1 - 0.1*1.9 = -0.29
	sgd.Step(gradMap(t, param, []float32{1}))
	assert.InDelta(t, -0.29, float64(param.Tensor().Data()[0]), 1e-6)
}

func TestSGDDefaultsAndSetLR(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, []float32{0}, backend)

	sgd := NewSGD([]*nn.Parameter[Backend]{param}, SGDConfig{})
	assert.Equal(t, float32(0.01), sgd.LR())

	sgd.SetLR(0.5)
	assert.Equal(t, float32(0.5), sgd.LR())
}

func TestAdamFirstStepIsScaledSign(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, []float32{1, 1}, backend)

	adam := NewAdam([]*nn.Parameter[Backend]{param}, AdamConfig{LR: 0.001})
	adam.Step(gradMap(t, param, []float32{0.5, -0.5}))

	// After bias correction the first update is lr * g / (|g| + eps),
	// essentially lr in the direction opposite the gradient.
	got := param.Tensor().Data()
	assert.InDelta(t, 1-0.001, float64(got[0]), 1e-5)
	assert.InDelta(t, 1+0.001, float64(got[1]), 1e-5)
}

func TestAdamDefaults(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, []float32{0}, backend)

	adam := NewAdam([]*nn.Parameter[Backend]{param}, AdamConfig{})
	assert.Equal(t, float32(0.001), adam.LR())
}

func TestOptimizersUpdateSharedStorage(t *testing.T) {
	// The optimizer must mutate the exact tensor the layer holds, not a copy.
	backend := cpu.New()
	layer := nn.NewLinear(2, 2, xrand.NewSource(1), backend)
	before := append([]float32(nil), layer.Weight().Tensor().Data()...)

	sgd := NewSGD(layer.Parameters(), SGDConfig{LR: 1})

	grad, err := tensor.NewRaw(tensor.Shape{2, 2}, tensor.Float32)
	require.NoError(t, err)
	for i := range grad.AsFloat32() {
		grad.AsFloat32()[i] = 1
	}
	sgd.Step(map[*tensor.RawTensor]*tensor.RawTensor{layer.Weight().Tensor().Raw(): grad})

	after := layer.Weight().Tensor().Data()
	for i := range after {
		assert.InDelta(t, float64(before[i]-1), float64(after[i]), 1e-6)
	}
}
