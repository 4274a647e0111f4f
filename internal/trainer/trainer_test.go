package trainer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xrand "golang.org/x/exp/rand"

	"github.com/petal-ml/petal/internal/autodiff"
	"github.com/petal-ml/petal/internal/backend/cpu"
	"github.com/petal-ml/petal/internal/mnist"
	"github.com/petal-ml/petal/internal/model"
	"github.com/petal-ml/petal/internal/optim"
)

// separableDataset builds a linearly separable digit stand-in: samples of
// class c light up pixel block [c*78, c*78+78).
func separableDataset(n int) *mnist.Dataset {
	images := make([][]float32, n)
	labels := make([]int32, n)
	for i := range images {
		c := i % mnist.NumClasses
		images[i] = make([]float32, mnist.ImageSize)
		for j := c * 78; j < (c+1)*78; j++ {
			images[i][j] = 1
		}
		labels[i] = int32(c)
	}
	return &mnist.Dataset{Images: images, Labels: labels}
}

func TestRunLearnsSeparableData(t *testing.T) {
	backend := autodiff.New(cpu.New())
	m := model.NewMLP(16, xrand.NewSource(1), backend)
	// Adam's step size is gradient-scale free, so it escapes the
	// small-init regime in far fewer steps than plain SGD.
	opt := optim.NewAdam(m.Parameters(), optim.AdamConfig{LR: 0.01})

	train := separableDataset(200)
	test := separableDataset(50)

	var out bytes.Buffer
	stats, err := Run(Config{Epochs: 20, BatchSize: 20, Seed: 1, Out: &out},
		m, opt, train, test, backend)
	require.NoError(t, err)
	require.Len(t, stats, 20)

	first, last := stats[0], stats[len(stats)-1]
	assert.Less(t, last.AvgLoss, first.AvgLoss, "loss must decrease")
	assert.Greater(t, last.TrainAcc, 0.9, "train accuracy on separable data")
	assert.Greater(t, last.TestAcc, 0.9, "test accuracy on separable data")

	for i, s := range stats {
		assert.Equal(t, i+1, s.Epoch)
		assert.GreaterOrEqual(t, s.AvgLoss, 0.0)
		assert.LessOrEqual(t, s.TrainAcc, 1.0)
		assert.LessOrEqual(t, s.TestAcc, 1.0)
	}

	assert.Contains(t, out.String(), "epoch 1:")
	assert.Contains(t, out.String(), "epoch 20:")
}

func TestRunWithSequentialModel(t *testing.T) {
	backend := autodiff.New(cpu.New())
	m := model.NewSequentialMLP(16, xrand.NewSource(1), backend)
	opt := optim.NewSGD(m.Parameters(), optim.SGDConfig{LR: 0.5})

	train := separableDataset(100)

	stats, err := Run(Config{Epochs: 3, BatchSize: 25, Seed: 1},
		m, opt, train, train, backend)
	require.NoError(t, err)
	assert.Less(t, stats[2].AvgLoss, stats[0].AvgLoss)
}

func TestRunSameSeedSameTrajectory(t *testing.T) {
	runOnce := func() []EpochStats {
		backend := autodiff.New(cpu.New())
		m := model.NewMLP(8, xrand.NewSource(7), backend)
		opt := optim.NewSGD(m.Parameters(), optim.SGDConfig{LR: 0.1})
		train := separableDataset(60)

		stats, err := Run(Config{Epochs: 2, BatchSize: 20, Seed: 7},
			m, opt, train, train, backend)
		require.NoError(t, err)
		return stats
	}

	assert.Equal(t, runOnce(), runOnce())
}

func TestRunValidatesConfig(t *testing.T) {
	backend := autodiff.New(cpu.New())
	m := model.NewMLP(8, xrand.NewSource(1), backend)
	opt := optim.NewSGD(m.Parameters(), optim.SGDConfig{LR: 0.1})
	data := separableDataset(10)

	_, err := Run(Config{Epochs: 0, BatchSize: 10}, m, opt, data, data, backend)
	assert.Error(t, err)

	_, err = Run(Config{Epochs: 1, BatchSize: 0}, m, opt, data, data, backend)
	assert.Error(t, err)

	empty := &mnist.Dataset{}
	_, err = Run(Config{Epochs: 1, BatchSize: 10}, m, opt, empty, data, backend)
	assert.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	backend := autodiff.New(cpu.New())
	m := model.NewMLP(8, xrand.NewSource(1), backend)
	data := separableDataset(30)

	acc, err := Evaluate(m, data, 16, backend)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, acc, 0.0)
	assert.LessOrEqual(t, acc, 1.0)
	assert.Equal(t, 0, backend.Tape().NumOps(), "evaluation must not record")
}

func TestEvaluateRestoresRecordingState(t *testing.T) {
	backend := autodiff.New(cpu.New())
	m := model.NewMLP(8, xrand.NewSource(1), backend)
	data := separableDataset(10)

	backend.Tape().StartRecording()
	_, err := Evaluate(m, data, 10, backend)
	require.NoError(t, err)
	assert.True(t, backend.Tape().IsRecording())

	backend.Tape().StopRecording()
	backend.Tape().Clear()
	_, err = Evaluate(m, data, 10, backend)
	require.NoError(t, err)
	assert.False(t, backend.Tape().IsRecording())
}
