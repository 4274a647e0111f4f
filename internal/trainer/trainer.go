// Package trainer runs the mini-batch training loop and per-epoch
// evaluation for MNIST classification models.
package trainer

import (
	"errors"
	"fmt"
	"io"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/petal-ml/petal/internal/autodiff"
	"github.com/petal-ml/petal/internal/mnist"
	"github.com/petal-ml/petal/internal/nn"
	"github.com/petal-ml/petal/internal/optim"
)

// Config captures the knobs of a training run.
type Config struct {
	Epochs    int
	BatchSize int
	Seed      int64
	EvalBatch int       // batch size for evaluation passes (default 1024)
	Out       io.Writer // per-epoch report destination; nil silences output
}

// EpochStats summarizes one epoch: average per-sample loss and
// classification accuracy over the full train and test sets.
type EpochStats struct {
	Epoch    int
	AvgLoss  float64
	TrainAcc float64
	TestAcc  float64
}

// Run trains the model for cfg.Epochs epochs.
//
// Each epoch iterates all training batches in a freshly shuffled order; per
// batch it records the forward pass on the tape, computes the loss,
// backpropagates and applies one optimizer step. After every epoch the model
// is evaluated over the complete train and test sets and one report line is
// written to cfg.Out.
func Run[B autodiff.TapeBackend](
	cfg Config,
	model nn.Module[B],
	opt optim.Optimizer,
	train, test *mnist.Dataset,
	backend B,
) ([]EpochStats, error) {
	if cfg.Epochs <= 0 {
		return nil, errors.New("trainer: epochs must be > 0")
	}
	if cfg.BatchSize <= 0 {
		return nil, errors.New("trainer: batch size must be > 0")
	}
	if train.NumSamples() == 0 {
		return nil, errors.New("trainer: training set is empty")
	}
	if cfg.EvalBatch <= 0 {
		cfg.EvalBatch = 1024
	}

	criterion := nn.NewCrossEntropyLoss(backend)
	tape := backend.Tape()
	stats := make([]EpochStats, 0, cfg.Epochs)

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		// One rng per epoch keeps batch order reproducible for a fixed
		// seed while still reshuffling every epoch.
		rng := rand.New(rand.NewSource(cfg.Seed + int64(epoch)))
		batches, err := mnist.Batches(train, cfg.BatchSize, rng, backend)
		if err != nil {
			return nil, err
		}

		batchLosses := make([]float64, 0, len(batches))
		for _, batch := range batches {
			tape.Clear()
			tape.StartRecording()

			logits := model.Forward(batch.Images)
			loss := criterion.Forward(logits, batch.Labels)

			grads := autodiff.Backward(loss, backend)
			tape.StopRecording()

			opt.Step(grads)

			// Loss is the batch mean; weight by batch size so the epoch
			// average is per sample even when the last batch is short.
			batchLosses = append(batchLosses, float64(loss.Data()[0])*float64(batch.Size))
		}
		tape.Clear()

		avgLoss := floats.Sum(batchLosses) / float64(train.NumSamples())

		trainAcc, err := Evaluate(model, train, cfg.EvalBatch, backend)
		if err != nil {
			return nil, err
		}
		testAcc, err := Evaluate(model, test, cfg.EvalBatch, backend)
		if err != nil {
			return nil, err
		}

		if cfg.Out != nil {
			fmt.Fprintf(cfg.Out, "epoch %d: loss %.4f, train acc %.3f, test acc %.3f\n",
				epoch, avgLoss, trainAcc, testAcc)
		}
		stats = append(stats, EpochStats{
			Epoch:    epoch,
			AvgLoss:  avgLoss,
			TrainAcc: trainAcc,
			TestAcc:  testAcc,
		})
	}

	return stats, nil
}

// Evaluate computes argmax classification accuracy over the whole dataset,
// processed in eval-sized batches without gradient recording.
func Evaluate[B autodiff.TapeBackend](
	model nn.Module[B],
	data *mnist.Dataset,
	evalBatch int,
	backend B,
) (float64, error) {
	if data.NumSamples() == 0 {
		return 0, errors.New("trainer: evaluation set is empty")
	}

	tape := backend.Tape()
	wasRecording := tape.IsRecording()
	tape.StopRecording()
	defer func() {
		if wasRecording {
			tape.StartRecording()
		}
	}()

	batches, err := mnist.Batches(data, evalBatch, nil, backend)
	if err != nil {
		return 0, err
	}

	correct := 0.0
	for _, batch := range batches {
		logits := model.Forward(batch.Images)
		correct += nn.Accuracy(logits, batch.Labels) * float64(batch.Size)
	}
	return correct / float64(data.NumSamples()), nil
}
