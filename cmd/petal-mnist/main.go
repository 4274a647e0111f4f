// Command petal-mnist trains a small multi-layer perceptron on the MNIST
// handwritten digit dataset and reports loss and accuracy after each epoch.
//
// Usage:
//
//	go run ./cmd/petal-mnist -data ./data -epochs 10 -batch 256 -lr 0.5
//
// The dataset is downloaded on first use (four gzip'd IDX files, ~11 MB).
package main

import (
	"flag"
	"fmt"
	"os"

	xrand "golang.org/x/exp/rand"

	"github.com/petal-ml/petal/internal/autodiff"
	"github.com/petal-ml/petal/internal/backend/cpu"
	"github.com/petal-ml/petal/internal/mnist"
	"github.com/petal-ml/petal/internal/model"
	"github.com/petal-ml/petal/internal/nn"
	"github.com/petal-ml/petal/internal/optim"
	"github.com/petal-ml/petal/internal/trainer"
)

func main() {
	dataDir := flag.String("data", "data", "directory for the MNIST IDX files")
	download := flag.Bool("download", true, "download missing dataset files")
	epochs := flag.Int("epochs", 10, "number of training epochs")
	batchSize := flag.Int("batch", 256, "mini-batch size")
	lr := flag.Float64("lr", 0.5, "learning rate")
	hidden := flag.Int("hidden", model.DefaultHidden, "hidden layer width")
	seed := flag.Int64("seed", 1, "random seed for init and shuffling")
	arch := flag.String("arch", "explicit", "model composition: explicit or sequential")
	optName := flag.String("optimizer", "sgd", "optimizer: sgd or adam")
	momentum := flag.Float64("momentum", 0, "SGD momentum factor")
	maxSamples := flag.Int("max-samples", 0, "limit training samples (0 = all)")
	flag.Parse()

	if err := run(*dataDir, *download, *epochs, *batchSize, *hidden, *maxSamples,
		float32(*lr), float32(*momentum), *seed, *arch, *optName); err != nil {
		fmt.Fprintln(os.Stderr, "petal-mnist:", err)
		os.Exit(1)
	}
}

func run(dataDir string, download bool, epochs, batchSize, hidden, maxSamples int,
	lr, momentum float32, seed int64, arch, optName string) error {
	backend := autodiff.New(cpu.New())
	fmt.Printf("backend: %s\n", backend.Name())

	if download {
		if err := mnist.Download(dataDir, mnist.DefaultBaseURL); err != nil {
			return err
		}
	}

	train, err := mnist.Load(dataDir, true, maxSamples)
	if err != nil {
		return err
	}
	test, err := mnist.Load(dataDir, false, 0)
	if err != nil {
		return err
	}
	fmt.Printf("dataset: %d train, %d test samples\n", train.NumSamples(), test.NumSamples())

	src := xrand.NewSource(uint64(seed))

	var m nn.Module[*autodiff.Backend[*cpu.Backend]]
	switch arch {
	case "explicit":
		m = model.NewMLP(hidden, src, backend)
	case "sequential":
		m = model.NewSequentialMLP(hidden, src, backend)
	default:
		return fmt.Errorf("unknown arch %q (want explicit or sequential)", arch)
	}
	fmt.Printf("model: %s, 784 -> %d -> %d -> 10\n", arch, hidden, hidden)

	var opt optim.Optimizer
	switch optName {
	case "sgd":
		opt = optim.NewSGD(m.Parameters(), optim.SGDConfig{LR: lr, Momentum: momentum})
	case "adam":
		opt = optim.NewAdam(m.Parameters(), optim.AdamConfig{LR: lr})
	default:
		return fmt.Errorf("unknown optimizer %q (want sgd or adam)", optName)
	}
	fmt.Printf("optimizer: %s, lr %g\n\n", optName, opt.LR())

	_, err = trainer.Run(trainer.Config{
		Epochs:    epochs,
		BatchSize: batchSize,
		Seed:      seed,
		Out:       os.Stdout,
	}, m, opt, train, test, backend)
	return err
}
