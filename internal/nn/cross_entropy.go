package nn

import (
	"fmt"
	"math"

	"github.com/petal-ml/petal/internal/tensor"
)

// CrossEntropyLoss computes softmax cross-entropy for multi-class
// classification, as the mean over the batch.
//
// It expects raw logits: softmax is fused into the loss, which is both
// numerically stable (log-sum-exp trick) and gives the simple gradient
// softmax(logits) - onehot(targets).
type CrossEntropyLoss[B tensor.Backend] struct {
	backend B
}

// NewCrossEntropyLoss creates a cross-entropy loss function.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{backend: backend}
}

// crossEntropyBackend is satisfied by backends with a fused, differentiable
// cross-entropy operation (the autodiff decorator).
type crossEntropyBackend interface {
	CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor
}

// Forward computes the scalar loss for logits [batch, classes] and integer
// targets [batch].
//
// With an autodiff-aware backend the fused operation is recorded on the
// tape; otherwise the loss is computed directly (evaluation paths).
func (c *CrossEntropyLoss[B]) Forward(
	logits *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int32, B],
) *tensor.Tensor[float32, B] {
	if ce, ok := any(c.backend).(crossEntropyBackend); ok {
		return tensor.New[float32, B](ce.CrossEntropy(logits.Raw(), targets.Raw()), c.backend)
	}

	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("nn: cross-entropy expects 2D logits, got shape %v", shape))
	}
	batch, classes := shape[0], shape[1]

	targetsData := targets.Data()
	if len(targetsData) != batch {
		panic(fmt.Sprintf("nn: cross-entropy targets must have shape [%d], got %v", batch, targets.Shape()))
	}

	logitsData := logits.Data()
	var total float32
	for b := 0; b < batch; b++ {
		row := logitsData[b*classes : (b+1)*classes]
		target := int(targetsData[b])
		if target < 0 || target >= classes {
			panic(fmt.Sprintf("nn: target %d out of range [0, %d)", target, classes))
		}
		total += -logSoftmax(row)[target]
	}

	out := tensor.Zeros[float32](tensor.Shape{1}, c.backend)
	out.Data()[0] = total / float32(batch)
	return out
}

// logSoftmax computes log(softmax(z)) using the log-sum-exp trick.
func logSoftmax(z []float32) []float32 {
	maxVal := z[0]
	for _, v := range z[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	var sumExp float32
	for _, v := range z {
		sumExp += float32(math.Exp(float64(v - maxVal)))
	}
	logSumExp := maxVal + float32(math.Log(float64(sumExp)))

	out := make([]float32, len(z))
	for i, v := range z {
		out[i] = v - logSumExp
	}
	return out
}
