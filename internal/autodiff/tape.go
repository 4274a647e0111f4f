package autodiff

import (
	"github.com/petal-ml/petal/internal/tensor"
)

// Operation is a differentiable operation recorded on the tape during the
// forward pass. Each operation knows how to turn the gradient of its output
// into gradients of its inputs.
type Operation interface {
	// Backward computes input gradients given the output gradient.
	// The returned slice matches Inputs() positionally.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the input tensors of the operation.
	Inputs() []*tensor.RawTensor

	// Output returns the tensor the operation produced.
	Output() *tensor.RawTensor
}

// Tape records operations during the forward pass and replays them in
// reverse to compute gradients (reverse-mode automatic differentiation).
type Tape struct {
	operations []Operation
	recording  bool
}

// NewTape creates an empty tape. Recording starts disabled.
func NewTape() *Tape {
	return &Tape{operations: make([]Operation, 0, 64)}
}

// StartRecording enables operation recording.
func (t *Tape) StartRecording() { t.recording = true }

// StopRecording disables operation recording.
func (t *Tape) StopRecording() { t.recording = false }

// IsRecording reports whether operations are currently being recorded.
func (t *Tape) IsRecording() bool { return t.recording }

// Record appends an operation if the tape is recording.
func (t *Tape) Record(op Operation) {
	if t.recording {
		t.operations = append(t.operations, op)
	}
}

// Clear drops all recorded operations. The recording flag is preserved.
func (t *Tape) Clear() {
	t.operations = t.operations[:0]
}

// NumOps returns the number of recorded operations.
func (t *Tape) NumOps() int {
	return len(t.operations)
}

// Backward walks the tape in reverse and accumulates gradients for every
// tensor that contributed to the output.
//
// The returned map is keyed by *RawTensor identity; look up a parameter's
// gradient with grads[param.Raw()]. Tensors reused by several operations
// get their gradients summed, per the chain rule.
func (t *Tape) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) map[*tensor.RawTensor]*tensor.RawTensor {
	grads := make(map[*tensor.RawTensor]*tensor.RawTensor)
	if len(t.operations) == 0 {
		return grads
	}

	// Gradient computation must not append to the tape.
	wasRecording := t.recording
	t.recording = false
	defer func() { t.recording = wasRecording }()

	last := t.operations[len(t.operations)-1]
	grads[last.Output()] = outputGrad

	for i := len(t.operations) - 1; i >= 0; i-- {
		op := t.operations[i]
		outGrad, ok := grads[op.Output()]
		if !ok {
			// No gradient flows through this operation's output.
			continue
		}

		inputGrads := op.Backward(outGrad, backend)
		inputs := op.Inputs()
		for j, input := range inputs {
			if j >= len(inputGrads) || inputGrads[j] == nil {
				continue
			}
			if existing, ok := grads[input]; ok {
				grads[input] = backend.Add(existing, inputGrads[j])
			} else {
				grads[input] = inputGrads[j]
			}
		}
	}

	return grads
}
