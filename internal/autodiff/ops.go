package autodiff

import (
	"fmt"
	"math"

	"github.com/petal-ml/petal/internal/tensor"
)

// addOp: output = a + b.
// d(a+b)/da = d(a+b)/db = 1; broadcast dimensions are summed out.
type addOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

func (op *addOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		reduceToShape(g, op.inputs[0].Shape(), backend),
		reduceToShape(g, op.inputs[1].Shape(), backend),
	}
}

func (op *addOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *addOp) Output() *tensor.RawTensor   { return op.output }

// subOp: output = a - b.
type subOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

func (op *subOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		reduceToShape(g, op.inputs[0].Shape(), backend),
		reduceToShape(backend.MulScalar(g, -1), op.inputs[1].Shape(), backend),
	}
}

func (op *subOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *subOp) Output() *tensor.RawTensor   { return op.output }

// mulOp: output = a * b (element-wise).
// d(a*b)/da = b, d(a*b)/db = a.
type mulOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

func (op *mulOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	return []*tensor.RawTensor{
		reduceToShape(backend.Mul(g, b), a.Shape(), backend),
		reduceToShape(backend.Mul(g, a), b.Shape(), backend),
	}
}

func (op *mulOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *mulOp) Output() *tensor.RawTensor   { return op.output }

// mulScalarOp: output = s * x.
type mulScalarOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	scalar float32
}

func (op *mulScalarOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MulScalar(g, op.scalar)}
}

func (op *mulScalarOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *mulScalarOp) Output() *tensor.RawTensor   { return op.output }

// matMulOp: output = a @ b.
// d(A@B)/dA = grad @ Bᵀ, d(A@B)/dB = Aᵀ @ grad.
type matMulOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

func (op *matMulOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	a, b := op.inputs[0], op.inputs[1]
	gradA := backend.MatMul(g, backend.Transpose(b))
	gradB := backend.MatMul(backend.Transpose(a), g)
	return []*tensor.RawTensor{gradA, gradB}
}

func (op *matMulOp) Inputs() []*tensor.RawTensor { return op.inputs }
func (op *matMulOp) Output() *tensor.RawTensor   { return op.output }

// transposeOp: output = xᵀ.
// Recording matters: Linear transposes its weight every forward pass, and
// the gradient must flow back through the transpose to the parameter the
// optimizer knows about.
type transposeOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

func (op *transposeOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Transpose(g)}
}

func (op *transposeOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *transposeOp) Output() *tensor.RawTensor   { return op.output }

// reshapeOp: output is a view of the input with a different shape.
type reshapeOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

func (op *reshapeOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Reshape(g, op.input.Shape())}
}

func (op *reshapeOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *reshapeOp) Output() *tensor.RawTensor   { return op.output }

// reluOp: output = max(0, x).
// d/dx = 1 where x > 0, else 0.
type reluOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

func (op *reluOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	mask, err := tensor.NewRaw(op.input.Shape(), tensor.Float32)
	if err != nil {
		panic(err)
	}
	in := op.input.AsFloat32()
	m := mask.AsFloat32()
	for i, v := range in {
		if v > 0 {
			m[i] = 1
		}
	}
	return []*tensor.RawTensor{backend.Mul(g, mask)}
}

func (op *reluOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *reluOp) Output() *tensor.RawTensor   { return op.output }

// sumOp: output = Σx (scalar).
type sumOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

func (op *sumOp) Backward(g *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grad, err := tensor.NewRaw(op.input.Shape(), tensor.Float32)
	if err != nil {
		panic(err)
	}
	scale := g.AsFloat32()[0]
	data := grad.AsFloat32()
	for i := range data {
		data[i] = scale
	}
	return []*tensor.RawTensor{grad}
}

func (op *sumOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *sumOp) Output() *tensor.RawTensor   { return op.output }

// crossEntropyOp: output = mean(-log_softmax(logits)[target]).
//
// The fused softmax + cross-entropy gradient is
//
//	dL/dlogits[b,i] = (softmax(logits[b])[i] - onehot[b,i]) / batch
//
// which is why the two are combined into a single tape operation. Only the
// logits receive a gradient; targets are integer labels.
type crossEntropyOp struct {
	logits  *tensor.RawTensor
	targets *tensor.RawTensor
	output  *tensor.RawTensor
}

func (op *crossEntropyOp) Backward(g *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.logits.Shape()
	batch, classes := shape[0], shape[1]

	grad, err := tensor.NewRaw(shape, tensor.Float32)
	if err != nil {
		panic(err)
	}

	logits := op.logits.AsFloat32()
	targets := op.targets.AsInt32()
	gradData := grad.AsFloat32()
	scale := g.AsFloat32()[0]

	for b := 0; b < batch; b++ {
		row := logits[b*classes : (b+1)*classes]
		probs := softmaxRow(row)
		target := int(targets[b])
		for i := 0; i < classes; i++ {
			v := probs[i]
			if i == target {
				v -= 1
			}
			gradData[b*classes+i] = scale * v / float32(batch)
		}
	}
	return []*tensor.RawTensor{grad}
}

func (op *crossEntropyOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.logits} }
func (op *crossEntropyOp) Output() *tensor.RawTensor   { return op.output }

// crossEntropyForward computes mean(-log_softmax(logits)[target]) as a
// scalar tensor of shape {1}.
func crossEntropyForward(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("autodiff: cross-entropy expects 2D logits, got shape %v", shape))
	}
	batch, classes := shape[0], shape[1]

	targetShape := targets.Shape()
	if len(targetShape) != 1 || targetShape[0] != batch {
		panic(fmt.Sprintf("autodiff: cross-entropy targets must have shape [%d], got %v", batch, targetShape))
	}

	out, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32)
	if err != nil {
		panic(err)
	}

	logitsData := logits.AsFloat32()
	targetsData := targets.AsInt32()

	var total float32
	for b := 0; b < batch; b++ {
		row := logitsData[b*classes : (b+1)*classes]
		target := int(targetsData[b])
		if target < 0 || target >= classes {
			panic(fmt.Sprintf("autodiff: target %d out of range [0, %d)", target, classes))
		}
		total += -logSoftmaxRow(row)[target]
	}
	out.AsFloat32()[0] = total / float32(batch)
	return out
}

// logSoftmaxRow computes log(softmax(z)) with the log-sum-exp trick.
func logSoftmaxRow(z []float32) []float32 {
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

// softmaxRow computes softmax(z) = exp(log_softmax(z)).
func softmaxRow(z []float32) []float32 {
	out := logSoftmaxRow(z)
	for i, v := range out {
		out[i] = float32(math.Exp(float64(v)))
	}
	return out
}

// reduceToShape sums a gradient down to the target shape, undoing any
// broadcasting that happened during the forward pass.
func reduceToShape(grad *tensor.RawTensor, target tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()
	if gradShape.Equal(target) {
		// Clone so accumulation never aliases a shared gradient buffer.
		return grad.Clone()
	}

	// Sum out extra leading dimensions.
	result := grad
	for len(result.Shape()) > len(target) {
		result = sumAlongDim(result, 0)
	}

	// Sum along dimensions where the target is 1.
	shape := result.Shape()
	for d := 0; d < len(target); d++ {
		if target[d] == 1 && shape[d] > 1 {
			result = sumAlongDim(result, d)
			shape = result.Shape()
		}
	}

	if !result.Shape().Equal(target) {
		result = backend.Reshape(result, target)
	}
	return result
}

// sumAlongDim sums a float32 tensor along one dimension. When the summed
// dimension is leading it is dropped; otherwise it is kept with size 1.
func sumAlongDim(t *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := t.Shape()

	outShape := shape.Clone()
	if dim == 0 {
		outShape = outShape[1:]
		if len(outShape) == 0 {
			outShape = tensor.Shape{1}
		}
	} else {
		outShape[dim] = 1
	}

	out, err := tensor.NewRaw(outShape, tensor.Float32)
	if err != nil {
		panic(err)
	}

	src := t.AsFloat32()
	dst := out.AsFloat32()

	strides := shape.Strides()
	for i, v := range src {
		outIdx := 0
		outStride := 1
		// Walk dimensions from the last to the first, skipping dim.
		for d := len(shape) - 1; d >= 0; d-- {
			if d == dim {
				continue
			}
			coord := (i / strides[d]) % shape[d]
			outIdx += coord * outStride
			outStride *= shape[d]
		}
		dst[outIdx] += v
	}
	return out
}
