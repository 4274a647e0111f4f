package nn

import (
	"github.com/petal-ml/petal/internal/tensor"
)

// Accuracy computes the fraction of rows whose argmax prediction equals the
// target label. Logits have shape [batch, classes], targets [batch].
// The result is in [0, 1].
func Accuracy[B tensor.Backend](
	logits *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int32, B],
) float64 {
	preds := logits.Backend().Argmax(logits.Raw()).AsInt32()
	targetData := targets.Data()

	correct := 0
	for i, p := range preds {
		if p == targetData[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(preds))
}
