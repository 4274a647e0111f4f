package mnist

import (
	"fmt"
	"math/rand"

	"github.com/petal-ml/petal/internal/tensor"
)

// Batch is a mini-batch ready for the model: images as a [size, 784]
// float32 tensor and labels as a [size] int32 tensor.
type Batch[B tensor.Backend] struct {
	Images *tensor.Tensor[float32, B]
	Labels *tensor.Tensor[int32, B]
	Size   int
}

// Batches splits the dataset into mini-batches. When rng is non-nil the
// sample order is shuffled first (Fisher-Yates); a seeded rng makes the
// batch order reproducible. The last batch may be smaller than batchSize.
func Batches[B tensor.Backend](d *Dataset, batchSize int, rng *rand.Rand, backend B) ([]*Batch[B], error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be > 0, got %d", batchSize)
	}
	n := d.NumSamples()
	if n != len(d.Labels) {
		return nil, fmt.Errorf("images and labels length mismatch: %d vs %d", n, len(d.Labels))
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if rng != nil {
		rng.Shuffle(n, func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	batches := make([]*Batch[B], 0, (n+batchSize-1)/batchSize)
	for start := 0; start < n; start += batchSize {
		end := start + batchSize
		if end > n {
			end = n
		}
		size := end - start

		images := tensor.Zeros[float32](tensor.Shape{size, ImageSize}, backend)
		labels := tensor.Zeros[int32](tensor.Shape{size}, backend)

		imageData := images.Data()
		labelData := labels.Data()
		for i := start; i < end; i++ {
			src := indices[i]
			copy(imageData[(i-start)*ImageSize:(i-start+1)*ImageSize], d.Images[src])
			labelData[i-start] = d.Labels[src]
		}

		batches = append(batches, &Batch[B]{Images: images, Labels: labels, Size: size})
	}
	return batches, nil
}
