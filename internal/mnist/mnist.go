// Package mnist loads the MNIST handwritten digit dataset.
//
// Images arrive as 28×28 grayscale bitmaps in the official IDX binary
// format and are flattened to 784 float32 values normalized to [0, 1].
// Download fetches the four gzip'd dataset files on first use.
package mnist

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// Dataset dimensions.
const (
	ImageSize  = 784 // 28 × 28 pixels, flattened
	NumClasses = 10
)

// DefaultBaseURL is the mirror the dataset is fetched from.
const DefaultBaseURL = "https://ossci-datasets.s3.amazonaws.com/mnist/"

// File names inside the data directory (decompressed IDX files).
var (
	trainFiles = [2]string{"train-images-idx3-ubyte", "train-labels-idx1-ubyte"}
	testFiles  = [2]string{"t10k-images-idx3-ubyte", "t10k-labels-idx1-ubyte"}
)

// Dataset holds normalized images and their labels.
type Dataset struct {
	Images [][]float32 // [n][784], values in [0, 1]
	Labels []int32     // [n], values in [0, 9]
}

// NumSamples returns the number of samples in the dataset.
func (d *Dataset) NumSamples() int {
	return len(d.Images)
}

// Load reads the train or test split from dir. maxSamples limits the number
// of samples loaded (0 means all).
func Load(dir string, train bool, maxSamples int) (*Dataset, error) {
	files := testFiles
	if train {
		files = trainFiles
	}

	imagesRaw, err := readIDXImages(filepath.Join(dir, files[0]))
	if err != nil {
		return nil, fmt.Errorf("load images: %w", err)
	}
	labelsRaw, err := readIDXLabels(filepath.Join(dir, files[1]))
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}
	if len(imagesRaw) != len(labelsRaw) {
		return nil, fmt.Errorf("image count (%d) != label count (%d)", len(imagesRaw), len(labelsRaw))
	}

	n := len(imagesRaw)
	if maxSamples > 0 && n > maxSamples {
		n = maxSamples
	}

	images := make([][]float32, n)
	labels := make([]int32, n)
	for i := 0; i < n; i++ {
		if len(imagesRaw[i]) != ImageSize {
			return nil, fmt.Errorf("image %d has %d pixels, want %d", i, len(imagesRaw[i]), ImageSize)
		}
		images[i] = make([]float32, ImageSize)
		for j, px := range imagesRaw[i] {
			images[i][j] = float32(px) / 255.0
		}
		labels[i] = int32(labelsRaw[i])
	}

	return &Dataset{Images: images, Labels: labels}, nil
}

// Download fetches any missing dataset files into dir, decompressing the
// gzip'd IDX files as they are written. Existing files are left alone.
func Download(dir, baseURL string) error {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	for _, name := range []string{trainFiles[0], trainFiles[1], testFiles[0], testFiles[1]} {
		dest := filepath.Join(dir, name)
		if _, err := os.Stat(dest); err == nil {
			continue
		}
		if err := fetch(baseURL+name+".gz", dest); err != nil {
			return fmt.Errorf("download %s: %w", name, err)
		}
	}
	return nil
}

// fetch downloads one gzip'd file and writes the decompressed contents to
// dest atomically (via a temp file rename).
func fetch(url, dest string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return fmt.Errorf("gzip: %w", err)
	}
	defer gz.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, gz); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

// Split divides the dataset into two parts, the first holding
// (1 - ratio) of the samples. Useful for carving out a validation set.
func (d *Dataset) Split(ratio float64) (*Dataset, *Dataset) {
	idx := int(float64(d.NumSamples()) * (1 - ratio))
	return &Dataset{Images: d.Images[:idx], Labels: d.Labels[:idx]},
		&Dataset{Images: d.Images[idx:], Labels: d.Labels[idx:]}
}
