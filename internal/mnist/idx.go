package mnist

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// IDX magic numbers for MNIST image and label files.
const (
	imageMagic = 2051
	labelMagic = 2049
)

// readIDXImages reads an MNIST image file in IDX format:
//
//	magic (4 bytes, big-endian, 2051)
//	image count, rows, cols (4 bytes each)
//	pixel data, one unsigned byte per pixel
func readIDXImages(filename string) ([][]byte, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var magic uint32
	if err := binary.Read(f, binary.BigEndian, &magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if magic != imageMagic {
		return nil, fmt.Errorf("invalid image magic: got %d, want %d", magic, imageMagic)
	}

	var count, rows, cols uint32
	for _, p := range []*uint32{&count, &rows, &cols} {
		if err := binary.Read(f, binary.BigEndian, p); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
	}

	imageSize := int(rows * cols)
	images := make([][]byte, count)
	for i := range images {
		images[i] = make([]byte, imageSize)
		if _, err := io.ReadFull(f, images[i]); err != nil {
			return nil, fmt.Errorf("read image %d: %w", i, err)
		}
	}
	return images, nil
}

// readIDXLabels reads an MNIST label file in IDX format:
//
//	magic (4 bytes, big-endian, 2049)
//	label count (4 bytes)
//	label data, one unsigned byte per label
func readIDXLabels(filename string) ([]byte, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var magic uint32
	if err := binary.Read(f, binary.BigEndian, &magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if magic != labelMagic {
		return nil, fmt.Errorf("invalid label magic: got %d, want %d", magic, labelMagic)
	}

	var count uint32
	if err := binary.Read(f, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	labels := make([]byte, count)
	if _, err := io.ReadFull(f, labels); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	return labels, nil
}
