package dcgan

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

const (
	cifarHeight    = 32
	cifarWidth     = 32
	cifarChannels  = 3
	cifarImageSize = cifarHeight * cifarWidth
	cifarRecord    = 1 + cifarImageSize*cifarChannels
)

// CIFARTrainBatches Names of CIFAR-10 training files in binary format
var CIFARTrainBatches = []string{
	"data_batch_1.bin",
	"data_batch_2.bin",
	"data_batch_3.bin",
	"data_batch_4.bin",
	"data_batch_5.bin",
}

// RawImage Labeled image with pixels in interleaved HWC order
type RawImage struct {
	Label  int
	Pixels []uint8
}

// Dataset Images of single class.
//
// Data - tensor of shape (Length, Height, Width, Channels) with values in range [-1; 1]
//
type Dataset struct {
	Data   *tensor.Dense
	Length int
	Shape  ImageShape
}

// Len Returns number of images
func (ds *Dataset) Len() int {
	return ds.Length
}

// Image Returns values of i-th image in HWC order. Returned slice shares memory with dataset.
func (ds *Dataset) Image(i int) []float64 {
	size := ds.Shape.Size()
	return ds.Data.Data().([]float64)[i*size : (i+1)*size]
}

// Batch Returns images with provided indices as tensor of shape (len(indices), Channels, Height, Width)
func (ds *Dataset) Batch(indices []int) (*tensor.Dense, error) {
	size := ds.Shape.Size()
	data := make([]float64, len(indices)*size)
	for i, idx := range indices {
		if idx < 0 || idx >= ds.Length {
			return nil, fmt.Errorf("Index %d is out of range [0;%d)", idx, ds.Length)
		}
		HWCToCHW(data[i*size:(i+1)*size], ds.Image(idx), ds.Shape)
	}
	return tensor.New(tensor.WithShape(len(indices), ds.Shape.Channels, ds.Shape.Height, ds.Shape.Width), tensor.WithBacking(data)), nil
}

// Normalize Maps pixel value from [0; 255] to [-1; 1]
func Normalize(v uint8) float64 {
	return (float64(v) - 127.5) / 127.5
}

// FilterByLabel Returns images which label equals to provided one. Order is preserved.
func FilterByLabel(images []RawImage, label int) []RawImage {
	filtered := make([]RawImage, 0, len(images))
	for _, img := range images {
		if img.Label == label {
			filtered = append(filtered, img)
		}
	}
	return filtered
}

// NewDataset Normalizes provided images and stacks them into single tensor
func NewDataset(images []RawImage, shape ImageShape) (*Dataset, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("Dataset can't be empty")
	}
	size := shape.Size()
	data := make([]float64, len(images)*size)
	for i, img := range images {
		if len(img.Pixels) != size {
			return nil, fmt.Errorf("Image #%d has %d values, but %d expected for shape %dx%dx%d", i, len(img.Pixels), size, shape.Height, shape.Width, shape.Channels)
		}
		for j, v := range img.Pixels {
			data[i*size+j] = Normalize(v)
		}
	}
	return &Dataset{
		Data:   tensor.New(tensor.WithShape(len(images), shape.Height, shape.Width, shape.Channels), tensor.WithBacking(data)),
		Length: len(images),
		Shape:  shape,
	}, nil
}

// ReadCIFAR10 Reads images in CIFAR-10 binary format: each record is label byte followed by 1024 red, 1024 green and 1024 blue bytes.
// Pixels are converted to HWC order.
func ReadCIFAR10(r io.Reader) ([]RawImage, error) {
	images := []RawImage{}
	reader := bufio.NewReader(r)
	record := make([]uint8, cifarRecord)
	for {
		n, err := io.ReadFull(reader, record)
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("Incomplete record: expected %d bytes, got %d", cifarRecord, n)
		}
		if err != nil {
			return nil, errors.Wrap(err, "Can't read record")
		}
		pixels := make([]uint8, cifarImageSize*cifarChannels)
		for j := 0; j < cifarImageSize; j++ {
			for ch := 0; ch < cifarChannels; ch++ {
				pixels[j*cifarChannels+ch] = record[1+ch*cifarImageSize+j]
			}
		}
		images = append(images, RawImage{Label: int(record[0]), Pixels: pixels})
	}
	return images, nil
}

// LoadCIFAR10 Loads all training batches from provided directory and keeps images of single class only
func LoadCIFAR10(dir string, label int) (*Dataset, error) {
	images := []RawImage{}
	for _, name := range CIFARTrainBatches {
		batch, err := readCIFAR10File(filepath.Join(dir, name))
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("Can't load '%s'", name))
		}
		images = append(images, FilterByLabel(batch, label)...)
	}
	return NewDataset(images, ImageShape{Height: cifarHeight, Width: cifarWidth, Channels: cifarChannels})
}

func readCIFAR10File(fname string) ([]RawImage, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCIFAR10(f)
}

// HWCToCHW Converts single image from interleaved (height, width, channel) order into planar (channel, height, width) one
func HWCToCHW(dst, src []float64, shape ImageShape) {
	for y := 0; y < shape.Height; y++ {
		for x := 0; x < shape.Width; x++ {
			for ch := 0; ch < shape.Channels; ch++ {
				dst[(ch*shape.Height+y)*shape.Width+x] = src[(y*shape.Width+x)*shape.Channels+ch]
			}
		}
	}
}
