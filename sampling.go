package dcgan

import (
	"fmt"
	"math/rand"

	rng "github.com/leesper/go_rng"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

const (
	// LabelFake Target for generated images
	LabelFake = 0.0
	// LabelReal Target for images from dataset
	LabelReal = 1.0
)

// Sampler Source of randomness for training: indices of real images and points in latent space
type Sampler struct {
	uniform  *rand.Rand
	gaussian *rng.GaussianGenerator
}

// NewSampler Creates sampler. Same seed gives same sequence of samples.
func NewSampler(seed int64) *Sampler {
	return &Sampler{
		uniform:  rand.New(rand.NewSource(seed)),
		gaussian: rng.NewGaussianGenerator(seed),
	}
}

// Labels Returns tensor of shape (n, 1) filled with provided value
func Labels(n int, value float64) *tensor.Dense {
	data := make([]float64, n)
	for i := range data {
		data[i] = value
	}
	return tensor.New(tensor.WithShape(n, 1), tensor.WithBacking(data))
}

// LatentPoints Returns tensor of shape (n, latentDim) filled with values from standard normal distribution
func (s *Sampler) LatentPoints(n, latentDim int) *tensor.Dense {
	data := make([]float64, n*latentDim)
	for i := range data {
		data[i] = s.gaussian.Gaussian(0, 1)
	}
	return tensor.New(tensor.WithShape(n, latentDim), tensor.WithBacking(data))
}

// Indices Returns n random indices in range [0; length). Indices are distinct when n <= length.
func (s *Sampler) Indices(n, length int) []int {
	if n <= length {
		return s.uniform.Perm(length)[:n]
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = s.uniform.Intn(length)
	}
	return indices
}

// RealSamples Picks n random images from dataset. Returns images of shape (n, Channels, Height, Width) and labels of shape (n, 1) filled by LabelReal
func (s *Sampler) RealSamples(ds *Dataset, n int) (*tensor.Dense, *tensor.Dense, error) {
	if n < 1 {
		return nil, nil, fmt.Errorf("Number of samples should be positive, but got %d", n)
	}
	x, err := ds.Batch(s.Indices(n, ds.Len()))
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't prepare batch of real samples")
	}
	return x, Labels(n, LabelReal), nil
}

// FakeSamples Generates n images by provided generator. Returns images of shape (n, Channels, Height, Width) and labels of shape (n, 1) filled by LabelFake
func (s *Sampler) FakeSamples(g *GeneratorRunner, n int) (*tensor.Dense, *tensor.Dense, error) {
	if n != g.BatchSize() {
		return nil, nil, fmt.Errorf("Generator runner produces %d samples, but %d requested", g.BatchSize(), n)
	}
	x, err := g.Predict(s.LatentPoints(n, g.LatentDim()))
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't generate fake samples")
	}
	return x, Labels(n, LabelFake), nil
}
