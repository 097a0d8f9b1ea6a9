package dcgan

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
)

// ImageShape Size of single image
type ImageShape struct {
	Height   int
	Width    int
	Channels int
}

// Size Returns number of values in single image
func (s ImageShape) Size() int {
	return s.Height * s.Width * s.Channels
}

// Config Training configuration settings
type Config struct {
	// Directory with CIFAR-10 binary batches
	DataDir string
	// Directory for generated plots, generator weights and accuracy log
	OutputDir string
	// Name of accumulated accuracy log (relative to OutputDir)
	SummaryFile string
	// Only images of this class are used for training. For CIFAR-10: 8 - 'ship'
	TargetLabel int
	Image       ImageShape

	LatentDim   int
	Epochs      int
	BatchSize   int
	EvalSamples int
	// Generated images are rendered as GridSize x GridSize plot
	GridSize int

	LearningRate float64
	Beta1        float64
	LeakyAlpha   float64
	Dropout      float64

	DiscriminatorFilters []int
	GeneratorFilters     []int

	RandSeed int64
}

// DefaultConfig Returns configuration for CIFAR-10 images of ships
func DefaultConfig() Config {
	return Config{
		DataDir:              "./data/cifar-10-batches-bin",
		OutputDir:            "./output",
		SummaryFile:          "summary.txt",
		TargetLabel:          8,
		Image:                ImageShape{Height: 32, Width: 32, Channels: 3},
		LatentDim:            100,
		Epochs:               200,
		BatchSize:            128,
		EvalSamples:          150,
		GridSize:             7,
		LearningRate:         0.0002,
		Beta1:                0.5,
		LeakyAlpha:           0.2,
		Dropout:              0.4,
		DiscriminatorFilters: []int{64, 128, 128, 256},
		GeneratorFilters:     []int{256, 128, 128, 128},
		RandSeed:             1337,
	}
}

// HalfBatch Returns number of real (and fake) samples used for single discriminator step
func (c Config) HalfBatch() int {
	return c.BatchSize / 2
}

// Validate Checks that settings are consistent
func (c Config) Validate() error {
	if c.Image.Height < 1 || c.Image.Width < 1 || c.Image.Channels < 1 {
		return fmt.Errorf("Image shape should be positive, but got %dx%dx%d", c.Image.Height, c.Image.Width, c.Image.Channels)
	}
	if c.LatentDim < 1 {
		return fmt.Errorf("Latent space size should be positive, but got %d", c.LatentDim)
	}
	if c.Epochs < 1 {
		return fmt.Errorf("Number of epochs should be positive, but got %d", c.Epochs)
	}
	if c.BatchSize < 2 || c.BatchSize%2 != 0 {
		return fmt.Errorf("Batch size should be even and >= 2, but got %d", c.BatchSize)
	}
	if c.EvalSamples < 1 {
		return fmt.Errorf("Number of evaluation samples should be positive, but got %d", c.EvalSamples)
	}
	if c.GridSize < 1 || c.GridSize*c.GridSize > c.EvalSamples {
		return fmt.Errorf("Grid %dx%d does not fit into %d evaluation samples", c.GridSize, c.GridSize, c.EvalSamples)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("Learning rate should be positive, but got %f", c.LearningRate)
	}
	if c.Beta1 < 0 || c.Beta1 >= 1 {
		return fmt.Errorf("Beta1 should be in range [0;1), but got %f", c.Beta1)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("Dropout probability should be in range [0;1), but got %f", c.Dropout)
	}
	if len(c.DiscriminatorFilters) == 0 || len(c.GeneratorFilters) == 0 {
		return fmt.Errorf("Both Discriminator and Generator need filters")
	}
	for _, filters := range [][]int{c.DiscriminatorFilters, c.GeneratorFilters} {
		factor := downscaleFactor(len(filters))
		if c.Image.Height%factor != 0 || c.Image.Width%factor != 0 {
			return fmt.Errorf("Image %dx%d is not divisible by %d (%d layers)", c.Image.Height, c.Image.Width, factor, len(filters))
		}
		for _, f := range filters {
			if f < 1 {
				return fmt.Errorf("Number of filters should be positive, but got %v", filters)
			}
		}
	}
	if c.OutputDir == "" {
		return fmt.Errorf("Output directory is not set")
	}
	if c.SummaryFile == "" {
		return fmt.Errorf("Summary file is not set")
	}
	return nil
}

// LoadConfig Reads configuration from JSON file
func LoadConfig(fname string) (Config, error) {
	c := DefaultConfig()
	f, err := os.Open(fname)
	if err != nil {
		return c, errors.Wrap(err, "Can't open config file")
	}
	defer f.Close()
	if err = json.NewDecoder(f).Decode(&c); err != nil {
		return c, errors.Wrap(err, "Can't decode config")
	}
	return c, nil
}

// Save Writes configuration to JSON file
func (c Config) Save(fname string) error {
	f, err := os.Create(fname)
	if err != nil {
		return errors.Wrap(err, "Can't create config file")
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err = enc.Encode(c); err != nil {
		f.Close()
		return errors.Wrap(err, "Can't encode config")
	}
	return f.Close()
}
