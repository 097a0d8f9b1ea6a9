package dcgan

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// GeneratorNet Abstraction for generator part of GAN
type GeneratorNet struct {
	private *Network
}

// Generator Constructor for GeneratorNet
func Generator(Layers ...*Layer) *GeneratorNet {
	return &GeneratorNet{private: &Network{
		Name:   "generator",
		Layers: Layers,
	}}
}

// DefineGenerator Creates weights on provided graph and returns network which maps latent vectors to images:
//
//	linear(f0*h0*w0) => reshape(f0, h0, w0) => [upsample(x2) + conv(3x3)]... => conv(3x3, channels) => tanh
//
// Hidden layers are followed by LeakyReLU. Output is in range [-1; 1] and has shape (batch, channels, height, width).
//
func DefineGenerator(g *gorgonia.ExprGraph, cfg Config) (*GeneratorNet, error) {
	filters := cfg.GeneratorFilters
	if len(filters) == 0 {
		return nil, fmt.Errorf("Generator needs one hidden layer atleast")
	}
	if cfg.LatentDim < 1 {
		return nil, fmt.Errorf("Latent space size should be positive, but got %d", cfg.LatentDim)
	}
	factor := downscaleFactor(len(filters))
	if cfg.Image.Height%factor != 0 || cfg.Image.Width%factor != 0 {
		return nil, fmt.Errorf("Image %dx%d can't be upscaled from integer size by %d", cfg.Image.Height, cfg.Image.Width, factor)
	}
	h0, w0 := cfg.Image.Height/factor, cfg.Image.Width/factor
	leaky := []Options{{Alpha: cfg.LeakyAlpha}}
	layers := make([]*Layer, 0, len(filters)+2)

	shp0 := tensor.Shape{filters[0] * h0 * w0, cfg.LatentDim}
	w0Node := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(shp0...), gorgonia.WithName("generator_w0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	b0Node := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, shp0[0]), gorgonia.WithName("generator_b0"), gorgonia.WithInit(gorgonia.Zeroes()))
	layers = append(layers,
		&Layer{
			WeightNode:     w0Node,
			BiasNode:       b0Node,
			Type:           LayerLinear,
			Activation:     LeakyReLU,
			ActivationOpts: leaky,
		},
		&Layer{
			Type:        LayerReshape,
			Activation:  NoActivation,
			ReshapeDims: []int{filters[0], h0, w0},
		},
	)
	inChannels := filters[0]
	for i := 1; i < len(filters); i++ {
		w := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(filters[i], inChannels, 3, 3), gorgonia.WithName(fmt.Sprintf("generator_w%d", i)), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
		layers = append(layers, &Layer{
			WeightNode:     w,
			Type:           LayerConvTranspose,
			Activation:     LeakyReLU,
			ActivationOpts: leaky,
			KernelHeight:   3,
			KernelWidth:    3,
			Padding:        []int{1, 1},
			Stride:         []int{2, 2},
			Dilation:       []int{1, 1},
		})
		inChannels = filters[i]
	}
	wOut := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(cfg.Image.Channels, inChannels, 3, 3), gorgonia.WithName(fmt.Sprintf("generator_w%d", len(filters))), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	layers = append(layers, &Layer{
		WeightNode:   wOut,
		Type:         LayerConvolutional,
		Activation:   Tanh,
		KernelHeight: 3,
		KernelWidth:  3,
		Padding:      []int{1, 1},
		Stride:       []int{1, 1},
		Dilation:     []int{1, 1},
	})
	return Generator(layers...), nil
}

// Out Returns reference to output node
func (net *GeneratorNet) Out() *gorgonia.Node {
	return net.private.out
}

// Learnables Returns learnables nodes
func (net *GeneratorNet) Learnables() gorgonia.Nodes {
	return net.private.Learnables()
}

// Fwd Initializates feedforward for provided input
//
// input - Input node
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
//
func (net *GeneratorNet) Fwd(input *gorgonia.Node, batchSize int) error {
	if err := net.private.Fwd(input, batchSize); err != nil {
		return errors.Wrap(err, "[Generator]")
	}
	return nil
}

// FrozenCopy See (*Network).FrozenCopy
func (net *GeneratorNet) FrozenCopy(g *gorgonia.ExprGraph, name string) (*GeneratorNet, error) {
	frozen, err := net.private.FrozenCopy(g, name, true)
	if err != nil {
		return nil, errors.Wrap(err, "[Generator]")
	}
	return &GeneratorNet{private: frozen}, nil
}

// Sync See (*Network).Sync
func (net *GeneratorNet) Sync() error {
	return net.private.Sync()
}
