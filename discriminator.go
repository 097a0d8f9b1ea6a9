package dcgan

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// DiscriminatorNet Abstraction for discriminator part of GAN. It's simple neural network actually.
type DiscriminatorNet struct {
	private *Network
}

// Discriminator Constructor for DiscriminatorNet
func Discriminator(Layers ...*Layer) *DiscriminatorNet {
	return &DiscriminatorNet{private: &Network{
		Name:   "discriminator",
		Layers: Layers,
	}}
}

// DefineDiscriminator Creates weights on provided graph and returns convolutional binary classifier:
//
//	conv(3x3, stride=1) => [conv(3x3, stride=2)]... => flatten => dropout => linear(1) => sigmoid
//
// Every convolution is followed by LeakyReLU. Number of convolutions equals to len(cfg.DiscriminatorFilters).
//
func DefineDiscriminator(g *gorgonia.ExprGraph, cfg Config) (*DiscriminatorNet, error) {
	filters := cfg.DiscriminatorFilters
	if len(filters) == 0 {
		return nil, fmt.Errorf("Discriminator needs one convolution atleast")
	}
	factor := downscaleFactor(len(filters))
	if cfg.Image.Height%factor != 0 || cfg.Image.Width%factor != 0 {
		return nil, fmt.Errorf("Image %dx%d can't be downscaled by %d", cfg.Image.Height, cfg.Image.Width, factor)
	}
	leaky := []Options{{Alpha: cfg.LeakyAlpha}}
	layers := make([]*Layer, 0, len(filters)+3)
	inChannels := cfg.Image.Channels
	for i, f := range filters {
		stride := 2
		if i == 0 {
			stride = 1
		}
		w := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(f, inChannels, 3, 3), gorgonia.WithName(fmt.Sprintf("discriminator_w%d", i)), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
		layers = append(layers, &Layer{
			WeightNode:     w,
			Type:           LayerConvolutional,
			Activation:     LeakyReLU,
			ActivationOpts: leaky,
			KernelHeight:   3,
			KernelWidth:    3,
			Padding:        []int{1, 1},
			Stride:         []int{stride, stride},
			Dilation:       []int{1, 1},
		})
		inChannels = f
	}
	flatSize := inChannels * (cfg.Image.Height / factor) * (cfg.Image.Width / factor)
	shpOut := tensor.Shape{1, flatSize}
	wOut := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(shpOut...), gorgonia.WithName(fmt.Sprintf("discriminator_w%d", len(filters))), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	bOut := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, shpOut[0]), gorgonia.WithName(fmt.Sprintf("discriminator_b%d", len(filters))), gorgonia.WithInit(gorgonia.Zeroes()))
	layers = append(layers,
		&Layer{
			Type:       LayerFlatten,
			Activation: NoActivation,
		},
		&Layer{
			Type:        LayerDropout,
			Activation:  NoActivation,
			Probability: cfg.Dropout,
		},
		&Layer{
			WeightNode: wOut,
			BiasNode:   bOut,
			Type:       LayerLinear,
			Activation: Sigmoid,
		},
	)
	return Discriminator(layers...), nil
}

// Out Returns reference to output node
func (net *DiscriminatorNet) Out() *gorgonia.Node {
	return net.private.out
}

// Learnables Returns learnables nodes
func (net *DiscriminatorNet) Learnables() gorgonia.Nodes {
	return net.private.Learnables()
}

// Fwd Initializates feedforward for provided input
//
// input - Input node
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
//
func (net *DiscriminatorNet) Fwd(input *gorgonia.Node, batchSize int) error {
	if err := net.private.Fwd(input, batchSize); err != nil {
		return errors.Wrap(err, "[Discriminator]")
	}
	return nil
}

// FrozenCopy See (*Network).FrozenCopy
func (net *DiscriminatorNet) FrozenCopy(g *gorgonia.ExprGraph, name string, inference bool) (*DiscriminatorNet, error) {
	frozen, err := net.private.FrozenCopy(g, name, inference)
	if err != nil {
		return nil, errors.Wrap(err, "[Discriminator]")
	}
	return &DiscriminatorNet{private: frozen}, nil
}

// Sync See (*Network).Sync
func (net *DiscriminatorNet) Sync() error {
	return net.private.Sync()
}

func downscaleFactor(numLayers int) int {
	return 1 << uint(numLayers-1)
}
