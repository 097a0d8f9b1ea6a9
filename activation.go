package dcgan

import (
	"gorgonia.org/gorgonia"
)

// DefaultLeakyAlpha Slope used by LeakyReLU when no alpha option is provided
const DefaultLeakyAlpha = 0.2

// ActivationFunc Just an alias to Gorgonia'a api_gen.go - https://github.com/gorgonia/gorgonia/blob/master/api_gen.go#L1
type ActivationFunc func(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error)

func NoActivation(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error) { return a, nil }
func Tanh(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error)         { return gorgonia.Tanh(a) }
func Sigmoid(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error)      { return gorgonia.Sigmoid(a) }

// LeakyReLU See ref. https://en.wikipedia.org/wiki/Rectifier_(neural_networks)#Leaky_ReLU
// First option with positive 'Alpha' wins. Otherwise DefaultLeakyAlpha is used.
func LeakyReLU(a *gorgonia.Node, opts ...Options) (*gorgonia.Node, error) {
	for i := range opts {
		if opts[i].Alpha > 0 {
			return gorgonia.LeakyRelu(a, opts[i].Alpha)
		}
	}
	return gorgonia.LeakyRelu(a, DefaultLeakyAlpha)
}

// Options Struct for holding options for certain activation functions.
type Options struct {
	// Negative slope for LeakyReLU
	Alpha float64
}
