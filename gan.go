package dcgan

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

// GAN Composite of generator and discriminator which is used for training generator only.
//
// generatorPart - reference to Generator. It must be defined on the same graph as GAN.
// frozenDiscriminator - copy of Discriminator (which is trained on its own graph) on GAN's graph. Its weights are refreshed by Sync and never updated by GAN's solver
//
type GAN struct {
	generatorPart       *GeneratorNet
	frozenDiscriminator *DiscriminatorNet

	out *gorgonia.Node
}

// NewGAN Creates composite model on provided graph
func NewGAN(g *gorgonia.ExprGraph, definedGenerator *GeneratorNet, definedDiscriminator *DiscriminatorNet) (*GAN, error) {
	if definedGenerator == nil || definedDiscriminator == nil {
		return nil, fmt.Errorf("GAN needs both Generator and Discriminator")
	}
	frozen, err := definedDiscriminator.FrozenCopy(g, "gan", false)
	if err != nil {
		return nil, errors.Wrap(err, "Can't copy Discriminator onto GAN's graph")
	}
	frozen.private.Name = "gan_discriminator"
	return &GAN{
		generatorPart:       definedGenerator,
		frozenDiscriminator: frozen,
	}, nil
}

// Out Returns reference to output node
func (net *GAN) Out() *gorgonia.Node {
	return net.out
}

// GeneratorOut Returns reference to output node of generator part
func (net *GAN) GeneratorOut() *gorgonia.Node {
	return net.generatorPart.Out()
}

// Learnables Returns learnables nodes. Only generator's ones: discriminator part is frozen.
func (net *GAN) Learnables() gorgonia.Nodes {
	return net.generatorPart.Learnables()
}

// Sync Refreshes frozen discriminator part with current values of Discriminator
func (net *GAN) Sync() error {
	if err := net.frozenDiscriminator.Sync(); err != nil {
		return errors.Wrap(err, "[GAN]")
	}
	return nil
}

// Fwd Initializates feedforward for discriminator part of GAN
//
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
// Note: input node is not needed since input for Discriminator is just Generator's output. So Generator's Fwd should be called first.
//
func (net *GAN) Fwd(batchSize int) error {
	if net.generatorPart.Out() == nil {
		return fmt.Errorf("Generator's feedforward should be initialized before GAN's one")
	}
	if err := net.frozenDiscriminator.Fwd(net.generatorPart.Out(), batchSize); err != nil {
		return errors.Wrap(err, "[GAN]")
	}
	net.out = net.frozenDiscriminator.Out()
	return nil
}
