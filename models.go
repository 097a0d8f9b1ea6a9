package dcgan

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// DiscriminatorTrainer Discriminator defined on its own graph together with loss, gradients, tape machine and solver
type DiscriminatorTrainer struct {
	net     *DiscriminatorNet
	input   *gorgonia.Node
	target  *gorgonia.Node
	costVal gorgonia.Value
	tm      gorgonia.VM
	solver  gorgonia.Solver
}

// NewDiscriminatorTrainer Defines Discriminator for batches of provided size and prepares it for training
func NewDiscriminatorTrainer(cfg Config, batchSize int) (*DiscriminatorTrainer, error) {
	g := gorgonia.NewGraph()
	net, err := DefineDiscriminator(g, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "Can't define Discriminator")
	}
	input := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(batchSize, cfg.Image.Channels, cfg.Image.Height, cfg.Image.Width), gorgonia.WithName("discriminator_input"))
	if err = net.Fwd(input, batchSize); err != nil {
		return nil, errors.Wrap(err, "Can't initialize Discriminator feedforward")
	}
	target := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(batchSize, 1), gorgonia.WithName("discriminator_target"))
	cost, err := BinaryCrossEntropyLoss(net.Out(), target)
	if err != nil {
		return nil, errors.Wrap(err, "Can't define Discriminator loss")
	}
	gorgonia.WithName("discriminator_loss")(cost)
	if _, err = gorgonia.Grad(cost, net.Learnables()...); err != nil {
		return nil, errors.Wrap(err, "Can't define gradients for Discriminator")
	}
	trainer := &DiscriminatorTrainer{
		net:    net,
		input:  input,
		target: target,
	}
	gorgonia.Read(cost, &trainer.costVal)
	trainer.tm = gorgonia.NewTapeMachine(g, gorgonia.BindDualValues(net.Learnables()...))
	trainer.solver = gorgonia.NewAdamSolver(gorgonia.WithLearnRate(cfg.LearningRate), gorgonia.WithBeta1(cfg.Beta1))
	return trainer, nil
}

// Net Returns reference to trainable Discriminator
func (d *DiscriminatorTrainer) Net() *DiscriminatorNet {
	return d.net
}

// TrainOnBatch Does single gradient step on provided images and labels. Returns loss before the step.
func (d *DiscriminatorTrainer) TrainOnBatch(x, y *tensor.Dense) (float64, error) {
	if err := gorgonia.Let(d.input, x); err != nil {
		return 0, errors.Wrap(err, "Can't init Discriminator input")
	}
	if err := gorgonia.Let(d.target, y); err != nil {
		return 0, errors.Wrap(err, "Can't init Discriminator target")
	}
	defer d.tm.Reset()
	if err := d.tm.RunAll(); err != nil {
		return 0, errors.Wrap(err, "Can't run Discriminator's tape machine")
	}
	loss, err := scalarValue(d.costVal)
	if err != nil {
		return 0, errors.Wrap(err, "Can't read Discriminator loss")
	}
	if err = d.solver.Step(gorgonia.NodesToValueGrads(d.net.Learnables())); err != nil {
		return 0, errors.Wrap(err, "Can't do Discriminator's solver step")
	}
	return loss, nil
}

// Close Releases tape machine
func (d *DiscriminatorTrainer) Close() error {
	return d.tm.Close()
}

// GANTrainer Generator and frozen Discriminator chained on single graph. Only Generator's weights are updated.
type GANTrainer struct {
	generator *GeneratorNet
	gan       *GAN
	input     *gorgonia.Node
	target    *gorgonia.Node
	costVal   gorgonia.Value
	tm        gorgonia.VM
	solver    gorgonia.Solver
}

// NewGANTrainer Defines Generator and composite model for batches of provided size
func NewGANTrainer(cfg Config, discriminator *DiscriminatorNet, batchSize int) (*GANTrainer, error) {
	g := gorgonia.NewGraph()
	generator, err := DefineGenerator(g, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "Can't define Generator")
	}
	input := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(batchSize, cfg.LatentDim), gorgonia.WithName("generator_input"))
	if err = generator.Fwd(input, batchSize); err != nil {
		return nil, errors.Wrap(err, "Can't initialize Generator feedforward")
	}
	definedGAN, err := NewGAN(g, generator, discriminator)
	if err != nil {
		return nil, errors.Wrap(err, "Can't define GAN")
	}
	if err = definedGAN.Fwd(batchSize); err != nil {
		return nil, errors.Wrap(err, "Can't initialize GAN feedforward")
	}
	target := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(definedGAN.Out().Shape()...), gorgonia.WithName("gan_discriminator_target"))
	cost, err := BinaryCrossEntropyLoss(definedGAN.Out(), target)
	if err != nil {
		return nil, errors.Wrap(err, "Can't define GAN loss")
	}
	gorgonia.WithName("gan_discriminator_loss")(cost)
	if _, err = gorgonia.Grad(cost, definedGAN.Learnables()...); err != nil {
		return nil, errors.Wrap(err, "Can't define gradients for GAN")
	}
	trainer := &GANTrainer{
		generator: generator,
		gan:       definedGAN,
		input:     input,
		target:    target,
	}
	gorgonia.Read(cost, &trainer.costVal)
	trainer.tm = gorgonia.NewTapeMachine(g, gorgonia.BindDualValues(definedGAN.Learnables()...))
	trainer.solver = gorgonia.NewAdamSolver(gorgonia.WithLearnRate(cfg.LearningRate), gorgonia.WithBeta1(cfg.Beta1))
	return trainer, nil
}

// Generator Returns reference to trainable Generator
func (m *GANTrainer) Generator() *GeneratorNet {
	return m.generator
}

// TrainOnBatch Refreshes frozen Discriminator and does single gradient step for Generator. Returns loss before the step.
//
// latent - tensor of shape (batchSize, latentDim)
// y - targets of shape (batchSize, 1). Use LabelReal to reward Generator for fooling Discriminator.
//
func (m *GANTrainer) TrainOnBatch(latent, y *tensor.Dense) (float64, error) {
	if err := m.gan.Sync(); err != nil {
		return 0, errors.Wrap(err, "Can't refresh frozen Discriminator")
	}
	if err := gorgonia.Let(m.input, latent); err != nil {
		return 0, errors.Wrap(err, "Can't init Generator input")
	}
	if err := gorgonia.Let(m.target, y); err != nil {
		return 0, errors.Wrap(err, "Can't init GAN target")
	}
	defer m.tm.Reset()
	if err := m.tm.RunAll(); err != nil {
		return 0, errors.Wrap(err, "Can't run GAN's tape machine")
	}
	loss, err := scalarValue(m.costVal)
	if err != nil {
		return 0, errors.Wrap(err, "Can't read GAN loss")
	}
	if err = m.solver.Step(gorgonia.NodesToValueGrads(m.gan.Learnables())); err != nil {
		return 0, errors.Wrap(err, "Can't do GAN's solver step")
	}
	return loss, nil
}

// Close Releases tape machine
func (m *GANTrainer) Close() error {
	return m.tm.Close()
}

// GeneratorRunner Inference copy of Generator for batches of fixed size
type GeneratorRunner struct {
	net       *GeneratorNet
	input     *gorgonia.Node
	outVal    gorgonia.Value
	tm        gorgonia.VM
	latentDim int
	batchSize int
}

// NewGeneratorRunner Copies Generator structure onto new graph. Weights are refreshed from source before every prediction.
func NewGeneratorRunner(source *GeneratorNet, name string, latentDim, batchSize int) (*GeneratorRunner, error) {
	g := gorgonia.NewGraph()
	net, err := source.FrozenCopy(g, name)
	if err != nil {
		return nil, errors.Wrap(err, "Can't copy Generator")
	}
	input := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(batchSize, latentDim), gorgonia.WithName(name+"_input"))
	if err = net.Fwd(input, batchSize); err != nil {
		return nil, errors.Wrap(err, "Can't initialize Generator copy feedforward")
	}
	runner := &GeneratorRunner{
		net:       net,
		input:     input,
		latentDim: latentDim,
		batchSize: batchSize,
	}
	gorgonia.Read(net.Out(), &runner.outVal)
	runner.tm = gorgonia.NewTapeMachine(g)
	return runner, nil
}

// BatchSize Returns number of images produced by single prediction
func (r *GeneratorRunner) BatchSize() int {
	return r.batchSize
}

// LatentDim Returns size of latent vector
func (r *GeneratorRunner) LatentDim() int {
	return r.latentDim
}

// Predict Maps latent vectors of shape (batchSize, latentDim) to images of shape (batchSize, Channels, Height, Width)
func (r *GeneratorRunner) Predict(latent *tensor.Dense) (*tensor.Dense, error) {
	if err := r.net.Sync(); err != nil {
		return nil, errors.Wrap(err, "Can't refresh Generator copy")
	}
	if err := gorgonia.Let(r.input, latent); err != nil {
		return nil, errors.Wrap(err, "Can't init Generator copy input")
	}
	defer r.tm.Reset()
	if err := r.tm.RunAll(); err != nil {
		return nil, errors.Wrap(err, "Can't run Generator copy tape machine")
	}
	dense, ok := r.outVal.(*tensor.Dense)
	if !ok {
		return nil, fmt.Errorf("Generator produced %T, but *tensor.Dense expected", r.outVal)
	}
	return dense.Clone().(*tensor.Dense), nil
}

// Close Releases tape machine
func (r *GeneratorRunner) Close() error {
	return r.tm.Close()
}

// DiscriminatorRunner Inference copy of Discriminator (dropout bypassed) for batches of fixed size
type DiscriminatorRunner struct {
	net       *DiscriminatorNet
	input     *gorgonia.Node
	outVal    gorgonia.Value
	tm        gorgonia.VM
	batchSize int
}

// NewDiscriminatorRunner Copies Discriminator structure onto new graph. Weights are refreshed from source before every prediction.
func NewDiscriminatorRunner(source *DiscriminatorNet, name string, shape ImageShape, batchSize int) (*DiscriminatorRunner, error) {
	g := gorgonia.NewGraph()
	net, err := source.FrozenCopy(g, name, true)
	if err != nil {
		return nil, errors.Wrap(err, "Can't copy Discriminator")
	}
	input := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(batchSize, shape.Channels, shape.Height, shape.Width), gorgonia.WithName(name+"_input"))
	if err = net.Fwd(input, batchSize); err != nil {
		return nil, errors.Wrap(err, "Can't initialize Discriminator copy feedforward")
	}
	runner := &DiscriminatorRunner{
		net:       net,
		input:     input,
		batchSize: batchSize,
	}
	gorgonia.Read(net.Out(), &runner.outVal)
	runner.tm = gorgonia.NewTapeMachine(g)
	return runner, nil
}

// BatchSize Returns number of images expected by single prediction
func (r *DiscriminatorRunner) BatchSize() int {
	return r.batchSize
}

// Predict Returns probability of being real for every image in batch
func (r *DiscriminatorRunner) Predict(x *tensor.Dense) ([]float64, error) {
	if err := r.net.Sync(); err != nil {
		return nil, errors.Wrap(err, "Can't refresh Discriminator copy")
	}
	if err := gorgonia.Let(r.input, x); err != nil {
		return nil, errors.Wrap(err, "Can't init Discriminator copy input")
	}
	defer r.tm.Reset()
	if err := r.tm.RunAll(); err != nil {
		return nil, errors.Wrap(err, "Can't run Discriminator copy tape machine")
	}
	data, ok := r.outVal.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("Discriminator produced %T, but []float64 expected", r.outVal.Data())
	}
	probs := make([]float64, len(data))
	copy(probs, data)
	return probs, nil
}

// Evaluate Returns share of images which are classified correctly. Probability above 0.5 means 'real'.
func (r *DiscriminatorRunner) Evaluate(x, y *tensor.Dense) (float64, error) {
	probs, err := r.Predict(x)
	if err != nil {
		return 0, err
	}
	return Accuracy(probs, y.Data().([]float64))
}

// Close Releases tape machine
func (r *DiscriminatorRunner) Close() error {
	return r.tm.Close()
}

// Accuracy Returns share of predictions which match labels after thresholding at 0.5
func Accuracy(probs, labels []float64) (float64, error) {
	if len(probs) != len(labels) {
		return 0, fmt.Errorf("Got %d predictions for %d labels", len(probs), len(labels))
	}
	if len(probs) == 0 {
		return 0, fmt.Errorf("Nothing to evaluate")
	}
	correct := 0
	for i := range probs {
		predicted := LabelFake
		if probs[i] > 0.5 {
			predicted = LabelReal
		}
		if predicted == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(probs)), nil
}

func scalarValue(v gorgonia.Value) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("Value is nil")
	}
	f, ok := v.Data().(float64)
	if !ok {
		return 0, fmt.Errorf("Value holds %T, but float64 expected", v.Data())
	}
	return f, nil
}
