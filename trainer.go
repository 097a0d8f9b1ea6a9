package dcgan

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// EpochSummary Result of evaluation after single epoch
type EpochSummary struct {
	Epoch        int
	AccuracyReal float64
	AccuracyFake float64
	MeanD1       float64
	MeanD2       float64
	MeanG        float64
	PlotFile     string
	WeightsFile  string
}

// Trainer Holds everything needed for single training run: settings, data, models and source of randomness.
type Trainer struct {
	cfg     Config
	dataset *Dataset
	sampler *Sampler
	log     io.Writer

	discriminator *DiscriminatorTrainer
	gan           *GANTrainer
	// Generator copy producing half-batch of fake samples for Discriminator training
	fakeGenerator *GeneratorRunner
	// Copies used for evaluation
	evalGenerator     *GeneratorRunner
	evalDiscriminator *DiscriminatorRunner

	history LossHistory
}

// NewTrainer Validates configuration and defines all models
//
// log - destination for progress messages. If nil then os.Stdout is used
//
func NewTrainer(cfg Config, dataset *Dataset, log io.Writer) (*Trainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "Bad config")
	}
	if dataset == nil {
		return nil, fmt.Errorf("Dataset is nil")
	}
	if dataset.Shape != cfg.Image {
		return nil, fmt.Errorf("Dataset has images %v, but config expects %v", dataset.Shape, cfg.Image)
	}
	if dataset.Len() < cfg.BatchSize {
		return nil, fmt.Errorf("Dataset has %d images only, but batch size is %d", dataset.Len(), cfg.BatchSize)
	}
	if log == nil {
		log = os.Stdout
	}
	t := &Trainer{
		cfg:     cfg,
		dataset: dataset,
		sampler: NewSampler(cfg.RandSeed),
		log:     log,
	}
	var err error
	t.discriminator, err = NewDiscriminatorTrainer(cfg, cfg.HalfBatch())
	if err != nil {
		return nil, errors.Wrap(err, "Can't prepare Discriminator")
	}
	t.gan, err = NewGANTrainer(cfg, t.discriminator.Net(), cfg.BatchSize)
	if err != nil {
		t.Close()
		return nil, errors.Wrap(err, "Can't prepare GAN")
	}
	t.fakeGenerator, err = NewGeneratorRunner(t.gan.Generator(), "generator_fake", cfg.LatentDim, cfg.HalfBatch())
	if err != nil {
		t.Close()
		return nil, errors.Wrap(err, "Can't prepare Generator for fake samples")
	}
	t.evalGenerator, err = NewGeneratorRunner(t.gan.Generator(), "generator_eval", cfg.LatentDim, cfg.EvalSamples)
	if err != nil {
		t.Close()
		return nil, errors.Wrap(err, "Can't prepare Generator for evaluation")
	}
	t.evalDiscriminator, err = NewDiscriminatorRunner(t.discriminator.Net(), "discriminator_eval", cfg.Image, cfg.EvalSamples)
	if err != nil {
		t.Close()
		return nil, errors.Wrap(err, "Can't prepare Discriminator for evaluation")
	}
	return t, nil
}

// BatchesPerEpoch Returns number of full batches in dataset
func (t *Trainer) BatchesPerEpoch() int {
	return t.dataset.Len() / t.cfg.BatchSize
}

// History Returns losses of every processed batch
func (t *Trainer) History() *LossHistory {
	return &t.history
}

// Generator Returns reference to trainable Generator
func (t *Trainer) Generator() *GeneratorNet {
	return t.gan.Generator()
}

// Train Runs all epochs. Evaluation is done after every epoch.
func (t *Trainer) Train() ([]EpochSummary, error) {
	if err := os.MkdirAll(t.cfg.OutputDir, 0755); err != nil {
		return nil, errors.Wrap(err, "Can't create output directory")
	}
	if err := t.cfg.Save(filepath.Join(t.cfg.OutputDir, "config.json")); err != nil {
		return nil, errors.Wrap(err, "Can't save config")
	}
	summaries := make([]EpochSummary, 0, t.cfg.Epochs)
	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		summary, err := t.TrainEpoch(epoch)
		if err != nil {
			return summaries, errors.Wrap(err, fmt.Sprintf("Epoch #%d", epoch+1))
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// TrainEpoch Processes every batch of dataset once and then evaluates models
func (t *Trainer) TrainEpoch(epoch int) (EpochSummary, error) {
	st := time.Now()
	batches := t.BatchesPerEpoch()
	first := t.history.Len()
	for b := 0; b < batches; b++ {
		d1, d2, g, err := t.TrainBatch()
		if err != nil {
			return EpochSummary{}, errors.Wrap(err, fmt.Sprintf("Batch #%d", b+1))
		}
		fmt.Fprintf(t.log, ">%d, %d/%d, d1=%.3f, d2=%.3f g=%.3f\n", epoch+1, b+1, batches, d1, d2, g)
	}
	summary := EpochSummary{
		Epoch:  epoch + 1,
		MeanD1: stat.Mean(t.history.D1[first:], nil),
		MeanD2: stat.Mean(t.history.D2[first:], nil),
		MeanG:  stat.Mean(t.history.G[first:], nil),
	}
	fmt.Fprintf(t.log, "Epoch: %d\n", epoch+1)
	fmt.Fprintf(t.log, "\tMean losses: d1=%.3f, d2=%.3f g=%.3f\n", summary.MeanD1, summary.MeanD2, summary.MeanG)
	fmt.Fprintf(t.log, "\tTaken time: %v\n", time.Since(st))
	if err := t.SummarizePerformance(&summary); err != nil {
		return summary, errors.Wrap(err, "Can't summarize performance")
	}
	if err := PlotLosses(&t.history, filepath.Join(t.cfg.OutputDir, "losses.png")); err != nil {
		fmt.Fprintf(t.log, "\tCan't plot losses: %v\n", err)
	}
	return summary, nil
}

// TrainBatch Does two Discriminator steps (real half-batch, fake half-batch) and one Generator step. Returns losses of those steps.
func (t *Trainer) TrainBatch() (d1, d2, g float64, err error) {
	half := t.cfg.HalfBatch()
	xReal, yReal, err := t.sampler.RealSamples(t.dataset, half)
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "Can't draw real samples")
	}
	xFake, yFake, err := t.sampler.FakeSamples(t.fakeGenerator, half)
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "Can't draw fake samples")
	}
	d1, err = t.discriminator.TrainOnBatch(xReal, yReal)
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "Can't train Discriminator on real samples")
	}
	d2, err = t.discriminator.TrainOnBatch(xFake, yFake)
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "Can't train Discriminator on fake samples")
	}
	// Generated samples are labeled as real: Generator is rewarded for fooling Discriminator
	latent := t.sampler.LatentPoints(t.cfg.BatchSize, t.cfg.LatentDim)
	g, err = t.gan.TrainOnBatch(latent, Labels(t.cfg.BatchSize, LabelReal))
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "Can't train Generator")
	}
	t.history.Add(d1, d2, g)
	return d1, d2, g, nil
}

// SummarizePerformance Evaluates Discriminator on fresh real and fake samples, appends accuracy to summary file,
// plots generated images and saves Generator weights. Results are stored in provided summary.
func (t *Trainer) SummarizePerformance(summary *EpochSummary) error {
	n := t.cfg.EvalSamples
	xReal, yReal, err := t.sampler.RealSamples(t.dataset, n)
	if err != nil {
		return errors.Wrap(err, "Can't draw real samples")
	}
	accReal, err := t.evalDiscriminator.Evaluate(xReal, yReal)
	if err != nil {
		return errors.Wrap(err, "Can't evaluate Discriminator on real samples")
	}
	xFake, yFake, err := t.sampler.FakeSamples(t.evalGenerator, n)
	if err != nil {
		return errors.Wrap(err, "Can't draw fake samples")
	}
	accFake, err := t.evalDiscriminator.Evaluate(xFake, yFake)
	if err != nil {
		return errors.Wrap(err, "Can't evaluate Discriminator on fake samples")
	}
	fmt.Fprintf(t.log, ">Accuracy real: %.0f%%, fake: %.0f%%\n", accReal*100, accFake*100)
	if err = AppendSummary(filepath.Join(t.cfg.OutputDir, t.cfg.SummaryFile), accReal, accFake); err != nil {
		return err
	}
	plotFile := filepath.Join(t.cfg.OutputDir, fmt.Sprintf("generated_plot_e%03d.png", summary.Epoch))
	if err = SaveImageGrid(xFake, t.cfg.GridSize, plotFile); err != nil {
		return errors.Wrap(err, "Can't save generated images")
	}
	weightsFile := filepath.Join(t.cfg.OutputDir, fmt.Sprintf("model_%03d.gob", summary.Epoch))
	if err = SaveWeights(t.gan.Generator().Learnables(), weightsFile); err != nil {
		return errors.Wrap(err, "Can't save Generator weights")
	}
	summary.AccuracyReal = accReal
	summary.AccuracyFake = accFake
	summary.PlotFile = plotFile
	summary.WeightsFile = weightsFile
	return nil
}

// Close Releases tape machines of every model
func (t *Trainer) Close() error {
	var firstErr error
	closers := []io.Closer{}
	if t.discriminator != nil {
		closers = append(closers, t.discriminator)
	}
	if t.gan != nil {
		closers = append(closers, t.gan)
	}
	if t.fakeGenerator != nil {
		closers = append(closers, t.fakeGenerator)
	}
	if t.evalGenerator != nil {
		closers = append(closers, t.evalGenerator)
	}
	if t.evalDiscriminator != nil {
		closers = append(closers, t.evalDiscriminator)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
