package dcgan

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testDataset(t *testing.T, n int, shape ImageShape) *Dataset {
	images := make([]RawImage, n)
	for i := range images {
		pixels := make([]uint8, shape.Size())
		for j := range pixels {
			pixels[j] = uint8((j * 37) % 256)
		}
		images[i] = RawImage{Label: 8, Pixels: pixels}
	}
	ds, err := NewDataset(images, shape)
	if err != nil {
		t.Fatal(err)
	}
	return ds
}

func TestNewTrainerChecks(t *testing.T) {
	cfg := testConfig(t)
	if _, err := NewTrainer(cfg, nil, nil); err == nil {
		t.Error("Expected error for nil dataset")
	}
	if _, err := NewTrainer(cfg, testDataset(t, 3, cfg.Image), nil); err == nil {
		t.Error("Expected error for dataset shorter than batch")
	}
	if _, err := NewTrainer(cfg, testDataset(t, 10, ImageShape{Height: 4, Width: 4, Channels: 3}), nil); err == nil {
		t.Error("Expected error for dataset of other image shape")
	}
	bad := cfg
	bad.BatchSize = 3
	if _, err := NewTrainer(bad, testDataset(t, 10, cfg.Image), nil); err == nil {
		t.Error("Expected error for odd batch size")
	}
}

func TestTrainerTrain(t *testing.T) {
	cfg := testConfig(t)
	cfg.Epochs = 2
	var log bytes.Buffer
	trainer, err := NewTrainer(cfg, testDataset(t, 10, cfg.Image), &log)
	if err != nil {
		t.Fatal(err)
	}
	defer trainer.Close()
	if trainer.BatchesPerEpoch() != 2 {
		t.Errorf("Expected 2 batches per epoch, got %d", trainer.BatchesPerEpoch())
	}

	summaries, err := trainer.Train()
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != cfg.Epochs {
		t.Fatalf("Expected %d summaries, got %d", cfg.Epochs, len(summaries))
	}
	if trainer.History().Len() != cfg.Epochs*trainer.BatchesPerEpoch() {
		t.Errorf("Expected %d records of losses, got %d", cfg.Epochs*trainer.BatchesPerEpoch(), trainer.History().Len())
	}
	for i, s := range summaries {
		if s.Epoch != i+1 {
			t.Errorf("Expected epoch %d, got %d", i+1, s.Epoch)
		}
		for _, acc := range []float64{s.AccuracyReal, s.AccuracyFake} {
			if acc < 0 || acc > 1 {
				t.Errorf("Accuracy %f is out of [0;1]", acc)
			}
		}
		for _, fname := range []string{s.PlotFile, s.WeightsFile} {
			if _, err := os.Stat(fname); err != nil {
				t.Error(err)
			}
		}
	}
	for _, name := range []string{"generated_plot_e001.png", "generated_plot_e002.png", "model_001.gob", "model_002.gob", "config.json", "losses.png"} {
		if _, err := os.Stat(filepath.Join(cfg.OutputDir, name)); err != nil {
			t.Errorf("Expected output file '%s': %v", name, err)
		}
	}

	summary, err := os.ReadFile(filepath.Join(cfg.OutputDir, cfg.SummaryFile))
	if err != nil {
		t.Fatal(err)
	}
	entries := strings.Split(strings.TrimSuffix(string(summary), ";"), ";")
	if len(entries) != cfg.Epochs {
		t.Errorf("Expected %d summary entries, got '%s'", cfg.Epochs, summary)
	}
	for _, e := range entries {
		if len(strings.Split(e, ",")) != 2 {
			t.Errorf("Summary entry '%s' should be 'real,fake'", e)
		}
	}

	output := log.String()
	for _, expected := range []string{">1, 1/2, d1=", ">2, 2/2, d1=", "Epoch: 1", "Epoch: 2", ">Accuracy real: "} {
		if !strings.Contains(output, expected) {
			t.Errorf("Log should contain '%s'", expected)
		}
	}

	// Saved weights are the ones of trained Generator
	if err = LoadWeights(trainer.Generator().Learnables(), filepath.Join(cfg.OutputDir, "model_002.gob")); err != nil {
		t.Error(err)
	}
}
