package dcgan

import (
	"math"
	"reflect"
	"testing"
)

func TestLabels(t *testing.T) {
	realLabels := Labels(3, LabelReal)
	if !reflect.DeepEqual([]int(realLabels.Shape()), []int{3, 1}) {
		t.Errorf("Unexpected shape %v", realLabels.Shape())
	}
	if !reflect.DeepEqual(realLabels.Data().([]float64), []float64{1, 1, 1}) {
		t.Errorf("Expected ones, got %v", realLabels.Data())
	}
	fake := Labels(2, LabelFake)
	if !reflect.DeepEqual(fake.Data().([]float64), []float64{0, 0}) {
		t.Errorf("Expected zeros, got %v", fake.Data())
	}
}

func TestLatentPoints(t *testing.T) {
	s := NewSampler(42)
	n, dim := 200, 50
	points := s.LatentPoints(n, dim)
	if !reflect.DeepEqual([]int(points.Shape()), []int{n, dim}) {
		t.Fatalf("Unexpected shape %v", points.Shape())
	}
	data := points.Data().([]float64)
	mean, variance := 0.0, 0.0
	for _, v := range data {
		mean += v
	}
	mean /= float64(len(data))
	for _, v := range data {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(data))
	t.Logf("Latent points: mean %f, variance %f", mean, variance)
	if math.Abs(mean) > 0.1 {
		t.Errorf("Mean of standard normal samples is too far from 0: %f", mean)
	}
	if math.Abs(variance-1) > 0.1 {
		t.Errorf("Variance of standard normal samples is too far from 1: %f", variance)
	}

	again := NewSampler(42).LatentPoints(n, dim)
	if !reflect.DeepEqual(again.Data(), points.Data()) {
		t.Error("Same seed should give same latent points")
	}
}

func TestIndices(t *testing.T) {
	s := NewSampler(1)
	indices := s.Indices(10, 10)
	seen := make(map[int]bool)
	for _, idx := range indices {
		if idx < 0 || idx >= 10 {
			t.Errorf("Index %d is out of range", idx)
		}
		if seen[idx] {
			t.Errorf("Index %d is repeated", idx)
		}
		seen[idx] = true
	}
	indices = s.Indices(25, 3)
	if len(indices) != 25 {
		t.Fatalf("Expected 25 indices, got %d", len(indices))
	}
	for _, idx := range indices {
		if idx < 0 || idx >= 3 {
			t.Errorf("Index %d is out of range", idx)
		}
	}
}

func TestRealSamples(t *testing.T) {
	shape := ImageShape{Height: 2, Width: 2, Channels: 1}
	ds, err := NewDataset([]RawImage{
		{Pixels: []uint8{0, 0, 0, 0}},
		{Pixels: []uint8{255, 255, 255, 255}},
		{Pixels: []uint8{0, 255, 0, 255}},
	}, shape)
	if err != nil {
		t.Fatal(err)
	}
	s := NewSampler(7)
	x, y, err := s.RealSamples(ds, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual([]int(x.Shape()), []int{2, 1, 2, 2}) {
		t.Errorf("Unexpected images shape %v", x.Shape())
	}
	if !reflect.DeepEqual(y.Data().([]float64), []float64{LabelReal, LabelReal}) {
		t.Errorf("Real samples should be labeled as %v, got %v", LabelReal, y.Data())
	}
	if _, _, err = s.RealSamples(ds, 0); err == nil {
		t.Error("Expected error for zero samples")
	}
}

func TestFakeSamples(t *testing.T) {
	cfg := testConfig(t)
	gan, err := NewGANTrainer(cfg, mustDiscriminatorTrainer(t, cfg).Net(), cfg.BatchSize)
	if err != nil {
		t.Fatal(err)
	}
	defer gan.Close()
	runner, err := NewGeneratorRunner(gan.Generator(), "generator_fake_test", cfg.LatentDim, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer runner.Close()

	s := NewSampler(cfg.RandSeed)
	x, y, err := s.FakeSamples(runner, 3)
	if err != nil {
		t.Fatal(err)
	}
	expectedShape := []int{3, cfg.Image.Channels, cfg.Image.Height, cfg.Image.Width}
	if !reflect.DeepEqual([]int(x.Shape()), expectedShape) {
		t.Errorf("Expected shape %v, got %v", expectedShape, x.Shape())
	}
	if !reflect.DeepEqual(y.Data().([]float64), []float64{LabelFake, LabelFake, LabelFake}) {
		t.Errorf("Fake samples should be labeled as %v, got %v", LabelFake, y.Data())
	}
	for _, v := range x.Data().([]float64) {
		if v < -1 || v > 1 {
			t.Errorf("Generated value %f is out of [-1;1]", v)
			break
		}
	}
	if _, _, err = s.FakeSamples(runner, 4); err == nil {
		t.Error("Expected error for number of samples which differs from runner's batch size")
	}
}
