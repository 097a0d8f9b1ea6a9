package dcgan

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Error(err)
	}
	if cfg.HalfBatch() != 64 {
		t.Errorf("Expected half batch 64, got %d", cfg.HalfBatch())
	}
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"odd batch":         func(c *Config) { c.BatchSize = 127 },
		"tiny batch":        func(c *Config) { c.BatchSize = 0 },
		"grid too large":    func(c *Config) { c.GridSize = 13 },
		"bad dropout":       func(c *Config) { c.Dropout = 1 },
		"bad beta":          func(c *Config) { c.Beta1 = -0.1 },
		"zero learn rate":   func(c *Config) { c.LearningRate = 0 },
		"no latent space":   func(c *Config) { c.LatentDim = 0 },
		"no epochs":         func(c *Config) { c.Epochs = 0 },
		"too many layers":   func(c *Config) { c.DiscriminatorFilters = []int{8, 8, 8, 8, 8, 8, 8} },
		"zero filters":      func(c *Config) { c.GeneratorFilters = []int{8, 0} },
		"no output dir":     func(c *Config) { c.OutputDir = "" },
		"no summary file":   func(c *Config) { c.SummaryFile = "" },
		"no generator":      func(c *Config) { c.GeneratorFilters = nil },
		"empty image shape": func(c *Config) { c.Image.Channels = 0 },
	}
	for name, modify := range cases {
		cfg := DefaultConfig()
		modify(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestConfigSaveLoad(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TargetLabel = 3
	cfg.GeneratorFilters = []int{64, 32}
	fname := filepath.Join(t.TempDir(), "config.json")
	if err := cfg.Save(fname); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadConfig(fname)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, loaded) {
		t.Errorf("Expected %+v, got %+v", cfg, loaded)
	}
	if _, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Expected error for missing file")
	}
}
