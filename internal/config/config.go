package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultEngine       = "sandbox"
	DefaultWorkRoot     = "work"
	DefaultResultsRoot  = "results"
	DefaultLogsRoot     = "logs"
	DefaultNumCPUs      = 0
	DefaultViewerWait   = 300
	DefaultViewerPoll   = 5
	DefaultSmoothWindow = 3
	DefaultMinPeakFrac  = 0.6
	DefaultDropRatio    = 0.8
	DefaultPersistN     = 3
	DefaultMinImages    = 1
	DefaultImageModes   = 3
)

type Config struct {
	Engine        string `yaml:"engine"`
	WorkRoot      string `yaml:"work_root"`
	ResultsRoot   string `yaml:"results_root"`
	LogsRoot      string `yaml:"logs_root"`
	KeepWorkFiles bool   `yaml:"keep_work_files"`
	SaveModels    bool   `yaml:"save_models"`
	// NumCPUs overrides the per-record cpu count; 0 defers to each
	// parameter record.
	NumCPUs int          `yaml:"num_cpus"`
	Viewer  ViewerConfig `yaml:"viewer"`
	Peak    PeakConfig   `yaml:"peak"`
	Images  ImageConfig  `yaml:"images"`
}

// ViewerConfig bounds the wait for a shared post-processing viewer
// lock. Durations are plain seconds.
type ViewerConfig struct {
	WaitSeconds int `yaml:"wait_seconds"`
	PollSeconds int `yaml:"poll_seconds"`
}

// PeakConfig tunes peak-frame selection on collapse curves.
type PeakConfig struct {
	SmoothWindow int     `yaml:"smooth_window"`
	MinPeakFrac  float64 `yaml:"min_peak_frac"`
	DropRatio    float64 `yaml:"drop_ratio"`
	PersistN     int     `yaml:"persist_n"`
}

// ImageConfig controls deformed-shape image export and how many images
// cleanup requires before deleting scratch files.
type ImageConfig struct {
	MinRequired int `yaml:"min_required"`
	Modes       int `yaml:"modes"`
}

func DefaultConfig() *Config {
	return &Config{
		Engine:      DefaultEngine,
		WorkRoot:    DefaultWorkRoot,
		ResultsRoot: DefaultResultsRoot,
		LogsRoot:    DefaultLogsRoot,
		NumCPUs:     DefaultNumCPUs,
		Viewer: ViewerConfig{
			WaitSeconds: DefaultViewerWait,
			PollSeconds: DefaultViewerPoll,
		},
		Peak: PeakConfig{
			SmoothWindow: DefaultSmoothWindow,
			MinPeakFrac:  DefaultMinPeakFrac,
			DropRatio:    DefaultDropRatio,
			PersistN:     DefaultPersistN,
		},
		Images: ImageConfig{
			MinRequired: DefaultMinImages,
			Modes:       DefaultImageModes,
		},
	}
}

// Load reads a config file over the defaults, so a partial file only
// overrides what it names. The empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.WorkRoot == "" || c.ResultsRoot == "" {
		return fmt.Errorf("config: work_root and results_root must be set")
	}
	if c.NumCPUs < 0 {
		return fmt.Errorf("config: num_cpus cannot be negative, got %d", c.NumCPUs)
	}
	if c.Viewer.WaitSeconds > 0 && c.Viewer.PollSeconds < 1 {
		return fmt.Errorf("config: viewer poll_seconds must be at least 1 when waiting")
	}
	if c.Peak.SmoothWindow < 1 {
		return fmt.Errorf("config: peak smooth_window must be at least 1")
	}
	if c.Peak.MinPeakFrac <= 0 || c.Peak.MinPeakFrac > 1 {
		return fmt.Errorf("config: peak min_peak_frac must be in (0, 1], got %g", c.Peak.MinPeakFrac)
	}
	if c.Peak.DropRatio <= 0 || c.Peak.DropRatio >= 1 {
		return fmt.Errorf("config: peak drop_ratio must be in (0, 1), got %g", c.Peak.DropRatio)
	}
	if c.Peak.PersistN < 1 {
		return fmt.Errorf("config: peak persist_n must be at least 1")
	}
	if c.Images.MinRequired < 0 || c.Images.Modes < 0 {
		return fmt.Errorf("config: image counts cannot be negative")
	}
	return nil
}
