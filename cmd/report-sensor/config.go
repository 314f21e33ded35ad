package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	SummariesDir string
	ReportsDir   string
	PlotPath     string
	CursorFile   string
	Watch        bool
	Interval     time.Duration
	Listen       string
}

func (c Config) Validate() error {
	if c.SummariesDir == "" {
		return errors.New("missing -summaries-dir")
	}
	if c.ReportsDir == "" {
		return errors.New("missing -reports-dir")
	}
	if c.PlotPath == "" {
		return errors.New("missing -plot")
	}
	if c.CursorFile == "" {
		return errors.New("missing -cursor-file")
	}
	if c.Watch {
		if c.Interval <= 0 {
			return errors.New("interval must be > 0 in watch mode")
		}
		if c.Listen == "" {
			return errors.New("missing -listen in watch mode")
		}
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		SummariesDir: filepath.FromSlash("data/summaries"),
		ReportsDir:   filepath.FromSlash("data/reports"),
		PlotPath:     filepath.FromSlash("data/weekly_metrics.png"),
		CursorFile:   filepath.FromSlash("data/sensor_cursor.json"),
		Interval:     time.Minute,
		Listen:       ":9090",
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)
	fs.StringVar(&cfg.SummariesDir, "summaries-dir", cfg.SummariesDir, "Directory of per-day summary batch files")
	fs.StringVar(&cfg.ReportsDir, "reports-dir", cfg.ReportsDir, "Output directory for PDF reports")
	fs.StringVar(&cfg.PlotPath, "plot", cfg.PlotPath, "Weekly trend plot PNG embedded in every report")
	fs.StringVar(&cfg.CursorFile, "cursor-file", cfg.CursorFile, "Path of the persisted sensor cursor")
	fs.BoolVar(&cfg.Watch, "watch", false, "Keep evaluating on an interval instead of exiting after one pass")
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "Evaluation interval in watch mode")
	fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "Listen address for /healthz and /metrics in watch mode")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.SummariesDir = filepath.Clean(cfg.SummariesDir)
	cfg.ReportsDir = filepath.Clean(cfg.ReportsDir)
	cfg.PlotPath = filepath.Clean(cfg.PlotPath)
	cfg.CursorFile = filepath.Clean(cfg.CursorFile)
	return cfg, nil
}
