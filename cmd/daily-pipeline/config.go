package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/wardenfield/robot-pulse/tracker"
)

type Config struct {
	Date               string
	Dates              string
	OnlyStage          string
	FromStage          string
	Subreddits         string
	RulesPath          string
	SummariesDir       string
	PlotPath           string
	Model              string
	MaxTranscriptBytes int
	Parallel           int
	Limit              int
}

func (c Config) Validate() error {
	if c.Date == "" && c.Dates == "" {
		return errors.New("missing -date or -dates")
	}
	if c.Date != "" && c.Dates != "" {
		return errors.New("-date and -dates are mutually exclusive")
	}
	if c.OnlyStage != "" && c.FromStage != "" {
		return errors.New("-only-stage and -from-stage are mutually exclusive")
	}
	if c.SummariesDir == "" {
		return errors.New("missing -summaries-dir")
	}
	if c.PlotPath == "" {
		return errors.New("missing -plot")
	}
	if c.Model == "" {
		return errors.New("missing -model")
	}
	if c.MaxTranscriptBytes < 0 {
		return errors.New("max-transcript-bytes must be >= 0")
	}
	if c.Parallel < 1 {
		return errors.New("parallel must be >= 1")
	}
	if c.Limit < 1 || c.Limit > 100 {
		return errors.New("limit must be between 1 and 100")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Subreddits:         strings.Join(tracker.DefaultSubreddits, ","),
		SummariesDir:       filepath.FromSlash("data/summaries"),
		PlotPath:           filepath.FromSlash("data/weekly_metrics.png"),
		Model:              "gpt-4o-mini",
		MaxTranscriptBytes: 120_000,
		Parallel:           1,
		Limit:              100,
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)
	fs.StringVar(&cfg.Date, "date", "", "Partition date YYYY-MM-DD (default: yesterday)")
	fs.StringVar(&cfg.Dates, "dates", "", "Comma-separated partition dates for a backfill run")
	fs.StringVar(&cfg.OnlyStage, "only-stage", "", "Run a single stage (dependencies assumed complete)")
	fs.StringVar(&cfg.FromStage, "from-stage", "", "Resume from a stage, running it and everything after")
	fs.StringVar(&cfg.Subreddits, "subreddits", cfg.Subreddits, "Comma-separated subreddits to ingest")
	fs.StringVar(&cfg.RulesPath, "rules", "", "Optional YAML brand-rule file (default: built-in rules)")
	fs.StringVar(&cfg.SummariesDir, "summaries-dir", cfg.SummariesDir, "Directory for per-day summary batch files")
	fs.StringVar(&cfg.PlotPath, "plot", cfg.PlotPath, "Path for the weekly trend plot PNG")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "OpenAI model for comment summarization")
	fs.IntVar(&cfg.MaxTranscriptBytes, "max-transcript-bytes", cfg.MaxTranscriptBytes, "Cap on a flattened comment transcript (0 disables)")
	fs.IntVar(&cfg.Parallel, "parallel", cfg.Parallel, "Max partitions processed concurrently")
	fs.IntVar(&cfg.Limit, "limit", cfg.Limit, "Listing page size per subreddit (max 100)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if cfg.Date == "" && cfg.Dates == "" {
		cfg.Date = yesterdayKey()
	}
	cfg.SummariesDir = filepath.Clean(cfg.SummariesDir)
	cfg.PlotPath = filepath.Clean(cfg.PlotPath)
	if cfg.RulesPath != "" {
		cfg.RulesPath = filepath.Clean(cfg.RulesPath)
	}
	return cfg, nil
}

// partitionKeys returns the requested partition keys in declared order.
func (c Config) partitionKeys() []string {
	if c.Dates == "" {
		return []string{c.Date}
	}
	var keys []string
	for _, k := range strings.Split(c.Dates, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func (c Config) subredditList() []string {
	var subs []string
	for _, s := range strings.Split(c.Subreddits, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			subs = append(subs, s)
		}
	}
	return subs
}
