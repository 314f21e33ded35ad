// Command daily-pipeline runs the daily stage DAG (ingest, classify, select-robots,
// summarize, aggregate, plot) for one or more partition dates. Re-running a date is
// safe: every stage replaces its partition-scoped output.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/wardenfield/robot-pulse/tracker"
	"github.com/wardenfield/robot-pulse/tracker/config"
	"github.com/wardenfield/robot-pulse/tracker/logging"
	"github.com/wardenfield/robot-pulse/tracker/provider"
	"github.com/wardenfield/robot-pulse/tracker/reddit"
	"github.com/wardenfield/robot-pulse/tracker/report"
	"github.com/wardenfield/robot-pulse/tracker/retry"
	"github.com/wardenfield/robot-pulse/tracker/store"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	logger := logging.NewLoggerWithService("daily-pipeline")
	config.LoadEnv(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("pipeline run failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config, logger logging.Logger) error {
	parts, err := parsePartitions(cfg.partitionKeys())
	if err != nil {
		return err
	}

	dbURL, err := config.RequireEnv("DATABASE_URL")
	if err != nil {
		return err
	}
	storeCfg := store.DefaultConfig()
	storeCfg.URL = dbURL
	db, err := store.Connect(storeCfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	clientID, err := config.RequireEnv("REDDIT_CLIENT_ID")
	if err != nil {
		return err
	}
	clientSecret, err := config.RequireEnv("REDDIT_CLIENT_SECRET")
	if err != nil {
		return err
	}
	apiKey, err := config.RequireEnv("OPENAI_API_KEY")
	if err != nil {
		return err
	}

	rules := tracker.DefaultRules()
	if cfg.RulesPath != "" {
		rules, err = tracker.LoadRules(cfg.RulesPath)
		if err != nil {
			return err
		}
	}

	openaiClient := openai.NewClient(option.WithAPIKey(apiKey))

	env := &tracker.RunEnv{
		Logger: logger,
		Store:  store.New(db, logger),
		Reddit: reddit.New(reddit.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			UserAgent:    config.GetEnv("REDDIT_USER_AGENT", "robot-pulse/1.0"),
		}),
		Summarizer:         provider.NewSummarizer(&openaiClient, cfg.Model),
		Classifier:         tracker.NewClassifier(rules),
		Location:           time.Local,
		Subreddits:         cfg.subredditList(),
		ListingLimit:       cfg.Limit,
		SummariesDir:       cfg.SummariesDir,
		PlotPath:           cfg.PlotPath,
		MaxTranscriptBytes: cfg.MaxTranscriptBytes,
		ListingRetry:       retry.ListingSpec(),
		CommentRetry:       retry.CommentSpec(),
	}

	runner, err := tracker.NewRunner(tracker.DailyStages(report.WeeklyPlotStage))
	if err != nil {
		return err
	}
	switch {
	case cfg.OnlyStage != "":
		runner, err = runner.Only(cfg.OnlyStage)
	case cfg.FromStage != "":
		runner, err = runner.From(cfg.FromStage)
	}
	if err != nil {
		return err
	}

	return runner.RunPartitions(ctx, env, parts, cfg.Parallel)
}

func parsePartitions(keys []string) ([]tracker.Partition, error) {
	parts := make([]tracker.Partition, 0, len(keys))
	for _, key := range keys {
		p, err := tracker.ParsePartition(key, time.Local)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, nil
}

func yesterdayKey() string {
	return time.Now().AddDate(0, 0, -1).Format(tracker.PartitionKeyLayout)
}
