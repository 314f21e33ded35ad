// Command report-sensor watches the summaries directory and renders a PDF report for
// every batch file that appears or changes. One-shot by default; -watch keeps it running
// on an interval with /healthz and /metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/wardenfield/robot-pulse/tracker"
	"github.com/wardenfield/robot-pulse/tracker/config"
	"github.com/wardenfield/robot-pulse/tracker/logging"
	"github.com/wardenfield/robot-pulse/tracker/monitoring"
	"github.com/wardenfield/robot-pulse/tracker/report"
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

	logger := logging.NewLoggerWithService("report-sensor")
	config.LoadEnv(logger)

	if err := os.MkdirAll(cfg.ReportsDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, fmt.Errorf("mkdir -reports-dir: %w", err).Error())
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := &sensor{cfg: cfg, logger: logger, metrics: monitoring.NewSensorMetrics()}
	if !cfg.Watch {
		if err := s.evaluateOnce(); err != nil {
			logger.WithError(err).Error("sensor evaluation failed")
			os.Exit(1)
		}
		return
	}

	if err := s.watch(ctx); err != nil {
		logger.WithError(err).Error("watch loop failed")
		os.Exit(1)
	}
}

type sensor struct {
	cfg     Config
	logger  logging.Logger
	metrics *monitoring.SensorMetrics
}

// evaluateOnce performs one cursor-guarded evaluation. The cursor advances only after
// every emitted work item rendered successfully, so a failed render is re-attempted on
// the next evaluation.
func (s *sensor) evaluateOnce() error {
	prev, err := tracker.LoadCursor(s.cfg.CursorFile)
	if err != nil {
		return err
	}

	items, next, err := tracker.EvalSensor(s.cfg.SummariesDir, prev)
	if err != nil {
		return err
	}
	s.metrics.Evaluations.Inc()
	s.metrics.LastEvaluation.SetToCurrentTime()
	s.metrics.Emissions.Add(float64(len(items)))

	if len(items) == 0 {
		s.logger.Debug("no new or changed batch files")
		return tracker.SaveCursor(s.cfg.CursorFile, next)
	}

	for _, item := range items {
		outPath := filepath.Join(s.cfg.ReportsDir, reportFileName(item.Filename))
		if err := report.RenderPDF(item, s.cfg.PlotPath, outPath); err != nil {
			s.metrics.RenderFailures.Inc()
			return fmt.Errorf("render %s: %w", item.Filename, err)
		}
		s.metrics.Renders.Inc()
		s.logger.WithFields(logging.Fields{
			"run_key":   item.RunKey,
			"summaries": len(item.Summaries),
			"path":      outPath,
		}).Info("report rendered")
	}

	return tracker.SaveCursor(s.cfg.CursorFile, next)
}

func (s *sensor) watch(ctx context.Context) error {
	checker := monitoring.NewHealthChecker(3 * s.cfg.Interval)

	mux := http.NewServeMux()
	mux.Handle("/healthz", checker)
	mux.Handle("/metrics", s.metrics.Handler())
	srv := &http.Server{Addr: s.cfg.Listen, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("monitoring server failed")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.WithFields(logging.Fields{
		"interval": s.cfg.Interval.String(),
		"listen":   s.cfg.Listen,
	}).Info("watch mode started")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		err := s.evaluateOnce()
		checker.ObserveEvaluation(err)
		if err != nil {
			// Keep watching; the next evaluation retries from the unadvanced cursor.
			s.logger.WithError(err).Error("sensor evaluation failed")
		}

		select {
		case <-ctx.Done():
			s.logger.Info("shutting down")
			return nil
		case <-ticker.C:
		}
	}
}

// reportFileName maps a batch file name to its PDF counterpart.
func reportFileName(batchName string) string {
	return strings.TrimSuffix(batchName, ".json") + ".pdf"
}
