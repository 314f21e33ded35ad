package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wardenfield/robot-pulse/tracker"
	"github.com/wardenfield/robot-pulse/tracker/fileutils"
	"github.com/wardenfield/robot-pulse/tracker/logging"
	"github.com/wardenfield/robot-pulse/tracker/monitoring"
)

func TestParseFlags_Defaults(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := parseFlags(fs, nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.Watch {
		t.Fatal("watch should default off")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestConfigValidate_WatchRequirements(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Watch = true
	cfg.Interval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero interval accepted in watch mode")
	}

	cfg = defaultConfig()
	cfg.Watch = true
	cfg.Listen = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty listen accepted in watch mode")
	}
}

func TestReportFileName(t *testing.T) {
	t.Parallel()

	if got := reportFileName("report_2025-06-11.json"); got != "report_2025-06-11.pdf" {
		t.Fatalf("got %q", got)
	}
}

func newTestSensor(t *testing.T) (*sensor, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		SummariesDir: filepath.Join(dir, "summaries"),
		ReportsDir:   filepath.Join(dir, "reports"),
		PlotPath:     filepath.Join(dir, "missing-plot.png"),
		CursorFile:   filepath.Join(dir, "cursor.json"),
		Interval:     time.Minute,
	}
	if err := os.MkdirAll(cfg.SummariesDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.MkdirAll(cfg.ReportsDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return &sensor{
		cfg:     cfg,
		logger:  logging.NewLoggerWithService("report-sensor-test"),
		metrics: monitoring.NewSensorMetrics(),
	}, dir
}

func TestEvaluateOnce_RendersNewBatchAndAdvancesCursor(t *testing.T) {
	s, _ := newTestSensor(t)

	batch := []tracker.SummaryRecord{{
		PostID:   "p1",
		Humanoid: "optimus",
		Title:    "Optimus demo",
		Summary:  "Positive reception overall.",
		Themes:   []string{"gait"},
	}}
	batchPath := filepath.Join(s.cfg.SummariesDir, "report_2025-06-11.json")
	if err := fileutils.WriteJSONFileAtomic(batchPath, batch, true); err != nil {
		t.Fatalf("write batch: %v", err)
	}

	if err := s.evaluateOnce(); err != nil {
		t.Fatalf("evaluateOnce: %v", err)
	}

	pdfPath := filepath.Join(s.cfg.ReportsDir, "report_2025-06-11.pdf")
	b, err := os.ReadFile(pdfPath)
	if err != nil {
		t.Fatalf("read pdf: %v", err)
	}
	if !strings.HasPrefix(string(b), "%PDF") {
		t.Fatal("output is not a PDF")
	}

	cursor, err := tracker.LoadCursor(s.cfg.CursorFile)
	if err != nil {
		t.Fatalf("LoadCursor: %v", err)
	}
	if _, ok := cursor["report_2025-06-11.json"]; !ok {
		t.Fatalf("cursor not advanced: %v", cursor)
	}

	// Second evaluation over an unchanged directory renders nothing new.
	before, err := os.Stat(pdfPath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if err := s.evaluateOnce(); err != nil {
		t.Fatalf("evaluateOnce: %v", err)
	}
	after, err := os.Stat(pdfPath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Fatal("unchanged batch was re-rendered")
	}
}

func TestEvaluateOnce_EmptyDirStillWritesCursor(t *testing.T) {
	s, _ := newTestSensor(t)

	if err := s.evaluateOnce(); err != nil {
		t.Fatalf("evaluateOnce: %v", err)
	}
	if !fileutils.FileExists(s.cfg.CursorFile) {
		t.Fatal("cursor file missing after evaluation")
	}
}
