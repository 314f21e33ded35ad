package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewLogger_LevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	logger := NewLogger()
	if logger.GetLevel() != logrus.WarnLevel {
		t.Fatalf("level=%v, want warn", logger.GetLevel())
	}
}

func TestNewLoggerWithService_CarriesServiceField(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	entry := NewLoggerWithService("daily-pipeline")

	var buf bytes.Buffer
	entry.Logger.SetOutput(&buf)
	entry.Info("hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if rec["service"] != "daily-pipeline" {
		t.Fatalf("service=%v, want daily-pipeline", rec["service"])
	}
	if rec["msg"] != "hello" {
		t.Fatalf("msg=%v, want hello", rec["msg"])
	}
}
