package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestGetEnv_FallsBackToDefault(t *testing.T) {
	t.Setenv("TRACKER_TEST_STR", "")
	if got := GetEnv("TRACKER_TEST_STR", "fallback"); got != "fallback" {
		t.Fatalf("GetEnv=%q, want fallback", got)
	}
	t.Setenv("TRACKER_TEST_STR", "set")
	if got := GetEnv("TRACKER_TEST_STR", "fallback"); got != "set" {
		t.Fatalf("GetEnv=%q, want set", got)
	}
}

func TestGetEnvInt_IgnoresUnparsable(t *testing.T) {
	t.Setenv("TRACKER_TEST_INT", "not-a-number")
	if got := GetEnvInt("TRACKER_TEST_INT", 7); got != 7 {
		t.Fatalf("GetEnvInt=%d, want 7", got)
	}
	t.Setenv("TRACKER_TEST_INT", "42")
	if got := GetEnvInt("TRACKER_TEST_INT", 7); got != 42 {
		t.Fatalf("GetEnvInt=%d, want 42", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("TRACKER_TEST_BOOL", "true")
	if !GetEnvBool("TRACKER_TEST_BOOL", false) {
		t.Fatal("GetEnvBool=false, want true")
	}
	t.Setenv("TRACKER_TEST_BOOL", "garbage")
	if GetEnvBool("TRACKER_TEST_BOOL", false) {
		t.Fatal("GetEnvBool=true for unparsable value, want default false")
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TRACKER_TEST_DUR", "90s")
	if got := GetEnvDuration("TRACKER_TEST_DUR", time.Minute); got != 90*time.Second {
		t.Fatalf("GetEnvDuration=%v, want 90s", got)
	}
	t.Setenv("TRACKER_TEST_DUR", "")
	if got := GetEnvDuration("TRACKER_TEST_DUR", time.Minute); got != time.Minute {
		t.Fatalf("GetEnvDuration=%v, want 1m", got)
	}
}

func TestGetLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	if got := GetLogLevel(); got != logrus.DebugLevel {
		t.Fatalf("GetLogLevel=%v, want debug", got)
	}
	t.Setenv("LOG_LEVEL", "")
	if got := GetLogLevel(); got != logrus.InfoLevel {
		t.Fatalf("GetLogLevel=%v, want info", got)
	}
}

func TestRequireEnv(t *testing.T) {
	t.Setenv("TRACKER_TEST_REQ", "  ")
	if _, err := RequireEnv("TRACKER_TEST_REQ"); err == nil {
		t.Fatal("expected error for blank required variable")
	}
	t.Setenv("TRACKER_TEST_REQ", "value")
	got, err := RequireEnv("TRACKER_TEST_REQ")
	if err != nil {
		t.Fatalf("RequireEnv returned error: %v", err)
	}
	if got != "value" {
		t.Fatalf("RequireEnv=%q, want value", got)
	}
}
