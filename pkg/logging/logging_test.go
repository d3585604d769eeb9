package logging_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/TAPUZE/project-chimera/pkg/logging"
)

func TestConfig_Finalize(t *testing.T) {
	env := &logging.Env{Level: "TEST_LOGGING_LEVEL", Format: "TEST_LOGGING_FORMAT"}

	tests := []struct {
		name       string
		cfg        logging.Config
		envLevel   string
		envFormat  string
		wantLevel  logging.Level
		wantFormat logging.Format
		wantErr    bool
	}{
		{name: "defaults", wantLevel: logging.LevelInfo, wantFormat: logging.FormatText},
		{name: "explicit", cfg: logging.Config{Level: logging.LevelDebug, Format: logging.FormatJSON}, wantLevel: logging.LevelDebug, wantFormat: logging.FormatJSON},
		{name: "env override", cfg: logging.Config{Level: logging.LevelDebug}, envLevel: "error", envFormat: "json", wantLevel: logging.LevelError, wantFormat: logging.FormatJSON},
		{name: "env case folded", envLevel: "WARN", wantLevel: logging.LevelWarn, wantFormat: logging.FormatText},
		{name: "bad level", cfg: logging.Config{Level: "loud"}, wantErr: true},
		{name: "bad format", cfg: logging.Config{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(env.Level, tt.envLevel)
			t.Setenv(env.Format, tt.envFormat)

			cfg := tt.cfg
			err := cfg.Finalize(env)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Finalize() should fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("Finalize() error = %v", err)
			}
			if cfg.Level != tt.wantLevel || cfg.Format != tt.wantFormat {
				t.Errorf("Finalize() = %s/%s, want %s/%s", cfg.Level, cfg.Format, tt.wantLevel, tt.wantFormat)
			}
		})
	}
}

func TestConfig_Merge(t *testing.T) {
	cfg := logging.Config{Level: logging.LevelInfo, Format: logging.FormatText}
	cfg.Merge(&logging.Config{Format: logging.FormatJSON})

	if cfg.Level != logging.LevelInfo {
		t.Errorf("Level = %s, want info", cfg.Level)
	}
	if cfg.Format != logging.FormatJSON {
		t.Errorf("Format = %s, want json", cfg.Format)
	}
}

func TestLevel_ToSlogLevel(t *testing.T) {
	tests := []struct {
		level logging.Level
		want  slog.Level
	}{
		{logging.LevelDebug, slog.LevelDebug},
		{logging.LevelInfo, slog.LevelInfo},
		{logging.LevelWarn, slog.LevelWarn},
		{logging.LevelError, slog.LevelError},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := tt.level.ToSlogLevel(); got != tt.want {
			t.Errorf("%q.ToSlogLevel() = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestNew(t *testing.T) {
	logger := logging.New(&logging.Config{Level: logging.LevelWarn, Format: logging.FormatJSON})
	if logger == nil {
		t.Fatal("New() returned nil")
	}
	if logger.Enabled(t.Context(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !logger.Enabled(t.Context(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}

func TestConfig_Finalize_AddSourceEnv(t *testing.T) {
	env := &logging.Env{Level: "TEST_LOGGING_LEVEL", Format: "TEST_LOGGING_FORMAT", AddSource: "TEST_LOGGING_ADD_SOURCE"}

	t.Setenv(env.AddSource, "true")
	var cfg logging.Config
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if !cfg.AddSource {
		t.Error("AddSource should be enabled from env")
	}

	t.Setenv(env.AddSource, "sometimes")
	cfg = logging.Config{}
	if err := cfg.Finalize(env); err == nil {
		t.Error("Finalize() should reject a non-boolean add_source")
	}
}

func TestParseLevel(t *testing.T) {
	if l, err := logging.ParseLevel(" Debug "); err != nil || l != logging.LevelDebug {
		t.Errorf("ParseLevel(Debug) = %q, %v", l, err)
	}
	if _, err := logging.ParseLevel("trace"); err == nil {
		t.Error("ParseLevel(trace) should fail")
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&logging.Config{Level: logging.LevelInfo, Format: logging.FormatJSON}, &buf)

	logger.Debug("hidden")
	logger.Info("task completed", "task_id", "t1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not a single JSON record: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "task completed" || rec["task_id"] != "t1" {
		t.Errorf("record = %v", rec)
	}
}
