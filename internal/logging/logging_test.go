package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	t.Run("default output", func(t *testing.T) {
		logger := NewLogger(Config{Level: InfoLevel})
		if logger == nil {
			t.Fatal("NewLogger returned nil")
		}
	})

	t.Run("custom output", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewLogger(Config{Level: InfoLevel, Output: buf})
		if logger.writer != buf {
			t.Error("logger should use the provided writer")
		}
	})
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Level: WarnLevel, Format: JSONFormat, Output: buf})

	logger.Debug("debug msg", nil)
	logger.Info("info msg", nil)
	logger.Warn("warn msg", nil)
	logger.Error("error msg", nil)

	out := buf.String()
	if strings.Contains(out, "debug msg") || strings.Contains(out, "info msg") {
		t.Errorf("messages below warn leaked through: %s", out)
	}
	if !strings.Contains(out, "warn msg") || !strings.Contains(out, "error msg") {
		t.Errorf("warn/error messages missing: %s", out)
	}
}

func TestJSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Level: InfoLevel, Format: JSONFormat, Output: buf})

	logger.Info("indexed file", map[string]interface{}{"file": "lib/foo.rb", "entries": 3})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["level"] != "info" || entry["message"] != "indexed file" {
		t.Errorf("entry = %v", entry)
	}
	fields, ok := entry["fields"].(map[string]interface{})
	if !ok || fields["file"] != "lib/foo.rb" {
		t.Errorf("fields = %v", entry["fields"])
	}
}

func TestHumanFormatSortsFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Level: InfoLevel, Format: HumanFormat, Output: buf})

	logger.Info("done", map[string]interface{}{"zeta": 1, "alpha": 2})

	out := buf.String()
	if !strings.Contains(out, "[info] done") {
		t.Errorf("output = %q", out)
	}
	if strings.Index(out, "alpha=2") > strings.Index(out, "zeta=1") {
		t.Errorf("fields not sorted: %q", out)
	}
}

func TestWith(t *testing.T) {
	buf := &bytes.Buffer{}
	parent := NewLogger(Config{Level: InfoLevel, Format: JSONFormat, Output: buf})
	child := parent.With(map[string]interface{}{"component": "indexer"})

	child.Info("started", map[string]interface{}{"workers": 4})

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	fields := entry["fields"].(map[string]interface{})
	if fields["component"] != "indexer" {
		t.Errorf("base field missing: %v", fields)
	}
	if fields["workers"] != float64(4) {
		t.Errorf("call field missing: %v", fields)
	}

	// The parent stays free of the child's base fields.
	buf.Reset()
	parent.Info("plain", nil)
	if strings.Contains(buf.String(), "component") {
		t.Errorf("parent logger inherited child fields: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{" error ", ErrorLevel},
		{"", InfoLevel},
		{"bogus", InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
