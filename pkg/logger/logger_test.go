package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Init(Config{Level: LevelWarn, Format: "text", Output: &buf}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _, _ = Init(Config{Level: LevelError, Output: &bytes.Buffer{}}) })

	Debug("hidden")
	Info("hidden")
	Warn("shown", "k", 1)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below level leaked: %q", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "k=1") {
		t.Errorf("warn message missing: %q", out)
	}
}

func TestStageJSON(t *testing.T) {
	var buf bytes.Buffer
	if _, err := Init(Config{Level: LevelDebug, Format: "json", Output: &buf}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _, _ = Init(Config{Level: LevelError, Output: &bytes.Buffer{}}) })

	Stage("lex", "tokens", 12)
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if rec["stage"] != "lex" || rec["tokens"] != float64(12) {
		t.Errorf("unexpected record %v", rec)
	}
}
