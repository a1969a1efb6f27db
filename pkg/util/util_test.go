package util

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/kcc/pkg/config"
	"github.com/xplshn/kcc/pkg/token"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	t.Cleanup(func() { SetOutput(prev) })
	return &buf
}

func TestReportFormat(t *testing.T) {
	buf := capture(t)
	SetSourceFile(SourceFile{Name: "ret.c", Content: []rune("int main(void) {\n    return 1abc;\n}\n")})
	t.Cleanup(func() { SetSourceFile(SourceFile{}) })

	Report(token.Token{Type: token.Number, Line: 2, Column: 11, Len: 4}, "invalid number '%s'", "1abc")

	want := "ret.c:2:12: error: invalid number '1abc'\n" +
		"      return 1abc;\n" +
		"             ^~~~\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("diagnostic mismatch (-want +got):\n%s", diff)
	}
}

func TestWarnRespectsConfig(t *testing.T) {
	buf := capture(t)
	cfg := config.NewConfig()
	tok := token.Token{Line: 1}

	Warn(cfg, config.WarnOverflow, tok, "too big")
	if got := buf.String(); got != "<input>:1:1: warning: too big [-Woverflow]\n" {
		t.Errorf("unexpected warning text %q", got)
	}

	buf.Reset()
	cfg.SetWarning(config.WarnOverflow, false)
	Warn(cfg, config.WarnOverflow, tok, "too big")
	if buf.Len() != 0 {
		t.Errorf("disabled warning still printed: %q", buf.String())
	}
}

func TestCaretFollowsTabs(t *testing.T) {
	buf := capture(t)
	SetSourceFile(SourceFile{Name: "tab.c", Content: []rune("int main(void) {\n\t\treturn 1 @ 2;\n}\n")})
	t.Cleanup(func() { SetSourceFile(SourceFile{}) })

	Report(token.Token{Line: 2, Column: 11, Len: 1}, "Unexpected character: '@'")

	want := "tab.c:2:12: error: Unexpected character: '@'\n" +
		"  \t\treturn 1 @ 2;\n" +
		"  \t\t         ^\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("diagnostic mismatch (-want +got):\n%s", diff)
	}
}

func TestCaretPastEndOfLine(t *testing.T) {
	if got := caretPad("\tab", 5); got != "\t    " {
		t.Errorf("caretPad = %q", got)
	}
}

func TestFatalfExits(t *testing.T) {
	buf := capture(t)
	code := -1
	prev := exitFunc
	exitFunc = func(c int) { code = c }
	t.Cleanup(func() { exitFunc = prev })

	Fatalf("no input files")
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if got := buf.String(); got != "kcc: error: no input files\n" {
		t.Errorf("unexpected text %q", got)
	}
}
