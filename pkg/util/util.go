package util

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/xplshn/kcc/pkg/config"
	"github.com/xplshn/kcc/pkg/token"
	"golang.org/x/term"
)

// SourceFile is the file diagnostics point into.
type SourceFile struct {
	Name    string
	Content []rune
}

var (
	mu       sync.Mutex
	source   SourceFile
	output   io.Writer = os.Stderr
	exitFunc           = os.Exit
)

func SetSourceFile(f SourceFile) {
	mu.Lock()
	defer mu.Unlock()
	source = f
}

// SetOutput redirects diagnostics. It returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()
	prev := output
	output = w
	return prev
}

func colorize(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func paint(on bool, code, s string) string {
	if !on {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func sourceLine(line int) (string, bool) {
	if line <= 0 || source.Content == nil {
		return "", false
	}
	lines := strings.Split(string(source.Content), "\n")
	if line > len(lines) {
		return "", false
	}
	return lines[line-1], true
}

func printCaret(w io.Writer, color bool, tok token.Token) {
	text, ok := sourceLine(tok.Line)
	if !ok {
		return
	}
	fmt.Fprintf(w, "  %s\n", text)
	marker := "^"
	if tok.Len > 1 {
		marker += strings.Repeat("~", tok.Len-1)
	}
	fmt.Fprintf(w, "  %s%s\n", caretPad(text, tok.Column), paint(color, "32", marker))
}

// caretPad keeps the tabs of text before col so the caret lines up with
// the echoed source line.
func caretPad(text string, col int) string {
	var sb strings.Builder
	for i, r := range []rune(text) {
		if i >= col {
			break
		}
		if r == '\t' {
			sb.WriteByte('\t')
		} else {
			sb.WriteByte(' ')
		}
	}
	for i := len([]rune(text)); i < col; i++ {
		sb.WriteByte(' ')
	}
	return sb.String()
}

func location(tok token.Token) string {
	name := source.Name
	if name == "" {
		name = "<input>"
	}
	return fmt.Sprintf("%s:%d:%d", name, tok.Line, tok.Column+1)
}

func report(kind, code string, tok token.Token, suffix, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	color := colorize(output)
	fmt.Fprintf(output, "%s: %s ", location(tok), paint(color, code, kind+":"))
	fmt.Fprintf(output, format, args...)
	fmt.Fprintln(output, suffix)
	printCaret(output, color, tok)
}

// Report prints an error diagnostic at tok and returns.
func Report(tok token.Token, format string, args ...any) {
	report("error", "31", tok, "", format, args...)
}

// Warn prints a warning if wt is enabled in cfg.
func Warn(cfg *config.Config, wt config.Warning, tok token.Token, format string, args ...any) {
	if cfg == nil || !cfg.IsWarningEnabled(wt) {
		return
	}
	report("warning", "33", tok, fmt.Sprintf(" [-W%s]", cfg.Warnings[wt].Name), format, args...)
}

// Fatalf prints a diagnostic with no source position and exits with status 1.
func Fatalf(format string, args ...any) {
	mu.Lock()
	fmt.Fprintf(output, "kcc: %s ", paint(colorize(output), "31", "error:"))
	fmt.Fprintf(output, format, args...)
	fmt.Fprintln(output)
	mu.Unlock()
	exitFunc(1)
}
