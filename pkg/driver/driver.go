// Package driver runs the kcc pipeline from a source file to assembly or
// an executable and stops early for the inspection modes.
package driver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/samber/lo"
	"github.com/xplshn/kcc/pkg/ast"
	"github.com/xplshn/kcc/pkg/codegen"
	"github.com/xplshn/kcc/pkg/config"
	"github.com/xplshn/kcc/pkg/ir"
	"github.com/xplshn/kcc/pkg/lexer"
	"github.com/xplshn/kcc/pkg/logger"
	"github.com/xplshn/kcc/pkg/parser"
	"github.com/xplshn/kcc/pkg/token"
	"github.com/xplshn/kcc/pkg/typeChecker"
	"github.com/xplshn/kcc/pkg/util"
)

type Mode int

const (
	ModeLink Mode = iota
	ModeLex
	ModeParse
	ModeValidate
	ModeTacky
	ModeCodegen
	ModeAssembly
)

var modeNames = map[Mode]string{
	ModeLink: "link", ModeLex: "lex", ModeParse: "parse", ModeValidate: "validate",
	ModeTacky: "tacky", ModeCodegen: "codegen", ModeAssembly: "assembly",
}

func (m Mode) String() string { return modeNames[m] }

// ErrDiagnosed means the failure was already reported through pkg/util.
var ErrDiagnosed = errors.New("compilation failed")

type Options struct {
	Input      string
	Output     string
	Mode       Mode
	Preprocess bool
	CC         string
	// CPPFlags go to the preprocessor, LinkerArgs to the final link.
	CPPFlags   []string
	LinkerArgs []string
	Config     *config.Config
	Stdout     io.Writer
}

// FrontendResult holds what the front end produced before stopping. Program
// is nil after ModeLex and Types is nil after ModeParse.
type FrontendResult struct {
	Tokens  []token.Token
	Program *ast.Program
	Types   *ast.TypeInfo
}

// Frontend lexes, parses and checks src. Diagnostics are reported as they
// are found; the returned error is ErrDiagnosed in that case.
func Frontend(src []rune, cfg *config.Config, stopAfter Mode) (*FrontendResult, error) {
	toks, err := lexer.Tokenize(src, cfg)
	logger.Stage("lex", "tokens", len(toks))
	if err != nil {
		var list lexer.ErrorList
		if errors.As(err, &list) {
			lo.ForEach(list, func(e *lexer.Error, _ int) { util.Report(e.Tok(), "%s", e.Msg) })
		}
		return nil, ErrDiagnosed
	}
	res := &FrontendResult{Tokens: toks}
	if stopAfter == ModeLex {
		return res, nil
	}

	prog, err := parser.NewParser(toks, cfg).Parse()
	if err != nil {
		var list parser.ErrorList
		if errors.As(err, &list) {
			lo.ForEach(list, func(e *parser.Error, _ int) { util.Report(e.Tok, "%s", e.Msg) })
		}
		return nil, ErrDiagnosed
	}
	logger.Stage("parse", "functions", len(prog.Functions))
	res.Program = prog
	if stopAfter == ModeParse {
		return res, nil
	}

	info, err := typeChecker.NewTypeChecker(cfg).Check(prog)
	if err != nil {
		var list typeChecker.ErrorList
		if errors.As(err, &list) {
			lo.ForEach(list, func(e *typeChecker.Error, _ int) { util.Report(e.Tok, "%s", e.Msg) })
		}
		return nil, ErrDiagnosed
	}
	logger.Debug("type check", "expressions", len(info.Types))
	res.Types = info
	return res, nil
}

// CompileSource turns src into target assembly for cfg's backend.
func CompileSource(src []rune, cfg *config.Config) (*bytes.Buffer, error) {
	res, err := Frontend(src, cfg, ModeLink)
	if err != nil {
		return nil, err
	}
	irProg, err := codegen.NewContext(cfg).WithTypes(res.Types).GenerateIR(res.Program)
	if err != nil {
		return nil, err
	}
	return codegen.NewBackend(cfg).Generate(irProg, cfg)
}

// DefaultOutput derives the output path for mode from the input path.
func DefaultOutput(input string, mode Mode) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	if mode == ModeAssembly {
		return base + ".s"
	}
	return base
}

// Run compiles opts.Input according to opts.Mode.
func Run(opts Options) error {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewConfig()
		if err := cfg.SetTarget(runtime.GOOS, runtime.GOARCH, ""); err != nil {
			return err
		}
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	cc := lo.Ternary(opts.CC != "", opts.CC, "cc")

	if _, err := os.Stat(opts.Input); err != nil {
		return fmt.Errorf("cannot read input: %w", err)
	}
	path := opts.Input
	if opts.Preprocess {
		pre, err := Preprocess(cc, opts.Input, opts.CPPFlags)
		if err != nil {
			return err
		}
		defer os.Remove(pre)
		path = pre
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read input: %w", err)
	}
	src := []rune(string(content))
	util.SetSourceFile(util.SourceFile{Name: opts.Input, Content: src})
	logger.Info("compiling", "input", opts.Input, "mode", opts.Mode.String(), "backend", cfg.BackendName)

	res, err := Frontend(src, cfg, opts.Mode)
	if err != nil {
		return err
	}
	switch opts.Mode {
	case ModeLex:
		_, err := io.WriteString(stdout, lexer.Dump(res.Tokens))
		return err
	case ModeParse:
		_, err := io.WriteString(stdout, ast.Format(res.Program))
		return err
	case ModeValidate:
		return nil
	}

	irProg, err := codegen.NewContext(cfg).WithTypes(res.Types).GenerateIR(res.Program)
	if err != nil {
		return err
	}
	logger.Stage("tacky", "instructions", len(irProg.Func.Instructions))
	if opts.Mode == ModeTacky {
		_, err := io.WriteString(stdout, irProg.String())
		return err
	}
	if opts.Mode == ModeCodegen {
		return dumpLowered(stdout, irProg, cfg)
	}

	out, err := codegen.NewBackend(cfg).Generate(irProg, cfg)
	if err != nil {
		return err
	}
	output := lo.Ternary(opts.Output != "", opts.Output, DefaultOutput(opts.Input, opts.Mode))
	if opts.Mode == ModeAssembly {
		if err := os.WriteFile(output, out.Bytes(), 0o644); err != nil {
			return fmt.Errorf("cannot write assembly: %w", err)
		}
		logger.Info("wrote assembly", "output", output)
		return nil
	}
	if err := AssembleAndLink(cc, out.String(), output, opts.LinkerArgs); err != nil {
		return err
	}
	logger.Info("linked", "output", output)
	return nil
}

// dumpLowered prints the backend's view of irProg without assembling it.
func dumpLowered(w io.Writer, irProg *ir.Program, cfg *config.Config) error {
	text, err := codegen.NewBackend(cfg).Dump(irProg, cfg)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}
