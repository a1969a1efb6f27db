package main

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/xplshn/kcc/pkg/cli"
	"github.com/xplshn/kcc/pkg/codegen"
	"github.com/xplshn/kcc/pkg/config"
	"github.com/xplshn/kcc/pkg/driver"
	"github.com/xplshn/kcc/pkg/logger"
	"github.com/xplshn/kcc/pkg/util"
)

func main() {
	app := cli.NewApp("kcc")
	app.Synopsis = "[options] <input.c>"
	app.Description = "A compiler for a small subset of C: one 'int main(void)' returning an integer expression."
	app.Authors = []string{"xplshn"}
	app.Repository = "<https://github.com/xplshn/kcc>"

	var (
		outFile      string
		target       string
		cc           string
		logFile      string
		defines      []string
		includes     []string
		linkerArgs   []string
		lexOnly      bool
		parseOnly    bool
		validateOnly bool
		tackyOnly    bool
		codegenOnly  bool
		asmOnly      bool
		noPreprocess bool
		verbose      bool
	)

	fs := app.FlagSet
	fs.String(&outFile, "output", "o", "", "Place the output into <file>.", "file")
	fs.String(&target, "target", "t", "amd64", "Set the backend and target ABI.", "backend/target")
	fs.String(&cc, "cc", "", "cc", "C compiler driver used to preprocess and link.", "path")
	fs.Bool(&lexOnly, "lex", "", false, "Print the token stream and exit.")
	fs.Bool(&parseOnly, "parse", "", false, "Print the syntax tree and exit.")
	fs.Bool(&validateOnly, "validate", "", false, "Check the program and exit without output.")
	fs.Bool(&tackyOnly, "tacky", "", false, "Print the three-address IR and exit.")
	fs.Bool(&codegenOnly, "codegen", "", false, "Print the backend's lowered program and exit.")
	fs.Bool(&asmOnly, "assembly", "S", false, "Write assembly to <input>.s instead of linking.")
	fs.Bool(&noPreprocess, "no-preprocess", "", false, "Read the input as is instead of running 'cc -E'.")
	fs.Bool(&verbose, "verbose", "v", false, "Log each compilation stage.")
	fs.String(&logFile, "log-file", "", "", "Write logs to <file> instead of stderr.", "file")

	fs.List(&linkerArgs, "linker-arg", "L", []string{}, "Pass <arg> to the linker.", "arg")
	fs.Special(&defines, "D", "Define <macro> for the preprocessor.", "macro[=value]")
	fs.Special(&includes, "I", "Add <dir> to the preprocessor's include path.", "dir")

	cfg := config.NewConfig()
	cfg.SetupFlagGroups(fs)

	app.Action = func(inputFiles []string) error {
		logCfg := logger.DefaultConfig()
		logCfg.LogFile = logFile
		if verbose {
			logCfg.Level = logger.LevelDebug
		}
		closer, err := logger.Init(logCfg)
		if err != nil {
			util.Fatalf("cannot open log file: %v", err)
		}
		defer closer.Close()

		if err := cfg.ApplyFlagGroups(fs); err != nil {
			util.Fatalf("%v", err)
		}
		if err := cfg.SetTarget(runtime.GOOS, runtime.GOARCH, target); err != nil {
			util.Fatalf("%v", err)
		}

		if len(inputFiles) != 1 {
			util.Fatalf("expected exactly one input file, got %d", len(inputFiles))
		}

		mode := driver.ModeLink
		switch {
		case lexOnly:
			mode = driver.ModeLex
		case parseOnly:
			mode = driver.ModeParse
		case validateOnly:
			mode = driver.ModeValidate
		case tackyOnly:
			mode = driver.ModeTacky
		case codegenOnly:
			mode = driver.ModeCodegen
		case asmOnly:
			mode = driver.ModeAssembly
		}

		err = driver.Run(driver.Options{
			Input:      inputFiles[0],
			Output:     outFile,
			Mode:       mode,
			Preprocess: !noPreprocess,
			CC:         cc,
			CPPFlags:   cppFlags(defines, includes),
			LinkerArgs: linkerArgs,
			Config:     cfg,
		})
		switch {
		case err == nil:
			return nil
		case errors.Is(err, driver.ErrDiagnosed):
		case errors.Is(err, codegen.ErrInternal):
			fmt.Fprintf(os.Stderr, "kcc: %v\n", err)
		default:
			fmt.Fprintf(os.Stderr, "kcc: error: %v\n", err)
		}
		return err
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func cppFlags(defines, includes []string) []string {
	flags := make([]string, 0, len(defines)+len(includes))
	for _, d := range defines {
		flags = append(flags, "-D"+d)
	}
	for _, dir := range includes {
		flags = append(flags, "-I"+dir)
	}
	return flags
}
