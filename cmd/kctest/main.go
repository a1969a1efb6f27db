// kctest compiles every test program with kcc and with a reference C
// compiler, runs both binaries and compares exit status and output.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/samber/lo"
)

type Execution struct {
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	ExitCode int           `json:"exitCode"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

type CompileResult struct {
	BinaryPath string     `json:"binary_path,omitempty"`
	Compile    Execution  `json:"compile"`
	Run        *Execution `json:"run,omitempty"`
}

const (
	StatusPass  = "PASS"
	StatusFail  = "FAIL"
	StatusSkip  = "SKIP"
	StatusError = "ERROR"
)

type FileResult struct {
	File      string         `json:"file"`
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Diff      string         `json:"diff,omitempty"`
	Reference *CompileResult `json:"reference,omitempty"`
	Target    *CompileResult `json:"target,omitempty"`
}

type options struct {
	refCompiler    string
	refArgs        []string
	targetCompiler string
	targetArgs     []string
	testFiles      string
	skipFiles      map[string]bool
	goldenDir      string
	outputJSON     string
	timeout        time.Duration
	jobs           int
	useCache       bool
	verbose        bool
}

const (
	cRed    = "\x1b[91m"
	cYellow = "\x1b[93m"
	cGreen  = "\x1b[92m"
	cCyan   = "\x1b[96m"
	cBold   = "\x1b[1m"
	cNone   = "\x1b[0m"
)

func main() {
	var (
		refArgs, targetArgs, skipFiles string
		generateGolden                 string
		opts                           options
	)
	flag.StringVar(&opts.refCompiler, "ref-compiler", "cc", "Path to the reference compiler.")
	flag.StringVar(&refArgs, "ref-args", "", "Arguments for the reference compiler (space-separated).")
	flag.StringVar(&opts.targetCompiler, "target-compiler", "./kcc", "Path to the compiler under test.")
	flag.StringVar(&targetArgs, "target-args", "", "Arguments for the compiler under test (space-separated).")
	flag.StringVar(&generateGolden, "generate-golden", "", "Write a golden .json file for the given source file.")
	flag.StringVar(&opts.testFiles, "test-files", "testdata/*.c", "Glob pattern(s) for files to test (space-separated).")
	flag.StringVar(&skipFiles, "skip-files", "", "Files to skip (space-separated).")
	flag.StringVar(&opts.outputJSON, "output", ".test_results.json", "Output file for the JSON report.")
	flag.StringVar(&opts.goldenDir, "dir", "", "Directory for golden JSON files (defaults to the source file's directory).")
	flag.DurationVar(&opts.timeout, "timeout", 5*time.Second, "Timeout for each command.")
	flag.IntVar(&opts.jobs, "j", 4, "Number of parallel jobs.")
	flag.BoolVar(&opts.useCache, "cached", false, "Prefer golden files over the reference compiler.")
	flag.BoolVar(&opts.verbose, "v", false, "Print timings for passing files.")
	flag.Parse()
	log.SetFlags(0)

	opts.refArgs, opts.targetArgs = strings.Fields(refArgs), strings.Fields(targetArgs)
	opts.skipFiles = lo.SliceToMap(strings.Fields(skipFiles), func(f string) (string, bool) { return f, true })
	if opts.jobs < 1 {
		opts.jobs = 1
	}

	tempDir, err := os.MkdirTemp("", "kctest-*")
	if err != nil {
		log.Fatalf("%s[ERROR]%s Failed to create temp directory: %v\n", cRed, cNone, err)
	}
	defer os.RemoveAll(tempDir)
	cleanupOnInterrupt(tempDir)

	if generateGolden != "" {
		if err := writeGolden(opts, generateGolden, tempDir); err != nil {
			log.Fatalf("%s[ERROR]%s %v\n", cRed, cNone, err)
		}
		return
	}

	results, err := runSuite(opts, tempDir)
	if err != nil {
		log.Fatalf("%s[ERROR]%s %v\n", cRed, cNone, err)
	}
	printSummary(os.Stdout, results, opts.verbose)
	if err := writeReport(opts, results); err != nil {
		log.Printf("%s[ERROR]%s %v\n", cRed, cNone, err)
	}
	if hasFailures(results) {
		os.RemoveAll(tempDir)
		os.Exit(1)
	}
}

func cleanupOnInterrupt(tempDir string) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		<-c
		os.RemoveAll(tempDir)
		fmt.Printf("\n%s[INTERRUPT]%s Test run cancelled. Cleaning up...\n", cYellow, cNone)
		os.Exit(1)
	}()
}

func goldenPath(goldenDir, sourceFile string) string {
	name := "." + filepath.Base(sourceFile) + ".json"
	if goldenDir != "" {
		return filepath.Join(goldenDir, name)
	}
	return filepath.Join(filepath.Dir(sourceFile), name)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", h.Sum64()), nil
}

func writeGolden(opts options, sourceFile, tempDir string) error {
	hash, err := hashFile(sourceFile)
	if err != nil {
		return fmt.Errorf("could not hash %s: %w", sourceFile, err)
	}
	result, err := compileAndRun(opts, opts.targetCompiler, opts.targetArgs, sourceFile, tempDir, hash)
	if err != nil {
		return fmt.Errorf("could not generate golden file for %s: %w", sourceFile, err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if opts.goldenDir != "" {
		if err := os.MkdirAll(opts.goldenDir, 0o755); err != nil {
			return err
		}
	}
	path := goldenPath(opts.goldenDir, sourceFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	log.Printf("%s[SUCCESS]%s Golden file created at %s\n", cGreen, cNone, path)
	return nil
}

func runSuite(opts options, tempDir string) ([]*FileResult, error) {
	files, err := expandGlobPatterns(opts.testFiles)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern(s): %w", err)
	}
	_, lookErr := exec.LookPath(opts.refCompiler)
	haveRef := lookErr == nil
	if !haveRef && !opts.useCache {
		log.Printf("%s[WARN]%s Reference compiler '%s' not found. Relying on golden files.\n", cYellow, cNone, opts.refCompiler)
	}

	tasks := make(chan [2]string, len(files))
	results := make(chan *FileResult, len(files))
	var wg sync.WaitGroup
	for i := 0; i < opts.jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				results <- testFile(opts, task[0], tempDir, task[1], haveRef)
			}
		}()
	}

	seen := make(map[string]string)
	for _, file := range files {
		if opts.skipFiles[file] || opts.skipFiles[filepath.Base(file)] {
			results <- &FileResult{File: file, Status: StatusSkip, Message: "Explicitly skipped"}
			continue
		}
		hash, err := hashFile(file)
		if err != nil {
			results <- &FileResult{File: file, Status: StatusError, Message: fmt.Sprintf("Failed to hash file: %v", err)}
			continue
		}
		if orig, dup := seen[hash]; dup {
			results <- &FileResult{File: file, Status: StatusSkip, Message: fmt.Sprintf("Content is identical to %s", orig)}
			continue
		}
		seen[hash] = file
		tasks <- [2]string{file, hash}
	}
	close(tasks)
	wg.Wait()
	close(results)

	var all []*FileResult
	for r := range results {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].File < all[j].File })
	return all, nil
}

func testFile(opts options, file, tempDir, hash string, haveRef bool) *FileResult {
	golden := goldenPath(opts.goldenDir, file)
	_, statErr := os.Stat(golden)
	hasGolden := statErr == nil

	var ref *CompileResult
	var refErr error
	switch {
	case hasGolden && (opts.useCache || !haveRef):
		data, err := os.ReadFile(golden)
		if err != nil {
			return &FileResult{File: file, Status: StatusError, Message: fmt.Sprintf("Could not read golden file: %v", err)}
		}
		ref = &CompileResult{}
		if err := json.Unmarshal(data, ref); err != nil {
			return &FileResult{File: file, Status: StatusError, Message: fmt.Sprintf("Could not parse golden file: %v", err)}
		}
	case haveRef:
		ref, refErr = compileAndRun(opts, opts.refCompiler, opts.refArgs, file, tempDir, "ref-"+hash)
	default:
		return &FileResult{File: file, Status: StatusSkip, Message: "No reference compiler and no golden file"}
	}

	target, targetErr := compileAndRun(opts, opts.targetCompiler, opts.targetArgs, file, tempDir, "target-"+hash)
	return compareResults(file, ref, refErr == nil && ref.Run != nil, target, targetErr == nil)
}

// compareResults decides a file's status. A program both compilers reject
// passes.
func compareResults(file string, ref *CompileResult, refOK bool, target *CompileResult, targetOK bool) *FileResult {
	res := &FileResult{File: file, Reference: ref, Target: target}
	switch {
	case !refOK && !targetOK:
		res.Status, res.Message = StatusPass, "Both compilers rejected the program"
	case !targetOK:
		res.Status, res.Message = StatusFail, "Target compiler failed, but the reference succeeded"
		res.Diff = "Target compiler stderr:\n" + target.Compile.Stderr
	case !refOK:
		res.Status, res.Message = StatusFail, "Target compiler succeeded, but the reference failed"
		res.Diff = "Reference compiler stderr:\n" + ref.Compile.Stderr
	default:
		var diffs strings.Builder
		if ref.Run.ExitCode != target.Run.ExitCode {
			fmt.Fprintf(&diffs, "Exit code mismatch:\n  - Ref:    %d\n  - Target: %d\n", ref.Run.ExitCode, target.Run.ExitCode)
		}
		if ref.Run.TimedOut != target.Run.TimedOut {
			fmt.Fprintf(&diffs, "Timeout mismatch:\n  - Ref:    %v\n  - Target: %v\n", ref.Run.TimedOut, target.Run.TimedOut)
		}
		if d := cmp.Diff(ref.Run.Stdout, target.Run.Stdout); d != "" {
			fmt.Fprintf(&diffs, "STDOUT mismatch:\n%s", d)
		}
		if diffs.Len() > 0 {
			res.Status, res.Message, res.Diff = StatusFail, "Exit code or output mismatch", diffs.String()
		} else {
			res.Status, res.Message = StatusPass, fmt.Sprintf("Exit code %d matches", target.Run.ExitCode)
		}
	}
	return res
}

func executeCommand(ctx context.Context, command string, args ...string) Execution {
	start := time.Now()
	cmd := exec.CommandContext(ctx, command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	err := cmd.Run()

	res := Execution{Stdout: stdout.String(), Stderr: stderr.String(), Duration: time.Since(start)}
	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		res.TimedOut, res.ExitCode = true, -1
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case err != nil:
		res.ExitCode = -2
		res.Stderr += "\nExecution error: " + err.Error()
	}
	return res
}

func compileAndRun(opts options, compiler string, compilerArgs []string, sourceFile, tempDir, binaryName string) (*CompileResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	binaryPath := filepath.Join(tempDir, binaryName)
	args := append(append([]string{"-o", binaryPath}, compilerArgs...), sourceFile)
	result := &CompileResult{Compile: executeCommand(ctx, compiler, args...)}
	if result.Compile.ExitCode != 0 || result.Compile.TimedOut {
		return result, fmt.Errorf("compilation failed with exit code %d", result.Compile.ExitCode)
	}
	if _, err := os.Stat(binaryPath); err != nil {
		return result, fmt.Errorf("compilation succeeded but no binary at %s", binaryPath)
	}
	result.BinaryPath = binaryPath

	runCtx, runCancel := context.WithTimeout(context.Background(), opts.timeout)
	defer runCancel()
	run := executeCommand(runCtx, binaryPath)
	result.Run = &run
	return result, nil
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%6dus", d.Microseconds())
	}
	return fmt.Sprintf("%6dms", d.Milliseconds())
}

func formatDiff(diff string) string {
	if diff == "" {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("    --- Diff ---\n")
	for _, line := range strings.Split(diff, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "-"):
			sb.WriteString(cRed)
		case strings.HasPrefix(trimmed, "+"):
			sb.WriteString(cGreen)
		}
		sb.WriteString("    " + line + cNone + "\n")
	}
	return sb.String()
}

func printSummary(w io.Writer, results []*FileResult, verbose bool) {
	counts := lo.CountValuesBy(results, func(r *FileResult) string { return r.Status })
	for _, r := range results {
		fmt.Fprintln(w, "----------------------------------------------------------------------")
		fmt.Fprintf(w, "Testing %s%s%s...\n", cCyan, r.File, cNone)
		switch r.Status {
		case StatusPass:
			fmt.Fprintf(w, "  [%sPASS%s] %s\n", cGreen, cNone, r.Message)
		case StatusFail:
			fmt.Fprintf(w, "  [%sFAIL%s] %s\n", cRed, cNone, r.Message)
			fmt.Fprintln(w, formatDiff(r.Diff))
		case StatusSkip:
			fmt.Fprintf(w, "  [%sSKIP%s] %s\n", cYellow, cNone, r.Message)
		case StatusError:
			fmt.Fprintf(w, "  [%sERROR%s] %s\n", cRed, cNone, r.Message)
		}
		if verbose && r.Status == StatusPass && r.Target != nil && r.Reference != nil {
			fmt.Fprintf(w, "  [target_comp: %s | ref_comp: %s]\n",
				formatDuration(r.Target.Compile.Duration), formatDuration(r.Reference.Compile.Duration))
		}
	}
	fmt.Fprintln(w, "----------------------------------------------------------------------")
	fmt.Fprintf(w, "%sTest Summary:%s %s%d Passed%s, %s%d Failed%s, %s%d Skipped%s, %s%d Errored%s, %d Total\n",
		cBold, cNone, cGreen, counts[StatusPass], cNone, cRed, counts[StatusFail], cNone,
		cYellow, counts[StatusSkip], cNone, cRed, counts[StatusError], cNone, len(results))
}

func writeReport(opts options, results []*FileResult) error {
	byFile := lo.SliceToMap(results, func(r *FileResult) (string, *FileResult) { return r.File, r })
	data, err := json.MarshalIndent(byFile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	path := opts.outputJSON
	if opts.goldenDir != "" {
		if err := os.MkdirAll(opts.goldenDir, 0o755); err != nil {
			return err
		}
		path = filepath.Join(opts.goldenDir, opts.outputJSON)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}
	fmt.Printf("Full test report saved to %s\n", path)
	return nil
}

func hasFailures(results []*FileResult) bool {
	return lo.SomeBy(results, func(r *FileResult) bool {
		return r.Status == StatusFail || r.Status == StatusError
	})
}

func expandGlobPatterns(patterns string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, pattern := range strings.Fields(patterns) {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %s: %w", pattern, err)
		}
		for _, m := range matches {
			abs, err := filepath.Abs(m)
			if err != nil || seen[abs] {
				continue
			}
			if info, err := os.Stat(abs); err == nil && info.Mode().IsRegular() {
				files = append(files, abs)
				seen[abs] = true
			}
		}
	}
	return files, nil
}
