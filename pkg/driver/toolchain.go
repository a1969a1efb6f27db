package driver

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Preprocess runs cc's preprocessor over input and returns the path of a
// temporary file holding the result. The caller removes it.
func Preprocess(cc, input string, cppFlags []string) (string, error) {
	out, err := os.CreateTemp("", "kcc-*.i")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file for preprocessed source: %w", err)
	}
	out.Close()

	cmd := exec.Command(cc, preprocessArgs(input, out.Name(), cppFlags)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		os.Remove(out.Name())
		return "", fmt.Errorf("preprocessor failed: %w\nOutput:\n%s", err, string(output))
	}
	return out.Name(), nil
}

func preprocessArgs(input, outFile string, cppFlags []string) []string {
	args := []string{"-E", "-P"}
	args = append(args, cppFlags...)
	return append(args, "-o", outFile, input)
}

// AssembleAndLink writes asmText to a temporary .s file and links it into
// outFile with cc. linkerArgs go after the object so libraries resolve.
func AssembleAndLink(cc, asmText, outFile string, linkerArgs []string) error {
	asmFile, err := os.CreateTemp("", "kcc-*.s")
	if err != nil {
		return fmt.Errorf("failed to create temp file for asm: %w", err)
	}
	defer os.Remove(asmFile.Name())
	if _, err := asmFile.WriteString(asmText); err != nil {
		asmFile.Close()
		return fmt.Errorf("failed to write to temp file for asm: %w", err)
	}
	asmFile.Close()

	cmd := exec.Command(cc, linkArgs(runtime.GOOS, asmFile.Name(), outFile, linkerArgs)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("cc command failed: %w\nOutput:\n%s", err, string(output))
	}
	return nil
}

func linkArgs(goos, asmFile, outFile string, linkerArgs []string) []string {
	var args []string
	if goos == "linux" {
		args = append(args, "-no-pie")
	}
	args = append(args, "-o", outFile, asmFile)
	return append(args, linkerArgs...)
}
