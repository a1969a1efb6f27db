//go:build windows

package codegen

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"github.com/xplshn/kcc/pkg/config"
	"github.com/xplshn/kcc/pkg/ir"
	"github.com/xplshn/kcc/pkg/logger"
)

// Generate shells out to a system qbe; libqbe does not build on windows.
func (b *qbeBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	if _, err := exec.LookPath("qbe"); err != nil {
		return nil, fmt.Errorf("qbe not found in PATH: %w", err)
	}
	qbeIR, err := b.GenerateIR(prog, cfg)
	if err != nil {
		return nil, err
	}
	logger.Warn("using system qbe", "target", cfg.BackendTarget)

	input, err := os.CreateTemp("", "kcc-qbe-*.ssa")
	if err != nil {
		return nil, err
	}
	defer os.Remove(input.Name())
	if _, err := input.WriteString(qbeIR); err != nil {
		input.Close()
		return nil, err
	}
	input.Close()

	var asmBuf, stderr bytes.Buffer
	cmd := exec.Command("qbe", "-t", cfg.BackendTarget, input.Name())
	cmd.Stdout, cmd.Stderr = &asmBuf, &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("QBE compilation failed: %w\n%s\ngenerated IL:\n%s", err, stderr.String(), qbeIR)
	}
	return &asmBuf, nil
}
