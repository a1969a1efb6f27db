//go:build !windows

package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xplshn/kcc/pkg/config"
	"github.com/xplshn/kcc/pkg/ir"
	"github.com/xplshn/kcc/pkg/logger"
	"modernc.org/libqbe"
)

func (b *qbeBackend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	qbeIR, err := b.GenerateIR(prog, cfg)
	if err != nil {
		return nil, err
	}
	logger.Stage("qbe", "target", cfg.BackendTarget, "bytes", len(qbeIR))

	var asmBuf bytes.Buffer
	if err := libqbe.Main(cfg.BackendTarget, "input.ssa", strings.NewReader(qbeIR), &asmBuf, nil); err != nil {
		return nil, fmt.Errorf("QBE compilation failed: %w\ngenerated IL:\n%s", err, qbeIR)
	}
	return &asmBuf, nil
}
