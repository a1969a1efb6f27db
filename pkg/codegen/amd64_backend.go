package codegen

import (
	"bytes"

	"github.com/xplshn/kcc/pkg/asm"
	"github.com/xplshn/kcc/pkg/config"
	"github.com/xplshn/kcc/pkg/ir"
	"github.com/xplshn/kcc/pkg/logger"
)

type amd64Backend struct{}

func NewAMD64Backend() Backend { return &amd64Backend{} }

// Lower runs selection, stack assignment and legalization.
func (b *amd64Backend) Lower(prog *ir.Program) (*asm.Program, error) {
	selected, err := SelectInstructions(prog)
	if err != nil {
		return nil, err
	}
	assigned, frameSize := AssignStack(selected)
	legal := Legalize(assigned, frameSize)
	logger.Stage("amd64", "function", prog.Func.Name,
		"selected", len(selected.Func.Instructions),
		"legalized", len(legal.Func.Instructions),
		"frame", frameSize)
	return legal, nil
}

func (b *amd64Backend) Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	legal, err := b.Lower(prog)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := Emit(&buf, legal, cfg); err != nil {
		return nil, err
	}
	return &buf, nil
}

func (b *amd64Backend) Dump(prog *ir.Program, _ *config.Config) (string, error) {
	legal, err := b.Lower(prog)
	if err != nil {
		return "", err
	}
	return legal.String(), nil
}
