package codegen

import (
	"bytes"

	"github.com/xplshn/kcc/pkg/config"
	"github.com/xplshn/kcc/pkg/ir"
)

// Backend turns an IR program into target assembly text.
type Backend interface {
	Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error)
	// Dump renders the backend's own lowered form of prog: legalized
	// instructions for amd64, IL for QBE.
	Dump(prog *ir.Program, cfg *config.Config) (string, error)
}

// NewBackend returns the backend cfg selects.
func NewBackend(cfg *config.Config) Backend {
	if cfg != nil && cfg.BackendName == config.BackendQBE {
		return NewQBEBackend()
	}
	return NewAMD64Backend()
}
