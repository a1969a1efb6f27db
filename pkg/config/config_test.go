package config

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xplshn/kcc/pkg/cli"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	for ft := Feature(0); ft < FeatCount; ft++ {
		if !cfg.IsFeatureEnabled(ft) {
			t.Errorf("feature %s disabled by default", cfg.Features[ft].Name)
		}
	}
	for wt := Warning(0); wt < WarnCount; wt++ {
		if !cfg.IsWarningEnabled(wt) {
			t.Errorf("warning %s disabled by default", cfg.Warnings[wt].Name)
		}
	}
	if cfg.BackendName != BackendAMD64 {
		t.Errorf("BackendName = %q", cfg.BackendName)
	}
}

func TestSetTarget(t *testing.T) {
	tests := []struct {
		goos, spec           string
		backend, target      string
		darwin, elf, wantErr bool
	}{
		{"linux", "", BackendAMD64, "amd64_linux", false, true, false},
		{"linux", "amd64", BackendAMD64, "amd64_linux", false, true, false},
		{"linux", "amd64/darwin", BackendAMD64, "amd64_darwin", true, false, false},
		{"darwin", "", BackendAMD64, "amd64_darwin", true, false, false},
		{"linux", "qbe/amd64_sysv", BackendQBE, "amd64_sysv", false, true, false},
		{"linux", "qbe/arm64_apple", BackendQBE, "arm64_apple", true, false, false},
		{"linux", "amd64/plan9", "", "", false, false, true},
		{"linux", "qbe/vax", "", "", false, false, true},
		{"linux", "llvm", "", "", false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.goos+" "+tt.spec, func(t *testing.T) {
			cfg := NewConfig()
			err := cfg.SetTarget(tt.goos, "amd64", tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if cfg.BackendName != tt.backend || cfg.BackendTarget != tt.target {
				t.Errorf("got %s/%s, want %s/%s", cfg.BackendName, cfg.BackendTarget, tt.backend, tt.target)
			}
			if cfg.IsDarwin() != tt.darwin || cfg.IsELF() != tt.elf {
				t.Errorf("IsDarwin=%v IsELF=%v", cfg.IsDarwin(), cfg.IsELF())
			}
		})
	}
}

func TestApplyFlag(t *testing.T) {
	cfg := NewConfig()
	for _, flag := range []string{"-Wno-overflow", "-Fno-comments"} {
		if err := cfg.ApplyFlag(flag); err != nil {
			t.Fatalf("ApplyFlag(%q): %v", flag, err)
		}
	}
	if cfg.IsWarningEnabled(WarnOverflow) || cfg.IsFeatureEnabled(FeatComments) {
		t.Error("negative flags had no effect")
	}
	if !cfg.IsWarningEnabled(WarnUnreachableCode) {
		t.Error("unrelated warning changed")
	}

	if err := cfg.ApplyFlag("-Wno-all"); err != nil {
		t.Fatal(err)
	}
	for wt := Warning(0); wt < WarnCount; wt++ {
		if cfg.IsWarningEnabled(wt) {
			t.Errorf("warning %s still on after -Wno-all", cfg.Warnings[wt].Name)
		}
	}
	if err := cfg.ApplyFlag("-Wall"); err != nil || !cfg.IsWarningEnabled(WarnOverflow) {
		t.Errorf("-Wall: err=%v overflow=%v", err, cfg.IsWarningEnabled(WarnOverflow))
	}

	for _, bad := range []string{"-Wbogus", "-Fbogus", "-X", "-Qfoo"} {
		if err := cfg.ApplyFlag(bad); err == nil {
			t.Errorf("ApplyFlag(%q) accepted", bad)
		}
	}
}

func TestFlagGroups(t *testing.T) {
	cfg := NewConfig()
	fs := cli.NewFlagSet("kcc")
	cfg.SetupFlagGroups(fs)
	if err := fs.Parse([]string{"-Wno-unreachable-code", "--Fno-expr-stmt", "in.c"}); err != nil {
		t.Fatal(err)
	}
	if err := cfg.ApplyFlagGroups(fs); err != nil {
		t.Fatal(err)
	}

	if cfg.IsWarningEnabled(WarnUnreachableCode) {
		t.Error("-Wno-unreachable-code ignored")
	}
	if cfg.IsFeatureEnabled(FeatExprStmt) {
		t.Error("--Fno-expr-stmt ignored")
	}
	if !cfg.IsWarningEnabled(WarnOverflow) || !cfg.IsFeatureEnabled(FeatImplicitReturn) {
		t.Error("untouched entries changed")
	}
	if args := fs.Args(); len(args) != 1 || args[0] != "in.c" {
		t.Errorf("Args() = %v", args)
	}
}

func TestFlagGroupsLastFlagWins(t *testing.T) {
	tests := []struct {
		args []string
		want map[string]bool
	}{
		{
			[]string{"-Wall", "-Wno-overflow"},
			map[string]bool{"overflow": false, "unreachable-code": true},
		},
		{
			[]string{"-Wno-overflow", "-Wall"},
			map[string]bool{"overflow": true, "unreachable-code": true},
		},
		{
			[]string{"-Wno-all", "-Woverflow"},
			map[string]bool{"overflow": true, "unreachable-code": false},
		},
		{
			[]string{"-Woverflow", "-Wno-overflow", "-Woverflow"},
			map[string]bool{"overflow": true, "unreachable-code": true},
		},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			cfg := NewConfig()
			fs := cli.NewFlagSet("kcc")
			cfg.SetupFlagGroups(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatal(err)
			}
			if err := cfg.ApplyFlagGroups(fs); err != nil {
				t.Fatal(err)
			}
			got := map[string]bool{
				"overflow":         cfg.IsWarningEnabled(WarnOverflow),
				"unreachable-code": cfg.IsWarningEnabled(WarnUnreachableCode),
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("warnings mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
