package config

import (
	"fmt"
	"strings"

	"github.com/xplshn/kcc/pkg/cli"
	"modernc.org/libqbe"
)

type Feature int

const (
	FeatImplicitReturn Feature = iota
	FeatExprStmt
	FeatComments
	FeatCount
)

type Warning int

const (
	WarnOverflow Warning = iota
	WarnUnreachableCode
	WarnReturnType
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

const (
	BackendAMD64 = "amd64"
	BackendQBE   = "qbe"
)

type Config struct {
	Features      map[Feature]Info
	Warnings      map[Warning]Info
	FeatureMap    map[string]Feature
	WarningMap    map[string]Warning
	BackendName   string
	BackendTarget string
	GOOS          string
	GOARCH        string
	WordSize      int

	// names registered by SetupFlagGroups
	groupFlags map[string]bool
}

func NewConfig() *Config {
	cfg := &Config{
		FeatureMap:  make(map[string]Feature),
		WarningMap:  make(map[string]Warning),
		BackendName: BackendAMD64,
		WordSize:    4,
	}

	features := map[Feature]Info{
		FeatImplicitReturn: {"implicit-return", true, "Treat a body that does not end in 'return' as ending in 'return 0;'."},
		FeatExprStmt:       {"expr-stmt", true, "Accept expression statements and null statements."},
		FeatComments:       {"comments", true, "Skip C '//' and '/* */' comments in unpreprocessed input."},
	}

	warnings := map[Warning]Info{
		WarnOverflow:        {"overflow", true, "Warn when an integer constant does not fit in an 'int'."},
		WarnUnreachableCode: {"unreachable-code", true, "Warn about statements after 'return'."},
		WarnReturnType:      {"return-type", true, "Warn when a return statement does not match the function's return type."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}
	return cfg
}

// SetTarget picks the backend and its target from a "backend[/target]" spec.
// An empty spec selects the native backend for the host.
func (c *Config) SetTarget(goos, goarch, spec string) error {
	c.GOOS, c.GOARCH = goos, goarch
	backend, target, _ := strings.Cut(spec, "/")
	if backend == "" {
		backend = BackendAMD64
	}

	switch backend {
	case BackendAMD64:
		c.BackendName = BackendAMD64
		switch target {
		case "":
		case "linux", "freebsd", "netbsd", "openbsd", "darwin":
			c.GOOS = target
		default:
			return fmt.Errorf("unsupported amd64 target OS '%s'. Supported: linux, freebsd, netbsd, openbsd, darwin", target)
		}
		c.BackendTarget = "amd64_" + c.GOOS
	case BackendQBE:
		c.BackendName = BackendQBE
		if target == "" {
			target = libqbe.DefaultTarget(goos, goarch)
		}
		switch target {
		case "amd64_sysv", "arm64", "rv64":
		case "amd64_apple", "arm64_apple":
			c.GOOS = "darwin"
		default:
			return fmt.Errorf("unsupported QBE target '%s'", target)
		}
		c.BackendTarget = target
	default:
		return fmt.Errorf("unsupported backend '%s'. Supported: '%s', '%s'", backend, BackendAMD64, BackendQBE)
	}
	return nil
}

// IsDarwin reports whether symbols need the Mach-O leading underscore.
func (c *Config) IsDarwin() bool { return c.GOOS == "darwin" }

// IsELF reports whether the output object is ELF and wants a GNU-stack note.
func (c *Config) IsELF() bool { return c.GOOS != "darwin" && c.GOOS != "windows" }

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool { return c.Warnings[wt].Enabled }

func (c *Config) SetAllWarnings(enabled bool) {
	for i := Warning(0); i < WarnCount; i++ {
		c.SetWarning(i, enabled)
	}
}

// ApplyFlag handles a single -W/-F style flag such as "-Wno-overflow".
func (c *Config) ApplyFlag(flag string) error {
	trimmed := strings.TrimPrefix(flag, "-")
	if trimmed == "Wall" || trimmed == "Wno-all" {
		c.SetAllWarnings(trimmed == "Wall")
		return nil
	}
	if len(trimmed) < 2 {
		return fmt.Errorf("unrecognized flag '%s'", flag)
	}

	kind, name := trimmed[0], trimmed[1:]
	name, isNo := strings.CutPrefix(name, "no-")
	switch kind {
	case 'W':
		if w, ok := c.WarningMap[name]; ok {
			c.SetWarning(w, !isNo)
			return nil
		}
		return fmt.Errorf("unknown warning '%s'", name)
	case 'F':
		if f, ok := c.FeatureMap[name]; ok {
			c.SetFeature(f, !isNo)
			return nil
		}
		return fmt.Errorf("unknown feature '%s'", name)
	}
	return fmt.Errorf("unrecognized flag '%s'", flag)
}

// SetupFlagGroups registers -W<name>/-Wno-<name> and -F<name>/-Fno-<name>
// for every table entry, plus -Wall and -Wno-all.
func (c *Config) SetupFlagGroups(fs *cli.FlagSet) {
	var all, noAll bool
	fs.Bool(&all, "Wall", "", false, "Enable every warning.")
	fs.Bool(&noAll, "Wno-all", "", false, "Disable every warning.")
	c.groupFlags = map[string]bool{"Wall": true, "Wno-all": true}

	warningFlags := make([]cli.FlagGroupEntry, WarnCount)
	for i := Warning(0); i < WarnCount; i++ {
		info := c.Warnings[i]
		warningFlags[i] = c.groupEntry(info, "W")
	}
	fs.AddFlagGroup("Warning Flags", "Enable or disable specific warnings", "warning", "Available Warnings:", warningFlags)

	featureFlags := make([]cli.FlagGroupEntry, FeatCount)
	for i := Feature(0); i < FeatCount; i++ {
		info := c.Features[i]
		featureFlags[i] = c.groupEntry(info, "F")
	}
	fs.AddFlagGroup("Feature Flags", "Enable or disable specific features", "feature", "Available Features:", featureFlags)
}

func (c *Config) groupEntry(info Info, prefix string) cli.FlagGroupEntry {
	enabled, disabled := info.Enabled, false
	c.groupFlags[prefix+info.Name] = true
	c.groupFlags[prefix+"no-"+info.Name] = true
	return cli.FlagGroupEntry{
		Name: info.Name, Prefix: prefix, Usage: info.Description,
		Enabled: &enabled, Disabled: &disabled,
	}
}

// ApplyFlagGroups replays the group flags fs parsed in command-line order,
// so a later flag overrides an earlier one: "-Wall -Wno-overflow" leaves
// every warning but overflow on.
func (c *Config) ApplyFlagGroups(fs *cli.FlagSet) error {
	var err error
	fs.Visit(func(flag *cli.Flag) {
		if err != nil || !c.groupFlags[flag.Name] {
			return
		}
		err = c.ApplyFlag("-" + flag.Name)
	})
	return err
}
