package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"
)

const indentUnit = 4

func indentAt(level int) string { return strings.Repeat(" ", indentUnit*level) }

type Value interface {
	String() string
	Set(string) error
	Get() any
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }
func (v *stringValue) Get() any           { return *v.p }

type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = val
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }
func (v *boolValue) Get() any       { return *v.p }

type listValue struct{ p *[]string }

func (v *listValue) Set(s string) error { *v.p = append(*v.p, s); return nil }
func (v *listValue) String() string     { return strings.Join(*v.p, ", ") }
func (v *listValue) Get() any           { return *v.p }

type Flag struct {
	Name         string
	Shorthand    string
	Usage        string
	Value        Value
	DefValue     string
	ExpectedType string
	glued        bool
}

func (f *Flag) isBool() bool {
	_, ok := f.Value.(*boolValue)
	return ok
}

// FlagGroupEntry describes one -<Prefix><Name> / -<Prefix>no-<Name> pair.
type FlagGroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Enabled  *bool
	Disabled *bool
}

type FlagGroup struct {
	Name                 string
	Description          string
	Flags                []FlagGroupEntry
	GroupType            string
	AvailableFlagsHeader string
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	prefixes   map[string]*Flag
	groupFlags map[string]bool
	seen       []*Flag
	args       []string
	groups     []FlagGroup
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
		prefixes:   make(map[string]*Flag),
		groupFlags: make(map[string]bool),
	}
}

func (f *FlagSet) Args() []string { return f.args }

// Visit calls fn for every flag the last Parse set, in command-line order.
// A flag given twice is visited twice.
func (f *FlagSet) Visit(fn func(*Flag)) {
	for _, flag := range f.seen {
		fn(flag)
	}
}

func (f *FlagSet) String(p *string, name, shorthand, value, usage, expectedType string) {
	*p = value
	f.Var(&stringValue{p}, name, shorthand, usage, value, expectedType)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.Var(&boolValue{p}, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) List(p *[]string, name, shorthand string, value []string, usage, expectedType string) {
	*p = value
	f.Var(&listValue{p}, name, shorthand, usage, fmt.Sprintf("%v", value), expectedType)
}

// Special registers a prefix flag like -I<dir> whose value is glued to it.
func (f *FlagSet) Special(p *[]string, prefix, usage, expectedType string) {
	*p = []string{}
	f.Var(&listValue{p}, prefix, "", usage, "", expectedType)
	f.flags[prefix].glued = true
	f.prefixes[prefix] = f.flags[prefix]
}

func (f *FlagSet) AddFlagGroup(name, description, groupType, availableFlagsHeader string, entries []FlagGroupEntry) {
	for i := range entries {
		e := &entries[i]
		if e.Enabled != nil {
			f.Bool(e.Enabled, e.Prefix+e.Name, "", *e.Enabled, e.Usage)
			f.groupFlags[e.Prefix+e.Name] = true
		}
		if e.Disabled != nil {
			f.Bool(e.Disabled, e.Prefix+"no-"+e.Name, "", *e.Disabled, "Disable '"+e.Name+"'")
			f.groupFlags[e.Prefix+"no-"+e.Name] = true
		}
	}
	f.groups = append(f.groups, FlagGroup{
		Name: name, Description: description, Flags: entries,
		GroupType: groupType, AvailableFlagsHeader: availableFlagsHeader,
	})
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, expectedType string) {
	if name == "" {
		panic("flag name cannot be empty")
	}
	if _, ok := f.flags[name]; ok {
		panic(fmt.Sprintf("flag redefined: %s", name))
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, ExpectedType: expectedType}
	f.flags[name] = flag
	if shorthand == "" {
		return
	}
	if _, ok := f.shorthands[shorthand]; ok {
		panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
	}
	f.shorthands[shorthand] = flag
}

// Parse accepts both -name and --name for long flags, so -Wall and
// --Wall mean the same thing. A literal "--" ends flag parsing.
func (f *FlagSet) Parse(arguments []string) error {
	f.args = []string{}
	f.seen = f.seen[:0]
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		if len(arg) < 2 || arg[0] != '-' {
			f.args = append(f.args, arg)
			continue
		}
		if arg == "--" {
			f.args = append(f.args, arguments[i+1:]...)
			return nil
		}

		body := strings.TrimPrefix(strings.TrimPrefix(arg, "-"), "-")
		name, value, hasValue := strings.Cut(body, "=")
		if flag, ok := f.flags[name]; ok {
			if err := f.setFlag(flag, arg, value, hasValue, arguments, &i); err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(arg, "--") {
			return fmt.Errorf("unknown flag: %s", arg)
		}
		if err := f.parseShort(arg, arguments, &i); err != nil {
			return err
		}
	}
	return nil
}

func (f *FlagSet) setFlag(flag *Flag, arg, value string, hasValue bool, arguments []string, i *int) error {
	f.seen = append(f.seen, flag)
	if hasValue {
		return flag.Value.Set(value)
	}
	if flag.isBool() {
		return flag.Value.Set("")
	}
	if *i+1 >= len(arguments) {
		return fmt.Errorf("flag needs an argument: %s", arg)
	}
	*i++
	return flag.Value.Set(arguments[*i])
}

func (f *FlagSet) parseShort(arg string, arguments []string, i *int) error {
	for prefix, flag := range f.prefixes {
		if strings.HasPrefix(arg, "-"+prefix) && len(arg) > len(prefix)+1 {
			f.seen = append(f.seen, flag)
			return flag.Value.Set(arg[len(prefix)+1:])
		}
	}

	short := arg[1:2]
	flag, ok := f.shorthands[short]
	if !ok {
		return fmt.Errorf("unknown flag: %s", arg)
	}
	f.seen = append(f.seen, flag)
	if flag.isBool() {
		return flag.Value.Set("")
	}
	if rest := arg[2:]; rest != "" {
		return flag.Value.Set(rest)
	}
	if *i+1 >= len(arguments) {
		return fmt.Errorf("flag needs an argument: -%s", short)
	}
	*i++
	return flag.Value.Set(arguments[*i])
}

type App struct {
	Name        string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	FlagSet     *FlagSet
	Action      func(args []string) error
	Stdout      io.Writer
	Stderr      io.Writer
}

func NewApp(name string) *App {
	return &App{Name: name, FlagSet: NewFlagSet(name), Stdout: os.Stdout, Stderr: os.Stderr}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintln(a.Stderr, err)
		a.writeUsage(a.Stderr)
		return err
	}
	if help {
		a.writeHelp(a.Stdout)
		return nil
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

func (a *App) optionFlags() []*Flag {
	var out []*Flag
	for name, flag := range a.FlagSet.flags {
		if a.FlagSet.groupFlags[name] {
			continue
		}
		out = append(out, flag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (a *App) writeUsage(w io.Writer) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Usage: %s <options> [input.c]\n", a.Name)
	opts := a.optionFlags()
	if len(opts) > 0 {
		fmt.Fprintf(&sb, "\n%sOptions\n", indentAt(1))
		layout := a.newLayout(opts)
		for _, flag := range opts {
			layout.flagLine(&sb, flag)
		}
	}
	fmt.Fprintf(&sb, "\nRun '%s --help' for all available options and flags.\n", a.Name)
	fmt.Fprint(w, sb.String())
}

func (a *App) writeHelp(w io.Writer) {
	var sb strings.Builder
	opts := a.optionFlags()
	layout := a.newLayout(opts)

	if len(a.Authors) > 0 {
		fmt.Fprintf(&sb, "\n%sCopyright (c): %s and contributors\n", indentAt(1), strings.Join(a.Authors, ", "))
	}
	if a.Repository != "" {
		fmt.Fprintf(&sb, "%sFor more details refer to %s\n", indentAt(1), a.Repository)
	}
	if a.Synopsis != "" {
		synopsis := strings.NewReplacer("[", "<", "]", ">").Replace(a.Synopsis)
		fmt.Fprintf(&sb, "\n%sSynopsis\n%s%s %s\n", indentAt(1), indentAt(2), a.Name, synopsis)
	}
	if a.Description != "" {
		fmt.Fprintf(&sb, "\n%sDescription\n%s%s\n", indentAt(1), indentAt(2), a.Description)
	}
	if len(opts) > 0 {
		fmt.Fprintf(&sb, "\n%sOptions\n", indentAt(1))
		for _, flag := range opts {
			layout.flagLine(&sb, flag)
		}
	}

	groups := append([]FlagGroup(nil), a.FlagSet.groups...)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	for _, group := range groups {
		layout.group(&sb, group)
	}
	fmt.Fprint(w, sb.String())
}

type layout struct {
	termWidth  int
	leftWidth  int
	usageWidth int
}

func (a *App) newLayout(opts []*Flag) layout {
	l := layout{termWidth: terminalWidth()}
	grow := func(left, usage string) {
		l.leftWidth = max(l.leftWidth, len(left))
		l.usageWidth = max(l.usageWidth, len(usage))
	}
	for _, flag := range opts {
		grow(formatFlag(flag), flag.Usage)
	}
	for _, group := range a.FlagSet.groups {
		if len(group.Flags) == 0 {
			continue
		}
		prefix := group.Flags[0].Prefix
		grow(fmt.Sprintf("-%sno-<%s>", prefix, group.GroupType), "")
		for _, e := range group.Flags {
			grow(e.Name, e.Usage)
		}
	}
	return l
}

func formatFlag(flag *Flag) string {
	if flag.glued {
		return fmt.Sprintf("-%s<%s>", flag.Name, flag.ExpectedType)
	}
	var sb strings.Builder
	if flag.Shorthand != "" {
		fmt.Fprintf(&sb, "-%s", flag.Shorthand)
		if !flag.isBool() {
			fmt.Fprintf(&sb, " <%s>", flag.ExpectedType)
		}
		sb.WriteString(", ")
	}
	fmt.Fprintf(&sb, "--%s", flag.Name)
	if !flag.isBool() && flag.ExpectedType != "" {
		fmt.Fprintf(&sb, "=%s", flag.ExpectedType)
	}
	return sb.String()
}

func (l layout) entry(sb *strings.Builder, left, usage, right string) {
	indent := indentAt(2)
	avail := max(l.termWidth-len(indent)-l.leftWidth-3-len(right), 10)
	lines := wrapText(usage, avail)
	first := ""
	if len(lines) > 0 {
		first = lines[0]
	}
	if right != "" {
		fmt.Fprintf(sb, "%s%-*s %-*s  %s\n", indent, l.leftWidth, left, min(l.usageWidth, avail), first, right)
	} else {
		fmt.Fprintf(sb, "%s%-*s %s\n", indent, l.leftWidth, left, first)
	}
	pad := strings.Repeat(" ", l.leftWidth+1)
	for _, line := range lines[min(1, len(lines)):] {
		fmt.Fprintf(sb, "%s%s%s\n", indent, pad, line)
	}
}

func (l layout) flagLine(sb *strings.Builder, flag *Flag) {
	right := ""
	if !flag.isBool() && flag.DefValue != "" && flag.DefValue != "[]" {
		right = fmt.Sprintf("|%s|", flag.DefValue)
	}
	l.entry(sb, formatFlag(flag), flag.Usage, right)
}

func (l layout) group(sb *strings.Builder, group FlagGroup) {
	if len(group.Flags) == 0 {
		return
	}
	prefix := group.Flags[0].Prefix
	kind := group.GroupType
	if kind == "" {
		kind = "flag"
	}
	fmt.Fprintf(sb, "\n%s%s\n", indentAt(1), group.Name)
	fmt.Fprintf(sb, "%s%-*s Enable a specific %s\n", indentAt(2), l.leftWidth, fmt.Sprintf("-%s<%s>", prefix, kind), kind)
	fmt.Fprintf(sb, "%s%-*s Disable a specific %s\n", indentAt(2), l.leftWidth, fmt.Sprintf("-%sno-<%s>", prefix, kind), kind)
	if group.AvailableFlagsHeader != "" {
		fmt.Fprintf(sb, "%s%s\n", indentAt(1), group.AvailableFlagsHeader)
	}

	entries := append([]FlagGroupEntry(nil), group.Flags...)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	for _, e := range entries {
		mark := "|-|"
		if e.Enabled != nil && *e.Enabled && (e.Disabled == nil || !*e.Disabled) {
			mark = "|x|"
		}
		l.entry(sb, e.Name, e.Usage, mark)
	}
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}
	return max(width, 20)
}

func wrapText(text string, maxWidth int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) > maxWidth {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	return append(lines, current)
}
