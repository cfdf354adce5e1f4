package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	scanengine "github.com/trainerkit/scan-engine"
	"github.com/trainerkit/scan-engine/dolphin"
	"github.com/trainerkit/scan-engine/scanner"
	"github.com/trainerkit/scan-engine/variant"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#5F87AF")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const maxShellLines = 200

type shellModel struct {
	target   *dolphin.Target
	sc       *scanner.Scanner
	input    textinput.Model
	lines    []string
	lastType variant.NumericType
	hasType  bool
}

func newShellModel() *shellModel {
	ti := textinput.New()
	ti.Placeholder = "type 'help' for commands"
	ti.Focus()

	target := dolphin.New()
	return &shellModel{
		target: target,
		sc:     scanner.New(target),
		input:  ti,
		lines: []string{
			helpStyle.Render("memory scanner shell - 'help' lists commands, ctrl+c exits"),
		},
	}
}

func runInteractive() error {
	model := newShellModel()
	defer model.target.Detach()

	p := tea.NewProgram(model)
	_, err := p.Run()
	return err
}

func (m *shellModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *shellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			m.echo(promptStyle.Render("> " + line))
			if line == "quit" || line == "exit" {
				return m, tea.Quit
			}
			m.execute(line)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *shellModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("scan"))
	b.WriteString("\n\n")
	for _, line := range m.lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	return b.String()
}

func (m *shellModel) echo(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxShellLines {
		m.lines = m.lines[len(m.lines)-maxShellLines:]
	}
}

func (m *shellModel) fail(format string, args ...any) {
	m.echo(errorStyle.Render(fmt.Sprintf(format, args...)))
}

func (m *shellModel) ok(format string, args ...any) {
	m.echo(resultStyle.Render(fmt.Sprintf(format, args...)))
}

func (m *shellModel) execute(line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "help":
		m.echo(helpStyle.Render(strings.TrimSpace(`
attach                       attach to the dolphin shared segment
detach                       release the target
regions                      list committed memory regions
scan <type> <value> [mask]   first scan (value: number, min..max, ?)
next <cmp> [value]           narrow: eq/ne/gt/lt/ge/le with value,
                             increased/decreased/changed/unchanged without
results [n]                  show surviving candidates
peek <type> <addr>           read one value
poke <type> <addr> <value>   write one value
reset                        drop the candidate set
quit                         leave the shell`)))

	case "attach":
		if err := m.target.Attach(0); err != nil {
			m.fail("attach: %v", err)
			return
		}
		m.ok("attached: regions %#x-%#x", uint64(m.target.LowestAddress()), uint64(m.target.HighestAddress()))

	case "detach":
		m.target.Detach()
		m.ok("detached")

	case "regions":
		if !m.target.IsAttached() {
			m.fail("not attached")
			return
		}
		scanengine.Regions(m.target, func(info scanengine.MemoryInformation) bool {
			tag := ""
			if info.IsMirror {
				tag = " (mirror)"
			}
			m.echo(fmt.Sprintf("  %#010x-%#010x %8d KiB%s",
				uint64(info.AllocationBase), uint64(info.AllocationEnd),
				info.AllocationSize/1024, tag))
			return true
		})

	case "scan":
		if len(args) < 2 {
			m.fail("usage: scan <type> <value> [mask]")
			return
		}
		needle, err := parseNeedle(args[0], args[1])
		if err != nil {
			m.fail("%v", err)
			return
		}
		mask := variant.FlagEquals
		if needle.IsPlaceholder() {
			mask = variant.FlagsAll
		}
		if len(args) > 2 {
			if mask, err = parseMask(args[2]); err != nil {
				m.fail("%v", err)
				return
			}
		}
		if err := m.sc.FirstScan(needle, mask); err != nil {
			m.fail("scan: %v", err)
			return
		}
		if num, ok := variant.NumericTypeByName(args[0]); ok {
			m.lastType, m.hasType = num, true
		} else {
			m.hasType = false
		}
		m.ok("%d match(es)", m.sc.ResultCount())

	case "next":
		if len(args) < 1 {
			m.fail("usage: next <cmp> [value]")
			return
		}
		m.runNext(args)

	case "results":
		limit := 16
		if len(args) > 0 {
			if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
				limit = n
			}
		}
		results := m.sc.Results()
		if len(results) == 0 {
			m.echo("no candidates")
			return
		}
		for i, r := range results {
			if i >= limit {
				m.echo(fmt.Sprintf("  ... and %d more", len(results)-limit))
				break
			}
			m.echo(fmt.Sprintf("  %#010x = %s", uint64(r.Address), r.Value.ToString()))
		}

	case "peek":
		if len(args) < 2 {
			m.fail("usage: peek <type> <addr>")
			return
		}
		num, ok := variant.NumericTypeByName(args[0])
		if !ok {
			m.fail("unknown type %q", args[0])
			return
		}
		addr, err := parseAddress(args[1])
		if err != nil {
			m.fail("%v", err)
			return
		}
		v, err := variant.FromTargetMemory(m.target, addr, num)
		if err != nil {
			m.fail("peek: %v", err)
			return
		}
		m.ok("%#010x = %s", uint64(addr), v.ToString())

	case "poke":
		if len(args) < 3 {
			m.fail("usage: poke <type> <addr> <value>")
			return
		}
		addr, err := parseAddress(args[1])
		if err != nil {
			m.fail("%v", err)
			return
		}
		v, err := parseNeedle(args[0], args[2])
		if err != nil {
			m.fail("%v", err)
			return
		}
		if err := v.WriteToTarget(m.target, addr); err != nil {
			m.fail("poke: %v", err)
			return
		}
		m.ok("wrote %s at %#010x", v.ToString(), uint64(addr))

	case "reset":
		m.sc.Reset()
		m.ok("candidate set cleared")

	default:
		m.fail("unknown command %q", cmd)
	}
}

// runNext handles both absolute narrowing (a comparator plus a value) and
// relative narrowing against each candidate's last-seen value.
func (m *shellModel) runNext(args []string) {
	relative := map[string]variant.Flags{
		"increased": scanner.Increased,
		"decreased": scanner.Decreased,
		"changed":   scanner.Changed,
		"unchanged": scanner.Unchanged,
	}

	if mask, ok := relative[args[0]]; ok {
		if !m.hasType {
			m.fail("relative scans need a prior numeric scan")
			return
		}
		if err := m.sc.NextScan(variant.MakePlaceholder(m.lastType), mask); err != nil {
			m.fail("next: %v", err)
			return
		}
		m.ok("%d match(es)", m.sc.ResultCount())
		return
	}

	if len(args) < 2 {
		m.fail("usage: next <cmp> <value>")
		return
	}
	mask, err := parseMask(args[0])
	if err != nil {
		m.fail("%v", err)
		return
	}
	if !m.hasType {
		m.fail("no prior numeric scan")
		return
	}
	needle, err := parseScalar(args[1], m.lastType)
	if err != nil {
		m.fail("%v", err)
		return
	}
	if err := m.sc.NextScan(needle, mask); err != nil {
		m.fail("next: %v", err)
		return
	}
	m.ok("%d match(es)", m.sc.ResultCount())
}

func parseAddress(s string) (scanengine.MemoryAddress, error) {
	u, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad address %q", s)
	}
	return scanengine.MemoryAddress(u), nil
}
