package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/dotnet-host/config"
	"github.com/wippyai/dotnet-host/host"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectExport modelState = iota
	stateInputArgs
	stateShowResult
	stateAssets
)

type exportInfo struct {
	name    string
	params  []api.ValueType
	results []api.ValueType
}

type interactiveModel struct {
	ctx      context.Context
	err      error
	cfg      *config.Config
	rt       *host.Runtime
	result   string
	baseDir  string
	module   []byte
	exports  []exportInfo
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type bootedMsg struct {
	err     error
	rt      *host.Runtime
	exports []exportInfo
}

type callResultMsg struct {
	err    error
	result string
}

func newInteractiveModel(ctx context.Context, cfg *config.Config, module []byte, baseDir string) *interactiveModel {
	return &interactiveModel{
		ctx:     ctx,
		cfg:     cfg,
		module:  module,
		baseDir: baseDir,
		state:   stateSelectExport,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.boot
}

func (m *interactiveModel) boot() tea.Msg {
	rt, err := host.Boot(m.ctx, m.cfg, m.module, host.WithBaseDir(m.baseDir))
	if err != nil {
		return bootedMsg{err: err}
	}

	var exports []exportInfo
	for name, def := range rt.Module().ExportedFunctionDefinitions() {
		exports = append(exports, exportInfo{
			name:    name,
			params:  def.ParamTypes(),
			results: def.ResultTypes(),
		})
	}
	sort.Slice(exports, func(i, j int) bool { return exports[i].name < exports[j].name })

	return bootedMsg{rt: rt, exports: exports}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.rt != nil {
				_ = m.rt.Close(m.ctx)
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectExport && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectExport && m.selected < len(m.exports)-1 {
				m.selected++
			}

		case "a":
			switch m.state {
			case stateSelectExport:
				m.state = stateAssets
			case stateAssets:
				m.state = stateSelectExport
			}

		case "enter":
			switch m.state {
			case stateSelectExport:
				if len(m.exports) == 0 {
					break
				}
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callExport
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callExport

			case stateShowResult:
				m.state = stateSelectExport
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectExport
				m.inputs = nil
			case stateShowResult, stateAssets:
				m.state = stateSelectExport
				m.result = ""
				m.err = nil
			}
		}

	case bootedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.rt = msg.rt
		m.exports = msg.exports

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	e := m.exports[m.selected]
	m.inputs = make([]textinput.Model, len(e.params))
	for i, p := range e.params {
		ti := textinput.New()
		ti.Placeholder = api.ValueTypeName(p)
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callExport() tea.Msg {
	if m.rt == nil {
		return callResultMsg{err: fmt.Errorf("runtime not booted")}
	}

	e := m.exports[m.selected]
	params := make([]uint64, len(m.inputs))
	for i, input := range m.inputs {
		v, err := encodeParam(input.Value(), e.params[i])
		if err != nil {
			return callResultMsg{err: fmt.Errorf("arg%d: %w", i, err)}
		}
		params[i] = v
	}

	results, err := m.rt.Module().ExportedFunction(e.name).Call(m.ctx, params...)
	if err != nil {
		return callResultMsg{err: err}
	}

	out := make([]string, len(results))
	for i, r := range results {
		out[i] = decodeResult(r, e.results[i])
	}
	return callResultMsg{result: strings.Join(out, ", ")}
}

func encodeParam(value string, t api.ValueType) (uint64, error) {
	switch t {
	case api.ValueTypeI32:
		v, err := strconv.ParseInt(value, 0, 32)
		return api.EncodeI32(int32(v)), err
	case api.ValueTypeI64:
		v, err := strconv.ParseInt(value, 0, 64)
		return api.EncodeI64(v), err
	case api.ValueTypeF32:
		v, err := strconv.ParseFloat(value, 32)
		return api.EncodeF32(float32(v)), err
	case api.ValueTypeF64:
		v, err := strconv.ParseFloat(value, 64)
		return api.EncodeF64(v), err
	default:
		return 0, fmt.Errorf("unsupported parameter type %s", api.ValueTypeName(t))
	}
}

func decodeResult(v uint64, t api.ValueType) string {
	switch t {
	case api.ValueTypeI32:
		return strconv.FormatInt(int64(api.DecodeI32(v)), 10)
	case api.ValueTypeF32:
		return strconv.FormatFloat(float64(api.DecodeF32(v)), 'g', -1, 32)
	case api.ValueTypeF64:
		return strconv.FormatFloat(api.DecodeF64(v), 'g', -1, 64)
	default:
		return strconv.FormatInt(int64(v), 10)
	}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.rt == nil {
		return "Booting runtime..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(".NET Host"))
	b.WriteString(" ")
	b.WriteString(string(m.cfg.ResolvedGlobalization()))
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectExport:
		if len(m.exports) == 0 {
			b.WriteString("The module exports no functions.\n")
		} else {
			b.WriteString("Select an export to call:\n\n")
		}
		for i, e := range m.exports {
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + formatExport(e)))
			} else {
				b.WriteString("  " + formatExport(e))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • a assets • q quit"))

	case stateAssets:
		b.WriteString("Loaded files:\n\n")
		for _, f := range m.rt.LoadedFiles() {
			b.WriteString("  " + typeStyle.Render(f) + "\n")
		}
		for _, h := range m.rt.Heap() {
			fmt.Fprintf(&b, "  %s at %#x (%d bytes)\n", typeStyle.Render(h.Name), uint32(h.Ptr), h.Size)
		}
		for _, s := range m.rt.SkippedAssets() {
			b.WriteString("  " + errorStyle.Render(s+" (skipped)") + "\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("a/esc back • q quit"))

	case stateInputArgs:
		e := m.exports[m.selected]
		fmt.Fprintf(&b, "Calling %s\n\n", funcStyle.Render(e.name))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(typeStyle.Render(api.ValueTypeName(e.params[i])))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		e := m.exports[m.selected]
		fmt.Fprintf(&b, "Result of %s:\n\n", funcStyle.Render(e.name))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func formatExport(e exportInfo) string {
	params := make([]string, len(e.params))
	for i, p := range e.params {
		params[i] = typeStyle.Render(api.ValueTypeName(p))
	}
	var results []string
	for _, r := range e.results {
		results = append(results, typeStyle.Render(api.ValueTypeName(r)))
	}
	s := funcStyle.Render(e.name) + "(" + strings.Join(params, ", ") + ")"
	if len(results) > 0 {
		s += " -> " + strings.Join(results, ", ")
	}
	return s
}

func runInteractive(ctx context.Context, cfg *config.Config, module []byte, baseDir string) error {
	p := tea.NewProgram(newInteractiveModel(ctx, cfg, module, baseDir), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
