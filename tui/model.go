// Package tui is the interactive front-end of net-conf-gen: a three-field
// form (template, data file, output folder) that triggers one generation
// run per submit and reports the outcome on a status line
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// GenerateFunc renders one template against one data file into an output
// folder and returns the number of files written
type GenerateFunc func(templateID, dataPath, outputDir string) (int, error)

// Form fields, in focus order
const (
	FieldTemplate = iota
	FieldData
	FieldOutput
	fieldCount
)

var fieldLabels = [fieldCount]string{
	FieldTemplate: "Template:",
	FieldData:     "Data File:",
	FieldOutput:   "Output Folder:",
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75")).MarginBottom(1)
	labelStyle = lipgloss.NewStyle().Width(15)
	focusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	faintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

// generatedMsg carries the outcome of one generation run back to Update
type generatedMsg struct {
	outputDir string
	count     int
	err       error
}

// Model is the bubbletea model of the generator form
type Model struct {
	inputs   [fieldCount]textinput.Model
	focus    int
	keys     KeyMap
	help     help.Model
	generate GenerateFunc

	running bool
	status  string
	failed  bool
}

// NewModel creates the form with defaultOutput pre-filled as the output folder
func NewModel(generate GenerateFunc, defaultOutput string) Model {
	m := Model{
		keys:     DefaultKeyMap,
		help:     help.New(),
		generate: generate,
	}
	for i := range m.inputs {
		input := textinput.New()
		input.Prompt = "> "
		input.CharLimit = 4096
		m.inputs[i] = input
	}
	m.inputs[FieldTemplate].Placeholder = "access_switch.j2"
	m.inputs[FieldData].Placeholder = "switches.csv"
	m.inputs[FieldOutput].SetValue(defaultOutput)
	m.inputs[FieldTemplate].Focus()
	return m
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			cmd := m.setFocus(m.focus + 1)
			return m, cmd
		case key.Matches(msg, m.keys.Previous):
			cmd := m.setFocus(m.focus - 1)
			return m, cmd
		case key.Matches(msg, m.keys.Generate):
			return m.startGenerate()
		case key.Matches(msg, m.keys.Submit):
			if m.focus == FieldOutput {
				return m.startGenerate()
			}
			cmd := m.setFocus(m.focus + 1)
			return m, cmd
		}

	case generatedMsg:
		m.running = false
		if msg.err != nil {
			m.failed = true
			m.status = "Error: " + msg.err.Error()
		} else {
			m.failed = false
			m.status = fmt.Sprintf("Configs saved in %s (%d files)", msg.outputDir, msg.count)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// setFocus moves focus to field i, wrapping around the form
func (m *Model) setFocus(i int) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = (i + fieldCount) % fieldCount
	return m.inputs[m.focus].Focus()
}

func (m Model) startGenerate() (tea.Model, tea.Cmd) {
	if m.running {
		return m, nil
	}
	m.running = true
	m.failed = false
	m.status = "Generating..."

	templateID := strings.TrimSpace(m.inputs[FieldTemplate].Value())
	dataPath := strings.TrimSpace(m.inputs[FieldData].Value())
	outputDir := strings.TrimSpace(m.inputs[FieldOutput].Value())
	generate := m.generate

	return m, func() tea.Msg {
		count, err := generate(templateID, dataPath, outputDir)
		return generatedMsg{outputDir: outputDir, count: count, err: err}
	}
}

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Network Config Generator"))
	b.WriteString("\n")

	for i, input := range m.inputs {
		label := labelStyle.Render(fieldLabels[i])
		if i == m.focus {
			label = focusStyle.Render(label)
		}
		b.WriteString(label)
		b.WriteString(input.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.status == "":
	case m.failed:
		b.WriteString(errStyle.Render(m.status))
	case m.running:
		b.WriteString(faintStyle.Render(m.status))
	default:
		b.WriteString(okStyle.Render(m.status))
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

// Focused returns the index of the focused field
func (m Model) Focused() int {
	return m.focus
}

// Value returns the current text of field i
func (m Model) Value(i int) string {
	return m.inputs[i].Value()
}

// Status returns the last status line, empty before the first run
func (m Model) Status() string {
	return m.status
}

// Run starts the form on the terminal and blocks until the user quits
func Run(generate GenerateFunc, defaultOutput string) error {
	_, err := tea.NewProgram(NewModel(generate, defaultOutput)).Run()
	return err
}
