package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type generateCall struct {
	templateID, dataPath, outputDir string
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return updated.(Model)
}

func press(t *testing.T, m Model, keyType tea.KeyType) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(tea.KeyMsg{Type: keyType})
	return updated.(Model), cmd
}

// finish runs the command returned by a generate trigger and feeds its
// message back into the model
func finish(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	updated, _ := m.Update(cmd())
	return updated.(Model)
}

func TestModel_Focus(t *testing.T) {
	m := NewModel(nil, "./output")
	assert.Equal(t, FieldTemplate, m.Focused())
	assert.Equal(t, "./output", m.Value(FieldOutput))

	m, _ = press(t, m, tea.KeyTab)
	assert.Equal(t, FieldData, m.Focused())

	m, _ = press(t, m, tea.KeyDown)
	assert.Equal(t, FieldOutput, m.Focused())

	m, _ = press(t, m, tea.KeyTab)
	assert.Equal(t, FieldTemplate, m.Focused(), "focus wraps forward")

	m, _ = press(t, m, tea.KeyShiftTab)
	assert.Equal(t, FieldOutput, m.Focused(), "focus wraps backward")

	m, _ = press(t, m, tea.KeyUp)
	assert.Equal(t, FieldData, m.Focused())
}

func TestModel_TypingGoesToFocusedField(t *testing.T) {
	m := NewModel(nil, "")
	m = typeText(t, m, "access_switch.j2")
	m, _ = press(t, m, tea.KeyEnter)
	m = typeText(t, m, "switches.csv")

	assert.Equal(t, "access_switch.j2", m.Value(FieldTemplate))
	assert.Equal(t, "switches.csv", m.Value(FieldData))
	assert.Equal(t, FieldData, m.Focused())
}

func TestModel_Generate(t *testing.T) {
	t.Run("enter on last field", func(t *testing.T) {
		var calls []generateCall
		m := NewModel(func(templateID, dataPath, outputDir string) (int, error) {
			calls = append(calls, generateCall{templateID, dataPath, outputDir})
			return 12, nil
		}, "./output")

		m = typeText(t, m, "access_switch.j2")
		m, _ = press(t, m, tea.KeyEnter)
		m = typeText(t, m, " switches.csv ")
		m, _ = press(t, m, tea.KeyEnter)
		assert.Empty(t, calls, "enter before the last field only moves focus")

		m, cmd := press(t, m, tea.KeyEnter)
		assert.Equal(t, "Generating...", m.Status())

		m = finish(t, m, cmd)
		require.Len(t, calls, 1)
		assert.Equal(t, generateCall{"access_switch.j2", "switches.csv", "./output"}, calls[0])
		assert.Equal(t, "Configs saved in ./output (12 files)", m.Status())
		assert.Contains(t, m.View(), "Configs saved in ./output (12 files)")
	})

	t.Run("ctrl+g from any field", func(t *testing.T) {
		calls := 0
		m := NewModel(func(templateID, dataPath, outputDir string) (int, error) {
			calls++
			return 0, nil
		}, "out")

		m, cmd := press(t, m, tea.KeyCtrlG)
		m = finish(t, m, cmd)
		assert.Equal(t, 1, calls)
		assert.Equal(t, "Configs saved in out (0 files)", m.Status())
	})

	t.Run("error is shown and form stays usable", func(t *testing.T) {
		fail := true
		m := NewModel(func(templateID, dataPath, outputDir string) (int, error) {
			if fail {
				return 0, errors.New("template not found: templates/x.j2")
			}
			return 3, nil
		}, "out")

		m, cmd := press(t, m, tea.KeyCtrlG)
		m = finish(t, m, cmd)
		assert.Equal(t, "Error: template not found: templates/x.j2", m.Status())

		fail = false
		m, cmd = press(t, m, tea.KeyCtrlG)
		m = finish(t, m, cmd)
		assert.Equal(t, "Configs saved in out (3 files)", m.Status())
	})

	t.Run("ignored while a run is in flight", func(t *testing.T) {
		m := NewModel(func(templateID, dataPath, outputDir string) (int, error) {
			return 1, nil
		}, "out")

		m, cmd := press(t, m, tea.KeyCtrlG)
		require.NotNil(t, cmd)
		_, second := press(t, m, tea.KeyCtrlG)
		assert.Nil(t, second)
	})
}

func TestModel_Quit(t *testing.T) {
	for _, keyType := range []tea.KeyType{tea.KeyEsc, tea.KeyCtrlC} {
		m := NewModel(nil, "")
		_, cmd := press(t, m, keyType)
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	}
}

func TestModel_View(t *testing.T) {
	view := NewModel(nil, "./output").View()
	for _, label := range []string{"Template:", "Data File:", "Output Folder:"} {
		assert.True(t, strings.Contains(view, label), "missing label %q", label)
	}
	assert.Contains(t, view, "./output")
}
