package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the generator form
type KeyMap struct {
	Next     key.Binding
	Previous key.Binding
	Submit   key.Binding // Next field, or generate on the last one
	Generate key.Binding
	Quit     key.Binding
}

// DefaultKeyMap is the built-in key binding set
var DefaultKeyMap = KeyMap{
	Next: key.NewBinding(
		key.WithKeys("tab", "down"),
		key.WithHelp("Tab/↓", "next field"),
	),
	Previous: key.NewBinding(
		key.WithKeys("shift+tab", "up"),
		key.WithHelp("S-Tab/↑", "previous field"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "next / generate"),
	),
	Generate: key.NewBinding(
		key.WithKeys("ctrl+g"),
		key.WithHelp("C-g", "generate"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("Esc", "quit"),
	),
}

// ShortHelp lists the bindings shown in the help line
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Previous, k.Submit, k.Generate, k.Quit}
}

// FullHelp groups the bindings for the expanded help view
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Next, k.Previous}, {k.Submit, k.Generate, k.Quit}}
}
