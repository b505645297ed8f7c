package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit        key.Binding
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Enter       key.Binding
	Back        key.Binding
	Refresh     key.Binding
	Dismiss     key.Binding
	Search      key.Binding
	Toggle      key.Binding
	SelectAll   key.Binding
	DeselectAll key.Binding
	Category    key.Binding
	Clear       key.Binding
	ClearSort   key.Binding
	Generate    key.Binding
	Hours       key.Binding
	Entities    key.Binding
}

var keys = keyMap{
	Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	PageUp:      key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "page up")),
	PageDown:    key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "page down")),
	Enter:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Back:        key.NewBinding(key.WithKeys("b", "esc", "backspace"), key.WithHelp("b", "back")),
	Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Dismiss:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss")),
	Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Toggle:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
	SelectAll:   key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select all")),
	DeselectAll: key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "deselect all")),
	Category:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "category")),
	Clear:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear filters")),
	ClearSort:   key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "default sort")),
	Generate:    key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "generate sql")),
	Hours:       key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "histogram hours")),
	Entities:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "entities")),
}
