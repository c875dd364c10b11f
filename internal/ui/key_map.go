package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	tab     key.Binding
	refresh key.Binding
	live    key.Binding
	add     key.Binding
	remove  key.Binding
	cancel  key.Binding
	yes     key.Binding
	no      key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "refresh selected")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		tab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch list")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh all")),
		live:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "live only")),
		add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		remove:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "remove")),
		cancel:  key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel add")),
		yes:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "no")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.tab},
		{k.refresh, k.live, k.add, k.remove, k.cancel},
		{k.back, k.yes, k.no, k.quit},
	}
}
