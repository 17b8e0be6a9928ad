package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	next     key.Binding
	sidebar  key.Binding
	bookmark key.Binding
	forward  key.Binding
	backward key.Binding
	remove   key.Binding
	theme    key.Binding
	search   key.Binding
	submit   key.Binding
	back     key.Binding
	refresh  key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		next:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch view")),
		sidebar:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sidebar")),
		bookmark: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "bookmark")),
		forward:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "next page")),
		backward: key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "prev page")),
		remove:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove")),
		theme:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.next, k.search, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.next},
		{k.forward, k.backward, k.bookmark, k.remove},
		{k.sidebar, k.theme, k.search, k.refresh, k.quit},
	}
}
