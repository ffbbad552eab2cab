package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all key bindings
type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	MoveLeft  key.Binding
	MoveRight key.Binding
	MoveUp    key.Binding
	MoveDown  key.Binding
	Enter     key.Binding
	Add       key.Binding
	Edit      key.Binding
	Done      key.Binding
	Delete    key.Binding
	Priority  key.Binding
	Help      key.Binding
	Quit      key.Binding
	Escape    key.Binding
	Confirm   key.Binding
	Refresh   key.Binding
}

var keys = keyMap{
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "previous lane")),
	Right:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next lane")),
	MoveLeft:  key.NewBinding(key.WithKeys("shift+left", "H", "<"), key.WithHelp("H/<", "move task left")),
	MoveRight: key.NewBinding(key.WithKeys("shift+right", "L", ">"), key.WithHelp("L/>", "move task right")),
	MoveUp:    key.NewBinding(key.WithKeys("shift+up", "K"), key.WithHelp("K", "move task up")),
	MoveDown:  key.NewBinding(key.WithKeys("shift+down", "J"), key.WithHelp("J", "move task down")),
	Enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
	Add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add task")),
	Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit title")),
	Done:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "toggle done")),
	Delete:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Priority:  key.NewBinding(key.WithKeys("1", "2", "3"), key.WithHelp("1-3", "priority")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Escape:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Confirm:   key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "confirm")),
	Refresh:   key.NewBinding(key.WithKeys("R", "r"), key.WithHelp("r", "refresh")),
}
