package keys

import "github.com/charmbracelet/bubbles/key"

// DashboardKeys are the bindings of the node dashboard. Up and Down are
// handled by the node table and only listed here for the help view.
type DashboardKeys struct {
	CommonKeys
	Up           key.Binding
	Down         key.Binding
	ToggleWriter key.Binding
	Reconnect    key.Binding
}

func NewDashboardKeys() DashboardKeys {
	return DashboardKeys{
		CommonKeys: NewCommonKeys(),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		ToggleWriter: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "toggle writer"),
		),
		Reconnect: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reconnect"),
		),
	}
}

func (k DashboardKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.ToggleWriter, k.Reconnect, k.Quit}
}

func (k DashboardKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.ToggleWriter, k.Reconnect},
		{k.Help, k.Quit},
	}
}
