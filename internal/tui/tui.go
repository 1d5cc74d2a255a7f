package tui

import (
	"wbs-cli/internal/engine"

	tea "github.com/charmbracelet/bubbletea"
)

// Run drives eng interactively until the user quits. The engine holds the final tree
// afterwards.
func Run(eng *engine.Engine) error {
	applyColorProfilePreference()
	applyThemePreference()
	_, err := tea.NewProgram(NewModel(eng), tea.WithAltScreen()).Run()
	return err
}
