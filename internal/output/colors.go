package output

import "github.com/charmbracelet/lipgloss"

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	autoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	guidedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	manualStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
)

// ColorPass colors a PASS outcome green
func ColorPass(text string) string {
	return passStyle.Render(text)
}

// ColorWarn colors a WARN outcome yellow
func ColorWarn(text string) string {
	return warnStyle.Render(text)
}

// ColorFail colors a FAIL outcome red
func ColorFail(text string) string {
	return failStyle.Render(text)
}

// ColorDim makes text dim/gray
func ColorDim(text string) string {
	return dimStyle.Render(text)
}

// ColorStrategy colors a merge strategy name by how much human attention it needs
func ColorStrategy(strategy string) string {
	switch strategy {
	case "AUTO_MERGE":
		return autoStyle.Render(strategy)
	case "GUIDED_MERGE":
		return guidedStyle.Render(strategy)
	case "MANUAL_MERGE":
		return manualStyle.Render(strategy)
	default:
		return strategy
	}
}
