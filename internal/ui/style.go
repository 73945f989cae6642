package ui

import "github.com/charmbracelet/lipgloss"

var (
	Cyan    = lipgloss.Color("#00E5FF")
	Magenta = lipgloss.Color("#FF1B6B")
	Yellow  = lipgloss.Color("#FFB500")
	Green   = lipgloss.Color("#2AFFAA")
	Red     = lipgloss.Color("#FF5555")

	Base02 = lipgloss.Color("#262831")
	Base01 = lipgloss.Color("#6C7280") // muted text
	Base2  = lipgloss.Color("#ECEFF4")
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(Cyan).Bold(true).Padding(0, 1)
	mutedStyle = lipgloss.NewStyle().Foreground(Base01)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Base01).
			Padding(0, 1)
	runningStyle = lipgloss.NewStyle().Foreground(Base02).Background(Green).Bold(true).Padding(0, 1)
	stoppedStyle = lipgloss.NewStyle().Foreground(Base2).Background(Red).Bold(true).Padding(0, 1)
	profitStyle  = lipgloss.NewStyle().Foreground(Green)
	lossStyle    = lipgloss.NewStyle().Foreground(Red)
	reasonStyle  = lipgloss.NewStyle().Foreground(Yellow)
)

// pnl colours a signed amount.
func pnl(v float64, text string) string {
	if v < 0 {
		return lossStyle.Render(text)
	}
	return profitStyle.Render(text)
}
