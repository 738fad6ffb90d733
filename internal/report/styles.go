// Package report renders the post-dump/restore summary box printed to
// the operator's terminal, using the same rounded-border, label-value
// idiom as the rest of the CLI's output.
package report

import "github.com/charmbracelet/lipgloss"

var (
	colorSafe    = lipgloss.Color("#04B575")
	colorWarning = lipgloss.Color("#FFB800")
	colorDanger  = lipgloss.Color("#FF4040")
	colorInfo    = lipgloss.Color("#00BFFF")
	colorMuted   = lipgloss.Color("#666666")
	colorLabel   = lipgloss.Color("#AAAAAA")
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorInfo).
			Padding(0, 1)

	safeBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSafe).
			Padding(0, 1)

	dangerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDanger).
			Padding(0, 1)
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorInfo)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorLabel).
			Width(20)

	valueStyle = lipgloss.NewStyle()

	mutedText = lipgloss.NewStyle().
			Foreground(colorMuted)

	dangerText = lipgloss.NewStyle().
			Foreground(colorDanger).
			Bold(true)
)

const (
	iconSafe   = "✅"
	iconDanger = "❌"
)

func labelValue(label, value string) string {
	return labelStyle.Render(label) + " " + valueStyle.Render(value)
}
