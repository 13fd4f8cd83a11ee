package ui

import (
	"fmt"
	"math"
	"strings"

	"github.com/0xlemi/timpletune/internal/pitch"
	"github.com/0xlemi/timpletune/internal/tuning"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			PaddingLeft(2).
			PaddingRight(2).
			MarginBottom(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#777777"))

	selectedStringStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FAFAFA")).
				Background(lipgloss.Color("#7D56F4")).
				Padding(0, 1)

	stringStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#CCCCCC")).
			Padding(0, 1)

	// Note colors
	noteColors = map[string]string{
		"C": "#E8D6B0", // Beige
		"D": "#A020F0", // Purple
		"E": "#FFFF00", // Yellow
		"F": "#FFA500", // Orange
		"G": "#00FF00", // Green
		"A": "#FF0000", // Red
		"B": "#0000FF", // Blue
	}

	statusColors = map[tuning.Status]string{
		tuning.StatusAwaiting: "#777777",
		tuning.StatusInTune:   "#00FF00",
		tuning.StatusSharp:    "#FF5555",
		tuning.StatusFlat:     "#5599FF",
		tuning.StatusNoisy:    "#FFA500",
	}

	statusText = map[tuning.Status]string{
		tuning.StatusAwaiting: "Play a string",
		tuning.StatusInTune:   "In tune",
		tuning.StatusSharp:    "Too high, loosen",
		tuning.StatusFlat:     "Too low, tighten",
		tuning.StatusNoisy:    "Too noisy",
	}
)

// noteBox returns the bordered style of a natural note
func noteBox(color string) lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color(color)).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		Padding(2, 4)
}

// Get the next natural note (for sharp note colors)
func nextNatural(note string) string {
	const naturals = "CDEFGAB"
	i := strings.Index(naturals, note)
	if i < 0 {
		return "C"
	}
	return string(naturals[(i+1)%len(naturals)])
}

// renderNote draws a note in its color. Sharps are split between the color
// of their natural and the next one.
func renderNote(n pitch.Note) string {
	if !strings.HasSuffix(n.Name, "#") {
		return noteBox(noteColors[n.Name]).Render(n.String())
	}

	base := n.Name[:1]
	left := noteBox(noteColors[base]).
		BorderLeft(true).
		BorderTop(true).
		BorderBottom(true).
		BorderRight(false).
		PaddingRight(1)
	right := noteBox(noteColors[nextNatural(base)]).
		BorderLeft(false).
		BorderTop(true).
		BorderBottom(true).
		BorderRight(true).
		PaddingLeft(1)

	return lipgloss.JoinHorizontal(lipgloss.Top,
		left.Render(base),
		right.Render(fmt.Sprintf("#%d", n.Octave)),
	)
}

// renderStatus draws the status of a reading in its color
func renderStatus(s tuning.Status) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(statusColors[s])).
		Render(statusText[s])
}

// renderMeter draws the tuning bar with the needle at cents. width should
// be odd so the centre mark has a cell of its own.
func renderMeter(cents float64, width int) string {
	if width < 3 {
		width = 3
	}
	center := width / 2
	pos := int(math.Round((clampCents(cents) + needleRange) / (2 * needleRange) * float64(width-1)))

	cells := make([]string, width)
	for i := range cells {
		switch {
		case i == pos:
			cells[i] = "█"
		case i == center:
			cells[i] = "┼"
		default:
			cells[i] = "─"
		}
	}

	color := statusColors[tuning.StatusInTune]
	if math.Abs(cents) > tuning.InTuneCents {
		color = statusColors[tuning.StatusSharp]
	}
	bar := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(strings.Join(cells, ""))
	return fmt.Sprintf("-%d %s +%d", int(needleRange), bar, int(needleRange))
}

// renderLevel draws a horizontal bar for v in [0, 1] with a mark at
// threshold
func renderLevel(v, threshold float64, width int) string {
	filled := int(math.Round(max(0, min(1, v)) * float64(width)))
	mark := int(math.Round(max(0, min(1, threshold)) * float64(width-1)))

	var b strings.Builder
	for i := range width {
		switch {
		case i == mark:
			b.WriteString("|")
		case i < filled:
			b.WriteString("█")
		default:
			b.WriteString("░")
		}
	}
	return b.String()
}
