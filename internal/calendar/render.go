package calendar

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TextOptions controls the terminal rendering of a Layout.
type TextOptions struct {
	FromHour    int // First hour row shown
	ToHour      int // Hour after the last row shown
	RowsPerHour int // Terminal lines per hour row
	ColumnWidth int
}

// DefaultTextOptions shows the whole day at two lines per hour.
func DefaultTextOptions() TextOptions {
	return TextOptions{FromHour: 0, ToHour: 24, RowsPerHour: 2, ColumnWidth: 18}
}

func (o TextOptions) normalize() TextOptions {
	d := DefaultTextOptions()
	if o.RowsPerHour <= 0 {
		o.RowsPerHour = d.RowsPerHour
	}
	if o.ColumnWidth < 6 {
		o.ColumnWidth = d.ColumnWidth
	}
	if o.FromHour < 0 || o.FromHour >= 24 {
		o.FromHour = d.FromHour
	}
	if o.ToHour <= o.FromHour || o.ToHour > 24 {
		o.ToHour = d.ToHour
	}
	return o
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	gutterStyle = lipgloss.NewStyle().Faint(true)
	staleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Italic(true)
)

// terminalColors maps the backend's color tags to ANSI colors. Other values,
// such as hex subject colors, are passed to lipgloss unchanged.
var terminalColors = map[string]lipgloss.Color{
	"red":    lipgloss.Color("1"),
	"yellow": lipgloss.Color("3"),
	"blue":   lipgloss.Color("4"),
	"green":  lipgloss.Color("2"),
	"purple": lipgloss.Color("5"),
	"gray":   lipgloss.Color("8"),
}

func blockStyle(color string) lipgloss.Style {
	c, ok := terminalColors[color]
	if !ok {
		c = lipgloss.Color(color)
	}
	return lipgloss.NewStyle().Background(c).Foreground(lipgloss.Color("15"))
}

// RenderText writes the layout as side-by-side day columns. Pixel offsets are
// scaled to terminal rows, so a block occupies at least one row.
func RenderText(w io.Writer, l Layout, opts TextOptions) error {
	opts = opts.normalize()
	rows := (opts.ToHour - opts.FromHour) * opts.RowsPerHour
	pxPerRow := l.HourHeight / float64(opts.RowsPerHour)
	firstPx := float64(opts.FromHour) * l.HourHeight

	gutter := make([]string, 0, rows+1)
	gutter = append(gutter, "")
	for r := 0; r < rows; r++ {
		if r%opts.RowsPerHour == 0 {
			gutter = append(gutter, fmt.Sprintf("%02d:00", opts.FromHour+r/opts.RowsPerHour))
		} else {
			gutter = append(gutter, "")
		}
	}
	columns := []string{gutterStyle.Render(strings.Join(gutter, "\n"))}

	cell := lipgloss.NewStyle().Width(opts.ColumnWidth).MaxWidth(opts.ColumnWidth)
	for _, day := range l.Days {
		lines := make([]string, rows)
		for _, b := range day.Blocks {
			start := int(math.Floor((b.Top + float64(b.MarginTop) - firstPx) / pxPerRow))
			span := int(math.Round(float64(b.Height) / pxPerRow))
			if span < 1 {
				span = 1
			}
			style := blockStyle(b.Color)
			for i := 0; i < span; i++ {
				r := start + i
				if r < 0 || r >= rows {
					continue
				}
				text := ""
				switch i {
				case 0:
					text = b.Title
					if b.Selected {
						text = "> " + text
					}
				case 1:
					text = b.Start.Format("15:04") + "-" + b.End.Format("15:04")
				}
				lines[r] = style.Inherit(cell).Render(truncate(text, opts.ColumnWidth))
			}
		}
		for r := range lines {
			if lines[r] == "" {
				lines[r] = cell.Render("")
			}
		}
		header := cell.Inherit(headerStyle).Render(day.Date.Format("Mon 02 Jan"))
		columns = append(columns, " ", header+"\n"+strings.Join(lines, "\n"))
	}

	out := lipgloss.JoinHorizontal(lipgloss.Top, columns...)
	if l.Stale {
		out = staleStyle.Render("offline: showing last saved schedule") + "\n" + out
	}
	if d, ok := l.Selected(); ok {
		out += "\n\n" + renderDetail(d)
	}
	_, err := fmt.Fprintln(w, out)
	return err
}

func renderDetail(d Detail) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(d.Title))
	if d.SubjectName != "" {
		fmt.Fprintf(&b, "\nSubject: %s", d.SubjectName)
	}
	fmt.Fprintf(&b, "\n%s - %s (%d min)", d.Start.Format("Mon 02 Jan 15:04"), d.End.Format("15:04"), d.DurationMinutes)
	if d.Description != "" {
		b.WriteString("\n" + d.Description)
	}
	return lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Render(b.String())
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}

// RenderJSON writes the layout as indented JSON.
func RenderJSON(w io.Writer, l Layout) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return fmt.Errorf("failed to encode layout: %w", err)
	}
	return nil
}
