package ui

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/jackhale98/tessera/internal/baseline"
	"github.com/jackhale98/tessera/internal/project"
	"github.com/jackhale98/tessera/internal/tolerance"
)

// Sprint color functions for building styled strings.
var (
	Bold        = color.New(color.Bold).SprintFunc()
	Dim         = color.New(color.Faint).SprintFunc()
	Cyan        = color.New(color.FgCyan).SprintFunc()
	Green       = color.New(color.FgGreen).SprintFunc()
	Red         = color.New(color.FgRed).SprintFunc()
	Yellow      = color.New(color.FgYellow).SprintFunc()
	Magenta     = color.New(color.FgMagenta).SprintFunc()
	BoldCyan    = color.New(color.Bold, color.FgCyan).SprintFunc()
	BoldGreen   = color.New(color.Bold, color.FgGreen).SprintFunc()
	BoldRed     = color.New(color.Bold, color.FgRed).SprintFunc()
	BoldYellow  = color.New(color.Bold, color.FgYellow).SprintFunc()
	BoldMagenta = color.New(color.Bold, color.FgMagenta).SprintFunc()
	BoldWhite   = color.New(color.Bold, color.FgWhite).SprintFunc()
)

// Banner renders the tessera logo.
func Banner(w io.Writer) {
	frame := color.New(color.FgCyan)
	tiles := color.New(color.FgYellow)
	brand := color.New(color.Bold, color.FgMagenta)
	tag := color.New(color.Faint)

	fmt.Fprintln(w)
	frame.Fprintln(w, "   +---+---+---+---+---+---+---+")
	tiles.Fprintln(w, "   | # |   | # |   | # |   | # |")
	frame.Fprintln(w, "   +---+---+---+---+---+---+---+")
	brand.Fprintln(w, "   | T   E   S   S   E   R   A |")
	frame.Fprintln(w, "   +---+---+---+---+---+---+---+")
	tag.Fprintln(w, "   schedules, baselines and stackups")
	fmt.Fprintln(w)
}

// StatusIcon returns a colored icon for a task status.
func StatusIcon(s project.Status) string {
	switch s {
	case project.Completed:
		return Green("✓")
	case project.InProgress:
		return Cyan("●")
	case project.OnHold:
		return Yellow("⏸")
	case project.Cancelled:
		return Dim("⊘")
	default:
		return Dim("◌")
	}
}

// Critical marks critical-path rows.
func Critical(critical bool) string {
	if critical {
		return BoldYellow("⚡")
	}
	return " "
}

// Health colors a traffic-light health value.
func Health(h baseline.Health) string {
	switch h {
	case baseline.Green:
		return BoldGreen("green")
	case baseline.Yellow:
		return BoldYellow("yellow")
	default:
		return BoldRed("red")
	}
}

// MilestoneState colors a baseline milestone bucket.
func MilestoneState(s baseline.MilestoneState) string {
	switch s {
	case baseline.OnTrack:
		return Green(string(s))
	case baseline.AtRisk:
		return Yellow(string(s))
	default:
		return Red(string(s))
	}
}

// MilestoneStatus colors a scheduled milestone status.
func MilestoneStatus(s project.MilestoneStatus) string {
	switch s {
	case project.Achieved:
		return Green(string(s))
	case project.AtRisk:
		return Yellow(string(s))
	case project.Missed:
		return Red(string(s))
	default:
		return Dim(string(s))
	}
}

// Rating colors a capability rating.
func Rating(r tolerance.Rating) string {
	switch r {
	case tolerance.Excellent, tolerance.Good:
		return BoldGreen(string(r))
	case tolerance.Adequate:
		return Cyan(string(r))
	case tolerance.Marginal:
		return Yellow(string(r))
	default:
		return BoldRed(string(r))
	}
}

// Impact colors a sensitivity impact level.
func Impact(i tolerance.Impact) string {
	switch i {
	case tolerance.HighImpact:
		return BoldRed(string(i))
	case tolerance.MediumImpact:
		return Yellow(string(i))
	default:
		return Dim(string(i))
	}
}

// Signed colors a variance: positive (late or over budget) red, negative green.
func Signed(format string, v float64) string {
	s := fmt.Sprintf(format, v)
	switch {
	case v > 0:
		return Red(s)
	case v < 0:
		return Green(s)
	default:
		return Dim(s)
	}
}

// Gain is Signed with the colors reversed: positive is good.
func Gain(format string, v float64) string {
	s := fmt.Sprintf(format, v)
	switch {
	case v > 0:
		return Green(s)
	case v < 0:
		return Red(s)
	default:
		return Dim(s)
	}
}

// Bar renders a horizontal bar of width*fraction cells.
func Bar(fraction float64, width int) string {
	n := int(fraction*float64(width) + 0.5)
	n = min(max(n, 0), width)
	bar := ""
	for i := 0; i < width; i++ {
		if i < n {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}
