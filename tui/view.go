package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"hevc-encoder/hwaccel"
	"hevc-encoder/progress"
)

// Color palette - modern, readable
var (
	colorPrimary    = lipgloss.Color("#7C3AED") // Violet
	colorSecondary  = lipgloss.Color("#06B6D4") // Cyan
	colorSuccess    = lipgloss.Color("#10B981") // Emerald
	colorError      = lipgloss.Color("#EF4444") // Red
	colorWarning    = lipgloss.Color("#F59E0B") // Amber
	colorMuted      = lipgloss.Color("#6B7280") // Gray
	colorText       = lipgloss.Color("#F9FAFB") // White
	colorTextDim    = lipgloss.Color("#9CA3AF") // Light gray
	colorBorder     = lipgloss.Color("#374151") // Dark gray
)

var (
	// Title bar
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText).
			Background(colorPrimary).
			Padding(0, 2).
			MarginBottom(1)

	// Section headers
	sectionHeaderStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true).
				MarginTop(1)

	// Main stats box
	statsBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(1, 2).
			MarginTop(1)

	// Individual stat styles
	statLabelStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(10)

	statValueStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	// File path styles
	fileBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 2).
			MarginTop(1)

	fileLabelStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Width(8)

	filePathStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	// Status styles
	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	// Help text
	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			MarginTop(1)

	// Log viewport
	logBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1).
			MarginTop(1)

	// Percentage styles based on progress
	percentLowStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	percentMidStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true)

	percentHighStyle = lipgloss.NewStyle().
				Foreground(colorSuccess).
				Bold(true)
)

// formatETADisplay handles unavailable ETA gracefully
func formatETADisplay(eta time.Duration, available bool) string {
	if !available || eta < 0 {
		return "—"
	}
	return formatDuration(eta)
}

// estimateETA extrapolates the remaining wall time from the elapsed time and
// the share of the input already encoded.
func estimateETA(elapsed time.Duration, pct float64) (time.Duration, bool) {
	if pct <= 0 || pct >= 100 || elapsed <= 0 {
		return 0, false
	}
	total := float64(elapsed) * 100 / pct
	return time.Duration(total) - elapsed, true
}

// formatPercentage handles cases where percentage cannot be calculated
func formatPercentage(pct float64, totalDuration time.Duration) string {
	if totalDuration == 0 {
		return "..."
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	// Cap display at 99.9% to avoid showing 100% until truly complete
	// (the done state will show completion)
	if pct > 99.9 {
		pct = 99.9
	}
	return fmt.Sprintf("%.1f%%", pct)
}

// getPercentageStyle returns appropriate style based on progress
func getPercentageStyle(pct float64) lipgloss.Style {
	if pct < 33 {
		return percentLowStyle
	} else if pct < 66 {
		return percentMidStyle
	}
	return percentHighStyle
}

// formatPosition renders "current / total" media time.
func formatPosition(p progress.Progress) string {
	if p.Total <= 0 {
		return "—"
	}
	return formatDuration(p.Current) + " / " + formatDuration(p.Total)
}

// formatDevice names the encoder and, for hardware, the adapter in use.
func formatDevice(d hwaccel.Device) string {
	codec := hwaccel.CodecName(d.Vendor)
	if !d.Accelerated() {
		return codec + " (software)"
	}
	return fmt.Sprintf("%s (%s #%d)", codec, d.Vendor, d.Index)
}

func formatPreset(req hwaccel.Request) string {
	if req.PresetIndex == nil {
		return "default"
	}
	presets := hwaccel.Presets(req.Device.Vendor)
	if i := *req.PresetIndex; i >= 0 && i < len(presets) {
		return presets[i]
	}
	return "—"
}

// View renders the TUI
func (m Model) View() string {
	var b strings.Builder

	// Title
	title := titleStyle.Render(" ⚡ HEVC Encoder ")
	b.WriteString(title + "\n")

	switch m.State {
	case StateIdle:
		b.WriteString(m.renderIdleView())

	case StateEncoding, StatePaused:
		b.WriteString(m.renderEncodingView())

	case StateDone:
		b.WriteString(m.renderDoneView())

	case StateError:
		b.WriteString(m.renderErrorView())

	case StateCancelled:
		b.WriteString(m.renderCancelledView())
	}

	if m.Notice != "" {
		b.WriteString("\n" + warningStyle.Render("  "+m.Notice) + "\n")
	}

	// Help footer
	b.WriteString("\n" + helpStyle.Render(m.helpText()) + "\n")

	return b.String()
}

func (m Model) helpText() string {
	switch m.State {
	case StateEncoding:
		return "  [P] Pause  •  [C] Cancel  •  [L] Toggle logs  •  [Q] Quit"
	case StatePaused:
		return "  [P] Resume  •  [C] Cancel  •  [L] Toggle logs  •  [Q] Quit"
	case StateDone:
		return "  [O] Show output  •  [L] Toggle logs  •  [Q] Quit"
	default:
		return "  [L] Toggle logs  •  [Q] Quit"
	}
}

func (m Model) renderIdleView() string {
	return "\n" + statValueStyle.Render("  Initializing encoder...") + "\n"
}

func (m Model) renderEncodingView() string {
	var b strings.Builder

	prog := m.CurrentProgress

	// Check if we have any progress data yet
	hasProgressData := prog.Total > 0

	// Progress section
	b.WriteString("\n")

	percentage := prog.Percent / 100
	// Show a minimal progress if encoding has started but percentage is still 0
	if !hasProgressData || percentage <= 0 {
		percentage = 0.01
	}

	progressBar := m.Progress.ViewAs(percentage)

	// Percentage with color based on progress
	pctStr := formatPercentage(prog.Percent, prog.Total)
	pctStyled := getPercentageStyle(prog.Percent).Render(pctStr)

	b.WriteString("  " + progressBar + "  " + pctStyled + "\n")

	if m.State == StatePaused {
		b.WriteString(warningStyle.Render("  ❚❚ Paused") + "\n")
	}

	// Stats section
	elapsed := time.Since(m.StartTime).Round(time.Second)

	statsContent := m.buildStatsGrid(prog, elapsed)
	b.WriteString(statsBoxStyle.Render(statsContent))
	b.WriteString("\n")

	// Files section
	filesContent := m.buildFilesSection()
	b.WriteString(fileBoxStyle.Render(filesContent))

	// Log viewport if enabled
	if m.ShowLogs {
		b.WriteString("\n")
		logHeader := sectionHeaderStyle.Render("  Encoder Output")
		b.WriteString(logHeader + "\n")
		b.WriteString(logBoxStyle.Render(m.LogViewport.View()))
	}

	return b.String()
}

func (m Model) buildStatsGrid(prog progress.Progress, elapsed time.Duration) string {
	var lines []string

	frameVal := "—"
	if prog.Frame > 0 {
		frameVal = fmt.Sprintf("%d", prog.Frame)
	}

	line1 := lipgloss.JoinHorizontal(lipgloss.Top,
		statLabelStyle.Render("Frame"),
		statValueStyle.Render(frameVal),
		lipgloss.NewStyle().Width(12).Render(""),
		statLabelStyle.Render("Position"),
		statValueStyle.Render(formatPosition(prog)),
	)
	lines = append(lines, line1)

	line2 := lipgloss.JoinHorizontal(lipgloss.Top,
		statLabelStyle.Render("Encoder"),
		statValueStyle.Render(formatDevice(m.Request.Device)),
	)
	lines = append(lines, line2)

	line3 := lipgloss.JoinHorizontal(lipgloss.Top,
		statLabelStyle.Render("Quality"),
		statValueStyle.Render(fmt.Sprintf("%d", m.Request.Quality)),
		lipgloss.NewStyle().Width(12).Render(""),
		statLabelStyle.Render("Preset"),
		statValueStyle.Render(formatPreset(m.Request)),
	)
	lines = append(lines, line3)

	eta, ok := estimateETA(elapsed, prog.Percent)
	if m.State == StatePaused {
		ok = false
	}
	line4 := lipgloss.JoinHorizontal(lipgloss.Top,
		statLabelStyle.Render("Elapsed"),
		statValueStyle.Render(formatDuration(elapsed)),
		lipgloss.NewStyle().Width(12).Render(""),
		statLabelStyle.Render("ETA"),
		statValueStyle.Render(formatETADisplay(eta, ok)),
	)
	lines = append(lines, line4)

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) buildFilesSection() string {
	// Truncate paths if too long
	maxPathLen := m.Width - 16
	if maxPathLen < 20 {
		maxPathLen = 60
	}

	var lines []string
	for i, in := range m.Request.Inputs {
		label := ""
		if i == 0 {
			label = "Input"
		}
		lines = append(lines, fileLabelStyle.Render(label)+filePathStyle.Render(truncatePath(in, maxPathLen)))
	}
	lines = append(lines, fileLabelStyle.Render("Output")+filePathStyle.Render(truncatePath(m.Output, maxPathLen)))

	return strings.Join(lines, "\n")
}

func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	// Show beginning and end
	if maxLen < 20 {
		return path[:maxLen-3] + "..."
	}
	half := (maxLen - 5) / 2
	return path[:half] + " ... " + path[len(path)-half:]
}

func (m Model) renderDoneView() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(successStyle.Render("  ✓ Encoding Complete!") + "\n")

	elapsed := m.FinishTime.Sub(m.StartTime).Round(time.Second)

	var lines []string
	lines = append(lines,
		statLabelStyle.Render("Output")+filePathStyle.Render(m.Output))
	lines = append(lines,
		statLabelStyle.Render("Time")+statValueStyle.Render(formatDuration(elapsed)))

	// Get actual file size from disk
	if info, err := os.Stat(m.Output); err == nil && !info.IsDir() {
		lines = append(lines,
			statLabelStyle.Render("Size")+statValueStyle.Render(formatBytes(info.Size())))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	b.WriteString(statsBoxStyle.Render(content))

	return b.String()
}

func (m Model) renderErrorView() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(errorStyle.Render("  ✗ Encoding Failed") + "\n\n")

	// Error message in a box
	errBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorError).
		Padding(0, 2).
		Foreground(colorError).
		Render(m.ErrorMessage)

	b.WriteString(errBox + "\n")

	// Show logs if available
	if m.ShowLogs && m.LogViewport.TotalLineCount() > 0 {
		b.WriteString("\n")
		logHeader := sectionHeaderStyle.Render("  Encoder Output")
		b.WriteString(logHeader + "\n")
		b.WriteString(logBoxStyle.Render(m.LogViewport.View()))
	}

	return b.String()
}

func (m Model) renderCancelledView() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(warningStyle.Render("  ⊘ Encoding Cancelled") + "\n\n")
	b.WriteString(fileLabelStyle.Render("Output") + filePathStyle.Render(m.Output) + "\n")

	return b.String()
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		return "—"
	}
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
