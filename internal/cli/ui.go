package cli

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
)

// ============================================================================
// Color Palette
// ============================================================================

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

// ============================================================================
// Shared Styles
// ============================================================================

// Exported styles are reused by the interactive models in tui.go.
var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleHighlight = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	StyleLink      = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)
)

var (
	styleSuccess = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	styleError   = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	styleWarning = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	styleInfo    = lipgloss.NewStyle().Foreground(colorCyan)
	styleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	styleFile    = lipgloss.NewStyle().Foreground(colorGray)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleCached  = lipgloss.NewStyle().Foreground(colorGreen)
	styleFresh   = lipgloss.NewStyle().Foreground(colorBlue)
)

// ============================================================================
// Icons
// ============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconDetail  = "›"
	iconArrow   = "→"
)

// ============================================================================
// Status Output
// ============================================================================

// printSuccess prints a green check followed by the message.
func printSuccess(format string, args ...any) {
	fmt.Println(styleSuccess.Render(iconSuccess) + " " + fmt.Sprintf(format, args...))
}

// printError prints a red cross followed by the message.
func printError(format string, args ...any) {
	fmt.Println(styleError.Render(iconError) + " " + fmt.Sprintf(format, args...))
}

// printWarning prints a yellow bang followed by the message.
func printWarning(format string, args ...any) {
	fmt.Println(styleWarning.Render(iconWarning) + " " + fmt.Sprintf(format, args...))
}

// printInfo prints an informational message.
func printInfo(format string, args ...any) {
	fmt.Println(styleInfo.Render(fmt.Sprintf(format, args...)))
}

// printDetail prints an indented secondary line below a status line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + styleDim.Render(iconDetail+" "+fmt.Sprintf(format, args...)))
}

// printNewline prints a blank spacer line.
func printNewline() {
	fmt.Println()
}

// ============================================================================
// File & Key-Value Output
// ============================================================================

// printFile prints an indented file path.
func printFile(path string) {
	fmt.Println("  " + styleFile.Render(path))
}

// printKeyValue prints an aligned "key: value" detail line.
func printKeyValue(key, value string) {
	fmt.Println("  " + styleDim.Render(key+":") + " " + styleValue.Render(value))
}

// ============================================================================
// Stats Display
// ============================================================================

// printStats summarizes a finished run: graph size and whether the
// graph came from cache.
func printStats(nodes, edges int, cached bool) {
	origin := styleFresh.Render("fresh")
	if cached {
		origin = styleCached.Render("cached")
	}
	fmt.Println("  " +
		styleValue.Render(strconv.Itoa(nodes)) + styleDim.Render(" nodes  ") +
		styleValue.Render(strconv.Itoa(edges)) + styleDim.Render(" edges  ") +
		origin)
}

// ============================================================================
// Next Steps
// ============================================================================

// printNextStep suggests the follow-up command after a successful run.
func printNextStep(action, command string) {
	fmt.Println(styleDim.Render(iconArrow+" "+action+":") + " " + StyleHighlight.Render(command))
}
