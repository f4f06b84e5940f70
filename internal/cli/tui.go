package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/abapdoc/abapdoc/pkg/adt"
)

// ============================================================================
// Package Selection Model
// ============================================================================

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listRowStyle      = lipgloss.NewStyle().Foreground(colorWhite)
	listHeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorGray)
	listBorderStyle   = lipgloss.NewStyle().Foreground(colorDim)
	listHintStyle     = lipgloss.NewStyle().Foreground(colorDim)
)

// PackageListModel is the bubbletea model behind `abapdoc package`
// without an argument: a scrollable list of packages found on the
// system, one of which becomes the documentation target.
type PackageListModel struct {
	Packages []adt.ObjectInfo
	Cursor   int
	Offset   int
	Height   int

	// Selected is set when the user confirms a row; nil means the
	// selection was aborted.
	Selected *adt.ObjectInfo
}

// NewPackageListModel creates a selection model over packages.
func NewPackageListModel(packages []adt.ObjectInfo) PackageListModel {
	return PackageListModel{Packages: packages, Height: 15}
}

// Init implements tea.Model.
func (m PackageListModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model: arrow keys and j/k move, enter selects,
// q/esc/ctrl+c abort.
func (m PackageListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Packages)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Packages) > 0 {
				pkg := m.Packages[m.Cursor]
				m.Selected = &pkg
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m PackageListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Select a package to document"))
	b.WriteString("\n")
	b.WriteString(listHintStyle.Render("↑/k up · ↓/j down · enter select · q quit"))
	b.WriteString("\n\n")

	end := m.Offset + m.Height
	if end > len(m.Packages) {
		end = len(m.Packages)
	}

	var rows [][]string
	for i := m.Offset; i < end; i++ {
		pkg := m.Packages[i]
		cursor := " "
		if i == m.Cursor {
			cursor = iconDetail
		}
		desc := pkg.Description
		if desc == "" {
			desc = "-"
		}
		rows = append(rows, []string{cursor, pkg.Name, desc})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(listBorderStyle).
		Headers("", "Package", "Description").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == -1 {
				return listHeaderStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Packages) {
				return listRowStyle
			}
			if idx == m.Cursor {
				return listSelectedStyle
			}
			return listRowStyle
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(listHintStyle.Render(fmt.Sprintf("%d/%d", m.Cursor+1, len(m.Packages))))
	b.WriteString("\n")

	return b.String()
}
