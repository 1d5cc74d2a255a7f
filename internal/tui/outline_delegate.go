package tui

import (
	"fmt"
	"io"
	"strings"

	"wbs-cli/internal/model"
	"wbs-cli/internal/outline"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

type rowItem struct {
	row outline.Row
}

func (i rowItem) FilterValue() string { return i.row.Code + " " + i.row.Task.Name }
func (i rowItem) Title() string       { return i.row.Task.Name }

// dragMarks is shared between the model and the delegate so rows can show the source
// and the current target of a drag.
type dragMarks struct {
	active bool
	source string
	over   string
	bad    bool
}

type outlineItemDelegate struct {
	marks *dragMarks

	normal   lipgloss.Style
	selected lipgloss.Style
	dragging lipgloss.Style
}

func newOutlineItemDelegate(marks *dragMarks) outlineItemDelegate {
	return outlineItemDelegate{
		marks:  marks,
		normal: lipgloss.NewStyle(),
		selected: lipgloss.NewStyle().
			Foreground(colorSelectedFg).
			Background(colorSelectedBg).
			Bold(true),
		dragging: lipgloss.NewStyle().
			Foreground(colorSelectedFg).
			Background(colorDragBg).
			Bold(true),
	}
}

func (d outlineItemDelegate) Height() int                             { return 1 }
func (d outlineItemDelegate) Spacing() int                            { return 0 }
func (d outlineItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d outlineItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	width := m.Width()
	if width < 4 {
		return
	}
	it, ok := item.(rowItem)
	if !ok {
		fmt.Fprint(w, d.renderRow(width, d.normal, fmt.Sprint(item)))
		return
	}

	base := d.normal
	switch {
	case d.marks != nil && d.marks.active && it.row.ID == d.marks.source:
		base = d.dragging
	case index == m.Index():
		base = d.selected
	}
	fmt.Fprint(w, d.renderOutlineRow(width, base, it.row))
}

func (d outlineItemDelegate) renderOutlineRow(width int, base lipgloss.Style, row outline.Row) string {
	bg := base.GetBackground()

	marker := "  "
	if d.marks != nil && d.marks.active {
		switch row.ID {
		case d.marks.source:
			marker = "◆ "
		case d.marks.over:
			marker = "→ "
			if d.marks.bad {
				marker = "✗ "
			}
		}
	}

	twisty := " "
	if row.HasChildren {
		twisty = "▾"
		if row.Collapsed {
			twisty = "▸"
		}
	}
	lead := base.Render(marker + strings.Repeat("  ", row.Depth) + twisty + " ")
	code := styleMuted().Background(bg).Render(row.Code) + base.Render(" ")

	// Each styled segment carries the row background; an inner ANSI reset would
	// otherwise clear it for the rest of the line.
	var status string
	if label := strings.ToUpper(row.Task.Status.Label()); label != "" {
		status = statusStyle(row.Task.Status).Background(bg).Render(label) + base.Render(" ")
	}

	title := base.Render(row.Task.Name)
	var extra []string
	if row.Hidden > 0 {
		extra = append(extra, fmt.Sprintf("(+%d)", row.Hidden))
	}
	if row.TotalChildren > 0 {
		extra = append(extra, fmt.Sprintf("[%d/%d]", row.DoneChildren, row.TotalChildren))
	}
	if row.Task.Progress > 0 && row.Task.Progress < 100 {
		extra = append(extra, fmt.Sprintf("%d%%", row.Task.Progress))
	}
	tail := ""
	if len(extra) > 0 {
		tail = base.Render(" ") + styleMuted().Background(bg).Render(strings.Join(extra, " "))
	}

	out := lead + code + status + title + tail
	curW := xansi.StringWidth(out)
	if curW < width {
		out += base.Render(strings.Repeat(" ", width-curW))
	} else if curW > width {
		out = xansi.Cut(out, 0, width)
	}
	return out
}

func (d outlineItemDelegate) renderRow(width int, style lipgloss.Style, line string) string {
	plainW := xansi.StringWidth(line)
	if plainW < width {
		line += strings.Repeat(" ", width-plainW)
	} else if plainW > width {
		line = xansi.Cut(line, 0, width)
	}
	return style.Render(line)
}

func statusStyle(s model.Status) lipgloss.Style {
	switch s {
	case model.StatusCompleted:
		return statusDoneStyle
	case model.StatusInProgress:
		return statusDoingStyle
	default:
		return statusTodoStyle
	}
}
