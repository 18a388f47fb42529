// Package tui provides a terminal user interface for displaying push progress.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// FileStatus represents the sync status of a file.
type FileStatus int

const (
	StatusPending FileStatus = iota
	StatusSyncing
	StatusDone
	StatusSkipped
	StatusError
)

// FileItem is a file queued for pushing.
type FileItem struct {
	Path   string
	Status FileStatus
	Error  string
}

// maxRecentItems is the number of recent finished items to show.
const maxRecentItems = 5

// Model is the Bubble Tea model for the push TUI.
type Model struct {
	// All items indexed by path for quick lookup
	items map[string]*FileItem

	counts     map[FileStatus]int
	totalCount int

	// The file being pushed, nil between files
	current *FileItem

	// Recent finished items (scrolling buffer)
	recentItems []*FileItem

	spinner  spinner.Model
	done     bool
	err      error
	quitting bool

	// Styles
	headerStyle   lipgloss.Style
	titleStyle    lipgloss.Style
	countStyle    lipgloss.Style
	doneStyle     lipgloss.Style
	errorStyle    lipgloss.Style
	skippedStyle  lipgloss.Style
	progressStyle lipgloss.Style
	dimStyle      lipgloss.Style
}

// Messages for updating the TUI from the batch runner.
type (
	// AddFileMsg adds a new file (starts as pending).
	AddFileMsg struct {
		Path string
	}

	// UpdateStatusMsg updates the status of a file.
	UpdateStatusMsg struct {
		Path   string
		Status FileStatus
		Error  string
	}

	// DoneMsg signals that the batch is complete.
	DoneMsg struct {
		Err error
	}
)

// New creates a new TUI model.
func New() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return Model{
		items:       make(map[string]*FileItem),
		counts:      make(map[FileStatus]int),
		recentItems: make([]*FileItem, 0),
		spinner:     s,

		headerStyle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")),
		titleStyle:    lipgloss.NewStyle().Bold(true),
		countStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		doneStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		errorStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		skippedStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		progressStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("205")),
		dimStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case AddFileMsg:
		if _, ok := m.items[msg.Path]; ok {
			return m, nil
		}
		m.items[msg.Path] = &FileItem{Path: msg.Path, Status: StatusPending}
		m.counts[StatusPending]++
		m.totalCount++
		return m, nil

	case UpdateStatusMsg:
		item, ok := m.items[msg.Path]
		if !ok {
			return m, nil
		}

		m.counts[item.Status]--
		m.counts[msg.Status]++
		item.Status = msg.Status
		item.Error = msg.Error

		switch msg.Status {
		case StatusSyncing:
			m.current = item
		case StatusDone, StatusSkipped, StatusError:
			if m.current == item {
				m.current = nil
			}
			m.recentItems = append(m.recentItems, item)
			// Keep only the last N items
			if len(m.recentItems) > maxRecentItems {
				m.recentItems = m.recentItems[len(m.recentItems)-maxRecentItems:]
			}
		}

		return m, nil

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(m.headerStyle.Render("Pushing Markdown to Notion"))
	b.WriteString("\n")

	// Progress bar
	completed := m.counts[StatusDone] + m.counts[StatusSkipped] + m.counts[StatusError]
	if m.totalCount > 0 {
		percent := float64(completed) / float64(m.totalCount) * 100
		barWidth := 40
		filledWidth := min(barWidth*completed/m.totalCount, barWidth)

		bar := strings.Repeat("━", filledWidth) + strings.Repeat("─", barWidth-filledWidth)
		b.WriteString(m.progressStyle.Render(bar))
		b.WriteString(fmt.Sprintf(" %.0f%% (%d/%d)\n", percent, completed, m.totalCount))
	}

	counts := fmt.Sprintf("Pending: %d  Synced: %d  Skipped: %d  Errors: %d",
		m.counts[StatusPending], m.counts[StatusDone], m.counts[StatusSkipped], m.counts[StatusError])
	b.WriteString(m.countStyle.Render(counts))
	b.WriteString("\n\n")

	if m.current != nil {
		b.WriteString(fmt.Sprintf("  %s %s\n\n", m.spinner.View(), m.titleStyle.Render(truncate(m.current.Path, 60))))
	}

	if len(m.recentItems) > 0 {
		b.WriteString(m.dimStyle.Render("Recent:"))
		b.WriteString("\n")
		for _, item := range m.recentItems {
			b.WriteString(m.renderRecentItem(item))
			b.WriteString("\n")
		}
	}

	if m.done {
		b.WriteString("\n")
		if m.err != nil {
			b.WriteString(m.errorStyle.Render("✗ Push failed: " + m.err.Error()))
		} else {
			b.WriteString(m.doneStyle.Render("✓ Push complete"))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// renderRecentItem renders a finished item.
func (m Model) renderRecentItem(item *FileItem) string {
	var status string
	switch item.Status {
	case StatusDone:
		status = m.doneStyle.Render("✓")
	case StatusSkipped:
		status = m.skippedStyle.Render("–")
	case StatusError:
		status = m.errorStyle.Render("✗ " + truncate(item.Error, 50))
	}

	return fmt.Sprintf("  %s %s", status, m.dimStyle.Render(truncate(item.Path, 50)))
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// Items returns all items.
func (m *Model) Items() map[string]*FileItem {
	return m.items
}
