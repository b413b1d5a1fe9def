// Package tui provides a Bubble Tea TUI for browsing recorded AI changes.
package tui

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/aitrack/internal/record"
	"github.com/fakeyudi/aitrack/internal/report"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("178"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Italic(true)

	// Tool badges
	EditStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	WriteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	diffAddStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	diffDelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	diffMetaStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("237"))
)

// ToolBadge renders the fixed-width, colored tool label used by every view.
func ToolBadge(t record.Tool) string {
	label := fmt.Sprintf("%-5s", strings.ToUpper(string(t)))
	if t == record.ToolWrite {
		return WriteStyle.Render(label)
	}
	return EditStyle.Render(label)
}

// ── Tab definitions ─────────────────

type tabID int

const (
	tabSummary tabID = iota
	tabChanges
	tabFiles
	tabSessions
	tabTimeline
	tabCount
)

var tabNames = [tabCount]string{
	"Summary", "Changes", "Files", "Sessions", "Timeline",
}

// ── Model ────────────────────

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	report    *report.Report
	filename  string
	activeTab tabID
	viewports [tabCount]viewport.Model
	width     int
	height    int
	ready     bool
	sortAsc   bool
	// Changes tab: cursor position and expanded set
	cursor   int
	expanded map[int]bool
}

// New creates a new TUI model for r; filename is shown in the title bar.
func New(r *report.Report, filename string) Model {
	return Model{
		report:   r,
		filename: filepath.Base(filename),
		expanded: make(map[int]bool),
	}
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "l", "right":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab", "h", "left":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		case "1", "2", "3", "4", "5":
			m.activeTab = tabID(msg.String()[0] - '1')
		case "s":
			if m.activeTab == tabTimeline {
				m.sortAsc = !m.sortAsc
				m.viewports[tabTimeline].SetContent(m.renderTab(tabTimeline))
				m.viewports[tabTimeline].GotoTop()
			}
		case "up", "k":
			if m.activeTab == tabChanges && m.cursor > 0 {
				m.cursor--
				m.rebuildChanges()
				return m, nil
			}
		case "down", "j":
			if m.activeTab == tabChanges && m.cursor < len(m.report.Records)-1 {
				m.cursor++
				m.rebuildChanges()
				return m, nil
			}
		case "enter", " ":
			if m.activeTab == tabChanges && len(m.report.Records) > 0 {
				if hasBody(m.report.Records[m.cursor]) {
					if m.expanded[m.cursor] {
						delete(m.expanded, m.cursor)
					} else {
						m.expanded[m.cursor] = true
					}
					m.rebuildChanges()
				}
				return m, nil
			}
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewports()
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  aitrack  " + m.filename)

	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		label := fmt.Sprintf(" %d %s ", i+1, tabNames[i])
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < tabCount-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	content := m.viewports[m.activeTab].View()

	hint := "  ←/→ tab  ↑/↓ scroll  1-5 jump  q quit"
	switch m.activeTab {
	case tabTimeline:
		dir := "newest first"
		if m.sortAsc {
			dir = "oldest first"
		}
		hint += "  s sort (" + dir + ")"
	case tabChanges:
		hint += "  ↑/↓ select  enter expand/collapse"
	}
	pct := fmt.Sprintf("%3.0f%%", m.viewports[m.activeTab].ScrollPercent()*100)
	pad := m.width - lipgloss.Width(hint) - len(pct) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(hint + strings.Repeat(" ", pad) + pct)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar)
}

// ── Viewport management ───────────────────────────────────────────────────────

func (m *Model) initViewports() {
	// title(1) + tabRow(1) + statusBar(1) = 3 fixed rows
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	for i := tabID(0); i < tabCount; i++ {
		vp := viewport.New(m.width, vpHeight)
		vp.SetContent(m.renderTab(i))
		m.viewports[i] = vp
	}
}

func (m *Model) rebuildChanges() {
	m.viewports[tabChanges].SetContent(m.renderTab(tabChanges))
}

// ── Tab renderers ─────────────────────────────────────────────────────────────

func (m *Model) renderTab(t tabID) string {
	switch t {
	case tabSummary:
		return m.renderSummary()
	case tabChanges:
		return m.renderChanges()
	case tabFiles:
		return m.renderFiles()
	case tabSessions:
		return m.renderSessions()
	case tabTimeline:
		return m.renderTimeline()
	}
	return ""
}

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func none() string {
	return dimStyle.Render("  (none)") + "\n"
}

func (m *Model) renderSummary() string {
	r := m.report
	var sb strings.Builder
	sb.WriteString(heading("AI Changes"))

	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-14s", label)) + "  " + value + "\n")
	}
	row("Log:", r.LogFile)
	row("Generated:", r.GeneratedAt.Local().Format("2006-01-02 15:04:05 MST"))
	if n := len(r.Records); n > 0 {
		row("First:", r.Records[0].Timestamp.Local().Format("2006-01-02 15:04:05"))
		row("Last:", r.Records[n-1].Timestamp.Local().Format("2006-01-02 15:04:05"))
	}

	var edits, writes int
	for _, rec := range r.Records {
		if rec.Tool == record.ToolWrite {
			writes++
		} else {
			edits++
		}
	}
	sb.WriteString(heading("Counts"))
	row("Changes:", fmt.Sprintf("%d", len(r.Records)))
	row("Edits:", fmt.Sprintf("%d", edits))
	row("Writes:", fmt.Sprintf("%d", writes))
	row("Files:", fmt.Sprintf("%d", len(r.Files)))
	row("Sessions:", fmt.Sprintf("%d", len(r.Sessions)))
	return sb.String()
}

func (m *Model) renderChanges() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Changes (%d)", len(m.report.Records))))
	if len(m.report.Records) == 0 {
		sb.WriteString(none())
		return sb.String()
	}
	for i, rec := range m.report.Records {
		toggle := "    "
		if hasBody(rec) {
			toggle = dimStyle.Render("  ▶ ")
			if m.expanded[i] {
				toggle = dimStyle.Render("  ▼ ")
			}
		}
		ts := timeStyle.Render(rec.Timestamp.Local().Format("15:04:05"))
		row := fmt.Sprintf("%s%s  %s  %s:%d%s", toggle, ts, ToolBadge(rec.Tool), rec.FilePath, rec.LineNumber, flags(rec))
		if i == m.cursor {
			row = selectedRowStyle.Width(m.width - 2).Render(row)
		}
		sb.WriteString(row + "\n")
		if m.expanded[i] {
			if rec.Prompt != "" {
				sb.WriteString(promptStyle.Render("      "+FirstLine(rec.Prompt)) + "\n")
			}
			sb.WriteString(renderDiff(rec, m.width))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m *Model) renderFiles() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Files (%d)", len(m.report.Files))))
	if len(m.report.Files) == 0 {
		sb.WriteString(none())
		return sb.String()
	}
	for _, f := range m.report.Files {
		ts := timeStyle.Render(f.LastChange.Local().Format("01-02 15:04:05"))
		counts := dimStyle.Render(fmt.Sprintf("%d edit(s), %d write(s)", f.Edits, f.Writes))
		sb.WriteString(fmt.Sprintf("  %s  %s  %s\n", ts, f.Path, counts))
		if len(f.Lines) > 0 {
			lines := make([]string, len(f.Lines))
			for i, l := range f.Lines {
				lines[i] = fmt.Sprint(l)
			}
			sb.WriteString(dimStyle.Render("      lines "+strings.Join(lines, ", ")) + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m *Model) renderSessions() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Sessions (%d)", len(m.report.Sessions))))
	if len(m.report.Sessions) == 0 {
		sb.WriteString(none())
		return sb.String()
	}
	for _, s := range m.report.Sessions {
		sb.WriteString(labelStyle.Render("  "+s.ID) + "\n")
		sb.WriteString(fmt.Sprintf("    %s → %s  %s\n",
			timeStyle.Render(s.Start.Local().Format("2006-01-02 15:04:05")),
			timeStyle.Render(s.End.Local().Format("15:04:05")),
			dimStyle.Render(fmt.Sprintf("%d change(s)", s.Changes))))
		for _, p := range s.Prompts {
			sb.WriteString(promptStyle.Render("    > "+FirstLine(p)) + "\n")
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m *Model) renderTimeline() string {
	var sb strings.Builder
	dir := "newest first"
	if m.sortAsc {
		dir = "oldest first"
	}
	sb.WriteString(heading(fmt.Sprintf("Timeline (%s)", dir)))
	if len(m.report.Records) == 0 {
		sb.WriteString(dimStyle.Render("  (no changes recorded)") + "\n")
		return sb.String()
	}

	events := make([]record.ChangeRecord, len(m.report.Records))
	copy(events, m.report.Records)
	if m.sortAsc {
		sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
	} else {
		sort.SliceStable(events, func(i, j int) bool { return events[i].Timestamp.After(events[j].Timestamp) })
	}
	for _, ev := range events {
		ts := timeStyle.Render(ev.Timestamp.Local().Format("01-02 15:04:05"))
		sb.WriteString(fmt.Sprintf("  %s  %s  %s\n\n", ts, ToolBadge(ev.Tool), filepath.Base(ev.FilePath)))
	}
	return sb.String()
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func hasBody(rec record.ChangeRecord) bool {
	return rec.OldString != nil || rec.NewString != nil || rec.Prompt != ""
}

func flags(rec record.ChangeRecord) string {
	var out []string
	if rec.IsNewFile != nil && *rec.IsNewFile {
		out = append(out, "new file")
	}
	if rec.ReplaceAll != nil && *rec.ReplaceAll {
		out = append(out, "replace all")
	}
	if rec.ContentLength != nil {
		out = append(out, fmt.Sprintf("%d chars", *rec.ContentLength))
	}
	if len(out) == 0 {
		return ""
	}
	return dimStyle.Render("  (" + strings.Join(out, ", ") + ")")
}

// renderDiff shows the truncated old and new strings of an edit as a
// colorized -/+ block.
func renderDiff(rec record.ChangeRecord, width int) string {
	if rec.OldString == nil && rec.NewString == nil {
		return ""
	}
	var sb strings.Builder
	border := dimStyle.Render("  " + strings.Repeat("─", max(width-4, 1)))
	sb.WriteString(border + "\n")
	sb.WriteString(diffMetaStyle.Render(fmt.Sprintf("  @@ %s:%d @@", filepath.Base(rec.FilePath), rec.LineNumber)) + "\n")
	if rec.OldString != nil {
		for _, line := range strings.Split(*rec.OldString, "\n") {
			sb.WriteString(diffDelStyle.Render("  -"+line) + "\n")
		}
	}
	if rec.NewString != nil {
		for _, line := range strings.Split(*rec.NewString, "\n") {
			sb.WriteString(diffAddStyle.Render("  +"+line) + "\n")
		}
	}
	sb.WriteString(border + "\n")
	return sb.String()
}

// FirstLine returns s up to its first newline.
func FirstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

// Run starts the TUI for r.
func Run(r *report.Report, filename string) error {
	p := tea.NewProgram(New(r, filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
