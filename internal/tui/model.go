// Package tui provides the interactive review editor.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/the-labels-must-flow/internal/model"
)

// DecideFunc persists a decision and returns the stored item.
type DecideFunc func(ctx context.Context, item model.ReviewItem, status model.ReviewStatus, purpose, subcat string) (model.ReviewItem, error)

const (
	fieldPurpose = iota
	fieldSubcat
)

type decisionSavedMsg struct {
	item  model.ReviewItem
	index int
}

type decisionFailedMsg struct {
	err   error
	index int
}

// Stats counts the decisions made in a session.
type Stats struct {
	Confirmed int
	Ignored   int
	Failed    int
}

// Model is the review editor state.
type Model struct {
	ctx      context.Context
	decide   DecideFunc
	lastErr  error
	theme    Theme
	keymap   KeyMap
	help     help.Model
	message  string
	items    []model.ReviewItem
	inputs   [2]textinput.Model
	stats    Stats
	cursor   int
	focus    int
	width    int
	height   int
	editing  bool
	saving   bool
	quitting bool
}

// New creates an editor over items.
func New(ctx context.Context, items []model.ReviewItem, decide DecideFunc) Model {
	var inputs [2]textinput.Model
	for i, placeholder := range []string{"支出目的", "细类"} {
		in := textinput.New()
		in.Placeholder = placeholder
		in.CharLimit = 50
		inputs[i] = in
	}

	return Model{
		ctx:    ctx,
		decide: decide,
		theme:  Default,
		keymap: DefaultKeyMap(),
		help:   help.New(),
		items:  items,
		inputs: inputs,
		width:  100,
		height: 30,
	}
}

// Items returns the items with any decisions applied.
func (m Model) Items() []model.ReviewItem {
	return m.items
}

// Stats returns the session's decision counts.
func (m Model) Stats() Stats {
	return m.stats
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case decisionSavedMsg:
		m.saving = false
		m.items[msg.index] = msg.item
		switch msg.item.Status {
		case model.ReviewConfirmed:
			m.stats.Confirmed++
		case model.ReviewIgnored:
			m.stats.Ignored++
		}
		m.message = fmt.Sprintf("%s %s", msg.item.RecordID, msg.item.Status)
		m.lastErr = nil
		m.cursor = m.nextPending(msg.index)
		return m, nil

	case decisionFailedMsg:
		m.saving = false
		m.stats.Failed++
		m.lastErr = msg.err
		m.message = ""
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateBrowsing(msg)
	}
	return m, nil
}

func (m Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keymap.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keymap.Down):
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keymap.Edit):
		if item, ok := m.current(); ok && item.Status == model.ReviewPending {
			m.editing = true
			m.focus = fieldPurpose
			m.inputs[fieldPurpose].SetValue(item.FinalPurpose)
			m.inputs[fieldSubcat].SetValue(item.FinalSubcat)
			m.inputs[fieldSubcat].Blur()
			return m, m.inputs[fieldPurpose].Focus()
		}
	case key.Matches(msg, m.keymap.Confirm):
		return m.save(model.ReviewConfirmed)
	case key.Matches(msg, m.keymap.Ignore):
		return m.save(model.ReviewIgnored)
	}
	return m, nil
}

func (m Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Cancel):
		m.stopEditing()
		return m, nil
	case key.Matches(msg, m.keymap.Save):
		m.items[m.cursor].FinalPurpose = strings.TrimSpace(m.inputs[fieldPurpose].Value())
		m.items[m.cursor].FinalSubcat = strings.TrimSpace(m.inputs[fieldSubcat].Value())
		m.stopEditing()
		m.message = "edited, press c to confirm"
		return m, nil
	case key.Matches(msg, m.keymap.NextField):
		m.inputs[m.focus].Blur()
		m.focus = 1 - m.focus
		return m, m.inputs[m.focus].Focus()
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) stopEditing() {
	m.editing = false
	m.inputs[fieldPurpose].Blur()
	m.inputs[fieldSubcat].Blur()
}

func (m Model) save(status model.ReviewStatus) (tea.Model, tea.Cmd) {
	item, ok := m.current()
	if !ok || m.saving {
		return m, nil
	}
	if item.Status != model.ReviewPending {
		m.lastErr = fmt.Errorf("%s is already %s", item.RecordID, item.Status)
		return m, nil
	}
	if status == model.ReviewConfirmed && item.FinalPurpose == "" && item.FinalSubcat == "" {
		m.lastErr = errors.New("set final values before confirming")
		return m, nil
	}

	m.saving = true
	index := m.cursor
	ctx, decide := m.ctx, m.decide
	return m, func() tea.Msg {
		updated, err := decide(ctx, item, status, item.FinalPurpose, item.FinalSubcat)
		if err != nil {
			return decisionFailedMsg{index: index, err: err}
		}
		return decisionSavedMsg{index: index, item: updated}
	}
}

func (m Model) current() (model.ReviewItem, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return model.ReviewItem{}, false
	}
	return m.items[m.cursor], true
}

// nextPending returns the first pending item after from, wrapping around,
// or from when none is left.
func (m Model) nextPending(from int) int {
	for step := 1; step <= len(m.items); step++ {
		i := (from + step) % len(m.items)
		if m.items[i].Status == model.ReviewPending {
			return i
		}
	}
	return from
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	t := m.theme
	var b strings.Builder

	pending := 0
	for _, it := range m.items {
		if it.Status == model.ReviewPending {
			pending++
		}
	}
	b.WriteString(t.Title.Render(fmt.Sprintf("Review · %d pending of %d", pending, len(m.items))))
	b.WriteString("\n")

	if len(m.items) == 0 {
		b.WriteString(t.Muted.Render("Nothing to review."))
		b.WriteString("\n\n" + m.help.View(m.keymap))
		return b.String()
	}

	b.WriteString(m.listView())
	b.WriteString("\n")
	b.WriteString(m.detailView())
	b.WriteString("\n")

	switch {
	case m.lastErr != nil:
		b.WriteString(t.StatusError.Render("✗ " + m.lastErr.Error()))
	case m.saving:
		b.WriteString(t.StatusPending.Render("saving…"))
	case m.message != "":
		b.WriteString(t.StatusSuccess.Render("✓ " + m.message))
	}
	b.WriteString("\n" + m.help.View(m.keymap))
	return b.String()
}

func (m Model) listView() string {
	t := m.theme
	visible := max(m.height-16, 5)
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := min(start+visible, len(m.items))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		it := m.items[i]
		line := fmt.Sprintf("%-10s %s  %s %s/%s", statusLabel(it.Status), truncate(it.Note, 20), it.Category,
			it.FinalPurpose, it.FinalSubcat)
		switch {
		case i == m.cursor:
			line = t.Selected.Render("> " + line)
		case it.Status == model.ReviewPending:
			line = t.Normal.Render("  " + line)
		default:
			line = t.Muted.Render("  " + line)
		}
		lines = append(lines, line)
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) detailView() string {
	t := m.theme
	it, _ := m.current()

	row := func(label, value string) string {
		return t.Label.Render(label) + value
	}
	rows := []string{
		row("Record", it.RecordID),
		row("Note", it.Note),
		row("Category", it.Category),
		row("Amount", it.Amount),
		row("Current", it.CurrentPurpose+" / "+it.CurrentSubcat),
		row("Rule", it.PredictedPurpose+" / "+it.PredictedSubcat),
	}
	if m.editing {
		rows = append(rows,
			row("Purpose", m.inputs[fieldPurpose].View()),
			row("Subcat", m.inputs[fieldSubcat].View()))
	} else {
		rows = append(rows, row("Final", it.FinalPurpose+" / "+it.FinalSubcat))
	}
	return t.BorderedBox.Width(max(m.width-4, 40)).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func statusLabel(s model.ReviewStatus) string {
	switch s {
	case model.ReviewConfirmed:
		return "confirmed"
	case model.ReviewIgnored:
		return "ignored"
	case model.ReviewSynced:
		return "synced"
	default:
		return "pending"
	}
}

func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
