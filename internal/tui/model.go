// Package tui renders the share workflow as an interactive terminal modal.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/blacktop/squadpost/internal/squad"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	historySize = 30
	modalWidth  = 64

	commentPlaceholder = "Share your thought and insights about the post…"
)

// HistoryLoader provides the articles offered in the selection step.
type HistoryLoader interface {
	ReadingHistory(ctx context.Context, first int) ([]squad.Post, error)
}

type historyMsg struct {
	posts []squad.Post
	err   error
}

type submittedMsg struct {
	post *squad.Post
	err  error
}

type articleItem struct {
	post squad.Post
}

func (i articleItem) Title() string       { return i.post.Title }
func (i articleItem) Description() string { return i.post.Permalink }
func (i articleItem) FilterValue() string { return i.post.Title }

// Model is the bubbletea model of one share workflow.
type Model struct {
	ctx     context.Context
	wf      *squad.Workflow
	history HistoryLoader
	toaster *Toaster

	list    list.Model
	input   textarea.Model
	spinner spinner.Model

	loading bool
	closed  bool
	hint    string
	toast   string
	err     error
	result  *squad.Post
}

// New builds the modal for wf. toaster must be the Notifier wf was opened
// with.
func New(ctx context.Context, wf *squad.Workflow, history HistoryLoader, toaster *Toaster) Model {
	l := list.New(nil, list.NewDefaultDelegate(), modalWidth, 14)
	l.Title = "Select an article from your reading history"
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	ta := textarea.New()
	ta.Placeholder = commentPlaceholder
	ta.ShowLineNumbers = false
	ta.SetWidth(modalWidth)
	ta.SetHeight(5)
	ta.SetValue(wf.Form().Snapshot().Commentary)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = titleStyle

	m := Model{
		ctx:     ctx,
		wf:      wf,
		history: history,
		toaster: toaster,
		list:    l,
		input:   ta,
		spinner: sp,
	}
	if wf.Steps().Current() == squad.WriteComment {
		m.input.Focus()
	}
	return m
}

// Commentary is the text currently in the comment box.
func (m Model) Commentary() string { return m.input.Value() }

// Result is the shared post, or nil when the modal was dismissed.
func (m Model) Result() *squad.Post { return m.result }

// Err is the last error surfaced by the workflow.
func (m Model) Err() error { return m.err }

// Init loads the reading history when the user has to pick an article.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if m.wf.Steps().Current() == squad.SelectArticle && m.history != nil {
		cmds = append(cmds, m.loadHistory())
	}
	return tea.Batch(cmds...)
}

func (m Model) loadHistory() tea.Cmd {
	ctx, history := m.ctx, m.history
	return func() tea.Msg {
		posts, err := history.ReadingHistory(ctx, historySize)
		return historyMsg{posts: posts, err: err}
	}
}

func (m Model) submit(commentary string) tea.Cmd {
	ctx, wf := m.ctx, m.wf
	return func() tea.Msg {
		post, err := wf.Submit(ctx, commentary)
		return submittedMsg{post: post, err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Nothing changes once the modal has been dismissed.
	if m.closed {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		width := min(modalWidth, max(20, msg.Width-8))
		m.list.SetSize(width, max(6, msg.Height-12))
		m.input.SetWidth(width)
		return m, nil

	case historyMsg:
		if msg.err != nil {
			m.err = msg.err
			m.toast = fmt.Sprintf("Could not load reading history: %v", msg.err)
			return m, nil
		}
		items := make([]list.Item, 0, len(msg.posts))
		for _, p := range msg.posts {
			items = append(items, articleItem{post: p})
		}
		return m, m.list.SetItems(items)

	case submittedMsg:
		return m.handleSubmitted(msg)

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m.dismiss()
		case "esc":
			if m.list.FilterState() == list.Filtering {
				break
			}
			return m.dismiss()
		}
		if m.wf.Steps().Current() == squad.SelectArticle {
			return m.updateSelect(msg)
		}
		return m.updateComment(msg)
	}

	return m, nil
}

func (m Model) dismiss() (tea.Model, tea.Cmd) {
	m.wf.Close()
	m.closed = true
	return m, tea.Quit
}

func (m Model) updateSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" && m.list.FilterState() != list.Filtering {
		item, ok := m.list.SelectedItem().(articleItem)
		if !ok {
			m.hint = squad.ArticleHint
			return m, nil
		}
		post := item.post
		if err := m.wf.SelectArticle(&post); err != nil {
			m.hint = err.Error()
			return m, nil
		}
		m.hint = ""
		return m, m.input.Focus()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateComment(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+s":
		commentary := m.input.Value()
		if m.loading {
			return m, nil
		}
		if !squad.CanSubmit(commentary, m.loading) {
			m.hint = squad.CommentHint
			return m, nil
		}
		m.hint = ""
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.submit(commentary))
	case "shift+tab":
		if _, ok := m.wf.Steps().Layout().(squad.TwoStep); ok && !m.loading {
			m.wf.Back()
			m.input.Blur()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if squad.CanSubmit(m.input.Value(), false) {
		m.hint = ""
	}
	return m, cmd
}

func (m Model) handleSubmitted(msg submittedMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if toasts := m.toaster.Drain(); len(toasts) > 0 {
		m.toast = toasts[len(toasts)-1]
	}
	if msg.err != nil {
		m.err = msg.err
		return m, nil
	}
	if msg.post == nil {
		// ignored duplicate submit
		return m, nil
	}
	m.result = msg.post
	m.closed = true
	return m, tea.Quit
}

// View renders the modal.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.wf.Steps().Title()))
	b.WriteString("\n\n")

	switch m.wf.Steps().Current() {
	case squad.SelectArticle:
		b.WriteString(m.list.View())
	case squad.WriteComment:
		b.WriteString(m.input.View())
		b.WriteString("\n")
		if preview := m.preview(); preview != "" {
			b.WriteString(previewStyle.Render(preview))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(m.footer())
	}

	if m.hint != "" {
		b.WriteString("\n" + hintStyle.Render(m.hint))
	}
	if m.toast != "" {
		b.WriteString("\n" + toastStyle.Render(m.toast))
	}
	b.WriteString("\n" + mutedStyle.Render(m.help()))

	return modalStyle.Render(b.String())
}

func (m Model) preview() string {
	form := m.wf.Form().Snapshot()
	switch {
	case form.Post != nil:
		return strings.TrimSpace(form.Post.Title + "\n" + mutedStyle.Render(form.Post.Permalink))
	case form.ExternalLink != nil:
		return strings.TrimSpace(form.ExternalLink.Title + "\n" + mutedStyle.Render(form.ExternalLink.URL))
	default:
		return ""
	}
}

func (m Model) footer() string {
	form := m.wf.Form().Snapshot()
	squadLine := lipgloss.JoinVertical(lipgloss.Left,
		form.Name,
		mutedStyle.Render("@"+form.Handle),
	)

	label := form.ActionLabel
	button := buttonStyle.Render(label)
	switch {
	case m.loading:
		button = buttonDisabledStyle.Render(m.spinner.View() + " " + label)
	case !squad.CanSubmit(m.input.Value(), false):
		button = buttonDisabledStyle.Render(label)
	}

	gap := max(1, m.input.Width()-lipgloss.Width(squadLine)-lipgloss.Width(button))
	return lipgloss.JoinHorizontal(lipgloss.Center, squadLine, strings.Repeat(" ", gap), button)
}

func (m Model) help() string {
	if m.wf.Steps().Current() == squad.SelectArticle {
		return "enter select • / filter • esc close"
	}
	if _, ok := m.wf.Steps().Layout().(squad.TwoStep); ok {
		return "ctrl+s done • shift+tab back • esc close"
	}
	return "ctrl+s done • esc close"
}
