package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	pkgio "github.com/matzehuels/pivotview/pkg/io"
	"github.com/matzehuels/pivotview/pkg/pipeline"
	"github.com/matzehuels/pivotview/pkg/pivot"
	"github.com/matzehuels/pivotview/pkg/render/sink"
	"github.com/matzehuels/pivotview/pkg/session"
)

var (
	tuiDimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	tuiFieldStyle  = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	tuiStatusStyle = lipgloss.NewStyle().Foreground(colorGray)
	tuiErrorStyle  = lipgloss.NewStyle().Foreground(colorRed)
)

const tuiHelp = "↑/↓ move  ⏎ collapse  l layout  s subtotals  p percent  o sort  ←/→ page  r reload  q quit"

// =============================================================================
// PivotModel - Interactive pivot viewer
// =============================================================================

// fetchedMsg carries the result of a background payload fetch.
type fetchedMsg struct {
	payload *pkgio.Payload
	err     error
}

// PivotModel is the bubbletea model for browsing a pivot view.
//
// The model keeps one long-lived engine so that stage memoization, the
// layout choice and the pager survive between key presses. Sorting is done
// by the backend: sort changes refetch, and payload files cannot be
// re-sorted. Everything else recomputes locally.
type PivotModel struct {
	ctx     context.Context
	runner  *pipeline.Runner
	opts    pipeline.Options
	payload *pkgio.Payload

	engine *pivot.Engine
	meta   *pivot.Metadata
	cfg    pivot.Config
	view   *pivot.View

	Cursor  int
	Status  string
	Err     error
	loading bool
}

// NewPivotModel creates a viewer for payload. opts must be validated.
func NewPivotModel(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options, payload *pkgio.Payload) PivotModel {
	cfg := opts.Config()
	meta := pivot.NewMetadata()
	meta.Restore(cfg.Metadata, opts.RowFields)

	m := PivotModel{
		ctx:     ctx,
		runner:  runner,
		opts:    opts,
		payload: payload,
		engine:  pivot.NewEngine(),
		meta:    meta,
		cfg:     cfg,
	}
	m.recompute()
	return m
}

// PivotView returns the current pivot view.
func (m PivotModel) PivotView() *pivot.View { return m.view }

// Session captures the viewer state for saving under id.
func (m PivotModel) Session(id string) *session.Session {
	return session.New(id, m.opts.Source, m.cfg, m.view.Page, session.DefaultTTL)
}

// recompute runs the engine with the current config. An explicit page is
// applied once; later computations keep the pager's page.
func (m *PivotModel) recompute() {
	m.cfg.Metadata = m.meta.Snapshot()
	m.view = m.engine.Compute(m.payload.Input(), m.cfg)
	m.cfg.Page = 0
	m.Cursor = min(m.Cursor, max(len(m.view.Rows)-1, 0))
}

func (m PivotModel) Init() tea.Cmd {
	return nil
}

func (m PivotModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case fetchedMsg:
		m.loading = false
		m.opts.Refresh = false
		if msg.err != nil {
			m.Err = msg.err
			return m, nil
		}
		m.Err = nil
		m.payload = msg.payload
		m.recompute()
		m.Status = fmt.Sprintf("fetched %d row nodes", len(msg.payload.RowNodes))
		return m, nil

	case tea.KeyMsg:
		if m.loading {
			if s := msg.String(); s == "q" || s == "ctrl+c" || s == "esc" {
				return m, tea.Quit
			}
			return m, nil
		}
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m PivotModel) handleKey(key string) (tea.Model, tea.Cmd) {
	m.Status = ""
	switch key {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.Cursor > 0 {
			m.Cursor--
		}
	case "down", "j":
		if m.Cursor < len(m.view.Rows)-1 {
			m.Cursor++
		}
	case "enter", " ":
		if m.Cursor >= len(m.view.Rows) {
			return m, nil
		}
		row := m.view.Rows[m.Cursor]
		if !row.HasChildren {
			m.Status = "row has no children"
			return m, nil
		}
		m.cfg.Collapsed = m.cfg.Collapsed.Clone()
		m.cfg.Collapsed.Toggle(row.Key)
		m.recompute()
	case "l":
		next := m.view.Layout.Next()
		m.engine.SetLayout(next)
		m.cfg.Layout = next
		m.recompute()
		m.Status = "layout " + string(m.view.Layout)
	case "s":
		m.cfg.Subtotals = m.cfg.Subtotals.Next()
		m.recompute()
		m.Status = "subtotals " + string(m.cfg.Subtotals)
	case "p":
		m.cfg.Percent = m.cfg.Percent.Next()
		m.recompute()
		m.Status = "percent " + string(m.cfg.Percent)
	case "right", "n", "pgdown":
		if m.view.Page < m.view.Pages {
			m.cfg.Page = m.view.Page + 1
			m.Cursor = 0
			m.recompute()
		}
	case "left", "b", "pgup":
		if m.view.Page > 1 {
			m.cfg.Page = m.view.Page - 1
			m.Cursor = 0
			m.recompute()
		}
	case "o":
		return m.cycleSort()
	case "r":
		if !pipeline.IsRemote(m.opts.Source) {
			m.Status = "payload files are read once"
			return m, nil
		}
		m.opts.Refresh = true
		return m.refetch()
	}
	return m, nil
}

// cycleSort advances the sort of the row field at the cursor's depth and
// refetches from the backend.
func (m PivotModel) cycleSort() (tea.Model, tea.Cmd) {
	if !pipeline.IsRemote(m.opts.Source) {
		m.Status = "sorting is done by the backend; payload files keep their order"
		return m, nil
	}
	fields := m.opts.RowFields
	if len(fields) == 0 {
		m.Status = "no row fields to sort"
		return m, nil
	}
	depth := 0
	if m.Cursor < len(m.view.Rows) {
		depth = m.view.Rows[m.Cursor].Depth
	}
	field := fields[min(depth, len(fields)-1)]
	kind := m.meta.HeaderState(field).Sort.Next()
	m.meta.SetSort(field, kind, fields)
	m.opts.Sorts = m.meta.Sorts()
	m.Status = fmt.Sprintf("sort %s %s", field, kind)
	return m.refetch()
}

func (m PivotModel) refetch() (tea.Model, tea.Cmd) {
	m.loading = true
	ctx, runner, opts := m.ctx, m.runner, m.opts
	return m, func() tea.Msg {
		p, err := runner.Fetch(ctx, opts)
		return fetchedMsg{payload: p, err: err}
	}
}

func (m PivotModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.opts.Source))
	b.WriteString("\n")
	if len(m.opts.RowFields) > 0 {
		parts := make([]string, 0, len(m.opts.RowFields))
		for _, f := range m.opts.RowFields {
			parts = append(parts, tuiFieldStyle.Render(f)+m.meta.HeaderState(f).Marker())
		}
		b.WriteString(tuiDimStyle.Render("rows: ") + strings.Join(parts, tuiDimStyle.Render(" › ")))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.Write(sink.RenderText(m.view, sink.TextOptions{Footer: true, Selected: m.Cursor + 1}))

	b.WriteString("\n")
	switch {
	case m.loading:
		b.WriteString(tuiStatusStyle.Render("fetching..."))
	case m.Err != nil:
		b.WriteString(tuiErrorStyle.Render(m.Err.Error()))
	case m.Status != "":
		b.WriteString(tuiStatusStyle.Render(m.Status))
	}
	b.WriteString("\n")
	b.WriteString(tuiDimStyle.Render(tuiHelp))
	return b.String()
}
