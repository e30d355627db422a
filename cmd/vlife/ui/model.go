package ui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"vlife/internal/geom"
	"vlife/internal/runner"
	"vlife/internal/sim"
)

// FrameInterval is the viewer's frame rate.
const FrameInterval = time.Second / 60

const (
	detailsHeight = 10
	chromeHeight  = 2 // top bar and footer
)

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(FrameInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the bubbletea model of the viewer.
type Model struct {
	runner *runner.Runner
	sim    *sim.Simulator
	styles Styles
	log    *zap.Logger

	width  int
	height int

	cursor      geom.Vec2
	selected    sim.CellID
	hasSelected bool
	status      string
	err         error

	details viewport.Model
}

// New creates a viewer driving r one tick per frame.
func New(r *runner.Runner, styles Styles, log *zap.Logger) Model {
	if log == nil {
		log = zap.NewNop()
	}
	s := r.Sim()
	size := s.WorldSize()
	return Model{
		runner:  r,
		sim:     s,
		styles:  styles,
		log:     log,
		width:   80,
		height:  24,
		cursor:  geom.V(size.X/2, size.Y/2),
		details: viewport.New(80, detailsHeight),
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Err returns the error that stopped the viewer, if any.
func (m Model) Err() error { return m.err }

// Selected returns the selected cell.
func (m Model) Selected() (sim.CellID, bool) { return m.selected, m.hasSelected }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.details.Width = msg.Width
		m.details.Height = detailsHeight
		m.refreshDetails()
		return m, nil

	case tickMsg:
		if !m.runner.Paused() {
			reason, err := m.runner.Tick(context.Background())
			if err != nil {
				m.err = err
				return m, tea.Quit
			}
			if reason != "" {
				m.status = reason
				m.runner.Pause()
				m.log.Info("world stopped", zap.String("reason", reason))
			}
		}
		m.refreshDetails()
		return m, tick()

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			m.refreshDetails()
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.details, cmd = m.details.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	step := m.canvas().CharSize()
	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit, true
	case " ":
		if m.runner.Paused() {
			m.runner.Resume()
		} else {
			m.runner.Pause()
		}
	case "+", "=":
		m.runner.SetSpeed(m.runner.Speed() + 1)
	case "-", "_":
		m.runner.SetSpeed(m.runner.Speed() - 1)
	case "up":
		m.moveCursor(0, -step.Y)
	case "down":
		m.moveCursor(0, step.Y)
	case "left":
		m.moveCursor(-step.X, 0)
	case "right":
		m.moveCursor(step.X, 0)
	case "n":
		m.selectNext()
	default:
		return nil, false
	}
	return nil, true
}

func (m *Model) moveCursor(dx, dy float64) {
	size := m.sim.WorldSize()
	m.cursor = geom.V(
		max(0, min(size.X, m.cursor.X+dx)),
		max(0, min(size.Y, m.cursor.Y+dy)),
	)
	m.selected, m.hasSelected = m.sim.ClosestCell(m.cursor.X, m.cursor.Y)
}

// selectNext selects the living cell with the next larger ID, wrapping around.
func (m *Model) selectNext() {
	cells := m.sim.Cells()
	if len(cells) == 0 {
		m.hasSelected = false
		return
	}
	ids := make([]sim.CellID, len(cells))
	for i, v := range cells {
		ids[i] = v.ID
	}
	slices.Sort(ids)

	next := ids[0]
	if m.hasSelected {
		if i, _ := slices.BinarySearch(ids, m.selected+1); i < len(ids) {
			next = ids[i]
		}
	}
	m.selected, m.hasSelected = next, true
	if v, err := m.sim.CellView(next); err == nil {
		m.cursor = v.Position
	}
}

func (m *Model) refreshDetails() {
	if !m.hasSelected {
		m.details.SetContent(m.styles.Muted.Render("No cell selected. Arrows move the cursor, n selects the next cell."))
		return
	}
	v, err := m.sim.CellView(m.selected)
	if errors.Is(err, sim.ErrNotFound) {
		m.details.SetContent(m.styles.Muted.Render(fmt.Sprintf("Cell %d died.", m.selected)))
		m.hasSelected = false
		return
	}
	m.details.SetContent(v.String())
}

func (m Model) canvasSize() (int, int) {
	return max(1, m.width), max(1, m.height-chromeHeight-detailsHeight-1)
}

func (m Model) canvas() *Canvas {
	w, h := m.canvasSize()
	return Rasterize(Frame{
		World:       m.sim.WorldSize(),
		Cells:       m.sim.Cells(),
		Obstacles:   m.sim.Engine().Obstacles(),
		Selected:    m.selected,
		HasSelected: m.hasSelected,
		Cursor:      m.cursor,
	}, w, h)
}

func (m Model) topBar() string {
	state := m.styles.Badge.Render("▶ running")
	if m.runner.Paused() {
		state = m.styles.Paused.Render("⏸ paused")
	}
	st := m.sim.Stats()
	info := fmt.Sprintf(" speed %d  t=%.1fs  cells %d  births %d  deaths %d  best %.1f",
		m.runner.Speed(), st.Time, st.Population, st.Births, st.Deaths, st.BestScore)
	if m.status != "" {
		info += "  (" + m.status + ")"
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, state, m.styles.Header.Render(info))
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(m.topBar())
	sb.WriteString("\n")
	sb.WriteString(m.canvas().Render(m.styles))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Details.Width(m.width).Render(m.details.View()))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Footer.Render("space pause · +/- speed · arrows select · n next · pgup/pgdn scroll · q quit"))
	return sb.String()
}

// Run starts the viewer on the terminal and blocks until it quits.
func Run(r *runner.Runner, log *zap.Logger) error {
	final, err := tea.NewProgram(New(r, DefaultStyles(), log), tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("viewer: %w", err)
	}
	if m, ok := final.(Model); ok && m.err != nil {
		return m.err
	}
	return nil
}
