// Package ui renders the simulation dashboard.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/launch-trader/internal/logger"
	"github.com/rovshanmuradov/launch-trader/internal/trade"
)

const (
	refreshInterval = time.Second
	recentLimit     = 8
)

// Simulation is the part of the simulator the dashboard drives.
type Simulation interface {
	Start() bool
	Stop() bool
	Running() bool
	Trades() []trade.Record
}

type refreshMsg time.Time

// Model is the bubbletea model of the dashboard.
type Model struct {
	sim     Simulation
	updates <-chan tea.Msg
	now     func() time.Time

	keys  KeyMap
	help  help.Model
	table table.Model

	recent   []trade.Record
	closed   int
	realized float64

	width  int
	height int
}

// NewModel builds the dashboard. updates may be nil.
func NewModel(sim Simulation, updates <-chan tea.Msg) Model {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Base01).
		BorderBottom(true).
		Foreground(Magenta).
		Bold(true)
	styles.Selected = styles.Selected.Foreground(Base02).Background(Cyan)

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Symbol", Width: 8},
			{Title: "Mint", Width: 14},
			{Title: "Amount", Width: 8},
			{Title: "Entry", Width: 10},
			{Title: "Price", Width: 10},
			{Title: "P&L %", Width: 8},
			{Title: "TP / SL", Width: 21},
			{Title: "Held", Width: 7},
			{Title: "Status", Width: 8},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
		table.WithStyles(styles),
	)

	return Model{
		sim:     sim,
		updates: updates,
		now:     time.Now,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		table:   t,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.listen())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func (m Model) listen() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	updates := m.updates
	return func() tea.Msg {
		msg, ok := <-updates
		if !ok {
			return nil
		}
		return msg
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Toggle):
			if m.sim.Running() {
				m.sim.Stop()
			} else {
				m.sim.Start()
			}
			m.refreshRows()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		if h := msg.Height - 12 - recentLimit; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil

	case refreshMsg:
		m.refreshRows()
		return m, tick()

	case TradeOpenedMsg:
		m.refreshRows()
		return m, m.listen()

	case TradeClosedMsg:
		m.recordClose(msg.Trade)
		m.refreshRows()
		return m, m.listen()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) recordClose(rec trade.Record) {
	m.closed++
	m.realized += rec.Profit
	m.recent = append([]trade.Record{rec}, m.recent...)
	if len(m.recent) > recentLimit {
		m.recent = m.recent[:recentLimit]
	}
}

func (m *Model) refreshRows() {
	now := m.now()
	trades := m.sim.Trades()
	rows := make([]table.Row, 0, len(trades))
	for _, t := range trades {
		rows = append(rows, table.Row{
			t.Symbol,
			logger.ShortAddress(t.Mint),
			fmt.Sprintf("%.2f", t.Amount),
			fmt.Sprintf("%.6f", t.EntryPrice),
			fmt.Sprintf("%.6f", t.CurrentPrice),
			fmt.Sprintf("%+.2f", t.ProfitPercent),
			fmt.Sprintf("%.6f/%.6f", t.TakeProfitPrice, t.StopLossPrice),
			t.HoldTime(now),
			string(t.Status),
		})
	}
	m.table.SetRows(rows)
}

func (m Model) View() string {
	var b strings.Builder

	state := stoppedStyle.Render("STOPPED")
	if m.sim.Running() {
		state = runningStyle.Render("RUNNING")
	}
	header := lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render("Launch Trader · simulation"),
		" ", state, " ",
		mutedStyle.Render(fmt.Sprintf("open %d  closed %d  realized ", len(m.table.Rows()), m.closed)),
		pnl(m.realized, fmt.Sprintf("%+.6f SOL", m.realized)),
	)
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(m.table.View()))
	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Recent closes"))
	b.WriteString("\n")

	if len(m.recent) == 0 {
		b.WriteString(mutedStyle.Render("  none yet"))
		b.WriteString("\n")
	}
	for _, r := range m.recent {
		fmt.Fprintf(&b, "  %-8s %s %s %s\n",
			r.Symbol,
			reasonStyle.Render(fmt.Sprintf("%-11s", r.CloseReason)),
			pnl(r.Profit, fmt.Sprintf("%+.2f%%", r.ProfitPercent)),
			mutedStyle.Render(r.HoldTime(r.ClosedAt)),
		)
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
