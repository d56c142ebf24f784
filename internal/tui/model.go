// Package tui provides the Bubble Tea bedtime screen.
package tui

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/betterrest/internal/estimator"
	"github.com/verte-zerg/betterrest/internal/model"
	"github.com/verte-zerg/betterrest/internal/timefmt"
)

type field int

const (
	fieldWake field = iota
	fieldSleep
	fieldCoffee
	fieldCount
)

const (
	defaultContentWidth = 44
	maxContentWidth     = 60
)

// Model implements the Bubble Tea bedtime UI. It owns the three inputs and
// re-runs the estimator whenever one of them changes.
type Model struct {
	est      *estimator.Estimator
	defaults model.Inputs
	day      time.Time

	inputs model.Inputs
	focus  field
	result model.BedtimeResult

	keys keyMap
	help help.Model

	width  int
	height int
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#32ADE6")).
			Align(lipgloss.Center)
	rowStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C8C8C8"))
	focusedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	resultStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0")).Padding(1, 0).Align(lipgloss.Center)
	failureStyle = resultStyle.Foreground(lipgloss.Color("#FF4D4F"))
)

// NewModel constructs the bedtime screen. Wake times are anchored to the
// calendar day of now.
func NewModel(est *estimator.Estimator, defaults model.Inputs, now time.Time) *Model {
	m := &Model{
		est:      est,
		defaults: defaults,
		day:      now,
		inputs:   defaults,
		keys:     defaultKeyMap(),
		help:     help.New(),
	}
	m.recompute()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.ToggleAll):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Next):
			m.focus = (m.focus + 1) % fieldCount
		case key.Matches(msg, m.keys.Prev):
			m.focus = (m.focus + fieldCount - 1) % fieldCount
		case key.Matches(msg, m.keys.HourUp):
			m.shiftWake(60)
		case key.Matches(msg, m.keys.HourDown):
			m.shiftWake(-60)
		case key.Matches(msg, m.keys.Increase):
			m.adjust(1)
		case key.Matches(msg, m.keys.Decrease):
			m.adjust(-1)
		case key.Matches(msg, m.keys.Reset):
			m.inputs = m.defaults
			m.recompute()
		}
		return m, nil
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	width := m.contentWidth()
	sections := []string{
		titleStyle.Render("BetterRest"),
		"",
		m.renderSection(width, "When do you want to wake up?", fieldWake, "Set the time", m.est.Clock().Format(m.wakeUp())),
		m.renderSection(width, "Desired amount of sleep", fieldSleep, "Amount", timefmt.FormatHours(m.inputs.SleepAmount)),
		m.renderSection(width, "Daily coffee intake", fieldCoffee, "Number of cups", strconv.Itoa(m.inputs.CoffeeAmount)),
		sectionStyle.Width(width).Render("Your ideal bed time is"),
		m.renderResult(width),
		m.help.View(m.keys),
	}
	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	if m.width == 0 || m.height == 0 {
		return content
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

// Inputs returns the current input values.
func (m *Model) Inputs() model.Inputs {
	return m.inputs
}

// Result returns the most recent estimate.
func (m *Model) Result() model.BedtimeResult {
	return m.result
}

func (m *Model) adjust(dir int) {
	switch m.focus {
	case fieldWake:
		m.shiftWake(dir)
		return
	case fieldSleep:
		m.inputs.SleepAmount = clampSleep(m.inputs.SleepAmount + float64(dir)*model.SleepStep)
	case fieldCoffee:
		m.inputs.CoffeeAmount = clampCoffee(m.inputs.CoffeeAmount + dir)
	}
	m.recompute()
}

func (m *Model) shiftWake(minutes int) {
	m.inputs.WakeUp = m.inputs.WakeUp.Add(minutes)
	m.recompute()
}

func (m *Model) recompute() {
	m.result = m.est.Estimate(m.wakeUp(), m.inputs.SleepAmount, m.inputs.CoffeeAmount)
}

func (m *Model) wakeUp() time.Time {
	return m.inputs.WakeUp.On(m.day)
}

func (m *Model) contentWidth() int {
	if m.width <= 0 {
		return defaultContentWidth
	}
	return max(1, min(m.width-4, maxContentWidth))
}

func (m *Model) renderSection(width int, title string, f field, label, value string) string {
	header := sectionStyle.Width(width).Render(title)
	style := rowStyle
	marker := "  "
	if m.focus == f {
		style = focusedStyle
		marker = "▸ "
	}
	left := marker + label
	gap := width - lipgloss.Width(left) - lipgloss.Width(value)
	if gap < 1 {
		gap = 1
	}
	row := style.Render(left + strings.Repeat(" ", gap) + value)
	return header + "\n" + row + "\n"
}

func (m *Model) renderResult(width int) string {
	width = max(width, lipgloss.Width(m.result.Text))
	if !m.result.OK {
		return failureStyle.Width(width).Render(m.result.Text)
	}
	return resultStyle.Width(width).Render(m.result.Text)
}

func clampSleep(v float64) float64 {
	v = math.Round(v/model.SleepStep) * model.SleepStep
	return math.Max(model.MinSleepAmount, math.Min(v, model.MaxSleepAmount))
}

func clampCoffee(v int) int {
	return max(model.MinCoffeeAmount, min(v, model.MaxCoffeeAmount))
}
