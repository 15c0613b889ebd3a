package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/mpmsim/internal/particle"
	"github.com/san-kum/mpmsim/internal/solver"
	"github.com/san-kum/mpmsim/internal/tensor"
)

const (
	barWidth        = 40
	historyCapacity = 300
	canvasWidth     = 40
	canvasHeight    = 12
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	canvasStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// ProgressMsg carries the state of the run after a step.
type ProgressMsg struct {
	Step          int
	Time          float64
	KineticEnergy float64
	TotalMass     float64
	MaxSpeed      float64
	Coords        []tensor.Vec
}

// DoneMsg ends the program once the run returns.
type DoneMsg struct {
	Result *solver.Result
	Err    error
}

// Model is the bubbletea model of a running simulation.
type Model struct {
	name   string
	total  int
	lo, hi tensor.Vec
	cancel context.CancelFunc
	start  time.Time

	last    ProgressMsg
	energy  []float64
	canvas  *Canvas
	done    bool
	aborted bool
	result  *solver.Result
	err     error
}

func NewModel(name string, total int, lo, hi tensor.Vec, cancel context.CancelFunc) Model {
	return Model{
		name:   name,
		total:  total,
		lo:     lo,
		hi:     hi,
		cancel: cancel,
		start:  time.Now(),
		energy: make([]float64, 0, historyCapacity),
		canvas: NewCanvas(canvasWidth, canvasHeight),
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.aborted = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case ProgressMsg:
		m.last = msg
		m.energy = append(m.energy, msg.KineticEnergy)
		if len(m.energy) > historyCapacity {
			m.energy = m.energy[1:]
		}
		if msg.Coords != nil {
			m.canvas.Clear()
			m.canvas.Plot(msg.Coords, m.lo, m.hi)
		}
	case DoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) fraction() float64 {
	if m.total <= 0 {
		return 1
	}
	f := float64(m.last.Step) / float64(m.total)
	if f > 1 {
		f = 1
	}
	return f
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render(strings.ToUpper(m.name)) + "\n")

	filled := int(m.fraction() * barWidth)
	bar := "[" + barStyle.Render(strings.Repeat("=", filled)) + strings.Repeat("-", barWidth-filled) + "]"
	s.WriteString(fmt.Sprintf("%s %3.0f%%\n\n", bar, 100*m.fraction()))

	s.WriteString(canvasStyle.Render(m.canvas.String()) + "\n")

	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy, asciigraph.Height(6), asciigraph.Width(50), asciigraph.Caption("kinetic energy"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Step", fmt.Sprintf("%d / %d", m.last.Step, m.total))
	row("Time", fmt.Sprintf("%.4gs", m.last.Time))
	row("Kinetic", fmt.Sprintf("%.4g J", m.last.KineticEnergy))
	row("Mass", fmt.Sprintf("%.6g kg", m.last.TotalMass))
	row("Max speed", fmt.Sprintf("%.4g m/s", m.last.MaxSpeed))
	row("Wall", time.Since(m.start).Round(time.Millisecond).String())

	switch {
	case m.err != nil:
		s.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	case m.done:
		s.WriteString("\ndone\n")
	default:
		s.WriteString(helpStyle.Render("q: abort") + "\n")
	}
	return s.String()
}

// Reporter is a solver observer that forwards a progress message every
// `every` steps and after the last one.
type Reporter struct {
	send  func(tea.Msg)
	every int
	total int
}

func NewReporter(send func(tea.Msg), every, total int) *Reporter {
	if every < 1 {
		every = 1
	}
	return &Reporter{send: send, every: every, total: total}
}

func (r *Reporter) OnStep(step int, t float64, points *particle.Set) {
	if step%r.every != 0 && step != r.total {
		return
	}
	coords := make([]tensor.Vec, points.Len())
	for i := range coords {
		coords[i] = points.At(i).Coord
	}
	r.send(ProgressMsg{
		Step:          step,
		Time:          t,
		KineticEnergy: points.KineticEnergy(),
		TotalMass:     points.TotalMass(),
		MaxSpeed:      points.MaxSpeed(),
		Coords:        coords,
	})
}

// RunFunc performs a run, registering obs with the solver.
type RunFunc func(ctx context.Context, obs solver.Observer) (*solver.Result, error)

// Run drives run under a live progress view. Quitting the view cancels the
// run and waits for it to return.
func Run(ctx context.Context, name string, total int, lo, hi tensor.Vec, run RunFunc) (*solver.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(name, total, lo, hi, cancel))
	reporter := NewReporter(p.Send, total/historyCapacity, total)

	type outcome struct {
		result *solver.Result
		err    error
	}
	finished := make(chan outcome, 1)
	go func() {
		result, err := run(ctx, reporter)
		finished <- outcome{result, err}
		p.Send(DoneMsg{Result: result, Err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-finished
		return nil, err
	}
	cancel()
	out := <-finished
	return out.result, out.err
}
