package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/crowdsim/internal/dynamo"
)

const (
	width           = 80
	height          = 24
	historyCapacity = 600
	maxStepsPerTick = 64
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(45)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model steps a scene on every tick and draws agents and walls on a braille
// canvas, with crowd statistics in a sidebar.
type Model struct {
	name          string
	scene         *dynamo.Scene
	initial       *dynamo.Scene
	field         dynamo.ForceField
	stepper       dynamo.Stepper
	t, dt         float64
	stepsPerTick  int
	arrivalRadius float64
	width, height int
	canvas        *Canvas
	view          viewport
	running       bool
	speedHistory  []float64
	history       []dynamo.Frame
	playHead      int
	err           error
	showHelp      bool
}

// viewport maps world coordinates onto canvas sub-pixels with one scale for
// both axes. World y points up, canvas y points down.
type viewport struct {
	minX, minY, scale float64
	ch                int
}

func newViewport(scene *dynamo.Scene, cw, ch int) viewport {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	grow := func(p dynamo.Vec2, pad float64) {
		minX, maxX = math.Min(minX, p.X-pad), math.Max(maxX, p.X+pad)
		minY, maxY = math.Min(minY, p.Y-pad), math.Max(maxY, p.Y+pad)
	}
	for _, a := range scene.Agents {
		grow(a.Position, a.Radius)
		grow(a.Goal, 0)
	}
	for _, w := range scene.Walls {
		grow(w.A, 0)
		grow(w.B, 0)
	}

	rangeX, rangeY := math.Max(maxX-minX, 1), math.Max(maxY-minY, 1)
	minX -= rangeX * 0.05
	minY -= rangeY * 0.05
	rangeX *= 1.1
	rangeY *= 1.1

	scale := math.Min(float64(cw-1)/rangeX, float64(ch-1)/rangeY)
	return viewport{minX: minX, minY: minY, scale: scale, ch: ch}
}

func (v viewport) project(p dynamo.Vec2) (int, int) {
	x := (p.X - v.minX) * v.scale
	y := float64(v.ch-1) - (p.Y-v.minY)*v.scale
	return int(math.Round(x)), int(math.Round(y))
}

// NewModel takes ownership of scene; reset restores a copy taken here.
func NewModel(name string, scene *dynamo.Scene, field dynamo.ForceField, stepper dynamo.Stepper, dt, arrivalRadius float64) Model {
	return Model{
		name:          name,
		scene:         scene,
		initial:       scene.Clone(),
		field:         field,
		stepper:       stepper,
		dt:            dt,
		stepsPerTick:  1,
		arrivalRadius: arrivalRadius,
		width:         width,
		height:        height,
		canvas:        NewCanvas(width, height),
		view:          newViewport(scene, width*2, height*4),
		running:       true,
		speedHistory:  make([]float64, 0, historyCapacity),
		history:       make([]dynamo.Frame, 0, historyCapacity),
		playHead:      -1,
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and steps the simulation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "+", "=":
			m.stepsPerTick = min(m.stepsPerTick*2, maxStepsPerTick)
		case "-", "_":
			m.stepsPerTick = max(m.stepsPerTick/2, 1)
		case "?":
			m.showHelp = !m.showHelp
		case "t":
			names := ThemeNames()
			for i, name := range names {
				if name == CurrentTheme.Name {
					SetTheme(names[(i+1)%len(names)])
					break
				}
			}
		}
	case TickMsg:
		if m.running {
			if m.playHead == -1 {
				m.step()
			} else {
				m.playHead++
				if m.playHead >= len(m.history) {
					m.playHead = -1
				}
			}
		}
		return m, tick()
	}
	return m, nil
}

// step advances the scene by stepsPerTick integrator steps. A failing step
// pauses the model and keeps the error for display.
func (m *Model) step() {
	if m.err != nil {
		return
	}
	for i := 0; i < m.stepsPerTick; i++ {
		if err := m.stepper.Step(m.field, m.scene.Agents, m.scene.Walls, m.dt); err != nil {
			m.err = err
			m.running = false
			return
		}
		m.t += m.dt
	}

	frame := m.scene.Snapshot(m.t)
	m.speedHistory = append(m.speedHistory, frame.MeanSpeed())
	if len(m.speedHistory) > historyCapacity {
		m.speedHistory = m.speedHistory[1:]
	}
	m.history = append(m.history, frame)
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
}

// scrub changes the playback position in history.
func (m *Model) scrub(dir int) {
	if m.playHead == -1 {
		if len(m.history) == 0 {
			return
		}
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

// reset restores the initial scene.
func (m *Model) reset() {
	m.scene = m.initial.Clone()
	m.t = 0
	m.err = nil
	m.speedHistory = m.speedHistory[:0]
	m.history = m.history[:0]
	m.playHead = -1
}

// current is the frame on screen: the replayed one while scrubbing,
// otherwise the live scene.
func (m *Model) current() dynamo.Frame {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		return m.history[m.playHead]
	}
	return m.scene.Snapshot(m.t)
}

func (m *Model) draw(frame dynamo.Frame) {
	m.canvas.Clear()
	for _, w := range m.scene.Walls {
		x0, y0 := m.view.project(w.A)
		x1, y1 := m.view.project(w.B)
		m.canvas.DrawLine(x0, y0, x1, y1)
	}
	for i, a := range frame.Agents {
		x, y := m.view.project(a.Position)
		r := int(math.Round(m.scene.Agents[i].Radius * m.view.scale))
		m.canvas.DrawCircle(x, y, r)
	}
}

func (m *Model) arrived(frame dynamo.Frame) float64 {
	if len(frame.Agents) == 0 {
		return 0
	}
	n := 0
	for i, a := range frame.Agents {
		if a.Position.Dist(m.scene.Agents[i].Goal) <= m.arrivalRadius {
			n++
		}
	}
	return float64(n) / float64(len(frame.Agents))
}

// View renders the TUI interface.
func (m Model) View() string {
	frame := m.current()
	m.draw(frame)
	canvasView := canvasStyle.Foreground(CurrentTheme.Primary).Render(m.canvas.String())

	status := StatusRunning.Render("RUNNING")
	switch {
	case m.err != nil:
		status = StatusError.Render("FAILED")
	case m.playHead != -1:
		status = StatusPaused.Render(fmt.Sprintf("REPLAY (%.1fs)", frame.Time-m.t))
	case !m.running:
		status = StatusPaused.Render("PAUSED")
	}

	header := lipgloss.NewStyle().Bold(true).Foreground(CurrentTheme.Secondary).MarginBottom(1)
	var s strings.Builder
	s.WriteString(header.Render(strings.ToUpper(m.name)) + "\n")
	s.WriteString(status + "\n\n")
	if len(m.speedHistory) > 1 {
		chart := asciigraph.Plot(m.speedHistory, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Mean speed"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}
	s.WriteString(labelStyle.Render("Time") + valueStyle.Render(fmt.Sprintf("%.2fs", frame.Time)) + "\n")
	s.WriteString(labelStyle.Render("Agents") + valueStyle.Render(fmt.Sprintf("%d", len(frame.Agents))) + "\n")
	s.WriteString(labelStyle.Render("Walls") + valueStyle.Render(fmt.Sprintf("%d", len(m.scene.Walls))) + "\n")
	s.WriteString(labelStyle.Render("Speed") + valueStyle.Render(fmt.Sprintf("%.3f m/s", frame.MeanSpeed())) + "\n")
	s.WriteString(labelStyle.Render("Steps/tick") + valueStyle.Render(fmt.Sprintf("%d", m.stepsPerTick)) + "\n")
	arrived := m.arrived(frame)
	s.WriteString(labelStyle.Render("Arrived") + ArrivalBar(arrived, 16) + valueStyle.Render(fmt.Sprintf(" %3.0f%%", arrived*100)) + "\n")
	if m.err != nil {
		s.WriteString("\n" + StatusError.Render(m.err.Error()) + "\n")
	}
	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Reset Q:Quit\n+/-:Speed T:Theme ?:Help\n[ ]:Time-Travel"))
	statsView := statsStyle.Render(s.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
	if m.showHelp {
		return `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume simulation  ║
║  R        - Reset simulation         ║
║  Q        - Quit                     ║
║  + / -    - More/fewer steps a tick  ║
║  [        - Rewind (time travel)     ║
║  ]        - Forward (time travel)    ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}
