package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/spotsim/internal/dynamo"
	"github.com/san-kum/spotsim/internal/env"
	"github.com/san-kum/spotsim/internal/physics"
	"github.com/san-kum/spotsim/internal/policy"
)

const (
	canvasWidth     = 56
	canvasHeight    = 16
	historyCapacity = 240
)

type TickMsg time.Time

// Model steps an Env with a Policy once per tick.
type Model struct {
	env     *env.Env
	policy  policy.Policy
	canvas  *Canvas
	seed    int64
	fps     int
	obs     env.Observation
	last    env.StepResult
	started bool
	running bool
	episode int
	ret     float64
	rewards []float64
	returns []float64
	params  []string
	active  int
	err     error
}

func NewModel(e *env.Env, p policy.Policy, seed int64, fps int) *Model {
	if fps <= 0 {
		fps = 30
	}
	m := &Model{
		env:     e,
		policy:  p,
		canvas:  NewCanvas(canvasWidth, canvasHeight),
		seed:    seed,
		fps:     fps,
		running: true,
		rewards: make([]float64, 0, historyCapacity),
	}
	if c, ok := p.(dynamo.Configurable); ok {
		for k := range c.GetParams() {
			m.params = append(m.params, k)
		}
		sort.Strings(m.params)
	}
	return m
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m *Model) Init() tea.Cmd {
	m.reset()
	return m.tick()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "s":
			if !m.running {
				m.step()
			}
		case "r":
			m.reset()
		case "tab":
			if len(m.params) > 0 {
				m.active = (m.active + 1) % len(m.params)
			}
		case "up", "k":
			m.adjust(1.05)
		case "down", "j":
			m.adjust(0.95)
		}
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) adjust(factor float64) {
	c, ok := m.policy.(dynamo.Configurable)
	if !ok || len(m.params) == 0 {
		return
	}
	key := m.params[m.active]
	if err := c.SetParam(key, c.GetParams()[key]*factor); err != nil {
		m.err = err
	}
}

// reset starts a new episode seeded from the model seed and episode count.
func (m *Model) reset() {
	seed := m.seed + int64(m.episode)
	obs, info, err := m.env.Reset(env.ResetOptions{Seed: &seed})
	if err != nil {
		m.err = err
		m.running = false
		return
	}
	m.policy.Reset()
	if s, ok := m.policy.(policy.Seeder); ok {
		s.Seed(seed)
	}
	m.obs = obs
	m.last = env.StepResult{Observation: obs, Info: info}
	m.started = true
	m.ret = 0
	m.rewards = m.rewards[:0]
	drawRobot(m.canvas, m.env.Reading())
}

func (m *Model) step() {
	if !m.started {
		m.reset()
		if !m.started {
			return
		}
	}
	t := float64(m.env.StepIndex()) * m.env.Config().Dt
	res, err := m.env.Step(m.policy.Act(m.obs, t))
	if err != nil {
		m.err = err
		m.running = false
		return
	}
	m.obs = res.Observation
	m.last = res
	m.ret += res.Reward
	m.rewards = append(m.rewards, res.Reward)
	if len(m.rewards) > historyCapacity {
		m.rewards = m.rewards[1:]
	}
	drawRobot(m.canvas, m.env.Reading())

	if res.Terminated || res.Truncated {
		m.returns = append(m.returns, m.ret)
		m.episode++
		m.reset()
	}
}

func (m *Model) Episode() int         { return m.episode }
func (m *Model) Running() bool        { return m.running }
func (m *Model) Last() env.StepResult { return m.last }
func (m *Model) Err() error           { return m.err }

func (m *Model) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("SPOTSIM WATCH") + "\n")

	status := runningStyle.Render("RUNNING")
	if !m.running {
		status = pausedStyle.Render("PAUSED")
	}
	if m.err != nil {
		status = failStyle.Render("ERROR: " + m.err.Error())
	}
	s.WriteString(status + "\n\n")

	info := m.last.Info
	r := m.env.Reading()
	s.WriteString(row("Episode", fmt.Sprintf("%d", m.episode)))
	s.WriteString(row("Step", fmt.Sprintf("%d", info.StepIndex)))
	s.WriteString(row("State", info.Status.String()))
	s.WriteString(row("Command", m.env.Command().String()))
	s.WriteString(row("Return", fmt.Sprintf("%.2f", m.ret)))
	if r.Pose.Finite() {
		roll, pitch, _ := physics.EulerFromQuaternion(r.Pose.Orientation)
		s.WriteString(row("Height", fmt.Sprintf("%.3f m", r.Pose.Position.Z)))
		s.WriteString(row("Roll/Pitch", fmt.Sprintf("%+.2f %+.2f", roll, pitch)))
		s.WriteString(row("Forward", fmt.Sprintf("%+.2f m/s", r.Velocity.Linear.X)))
	}

	s.WriteString("\nREWARD TERMS\n")
	terms := info.Terms
	for _, t := range []struct {
		name string
		v    float64
	}{
		{"alive", terms.Alive},
		{"velocity", terms.Velocity},
		{"orientation", terms.Orientation},
		{"energy", terms.Energy},
		{"height", terms.HeightBand},
	} {
		s.WriteString(labelStyle.Render(t.name) + signedBar(t.v, 1, 8) + " " + valueStyle.Render(fmtSigned(t.v)) + "\n")
	}

	if len(m.params) > 0 {
		s.WriteString("\nPOLICY\n")
		vals := m.policy.(dynamo.Configurable).GetParams()
		for i, k := range m.params {
			line := fmt.Sprintf("%-10s %.3f", k, vals[k])
			if i == m.active {
				s.WriteString(activeStyle.Render("> "+line) + "\n")
			} else {
				s.WriteString("  " + labelStyle.Render(line) + "\n")
			}
		}
	}
	s.WriteString(helpStyle.Render("SP:Pause S:Step R:Reset Q:Quit\nTab:Param ↑↓:Tune"))

	left := canvasStyle.Render(m.canvas.String())
	if len(m.rewards) > 1 {
		chart := asciigraph.Plot(m.rewards, asciigraph.Height(5), asciigraph.Width(canvasWidth-8), asciigraph.Caption("reward"))
		left = lipgloss.JoinVertical(lipgloss.Left, left, graphStyle.Render(chart))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, statsStyle.Render(s.String()))
}

// Run starts the program on the alternate screen.
func Run(m *Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
