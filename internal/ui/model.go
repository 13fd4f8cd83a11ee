package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/0xlemi/timpletune/internal/pitch"
	"github.com/0xlemi/timpletune/internal/tuning"
	tea "github.com/charmbracelet/bubbletea"
)

// Constants for UI behavior
const (
	// Animation frame period of the needle
	tickInterval = 33 * time.Millisecond

	// Step applied by the threshold keys
	thresholdStep = 0.05

	meterWidth = 41
	levelWidth = 30
)

// Controller is the tuning session as seen by the UI
type Controller interface {
	Start(ctx context.Context) error
	Stop() error
	State() tuning.State
	Pin(id string) error
	Unpin()
	Target() (tuning.ReferenceString, bool)
	Catalog() tuning.Catalog
	NoiseConfig() tuning.NoiseConfig
	SetNoiseConfig(cfg tuning.NoiseConfig) error
}

// TonePlayer plays reference tones
type TonePlayer interface {
	Play(frequency float64) error
	Playing() (float64, bool)
}

// TickMsg represents a timer tick
type TickMsg time.Time

// ReadingMsg delivers a reading published by the session
type ReadingMsg tuning.Reading

// NoiseConfigMsg reports noise gates changed outside the UI, e.g. by a
// config reload
type NoiseConfigMsg tuning.NoiseConfig

// sessionMsg reports the outcome of starting or stopping the session
type sessionMsg struct {
	running bool
	err     error
}

// Model represents the UI state
type Model struct {
	ctx   context.Context
	ctrl  Controller
	tones TonePlayer // nil disables reference tones

	catalog  tuning.Catalog
	selected int  // Index of the highlighted string
	pinned   bool // Selected string is the explicit target
	advancer tuning.Advancer

	running bool
	reading *tuning.Reading
	needle  Needle
	noise   tuning.NoiseConfig

	message string // Last error or notice
	width   int
	height  int
}

// NewModel creates a UI for ctrl. tones may be nil.
func NewModel(ctx context.Context, ctrl Controller, tones TonePlayer, autoAdvance bool) Model {
	m := Model{
		ctx:      ctx,
		ctrl:     ctrl,
		tones:    tones,
		catalog:  ctrl.Catalog(),
		advancer: tuning.Advancer{Enabled: autoAdvance},
		running:  ctrl.State() == tuning.StateRunning,
		noise:    ctrl.NoiseConfig(),
	}
	if target, ok := ctrl.Target(); ok {
		m.selected = max(0, m.catalog.Index(target.ID))
		m.pinned = true
	}
	return m
}

// Init initializes the UI model. The session may have been started between
// NewModel and the program start, so its state is read again here.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.syncSession())
}

// syncSession reports the session's current state without changing it
func (m Model) syncSession() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return sessionMsg{running: ctrl.State() == tuning.StateRunning}
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Update updates the UI model based on messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		m.needle = StepNeedle(m.needle, m.needleTarget())
		return m, tick()

	case ReadingMsg:
		if !m.running {
			return m, nil
		}
		reading := tuning.Reading(msg)
		m.reading = &reading
		m.observe(reading)

	case NoiseConfigMsg:
		m.noise = tuning.NoiseConfig(msg)

	case sessionMsg:
		m.running = msg.running
		if msg.err != nil {
			m.message = msg.err.Error()
		} else {
			m.message = ""
		}
		if !m.running {
			m.reading = nil
		}
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case " ", "space":
		return m, m.toggleSession()

	case "left", "h":
		m.selectString(m.selected - 1)

	case "right", "l":
		m.selectString(m.selected + 1)

	case "a":
		m.ctrl.Unpin()
		m.pinned = false
		m.advancer.Reset()

	case "t":
		m.advancer.Enabled = !m.advancer.Enabled
		if m.advancer.Enabled && !m.pinned {
			m.selectString(m.selected)
		}

	case "p":
		if m.tones == nil {
			m.message = "reference tones unavailable"
			break
		}
		s := m.catalog.At(m.selected)
		if err := m.tones.Play(s.FrequencyHz); err != nil {
			m.message = err.Error()
		}

	case "+", "=":
		m.adjustNoise(thresholdStep, 0)
	case "-":
		m.adjustNoise(-thresholdStep, 0)
	case "]":
		m.adjustNoise(0, thresholdStep)
	case "[":
		m.adjustNoise(0, -thresholdStep)
	}

	return m, nil
}

// toggleSession starts or stops the session off the UI goroutine, since
// opening the device may block.
func (m Model) toggleSession() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	if m.running {
		return func() tea.Msg {
			return sessionMsg{running: false, err: ctrl.Stop()}
		}
	}
	return func() tea.Msg {
		err := ctrl.Start(ctx)
		return sessionMsg{running: err == nil, err: err}
	}
}

// selectString highlights and pins the i-th string, wrapping around
func (m *Model) selectString(i int) {
	n := m.catalog.Len()
	i = ((i % n) + n) % n

	s := m.catalog.At(i)
	if err := m.ctrl.Pin(s.ID); err != nil {
		m.message = err.Error()
		return
	}
	m.selected = i
	m.pinned = true
	m.advancer.Reset()
}

// observe follows the matched string in auto mode and advances the pinned
// string when it has been brought in tune.
func (m *Model) observe(r tuning.Reading) {
	if !m.pinned {
		if r.Matched != nil {
			m.selected = max(0, m.catalog.Index(r.Matched.ID))
		}
		return
	}

	current := m.catalog.At(m.selected).ID
	if next, ok := m.advancer.Observe(r.Status, current, m.catalog); ok {
		if err := m.ctrl.Pin(next.ID); err != nil {
			m.message = err.Error()
			return
		}
		m.selected = m.catalog.Index(next.ID)
		m.advancer.Reset()
	}
}

func (m *Model) adjustNoise(volume, confidence float64) {
	cfg := m.ctrl.NoiseConfig()
	cfg.MinVolumeThreshold = roundStep(max(0, min(1, cfg.MinVolumeThreshold+volume)))
	cfg.MinConfidenceThreshold = roundStep(max(0, min(1, cfg.MinConfidenceThreshold+confidence)))
	if err := m.ctrl.SetNoiseConfig(cfg); err != nil {
		m.message = err.Error()
		return
	}
	m.noise = cfg
}

// roundStep removes float drift from repeated threshold steps
func roundStep(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

// needleTarget is where the needle is heading: the offset of a directional
// reading, otherwise the centre.
func (m Model) needleTarget() float64 {
	if m.reading == nil || !m.reading.Directional() {
		return 0
	}
	return *m.reading.CentsOff
}

// View renders the UI
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Timpletune - String Tuner"))
	b.WriteString("\n")
	b.WriteString(m.viewStrings())
	b.WriteString("\n\n")

	switch {
	case !m.running:
		b.WriteString(infoStyle.Render("Stopped. Press space to listen."))
	case m.reading == nil || m.reading.Frequency == nil:
		b.WriteString(infoStyle.Render("Listening for audio..."))
	default:
		b.WriteString(m.viewReading(*m.reading))
	}
	b.WriteString("\n\n")

	b.WriteString(m.viewQuality())
	b.WriteString("\n\n")

	if tone := m.viewTone(); tone != "" {
		b.WriteString(tone + "\n")
	}
	if m.message != "" {
		b.WriteString(renderStatus(tuning.StatusNoisy) + " " + infoStyle.Render(m.message) + "\n")
	}
	b.WriteString(helpStyle.Render("←/→ string  a auto  t auto-advance  p tone  space start/stop  +/- volume  [/] confidence  q quit"))

	return b.String()
}

func (m Model) viewStrings() string {
	var parts []string
	for i, s := range m.catalog.Strings() {
		style := stringStyle
		if i == m.selected {
			style = selectedStringStyle
		}
		parts = append(parts, style.Render(s.Note))
	}

	mode := "auto"
	if m.pinned {
		mode = "pinned"
	}
	if m.advancer.Enabled {
		mode += ", auto-advance"
	}
	return strings.Join(parts, " ") + "  " + helpStyle.Render("("+mode+")")
}

func (m Model) viewReading(r tuning.Reading) string {
	var b strings.Builder

	note := pitch.NoteFor(*r.Frequency)
	b.WriteString(renderNote(note))
	b.WriteString("\n")

	info := fmt.Sprintf("Frequency: %.2f Hz", *r.Frequency)
	if r.Matched != nil {
		info += fmt.Sprintf(" | Target: %s %.2f Hz", r.Matched.Note, r.Matched.FrequencyHz)
	}
	if r.CentsOff != nil {
		info += fmt.Sprintf(" | Cents: %+.1f", *r.CentsOff)
	}
	b.WriteString(infoStyle.Render(info))
	b.WriteString("\n\n")

	b.WriteString(renderMeter(m.needle.Position, meterWidth))
	b.WriteString("\n")
	b.WriteString(renderStatus(r.Status))
	return b.String()
}

// viewTone names the reference tone currently sounding, if any
func (m Model) viewTone() string {
	if m.tones == nil {
		return ""
	}
	hz, ok := m.tones.Playing()
	if !ok {
		return ""
	}
	return infoStyle.Render(fmt.Sprintf("Playing %s (%.2f Hz)", pitch.NoteFor(hz), hz))
}

func (m Model) viewQuality() string {
	volume, confidence := 0.0, 0.0
	if m.reading != nil {
		volume, confidence = m.reading.Volume, m.reading.Confidence
	}

	return infoStyle.Render(fmt.Sprintf("Volume     %s %6.1f dB  min %.2f\nConfidence %s %6.2f     min %.2f",
		renderLevel(volume, m.noise.MinVolumeThreshold, levelWidth), pitch.Decibels(volume), m.noise.MinVolumeThreshold,
		renderLevel(confidence, m.noise.MinConfidenceThreshold, levelWidth), confidence, m.noise.MinConfidenceThreshold,
	))
}
