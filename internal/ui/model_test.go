package ui

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/0xlemi/timpletune/internal/audio"
	"github.com/0xlemi/timpletune/internal/audio/mock"
	"github.com/0xlemi/timpletune/internal/pitch"
	"github.com/0xlemi/timpletune/internal/tuning"
	tea "github.com/charmbracelet/bubbletea"
)

// fakeController records calls made by the UI.
type fakeController struct {
	mu       sync.Mutex
	state    tuning.State
	pinned   *tuning.ReferenceString
	noise    tuning.NoiseConfig
	startErr error
	starts   int
	stops    int
}

func newFakeController() *fakeController {
	return &fakeController{noise: tuning.DefaultNoiseConfig()}
}

func (c *fakeController) Start(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.starts++
	if c.startErr != nil {
		return c.startErr
	}
	c.state = tuning.StateRunning
	return nil
}

func (c *fakeController) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	c.state = tuning.StateIdle
	return nil
}

func (c *fakeController) State() tuning.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *fakeController) Pin(id string) error {
	s, ok := tuning.Timple.Lookup(id)
	if !ok {
		return tuning.ErrUnknownString
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned = &s
	return nil
}

func (c *fakeController) Unpin() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pinned = nil
}

func (c *fakeController) Target() (tuning.ReferenceString, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pinned == nil {
		return tuning.ReferenceString{}, false
	}
	return *c.pinned, true
}

func (c *fakeController) Catalog() tuning.Catalog { return tuning.Timple }

func (c *fakeController) NoiseConfig() tuning.NoiseConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.noise
}

func (c *fakeController) SetNoiseConfig(cfg tuning.NoiseConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.noise = cfg
	return nil
}

type fakeTones struct{ played []float64 }

func (f *fakeTones) Play(hz float64) error {
	f.played = append(f.played, hz)
	return nil
}

func (f *fakeTones) Playing() (float64, bool) {
	if len(f.played) == 0 {
		return 0, false
	}
	return f.played[len(f.played)-1], true
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return model, cmd
}

func fptr(v float64) *float64 { return &v }

func TestModel_SelectStringPins(t *testing.T) {
	t.Parallel()

	ctrl := newFakeController()
	m := NewModel(context.Background(), ctrl, nil, false)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if target, ok := ctrl.Target(); !ok || target.ID != "string-2" {
		t.Errorf("after right: target %v, %v", target.ID, ok)
	}

	// Wraps around to the last string.
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if target, _ := ctrl.Target(); target.ID != "string-5" {
		t.Errorf("after wrapping left: target %s", target.ID)
	}

	m, _ = update(t, m, runeKey('a'))
	if _, ok := ctrl.Target(); ok || m.pinned {
		t.Error("a did not unpin")
	}
}

func TestModel_NewModelFollowsPinnedTarget(t *testing.T) {
	t.Parallel()

	ctrl := newFakeController()
	_ = ctrl.Pin("string-3")
	m := NewModel(context.Background(), ctrl, nil, true)

	if !m.pinned || m.selected != 2 || !m.advancer.Enabled {
		t.Errorf("NewModel: pinned %v selected %d advance %v", m.pinned, m.selected, m.advancer.Enabled)
	}
}

func TestModel_AutoAdvance(t *testing.T) {
	t.Parallel()

	ctrl := newFakeController()
	ctrl.state = tuning.StateRunning
	_ = ctrl.Pin("string-1")
	m := NewModel(context.Background(), ctrl, nil, true)

	g4 := tuning.Timple.At(0)
	m, _ = update(t, m, ReadingMsg{Status: tuning.StatusFlat, Frequency: fptr(380), CentsOff: fptr(-53), Matched: &g4})
	if target, _ := ctrl.Target(); target.ID != "string-1" {
		t.Fatalf("advanced while flat: %s", target.ID)
	}

	m, _ = update(t, m, ReadingMsg{Status: tuning.StatusInTune, Frequency: fptr(392), CentsOff: fptr(0), Matched: &g4})
	if target, _ := ctrl.Target(); target.ID != "string-2" || m.selected != 1 {
		t.Errorf("after in tune: target %s, selected %d", target.ID, m.selected)
	}
}

func TestModel_AutoModeFollowsMatch(t *testing.T) {
	t.Parallel()

	ctrl := newFakeController()
	ctrl.state = tuning.StateRunning
	m := NewModel(context.Background(), ctrl, nil, false)

	a3 := tuning.Timple.At(3)
	m, _ = update(t, m, ReadingMsg{Status: tuning.StatusSharp, Frequency: fptr(225), CentsOff: fptr(39), Matched: &a3})
	if m.selected != 3 {
		t.Errorf("selected: got %d, want 3", m.selected)
	}
	if _, ok := ctrl.Target(); ok {
		t.Error("auto mode pinned a string")
	}
}

func TestModel_ThresholdKeys(t *testing.T) {
	t.Parallel()

	ctrl := newFakeController()
	m := NewModel(context.Background(), ctrl, nil, false)

	m, _ = update(t, m, runeKey('+'))
	m, _ = update(t, m, runeKey('['))
	want := tuning.NoiseConfig{MinVolumeThreshold: 0.15, MinConfidenceThreshold: 0.65}
	if got := ctrl.NoiseConfig(); got != want {
		t.Errorf("noise: got %+v, want %+v", got, want)
	}

	for range 30 {
		m, _ = update(t, m, runeKey('-'))
	}
	if got := ctrl.NoiseConfig().MinVolumeThreshold; got != 0 {
		t.Errorf("volume threshold floor: got %f", got)
	}
	if m.noise != ctrl.NoiseConfig() {
		t.Errorf("displayed gates %+v differ from session %+v", m.noise, ctrl.NoiseConfig())
	}
}

func TestModel_ToggleSession(t *testing.T) {
	t.Parallel()

	ctrl := newFakeController()
	m := NewModel(context.Background(), ctrl, nil, false)

	m, cmd := update(t, m, runeKey(' '))
	if cmd == nil {
		t.Fatal("space returned no command")
	}
	m, _ = update(t, m, cmd())
	if !m.running || ctrl.starts != 1 {
		t.Fatalf("after start: running %v, starts %d", m.running, ctrl.starts)
	}

	m, _ = update(t, m, ReadingMsg{Status: tuning.StatusAwaiting})
	m, cmd = update(t, m, runeKey(' '))
	m, _ = update(t, m, cmd())
	if m.running || ctrl.stops != 1 || m.reading != nil {
		t.Errorf("after stop: running %v, stops %d, reading %v", m.running, ctrl.stops, m.reading)
	}
}

func TestModel_SessionStartedBeforeProgram(t *testing.T) {
	t.Parallel()

	src := &mock.Source{}
	session, err := tuning.NewSession(src, tuning.Timple, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	ctx := context.Background()
	m := NewModel(ctx, session, nil, false)
	if err := session.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = session.Stop() })

	if m.Init() == nil {
		t.Fatal("Init returned no command")
	}
	m, _ = update(t, m, m.syncSession()())
	if !m.running {
		t.Fatal("model still idle after the session started")
	}

	readings := make(chan tuning.Reading, 1)
	session.Subscribe(func(r tuning.Reading) { readings <- r })

	const sampleRate = 44100
	samples := make([]float32, 2048)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*392*float64(i)/sampleRate))
	}
	src.Emit(audio.Frame{Samples: samples, SampleRate: sampleRate})

	m, _ = update(t, m, ReadingMsg(<-readings))
	if m.reading == nil || m.reading.Frequency == nil {
		t.Fatalf("reading dropped: %+v", m.reading)
	}
	if v := m.View(); strings.Contains(v, "Stopped") {
		t.Errorf("running session shown as stopped: %q", v)
	}
}

func TestModel_SyncSessionIdle(t *testing.T) {
	t.Parallel()

	ctrl := newFakeController()
	ctrl.state = tuning.StateRunning
	m := NewModel(context.Background(), ctrl, nil, false)
	_ = ctrl.Stop()

	m, _ = update(t, m, m.syncSession()())
	if m.running {
		t.Error("model running after the session stopped")
	}
}

func TestModel_StartFailureIsShown(t *testing.T) {
	t.Parallel()

	ctrl := newFakeController()
	ctrl.startErr = errors.New("no input device")
	m := NewModel(context.Background(), ctrl, nil, false)

	_, cmd := update(t, m, runeKey(' '))
	m, _ = update(t, m, cmd())
	if m.running {
		t.Error("running after failed start")
	}
	if !strings.Contains(m.View(), "no input device") {
		t.Error("view does not show the start error")
	}
}

func TestModel_PlayTone(t *testing.T) {
	t.Parallel()

	ctrl := newFakeController()
	tones := &fakeTones{}
	m := NewModel(context.Background(), ctrl, tones, false)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	update(t, m, runeKey('p'))
	if len(tones.played) != 1 || tones.played[0] != tuning.Timple.At(1).FrequencyHz {
		t.Errorf("played: %v", tones.played)
	}
	if v := m.View(); !strings.Contains(v, "Playing C4 (261.63 Hz)") {
		t.Errorf("view does not name the tone: %q", v)
	}
}

func TestModel_NeedleIgnoresNonDirectional(t *testing.T) {
	t.Parallel()

	ctrl := newFakeController()
	ctrl.state = tuning.StateRunning
	m := NewModel(context.Background(), ctrl, nil, false)

	m, _ = update(t, m, ReadingMsg{Status: tuning.StatusNoisy, Frequency: fptr(300), Confidence: 0.6, Volume: 0.05})
	if got := m.needleTarget(); got != 0 {
		t.Errorf("noisy reading: needle target %v, want 0", got)
	}

	m, _ = update(t, m, ReadingMsg{Status: tuning.StatusFlat, Frequency: fptr(290), CentsOff: fptr(-21.7)})
	if got := m.needleTarget(); got != -21.7 {
		t.Errorf("flat reading: needle target %v, want -21.7", got)
	}
}

func TestModel_View(t *testing.T) {
	t.Parallel()

	ctrl := newFakeController()
	ctrl.state = tuning.StateRunning
	m := NewModel(context.Background(), ctrl, nil, false)

	if v := m.View(); !strings.Contains(v, "Listening") {
		t.Errorf("empty view: %q", v)
	}

	a3 := tuning.Timple.At(3)
	m, _ = update(t, m, ReadingMsg{
		Status:     tuning.StatusSharp,
		Frequency:  fptr(225),
		CentsOff:   fptr(38.9),
		Matched:    &a3,
		Confidence: 1,
		Volume:     0.35,
	})
	v := m.View()
	for _, want := range []string{"225.00 Hz", "+38.9", "A3", "Too high"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestModel_TickMovesNeedle(t *testing.T) {
	t.Parallel()

	ctrl := newFakeController()
	ctrl.state = tuning.StateRunning
	m := NewModel(context.Background(), ctrl, nil, false)

	m, _ = update(t, m, ReadingMsg{Status: tuning.StatusFlat, Frequency: fptr(210), CentsOff: fptr(-20)})
	m, cmd := update(t, m, TickMsg{})
	if cmd == nil {
		t.Error("tick not rescheduled")
	}
	if m.needle.Position >= 0 {
		t.Errorf("needle did not move towards -20: %+v", m.needle)
	}
}

func TestRenderMeter(t *testing.T) {
	t.Parallel()

	if got := renderMeter(0, 5); !strings.Contains(got, "──█──") {
		t.Errorf("centred needle: %q", got)
	}
	if got := renderMeter(-50, 5); !strings.Contains(got, "█─┼──") {
		t.Errorf("left needle: %q", got)
	}
	if got := renderMeter(200, 5); !strings.Contains(got, "──┼─█") {
		t.Errorf("clamped needle: %q", got)
	}
}

func TestRenderLevel(t *testing.T) {
	t.Parallel()

	if got := renderLevel(0.5, 1, 10); got != "█████░░░░|" {
		t.Errorf("renderLevel: %q", got)
	}
}

func TestRenderNote(t *testing.T) {
	t.Parallel()

	if got := renderNote(pitch.Note{Name: "G", Octave: 4}); !strings.Contains(got, "G4") {
		t.Errorf("natural note: %q", got)
	}
	sharp := renderNote(pitch.Note{Name: "C#", Octave: 4})
	if !strings.Contains(sharp, "C") || !strings.Contains(sharp, "#4") {
		t.Errorf("sharp note: %q", sharp)
	}
	if got := nextNatural("B"); got != "C" {
		t.Errorf("nextNatural(B) = %s", got)
	}
}
