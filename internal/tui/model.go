// Package tui provides the Bubble Tea game interface.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/gyrocall/internal/calibrate"
	"github.com/verte-zerg/gyrocall/internal/classify"
	"github.com/verte-zerg/gyrocall/internal/cue"
	"github.com/verte-zerg/gyrocall/internal/engine"
	"github.com/verte-zerg/gyrocall/internal/model"
	"github.com/verte-zerg/gyrocall/internal/phrases"
	"github.com/verte-zerg/gyrocall/internal/sensor"
)

type phase int

const (
	phaseCalibrate phase = iota
	phasePlaying
	phaseResult
)

const minFrame = 16 * time.Millisecond

// Presence reports whether a remote sensor is attached.
type Presence interface {
	Connected() bool
}

// Options wires the screens to the sensor, session settings and cues.
type Options struct {
	Config     model.SessionConfig
	Sampler    *sensor.Sampler
	Capability sensor.Capability
	// Classifier judges rounds and labels the live pose on the play screen.
	Classifier *classify.Classifier
	Picker     engine.Picker
	Clock      clockwork.Clock
	Cue        cue.Output
	Pack       *phrases.Pack
	// Hint is shown on the calibration screen, e.g. the phone URL.
	Hint string
	// Phone is nil unless readings come from the phone gateway.
	Phone  Presence
	Logger zerolog.Logger
}

type permissionMsg struct {
	perm model.Permission
	err  error
}

type frameMsg time.Time

type sessionDoneMsg struct {
	id  string
	err error
}

// Model implements the Bubble Tea game UI.
type Model struct {
	opts Options
	ctx  context.Context
	log  zerolog.Logger

	width  int
	height int

	phase      phase
	step       *calibrate.Step
	permission model.Permission
	querying   bool
	notice     string
	live       model.OrientationSample
	haveLive   bool
	connected  bool
	cueReady   bool

	session *engine.Session
	cancel  context.CancelFunc
	snap    engine.Snapshot

	result  model.SessionResult
	history table.Model
	bar     progress.Model
}

// NewModel constructs the game model. ctx bounds the permission query and
// every session; cancelling it tears the running session down.
func NewModel(ctx context.Context, opts Options) *Model {
	if opts.Capability == nil {
		opts.Capability = sensor.Available{}
	}
	if opts.Cue == nil {
		opts.Cue = cue.Nop{}
	}
	if opts.Classifier == nil {
		opts.Classifier = classify.New(classify.DefaultConfig())
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Config.FrameInterval < minFrame {
		opts.Config.FrameInterval = minFrame
	}
	return &Model{
		opts:  opts,
		ctx:   ctx,
		log:   opts.Logger,
		phase: phaseCalibrate,
		step:  calibrate.New(opts.Sampler, opts.Capability),
		bar:   progress.New(progress.WithSolidFill("#C89A3A"), progress.WithoutPercentage()),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	m.querying = true
	return tea.Batch(m.queryPermission(m.step.Resolve), m.frame())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = barWidth(m.width)
		return m, nil
	case permissionMsg:
		m.querying = false
		m.permission = msg.perm
		if msg.err != nil {
			m.notice = msg.err.Error()
			m.log.Warn().Err(msg.err).Msg("permission query failed")
		} else {
			m.notice = ""
		}
		return m, nil
	case frameMsg:
		m.refresh()
		return m, m.frame()
	case sessionDoneMsg:
		return m.handleSessionDone(msg), nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.stopSession()
		return m, tea.Quit
	}
	switch m.phase {
	case phaseCalibrate:
		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		case "r":
			if m.permission != model.PermissionDenied || m.querying {
				return m, nil
			}
			m.querying = true
			m.notice = ""
			return m, m.queryPermission(m.step.Retry)
		case "enter", " ":
			return m, m.confirm()
		}
	case phasePlaying:
		if msg.String() == "esc" || msg.String() == "q" {
			m.stopSession()
			return m, m.recalibrate()
		}
	case phaseResult:
		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		case "enter", " ", "p":
			return m, m.startSession()
		case "c":
			return m, m.recalibrate()
		default:
			var cmd tea.Cmd
			m.history, cmd = m.history.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *Model) queryPermission(fn func(context.Context) (model.Permission, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		p, err := fn(ctx)
		return permissionMsg{perm: p, err: err}
	}
}

func (m *Model) frame() tea.Cmd {
	return tea.Tick(m.opts.Config.FrameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m *Model) refresh() {
	switch m.phase {
	case phaseCalibrate:
		m.permission = m.step.Permission()
		m.live, m.haveLive = m.step.Live()
		if m.opts.Phone != nil {
			m.connected = m.opts.Phone.Connected()
		}
	case phasePlaying:
		if m.session != nil {
			m.snap = m.session.Snapshot()
		}
		m.live, m.haveLive = m.opts.Sampler.Latest()
	}
}

func (m *Model) confirm() tea.Cmd {
	baseline, err := m.step.Confirm()
	if err != nil {
		m.notice = confirmNotice(err)
		return nil
	}
	m.log.Info().
		Float64("alpha", baseline.Alpha).
		Float64("beta", baseline.Beta).
		Float64("gamma", baseline.Gamma).
		Msg("baseline captured")
	if !m.cueReady {
		// Speech may only start after a user gesture on some outputs.
		if err := m.opts.Cue.Init(m.ctx); err != nil {
			m.log.Warn().Err(err).Msg("cue output unavailable")
		}
		m.cueReady = true
	}
	return m.startSession()
}

func confirmNotice(err error) string {
	switch {
	case errors.Is(err, calibrate.ErrNoSample):
		return "waiting for the first orientation sample"
	case errors.Is(err, calibrate.ErrPermissionDenied):
		return "sensor access denied, press r to retry"
	case errors.Is(err, calibrate.ErrPermissionPending):
		return "waiting for sensor permission"
	default:
		return err.Error()
	}
}

func (m *Model) startSession() tea.Cmd {
	baseline, ok := m.step.Baseline()
	if !ok {
		m.notice = "calibrate before playing"
		return nil
	}
	session, err := engine.New(engine.Options{
		Config:   m.opts.Config,
		Baseline: baseline,
		Sampler:  m.opts.Sampler,
		Matcher:  m.opts.Classifier,
		Picker:   m.opts.Picker,
		Clock:    m.opts.Clock,
		Cue:      m.opts.Cue,
		Phrases:  m.opts.Pack,
		Logger:   m.log,
	})
	if err != nil {
		m.notice = err.Error()
		return nil
	}
	ctx, cancel := context.WithCancel(m.ctx)
	m.session = session
	m.cancel = cancel
	m.snap = session.Snapshot()
	m.phase = phasePlaying
	m.notice = ""
	id := session.ID()
	return func() tea.Msg {
		return sessionDoneMsg{id: id, err: session.Run(ctx)}
	}
}

func (m *Model) handleSessionDone(msg sessionDoneMsg) *Model {
	if m.session == nil || m.session.ID() != msg.id {
		return m
	}
	if msg.err != nil {
		if !errors.Is(msg.err, context.Canceled) {
			m.log.Error().Err(msg.err).Str("session_id", msg.id).Msg("session stopped")
		}
		return m
	}
	res, ok := m.session.Result()
	if !ok {
		return m
	}
	m.stopSession()
	m.result = res
	m.history = buildHistoryTable(res, m.opts.Pack, m.width, m.height)
	m.phase = phaseResult
	return m
}

func (m *Model) stopSession() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Model) recalibrate() tea.Cmd {
	m.session = nil
	m.snap = engine.Snapshot{}
	m.haveLive = false
	m.phase = phaseCalibrate
	m.step = calibrate.New(m.opts.Sampler, m.opts.Capability)
	m.permission = model.PermissionPending
	m.notice = ""
	m.querying = true
	return m.queryPermission(m.step.Resolve)
}

// Close releases the cue output. Call it after the program exits.
func (m *Model) Close() error {
	m.stopSession()
	if !m.cueReady {
		return nil
	}
	return m.opts.Cue.Close()
}

func barWidth(total int) int {
	w := total / 2
	if w < 10 {
		w = 10
	}
	if w > 60 {
		w = 60
	}
	return w
}
