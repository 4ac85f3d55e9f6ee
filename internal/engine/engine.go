// Package engine runs a game session: it issues direction commands, polls
// the latest orientation against the baseline and resolves each round as a
// success or a timeout.
package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/gyrocall/internal/classify"
	"github.com/verte-zerg/gyrocall/internal/cue"
	"github.com/verte-zerg/gyrocall/internal/generator"
	"github.com/verte-zerg/gyrocall/internal/model"
	"github.com/verte-zerg/gyrocall/internal/phrases"
	"github.com/verte-zerg/gyrocall/internal/result"
)

// State is the session phase.
type State int

const (
	StateIdle State = iota
	StateAwaitingMatch
	StateResolving
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingMatch:
		return "awaiting"
	case StateResolving:
		return "resolving"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Feedback is the flag shown while a round settles.
type Feedback int

const (
	FeedbackNone Feedback = iota
	FeedbackCorrect
	FeedbackWrong
)

// Sampler supplies the latest orientation sample.
type Sampler interface {
	Latest() (model.OrientationSample, bool)
}

// Matcher decides whether a sample satisfies a direction.
type Matcher interface {
	Matches(baseline, current model.OrientationSample, target model.Direction) bool
}

// Picker draws round targets.
type Picker interface {
	Next() model.Direction
}

// Listener observes round transitions. Calls happen on the session goroutine.
type Listener interface {
	RoundStarted(round int, target model.Direction)
	RoundResolved(round int, outcome model.RoundOutcome)
	Finished(res model.SessionResult)
}

// Options configures a Session. Only Sampler is required.
type Options struct {
	Config   model.SessionConfig
	Baseline model.OrientationSample
	Sampler  Sampler
	Matcher  Matcher
	Picker   Picker
	Clock    clockwork.Clock
	Cue      cue.Output
	Phrases  *phrases.Pack
	Listener Listener
	Logger   zerolog.Logger
}

// Snapshot is an immutable view of the session for rendering.
type Snapshot struct {
	SessionID     string
	State         State
	Round         int // zero-based index of the current round
	TotalRounds   int
	Target        model.Direction
	HasTarget     bool
	Remaining     time.Duration
	RoundDuration time.Duration
	Feedback      Feedback
	CorrectCount  int
	Completed     int
	Result        *model.SessionResult
}

type pendingKind int

const (
	pendingNone pendingKind = iota
	pendingLeadIn
	pendingSettle
)

// Session is one run of TotalRounds rounds against a fixed baseline.
//
// Start, Tick, Teardown and timer handling must all happen on one
// goroutine; Run provides that loop. Snapshot is safe from any goroutine.
type Session struct {
	id       string
	cfg      model.SessionConfig
	baseline model.OrientationSample
	sampler  Sampler
	matcher  Matcher
	picker   Picker
	clock    clockwork.Clock
	cue      cue.Output
	phrases  *phrases.Pack
	listener Listener
	log      zerolog.Logger

	alive     bool
	state     State
	round     int
	target    model.Direction
	startedAt time.Time
	remaining time.Duration
	feedback  Feedback
	history   []model.RoundOutcome
	result    *model.SessionResult

	pending     clockwork.Timer
	pendingKind pendingKind

	snap atomic.Pointer[Snapshot]
}

// New validates opts and returns an idle session.
func New(opts Options) (*Session, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Sampler == nil {
		return nil, fmt.Errorf("sampler is required")
	}
	if opts.Matcher == nil {
		opts.Matcher = classify.New(classify.DefaultConfig())
	}
	if opts.Picker == nil {
		opts.Picker = generator.New()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Cue == nil {
		opts.Cue = cue.Nop{}
	}
	id := uuid.NewString()
	s := &Session{
		id:        id,
		cfg:       opts.Config,
		baseline:  opts.Baseline,
		sampler:   opts.Sampler,
		matcher:   opts.Matcher,
		picker:    opts.Picker,
		clock:     opts.Clock,
		cue:       opts.Cue,
		phrases:   opts.Phrases,
		listener:  opts.Listener,
		log:       opts.Logger.With().Str("session_id", id).Logger(),
		alive:     true,
		remaining: opts.Config.RoundDuration(),
		history:   make([]model.RoundOutcome, 0, opts.Config.TotalRounds),
	}
	s.publish()
	return s, nil
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// Snapshot returns the latest published view.
func (s *Session) Snapshot() Snapshot {
	return *s.snap.Load()
}

// Result returns the summary once the session has finished.
func (s *Session) Result() (model.SessionResult, bool) {
	if s.result == nil {
		return model.SessionResult{}, false
	}
	return *s.result, true
}

// Run drives the session until it finishes or ctx is cancelled. It returns
// nil on completion and ctx's error on cancellation. The session is torn
// down on return either way.
func (s *Session) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.cfg.FrameInterval)
	defer ticker.Stop()
	defer s.Teardown()

	s.Start()
	for {
		if s.state == StateFinished {
			return nil
		}
		if !s.alive {
			return fmt.Errorf("session torn down")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.pendingChan():
			s.fire()
		case <-ticker.Chan():
			s.Tick()
		}
	}
}

// Start plays the start tone and schedules the first round after the
// lead-in. It does nothing unless the session is idle.
func (s *Session) Start() {
	if !s.alive || s.state != StateIdle {
		return
	}
	s.log.Info().
		Int("rounds", s.cfg.TotalRounds).
		Float64("seconds_per_round", s.cfg.SecondsPerRound).
		Msg("session started")
	s.play(cue.ToneStart)
	if s.cfg.LeadIn > 0 {
		s.schedule(pendingLeadIn, s.cfg.LeadIn)
		s.publish()
		return
	}
	s.beginRound()
}

// Tick is one polling step. A match wins over a timeout that falls due on
// the same tick.
func (s *Session) Tick() {
	if !s.alive || s.state != StateAwaitingMatch {
		return
	}
	limit := s.cfg.RoundDuration()
	elapsed := s.clock.Since(s.startedAt)
	s.remaining = limit - elapsed
	if s.remaining < 0 {
		s.remaining = 0
	}

	if current, ok := s.sampler.Latest(); ok && s.matcher.Matches(s.baseline, current, s.target) {
		s.resolve(true, elapsed)
		return
	}
	if elapsed >= limit {
		s.resolve(false, limit)
		return
	}
	s.publish()
}

// Teardown stops the pending timer and disables every later callback.
func (s *Session) Teardown() {
	if !s.alive {
		return
	}
	s.alive = false
	s.cancelPending()
	s.log.Debug().Stringer("state", s.state).Int("completed", len(s.history)).Msg("session torn down")
}

func (s *Session) beginRound() {
	s.state = StateAwaitingMatch
	s.target = s.picker.Next()
	s.startedAt = s.clock.Now()
	s.remaining = s.cfg.RoundDuration()
	s.feedback = FeedbackNone
	s.say(s.command(s.target))
	s.log.Debug().Int("round", s.round).Stringer("target", s.target).Msg("round started")
	if s.listener != nil {
		s.listener.RoundStarted(s.round, s.target)
	}
	s.publish()
}

// resolve concludes the current round. Only the first call per round has
// any effect.
func (s *Session) resolve(success bool, elapsed time.Duration) bool {
	if !s.alive || s.state != StateAwaitingMatch {
		return false
	}
	s.state = StateResolving
	outcome := model.RoundOutcome{Direction: s.target, Success: success, Elapsed: elapsed}
	s.history = append(s.history, outcome)
	if success {
		s.feedback = FeedbackCorrect
		s.play(cue.ToneCorrect)
	} else {
		s.feedback = FeedbackWrong
		s.remaining = 0
		s.play(cue.ToneWrong)
	}
	s.log.Debug().
		Int("round", s.round).
		Stringer("target", s.target).
		Bool("success", success).
		Dur("elapsed", elapsed).
		Msg("round resolved")
	if s.listener != nil {
		s.listener.RoundResolved(s.round, outcome)
	}
	s.schedule(pendingSettle, s.cfg.Settle)
	s.publish()
	return true
}

func (s *Session) afterSettle() {
	if !s.alive || s.state != StateResolving {
		return
	}
	if len(s.history) >= s.cfg.TotalRounds {
		s.finish()
		return
	}
	s.round++
	s.beginRound()
}

func (s *Session) finish() {
	s.state = StateFinished
	s.feedback = FeedbackNone
	res := result.Aggregate(s.history)
	s.result = &res
	s.log.Info().
		Int("correct", res.CorrectCount).
		Int("total", res.TotalCount).
		Msg("session finished")
	if s.listener != nil {
		s.listener.Finished(res)
	}
	s.publish()
}

func (s *Session) command(d model.Direction) string {
	if s.phrases == nil {
		return d.String()
	}
	return s.phrases.Command(d)
}

func (s *Session) publish() {
	snap := &Snapshot{
		SessionID:     s.id,
		State:         s.state,
		Round:         s.round,
		TotalRounds:   s.cfg.TotalRounds,
		Target:        s.target,
		HasTarget:     s.state == StateAwaitingMatch || s.state == StateResolving,
		Remaining:     s.remaining,
		RoundDuration: s.cfg.RoundDuration(),
		Feedback:      s.feedback,
		Completed:     len(s.history),
		Result:        s.result,
	}
	for _, o := range s.history {
		if o.Success {
			snap.CorrectCount++
		}
	}
	s.snap.Store(snap)
}

func (s *Session) say(text string) {
	s.bestEffort("say", func() error { return s.cue.Say(text) })
}

func (s *Session) play(t cue.Tone) {
	s.bestEffort("play "+t.String(), func() error { return s.cue.Play(t) })
}

// bestEffort keeps audio failures away from game progress.
func (s *Session) bestEffort(op string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn().Str("op", op).Interface("panic", r).Msg("cue output panicked")
		}
	}()
	if err := fn(); err != nil {
		s.log.Warn().Str("op", op).Err(err).Msg("cue output failed")
	}
}
