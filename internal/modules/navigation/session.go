// README: Session runs one navigation: a single goroutine applies input events to the Tracker.
package navigation

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"saferoute/internal/types"
)

// SessionConfig wires a Session to its inputs and outputs.
type SessionConfig struct {
	ID        types.ID
	Plan      Plan
	Tracker   TrackerOptions
	Position  PositionOptions
	Heading   HeadingOptions
	Positions PositionSource
	Headings  HeadingSource
	Speaker   Speaker
	Voice     VoiceOptions
	// VoiceOff starts the session muted.
	VoiceOff bool
	// OnUpdate, when set, receives the state after every accepted position fix.
	// It runs on the session goroutine and must not block.
	OnUpdate func(types.ID, State)
	Logger   *zap.Logger
}

// Session owns one Tracker. Only the session goroutine mutates it; readers take
// a snapshot under the same lock.
type Session struct {
	id      types.ID
	cfg     SessionConfig
	logger  *zap.Logger
	speaker Speaker

	mu      sync.Mutex
	tracker *Tracker
	voice   bool
	started bool
	closed  bool
	cancel  context.CancelFunc

	done      chan struct{}
	closeOnce sync.Once
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	speaker := cfg.Speaker
	if speaker == nil {
		speaker = silentSpeaker{}
	}
	return &Session{
		id:      cfg.ID,
		cfg:     cfg,
		logger:  cfg.Logger.With(zap.String("session_id", string(cfg.ID))),
		speaker: speaker,
		tracker: NewTracker(cfg.Plan, cfg.Tracker),
		voice:   !cfg.VoiceOff,
		done:    make(chan struct{}),
	}
}

func (s *Session) ID() types.ID { return s.id }

// Start acquires the position and heading subscriptions and begins tracking.
// Either both subscriptions are held afterwards or neither is: on failure the
// one already acquired is released, the session stays idle, and the error
// wraps ErrInputUnavailable.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	if s.started {
		return ErrAlreadyStarted
	}
	if s.tracker.Status() == StatusArrived {
		s.started = true
		close(s.done)
		return nil
	}
	if s.cfg.Positions == nil || s.cfg.Headings == nil {
		return fmt.Errorf("%w: no input source configured", ErrInputUnavailable)
	}

	pos, err := s.cfg.Positions.SubscribePositions(ctx, s.cfg.Position)
	if err != nil {
		return fmt.Errorf("%w: position: %w", ErrInputUnavailable, err)
	}
	head, err := s.cfg.Headings.SubscribeHeadings(ctx, s.cfg.Heading)
	if err != nil {
		if cerr := pos.Close(); cerr != nil {
			s.logger.Warn("release position subscription", zap.Error(cerr))
		}
		return fmt.Errorf("%w: heading: %w", ErrInputUnavailable, err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.started = true
	s.tracker.Begin()

	go s.run(runCtx, pos, head)
	s.logger.Info("navigation started", zap.Int("steps", len(s.cfg.Plan.Steps)))
	return nil
}

func (s *Session) run(ctx context.Context, pos PositionSubscription, head HeadingSubscription) {
	defer close(s.done)
	defer func() {
		if err := head.Close(); err != nil {
			s.logger.Warn("release heading subscription", zap.Error(err))
		}
		if err := pos.Close(); err != nil {
			s.logger.Warn("release position subscription", zap.Error(err))
		}
	}()

	positions := pos.Positions()
	headings := head.Headings()
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-positions:
			if !ok {
				s.logger.Warn("position source ended")
				return
			}
			if s.applyPosition(p) {
				s.logger.Info("arrived")
				return
			}
		case v, ok := <-headings:
			if !ok {
				headings = nil
				continue
			}
			s.mu.Lock()
			s.tracker.OnHeading(v.X, v.Y)
			s.mu.Unlock()
		}
	}
}

// applyPosition feeds one fix to the tracker and reports whether navigation ended.
func (s *Session) applyPosition(p types.Point) bool {
	s.mu.Lock()
	upd := s.tracker.OnPosition(p)
	voice := s.voice
	s.mu.Unlock()

	if !upd.Accepted {
		return false
	}
	if upd.Advanced {
		s.logger.Debug("step advanced",
			zap.Int("step", upd.State.CurrentStep),
			zap.String("remaining", upd.State.RemainingDistance),
		)
	}
	if upd.Announcement != nil && voice {
		s.speaker.Speak(upd.Announcement.Text, s.cfg.Voice)
	}
	if s.cfg.OnUpdate != nil {
		s.cfg.OnUpdate(s.id, upd.State)
	}
	return upd.State.Status == StatusArrived
}

// SetVoice mutes or unmutes announcements. Tracking is unaffected.
func (s *Session) SetVoice(on bool) {
	s.mu.Lock()
	s.voice = on
	s.mu.Unlock()
}

func (s *Session) Voice() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voice
}

func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Snapshot()
}

// Polyline returns the route drawn for this session.
func (s *Session) Polyline() []types.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Polyline()
}

// Done is closed once the session goroutine has stopped and released its inputs.
func (s *Session) Done() <-chan struct{} { return s.done }

// Close stops tracking and waits for the inputs to be released. Safe to call
// more than once and on a session that never started.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		started := s.started
		cancel := s.cancel
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if started {
			<-s.done
		}
	})
}
