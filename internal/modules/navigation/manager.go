// README: Manager keeps the live navigation sessions, one push Feed per session.
package navigation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"saferoute/internal/types"
)

// SpeakerFactory builds the speech sink for a session. deviceToken may be empty.
type SpeakerFactory func(deviceToken string) Speaker

type ManagerConfig struct {
	Tracker  TrackerOptions
	Position PositionOptions
	Heading  HeadingOptions
	Voice    VoiceOptions
	Speakers SpeakerFactory
	OnUpdate func(types.ID, State)
	// Now drives the feed throttle gates; nil means time.Now.
	Now    func() time.Time
	Logger *zap.Logger
}

// StartParams describes a navigation the client wants to begin.
type StartParams struct {
	Plan        Plan
	DeviceToken string
	Owner       string
	VoiceOff    bool
	// What the device reported about its sensors when the session was opened.
	LocationDenied bool
	CompassMissing bool
}

// Started is returned to the client so it can configure its own sensors.
type Started struct {
	ID       types.ID        `json:"id"`
	State    State           `json:"state"`
	Polyline []types.Point   `json:"polyline"`
	Position PositionOptions `json:"position_options"`
	Heading  HeadingOptions  `json:"heading_options"`
}

type managedSession struct {
	session *Session
	feed    *Feed
	owner   string
}

type Manager struct {
	cfg    ManagerConfig
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[types.ID]*managedSession
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Manager{
		cfg:      cfg,
		logger:   cfg.Logger,
		sessions: make(map[types.ID]*managedSession),
	}
}

// Start opens a session and begins tracking. On ErrInputUnavailable nothing is kept.
func (m *Manager) Start(ctx context.Context, p StartParams) (*Started, error) {
	id := types.ID(uuid.NewString())
	feed := NewFeed(FeedOptions{
		Now:                 m.cfg.Now,
		PositionsDenied:     p.LocationDenied,
		HeadingsUnavailable: p.CompassMissing,
	})

	var speaker Speaker
	if m.cfg.Speakers != nil {
		speaker = m.cfg.Speakers(p.DeviceToken)
	}

	s := NewSession(SessionConfig{
		ID:        id,
		Plan:      p.Plan,
		Tracker:   m.cfg.Tracker,
		Position:  m.cfg.Position,
		Heading:   m.cfg.Heading,
		Positions: feed,
		Headings:  feed,
		Speaker:   speaker,
		Voice:     m.cfg.Voice,
		VoiceOff:  p.VoiceOff,
		OnUpdate:  m.cfg.OnUpdate,
		Logger:    m.logger,
	})
	if err := s.Start(ctx); err != nil {
		feed.Close()
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = &managedSession{session: s, feed: feed, owner: p.Owner}
	m.mu.Unlock()

	return &Started{
		ID:       id,
		State:    s.Snapshot(),
		Polyline: s.Polyline(),
		Position: m.cfg.Position,
		Heading:  m.cfg.Heading,
	}, nil
}

func (m *Manager) lookup(id types.ID, owner string) (*managedSession, error) {
	m.mu.RLock()
	ms, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || ms.owner != owner {
		return nil, ErrSessionNotFound
	}
	return ms, nil
}

func (m *Manager) Get(id types.ID, owner string) (State, error) {
	ms, err := m.lookup(id, owner)
	if err != nil {
		return State{}, err
	}
	return ms.session.Snapshot(), nil
}

// PushPosition queues a fix for the session. It reports false when the fix was
// throttled or the session is no longer tracking.
func (m *Manager) PushPosition(id types.ID, owner string, p types.Point) (bool, error) {
	if !p.Valid() {
		return false, ErrBadRequest
	}
	ms, err := m.lookup(id, owner)
	if err != nil {
		return false, err
	}
	return ms.feed.PushPosition(p), nil
}

func (m *Manager) PushHeading(id types.ID, owner string, sample HeadingSample) (bool, error) {
	ms, err := m.lookup(id, owner)
	if err != nil {
		return false, err
	}
	return ms.feed.PushHeading(sample), nil
}

func (m *Manager) SetVoice(id types.ID, owner string, on bool) error {
	ms, err := m.lookup(id, owner)
	if err != nil {
		return err
	}
	ms.session.SetVoice(on)
	return nil
}

// End stops the session and forgets it.
func (m *Manager) End(id types.ID, owner string) (State, error) {
	ms, err := m.lookup(id, owner)
	if err != nil {
		return State{}, err
	}
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	ms.session.Close()
	ms.feed.Close()
	return ms.session.Snapshot(), nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close ends every live session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[types.ID]*managedSession)
	m.mu.Unlock()

	for _, ms := range sessions {
		ms.session.Close()
		ms.feed.Close()
	}
	m.logger.Info("navigation sessions closed", zap.Int("count", len(sessions)))
}
