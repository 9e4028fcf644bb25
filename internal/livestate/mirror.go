// README: Mirrors live navigation state into Firebase RTDB so companion apps can follow a walk.
package livestate

import (
	"context"
	"sync"
	"time"

	"firebase.google.com/go/v4/db"
	"go.uber.org/zap"

	"saferoute/internal/modules/navigation"
	"saferoute/internal/types"
)

const sessionsNode = "navigation_sessions"

// Writer stores a value at a database path.
type Writer interface {
	Set(ctx context.Context, path string, v interface{}) error
}

// RTDBWriter writes through the Firebase realtime database client.
type RTDBWriter struct {
	client *db.Client
}

func NewRTDBWriter(client *db.Client) *RTDBWriter {
	return &RTDBWriter{client: client}
}

func (w *RTDBWriter) Set(ctx context.Context, path string, v interface{}) error {
	return w.client.NewRef(path).Set(ctx, v)
}

// entry mirrors one session under /navigation_sessions/{id}.
type entry struct {
	Status      string  `json:"status"`
	Step        int     `json:"step"`
	StepCount   int     `json:"step_count"`
	Instruction string  `json:"instruction"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Heading     float64 `json:"heading"`
	Remaining   string  `json:"remaining"`
	ETA         string  `json:"eta"`
	Timestamp   int64   `json:"timestamp"`
}

// Mirror coalesces session updates and writes only the latest state per
// session. Publish never blocks the navigation goroutine.
type Mirror struct {
	writer Writer
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	pending map[types.ID]navigation.State
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

func NewMirror(writer Writer, logger *zap.Logger) *Mirror {
	m := &Mirror{
		writer:  writer,
		logger:  logger,
		now:     time.Now,
		pending: make(map[types.ID]navigation.State),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go m.run()
	return m
}

// Publish has the navigation.ManagerConfig.OnUpdate signature.
func (m *Mirror) Publish(id types.ID, st navigation.State) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.pending[id] = st
	select {
	case m.wake <- struct{}{}:
	default:
	}
	m.mu.Unlock()
}

func (m *Mirror) run() {
	defer close(m.done)
	for range m.wake {
		m.flush()
	}
}

func (m *Mirror) flush() {
	m.mu.Lock()
	batch := m.pending
	m.pending = make(map[types.ID]navigation.State)
	m.mu.Unlock()

	for id, st := range batch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := m.writer.Set(ctx, sessionsNode+"/"+string(id), toEntry(st, m.now()))
		cancel()
		if err != nil {
			m.logger.Warn("mirror navigation state", zap.String("session_id", string(id)), zap.Error(err))
		}
	}
}

// Close writes what is pending and stops the worker.
func (m *Mirror) Close() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.wake)
	}
	m.mu.Unlock()
	<-m.done
	m.flush()
}

func toEntry(st navigation.State, now time.Time) entry {
	return entry{
		Status:      string(st.Status),
		Step:        st.CurrentStep,
		StepCount:   st.StepCount,
		Instruction: st.Instruction,
		Lat:         st.Position.Lat,
		Lng:         st.Position.Lng,
		Heading:     st.HeadingDegrees,
		Remaining:   st.RemainingDistance,
		ETA:         st.RemainingTime,
		Timestamp:   now.UnixMilli(),
	}
}
