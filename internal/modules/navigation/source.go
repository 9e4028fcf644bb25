// README: Position/heading input sources and the push Feed adapter used by the HTTP layer.
package navigation

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"saferoute/internal/geo"
	"saferoute/internal/types"
)

var (
	ErrFeedBusy         = errors.New("feed already has a subscriber")
	ErrFeedClosed       = errors.New("feed closed")
	ErrPermissionDenied = errors.New("permission denied")
	ErrSensorMissing    = errors.New("sensor not available")
)

type Accuracy string

const (
	AccuracyBestForNavigation Accuracy = "best_for_navigation"
	AccuracyHigh              Accuracy = "high"
	AccuracyBalanced          Accuracy = "balanced"
)

// PositionOptions is the contract the session requests from its position source.
// A fix is delivered only when both MinInterval and MinDistance have elapsed
// since the previously delivered fix.
type PositionOptions struct {
	Accuracy    Accuracy      `json:"accuracy"`
	MinInterval time.Duration `json:"min_interval"`
	MinDistance float64       `json:"min_distance_meters"`
}

func DefaultPositionOptions() PositionOptions {
	return PositionOptions{
		Accuracy:    AccuracyBestForNavigation,
		MinInterval: 15 * time.Second,
		MinDistance: 20,
	}
}

// HeadingOptions debounces raw magnetometer samples.
type HeadingOptions struct {
	MinInterval time.Duration `json:"min_interval"`
}

func DefaultHeadingOptions() HeadingOptions {
	return HeadingOptions{MinInterval: time.Second}
}

// HeadingSample is one raw 2-axis magnetometer reading.
type HeadingSample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type PositionSubscription interface {
	Positions() <-chan types.Point
	Close() error
}

type HeadingSubscription interface {
	Headings() <-chan HeadingSample
	Close() error
}

// PositionSource hands out position subscriptions. Implementations return an
// error when the platform refuses access (permission, missing hardware).
type PositionSource interface {
	SubscribePositions(ctx context.Context, opts PositionOptions) (PositionSubscription, error)
}

type HeadingSource interface {
	SubscribeHeadings(ctx context.Context, opts HeadingOptions) (HeadingSubscription, error)
}

// FeedOptions configures a Feed.
type FeedOptions struct {
	// Buffer is the channel capacity per subscription; pushes beyond it are dropped.
	Buffer int
	// Now is the clock used by the throttle gates. Defaults to time.Now.
	Now func() time.Time
	// PositionsDenied and HeadingsUnavailable make the matching subscription fail,
	// mirroring what the device reported when the session was opened.
	PositionsDenied     bool
	HeadingsUnavailable bool
}

// Feed is a PositionSource and HeadingSource fed by client pushes. Each kind of
// input supports one subscriber at a time; pushes with no subscriber are dropped.
type Feed struct {
	mu     sync.Mutex
	opts   FeedOptions
	pos    *positionSub
	head   *headingSub
	closed bool
}

func NewFeed(opts FeedOptions) *Feed {
	if opts.Buffer <= 0 {
		opts.Buffer = 16
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Feed{opts: opts}
}

func (f *Feed) SubscribePositions(_ context.Context, opts PositionOptions) (PositionSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case f.closed:
		return nil, ErrFeedClosed
	case f.opts.PositionsDenied:
		return nil, ErrPermissionDenied
	case f.pos != nil:
		return nil, ErrFeedBusy
	}
	f.pos = &positionSub{
		feed:    f,
		opts:    opts,
		limiter: rate.NewLimiter(every(opts.MinInterval), 1),
		ch:      make(chan types.Point, f.opts.Buffer),
	}
	return f.pos, nil
}

func (f *Feed) SubscribeHeadings(_ context.Context, opts HeadingOptions) (HeadingSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case f.closed:
		return nil, ErrFeedClosed
	case f.opts.HeadingsUnavailable:
		return nil, ErrSensorMissing
	case f.head != nil:
		return nil, ErrFeedBusy
	}
	f.head = &headingSub{
		feed:    f,
		limiter: rate.NewLimiter(every(opts.MinInterval), 1),
		ch:      make(chan HeadingSample, f.opts.Buffer),
	}
	return f.head, nil
}

// PushPosition offers a fix to the position subscriber. It reports whether the
// fix passed the throttle gates and was queued.
func (f *Feed) PushPosition(p types.Point) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pos == nil || !p.Valid() {
		return false
	}
	return f.pos.offer(p, f.opts.Now())
}

// PushHeading offers a magnetometer sample to the heading subscriber.
func (f *Feed) PushHeading(s HeadingSample) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.head == nil {
		return false
	}
	if !f.head.limiter.AllowN(f.opts.Now(), 1) {
		return false
	}
	select {
	case f.head.ch <- s:
		return true
	default:
		return false
	}
}

// Close ends both subscriptions and rejects new ones.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.dropPosition()
	f.dropHeading()
}

// Subscribed reports whether each input currently has a subscriber.
func (f *Feed) Subscribed() (positions, headings bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos != nil, f.head != nil
}

func (f *Feed) dropPosition() {
	if f.pos != nil {
		close(f.pos.ch)
		f.pos = nil
	}
}

func (f *Feed) dropHeading() {
	if f.head != nil {
		close(f.head.ch)
		f.head = nil
	}
}

type positionSub struct {
	feed    *Feed
	opts    PositionOptions
	limiter *rate.Limiter
	ch      chan types.Point

	hasLast bool
	last    types.Point
}

func (s *positionSub) offer(p types.Point, now time.Time) bool {
	if s.hasLast && geo.Distance(s.last, p) < s.opts.MinDistance {
		return false
	}
	if !s.limiter.AllowN(now, 1) {
		return false
	}
	select {
	case s.ch <- p:
		s.hasLast = true
		s.last = p
		return true
	default:
		return false
	}
}

func (s *positionSub) Positions() <-chan types.Point { return s.ch }

func (s *positionSub) Close() error {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	if s.feed.pos == s {
		s.feed.dropPosition()
	}
	return nil
}

type headingSub struct {
	feed    *Feed
	limiter *rate.Limiter
	ch      chan HeadingSample
}

func (s *headingSub) Headings() <-chan HeadingSample { return s.ch }

func (s *headingSub) Close() error {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	if s.feed.head == s {
		s.feed.dropHeading()
	}
	return nil
}

func every(d time.Duration) rate.Limit {
	if d <= 0 {
		return rate.Inf
	}
	return rate.Every(d)
}
