// README: Tracker owns one session's navigation state and its update rules.
package navigation

import (
	"fmt"
	"math"
	"time"

	"saferoute/internal/geo"
	"saferoute/internal/types"
)

// Tracker decides which step of a route the walker is on. It is not safe for
// concurrent use; Session serializes every call onto one goroutine.
type Tracker struct {
	opts TrackerOptions

	instructions []string
	// polyline holds the step end coordinates; segment i runs polyline[i] -> polyline[i+1].
	polyline []types.Point

	status        Status
	current       int
	lastAccepted  types.Point
	heading       float64
	lastAnnounced int

	remainingMeters   float64
	remainingDuration time.Duration
	remainingDistance string
	remainingTime     string
}

// NewTracker builds an idle tracker for plan. A plan without steps starts out arrived.
func NewTracker(plan Plan, opts TrackerOptions) *Tracker {
	t := &Tracker{
		opts:          opts,
		instructions:  make([]string, len(plan.Steps)),
		polyline:      make([]types.Point, len(plan.Steps)),
		status:        StatusIdle,
		lastAccepted:  plan.Start,
		lastAnnounced: -1,
	}
	for i, s := range plan.Steps {
		t.instructions[i] = StripMarkup(s.Instruction)
		t.polyline[i] = s.End
	}

	t.setRemaining(geo.PathLength(t.polyline))
	if plan.TotalDistance != "" {
		t.remainingDistance = plan.TotalDistance
	}
	if plan.EstimatedTime != "" {
		t.remainingTime = plan.EstimatedTime
	}

	if len(t.polyline) == 0 {
		t.arrive()
	}
	return t
}

// Begin moves an idle tracker into tracking. It is a no-op in any other state.
func (t *Tracker) Begin() {
	if t.status == StatusIdle {
		t.status = StatusTracking
	}
}

func (t *Tracker) Status() Status { return t.status }

// Polyline returns the step end coordinates for map drawing.
func (t *Tracker) Polyline() []types.Point {
	out := make([]types.Point, len(t.polyline))
	copy(out, t.polyline)
	return out
}

// OnPosition feeds one position fix into the tracker.
func (t *Tracker) OnPosition(p types.Point) Update {
	if t.status != StatusTracking || !p.Valid() {
		return Update{State: t.Snapshot()}
	}
	if geo.Distance(t.lastAccepted, p) <= t.opts.JitterMeters {
		return Update{State: t.Snapshot()}
	}
	t.lastAccepted = p

	last := len(t.polyline) - 1
	if t.current >= last {
		// Nothing left to scan: the walker is on the final step.
		t.arrive()
		return Update{Accepted: true, Advanced: true, State: t.Snapshot()}
	}

	closest := t.current
	minDistance := math.MaxFloat64
	onHeading := false
	distanceLeft := 0.0

	for i := t.current; i < last; i++ {
		start, end := t.polyline[i], t.polyline[i+1]

		if d := geo.DistanceToSegment(p, start, end); d < minDistance {
			minDistance = d
			closest = i
		}
		if t.headingMatches(p, start, end) {
			onHeading = true
		}
		distanceLeft += geo.Distance(start, end)
	}

	t.setRemaining(distanceLeft)

	upd := Update{Accepted: true}
	if minDistance < t.opts.OnRouteMeters || onHeading {
		upd.Advanced = true
		upd.Announcement = t.advanceTo(closest + 1)
	}
	upd.State = t.Snapshot()
	return upd
}

// OnHeading converts a raw magnetometer vector into the displayed heading.
// It never influences step advancement.
func (t *Tracker) OnHeading(x, y float64) float64 {
	t.heading = geo.HeadingFromVector(x, y)
	return t.heading
}

func (t *Tracker) Snapshot() State {
	instruction := ArrivalMessage
	if t.current < len(t.instructions) {
		instruction = t.instructions[t.current]
	}
	return State{
		Status:                  t.status,
		CurrentStep:             t.current,
		StepCount:               len(t.polyline),
		Instruction:             instruction,
		Position:                t.lastAccepted,
		HeadingDegrees:          t.heading,
		RemainingDistanceMeters: t.remainingMeters,
		RemainingDuration:       t.remainingDuration,
		RemainingDistance:       t.remainingDistance,
		RemainingTime:           t.remainingTime,
	}
}

// headingMatches reports whether heading from p toward the segment end lines up
// with the segment's own bearing.
func (t *Tracker) headingMatches(p, start, end types.Point) bool {
	want := geo.Bearing(start, end)
	got := geo.Bearing(p, end)
	return geo.AngleDiff(want, got) <= t.opts.HeadingToleranceDeg
}

func (t *Tracker) advanceTo(step int) *Announcement {
	if step <= t.current {
		return nil
	}
	if step >= len(t.polyline) {
		t.arrive()
		return nil
	}
	t.current = step
	if step <= t.lastAnnounced || t.instructions[step] == "" {
		return nil
	}
	t.lastAnnounced = step
	return &Announcement{Step: step, Text: t.instructions[step]}
}

func (t *Tracker) arrive() {
	t.status = StatusArrived
	t.current = len(t.polyline)
	t.setRemaining(0)
}

// setRemaining rounds to hundredths of a mile and derives minutes at walking speed.
func (t *Tracker) setRemaining(meters float64) {
	miles := math.Round(meters/geo.MetersPerMile*100) / 100
	minutes := 0.0
	if t.opts.WalkingSpeedMph > 0 {
		// Subtract a hair so float error (0.05/3*60 = 1.0000000000000002) does not round up a full minute.
		minutes = math.Ceil(miles/t.opts.WalkingSpeedMph*60 - 1e-9)
	}
	if minutes < 0 {
		minutes = 0
	}

	t.remainingMeters = meters
	t.remainingDuration = time.Duration(minutes) * time.Minute
	t.remainingDistance = fmt.Sprintf("%.2f mi", miles)
	t.remainingTime = fmt.Sprintf("%d min", int(minutes))
}
