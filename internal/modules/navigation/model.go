// README: Navigation session state, tracker tuning and error definitions.
package navigation

import (
	"errors"
	"time"

	"saferoute/internal/types"
)

var (
	// ErrInputUnavailable means a position or heading source could not be
	// acquired (permission denied, sensor missing). The session stays idle.
	ErrInputUnavailable = errors.New("navigation input unavailable")
	ErrSessionNotFound  = errors.New("navigation session not found")
	ErrAlreadyStarted   = errors.New("navigation session already started")
	ErrSessionClosed    = errors.New("navigation session closed")
	ErrBadRequest       = errors.New("bad request")
)

// ArrivalMessage replaces the instruction once every step has been passed.
const ArrivalMessage = "You have reached your destination!"

// Step is one provider-supplied route step: where it ends and what to do.
// Instruction may still contain markup; it is stripped before display or speech.
type Step struct {
	End         types.Point `json:"end"`
	Instruction string      `json:"instruction"`
}

type Status string

const (
	StatusIdle     Status = "idle"
	StatusTracking Status = "tracking"
	StatusArrived  Status = "arrived"
)

// Plan is what the route selection hands to a navigation session.
type Plan struct {
	Steps         []Step
	Start         types.Point
	Destination   types.Point
	TotalDistance string
	EstimatedTime string
}

// TrackerOptions tunes how positions are matched against the route.
type TrackerOptions struct {
	// JitterMeters: fixes this close to the last accepted one are ignored.
	JitterMeters float64
	// OnRouteMeters: a fix closer than this to a segment counts as on that segment.
	OnRouteMeters float64
	// HeadingToleranceDeg: allowed gap between travel bearing and segment bearing.
	HeadingToleranceDeg float64
	// WalkingSpeedMph drives the remaining time estimate.
	WalkingSpeedMph float64
}

func DefaultTrackerOptions() TrackerOptions {
	return TrackerOptions{
		JitterMeters:        5,
		OnRouteMeters:       20,
		HeadingToleranceDeg: 20,
		WalkingSpeedMph:     3,
	}
}

// State is a read-only copy of a session's navigation state.
type State struct {
	Status                  Status        `json:"status"`
	CurrentStep             int           `json:"current_step"`
	StepCount               int           `json:"step_count"`
	Instruction             string        `json:"instruction"`
	Position                types.Point   `json:"position"`
	HeadingDegrees          float64       `json:"heading_degrees"`
	RemainingDistanceMeters float64       `json:"remaining_distance_meters"`
	RemainingDuration       time.Duration `json:"remaining_duration"`
	RemainingDistance       string        `json:"remaining_distance"`
	RemainingTime           string        `json:"remaining_time"`
}

// Announcement is a spoken instruction for a newly entered step.
type Announcement struct {
	Step int
	Text string
}

// Update reports what a single position fix did to the tracker.
type Update struct {
	// Accepted is false when the fix was filtered as jitter or the tracker is not tracking.
	Accepted     bool
	Advanced     bool
	Announcement *Announcement
	State        State
}
