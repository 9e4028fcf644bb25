// README: Activity report data model and errors.
package reports

import (
	"errors"
	"time"

	"saferoute/internal/types"
)

var (
	ErrInvalidKind     = errors.New("invalid report kind")
	ErrInvalidPosition = errors.New("invalid report position")
	ErrQuotaExceeded   = errors.New("daily report limit reached")
)

// DailyReports is how many reports one reporter may submit per UTC day.
const DailyReports = 50

const (
	defaultRecent = 20
	maxRecent     = 100
	maxNoteLength = 280
)

// Kind is what the walker flagged at their position.
type Kind string

const (
	KindConstruction Kind = "construction"
	KindCrime        Kind = "crime"
	KindLighting     Kind = "lighting"
	KindCrowded      Kind = "crowded"
)

func (k Kind) Valid() bool {
	switch k {
	case KindConstruction, KindCrime, KindLighting, KindCrowded:
		return true
	}
	return false
}

// Report is one submitted activity report. The route scorer does not read these.
type Report struct {
	ID        types.ID    `json:"id"`
	Kind      Kind        `json:"kind"`
	Position  types.Point `json:"position"`
	SessionID types.ID    `json:"session_id,omitempty"`
	Reporter  string      `json:"reporter,omitempty"`
	Note      string      `json:"note,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
