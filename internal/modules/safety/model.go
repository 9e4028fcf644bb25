// README: Route condition categories and their point values.
package safety

type CrimeLevel string

const (
	CrimeLow      CrimeLevel = "Low"
	CrimeModerate CrimeLevel = "Moderate"
	CrimeHigh     CrimeLevel = "High"
)

type LightingCondition string

const (
	LightingPoor     LightingCondition = "Poorly Lit"
	LightingModerate LightingCondition = "Moderately Lit"
	LightingWell     LightingCondition = "Well Lit"
)

type ActivityStatus string

const (
	ActivityQuiet    ActivityStatus = "Quiet"
	ActivityModerate ActivityStatus = "Moderate Activity"
	ActivityBusy     ActivityStatus = "Busy"
)

type ConstructionLevel string

const (
	ConstructionNone     ConstructionLevel = "None"
	ConstructionModerate ConstructionLevel = "Moderate"
	ConstructionHeavy    ConstructionLevel = "Heavy"
)

// RouteConditions are the four categorical attributes rated for a candidate route.
// They are generated once per candidate and must not be regenerated afterwards.
type RouteConditions struct {
	Crime        CrimeLevel        `json:"crime_level"`
	Lighting     LightingCondition `json:"lighting_condition"`
	Activity     ActivityStatus    `json:"activity_status"`
	Construction ConstructionLevel `json:"construction_level"`
}

// Point tables. An unknown value scores as the worst level of its category so a
// malformed attribute can lower a rating but never push it out of range.
var (
	crimePoints = map[CrimeLevel]int{
		CrimeLow:      4,
		CrimeModerate: 2,
		CrimeHigh:     1,
	}
	lightingPoints = map[LightingCondition]int{
		LightingWell:     4,
		LightingModerate: 3,
		LightingPoor:     1,
	}
	activityPoints = map[ActivityStatus]int{
		ActivityBusy:     4,
		ActivityModerate: 3,
		ActivityQuiet:    2,
	}
	constructionPoints = map[ConstructionLevel]int{
		ConstructionNone:     4,
		ConstructionModerate: 3,
		ConstructionHeavy:    1,
	}
)

const (
	// maxPoints is the best possible sum across the four categories.
	maxPoints = 16
	// maxRating is the top of the normalized rating scale.
	maxRating = 5.0
)

var (
	crimeLevels        = []CrimeLevel{CrimeLow, CrimeModerate, CrimeHigh}
	lightingConditions = []LightingCondition{LightingPoor, LightingModerate, LightingWell}
	activityStatuses   = []ActivityStatus{ActivityQuiet, ActivityModerate, ActivityBusy}
	constructionLevels = []ConstructionLevel{ConstructionNone, ConstructionModerate, ConstructionHeavy}
)
