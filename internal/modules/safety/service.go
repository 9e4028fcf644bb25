// README: Safety scoring for candidate walking routes.
package safety

import (
	"math"
	"math/rand/v2"
	"sync"
)

// ScoreRoute maps route conditions to a rating in [1.0, 5.0] rounded to one decimal.
func ScoreRoute(c RouteConditions) float64 {
	sum := points(crimePoints, c.Crime, 1) +
		points(lightingPoints, c.Lighting, 1) +
		points(activityPoints, c.Activity, 2) +
		points(constructionPoints, c.Construction, 1)

	normalized := float64(sum) / maxPoints * maxRating
	return math.Round(normalized*10) / 10
}

func points[K comparable](table map[K]int, k K, worst int) int {
	if p, ok := table[k]; ok {
		return p
	}
	return worst
}

// SelectBestRoute returns the index of the highest rating. Ties keep the earliest
// index. ok is false when ratings is empty.
func SelectBestRoute(ratings []float64) (index int, ok bool) {
	best := -1
	highest := math.Inf(-1)
	for i, r := range ratings {
		if r > highest {
			highest = r
			best = i
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// ConditionSource produces conditions for a freshly fetched candidate route.
type ConditionSource interface {
	Conditions() RouteConditions
}

// RandomSource draws each of the four attributes uniformly and independently.
// It is a placeholder until real safety data exists.
type RandomSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSource returns a RandomSource. A nil rng uses a randomly seeded generator.
func NewRandomSource(rng *rand.Rand) *RandomSource {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &RandomSource{rng: rng}
}

func (s *RandomSource) Conditions() RouteConditions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RouteConditions{
		Crime:        crimeLevels[s.rng.IntN(len(crimeLevels))],
		Lighting:     lightingConditions[s.rng.IntN(len(lightingConditions))],
		Activity:     activityStatuses[s.rng.IntN(len(activityStatuses))],
		Construction: constructionLevels[s.rng.IntN(len(constructionLevels))],
	}
}
