package syncer

import (
	"strings"

	"github.com/vmilic/trainsync/internal/activities"
	"github.com/vmilic/trainsync/internal/strava"
)

// Score weights and distance bands. The values look arbitrary but are
// calibrated against real activity data - do not tweak them without a
// product reason.
const (
	scoreTypeCompatible = 10
	scoreDistanceTight  = 5
	scoreDistanceLoose  = 2

	distanceTightTolerance = 0.10
	distanceLooseTolerance = 0.25
)

// planned activity type -> compatible provider sport types (normalized)
var typeCompatibility = map[string]map[string]bool{
	"running":  {"run": true, "trailrun": true, "virtualrun": true},
	"cycling":  {"ride": true, "virtualride": true, "ebikeride": true},
	"swimming": {"swim": true},
	"walking":  {"walk": true, "hike": true},
}

func normalizeType(activityType string) string {
	normalized := strings.ToLower(activityType)
	normalized = strings.ReplaceAll(normalized, " ", "")
	normalized = strings.ReplaceAll(normalized, "-", "")
	normalized = strings.ReplaceAll(normalized, "_", "")
	return normalized
}

func typesCompatible(plannedType, externalType string) bool {
	compatible, ok := typeCompatibility[normalizeType(plannedType)]
	if !ok {
		return false
	}
	return compatible[normalizeType(externalType)]
}

// Match returns the planned candidate best matching the external
// activity, or nil when no candidate scores positive. An incompatible
// activity type eliminates a candidate outright; surviving candidates
// score the type base plus a distance bonus (the tight band excludes
// the loose one). Equal scores are broken by the smaller candidate ID,
// so the result never depends on input order.
func Match(external strava.Activity, candidates []activities.Activity) *activities.Activity {
	externalKm := external.Distance / 1000

	var best *activities.Activity
	bestScore := 0

	for i := range candidates {
		candidate := &candidates[i]
		if candidate.Plan == nil {
			continue
		}
		if !typesCompatible(candidate.Plan.ActivityType, external.Type) {
			continue
		}

		score := scoreTypeCompatible
		if target := candidate.Plan.TargetDistanceKm; target > 0 && externalKm > 0 {
			diff := target - externalKm
			if diff < 0 {
				diff = -diff
			}
			switch {
			case diff <= distanceTightTolerance*externalKm:
				score += scoreDistanceTight
			case diff <= distanceLooseTolerance*externalKm:
				score += scoreDistanceLoose
			}
		}

		if score > bestScore || (score == bestScore && best != nil && candidate.ID < best.ID) {
			best = candidate
			bestScore = score
		}
	}

	return best
}
