package syncer

import (
	"context"
	"errors"
	"strconv"

	"github.com/vmilic/trainsync/internal/activities"
	"github.com/vmilic/trainsync/internal/strava"
	"github.com/vmilic/trainsync/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// durationChangeToleranceSec - an already imported activity whose
// measured duration drifted from the provider's by more than this is
// reported as changed.
const durationChangeToleranceSec = 60

// Report is the result of a read-only diff scan, surfaced for user
// review before a forced sync.
type Report struct {
	NewActivities     []strava.Activity `json:"newActivities"`
	ChangedActivities []ChangedActivity `json:"changedActivities"`
	MatchedCount      int               `json:"matchedCount"`
	Total             int               `json:"total"`
}

type ChangedActivity struct {
	External            strava.Activity `json:"external"`
	LocalActivityID     string          `json:"localActivityId"`
	LocalDurationSec    int             `json:"localDurationSec"`
	ExternalDurationSec int             `json:"externalDurationSec"`
}

// Scanner is the read-only variant of the engine: same idempotency
// check and candidate matching, but it never writes.
type Scanner struct {
	store store
}

func NewScanner(store store) *Scanner {
	return &Scanner{
		store: store,
	}
}

func (s *Scanner) Scan(ctx context.Context, userID string, externals []strava.Activity) (_ *Report, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "syncer.scan")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))
	span.SetAttributes(attribute.Int("externals.count", len(externals)))

	report := &Report{
		NewActivities:     make([]strava.Activity, 0),
		ChangedActivities: make([]ChangedActivity, 0),
		Total:             len(externals),
	}

	// the scan never writes; a duplicate id within the batch would hit
	// the same persisted state twice, so count each external id once
	seen := map[int64]bool{}

	for _, external := range externals {
		if external.ID == 0 {
			log.Tracef("scan for user %s: skipping external activity with no id", userID)
			continue
		}
		if seen[external.ID] {
			continue
		}
		seen[external.ID] = true
		externalID := strconv.FormatInt(external.ID, 10)

		existing, err := s.store.GetByExternalID(ctx, userID, Provider, externalID)
		if err != nil && !errors.Is(err, activities.ErrActivityNotFound) {
			return nil, err
		}

		if existing != nil {
			durationSec := external.MovingTime
			if durationSec == 0 {
				durationSec = external.ElapsedTime
			}
			localDurationSec := 0
			if existing.Perf != nil {
				localDurationSec = existing.Perf.DurationSec
			}

			diff := durationSec - localDurationSec
			if diff < 0 {
				diff = -diff
			}
			if diff > durationChangeToleranceSec {
				report.ChangedActivities = append(report.ChangedActivities, ChangedActivity{
					External:            external,
					LocalActivityID:     existing.ID,
					LocalDurationSec:    localDurationSec,
					ExternalDurationSec: durationSec,
				})
			} else {
				report.MatchedCount++
			}
			continue
		}

		date, _, err := mapExternal(external)
		if err != nil {
			log.Tracef("scan for user %s: skipping external activity %d: %s", userID, external.ID, err)
			continue
		}

		sameDay, err := s.store.GetByDateRange(ctx, userID, date, date)
		if err != nil {
			return nil, err
		}
		candidates := make([]activities.Activity, 0, len(sameDay))
		for _, a := range sameDay {
			if a.Status == activities.StatusPlanned && a.Perf == nil {
				candidates = append(candidates, a)
			}
		}

		if Match(external, candidates) != nil {
			report.MatchedCount++
		} else {
			report.NewActivities = append(report.NewActivities, external)
		}
	}

	return report, nil
}
