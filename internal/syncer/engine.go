package syncer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/vmilic/trainsync/internal/activities"
	"github.com/vmilic/trainsync/internal/feed"
	"github.com/vmilic/trainsync/internal/strava"
	"github.com/vmilic/trainsync/internal/telemetry/metrics"
	"github.com/vmilic/trainsync/internal/telemetry/tracing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
)

// Provider is the external source tag written into imported activities.
const Provider = "strava"

type store interface {
	Save(ctx context.Context, activity *activities.Activity) error
	GetByDateRange(ctx context.Context, userID, fromDate, toDate string) ([]activities.Activity, error)
	GetByExternalID(ctx context.Context, userID, provider, externalID string) (*activities.Activity, error)
}

type visibilityResolver interface {
	VisibilityFor(ctx context.Context, userID string) (feed.Visibility, error)
}

// Result aggregates the per-item outcomes of one reconciliation run.
type Result struct {
	Imported int `json:"imported"`
	Merged   int `json:"merged"`
	Skipped  int `json:"skipped"`
	Updated  int `json:"updated"`
	Failed   int `json:"failed"`
	Total    int `json:"total"`
}

// ValidationError marks a malformed external record; the item is
// counted as failed and the run continues.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid external activity: " + e.Reason
}

// Engine reconciles externally sourced activities into the local
// store: merge into a same-day planned activity, import as new, update
// in force mode, or skip when already imported. Runs are serialized
// per user - the idempotency check and the following write are not one
// atomic operation, so two concurrent runs for the same user could
// otherwise both import the same record. The store's unique external-id
// constraint backs this up; a lost race surfaces as a failed item, not
// a duplicate.
type Engine struct {
	store          store
	sink           feed.Sink
	visibility     visibilityResolver
	metricsManager *metrics.Manager

	userLocksMutex sync.Mutex
	userLocks      map[string]*sync.Mutex
}

func NewEngine(
	store store,
	sink feed.Sink,
	visibility visibilityResolver,
	metricsManager *metrics.Manager,
) *Engine {
	return &Engine{
		store:          store,
		sink:           sink,
		visibility:     visibility,
		metricsManager: metricsManager,
		userLocks:      map[string]*sync.Mutex{},
	}
}

func (e *Engine) userLock(userID string) *sync.Mutex {
	e.userLocksMutex.Lock()
	defer e.userLocksMutex.Unlock()
	lock, ok := e.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		e.userLocks[userID] = lock
	}
	return lock
}

type itemOutcome string

const (
	outcomeImported itemOutcome = "imported"
	outcomeMerged   itemOutcome = "merged"
	outcomeSkipped  itemOutcome = "skipped"
	outcomeUpdated  itemOutcome = "updated"
	outcomeFailed   itemOutcome = "failed"
)

// Reconcile processes the external activities one by one, in input
// order. A single bad item never aborts the batch; cancellation is
// honored between items so no record is left half written.
func (e *Engine) Reconcile(
	ctx context.Context,
	userID string,
	externals []strava.Activity,
	forceUpdate bool,
) (_ *Result, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "syncer.reconcile")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))
	span.SetAttributes(attribute.Int("externals.count", len(externals)))
	span.SetAttributes(attribute.Bool("force_update", forceUpdate))

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	defer func(begin time.Time) {
		e.metricsManager.HistSyncRunDuration.Observe(time.Since(begin).Seconds())
	}(time.Now())

	result := &Result{Total: len(externals)}
	var itemErrs error
	for i := range externals {
		if ctxErr := ctx.Err(); ctxErr != nil {
			e.metricsManager.CounterSyncRuns.With(prometheus.Labels{"outcome": "canceled"}).Inc()
			return result, ctxErr
		}

		outcome, itemErr := e.reconcileOne(ctx, userID, externals[i], forceUpdate)
		if itemErr != nil {
			log.Errorf("reconcile activity %d for user %s: %s", externals[i].ID, userID, itemErr)
			itemErrs = multierr.Append(itemErrs, itemErr)
			outcome = outcomeFailed
		}

		switch outcome {
		case outcomeImported:
			result.Imported++
		case outcomeMerged:
			result.Merged++
		case outcomeSkipped:
			result.Skipped++
		case outcomeUpdated:
			result.Updated++
		case outcomeFailed:
			result.Failed++
		}
		e.metricsManager.CounterSyncItems.With(prometheus.Labels{"outcome": string(outcome)}).Inc()
	}

	if itemErrs != nil {
		log.Debugf("reconcile run for user %s, item errors: %s", userID, itemErrs)
	}

	e.metricsManager.CounterSyncRuns.With(prometheus.Labels{"outcome": "ok"}).Inc()
	log.Debugf(
		"reconcile run done for user %s: imported %d, merged %d, skipped %d, updated %d, failed %d",
		userID, result.Imported, result.Merged, result.Skipped, result.Updated, result.Failed,
	)

	return result, nil
}

func (e *Engine) reconcileOne(
	ctx context.Context,
	userID string,
	external strava.Activity,
	forceUpdate bool,
) (itemOutcome, error) {
	if external.ID == 0 {
		return outcomeFailed, &ValidationError{Reason: "missing id"}
	}
	externalID := strconv.FormatInt(external.ID, 10)

	existing, err := e.store.GetByExternalID(ctx, userID, Provider, externalID)
	if err != nil && !errors.Is(err, activities.ErrActivityNotFound) {
		return outcomeFailed, fmt.Errorf("idempotency check: %w", err)
	}

	if existing != nil && !forceUpdate {
		return outcomeSkipped, nil
	}

	date, perf, err := mapExternal(external)
	if err != nil {
		return outcomeFailed, err
	}

	if existing != nil {
		// force update: fresh performance, local notes stay untouched
		existing.Perf = perf
		existing.UpdatedAt = time.Now()
		if err := e.store.Save(ctx, existing); err != nil {
			return outcomeFailed, fmt.Errorf("save updated activity: %w", err)
		}
		return outcomeUpdated, nil
	}

	sameDay, err := e.store.GetByDateRange(ctx, userID, date, date)
	if err != nil {
		return outcomeFailed, fmt.Errorf("fetch candidates: %w", err)
	}
	candidates := make([]activities.Activity, 0, len(sameDay))
	for _, a := range sameDay {
		if a.Status == activities.StatusPlanned && a.Perf == nil {
			candidates = append(candidates, a)
		}
	}

	now := time.Now()
	if matched := Match(external, candidates); matched != nil {
		matched.Status = activities.StatusCompleted
		matched.Perf = perf
		matched.UpdatedAt = now
		if err := e.store.Save(ctx, matched); err != nil {
			return outcomeFailed, fmt.Errorf("save merged activity: %w", err)
		}
		e.emitEvent(ctx, matched, feed.EventTypeActivityMerged)
		return outcomeMerged, nil
	}

	imported := &activities.Activity{
		ID:        uuid.NewString(),
		UserID:    userID,
		Date:      date,
		Status:    activities.StatusCompleted,
		Perf:      perf,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.Save(ctx, imported); err != nil {
		return outcomeFailed, fmt.Errorf("save imported activity: %w", err)
	}
	e.emitEvent(ctx, imported, feed.EventTypeActivityImported)
	return outcomeImported, nil
}

// emitEvent posts a feed event for a freshly merged/imported activity.
// The storage write already committed; a sink or privacy lookup failure
// is logged and swallowed.
func (e *Engine) emitEvent(ctx context.Context, activity *activities.Activity, eventType feed.EventType) {
	visibility, err := e.visibility.VisibilityFor(ctx, activity.UserID)
	if err != nil {
		log.Errorf("resolve visibility for user %s: %s, falling back to private", activity.UserID, err)
		visibility = feed.VisibilityPrivate
	}

	event := feed.Event{
		UserID:     activity.UserID,
		Type:       eventType,
		Visibility: visibility,
		Timestamp:  time.Now(),
		Payload: map[string]string{
			"activityId":   activity.ID,
			"activityDate": activity.Date,
			"activityType": activity.Perf.ActivityType,
		},
		Metrics: map[string]float64{
			"distanceKm":  activity.Perf.DistanceKm,
			"durationSec": float64(activity.Perf.DurationSec),
			"calories":    float64(activity.Perf.Calories),
		},
	}
	if err := e.sink.CreateEvent(ctx, event); err != nil {
		log.Errorf("create feed event for activity %s: %s", activity.ID, err)
	}
}

// mapExternal converts a provider activity into the local date and
// performance section.
func mapExternal(external strava.Activity) (date string, perf *activities.Performance, err error) {
	if external.ID == 0 {
		return "", nil, &ValidationError{Reason: "missing id"}
	}

	startLocal, err := parseStartDate(external.StartDateLocal)
	if err != nil {
		return "", nil, &ValidationError{
			Reason: fmt.Sprintf("unparsable start date %q", external.StartDateLocal),
		}
	}

	durationSec := external.MovingTime
	if durationSec == 0 {
		durationSec = external.ElapsedTime
	}

	perf = &activities.Performance{
		ActivityType: normalizeType(external.Type),
		DistanceKm:   external.Distance / 1000,
		DurationSec:  durationSec,
		AvgHeartRate: int(math.Round(external.AvgHeartRate)),
		MaxHeartRate: int(math.Round(external.MaxHeartRate)),
		Calories:     int(math.Round(external.Calories)),
		Source: &activities.Source{
			Provider:   Provider,
			ExternalID: strconv.FormatInt(external.ID, 10),
			ImportedAt: time.Now(),
		},
	}
	if len(external.Splits) > 0 {
		perf.Metadata = map[string]string{
			"splits": strconv.Itoa(len(external.Splits)),
		}
	}

	return startLocal.Format("2006-01-02"), perf, nil
}

func parseStartDate(startDateLocal string) (time.Time, error) {
	// the provider sends local start times either with or without a zone suffix
	if parsed, err := time.Parse(time.RFC3339, startDateLocal); err == nil {
		return parsed, nil
	}
	return time.Parse("2006-01-02T15:04:05", startDateLocal)
}
