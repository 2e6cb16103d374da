package activities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vmilic/trainsync/internal/telemetry/tracing"
	"github.com/vmilic/trainsync/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrActivityNotFound = errors.New("activity not found")
	// ErrConflict is returned when the atomic activity+index write cannot
	// commit, e.g. another activity already owns the same external id.
	ErrConflict = errors.New("activity write conflict")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Save writes the activity under its primary key and, when the activity
// has a non-manual external source, the index entry in the same
// transaction. Pre-existing rows are overwritten (merge and force-update
// go through here too). Returns ErrConflict if the index entry is owned
// by a different activity.
func (r *Repo) Save(ctx context.Context, activity *Activity) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.save")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("activity.id", activity.ID))
	span.SetAttributes(attribute.String("activity.date", activity.Date))

	if activity.ID == "" || activity.UserID == "" || activity.Date == "" {
		return errors.New("activity id, user id and date must be set")
	}

	planJson, perfJson, err := marshalSections(activity)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
			if pkg.IsUniqueViolationError(err) {
				err = ErrConflict
			}
		}
	}()

	_, err = tx.Exec(ctx, `
		INSERT INTO activity (user_id, date, id, status, plan, performance, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, date, id) DO UPDATE SET
			status = EXCLUDED.status,
			plan = EXCLUDED.plan,
			performance = EXCLUDED.performance,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
	`,
		activity.UserID, activity.Date, activity.ID, activity.Status,
		planJson, perfJson, activity.Notes,
		activity.CreatedAt, activity.UpdatedAt,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert activity: %w", err)
	}

	if !activity.HasExternalSource() {
		return nil
	}

	src := activity.Perf.Source
	tag, err := tx.Exec(ctx, `
		INSERT INTO activity_source_idx (user_id, provider, external_id, activity_date, activity_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, provider, external_id) DO UPDATE SET
			activity_date = EXCLUDED.activity_date
		WHERE activity_source_idx.activity_id = EXCLUDED.activity_id
	`,
		activity.UserID, src.Provider, src.ExternalID, activity.Date, activity.ID,
	)
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			return ErrConflict
		}
		return fmt.Errorf("insert source index: %w", err)
	}

	// zero affected rows: the external id is already claimed by another activity
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}

	return nil
}

// GetByDateRange returns all activities of the user with date in
// [fromDate, toDate] inclusive, ordered by date. Dates are ISO
// YYYY-MM-DD strings, so lexicographic comparison is chronological.
func (r *Repo) GetByDateRange(ctx context.Context, userID, fromDate, toDate string) (_ []Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.getByDateRange")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("from", fromDate))
	span.SetAttributes(attribute.String("to", toDate))

	rows, err := r.db.Query(ctx, `
		SELECT user_id, date, id, status, plan, performance, notes, created_at, updated_at
		FROM activity
		WHERE user_id = $1 AND date >= $2 AND date <= $3
		ORDER BY date, id
	`, userID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return rows2activities(rows)
}

// GetByExternalID resolves (provider, external id) through the source
// index, then dereferences the primary key. An index entry pointing to
// a missing activity is a data integrity fault; it is logged and
// reported as ErrActivityNotFound so that callers fall through to the
// import path.
func (r *Repo) GetByExternalID(ctx context.Context, userID, provider, externalID string) (_ *Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.getByExternalID")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("provider", provider))
	span.SetAttributes(attribute.String("external_id", externalID))

	var date, activityID string
	err = r.db.QueryRow(ctx, `
		SELECT activity_date, activity_id FROM activity_source_idx
		WHERE user_id = $1 AND provider = $2 AND external_id = $3
	`, userID, provider, externalID).Scan(&date, &activityID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrActivityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query source index: %w", err)
	}

	activity, err := r.get(ctx, userID, date, activityID)
	if errors.Is(err, ErrActivityNotFound) {
		log.Errorf(
			"data integrity fault: source index [%s/%s/%s] points to missing activity [%s/%s]",
			userID, provider, externalID, date, activityID,
		)
		// remove the dangling entry so a later save can claim the
		// external id again instead of hitting ErrConflict forever
		if _, delErr := r.db.Exec(ctx, `
			DELETE FROM activity_source_idx
			WHERE user_id = $1 AND provider = $2 AND external_id = $3 AND activity_id = $4
		`, userID, provider, externalID, activityID); delErr != nil {
			log.Errorf(
				"failed to remove dangling source index [%s/%s/%s]: %s",
				userID, provider, externalID, delErr,
			)
		}
		return nil, ErrActivityNotFound
	}
	return activity, err
}

// Get returns the activity under the given primary key.
func (r *Repo) Get(ctx context.Context, userID, date, id string) (_ *Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	return r.get(ctx, userID, date, id)
}

func (r *Repo) get(ctx context.Context, userID, date, id string) (*Activity, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, date, id, status, plan, performance, notes, created_at, updated_at
		FROM activity
		WHERE user_id = $1 AND date = $2 AND id = $3
	`, userID, date, id)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	found, err := rows2activities(rows)
	if err != nil {
		return nil, err
	}
	if len(found) != 1 {
		return nil, ErrActivityNotFound
	}
	return &found[0], nil
}

// Delete removes the activity and any index entry pointing at it, in
// one transaction. The index row is never left behind without the
// activity.
func (r *Repo) Delete(ctx context.Context, userID, date, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("activity.id", id))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `
		DELETE FROM activity_source_idx
		WHERE user_id = $1 AND activity_date = $2 AND activity_id = $3
	`, userID, date, id); err != nil {
		return fmt.Errorf("delete source index: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM activity
		WHERE user_id = $1 AND date = $2 AND id = $3
	`, userID, date, id)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrActivityNotFound
	}

	return nil
}

func marshalSections(activity *Activity) (planJson, perfJson []byte, err error) {
	if activity.Plan != nil {
		if planJson, err = json.Marshal(activity.Plan); err != nil {
			return nil, nil, fmt.Errorf("marshal plan: %w", err)
		}
	}
	if activity.Perf != nil {
		if perfJson, err = json.Marshal(activity.Perf); err != nil {
			return nil, nil, fmt.Errorf("marshal performance: %w", err)
		}
	}
	return planJson, perfJson, nil
}

func rows2activities(rows pgx.Rows) ([]Activity, error) {
	var found []Activity
	for rows.Next() {
		var a Activity
		var planJson, perfJson []byte
		var createdAt, updatedAt time.Time
		if err := rows.Scan(
			&a.UserID, &a.Date, &a.ID, &a.Status,
			&planJson, &perfJson, &a.Notes,
			&createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		if len(planJson) > 0 {
			a.Plan = &Plan{}
			if err := json.Unmarshal(planJson, a.Plan); err != nil {
				return nil, fmt.Errorf("unmarshal plan for activity %s: %w", a.ID, err)
			}
		}
		if len(perfJson) > 0 {
			a.Perf = &Performance{}
			if err := json.Unmarshal(perfJson, a.Perf); err != nil {
				return nil, fmt.Errorf("unmarshal performance for activity %s: %w", a.ID, err)
			}
		}

		a.CreatedAt = createdAt
		a.UpdatedAt = updatedAt
		found = append(found, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	if found == nil {
		found = make([]Activity, 0)
	}

	return found, nil
}
