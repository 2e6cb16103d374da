package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/vmilic/trainsync/internal/strava"
	"github.com/vmilic/trainsync/internal/telemetry/tracing"
	"github.com/vmilic/trainsync/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=syncer_mocks_test.go -package=syncer_test

type providerClient interface {
	ListAll(ctx context.Context, accessToken string, after, before *time.Time) ([]strava.Activity, error)
}

type reconciler interface {
	Reconcile(ctx context.Context, userID string, externals []strava.Activity, forceUpdate bool) (*Result, error)
}

type diffScanner interface {
	Scan(ctx context.Context, userID string, externals []strava.Activity) (*Report, error)
}

type SyncRequest struct {
	UserID      string `json:"userId"`
	AccessToken string `json:"accessToken"`
	After       string `json:"after,omitempty"`  // RFC3339, optional
	Before      string `json:"before,omitempty"` // RFC3339, optional
}

type Handler struct {
	provider providerClient
	engine   reconciler
	scanner  diffScanner
}

func NewHandler(provider providerClient, engine reconciler, scanner diffScanner) *Handler {
	return &Handler{
		provider: provider,
		engine:   engine,
		scanner:  scanner,
	}
}

// HandleSync runs a full reconciliation for the user and returns the
// aggregate outcome counts. With ?force=true already imported
// activities get their performance refreshed from the provider.
func (handler *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sync.run")
	defer span.End()

	syncReq, externals, ok := handler.fetchExternals(ctx, w, r)
	if !ok {
		return
	}

	forceUpdate := r.URL.Query().Get("force") == "true"
	span.SetAttributes(attribute.Bool("force_update", forceUpdate))

	result, err := handler.engine.Reconcile(ctx, syncReq.UserID, externals, forceUpdate)
	if err != nil {
		log.Errorf("sync for user %s aborted: %s", syncReq.UserID, err)
		http.Error(w, "sync aborted", http.StatusInternalServerError)
		return
	}

	resultJson, err := json.Marshal(result)
	if err != nil {
		log.Errorf("failed to marshal sync result: %s", err)
		http.Error(w, "error, failed to run sync", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(resultJson))
}

// HandlePreview runs the read-only diff scan, so the user can review
// what a sync would do before committing to it.
func (handler *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sync.preview")
	defer span.End()

	syncReq, externals, ok := handler.fetchExternals(ctx, w, r)
	if !ok {
		return
	}

	report, err := handler.scanner.Scan(ctx, syncReq.UserID, externals)
	if err != nil {
		log.Errorf("scan for user %s failed: %s", syncReq.UserID, err)
		http.Error(w, "scan failed", http.StatusInternalServerError)
		return
	}

	reportJson, err := json.Marshal(report)
	if err != nil {
		log.Errorf("failed to marshal scan report: %s", err)
		http.Error(w, "error, failed to run scan", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(reportJson))
}

func (handler *Handler) fetchExternals(
	ctx context.Context,
	w http.ResponseWriter,
	r *http.Request,
) (*SyncRequest, []strava.Activity, bool) {
	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return nil, nil, false
	}

	var syncReq SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&syncReq); err != nil {
		log.Tracef("sync, unmarshal json params: %s", err)
		http.Error(w, "sync failed", http.StatusBadRequest)
		return nil, nil, false
	}

	if syncReq.UserID == "" || syncReq.AccessToken == "" {
		http.Error(w, "error, user id or access token empty", http.StatusBadRequest)
		return nil, nil, false
	}

	after, err := parseOptionalTime(syncReq.After)
	if err != nil {
		http.Error(w, "error, invalid after timestamp", http.StatusBadRequest)
		return nil, nil, false
	}
	before, err := parseOptionalTime(syncReq.Before)
	if err != nil {
		http.Error(w, "error, invalid before timestamp", http.StatusBadRequest)
		return nil, nil, false
	}

	externals, err := handler.provider.ListAll(ctx, syncReq.AccessToken, after, before)
	if err != nil {
		// a partial activity list must never be reconciled as if complete
		log.Errorf("fetch activities for user %s: %s", syncReq.UserID, err)
		var apiErr *strava.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			http.Error(w, "provider rejected the access token", http.StatusUnauthorized)
			return nil, nil, false
		}
		http.Error(w, "failed to fetch provider activities", http.StatusBadGateway)
		return nil, nil, false
	}

	return &syncReq, externals, true
}

func parseOptionalTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
