package activities

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"

	"github.com/vmilic/trainsync/internal/telemetry/tracing"
	"github.com/vmilic/trainsync/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type activitiesRepo interface {
	GetByDateRange(ctx context.Context, userID, fromDate, toDate string) ([]Activity, error)
	Delete(ctx context.Context, userID, date, id string) error
}

type ListResponse struct {
	Activities []Activity `json:"activities"`
	Total      int        `json:"total"`
}

type DeleteResponse struct {
	DeletedID string `json:"deletedId"`
}

var isoDateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

type Handler struct {
	repo activitiesRepo
}

func NewHandler(repo activitiesRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (handler *Handler) HandleListRange(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.listRange")
	defer span.End()

	vars := mux.Vars(r)
	userID := vars["userId"]
	fromDate := vars["from"]
	toDate := vars["to"]

	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}
	if !isoDateRegex.MatchString(fromDate) || !isoDateRegex.MatchString(toDate) {
		http.Error(w, "error, dates must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if fromDate > toDate {
		http.Error(w, "error, from date after to date", http.StatusBadRequest)
		return
	}

	listed, err := handler.repo.GetByDateRange(ctx, userID, fromDate, toDate)
	if err != nil {
		log.Errorf("failed to list activities [%s] [%s - %s]: %s", userID, fromDate, toDate, err)
		http.Error(w, "error, failed to list activities", http.StatusInternalServerError)
		return
	}

	listJson, err := json.Marshal(ListResponse{
		Activities: listed,
		Total:      len(listed),
	})
	if err != nil {
		log.Errorf("failed to marshal activities list: %s", err)
		http.Error(w, "error, failed to list activities", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(listJson))
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.delete")
	defer span.End()

	vars := mux.Vars(r)
	userID := vars["userId"]
	date := vars["date"]
	id := vars["id"]

	if userID == "" || id == "" {
		http.Error(w, "error, user id or activity id empty", http.StatusBadRequest)
		return
	}
	if !isoDateRegex.MatchString(date) {
		http.Error(w, "error, date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, userID, date, id); err != nil {
		if errors.Is(err, ErrActivityNotFound) {
			http.Error(w, "activity not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete activity [%s] [%s/%s]: %s", userID, date, id, err)
		http.Error(w, "error, failed to delete activity", http.StatusInternalServerError)
		return
	}

	deleteJson, err := json.Marshal(DeleteResponse{DeletedID: id})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "error, failed to delete activity", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(deleteJson))
}
