package activities

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupActivitiesRouterForTests(t *testing.T, repo *TestRepo) *mux.Router {
	t.Helper()
	r := mux.NewRouter()
	handler := NewHandler(repo)
	r.HandleFunc(
		"/activities/user/{userId}/from/{from}/to/{to}",
		handler.HandleListRange,
	).Methods("GET")
	r.HandleFunc(
		"/activities/user/{userId}/date/{date}/activity/{id}",
		handler.HandleDelete,
	).Methods("DELETE")
	return r
}

func TestHandler_HandleListRange(t *testing.T) {
	repo := NewTestRepo()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, &Activity{
		ID: "a1", UserID: "u1", Date: "2024-05-10", Status: StatusPlanned,
		Plan: &Plan{ActivityType: "running", TargetDistanceKm: 10},
	}))
	require.NoError(t, repo.Save(ctx, &Activity{
		ID: "a2", UserID: "u1", Date: "2024-05-15", Status: StatusCompleted,
		Perf: &Performance{ActivityType: "run", DistanceKm: 10.05, DurationSec: 3000},
	}))
	// outside the range
	require.NoError(t, repo.Save(ctx, &Activity{
		ID: "a3", UserID: "u1", Date: "2024-06-01", Status: StatusPlanned,
		Plan: &Plan{ActivityType: "cycling"},
	}))
	// other user
	require.NoError(t, repo.Save(ctx, &Activity{
		ID: "a4", UserID: "u2", Date: "2024-05-10", Status: StatusPlanned,
		Plan: &Plan{ActivityType: "running"},
	}))

	r := setupActivitiesRouterForTests(t, repo)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/activities/user/u1/from/2024-05-01/to/2024-05-31", nil)
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total":2`)
	assert.Contains(t, rr.Body.String(), `"id":"a1"`)
	assert.Contains(t, rr.Body.String(), `"id":"a2"`)
	assert.NotContains(t, rr.Body.String(), `"id":"a3"`)
	assert.NotContains(t, rr.Body.String(), `"id":"a4"`)
}

func TestHandler_HandleListRange_validation(t *testing.T) {
	r := setupActivitiesRouterForTests(t, NewTestRepo())

	for name, target := range map[string]string{
		"bad from date":      "/activities/user/u1/from/05-01-2024/to/2024-05-31",
		"bad to date":        "/activities/user/u1/from/2024-05-01/to/someday",
		"from after to date": "/activities/user/u1/from/2024-06-01/to/2024-05-01",
	} {
		t.Run(name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest("GET", target, nil)
			r.ServeHTTP(rr, req)
			assert.Equal(t, http.StatusBadRequest, rr.Code)
		})
	}
}

func TestHandler_HandleDelete(t *testing.T) {
	repo := NewTestRepo()
	require.NoError(t, repo.Save(context.Background(), &Activity{
		ID: "a1", UserID: "u1", Date: "2024-05-10", Status: StatusPlanned,
		Plan: &Plan{ActivityType: "running"},
	}))
	r := setupActivitiesRouterForTests(t, repo)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("DELETE", "/activities/user/u1/date/2024-05-10/activity/a1", nil)
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"deletedId":"a1"}`, rr.Body.String())
	assert.Equal(t, 0, repo.Count())

	// delete again - gone
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// invalid date
	rr = httptest.NewRecorder()
	req = httptest.NewRequest("DELETE", "/activities/user/u1/date/yesterday/activity/a1", nil)
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
