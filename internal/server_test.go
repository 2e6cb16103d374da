package internal

import (
	"net/http"
	"testing"
	"time"

	"github.com/vmilic/trainsync/internal/activities"
	"github.com/vmilic/trainsync/internal/auth"
	"github.com/vmilic/trainsync/internal/config"
	"github.com/vmilic/trainsync/internal/strava"
	"github.com/vmilic/trainsync/internal/syncer"
	"github.com/vmilic/trainsync/internal/telemetry/metrics"

	"github.com/go-redis/redismock/v8"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

func TestServer_routerSetup(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	defer func() {
		require.NoError(t, rdb.Close())
	}()

	repo := activities.NewRepo(nil)
	s := &Server{
		config: &config.Config{
			LoginRateLimitAllowedPerMin: 15,
			SyncRateLimitAllowedPerMin:  10,
		},
		versionInfo:    "test",
		redisClient:    rdb,
		authService:    auth.NewAuthService(&auth.Admin{}, time.Hour, rdb),
		loginChecker:   auth.NewLoginChecker(time.Hour, rdb),
		activitiesRepo: repo,
		syncEngine:     syncer.NewEngine(repo, nil, nil, metrics.NewTestManager()),
		syncScanner:    syncer.NewScanner(repo),
		stravaClient:   strava.NewClient(strava.DefaultBaseURL, http.DefaultClient),
		metricsManager: metrics.NewTestManager(),
	}

	r := s.routerSetup()
	require.NotNil(t, r)

	for caseName, route := range map[string]struct {
		name   string
		path   string
		method string
	}{
		"sync": {
			name:   "sync-strava",
			path:   "/sync/strava",
			method: "POST",
		},
		"sync-preview": {
			name:   "sync-strava-preview",
			path:   "/sync/strava/preview",
			method: "POST",
		},
		"list-activities": {
			name:   "list-activities",
			path:   "/activities/user/u1/from/2024-01-01/to/2024-01-31",
			method: "GET",
		},
		"delete-activity": {
			name:   "delete-activity",
			path:   "/activities/user/u1/date/2024-01-05/activity/abc",
			method: "DELETE",
		},
		"version": {
			name:   "version",
			path:   "/version",
			method: "GET",
		},
		"login": {
			name:   "login",
			path:   "/a/login",
			method: "POST",
		},
	} {
		t.Run(caseName, func(t *testing.T) {
			req, err := http.NewRequest(route.method, route.path, nil)
			require.NoError(t, err)

			routeMatch := &mux.RouteMatch{}
			muxRoute := r.Get(route.name)
			require.NotNil(t, muxRoute)
			isMatch := muxRoute.Match(req, routeMatch)
			assert.True(t, isMatch, caseName)
		})
	}
}
