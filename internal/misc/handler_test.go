package misc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/vmilic/trainsync/internal/auth"
	"github.com/vmilic/trainsync/internal/middleware"
	"github.com/vmilic/trainsync/internal/telemetry/metrics"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/go-redis/redismock/v8"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// use TestMain(m *testing.M) { ... } for
// global set-up/tear-down for all the tests in a package
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// INFO: https://github.com/go-redis/redis/issues/1029
		goleak.IgnoreTopFunction(
			"github.com/go-redis/redis/v8/internal/pool.(*ConnPool).reaper",
		),
	)
}

type testRequestRateLimiter struct {
	// key to limit map
	Limits map[string]int
}

func (l *testRequestRateLimiter) Allow(_ context.Context, key string, _ redis_rate.Limit) (*redis_rate.Result, error) {
	res := &redis_rate.Result{}

	foundLimit, ok := l.Limits[key]
	if !ok || foundLimit == 0 {
		return res, nil
	}

	res.Allowed = l.Limits[key]
	l.Limits[key]--

	return res, nil
}

func setupMiscRouterForTests(
	t *testing.T,
	authService *auth.Service,
	redisClient *redis.Client,
	reqRateLimiter *testRequestRateLimiter,
	metricsManager *metrics.Manager,
) *mux.Router {
	t.Helper()

	r := mux.NewRouter()
	authMiddleware := middleware.NewAuthMiddlewareHandler(
		auth.NewLoginChecker(time.Hour, redisClient),
	)

	// the same setup as in Server.routerSetup() ... these are not so much of a "unit" tests
	r.Use(middleware.PanicRecovery(metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(metricsManager))
	r.Use(middleware.Cors())
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	handler := NewHandler("dummy", authService)
	handler.SetupRoutes(r, reqRateLimiter, metricsManager, 15)

	return r
}

func TestNewMiscHandler(t *testing.T) {
	mainRouter := mux.NewRouter()
	handler := NewHandler("dummy", &auth.Service{})
	handler.SetupRoutes(mainRouter, nil, metrics.NewTestManager(), 15)
	require.NotNil(t, handler)
	require.NotNil(t, mainRouter)

	for caseName, route := range map[string]struct {
		name   string
		path   string
		method string
	}{
		"route-get": {
			name:   "root",
			path:   "/",
			method: "GET",
		},
		"route-post": {
			name:   "root",
			path:   "/",
			method: "POST",
		},
		"route-options": {
			name:   "root",
			path:   "/",
			method: "OPTIONS",
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
		"logout": {
			name:   "logout",
			path:   "/a/logout",
			method: "GET",
		},
		"logout-options": {
			name:   "logout",
			path:   "/a/logout",
			method: "OPTIONS",
		},
	} {
		t.Run(caseName, func(t *testing.T) {
			req, err := http.NewRequest(route.method, route.path, nil)
			require.NoError(t, err)

			routeMatch := &mux.RouteMatch{}
			route := mainRouter.Get(route.name)
			require.NotNil(t, route)
			isMatch := route.Match(req, routeMatch)
			assert.True(t, isMatch, caseName)
		})
	}
}

func TestLogin_wrongCredentials(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	defer func() {
		assert.NoError(t, rdb.Close())
	}()

	authService := auth.NewAuthService(&auth.Admin{
		Username:     "testuser",
		PasswordHash: "$2a$14$6Gmhg85si2etd3K9oB8nYu1cxfbrdmhkg6wI6OXsa88IF4L2r/L9i", // testpass
	}, time.Hour, rdb)
	require.NotNil(t, authService)

	reqRateLimiter := &testRequestRateLimiter{
		Limits: map[string]int{"login": 3},
	}
	r := setupMiscRouterForTests(t, authService, rdb, reqRateLimiter, metrics.NewTestManager())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/a/login", nil)
	req.PostForm = url.Values{}
	req.PostForm.Add("username", "testuser")
	req.PostForm.Add("password", "wrong-pass")
	req.Header.Set("Origin", "test")

	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "wrong credentials")

	// empty username
	rr = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/a/login", nil)
	req.PostForm = url.Values{}
	req.PostForm.Add("password", "testpass")
	req.Header.Set("Origin", "test")
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogin_rateLimited(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	defer func() {
		assert.NoError(t, rdb.Close())
	}()

	authService := auth.NewAuthService(&auth.Admin{
		Username:     "testuser",
		PasswordHash: "$2a$14$6Gmhg85si2etd3K9oB8nYu1cxfbrdmhkg6wI6OXsa88IF4L2r/L9i", // testpass
	}, time.Hour, rdb)

	reqRateLimiter := &testRequestRateLimiter{
		Limits: map[string]int{"login": 1},
	}
	r := setupMiscRouterForTests(t, authService, rdb, reqRateLimiter, metrics.NewTestManager())

	req := httptest.NewRequest("POST", "/a/login", nil)
	req.PostForm = url.Values{}
	req.PostForm.Add("username", "testuser")
	req.PostForm.Add("password", "wrong-pass")
	req.Header.Set("Origin", "test")

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// next time rate limited
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTooEarly, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Body.String(), "retry after"))
}

func TestLogout_missingToken(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	defer func() {
		assert.NoError(t, rdb.Close())
	}()

	authService := auth.NewAuthService(&auth.Admin{}, time.Hour, rdb)
	reqRateLimiter := &testRequestRateLimiter{
		Limits: map[string]int{"login": 3},
	}
	r := setupMiscRouterForTests(t, authService, rdb, reqRateLimiter, metrics.NewTestManager())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/a/logout", nil)
	req.Header.Set("Origin", "test")
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
