//go:build integration_test || all_tests

package misc

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/vmilic/trainsync/internal/auth"
	"github.com/vmilic/trainsync/internal/telemetry/metrics"
	testingpkg "github.com/vmilic/trainsync/pkg/testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginLogout(t *testing.T) {
	_, rdb := testingpkg.GetRedisClientAndCtx(t)
	defer func() {
		assert.NoError(t, rdb.Close())
	}()

	authService := auth.NewAuthService(&auth.Admin{
		Username:     "testuser",
		PasswordHash: "$2a$14$6Gmhg85si2etd3K9oB8nYu1cxfbrdmhkg6wI6OXsa88IF4L2r/L9i", // testpass
	}, time.Hour, rdb)
	require.NotNil(t, authService)
	testToken := "test_token"
	authService.RandStringFunc = func(s int) (string, error) {
		return testToken, nil
	}

	reqRateLimiter := &testRequestRateLimiter{
		Limits: map[string]int{"login": 5},
	}
	r := setupMiscRouterForTests(t, authService, rdb, reqRateLimiter, metrics.NewTestManager())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/a/login", nil)
	req.PostForm = url.Values{}
	req.PostForm.Add("username", "testuser")
	req.PostForm.Add("password", "testpass")
	req.Header.Set("Origin", "test")

	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, fmt.Sprintf(`{"token": "%s"}`, testToken), rr.Body.String())

	// logout with the received token
	rr = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/a/logout", nil)
	req.Header.Set("Origin", "test")
	req.Header.Set("X-TRAINSYNC-TOKEN", testToken)
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "logged-out", rr.Body.String())
}
