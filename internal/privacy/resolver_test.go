package privacy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vmilic/trainsync/internal/feed"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestResolver_VisibilityFor(t *testing.T) {
	var requestCount int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		require.Equal(t, "/users/u1/visibility", r.URL.Path)
		_, err := w.Write([]byte(`{"visibility":"FRIENDS"}`))
		require.NoError(t, err)
	}))
	defer server.Close()

	resolver := NewResolver(server.URL, server.Client())

	visibility, err := resolver.VisibilityFor(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, feed.VisibilityFriends, visibility)

	// second lookup is served from cache
	visibility, err = resolver.VisibilityFor(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, feed.VisibilityFriends, visibility)
	assert.Equal(t, 1, requestCount)
}

func TestResolver_VisibilityFor_invalidScope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte(`{"visibility":"EVERYONE"}`))
		require.NoError(t, err)
	}))
	defer server.Close()

	resolver := NewResolver(server.URL, server.Client())
	_, err := resolver.VisibilityFor(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid visibility scope")
}

func TestResolver_VisibilityFor_serverError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	resolver := NewResolver(server.URL, server.Client())
	_, err := resolver.VisibilityFor(context.Background(), "u1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
