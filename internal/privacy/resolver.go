package privacy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/vmilic/trainsync/internal/feed"
	"github.com/vmilic/trainsync/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	oneMinute          = 60
	visibilityCacheTTL = oneMinute * 10
)

// Resolver fetches the per-user feed visibility scope from the privacy
// service. Responses are cached for a few minutes; visibility changes
// rarely and the sync engine asks once per imported activity.
type Resolver struct {
	baseURL    string
	httpClient *http.Client
	cache      *freecache.Cache
}

func NewResolver(baseURL string, httpClient *http.Client) *Resolver {
	megabyte := 1024 * 1024
	return &Resolver{
		baseURL:    baseURL,
		httpClient: httpClient,
		cache:      freecache.NewCache(1 * megabyte),
	}
}

type visibilityResponse struct {
	Visibility string `json:"visibility"`
}

// VisibilityFor returns the validated visibility scope for the user.
// Unknown or malformed scopes are rejected at this boundary and
// reported as errors; callers decide the fallback (the sync engine
// falls back to private).
func (r *Resolver) VisibilityFor(ctx context.Context, userID string) (_ feed.Visibility, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "privacy.visibilityFor")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	cacheKey := []byte("visibility::" + userID)
	if cached, err := r.cache.Get(cacheKey); err == nil {
		return feed.Visibility(cached), nil
	}

	req, err := http.NewRequestWithContext(
		ctx, "GET",
		fmt.Sprintf("%s/users/%s/visibility", r.baseURL, userID),
		nil,
	)
	if err != nil {
		return "", err
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response bytes: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("privacy service returned %d: %s", resp.StatusCode, respBytes)
	}

	var vr visibilityResponse
	if err := json.Unmarshal(respBytes, &vr); err != nil {
		return "", fmt.Errorf("unmarshal visibility response: %w", err)
	}

	visibility := feed.Visibility(vr.Visibility)
	if !visibility.IsValid() {
		return "", fmt.Errorf("invalid visibility scope: %q", vr.Visibility)
	}

	span.SetAttributes(attribute.String("visibility", visibility.String()))

	if err := r.cache.Set(cacheKey, []byte(visibility), visibilityCacheTTL); err != nil {
		log.Errorf("failed to cache visibility for user %s: %s", userID, err)
	}

	return visibility, nil
}
