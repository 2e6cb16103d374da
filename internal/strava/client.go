package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vmilic/trainsync/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// example API call
// https://www.strava.com/api/v3/athlete/activities?page=1&per_page=50

const (
	DefaultBaseURL = "https://www.strava.com/api/v3"

	defaultPerPage   = 50
	defaultPageDelay = 500 * time.Millisecond
)

// Activity is one activity summary as returned by the provider.
type Activity struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Type           string  `json:"type"` // e.g. "Run", "TrailRun", "Ride", "VirtualRide"
	StartDateLocal string  `json:"start_date_local"`
	ElapsedTime    int     `json:"elapsed_time"` // seconds
	MovingTime     int     `json:"moving_time"`  // seconds
	Distance       float64 `json:"distance"`     // meters
	AvgHeartRate   float64 `json:"average_heartrate"`
	MaxHeartRate   float64 `json:"max_heartrate"`
	Calories       float64 `json:"calories"`
	Splits         []Split `json:"splits_metric,omitempty"`
}

type Split struct {
	Split       int     `json:"split"`
	Distance    float64 `json:"distance"`     // meters
	ElapsedTime int     `json:"elapsed_time"` // seconds
}

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("strava api error [%d]: %s", e.StatusCode, e.Message)
}

type ListParams struct {
	After   *time.Time
	Before  *time.Time
	Page    int
	PerPage int
}

type Client struct {
	baseURL    string
	httpClient *http.Client

	// page size and inter-page delay, overridable in tests
	PerPage   int
	PageDelay time.Duration
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		PerPage:    defaultPerPage,
		PageDelay:  defaultPageDelay,
	}
}

// List fetches one page of athlete activities.
func (c *Client) List(ctx context.Context, accessToken string, params ListParams) (_ []Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "strava.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", params.Page))

	if params.Page < 1 {
		return nil, fmt.Errorf("page must be greater than 0")
	}
	perPage := params.PerPage
	if perPage < 1 {
		perPage = c.PerPage
	}

	url := fmt.Sprintf("%s/athlete/activities?page=%d&per_page=%d", c.baseURL, params.Page, perPage)
	if params.After != nil {
		url += fmt.Sprintf("&after=%d", params.After.Unix())
	}
	if params.Before != nil {
		url += fmt.Sprintf("&before=%d", params.Before.Unix())
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response bytes: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(respBytes),
		}
	}

	var listed []Activity
	if err := json.Unmarshal(respBytes, &listed); err != nil {
		return nil, fmt.Errorf("unmarshal activities: %w", err)
	}

	return listed, nil
}

// ListAll pages through the whole activity list, one page at a time,
// with a short delay between pages to respect upstream rate limits.
// The loop stops when a page comes back shorter than requested. Any
// page failure fails the whole listing - a partial list must not be
// treated as complete.
func (c *Client) ListAll(ctx context.Context, accessToken string, after, before *time.Time) (_ []Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "strava.listAll")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var all []Activity
	for page := 1; ; page++ {
		listed, err := c.List(ctx, accessToken, ListParams{
			After:   after,
			Before:  before,
			Page:    page,
			PerPage: c.PerPage,
		})
		if err != nil {
			return nil, fmt.Errorf("list page %d: %w", page, err)
		}

		all = append(all, listed...)
		log.Debugf("strava: fetched page %d, %d activities", page, len(listed))

		if len(listed) < c.PerPage {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.PageDelay):
		}
	}

	span.SetAttributes(attribute.Int("activities.total", len(all)))
	return all, nil
}
