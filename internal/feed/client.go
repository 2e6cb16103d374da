package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/vmilic/trainsync/internal/telemetry/tracing"
)

// Sink receives feed events. Implementations are fire-and-forget from
// the caller's point of view: a sink failure must never undo the
// storage write that preceded it.
type Sink interface {
	CreateEvent(ctx context.Context, event Event) error
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ Sink = (*Client)(nil)

func NewClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

func (c *Client) CreateEvent(ctx context.Context, event Event) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "feed.createEvent")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if !event.Visibility.IsValid() {
		return fmt.Errorf("invalid visibility: %q", event.Visibility)
	}

	eventJson, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, "POST",
		c.baseURL+"/events",
		bytes.NewReader(eventJson),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("feed service returned %d: %s", resp.StatusCode, respBytes)
	}

	return nil
}

// TestSink collects events in memory, for unit tests.
type TestSink struct {
	mutex     sync.Mutex
	Events    []Event
	CreateErr error
}

var _ Sink = (*TestSink)(nil)

func (s *TestSink) CreateEvent(_ context.Context, event Event) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.Events = append(s.Events, event)
	return nil
}
