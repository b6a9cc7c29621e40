// Package meeting resolves human-entered meeting codes against the meeting service.
package meeting

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"election-service/internal/domain/election"
)

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type codeResponse struct {
	MeetingID *int64 `json:"meeting_id"`
}

// ResolveMeetingCode calls GET {base}/code/{code}. A 404 or a body without a
// meeting id is ErrMeetingNotFound; anything else that goes wrong is
// ErrUpstreamUnavailable.
func (c *Client) ResolveMeetingCode(ctx context.Context, code string) (int64, error) {
	endpoint := c.baseURL + "/code/" + url.PathEscape(code)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: build request: %w", election.ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: meeting service: %w", election.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("%w: code %q", election.ErrMeetingNotFound, code)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, fmt.Errorf("%w: meeting service returned %d", election.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var body codeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return 0, fmt.Errorf("%w: decode meeting response: %w", election.ErrUpstreamUnavailable, err)
	}
	if body.MeetingID == nil || *body.MeetingID <= 0 {
		return 0, fmt.Errorf("%w: code %q has no meeting id", election.ErrMeetingNotFound, code)
	}
	return *body.MeetingID, nil
}
