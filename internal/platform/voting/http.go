package voting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"election-service/internal/domain/election"
)

// HTTPCreator posts polls straight to the voting service.
type HTTPCreator struct {
	baseURL string
	client  *http.Client
}

func NewHTTPCreator(baseURL string, timeout time.Duration) *HTTPCreator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPCreator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPCreator) CreatePoll(ctx context.Context, req election.PollRequest) error {
	body, err := json.Marshal(NewCreateData(req))
	if err != nil {
		return fmt.Errorf("voting: encode poll: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/polls/", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("voting: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("voting: post poll: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("voting: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
