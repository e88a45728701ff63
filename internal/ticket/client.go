package ticket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"incidentdesk/internal/domain"
	"incidentdesk/internal/metrics"
)

var ErrNotConfigured = errors.New("ticket endpoint is not configured")

type Config struct {
	BaseURL string
	BaseID  string
	APIKey  string
	Table   string
	Timeout time.Duration
}

// Client creates one ticket per submitted incident in an Airtable-style
// table endpoint.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	c := &Client{
		apiKey: strings.TrimSpace(cfg.APIKey),
		http:   &http.Client{Timeout: cfg.Timeout},
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base != "" && cfg.BaseID != "" && cfg.Table != "" {
		c.endpoint = base + "/v0/" + url.PathEscape(cfg.BaseID) + "/" + url.PathEscape(cfg.Table)
	}
	return c
}

func (c *Client) Enabled() bool {
	return c != nil && c.endpoint != "" && c.apiKey != ""
}

type createRequest struct {
	Records []createRecord `json:"records"`
}

type createRecord struct {
	Fields domain.IncidentRecord `json:"fields"`
}

// Submit posts record and succeeds on any 2xx status. There is no retry.
func (c *Client) Submit(ctx context.Context, record domain.IncidentRecord) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}
	body, err := json.Marshal(createRequest{Records: []createRecord{{Fields: record}}})
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	metrics.ObserveTicketLatency(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("ticket request: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ticket status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}
