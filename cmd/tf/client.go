package main

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

	"github.com/timeforged/timeforged/internal/activity"
	"github.com/timeforged/timeforged/internal/server"
	"github.com/timeforged/timeforged/internal/watchlist"
)

// ErrDaemonUnavailable is returned when the daemon cannot be reached.
var ErrDaemonUnavailable = errors.New("daemon is not running")

// Client talks to the daemon's HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the daemon at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// ReportRange is the from/to/project selection for report endpoints.
type ReportRange struct {
	From    time.Time
	To      time.Time
	Project string
}

func (r ReportRange) query() url.Values {
	q := url.Values{}
	if !r.From.IsZero() {
		q.Set("from", r.From.UTC().Format(time.RFC3339))
	}
	if !r.To.IsZero() {
		q.Set("to", r.To.UTC().Format(time.RFC3339))
	}
	if r.Project != "" {
		q.Set("project", r.Project)
	}
	return q
}

// Status fetches /api/v1/status.
func (c *Client) Status(ctx context.Context) (*server.StatusResponse, error) {
	var out server.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Summary fetches the summary report.
func (c *Client) Summary(ctx context.Context, r ReportRange) (*activity.Summary, error) {
	var out activity.Summary
	if err := c.do(ctx, http.MethodGet, "/api/v1/reports/summary", r.query(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sessions fetches the sessions report.
func (c *Client) Sessions(ctx context.Context, r ReportRange) ([]activity.Session, error) {
	var out []activity.Session
	if err := c.do(ctx, http.MethodGet, "/api/v1/reports/sessions", r.query(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Activity fetches the hour-of-day report.
func (c *Client) Activity(ctx context.Context, r ReportRange) ([]activity.HourlyActivity, error) {
	var out []activity.HourlyActivity
	if err := c.do(ctx, http.MethodGet, "/api/v1/reports/activity", r.query(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendEvent records one event.
func (c *Client) SendEvent(ctx context.Context, req *server.EventRequest) (*activity.Event, error) {
	var out activity.Event
	if err := c.do(ctx, http.MethodPost, "/api/v1/events", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Watched lists the daemon's watch list.
func (c *Client) Watched(ctx context.Context) ([]watchlist.Entry, error) {
	var out []watchlist.Entry
	if err := c.do(ctx, http.MethodGet, "/api/v1/watch", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Watch asks the daemon to watch path.
func (c *Client) Watch(ctx context.Context, path string) (string, error) {
	var out server.WatchChangedData
	err := c.do(ctx, http.MethodPost, "/api/v1/watch", nil, server.WatchRequest{Path: path}, &out)
	return out.Path, err
}

// Unwatch asks the daemon to stop watching path.
func (c *Client) Unwatch(ctx context.Context, path string) (string, error) {
	var out server.WatchChangedData
	err := c.do(ctx, http.MethodDelete, "/api/v1/watch", nil, server.WatchRequest{Path: path}, &out)
	return out.Path, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w at %s: %v", ErrDaemonUnavailable, c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return errors.New(apiErr.Error)
		}
		return fmt.Errorf("HTTP %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
