package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/Nixie-Tech-LLC/pausetime/internal/model"
)

const maxResponseBytes = 1 << 20

// APIError is a non-success answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.Status)
	}
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// envelope covers the {"success": ..., "error": ...} wrapper most endpoints use.
type envelope struct {
	Success   *bool            `json:"success"`
	Error     string           `json:"error"`
	Enabled   *bool            `json:"enabled"`
	Schedule  *model.Schedule  `json:"schedule"`
	Schedules []model.Schedule `json:"schedules"`
	Settings  *model.Settings  `json:"settings"`
}

// Client talks to the PauseTime backend.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var env envelope
		_ = json.Unmarshal(data, &env)
		return &APIError{Status: resp.StatusCode, Message: env.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) doEnvelope(ctx context.Context, method, path string, in any) (envelope, error) {
	var env envelope
	if err := c.do(ctx, method, path, in, &env); err != nil {
		return env, err
	}
	if env.Success != nil && !*env.Success {
		return env, &APIError{Status: http.StatusOK, Message: env.Error}
	}
	return env, nil
}

func (c *Client) GetState(ctx context.Context) (model.StateReport, error) {
	var report model.StateReport
	err := c.do(ctx, http.MethodGet, "/state", nil, &report)
	return report, err
}

// Toggle enables or disables the backend pause system and returns the new flag.
func (c *Client) Toggle(ctx context.Context, enabled bool) (bool, error) {
	env, err := c.doEnvelope(ctx, http.MethodPost, "/state/toggle", map[string]bool{"enabled": enabled})
	if err != nil {
		return false, err
	}
	if env.Enabled == nil {
		return enabled, nil
	}
	return *env.Enabled, nil
}

func (c *Client) GetPrayerTimes(ctx context.Context) (model.PrayerTimeTable, error) {
	var resp model.PrayerTimesResponse
	if err := c.do(ctx, http.MethodGet, "/api/prayer-times", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Table()
}

func (c *Client) ListSchedules(ctx context.Context) ([]model.Schedule, error) {
	env, err := c.doEnvelope(ctx, http.MethodGet, "/api/schedules", nil)
	if err != nil {
		return nil, err
	}
	if env.Schedules == nil {
		return []model.Schedule{}, nil
	}
	return env.Schedules, nil
}

func (c *Client) CreateSchedule(ctx context.Context, in model.ScheduleInput) (model.Schedule, error) {
	env, err := c.doEnvelope(ctx, http.MethodPost, "/api/schedules", in)
	if err != nil {
		return model.Schedule{}, err
	}
	if env.Schedule == nil {
		return model.Schedule{}, fmt.Errorf("create schedule: response has no schedule")
	}
	return *env.Schedule, nil
}

func (c *Client) UpdateSchedule(ctx context.Context, id int, in model.ScheduleUpdate) (model.Schedule, error) {
	env, err := c.doEnvelope(ctx, http.MethodPut, "/api/schedules/"+strconv.Itoa(id), in)
	if err != nil {
		return model.Schedule{}, err
	}
	if env.Schedule == nil {
		return model.Schedule{}, fmt.Errorf("update schedule: response has no schedule")
	}
	return *env.Schedule, nil
}

func (c *Client) DeleteSchedule(ctx context.Context, id int) error {
	_, err := c.doEnvelope(ctx, http.MethodDelete, "/api/schedules/"+strconv.Itoa(id), nil)
	return err
}

func (c *Client) GetSettings(ctx context.Context) (model.Settings, error) {
	env, err := c.doEnvelope(ctx, http.MethodGet, "/settings", nil)
	if err != nil {
		return model.Settings{}, err
	}
	if env.Settings == nil {
		return model.Settings{}, fmt.Errorf("get settings: response has no settings")
	}
	return *env.Settings, nil
}

func (c *Client) UpdateSettings(ctx context.Context, in model.SettingsUpdate) (model.Settings, error) {
	env, err := c.doEnvelope(ctx, http.MethodPut, "/settings", in)
	if err != nil {
		return model.Settings{}, err
	}
	if env.Settings == nil {
		return model.Settings{}, fmt.Errorf("update settings: response has no settings")
	}
	return *env.Settings, nil
}
