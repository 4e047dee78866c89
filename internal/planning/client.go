// Package planning holds the client for the external planning API, the
// only source of truth for user calendars. The upstream is unreliable:
// callers must treat every error here as retryable-later, never fatal.
package planning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"aurioncal/internal/logging"
)

var (
	// ErrUnreachable covers network errors, timeouts and non-2xx replies.
	ErrUnreachable = errors.New("planning source unreachable")
	// ErrRejected means the source answered but flagged the request as
	// failed (typically bad credentials).
	ErrRejected = errors.New("planning source rejected request")
	// ErrMalformed means the response body could not be decoded or the
	// success payload was missing its data.
	ErrMalformed = errors.New("planning source response malformed")
)

const (
	planningRoute   = "aurion/planning"
	checkLoginRoute = "aurion/check-login"
)

// RawEvent is one planning entry exactly as the source reports it, before
// any normalization.
type RawEvent struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Start      APITime `json:"start"`
	End        APITime `json:"end"`
	AllDay     bool    `json:"allDay"`
	Editable   bool    `json:"editable"`
	CourseType string  `json:"className"`
}

type Client struct {
	baseURL string
	httpc   *http.Client
	log     *slog.Logger
}

func NewClient(baseURL string, log *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   newHTTPClient(),
		log:     log,
	}
}

// Window returns the fetch window used for every reconciliation: one week
// back for recently passed events, two months ahead.
func Window(now time.Time) (from, to time.Time) {
	return now.AddDate(0, 0, -7), now.AddDate(0, 2, 0)
}

type fetchRequest struct {
	Email     string  `json:"email"`
	Password  string  `json:"password"`
	StartDate APITime `json:"startDate"`
	EndDate   APITime `json:"endDate"`
}

type fetchResponse struct {
	Success bool        `json:"success"`
	Data    *[]RawEvent `json:"data"`
}

// FetchEvents retrieves the raw planning for one user over [from, to].
func (c *Client) FetchEvents(ctx context.Context, email, password string, from, to time.Time) ([]RawEvent, error) {
	body, err := c.post(ctx, planningRoute, fetchRequest{
		Email:     email,
		Password:  password,
		StartDate: APITime{from},
		EndDate:   APITime{to},
	})
	if err != nil {
		return nil, err
	}

	var resp fetchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		c.log.Warn("planning_decode_failed", "email", logging.MaskEmail(email), "error", err)
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !resp.Success {
		return nil, ErrRejected
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: success without data", ErrMalformed)
	}
	return *resp.Data, nil
}

type checkLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type checkLoginResponse struct {
	Success bool    `json:"success"`
	Error   *string `json:"error"`
}

// CheckLogin validates credentials against the source. A false return with
// a nil error means the source answered and refused them.
func (c *Client) CheckLogin(ctx context.Context, email, password string) (bool, error) {
	body, err := c.post(ctx, checkLoginRoute, checkLoginRequest{
		Email:    strings.ToLower(strings.TrimSpace(email)),
		Password: password,
	})
	if err != nil {
		return false, err
	}

	var resp checkLoginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return resp.Success, nil
}

func (c *Client) post(ctx context.Context, route string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := c.baseURL + "/" + route
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		c.log.Warn("planning_request_failed", "route", route, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	c.log.Debug("planning_request",
		"route", route,
		"status", resp.StatusCode,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}
	return buf.Bytes(), nil
}
