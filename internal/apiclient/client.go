// Package apiclient talks to the remote clinic REST API that owns appointments
// and session packages when the agenda runs in front of it.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/physio-agenda/internal/calendar"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 300
)

// ErrNotFound is returned when the upstream answers 404.
var ErrNotFound = errors.New("apiclient: not found")

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("apiclient: status %d: %s", e.StatusCode, e.Body)
}

// Unwrap lets errors.Is match ErrNotFound on 404 responses.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

// Session carries the caller's bearer token. It is passed explicitly on every
// call; the client keeps no authentication state of its own.
type Session struct {
	Token string
}

// Client is a small JSON client for the clinic API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for baseURL. Non-positive timeouts use the default.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Appointment is the appointment record exchanged with the clinic API.
type Appointment struct {
	ID           string  `json:"id"`
	PackageID    *string `json:"session_package_id,omitempty"`
	PatientID    string  `json:"patient_id"`
	PatientName  string  `json:"patient_name"`
	Date         *string `json:"date"`
	Time         *string `json:"scheduled_time"`
	Type         string  `json:"type"`
	Status       string  `json:"status"`
	Category     string  `json:"category"`
	Color        string  `json:"color"`
	Room         *string `json:"room,omitempty"`
	HealthPlanID *int64  `json:"health_plan_id,omitempty"`
}

// Calendar converts the record into the agenda's read model. Unknown
// categories are kept verbatim so that the grid can still place the record.
func (a Appointment) Calendar() calendar.Appointment {
	category, ok := calendar.ParseCategory(a.Category)
	if !ok {
		category = calendar.Category(a.Category)
	}
	return calendar.Appointment{
		ID:            a.ID,
		PatientID:     a.PatientID,
		PatientName:   a.PatientName,
		Date:          a.Date,
		ScheduledTime: a.Time,
		Type:          a.Type,
		Status:        a.Status,
		Category:      category,
		Color:         a.Color,
		Room:          a.Room,
		HealthPlanID:  a.HealthPlanID,
	}
}

// PackageSlot is a weekly slot of a session package.
type PackageSlot struct {
	Weekday string `json:"weekday"`
	Time    string `json:"time"`
}

// PackageAppointment is one generated session submitted with a package.
type PackageAppointment struct {
	ID           string  `json:"id,omitempty"`
	Date         string  `json:"date"`
	Time         string  `json:"time"`
	Category     string  `json:"category"`
	Room         *string `json:"room"`
	HealthPlanID *int64  `json:"health_plan_id"`
	Status       string  `json:"status"`
}

// CreatePackageRequest is the body of POST /session_packages.
type CreatePackageRequest struct {
	ID           string               `json:"id,omitempty"`
	PatientID    string               `json:"patient_id"`
	PatientName  string               `json:"patient_name"`
	Type         string               `json:"type"`
	Category     string               `json:"category"`
	Color        string               `json:"color,omitempty"`
	Room         *string              `json:"room"`
	HealthPlanID *int64               `json:"health_plan_id"`
	StartDate    string               `json:"start_date"`
	TargetCount  int                  `json:"target_count"`
	Slots        []PackageSlot        `json:"slots"`
	Appointments []PackageAppointment `json:"appointments"`
}

// SessionPackage is a session package as returned by the clinic API.
type SessionPackage struct {
	ID           string        `json:"id"`
	PatientID    string        `json:"patient_id"`
	PatientName  string        `json:"patient_name"`
	Type         string        `json:"type"`
	Category     string        `json:"category"`
	Color        string        `json:"color"`
	Room         *string       `json:"room"`
	HealthPlanID *int64        `json:"health_plan_id"`
	StartDate    string        `json:"start_date"`
	TargetCount  int           `json:"target_count"`
	Slots        []PackageSlot `json:"slots"`
	CreatedAt    time.Time     `json:"created_at"`
	Appointments []Appointment `json:"appointments"`
}

type rescheduleRequest struct {
	Date string `json:"date"`
	Time string `json:"scheduled_time"`
}

// ListAppointments fetches every appointment dated within [from, to].
func (c *Client) ListAppointments(ctx context.Context, session Session, from, to time.Time) ([]Appointment, error) {
	query := url.Values{}
	query.Set("start_date", calendar.DateKey(from))
	query.Set("end_date", calendar.DateKey(to))

	var out []Appointment
	if err := c.do(ctx, http.MethodGet, "/appointments?"+query.Encode(), session, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAppointment fetches a single appointment.
func (c *Client) GetAppointment(ctx context.Context, session Session, id string) (Appointment, error) {
	var out Appointment
	if err := c.do(ctx, http.MethodGet, "/appointments/"+url.PathEscape(id), session, nil, &out); err != nil {
		return Appointment{}, err
	}
	return out, nil
}

// CreateSessionPackage submits a package and its generated appointments.
func (c *Client) CreateSessionPackage(ctx context.Context, session Session, req CreatePackageRequest) (SessionPackage, error) {
	var out SessionPackage
	if err := c.do(ctx, http.MethodPost, "/session_packages", session, req, &out); err != nil {
		return SessionPackage{}, err
	}
	if out.ID == "" {
		return SessionPackage{}, fmt.Errorf("apiclient: create session package returned empty id")
	}
	return out, nil
}

// GetSessionPackage fetches a package without its appointments.
func (c *Client) GetSessionPackage(ctx context.Context, session Session, id string) (SessionPackage, error) {
	var out SessionPackage
	if err := c.do(ctx, http.MethodGet, "/session_packages/"+url.PathEscape(id), session, nil, &out); err != nil {
		return SessionPackage{}, err
	}
	return out, nil
}

// ListPackageAppointments fetches the appointments generated for a package.
func (c *Client) ListPackageAppointments(ctx context.Context, session Session, packageID string) ([]Appointment, error) {
	var out []Appointment
	path := "/session_packages/" + url.PathEscape(packageID) + "/appointments"
	if err := c.do(ctx, http.MethodGet, path, session, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExecuteAppointment marks a pending appointment as performed.
func (c *Client) ExecuteAppointment(ctx context.Context, session Session, id string) (Appointment, error) {
	return c.transition(ctx, session, id, "execute")
}

// CancelAppointment cancels a pending appointment.
func (c *Client) CancelAppointment(ctx context.Context, session Session, id string) (Appointment, error) {
	return c.transition(ctx, session, id, "cancel")
}

// RescheduleAppointment moves an appointment to a new date and time.
func (c *Client) RescheduleAppointment(ctx context.Context, session Session, id, date, clock string) (Appointment, error) {
	var out Appointment
	body := rescheduleRequest{Date: date, Time: clock}
	if err := c.do(ctx, http.MethodPatch, "/appointments/"+url.PathEscape(id), session, body, &out); err != nil {
		return Appointment{}, err
	}
	return out, nil
}

func (c *Client) transition(ctx context.Context, session Session, id, action string) (Appointment, error) {
	var out Appointment
	path := "/appointments/" + url.PathEscape(id) + "/" + action
	if err := c.do(ctx, http.MethodPost, path, session, nil, &out); err != nil {
		return Appointment{}, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, session Session, payload, out any) error {
	if c == nil {
		return fmt.Errorf("apiclient: client is nil")
	}
	if c.baseURL == "" {
		return fmt.Errorf("apiclient: missing base url")
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("apiclient: marshal request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("apiclient: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := strings.TrimSpace(session.Token); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("apiclient: read response: %w", err)
	}
	c.logger.DebugContext(ctx, "upstream request completed",
		"method", method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(respBody))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return &StatusError{StatusCode: resp.StatusCode, Body: msg}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("apiclient: unmarshal response: %w", err)
	}
	return nil
}
