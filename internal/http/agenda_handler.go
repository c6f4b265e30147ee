package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/physio-agenda/internal/application"
	"github.com/example/physio-agenda/internal/calendar"
)

type agendaService interface {
	Week(ctx context.Context, params application.WeekParams) (application.WeekView, error)
	Month(ctx context.Context, params application.MonthParams) (application.MonthView, error)
}

type AgendaHandler struct {
	service   agendaService
	responder responder
	logger    *slog.Logger
	location  *time.Location
	now       func() time.Time
}

// NewAgendaHandler serves the week and month views. "Today" is resolved in location.
func NewAgendaHandler(service agendaService, location *time.Location, now func() time.Time, logger *slog.Logger) *AgendaHandler {
	if location == nil {
		location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &AgendaHandler{service: service, responder: newResponder(logger), logger: logger, location: location, now: now}
}

func (h *AgendaHandler) Week(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	date := calendar.DateOf(h.now().In(h.location))
	if raw := strings.TrimSpace(r.URL.Query().Get("date")); raw != "" {
		parsed, ok := calendar.ParseDate(raw)
		if !ok {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDateQuery)
			return
		}
		date = parsed
	}

	principal, _ := PrincipalFromContext(r.Context())
	view, err := h.service.Week(r.Context(), application.WeekParams{Principal: principal, Date: date})
	if err != nil {
		handlerLogger(r.Context(), h.logger, "AgendaHandler", "Week").WarnContext(r.Context(), "week view failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toWeekResponse(view.Grid))
}

func (h *AgendaHandler) Month(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	month := calendar.StartOfMonth(calendar.DateOf(h.now().In(h.location)))
	if raw := strings.TrimSpace(r.URL.Query().Get("month")); raw != "" {
		parsed, err := time.Parse(monthLayout, raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidMonthQuery)
			return
		}
		month = parsed
	}

	principal, _ := PrincipalFromContext(r.Context())
	view, err := h.service.Month(r.Context(), application.MonthParams{Principal: principal, Month: month})
	if err != nil {
		handlerLogger(r.Context(), h.logger, "AgendaHandler", "Month").WarnContext(r.Context(), "month view failed", "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toMonthResponse(view.Grid))
}

const monthLayout = "2006-01"

type weekResponse struct {
	Start    string           `json:"start"`
	Hours    []string         `json:"hours"`
	Days     []weekDayDTO     `json:"days"`
	Total    int              `json:"total"`
	Unplaced []appointmentDTO `json:"unplaced,omitempty"`
	Skipped  []appointmentDTO `json:"skipped,omitempty"`
}

type weekDayDTO struct {
	Date  string        `json:"date"`
	Cells []weekCellDTO `json:"cells"`
}

type weekCellDTO struct {
	Hour             string           `json:"hour"`
	Layout           string           `json:"layout"`
	Count            int              `json:"count"`
	Overflow         int              `json:"overflow,omitempty"`
	PrivateCollision bool             `json:"private_collision,omitempty"`
	Appointments     []appointmentDTO `json:"appointments,omitempty"`
}

func toWeekResponse(grid calendar.WeekGrid) weekResponse {
	resp := weekResponse{
		Start:    calendar.DateKey(grid.Start),
		Hours:    append([]string(nil), grid.Hours...),
		Days:     make([]weekDayDTO, 0, len(grid.Cells)),
		Total:    grid.Total(),
		Unplaced: fromCalendarAppointments(grid.Unplaced),
		Skipped:  fromCalendarAppointments(grid.Skipped),
	}
	for i, column := range grid.Cells {
		day := weekDayDTO{Cells: make([]weekCellDTO, 0, len(column))}
		if i < len(grid.Days) {
			day.Date = calendar.DateKey(grid.Days[i])
		}
		for _, cell := range column {
			day.Cells = append(day.Cells, toWeekCellDTO(cell))
		}
		resp.Days = append(resp.Days, day)
	}
	return resp
}

func toWeekCellDTO(cell calendar.WeekCell) weekCellDTO {
	dto := weekCellDTO{
		Hour:             cell.Hour,
		Layout:           cell.Layout.String(),
		Count:            cell.Count(),
		Overflow:         cell.Overflow(),
		PrivateCollision: cell.PrivateCollision(),
	}
	for i, appt := range cell.Visible() {
		entry := fromCalendarAppointment(appt)
		if row, col, ok := cell.Position(i); ok {
			entry.Row, entry.Col = &row, &col
		}
		dto.Appointments = append(dto.Appointments, entry)
	}
	return dto
}

type monthResponse struct {
	Month         string           `json:"month"`
	PaddingBefore int              `json:"padding_before"`
	PaddingAfter  int              `json:"padding_after"`
	Cells         []monthCellDTO   `json:"cells"`
	Skipped       []appointmentDTO `json:"skipped,omitempty"`
}

type monthCellDTO struct {
	Date         string           `json:"date"`
	CurrentMonth bool             `json:"current_month"`
	Count        int              `json:"count"`
	More         int              `json:"more,omitempty"`
	Appointments []appointmentDTO `json:"appointments,omitempty"`
}

func toMonthResponse(grid calendar.MonthGrid) monthResponse {
	resp := monthResponse{
		Month:         grid.Month.Format(monthLayout),
		PaddingBefore: grid.PaddingBefore(),
		PaddingAfter:  grid.PaddingAfter(),
		Cells:         make([]monthCellDTO, 0, len(grid.Cells)),
		Skipped:       fromCalendarAppointments(grid.Skipped),
	}
	for _, cell := range grid.Cells {
		resp.Cells = append(resp.Cells, monthCellDTO{
			Date:         calendar.DateKey(cell.Date),
			CurrentMonth: cell.CurrentMonth,
			Count:        cell.Count(),
			More:         cell.More(),
			Appointments: fromCalendarAppointments(cell.Visible()),
		})
	}
	return resp
}
