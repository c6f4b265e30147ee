package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/physio-agenda/internal/application"
)

type appointmentService interface {
	Execute(ctx context.Context, params application.TransitionParams) (application.Appointment, error)
	Cancel(ctx context.Context, params application.TransitionParams) (application.Appointment, error)
	Reschedule(ctx context.Context, params application.RescheduleParams) (application.Appointment, []application.Warning, error)
}

type AppointmentHandler struct {
	service   appointmentService
	responder responder
	logger    *slog.Logger
}

func NewAppointmentHandler(service appointmentService, logger *slog.Logger) *AppointmentHandler {
	return &AppointmentHandler{service: service, responder: newResponder(logger), logger: logger}
}

func (h *AppointmentHandler) Execute(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Execute")
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Cancel")
}

func (h *AppointmentHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	appt, warnings, err := h.service.Reschedule(r.Context(), application.RescheduleParams{
		Principal:     principal,
		AppointmentID: id,
		Date:          req.Date,
		Time:          req.Time,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, appointmentResponse{
		Appointment: toAppointmentDTO(appt),
		Warnings:    toWarningDTOs(warnings),
	})
}

func (h *AppointmentHandler) transition(w http.ResponseWriter, r *http.Request, operation string) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	params := application.TransitionParams{Principal: principal, AppointmentID: id}

	var (
		appt application.Appointment
		err  error
	)
	if operation == "Execute" {
		appt, err = h.service.Execute(r.Context(), params)
	} else {
		appt, err = h.service.Cancel(r.Context(), params)
	}
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "AppointmentHandler", operation).InfoContext(r.Context(), "appointment status changed", "appointment_id", id, "status", appt.Status)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, appointmentResponse{Appointment: toAppointmentDTO(appt)})
}

func (h *AppointmentHandler) appointmentID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return "", false
	}
	id, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidAppointment)
		return "", false
	}
	return id, true
}

type rescheduleRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type appointmentResponse struct {
	Appointment appointmentDTO `json:"appointment"`
	Warnings    []warningDTO   `json:"warnings,omitempty"`
}
