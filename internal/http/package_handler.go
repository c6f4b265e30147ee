package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/physio-agenda/internal/application"
	"github.com/example/physio-agenda/internal/calendar"
	"github.com/example/physio-agenda/internal/icalexport"
)

type packageService interface {
	Preview(ctx context.Context, params application.CreatePackageParams) (application.PackagePreview, []application.Warning, error)
	CreatePackage(ctx context.Context, params application.CreatePackageParams) (application.SessionPackage, []application.Warning, error)
	GetPackage(ctx context.Context, principal application.Principal, id string) (application.SessionPackage, error)
}

type PackageHandler struct {
	service   packageService
	export    icalexport.Options
	responder responder
	logger    *slog.Logger
}

// NewPackageHandler serves session package routes. export configures the calendar feed.
func NewPackageHandler(service packageService, export icalexport.Options, logger *slog.Logger) *PackageHandler {
	return &PackageHandler{service: service, export: export, responder: newResponder(logger), logger: logger}
}

func (h *PackageHandler) Preview(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req packageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	preview, warnings, err := h.service.Preview(r.Context(), application.CreatePackageParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, previewResponse{
		Requested:    preview.Requested,
		Shortfall:    preview.Shortfall,
		Appointments: toAppointmentDTOs(preview.Appointments),
		Warnings:     toWarningDTOs(warnings),
	})
}

func (h *PackageHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req packageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	pkg, warnings, err := h.service.CreatePackage(r.Context(), application.CreatePackageParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "PackageHandler", "Create").InfoContext(r.Context(), "session package submitted", "package_id", pkg.ID)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, packageResponse{
		Package:  toPackageDTO(pkg),
		Warnings: toWarningDTOs(warnings),
	})
}

func (h *PackageHandler) Get(w http.ResponseWriter, r *http.Request) {
	pkg, ok := h.load(w, r)
	if !ok {
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, packageResponse{Package: toPackageDTO(pkg)})
}

func (h *PackageHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	pkg, ok := h.load(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := icalexport.EncodePackage(&buf, pkg, h.export); err != nil {
		if errors.Is(err, icalexport.ErrEmptyPackage) {
			h.responder.writeError(r.Context(), w, http.StatusNotFound, nil)
			return
		}
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="pacote-`+pkg.ID+`.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		handlerLogger(r.Context(), h.logger, "PackageHandler", "Calendar").ErrorContext(r.Context(), "failed to write calendar", "error", err)
	}
}

func (h *PackageHandler) load(w http.ResponseWriter, r *http.Request) (application.SessionPackage, bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return application.SessionPackage{}, false
	}

	id, ok := ResourceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPackageID)
		return application.SessionPackage{}, false
	}

	principal, _ := PrincipalFromContext(r.Context())
	pkg, err := h.service.GetPackage(r.Context(), principal, id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return application.SessionPackage{}, false
	}
	return pkg, true
}

type slotRequest struct {
	Weekday string `json:"weekday"`
	Time    string `json:"time"`
}

type packageRequest struct {
	PatientID    string        `json:"patient_id"`
	PatientName  string        `json:"patient_name"`
	Type         string        `json:"type"`
	Category     string        `json:"category"`
	Color        string        `json:"color"`
	Room         *string       `json:"room"`
	HealthPlanID *int64        `json:"health_plan_id"`
	StartDate    string        `json:"start_date"`
	TargetCount  int           `json:"target_count"`
	Slots        []slotRequest `json:"slots"`
}

func (r packageRequest) toInput() application.PackageInput {
	slots := make([]application.SlotInput, 0, len(r.Slots))
	for _, slot := range r.Slots {
		slots = append(slots, application.SlotInput{Weekday: slot.Weekday, Time: slot.Time})
	}
	return application.PackageInput{
		PatientID:    strings.TrimSpace(r.PatientID),
		PatientName:  strings.TrimSpace(r.PatientName),
		Type:         strings.TrimSpace(r.Type),
		Category:     r.Category,
		Color:        strings.TrimSpace(r.Color),
		Room:         r.Room,
		HealthPlanID: r.HealthPlanID,
		StartDate:    r.StartDate,
		TargetCount:  r.TargetCount,
		Slots:        slots,
	}
}

type previewResponse struct {
	Requested    int              `json:"requested"`
	Shortfall    int              `json:"shortfall"`
	Appointments []appointmentDTO `json:"appointments"`
	Warnings     []warningDTO     `json:"warnings,omitempty"`
}

type packageResponse struct {
	Package  packageDTO   `json:"package"`
	Warnings []warningDTO `json:"warnings,omitempty"`
}

type packageDTO struct {
	ID           string           `json:"id"`
	PatientID    string           `json:"patient_id"`
	PatientName  string           `json:"patient_name"`
	Type         string           `json:"type"`
	Category     string           `json:"category"`
	Color        string           `json:"color,omitempty"`
	Room         *string          `json:"room,omitempty"`
	HealthPlanID *int64           `json:"health_plan_id,omitempty"`
	StartDate    string           `json:"start_date"`
	TargetCount  int              `json:"target_count"`
	Slots        []slotRequest    `json:"slots"`
	CreatedAt    string           `json:"created_at,omitempty"`
	Appointments []appointmentDTO `json:"appointments"`
}

func toPackageDTO(pkg application.SessionPackage) packageDTO {
	slots := make([]slotRequest, 0, len(pkg.Slots))
	for _, slot := range pkg.Slots {
		slots = append(slots, slotRequest{Weekday: strings.ToLower(slot.Weekday.String()), Time: slot.Time})
	}
	dto := packageDTO{
		ID:           pkg.ID,
		PatientID:    pkg.PatientID,
		PatientName:  pkg.PatientName,
		Type:         pkg.Type,
		Category:     string(pkg.Category),
		Color:        pkg.Color,
		Room:         pkg.Room,
		HealthPlanID: pkg.HealthPlanID,
		StartDate:    calendar.DateKey(pkg.StartDate),
		TargetCount:  pkg.TargetCount,
		Slots:        slots,
		Appointments: toAppointmentDTOs(pkg.Appointments),
	}
	if !pkg.CreatedAt.IsZero() {
		dto.CreatedAt = pkg.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return dto
}
