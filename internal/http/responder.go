package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/example/physio-agenda/internal/application"
)

var (
	errBadRequestBody      = errors.New("Formato de requisição inválido.")
	errInvalidPackageID    = errors.New("ID de pacote inválido.")
	errInvalidAppointment  = errors.New("ID de agendamento inválido.")
	errInvalidDateQuery    = errors.New("Informe a data no formato AAAA-MM-DD.")
	errInvalidMonthQuery   = errors.New("Informe o mês no formato AAAA-MM.")
	errMissingSessionToken = errors.New("Informe o token de acesso.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "Você não tem permissão para executar esta operação.",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "O recurso solicitado não foi encontrado."})
	case errors.Is(err, application.ErrInvalidTransition):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "INVALID_TRANSITION",
			Message:   "Somente agendamentos pendentes podem ser alterados.",
		})
	case errors.Is(err, application.ErrSourceUnavailable):
		r.loggerFor(ctx).ErrorContext(ctx, "appointment source unavailable", "error", err)
		r.writeJSON(ctx, w, http.StatusBadGateway, errorResponse{
			ErrorCode: "SOURCE_UNAVAILABLE",
			Message:   "Não foi possível carregar os agendamentos. Tente novamente.",
		})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			details := localizeValidationErrors(vErr)
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "Há erros nos dados informados.",
				Errors:  details,
			})
			return
		}

		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Ocorreu um erro interno no servidor."})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "A requisição é inválida."
	case http.StatusUnauthorized:
		return "Autenticação necessária."
	case http.StatusForbidden:
		return "Você não tem permissão para executar esta operação."
	case http.StatusNotFound:
		return "O recurso solicitado não foi encontrado."
	case http.StatusConflict:
		return "A requisição conflita com o estado atual do recurso."
	case http.StatusUnprocessableEntity:
		return "Há erros nos dados informados."
	case http.StatusBadGateway:
		return "Não foi possível carregar os agendamentos. Tente novamente."
	default:
		return "Ocorreu um erro interno no servidor."
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

var targetCountRange = regexp.MustCompile(`^target count must be between 1 and (\d+)$`)

func translateValidationMessage(message string) string {
	switch message {
	case "patient is required":
		return "O paciente é obrigatório."
	case "start date is required":
		return "A data de início é obrigatória."
	case "start date must be YYYY-MM-DD":
		return "A data de início deve estar no formato AAAA-MM-DD."
	case "category must be private or clinic":
		return "A categoria deve ser particular ou clínica."
	case "room is required for clinic sessions":
		return "A sala é obrigatória para sessões da clínica."
	case "at least one weekly slot is required":
		return "Informe ao menos um horário semanal."
	case "unknown weekday":
		return "Dia da semana desconhecido."
	case "time must be HH:MM":
		return "O horário deve estar no formato HH:MM."
	case "no session fits within the scheduling window":
		return "Nenhuma sessão cabe na janela de agendamento."
	case "the package violates a storage constraint":
		return "O pacote viola uma restrição de armazenamento."
	case "date is required":
		return "A data é obrigatória."
	case "date must be YYYY-MM-DD":
		return "A data deve estar no formato AAAA-MM-DD."
	case "time is required":
		return "O horário é obrigatório."
	default:
		if m := targetCountRange.FindStringSubmatch(message); m != nil {
			return fmt.Sprintf("A quantidade de sessões deve estar entre 1 e %s.", m[1])
		}
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
