package http

import (
	"github.com/example/physio-agenda/internal/application"
	"github.com/example/physio-agenda/internal/calendar"
)

type appointmentDTO struct {
	ID           string  `json:"id"`
	PackageID    string  `json:"session_package_id,omitempty"`
	PatientID    string  `json:"patient_id"`
	PatientName  string  `json:"patient_name"`
	Date         *string `json:"date"`
	Time         *string `json:"scheduled_time"`
	Type         string  `json:"type"`
	Status       string  `json:"status"`
	Category     string  `json:"category"`
	Color        string  `json:"color,omitempty"`
	Room         *string `json:"room,omitempty"`
	HealthPlanID *int64  `json:"health_plan_id,omitempty"`
	Row          *int    `json:"row,omitempty"`
	Col          *int    `json:"col,omitempty"`
}

func fromCalendarAppointment(appt calendar.Appointment) appointmentDTO {
	return appointmentDTO{
		ID:           appt.ID,
		PatientID:    appt.PatientID,
		PatientName:  appt.PatientName,
		Date:         appt.Date,
		Time:         appt.ScheduledTime,
		Type:         appt.Type,
		Status:       appt.Status,
		Category:     string(appt.Category),
		Color:        appt.Color,
		Room:         appt.Room,
		HealthPlanID: appt.HealthPlanID,
	}
}

func fromCalendarAppointments(appts []calendar.Appointment) []appointmentDTO {
	if len(appts) == 0 {
		return nil
	}
	out := make([]appointmentDTO, 0, len(appts))
	for _, appt := range appts {
		out = append(out, fromCalendarAppointment(appt))
	}
	return out
}

func toAppointmentDTO(appt application.Appointment) appointmentDTO {
	date, clock := appt.Date, appt.Time
	return appointmentDTO{
		ID:           appt.ID,
		PackageID:    appt.PackageID,
		PatientID:    appt.PatientID,
		PatientName:  appt.PatientName,
		Date:         &date,
		Time:         &clock,
		Type:         appt.Type,
		Status:       appt.Status,
		Category:     string(appt.Category),
		Color:        appt.Color,
		Room:         appt.Room,
		HealthPlanID: appt.HealthPlanID,
	}
}

func toAppointmentDTOs(appts []application.Appointment) []appointmentDTO {
	out := make([]appointmentDTO, 0, len(appts))
	for _, appt := range appts {
		out = append(out, toAppointmentDTO(appt))
	}
	return out
}

type warningDTO struct {
	Type           string   `json:"type"`
	Date           string   `json:"date,omitempty"`
	Time           string   `json:"time,omitempty"`
	AppointmentIDs []string `json:"appointment_ids,omitempty"`
	Missing        int      `json:"missing,omitempty"`
}

func toWarningDTOs(warnings []application.Warning) []warningDTO {
	if len(warnings) == 0 {
		return nil
	}

	out := make([]warningDTO, 0, len(warnings))
	for _, warning := range warnings {
		out = append(out, warningDTO{
			Type:           warning.Type,
			Date:           warning.Date,
			Time:           warning.Time,
			AppointmentIDs: append([]string(nil), warning.AppointmentIDs...),
			Missing:        warning.Missing,
		})
	}
	return out
}
