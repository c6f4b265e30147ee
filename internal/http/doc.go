// Package http provides HTTP handlers and middleware for the clinic agenda API.
//
// The router exposes the following endpoints:
//   - GET /agenda/week?date=YYYY-MM-DD: the Monday-first week grid containing
//     date (today when omitted). Cells carry their layout ("stack" or
//     "clinic_grid"), visible appointments and overflow count.
//   - GET /agenda/month?month=YYYY-MM: the 42-cell month grid with padding
//     days and "+N more" counts.
//   - POST /session-packages/preview: expands a package plan without saving
//     it. Body is the `packageRequest` defined in package_handler.go.
//   - POST /session-packages: expands and submits a package. Responses include
//     short schedule and slot conflict warnings.
//   - GET /session-packages/{id}: returns a stored package with its appointments.
//   - GET /session-packages/{id}/calendar.ics: the package as an iCalendar feed.
//   - POST /appointments/{id}/execute, POST /appointments/{id}/cancel,
//     POST /appointments/{id}/reschedule: status transitions of a pending appointment.
//   - GET /healthz and GET /metrics are public; every other route requires
//     `Authorization: Bearer <api key>`.
//
// Error bodies are `{"message", "error_code", "errors"}` with Brazilian
// Portuguese messages.
package http
