package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/physio-agenda/internal/persistence"
)

const dateLayout = "2006-01-02"

const appointmentColumns = `id, package_id, patient_id, patient_name, appointment_date, scheduled_time,
	treatment_type, status, category, color, room, health_plan_id, created_at, updated_at`

// AppointmentRepository implements persistence.AppointmentRepository using SQLite.
type AppointmentRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

var _ persistence.AppointmentRepository = (*AppointmentRepository)(nil)

// NewAppointmentRepository creates a new SQLite appointment repository.
func NewAppointmentRepository(pool *ConnectionPool) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, mapper: NewErrorMapper()}
}

// ListAppointments returns appointments dated within [from, to], ordered by date, time and id.
func (r *AppointmentRepository) ListAppointments(ctx context.Context, from, to time.Time) ([]persistence.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE appointment_date BETWEEN ? AND ?
		ORDER BY appointment_date, scheduled_time, id`

	rows, err := r.pool.db.QueryContext(ctx, query, from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// GetAppointment loads a single appointment.
func (r *AppointmentRepository) GetAppointment(ctx context.Context, id string) (persistence.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = ?`
	appointment, err := scanAppointment(r.pool.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return persistence.Appointment{}, r.mapper.MapError(err)
	}
	return appointment, nil
}

// CreateSessionPackage stores the package and its generated appointments atomically.
func (r *AppointmentRepository) CreateSessionPackage(ctx context.Context, pkg persistence.SessionPackage, appointments []persistence.Appointment) error {
	if pkg.ID == "" {
		return persistence.ErrConstraintViolation
	}
	slots, err := json.Marshal(pkg.Slots)
	if err != nil {
		return fmt.Errorf("sqlite: encode slots: %w", err)
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO session_packages (id, patient_id, patient_name, treatment_type, category, room,
				health_plan_id, start_date, target_count, slots, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			pkg.ID,
			pkg.PatientID,
			pkg.PatientName,
			pkg.Type,
			pkg.Category,
			nullString(pkg.Room),
			nullInt64(pkg.HealthPlanID),
			pkg.StartDate.Format(dateLayout),
			pkg.TargetCount,
			string(slots),
			pkg.CreatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}

		for _, appointment := range appointments {
			if err := r.insertAppointment(ctx, tx, appointment); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *AppointmentRepository) insertAppointment(ctx context.Context, tx *sql.Tx, a persistence.Appointment) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID,
		nullString(a.PackageID),
		a.PatientID,
		a.PatientName,
		a.Date,
		a.Time,
		a.Type,
		a.Status,
		a.Category,
		a.Color,
		nullString(a.Room),
		nullInt64(a.HealthPlanID),
		a.CreatedAt.UTC().Format(time.RFC3339),
		a.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetSessionPackage loads a session package with its slots.
func (r *AppointmentRepository) GetSessionPackage(ctx context.Context, id string) (persistence.SessionPackage, error) {
	row := r.pool.db.QueryRowContext(ctx, `
		SELECT id, patient_id, patient_name, treatment_type, category, room, health_plan_id,
			start_date, target_count, slots, created_at
		FROM session_packages WHERE id = ?`, id)

	var (
		pkg       persistence.SessionPackage
		room      sql.NullString
		plan      sql.NullInt64
		startDate string
		slots     string
		createdAt string
	)
	if err := row.Scan(&pkg.ID, &pkg.PatientID, &pkg.PatientName, &pkg.Type, &pkg.Category, &room, &plan,
		&startDate, &pkg.TargetCount, &slots, &createdAt); err != nil {
		return persistence.SessionPackage{}, r.mapper.MapError(err)
	}

	pkg.Room = stringPtr(room)
	pkg.HealthPlanID = int64Ptr(plan)
	pkg.StartDate, _ = time.Parse(dateLayout, startDate)
	pkg.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if err := json.Unmarshal([]byte(slots), &pkg.Slots); err != nil {
		return persistence.SessionPackage{}, fmt.Errorf("sqlite: decode slots for package %s: %w", id, err)
	}
	return pkg, nil
}

// ListPackageAppointments returns the appointments generated for a package in schedule order.
func (r *AppointmentRepository) ListPackageAppointments(ctx context.Context, packageID string) ([]persistence.Appointment, error) {
	if _, err := r.GetSessionPackage(ctx, packageID); err != nil {
		return nil, err
	}
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE package_id = ?
		ORDER BY appointment_date, scheduled_time, id`

	rows, err := r.pool.db.QueryContext(ctx, query, packageID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// UpdateAppointmentStatus sets the status of an appointment.
func (r *AppointmentRepository) UpdateAppointmentStatus(ctx context.Context, id, status string, updatedAt time.Time) error {
	result, err := r.pool.db.ExecContext(ctx,
		`UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?`,
		status, updatedAt.UTC().Format(time.RFC3339), id)
	return r.requireAffected(result, err)
}

// RescheduleAppointment moves an appointment to a new date and time.
func (r *AppointmentRepository) RescheduleAppointment(ctx context.Context, id, date, clock string, updatedAt time.Time) error {
	result, err := r.pool.db.ExecContext(ctx,
		`UPDATE appointments SET appointment_date = ?, scheduled_time = ?, updated_at = ? WHERE id = ?`,
		date, clock, updatedAt.UTC().Format(time.RFC3339), id)
	return r.requireAffected(result, err)
}

func (r *AppointmentRepository) requireAffected(result sql.Result, err error) error {
	if err != nil {
		return r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return r.mapper.MapError(err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (persistence.Appointment, error) {
	var (
		a         persistence.Appointment
		packageID sql.NullString
		room      sql.NullString
		plan      sql.NullInt64
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&a.ID, &packageID, &a.PatientID, &a.PatientName, &a.Date, &a.Time, &a.Type,
		&a.Status, &a.Category, &a.Color, &room, &plan, &createdAt, &updatedAt); err != nil {
		return persistence.Appointment{}, err
	}
	a.PackageID = stringPtr(packageID)
	a.Room = stringPtr(room)
	a.HealthPlanID = int64Ptr(plan)
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return a, nil
}

func scanAppointments(rows *sql.Rows) ([]persistence.Appointment, error) {
	var out []persistence.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan appointment: %w", err)
		}
		out = append(out, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate appointments: %w", err)
	}
	return out, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func nullInt64(value *int64) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

func int64Ptr(value sql.NullInt64) *int64 {
	if !value.Valid {
		return nil
	}
	v := value.Int64
	return &v
}
