package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"barbeapp/internal/domain"
	"barbeapp/internal/models"
	"barbeapp/internal/schedule"
)

const appointmentColumns = `a.id, a.user_id, a.provider_id, a.date, a.canceled_at, a.created_at, a.updated_at`

// slotKey is the stored form of the hour slot an appointment date occupies.
func slotKey(date time.Time) string {
	return formatTime(schedule.Normalize(date))
}

// HasActiveAppointment reports whether a non-canceled appointment occupies the provider's slot.
func (db *DB) HasActiveAppointment(ctx context.Context, providerID int64, slot time.Time) (bool, error) {
	query := `SELECT EXISTS(
                SELECT 1 FROM appointments
                WHERE provider_id = ? AND slot = ? AND canceled_at IS NULL
              )`
	var exists bool
	if err := db.QueryRowContext(ctx, query, providerID, slotKey(slot)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return exists, nil
}

// CreateAppointment inserts the appointment keeping its original date.
// Returns domain.ErrSlotUnavailable when the provider's slot is already taken.
func (db *DB) CreateAppointment(ctx context.Context, appointment *models.Appointment) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	slot := slotKey(appointment.Date)

	var taken bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM appointments WHERE provider_id = ? AND slot = ? AND canceled_at IS NULL)`,
		appointment.ProviderID, slot,
	).Scan(&taken)
	if err != nil {
		return fmt.Errorf("failed to check slot in tx: %w", err)
	}
	if taken {
		return domain.ErrSlotUnavailable
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO appointments (user_id, provider_id, date, slot, canceled_at, created_at, updated_at)
         VALUES (?, ?, ?, ?, NULL, ?, ?)`,
		appointment.UserID,
		appointment.ProviderID,
		appointment.Date.Format(time.RFC3339Nano),
		slot,
		formatTime(now),
		formatTime(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlotUnavailable
		}
		return fmt.Errorf("failed to insert appointment in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlotUnavailable
		}
		return fmt.Errorf("failed to commit appointment: %w", err)
	}

	appointment.ID = id
	appointment.CanceledAt = nil
	appointment.CreatedAt = now.UTC()
	appointment.UpdatedAt = now.UTC()
	return nil
}

// GetAppointment returns domain.ErrAppointmentNotFound for unknown ids.
func (db *DB) GetAppointment(ctx context.Context, id int64) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments a WHERE a.id = ?`
	appointment, err := scanAppointment(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return appointment, nil
}

// GetAppointmentDetail loads the appointment, then its provider and booking user.
func (db *DB) GetAppointmentDetail(ctx context.Context, id int64) (*models.AppointmentDetail, error) {
	appointment, err := db.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	provider, err := db.GetUserByID(ctx, appointment.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("load provider %d: %w", appointment.ProviderID, err)
	}
	user, err := db.GetUserByID(ctx, appointment.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", appointment.UserID, err)
	}

	return &models.AppointmentDetail{
		Appointment: *appointment,
		Provider:    models.AppointmentParty{ID: provider.ID, Name: provider.Name, Email: provider.Email},
		User:        models.AppointmentParty{ID: user.ID, Name: user.Name},
	}, nil
}

// CancelAppointment sets canceled_at once. A second cancel returns domain.ErrAlreadyCanceled.
func (db *DB) CancelAppointment(ctx context.Context, id int64, canceledAt time.Time) error {
	query := `UPDATE appointments SET canceled_at = ?, updated_at = ? WHERE id = ? AND canceled_at IS NULL`
	result, err := db.ExecContext(ctx, query, formatTime(canceledAt), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to cancel appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows > 0 {
		return nil
	}

	if _, err := db.GetAppointment(ctx, id); err != nil {
		return err
	}
	return domain.ErrAlreadyCanceled
}

// ListUserAppointments returns the user's non-canceled appointments by date with the provider attached.
func (db *DB) ListUserAppointments(ctx context.Context, userID int64, limit, offset int) ([]*models.AppointmentDetail, error) {
	query := `SELECT ` + appointmentColumns + `,
                     p.id, p.name, f.id, f.name, f.path
              FROM appointments a
              JOIN users p ON p.id = a.provider_id
              LEFT JOIN files f ON f.id = p.avatar_id
              WHERE a.user_id = ? AND a.canceled_at IS NULL
              ORDER BY a.slot ASC, a.date ASC, a.id ASC
              LIMIT ? OFFSET ?`

	rows, err := db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	var out []*models.AppointmentDetail
	for rows.Next() {
		var (
			d                        models.AppointmentDetail
			date, createdAt, updated string
			canceledAt               sql.NullString
			fileID                   sql.NullInt64
			fileName, filePath       sql.NullString
		)
		err := rows.Scan(
			&d.ID, &d.UserID, &d.ProviderID, &date, &canceledAt, &createdAt, &updated,
			&d.Provider.ID, &d.Provider.Name, &fileID, &fileName, &filePath,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		if err := fillAppointmentTimes(&d.Appointment, date, canceledAt, createdAt, updated); err != nil {
			return nil, err
		}
		d.Provider.Avatar = db.buildFile(fileID, fileName, filePath)
		d.User = models.AppointmentParty{ID: d.UserID}
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate appointments: %w", err)
	}
	return out, nil
}

func scanAppointment(row *sql.Row) (*models.Appointment, error) {
	var (
		a                        models.Appointment
		date, createdAt, updated string
		canceledAt               sql.NullString
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.ProviderID, &date, &canceledAt, &createdAt, &updated); err != nil {
		return nil, err
	}
	if err := fillAppointmentTimes(&a, date, canceledAt, createdAt, updated); err != nil {
		return nil, err
	}
	return &a, nil
}

func fillAppointmentTimes(a *models.Appointment, date string, canceledAt sql.NullString, createdAt, updatedAt string) error {
	var err error
	if a.Date, err = parseTime(date); err != nil {
		return err
	}
	if a.CanceledAt, err = parseNullTime(canceledAt); err != nil {
		return err
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return err
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return err
	}
	return nil
}
