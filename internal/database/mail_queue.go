package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"barbeapp/internal/models"
)

const mailTaskColumns = `id, job_key, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at`

func (db *DB) CreateMailTask(ctx context.Context, task *models.MailTask) error {
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	query := `INSERT INTO mail_queue (job_key, payload, status, retry_count, last_error, created_at, next_retry_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	var lastError sql.NullString
	if task.LastError != nil {
		lastError = sql.NullString{String: *task.LastError, Valid: true}
	}

	result, err := db.ExecContext(ctx, query,
		task.JobKey,
		task.Payload,
		task.Status,
		task.RetryCount,
		lastError,
		formatTime(now),
		formatNullTime(task.NextRetryAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create mail task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id
	task.CreatedAt = now.UTC()
	return nil
}

func (db *DB) GetMailTask(ctx context.Context, id int64) (*models.MailTask, error) {
	query := `SELECT ` + mailTaskColumns + ` FROM mail_queue WHERE id = ?`
	rows, err := db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get mail task: %w", err)
	}
	tasks, err := scanMailTasks(rows)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, sql.ErrNoRows
	}
	return &tasks[0], nil
}

// GetPendingMailTasks returns due pending/retry tasks, oldest first.
func (db *DB) GetPendingMailTasks(ctx context.Context, limit int) ([]models.MailTask, error) {
	query := `SELECT ` + mailTaskColumns + `
              FROM mail_queue
              WHERE status IN (?, ?) AND (next_retry_at IS NULL OR next_retry_at <= ?)
              ORDER BY created_at ASC LIMIT ?`
	rows, err := db.QueryContext(ctx, query,
		models.TaskStatusPending, models.TaskStatusRetry, formatTime(time.Now()), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending mail tasks: %w", err)
	}
	return scanMailTasks(rows)
}

func (db *DB) GetFailedMailTasks(ctx context.Context) ([]models.MailTask, error) {
	query := `SELECT ` + mailTaskColumns + ` FROM mail_queue WHERE status = ? ORDER BY created_at DESC`
	rows, err := db.QueryContext(ctx, query, models.TaskStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("failed to get failed mail tasks: %w", err)
	}
	return scanMailTasks(rows)
}

func (db *DB) UpdateMailTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var query string
	var args []interface{}
	lastError := sql.NullString{String: errMsg, Valid: errMsg != ""}
	next := formatNullTime(nextRetryAt)

	switch status {
	case models.TaskStatusRetry:
		query = `UPDATE mail_queue SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`
		args = []interface{}{status, lastError, next, id}
	case models.TaskStatusCompleted, models.TaskStatusFailed:
		query = `UPDATE mail_queue SET status = ?, last_error = ?, next_retry_at = ?, processed_at = ? WHERE id = ?`
		args = []interface{}{status, lastError, next, formatTime(time.Now()), id}
	default:
		query = `UPDATE mail_queue SET status = ?, last_error = ?, next_retry_at = ? WHERE id = ?`
		args = []interface{}{status, lastError, next, id}
	}

	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update mail task status: %w", err)
	}
	return nil
}

func scanMailTasks(rows *sql.Rows) ([]models.MailTask, error) {
	defer rows.Close()

	var tasks []models.MailTask
	for rows.Next() {
		var (
			t                      models.MailTask
			lastError              sql.NullString
			createdAt              string
			processedAt, nextRetry sql.NullString
		)
		err := rows.Scan(
			&t.ID, &t.JobKey, &t.Payload, &t.Status, &t.RetryCount, &lastError, &createdAt, &processedAt, &nextRetry,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mail task: %w", err)
		}
		if lastError.Valid {
			t.LastError = &lastError.String
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if t.ProcessedAt, err = parseNullTime(processedAt); err != nil {
			return nil, err
		}
		if t.NextRetryAt, err = parseNullTime(nextRetry); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mail tasks: %w", err)
	}
	return tasks, nil
}
