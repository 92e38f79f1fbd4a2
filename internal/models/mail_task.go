package models

import "time"

// MailTask is a queued background mail job.
type MailTask struct {
	ID          int64      `json:"id"`
	JobKey      string     `json:"job_key"`
	Payload     string     `json:"payload"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	LastError   *string    `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	NextRetryAt *time.Time `json:"next_retry_at"`
}

// CancellationMailPayload is the body of a CancellationMail job.
type CancellationMailPayload struct {
	Appointment AppointmentDetail `json:"appointment"`
}
