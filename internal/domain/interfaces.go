package domain

import (
	"context"
	"time"

	"barbeapp/internal/models"
)

type AppointmentStore interface {
	CreateAppointment(ctx context.Context, appointment *models.Appointment) error
	GetAppointment(ctx context.Context, id int64) (*models.Appointment, error)
	GetAppointmentDetail(ctx context.Context, id int64) (*models.AppointmentDetail, error)
	CancelAppointment(ctx context.Context, id int64, canceledAt time.Time) error
	HasActiveAppointment(ctx context.Context, providerID int64, slot time.Time) (bool, error)
	ListUserAppointments(ctx context.Context, userID int64, limit, offset int) ([]*models.AppointmentDetail, error)
}

type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetProviderByID(ctx context.Context, id int64) (*models.User, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, notification *models.Notification) error
	ListNotificationsByUser(ctx context.Context, userID int64, limit int) ([]*models.Notification, error)
	// MarkNotificationRead returns ErrNotificationNotFound unless the notification belongs to userID.
	MarkNotificationRead(ctx context.Context, id string, userID int64) (*models.Notification, error)
}

// JobQueue hands a job off to the background runner.
type JobQueue interface {
	Enqueue(ctx context.Context, jobKey string, payload interface{}) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// DateFormatter renders user-facing dates and messages for one locale.
type DateFormatter interface {
	FormatDateTime(t time.Time) string
	NewAppointmentMessage(userName string, date time.Time) string
}

type UserService interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	IsProvider(ctx context.Context, id int64) (bool, error)
}

type AppointmentService interface {
	Create(ctx context.Context, actorID int64, input CreateAppointmentInput) (*models.Appointment, error)
	Cancel(ctx context.Context, actorID, appointmentID int64) (*models.AppointmentDetail, error)
	List(ctx context.Context, actorID int64, page int) ([]*models.AppointmentDetail, error)
}

type NotificationService interface {
	Notify(ctx context.Context, userID int64, content string) (string, error)
	List(ctx context.Context, actorID int64) ([]*models.Notification, error)
	MarkRead(ctx context.Context, actorID int64, id string) (*models.Notification, error)
}

// CreateAppointmentInput is the raw booking request body.
type CreateAppointmentInput struct {
	ProviderID int64  `json:"provider_id"`
	Date       string `json:"date"`
}
