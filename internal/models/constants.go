package models

const (
	TaskStatusPending   = "pending"
	TaskStatusRetry     = "retry"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

const (
	// JobCancellationMail is the job key of the provider cancellation e-mail.
	JobCancellationMail = "CancellationMail"
)

const (
	// AppointmentsPageSize количество записей на странице списка
	AppointmentsPageSize = 20

	// NotificationsLimit максимум уведомлений в выдаче
	NotificationsLimit = 20

	// DefaultCancelNoticeHours минимальный запас времени для отмены
	DefaultCancelNoticeHours = 2

	// WorkerQueueSize размер in-memory очереди воркера
	WorkerQueueSize = 128

	// FailoverRecheckInterval через сколько секунд пробовать основное хранилище снова
	FailoverRecheckInterval = 60
)
