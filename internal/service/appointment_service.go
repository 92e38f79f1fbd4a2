package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"barbeapp/internal/config"
	"barbeapp/internal/domain"
	"barbeapp/internal/events"
	"barbeapp/internal/metrics"
	"barbeapp/internal/models"
	"barbeapp/internal/schedule"

	"github.com/rs/zerolog"
)

type AppointmentService struct {
	appointments  domain.AppointmentStore
	users         domain.UserService
	notifications domain.NotificationService
	formatter     domain.DateFormatter
	queue         domain.JobQueue
	eventBus      domain.EventPublisher
	booking       config.BookingConfig
	logger        *zerolog.Logger
	now           func() time.Time
}

func NewAppointmentService(
	appointments domain.AppointmentStore,
	users domain.UserService,
	notifications domain.NotificationService,
	formatter domain.DateFormatter,
	queue domain.JobQueue,
	eventBus domain.EventPublisher,
	booking config.BookingConfig,
	logger *zerolog.Logger,
) *AppointmentService {
	if booking.PageSize <= 0 {
		booking.PageSize = models.AppointmentsPageSize
	}
	if booking.CancelNotice <= 0 {
		booking.CancelNotice = models.DefaultCancelNoticeHours * time.Hour
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &AppointmentService{
		appointments:  appointments,
		users:         users,
		notifications: notifications,
		formatter:     formatter,
		queue:         queue,
		eventBus:      eventBus,
		booking:       booking,
		logger:        logger,
		now:           time.Now,
	}
}

// Create books the provider's hour slot for the actor and notifies the provider.
func (s *AppointmentService) Create(ctx context.Context, actorID int64, input domain.CreateAppointmentInput) (*models.Appointment, error) {
	if input.ProviderID <= 0 || input.Date == "" {
		return nil, s.reject("validation", domain.ErrInvalidInput)
	}
	date, err := schedule.ParseDate(input.Date)
	if err != nil {
		return nil, s.reject("validation", domain.ErrInvalidInput)
	}

	actorName, err := s.actorName(ctx, actorID)
	if err != nil {
		return nil, err
	}

	isProvider, err := s.users.IsProvider(ctx, input.ProviderID)
	if err != nil {
		return nil, err
	}
	if !isProvider {
		return nil, s.reject("not_provider", domain.ErrNotProvider)
	}

	now := s.now()
	hourStart := schedule.Normalize(date)
	if schedule.IsPast(hourStart, now) {
		return nil, s.reject("past_date", domain.ErrPastDate)
	}

	available, err := s.IsAvailable(ctx, input.ProviderID, hourStart)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, s.reject("slot_unavailable", domain.ErrSlotUnavailable)
	}

	appointment := &models.Appointment{
		UserID:     actorID,
		ProviderID: input.ProviderID,
		Date:       date,
	}
	if err := s.appointments.CreateAppointment(ctx, appointment); err != nil {
		if errors.Is(err, domain.ErrSlotUnavailable) {
			return nil, s.reject("slot_unavailable", err)
		}
		return nil, err
	}

	log := s.logger.With().Int64("appointment_id", appointment.ID).Int64("provider_id", appointment.ProviderID).Logger()

	content := s.formatter.NewAppointmentMessage(actorName, hourStart)
	if _, err := s.notifications.Notify(ctx, input.ProviderID, content); err != nil {
		// запись уже сохранена
		log.Error().Err(err).Msg("failed to notify provider")
		return nil, fmt.Errorf("notify provider: %w", err)
	}

	s.publishEvent(events.EventAppointmentCreated, appointment)
	s.fillFlags(appointment, now)

	log.Info().Int64("user_id", actorID).Time("date", date).Msg("appointment created")
	return appointment, nil
}

// IsAvailable reports whether the provider has no live appointment in the hour slot.
func (s *AppointmentService) IsAvailable(ctx context.Context, providerID int64, slot time.Time) (bool, error) {
	taken, err := s.appointments.HasActiveAppointment(ctx, providerID, schedule.Normalize(slot))
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// actorName resolves the booking user. With RejectRegisteredActors an existing actor is refused.
func (s *AppointmentService) actorName(ctx context.Context, actorID int64) (string, error) {
	actor, err := s.users.GetUser(ctx, actorID)
	notFound := errors.Is(err, domain.ErrNotFound)
	if err != nil && !notFound {
		return "", err
	}

	if s.booking.RejectRegisteredActors {
		if !notFound {
			return "", s.reject("actor_exists", domain.ErrActorAlreadyExists)
		}
		return fmt.Sprintf("#%d", actorID), nil
	}

	if notFound {
		return "", s.reject("actor_not_found", domain.ErrActorNotFound)
	}
	return actor.Name, nil
}

// Cancel marks the actor's appointment canceled and queues the provider e-mail.
func (s *AppointmentService) Cancel(ctx context.Context, actorID, appointmentID int64) (*models.AppointmentDetail, error) {
	detail, err := s.appointments.GetAppointmentDetail(ctx, appointmentID)
	if err != nil {
		return nil, err
	}

	if detail.UserID != actorID {
		return nil, s.reject("not_booker", domain.ErrNotBooker)
	}

	now := s.now()
	if s.booking.EnforceCancelNotice && !schedule.IsCancelable(detail.Date, now, s.booking.CancelNotice) {
		return nil, s.reject("cancel_window_closed", domain.ErrCancelWindowClosed)
	}

	if detail.IsCanceled() {
		return nil, s.reject("already_canceled", domain.ErrAlreadyCanceled)
	}

	if err := s.appointments.CancelAppointment(ctx, detail.ID, now); err != nil {
		if errors.Is(err, domain.ErrAlreadyCanceled) {
			return nil, s.reject("already_canceled", err)
		}
		return nil, err
	}
	canceledAt := now
	detail.CanceledAt = &canceledAt
	detail.UpdatedAt = now

	s.fillFlags(&detail.Appointment, now)

	log := s.logger.With().Int64("appointment_id", detail.ID).Logger()

	payload := models.CancellationMailPayload{Appointment: *detail}
	if err := s.queue.Enqueue(ctx, models.JobCancellationMail, payload); err != nil {
		log.Error().Err(err).Msg("failed to enqueue cancellation mail")
	}

	s.publishEvent(events.EventAppointmentCanceled, &detail.Appointment)

	log.Info().Int64("user_id", actorID).Msg("appointment canceled")
	return detail, nil
}

// List returns one page of the actor's active appointments ordered by date.
func (s *AppointmentService) List(ctx context.Context, actorID int64, page int) ([]*models.AppointmentDetail, error) {
	if page < 1 {
		page = 1
	}
	limit := s.booking.PageSize
	list, err := s.appointments.ListUserAppointments(ctx, actorID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for _, d := range list {
		s.fillFlags(&d.Appointment, now)
	}
	if list == nil {
		list = []*models.AppointmentDetail{}
	}
	return list, nil
}

func (s *AppointmentService) fillFlags(a *models.Appointment, now time.Time) {
	a.Past = schedule.IsPast(a.Date, now)
	a.Cancelable = schedule.IsCancelable(a.Date, now, s.booking.CancelNotice)
}

func (s *AppointmentService) reject(reason string, err error) error {
	metrics.IncRejection(reason)
	return err
}

func (s *AppointmentService) publishEvent(eventType string, a *models.Appointment) {
	if s.eventBus == nil {
		return
	}
	payload := events.AppointmentEventPayload{
		AppointmentID: a.ID,
		UserID:        a.UserID,
		ProviderID:    a.ProviderID,
		Date:          a.Date,
		CanceledAt:    a.CanceledAt,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}
