package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"barbeapp/internal/config"
	"barbeapp/internal/domain"
	"barbeapp/internal/events"
	"barbeapp/internal/locale"
	"barbeapp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)

type testDeps struct {
	store    *mockAppointmentStore
	users    *mockUserService
	notifier *mockNotifier
	queue    *mockQueue
	bus      *events.EventBus
}

func newAppointmentService(t *testing.T, booking config.BookingConfig) (*AppointmentService, *testDeps) {
	t.Helper()
	f, err := locale.New(locale.English, "UTC")
	require.NoError(t, err)

	d := &testDeps{
		store:    new(mockAppointmentStore),
		users:    new(mockUserService),
		notifier: new(mockNotifier),
		queue:    new(mockQueue),
		bus:      events.NewEventBus(nil),
	}
	s := NewAppointmentService(d.store, d.users, d.notifier, f, d.queue, d.bus, booking, nil)
	s.now = func() time.Time { return fixedNow }
	return s, d
}

func (d *testDeps) assertNoWrites(t *testing.T) {
	t.Helper()
	d.store.AssertNotCalled(t, "CreateAppointment", mock.Anything, mock.Anything)
	d.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreate_Success(t *testing.T) {
	s, d := newAppointmentService(t, config.BookingConfig{})
	ctx := context.Background()

	var created []events.AppointmentEventPayload
	d.bus.Subscribe(events.EventAppointmentCreated, func(e *events.Event) error {
		var p events.AppointmentEventPayload
		require.NoError(t, e.Decode(&p))
		created = append(created, p)
		return nil
	})

	date := time.Date(2030, 1, 10, 14, 30, 0, 0, time.UTC)
	slot := time.Date(2030, 1, 10, 14, 0, 0, 0, time.UTC)

	d.users.On("GetUser", ctx, int64(5)).Return(&models.User{ID: 5, Name: "Ana"}, nil).Once()
	d.users.On("IsProvider", ctx, int64(7)).Return(true, nil).Once()
	d.store.On("HasActiveAppointment", ctx, int64(7), slot).Return(false, nil).Once()
	d.store.On("CreateAppointment", ctx, mock.MatchedBy(func(a *models.Appointment) bool {
		return a.UserID == 5 && a.ProviderID == 7 && a.Date.Equal(date)
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*models.Appointment).ID = 99
	}).Return(nil).Once()
	d.notifier.On("Notify", ctx, int64(7), "New appointment from Ana for 10 January at 14:00").Return("n1", nil).Once()

	got, err := s.Create(ctx, 5, domain.CreateAppointmentInput{ProviderID: 7, Date: "2030-01-10T14:30:00Z"})
	require.NoError(t, err)
	assert.Equal(t, int64(99), got.ID)
	assert.True(t, got.Date.Equal(date))
	assert.Nil(t, got.CanceledAt)
	assert.False(t, got.Past)
	assert.True(t, got.Cancelable)

	require.Len(t, created, 1)
	assert.Equal(t, int64(99), created[0].AppointmentID)

	d.store.AssertExpectations(t)
	d.users.AssertExpectations(t)
	d.notifier.AssertExpectations(t)
}

func TestCreate_Validation(t *testing.T) {
	inputs := []domain.CreateAppointmentInput{
		{ProviderID: 0, Date: "2030-01-10T14:00:00Z"},
		{ProviderID: -1, Date: "2030-01-10T14:00:00Z"},
		{ProviderID: 7, Date: ""},
		{ProviderID: 7, Date: "tomorrow"},
	}
	for _, in := range inputs {
		s, d := newAppointmentService(t, config.BookingConfig{})
		_, err := s.Create(context.Background(), 5, in)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "%+v", in)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, "Validation fails", err.Error())
		d.users.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
		d.assertNoWrites(t)
	}
}

func TestCreate_ActorNotFound(t *testing.T) {
	s, d := newAppointmentService(t, config.BookingConfig{})
	ctx := context.Background()
	d.users.On("GetUser", ctx, int64(5)).Return(nil, domain.ErrUserNotFound).Once()

	_, err := s.Create(ctx, 5, domain.CreateAppointmentInput{ProviderID: 7, Date: "2030-01-10T14:00:00Z"})
	assert.ErrorIs(t, err, domain.ErrActorNotFound)
	assert.ErrorIs(t, err, domain.ErrAuthorization)
	d.assertNoWrites(t)
}

func TestCreate_RejectRegisteredActors(t *testing.T) {
	ctx := context.Background()
	in := domain.CreateAppointmentInput{ProviderID: 7, Date: "2030-01-10T14:00:00Z"}

	t.Run("existing actor is rejected", func(t *testing.T) {
		s, d := newAppointmentService(t, config.BookingConfig{RejectRegisteredActors: true})
		d.users.On("GetUser", ctx, int64(5)).Return(&models.User{ID: 5, Name: "Ana"}, nil).Once()

		_, err := s.Create(ctx, 5, in)
		assert.ErrorIs(t, err, domain.ErrActorAlreadyExists)
		assert.ErrorIs(t, err, domain.ErrDomain)
		assert.Equal(t, "Not create date in user", err.Error())
		d.assertNoWrites(t)
	})

	t.Run("unknown actor may book", func(t *testing.T) {
		s, d := newAppointmentService(t, config.BookingConfig{RejectRegisteredActors: true})
		d.users.On("GetUser", ctx, int64(50)).Return(nil, domain.ErrUserNotFound).Once()
		d.users.On("IsProvider", ctx, int64(7)).Return(true, nil).Once()
		d.store.On("HasActiveAppointment", ctx, int64(7), mock.Anything).Return(false, nil).Once()
		d.store.On("CreateAppointment", ctx, mock.Anything).Return(nil).Once()
		d.notifier.On("Notify", ctx, int64(7), mock.MatchedBy(func(c string) bool {
			return c == "New appointment from #50 for 10 January at 14:00"
		})).Return("n1", nil).Once()

		_, err := s.Create(ctx, 50, in)
		require.NoError(t, err)
		d.notifier.AssertExpectations(t)
	})
}

func TestCreate_NotProvider(t *testing.T) {
	s, d := newAppointmentService(t, config.BookingConfig{})
	ctx := context.Background()
	d.users.On("GetUser", ctx, int64(5)).Return(&models.User{ID: 5, Name: "Ana"}, nil).Once()
	d.users.On("IsProvider", ctx, int64(8)).Return(false, nil).Once()

	// даже с прошедшей датой важнее роль
	_, err := s.Create(ctx, 5, domain.CreateAppointmentInput{ProviderID: 8, Date: "2000-01-01T10:00:00Z"})
	assert.ErrorIs(t, err, domain.ErrNotProvider)
	assert.ErrorIs(t, err, domain.ErrAuthorization)
	d.store.AssertNotCalled(t, "HasActiveAppointment", mock.Anything, mock.Anything, mock.Anything)
	d.assertNoWrites(t)
}

func TestCreate_PastDate(t *testing.T) {
	dates := []string{
		"2029-12-31T23:59:59Z",
		"2030-01-01T09:59:00Z",
		"2000-06-01",
	}
	for _, raw := range dates {
		s, d := newAppointmentService(t, config.BookingConfig{})
		ctx := context.Background()
		d.users.On("GetUser", ctx, int64(5)).Return(&models.User{ID: 5, Name: "Ana"}, nil)
		d.users.On("IsProvider", ctx, int64(7)).Return(true, nil)

		_, err := s.Create(ctx, 5, domain.CreateAppointmentInput{ProviderID: 7, Date: raw})
		assert.ErrorIs(t, err, domain.ErrPastDate, raw)
		assert.Equal(t, "Past dates are not permitted", err.Error())
		d.assertNoWrites(t)
	}
}

func TestCreate_CurrentHourIsNotPast(t *testing.T) {
	s, d := newAppointmentService(t, config.BookingConfig{})
	s.now = func() time.Time { return fixedNow.Add(30 * time.Minute) }
	ctx := context.Background()
	d.users.On("GetUser", ctx, int64(5)).Return(&models.User{ID: 5, Name: "Ana"}, nil)
	d.users.On("IsProvider", ctx, int64(7)).Return(true, nil)

	// 10:45 нормализуется в 10:00, что раньше 10:30
	_, err := s.Create(ctx, 5, domain.CreateAppointmentInput{ProviderID: 7, Date: "2030-01-01T10:45:00Z"})
	assert.ErrorIs(t, err, domain.ErrPastDate)
}

func TestCreate_SlotTaken(t *testing.T) {
	s, d := newAppointmentService(t, config.BookingConfig{})
	ctx := context.Background()
	d.users.On("GetUser", ctx, int64(5)).Return(&models.User{ID: 5, Name: "Ana"}, nil)
	d.users.On("IsProvider", ctx, int64(7)).Return(true, nil)
	d.store.On("HasActiveAppointment", ctx, int64(7), mock.Anything).Return(true, nil).Once()

	_, err := s.Create(ctx, 5, domain.CreateAppointmentInput{ProviderID: 7, Date: "2030-01-10T14:00:00Z"})
	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
	assert.Equal(t, "Appointment date is not available", err.Error())
	d.assertNoWrites(t)
}

func TestCreate_SlotLostRace(t *testing.T) {
	s, d := newAppointmentService(t, config.BookingConfig{})
	ctx := context.Background()
	d.users.On("GetUser", ctx, int64(5)).Return(&models.User{ID: 5, Name: "Ana"}, nil)
	d.users.On("IsProvider", ctx, int64(7)).Return(true, nil)
	d.store.On("HasActiveAppointment", ctx, int64(7), mock.Anything).Return(false, nil).Once()
	d.store.On("CreateAppointment", ctx, mock.Anything).Return(domain.ErrSlotUnavailable).Once()

	_, err := s.Create(ctx, 5, domain.CreateAppointmentInput{ProviderID: 7, Date: "2030-01-10T14:00:00Z"})
	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
	d.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreate_NotifyFailure(t *testing.T) {
	s, d := newAppointmentService(t, config.BookingConfig{})
	ctx := context.Background()
	d.users.On("GetUser", ctx, int64(5)).Return(&models.User{ID: 5, Name: "Ana"}, nil)
	d.users.On("IsProvider", ctx, int64(7)).Return(true, nil)
	d.store.On("HasActiveAppointment", ctx, int64(7), mock.Anything).Return(false, nil).Once()
	d.store.On("CreateAppointment", ctx, mock.Anything).Return(nil).Once()
	d.notifier.On("Notify", ctx, int64(7), mock.Anything).Return("", errors.New("redis down")).Once()

	_, err := s.Create(ctx, 5, domain.CreateAppointmentInput{ProviderID: 7, Date: "2030-01-10T14:00:00Z"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrDomain)
	assert.NotErrorIs(t, err, domain.ErrValidation)
	d.store.AssertExpectations(t)
}

func TestCreate_StoreErrorPropagates(t *testing.T) {
	s, d := newAppointmentService(t, config.BookingConfig{})
	ctx := context.Background()
	boom := errors.New("disk I/O error")
	d.users.On("GetUser", ctx, int64(5)).Return(nil, boom).Once()

	_, err := s.Create(ctx, 5, domain.CreateAppointmentInput{ProviderID: 7, Date: "2030-01-10T14:00:00Z"})
	assert.ErrorIs(t, err, boom)
}

func detailFor(userID int64, date time.Time) *models.AppointmentDetail {
	return &models.AppointmentDetail{
		Appointment: models.Appointment{ID: 3, UserID: userID, ProviderID: 7, Date: date},
		Provider:    models.AppointmentParty{ID: 7, Name: "Barber", Email: "barber@test"},
		User:        models.AppointmentParty{ID: userID, Name: "Ana"},
	}
}

func TestCancel_Success(t *testing.T) {
	s, d := newAppointmentService(t, config.BookingConfig{})
	ctx := context.Background()
	date := fixedNow.Add(24 * time.Hour)

	d.store.On("GetAppointmentDetail", ctx, int64(3)).Return(detailFor(5, date), nil).Once()
	d.store.On("CancelAppointment", ctx, int64(3), fixedNow).Return(nil).Once()
	d.queue.On("Enqueue", ctx, models.JobCancellationMail, mock.MatchedBy(func(p models.CancellationMailPayload) bool {
		a := p.Appointment
		return a.ID == 3 && a.Provider.Name == "Barber" && a.Provider.Email == "barber@test" &&
			a.User.Name == "Ana" && a.CanceledAt != nil && a.Cancelable && !a.Past
	})).Return(nil).Once()

	var canceled int
	d.bus.Subscribe(events.EventAppointmentCanceled, func(*events.Event) error { canceled++; return nil })

	got, err := s.Cancel(ctx, 5, 3)
	require.NoError(t, err)
	require.NotNil(t, got.CanceledAt)
	assert.True(t, got.CanceledAt.Equal(fixedNow))
	assert.Equal(t, 1, canceled)

	d.store.AssertExpectations(t)
	d.queue.AssertExpectations(t)
	d.queue.AssertNumberOfCalls(t, "Enqueue", 1)
}

func TestCancel_NotBooker(t *testing.T) {
	s, d := newAppointmentService(t, config.BookingConfig{})
	ctx := context.Background()
	d.store.On("GetAppointmentDetail", ctx, int64(3)).Return(detailFor(5, fixedNow.Add(time.Hour)), nil).Once()

	_, err := s.Cancel(ctx, 6, 3)
	assert.ErrorIs(t, err, domain.ErrNotBooker)
	assert.ErrorIs(t, err, domain.ErrAuthorization)
	d.store.AssertNotCalled(t, "CancelAppointment", mock.Anything, mock.Anything, mock.Anything)
	d.queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancel_NotFound(t *testing.T) {
	s, d := newAppointmentService(t, config.BookingConfig{})
	ctx := context.Background()
	d.store.On("GetAppointmentDetail", ctx, int64(3)).Return(nil, domain.ErrAppointmentNotFound).Once()

	_, err := s.Cancel(ctx, 5, 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancel_NoticeWindow(t *testing.T) {
	ctx := context.Background()
	soon := fixedNow.Add(time.Hour)

	t.Run("not enforced by default", func(t *testing.T) {
		s, d := newAppointmentService(t, config.BookingConfig{})
		d.store.On("GetAppointmentDetail", ctx, int64(3)).Return(detailFor(5, soon), nil).Once()
		d.store.On("CancelAppointment", ctx, int64(3), fixedNow).Return(nil).Once()
		d.queue.On("Enqueue", ctx, models.JobCancellationMail, mock.Anything).Return(nil).Once()

		got, err := s.Cancel(ctx, 5, 3)
		require.NoError(t, err)
		assert.False(t, got.Cancelable)
	})

	t.Run("enforced", func(t *testing.T) {
		s, d := newAppointmentService(t, config.BookingConfig{EnforceCancelNotice: true, CancelNotice: 2 * time.Hour})
		d.store.On("GetAppointmentDetail", ctx, int64(3)).Return(detailFor(5, soon), nil).Once()

		_, err := s.Cancel(ctx, 5, 3)
		assert.ErrorIs(t, err, domain.ErrCancelWindowClosed)
		assert.Equal(t, "You can only cancel appointments 2 hours in advance", err.Error())
		d.store.AssertNotCalled(t, "CancelAppointment", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCancel_AlreadyCanceled(t *testing.T) {
	s, d := newAppointmentService(t, config.BookingConfig{})
	ctx := context.Background()
	detail := detailFor(5, fixedNow.Add(24*time.Hour))
	was := fixedNow.Add(-time.Hour)
	detail.CanceledAt = &was
	d.store.On("GetAppointmentDetail", ctx, int64(3)).Return(detail, nil).Once()

	_, err := s.Cancel(ctx, 5, 3)
	assert.ErrorIs(t, err, domain.ErrAlreadyCanceled)
	d.queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancel_EnqueueFailureIsNotFatal(t *testing.T) {
	s, d := newAppointmentService(t, config.BookingConfig{})
	ctx := context.Background()
	d.store.On("GetAppointmentDetail", ctx, int64(3)).Return(detailFor(5, fixedNow.Add(24*time.Hour)), nil).Once()
	d.store.On("CancelAppointment", ctx, int64(3), fixedNow).Return(nil).Once()
	d.queue.On("Enqueue", ctx, models.JobCancellationMail, mock.Anything).Return(errors.New("queue down")).Once()

	got, err := s.Cancel(ctx, 5, 3)
	require.NoError(t, err)
	assert.NotNil(t, got.CanceledAt)
}

func TestList(t *testing.T) {
	s, d := newAppointmentService(t, config.BookingConfig{PageSize: 2})
	ctx := context.Background()

	past := detailFor(5, fixedNow.Add(-time.Hour))
	future := detailFor(5, fixedNow.Add(5*time.Hour))
	d.store.On("ListUserAppointments", ctx, int64(5), 2, 0).Return([]*models.AppointmentDetail{past, future}, nil).Once()
	d.store.On("ListUserAppointments", ctx, int64(5), 2, 2).Return(nil, nil).Once()

	list, err := s.List(ctx, 5, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].Past)
	assert.False(t, list[0].Cancelable)
	assert.False(t, list[1].Past)
	assert.True(t, list[1].Cancelable)

	empty, err := s.List(ctx, 5, 2)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestIsAvailable_UsesHourSlot(t *testing.T) {
	s, d := newAppointmentService(t, config.BookingConfig{})
	ctx := context.Background()

	slot := time.Date(2030, 1, 10, 14, 0, 0, 0, time.UTC)
	d.store.On("HasActiveAppointment", ctx, int64(7), slot).Return(true, nil).Once()
	d.store.On("HasActiveAppointment", ctx, int64(8), slot).Return(false, nil).Once()

	ok, err := s.IsAvailable(ctx, 7, time.Date(2030, 1, 10, 14, 59, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.IsAvailable(ctx, 8, slot)
	require.NoError(t, err)
	assert.True(t, ok)

	d.store.AssertExpectations(t)
}

func TestCreate_HalfHourOffsetUsesUTCHour(t *testing.T) {
	s, d := newAppointmentService(t, config.BookingConfig{})
	s.now = func() time.Time { return time.Date(2030, 1, 10, 8, 45, 0, 0, time.UTC) }
	ctx := context.Background()

	slot := time.Date(2030, 1, 10, 9, 0, 0, 0, time.UTC)
	d.users.On("GetUser", ctx, int64(5)).Return(&models.User{ID: 5, Name: "Ana"}, nil).Once()
	d.users.On("IsProvider", ctx, int64(7)).Return(true, nil).Once()
	d.store.On("HasActiveAppointment", ctx, int64(7), slot).Return(false, nil).Once()
	d.store.On("CreateAppointment", ctx, mock.Anything).Return(nil).Once()
	d.notifier.On("Notify", ctx, int64(7), "New appointment from Ana for 10 January at 09:00").Return("n1", nil).Once()

	// 14:40+05:30 == 09:10Z, слот 09:00Z ещё не прошёл
	got, err := s.Create(ctx, 5, domain.CreateAppointmentInput{ProviderID: 7, Date: "2030-01-10T14:40:00+05:30"})
	require.NoError(t, err)
	assert.False(t, got.Past)

	d.store.AssertExpectations(t)
	d.notifier.AssertExpectations(t)
}
