package service

import (
	"context"
	"time"

	"barbeapp/internal/domain"
	"barbeapp/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockAppointmentStore struct {
	mock.Mock
}

func (m *mockAppointmentStore) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	return m.Called(ctx, a).Error(0)
}
func (m *mockAppointmentStore) GetAppointment(ctx context.Context, id int64) (*models.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}
func (m *mockAppointmentStore) GetAppointmentDetail(ctx context.Context, id int64) (*models.AppointmentDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AppointmentDetail), args.Error(1)
}
func (m *mockAppointmentStore) CancelAppointment(ctx context.Context, id int64, canceledAt time.Time) error {
	return m.Called(ctx, id, canceledAt).Error(0)
}
func (m *mockAppointmentStore) HasActiveAppointment(ctx context.Context, providerID int64, slot time.Time) (bool, error) {
	args := m.Called(ctx, providerID, slot)
	return args.Bool(0), args.Error(1)
}
func (m *mockAppointmentStore) ListUserAppointments(ctx context.Context, userID int64, limit, offset int) ([]*models.AppointmentDetail, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AppointmentDetail), args.Error(1)
}

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockUserService) IsProvider(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, userID int64, content string) (string, error) {
	args := m.Called(ctx, userID, content)
	return args.String(0), args.Error(1)
}
func (m *mockNotifier) List(ctx context.Context, actorID int64) ([]*models.Notification, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Notification), args.Error(1)
}
func (m *mockNotifier) MarkRead(ctx context.Context, actorID int64, id string) (*models.Notification, error) {
	args := m.Called(ctx, actorID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}

type mockQueue struct {
	mock.Mock
}

func (m *mockQueue) Enqueue(ctx context.Context, jobKey string, payload interface{}) error {
	return m.Called(ctx, jobKey, payload).Error(0)
}

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockUserStore) GetProviderByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

var (
	_ domain.AppointmentStore    = (*mockAppointmentStore)(nil)
	_ domain.UserService         = (*mockUserService)(nil)
	_ domain.NotificationService = (*mockNotifier)(nil)
	_ domain.JobQueue            = (*mockQueue)(nil)
	_ domain.UserStore           = (*mockUserStore)(nil)
)
