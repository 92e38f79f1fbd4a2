package api

import (
	"context"

	"barbeapp/internal/domain"
	"barbeapp/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockAppointmentService struct {
	mock.Mock
}

func (m *mockAppointmentService) Create(ctx context.Context, actorID int64, input domain.CreateAppointmentInput) (*models.Appointment, error) {
	args := m.Called(ctx, actorID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}

func (m *mockAppointmentService) Cancel(ctx context.Context, actorID, appointmentID int64) (*models.AppointmentDetail, error) {
	args := m.Called(ctx, actorID, appointmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AppointmentDetail), args.Error(1)
}

func (m *mockAppointmentService) List(ctx context.Context, actorID int64, page int) ([]*models.AppointmentDetail, error) {
	args := m.Called(ctx, actorID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AppointmentDetail), args.Error(1)
}

type mockNotificationService struct {
	mock.Mock
}

func (m *mockNotificationService) Notify(ctx context.Context, userID int64, content string) (string, error) {
	args := m.Called(ctx, userID, content)
	return args.String(0), args.Error(1)
}

func (m *mockNotificationService) List(ctx context.Context, actorID int64) ([]*models.Notification, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Notification), args.Error(1)
}

func (m *mockNotificationService) MarkRead(ctx context.Context, actorID int64, id string) (*models.Notification, error) {
	args := m.Called(ctx, actorID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Notification), args.Error(1)
}
