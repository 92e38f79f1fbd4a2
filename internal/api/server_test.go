package api

import (
	"context"
	"net"
	"testing"
	"time"

	"barbeapp/internal/auth"
	"barbeapp/internal/config"
	"barbeapp/internal/domain"
	"barbeapp/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func startGRPC(t *testing.T, appointments domain.AppointmentService) (*GRPCServer, *grpc.ClientConn) {
	t.Helper()

	cfg := config.APIConfig{Auth: config.APIAuthConfig{JWTSecret: testSecret}}
	srv, err := NewGRPCServer(cfg, Services{Appointments: appointments}, nil)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return srv, conn
}

func withToken(t *testing.T, userID int64) context.Context {
	t.Helper()
	token, err := auth.MakeToken(userID, testSecret, time.Hour)
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), authMetadataKey, "Bearer "+token)
}

func invoke(ctx context.Context, conn *grpc.ClientConn, method string, in map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	err = conn.Invoke(ctx, "/"+appointmentServiceName+"/"+method, req, out)
	return out, err
}

func TestGRPC_Health(t *testing.T) {
	srv, conn := startGRPC(t, new(mockAppointmentService))

	h := NewHealth()
	h.Add("sqlite", func(ctx context.Context) error { return nil })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Watch(ctx, srv.HealthServer(), time.Hour, nil)

	client := healthpb.NewHealthClient(conn)
	require.Eventually(t, func() bool {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, time.Second, 10*time.Millisecond)
}

func TestGRPC_RequiresToken(t *testing.T) {
	_, conn := startGRPC(t, new(mockAppointmentService))

	_, err := invoke(context.Background(), conn, "ListAppointments", map[string]any{})
	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "Token not provided", status.Convert(err).Message())
}

func TestGRPC_CreateAndCancel(t *testing.T) {
	svc := new(mockAppointmentService)
	_, conn := startGRPC(t, svc)

	date := time.Date(2030, 1, 10, 14, 0, 0, 0, time.UTC)
	svc.On("Create", mock.Anything, int64(42), domain.CreateAppointmentInput{ProviderID: 2, Date: "2030-01-10T14:00:00Z"}).
		Return(&models.Appointment{ID: 1, UserID: 42, ProviderID: 2, Date: date}, nil).Once()
	svc.On("Cancel", mock.Anything, int64(42), int64(1)).Return(nil, domain.ErrCancelWindowClosed).Once()

	out, err := invoke(withToken(t, 42), conn, "CreateAppointment", map[string]any{
		"provider_id": 2,
		"date":        "2030-01-10T14:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, float64(1), out.GetFields()["id"].GetNumberValue())
	assert.Equal(t, "2030-01-10T14:00:00Z", out.GetFields()["date"].GetStringValue())

	_, err = invoke(withToken(t, 42), conn, "CancelAppointment", map[string]any{"id": 1})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, "You can only cancel appointments 2 hours in advance", status.Convert(err).Message())

	svc.AssertExpectations(t)
}

func TestGRPC_CreateAppointment_FractionalProvider(t *testing.T) {
	svc := new(mockAppointmentService)
	_, conn := startGRPC(t, svc)

	for _, in := range []map[string]any{
		{"provider_id": 7.9, "date": "2030-01-10T14:00:00Z"},
		{"provider_id": "7", "date": "2030-01-10T14:00:00Z"},
	} {
		_, err := invoke(withToken(t, 42), conn, "CreateAppointment", in)
		require.Error(t, err)
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
		assert.Equal(t, "Validation fails", status.Convert(err).Message())
	}
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestIntField(t *testing.T) {
	in, err := structpb.NewStruct(map[string]any{"whole": 7, "frac": 7.5, "text": "7"})
	require.NoError(t, err)

	v, ok := intField(in, "whole")
	assert.True(t, ok)
	assert.Equal(t, int64(7), v)

	_, ok = intField(in, "frac")
	assert.False(t, ok)
	_, ok = intField(in, "text")
	assert.False(t, ok)

	v, ok = intField(in, "missing")
	assert.True(t, ok)
	assert.Zero(t, v)
}

func TestGRPC_ListAppointments(t *testing.T) {
	svc := new(mockAppointmentService)
	_, conn := startGRPC(t, svc)

	svc.On("List", mock.Anything, int64(42), 1).
		Return([]*models.AppointmentDetail{{Appointment: models.Appointment{ID: 3}}}, nil).Once()

	out, err := invoke(withToken(t, 42), conn, "ListAppointments", map[string]any{})
	require.NoError(t, err)
	list := out.GetFields()["appointments"].GetListValue().GetValues()
	require.Len(t, list, 1)
	assert.Equal(t, float64(3), list[0].GetStructValue().GetFields()["id"].GetNumberValue())
}

func TestLoggingUnaryInterceptor(t *testing.T) {
	interceptor := LoggingUnaryInterceptor(nil)
	handler := func(ctx context.Context, req any) (any, error) {
		return "ok", nil
	}
	info := &grpc.UnaryServerInfo{FullMethod: "test"}

	resp, err := interceptor(context.Background(), "req", info, handler)
	assert.NoError(t, err)
	assert.Equal(t, "ok", resp)
}

func TestRequiresAuth(t *testing.T) {
	assert.True(t, requiresAuth("/"+appointmentServiceName+"/ListAppointments"))
	assert.False(t, requiresAuth("/grpc.health.v1.Health/Check"))
	assert.False(t, requiresAuth("/grpc.reflection.v1.ServerReflection/ServerReflectionInfo"))
}
