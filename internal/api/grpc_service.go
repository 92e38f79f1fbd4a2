package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"barbeapp/internal/domain"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const appointmentServiceName = "barbeapp.appointments.v1.AppointmentService"

// AppointmentRPCServer mirrors the HTTP appointment routes.
// Requests and responses are google.protobuf.Struct with the same JSON field names.
type AppointmentRPCServer interface {
	ListAppointments(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	CreateAppointment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	CancelAppointment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var appointmentServiceDesc = grpc.ServiceDesc{
	ServiceName: appointmentServiceName,
	HandlerType: (*AppointmentRPCServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListAppointments", Handler: unaryHandler("ListAppointments", AppointmentRPCServer.ListAppointments)},
		{MethodName: "CreateAppointment", Handler: unaryHandler("CreateAppointment", AppointmentRPCServer.CreateAppointment)},
		{MethodName: "CancelAppointment", Handler: unaryHandler("CancelAppointment", AppointmentRPCServer.CancelAppointment)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "barbeapp/appointments/v1/appointments.proto",
}

func RegisterAppointmentServer(s grpc.ServiceRegistrar, srv AppointmentRPCServer) {
	s.RegisterService(&appointmentServiceDesc, srv)
}

func unaryHandler(method string, call func(AppointmentRPCServer, context.Context, *structpb.Struct) (*structpb.Struct, error)) grpc.MethodHandler {
	fullMethod := "/" + appointmentServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AppointmentRPCServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AppointmentRPCServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

type AppointmentRPC struct {
	appointments domain.AppointmentService
	logger       *zerolog.Logger
}

func NewAppointmentRPC(appointments domain.AppointmentService, logger *zerolog.Logger) *AppointmentRPC {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &AppointmentRPC{appointments: appointments, logger: logger}
}

func (s *AppointmentRPC) ListAppointments(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, _ := UserIDFromContext(ctx)

	page := 1
	if v, ok := intField(in, "page"); ok && v > 0 {
		page = int(v)
	}

	list, err := s.appointments.List(ctx, actor, page)
	if err != nil {
		return nil, s.grpcError(err)
	}
	return toStruct(map[string]any{"appointments": list})
}

func (s *AppointmentRPC) CreateAppointment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, _ := UserIDFromContext(ctx)

	providerID, ok := intField(in, "provider_id")
	if !ok {
		return nil, s.grpcError(domain.ErrInvalidInput)
	}
	input := domain.CreateAppointmentInput{
		ProviderID: providerID,
		Date:       in.GetFields()["date"].GetStringValue(),
	}

	appointment, err := s.appointments.Create(ctx, actor, input)
	if err != nil {
		return nil, s.grpcError(err)
	}
	return toStruct(appointment)
}

func (s *AppointmentRPC) CancelAppointment(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	actor, _ := UserIDFromContext(ctx)

	id, ok := intField(in, "id")
	if !ok || id <= 0 {
		return nil, s.grpcError(domain.ErrAppointmentNotFound)
	}

	detail, err := s.appointments.Cancel(ctx, actor, id)
	if err != nil {
		return nil, s.grpcError(err)
	}
	return toStruct(detail)
}

func (s *AppointmentRPC) grpcError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrDomain):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrAuthorization):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		s.logger.Error().Err(err).Msg("grpc request failed")
		return status.Error(codes.Internal, internalErrorMessage)
	}
}

// intField reads a whole-number field. A missing field is 0; fractions and non-numbers are rejected.
func intField(in *structpb.Struct, name string) (int64, bool) {
	v, present := in.GetFields()[name]
	if !present {
		return 0, true
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber {
		return 0, false
	}
	f := n.NumberValue
	if f != math.Trunc(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// toStruct converts v through its JSON form so field names match the HTTP API.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}
