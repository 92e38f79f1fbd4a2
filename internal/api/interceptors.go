package api

import (
	"context"
	"strings"
	"time"

	"barbeapp/internal/auth"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const (
	requestIDMetadataKey = "x-request-id"
	authMetadataKey      = "authorization"
	clientKeyUnknown     = "unknown"
)

// AuthInterceptor checks the bearer token on appointment methods and applies the per-client rate limit.
type AuthInterceptor struct {
	secret  string
	limiter *rateLimiter
}

func NewAuthInterceptor(secret string, limiter *rateLimiter) *AuthInterceptor {
	return &AuthInterceptor{secret: secret, limiter: limiter}
}

func (a *AuthInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !requiresAuth(info.FullMethod) {
			return handler(ctx, req)
		}

		if !a.limiter.allow(peerKey(ctx)) {
			return nil, status.Error(codes.ResourceExhausted, "rate limit exceeded")
		}

		userID, err := a.authenticate(ctx)
		if err != nil {
			return nil, err
		}
		return handler(WithUserID(ctx, userID), req)
	}
}

func (a *AuthInterceptor) authenticate(ctx context.Context) (int64, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return 0, status.Error(codes.Unauthenticated, "Token not provided")
	}

	header := strings.TrimSpace(first(md.Get(authMetadataKey)))
	if header == "" {
		return 0, status.Error(codes.Unauthenticated, "Token not provided")
	}

	scheme, raw, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return 0, status.Error(codes.Unauthenticated, "Token invalid")
	}

	claims, err := auth.ParseToken(strings.TrimSpace(raw), a.secret)
	if err != nil {
		return 0, status.Error(codes.Unauthenticated, "Token invalid")
	}
	return claims.UserID, nil
}

// requiresAuth leaves health and reflection open.
func requiresAuth(fullMethod string) bool {
	return strings.HasPrefix(fullMethod, "/"+appointmentServiceName+"/")
}

func peerKey(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		addr := p.Addr.String()
		if i := strings.LastIndex(addr, ":"); i > 0 {
			return addr[:i]
		}
		return addr
	}
	return clientKeyUnknown
}

func LoggingUnaryInterceptor(logger *zerolog.Logger) grpc.UnaryServerInterceptor {
	base := zerolog.Nop()
	if logger != nil {
		base = logger.With().Str("component", "grpc").Logger()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		requestID := requestIDFromMetadata(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDMetadataKey, requestID))

		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		remote := clientKeyUnknown
		if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
			remote = p.Addr.String()
		}

		base.Info().
			Str("request_id", requestID).
			Str("method", info.FullMethod).
			Str("remote", remote).
			Str("code", code.String()).
			Dur("duration", time.Since(start)).
			Msg("grpc request")

		return resp, err
	}
}

func requestIDFromMetadata(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if id := strings.TrimSpace(first(md.Get(requestIDMetadataKey))); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
