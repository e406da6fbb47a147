package observability

import (
	"context"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// levelFor logs server faults at Error and everything else at Debug.
func levelFor(code codes.Code) zapcore.Level {
	switch code {
	case codes.Internal, codes.Unavailable, codes.Unknown, codes.DataLoss:
		return zapcore.ErrorLevel
	default:
		return zapcore.DebugLevel
	}
}

// UnaryServerInterceptor logs each unary call with its method, status code
// and duration.
func UnaryServerInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		began := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		if ce := logger.Check(levelFor(code), "grpc call"); ce != nil {
			ce.Write(
				zap.String("method", info.FullMethod),
				zap.String("code", code.String()),
				zap.Duration("elapsed", time.Since(began)),
				zap.Error(err),
			)
		}
		return resp, err
	}
}

// StreamServerInterceptor logs the opening and end of each server stream.
func StreamServerInterceptor(logger *zap.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		began := time.Now()
		logger.Debug("grpc stream opened", zap.String("method", info.FullMethod))
		err := handler(srv, ss)
		code := status.Code(err)
		if code == codes.Canceled {
			code = codes.OK
		}
		if ce := logger.Check(levelFor(code), "grpc stream closed"); ce != nil {
			ce.Write(
				zap.String("method", info.FullMethod),
				zap.String("code", code.String()),
				zap.Duration("elapsed", time.Since(began)),
				zap.Error(err),
			)
		}
		return err
	}
}
