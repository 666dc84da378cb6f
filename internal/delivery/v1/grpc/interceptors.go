package grpc

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/DRSN-tech/product-verifier/pkg/e"
	"github.com/DRSN-tech/product-verifier/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// recoveryInterceptor превращает панику обработчика в codes.Internal, процесс продолжает работу.
func recoveryInterceptor(log logger.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf(fmt.Errorf("panic: %v", r), "%s: recovered from panic\n%s", info.FullMethod, debug.Stack())
				resp, err = nil, status.Error(codes.Internal, e.ErrInternalServerError.Error())
			}
		}()

		return handler(ctx, req)
	}
}
