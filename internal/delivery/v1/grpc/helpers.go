package grpc

import (
	"errors"

	"github.com/DRSN-tech/product-verifier/pkg/e"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errorCodes = []struct {
	err  error
	code codes.Code
}{
	{e.ErrImageDecode, codes.InvalidArgument},
	{e.ErrUnsupportedMediaType, codes.InvalidArgument},
	{e.ErrNoImages, codes.InvalidArgument},
	{e.ErrTooManyImages, codes.InvalidArgument},
	{e.ErrFileTooLarge, codes.InvalidArgument},
	{e.ErrEmptyReferenceSet, codes.FailedPrecondition},
	{e.ErrDimensionMismatch, codes.FailedPrecondition},
	{e.ErrModelMismatch, codes.FailedPrecondition},
	{e.ErrImageNotFound, codes.NotFound},
	{e.ErrModelUnavailable, codes.Unavailable},
}

func GRPCErrorResponse(err error) error {
	for _, m := range errorCodes {
		if errors.Is(err, m.err) {
			return status.Error(m.code, m.err.Error())
		}
	}

	return status.Error(codes.Internal, e.ErrInternalServerError.Error())
}
