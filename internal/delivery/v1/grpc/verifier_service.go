package grpc

import (
	"context"
	"time"

	"github.com/DRSN-tech/product-verifier/internal/domain"
	"github.com/DRSN-tech/product-verifier/internal/usecase"
	"github.com/DRSN-tech/product-verifier/pkg/e"
	"github.com/DRSN-tech/product-verifier/pkg/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Сервис описан без .proto: сообщения берутся из well-known types.
const serviceName = "verifier.v1.Verifier"

const (
	AddReferenceMethod    = "/" + serviceName + "/AddReference"
	VerifyMethod          = "/" + serviceName + "/Verify"
	ListReferencesMethod  = "/" + serviceName + "/ListReferences"
	ResetReferencesMethod = "/" + serviceName + "/ResetReferences"
)

// VerifierServer — серверная часть verifier.v1.Verifier.
type VerifierServer interface {
	AddReference(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error)
	Verify(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error)
	ListReferences(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	ResetReferences(ctx context.Context, req *emptypb.Empty) (*emptypb.Empty, error)
}

type VerifierService struct {
	uc     usecase.VerificationUC
	logger logger.Logger
}

func NewVerifierService(uc usecase.VerificationUC, logger logger.Logger) *VerifierService {
	return &VerifierService{uc: uc, logger: logger}
}

func (g *VerifierService) AddReference(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	const op = "grpc.AddReference"

	img := usecase.NewUploadedImage(req.GetValue(), "", "grpc")
	refs, err := g.uc.AddReferences(ctx, usecase.NewAddReferencesReq([]usecase.UploadedImage{img}))
	if err != nil {
		return nil, g.fail(op, err)
	}

	return g.toStruct(op, map[string]any{
		"model_version": g.uc.ModelVersion(),
		"reference":     referenceFields(refs[0]),
	})
}

func (g *VerifierService) Verify(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	const op = "grpc.Verify"

	res, err := g.uc.Verify(ctx, usecase.NewVerifyReq(usecase.NewUploadedImage(req.GetValue(), "", "grpc")))
	if err != nil {
		return nil, g.fail(op, err)
	}

	return g.toStruct(op, map[string]any{
		"verification_id": res.VerificationID,
		"is_match":        res.IsMatch,
		"score":           res.Score,
		"threshold":       res.Threshold,
		"model_version":   res.ModelVersion,
		"reference_count": res.ReferenceCount,
		"query_image_key": res.QueryImage.ObjectKey,
		"best_match":      referenceFields(res.BestMatch),
	})
}

func (g *VerifierService) ListReferences(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	const op = "grpc.ListReferences"

	refs := g.uc.ListReferences(ctx)
	items := make([]any, 0, len(refs))
	for _, ref := range refs {
		items = append(items, referenceFields(ref))
	}

	return g.toStruct(op, map[string]any{
		"model_version": g.uc.ModelVersion(),
		"count":         len(refs),
		"references":    items,
	})
}

func (g *VerifierService) ResetReferences(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	removed := g.uc.ResetReferences(ctx)
	g.logger.Infof("reference set cleared over grpc, %d removed", removed)
	return &emptypb.Empty{}, nil
}

func (g *VerifierService) fail(op string, err error) error {
	err = e.Wrap(op, err)
	resp := GRPCErrorResponse(err)
	if status.Code(resp) == codes.Internal {
		g.logger.Errorf(err, "%s", op)
	} else {
		g.logger.Warnf("%s: %v", op, err)
	}
	return resp
}

func (g *VerifierService) toStruct(op string, fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, g.fail(op, err)
	}
	return s, nil
}

func referenceFields(ref domain.Reference) map[string]any {
	return map[string]any{
		"id":           ref.ID,
		"name":         ref.Name,
		"image_key":    ref.Image.ObjectKey,
		"content_type": ref.Image.ContentType,
		"size":         ref.Image.Size,
		"added_at":     ref.AddedAt.UTC().Format(time.RFC3339Nano),
	}
}

// RegisterVerifierServer регистрирует сервис на grpc-сервере.
func RegisterVerifierServer(s grpc.ServiceRegistrar, srv VerifierServer) {
	s.RegisterService(&verifierServiceDesc, srv)
}

var verifierServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*VerifierServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AddReference", Handler: addReferenceHandler},
		{MethodName: "Verify", Handler: verifyHandler},
		{MethodName: "ListReferences", Handler: listReferencesHandler},
		{MethodName: "ResetReferences", Handler: resetReferencesHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "verifier/v1/verifier.proto",
}

func addReferenceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		return srv.(VerifierServer).AddReference(ctx, req.(*wrapperspb.BytesValue))
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: AddReferenceMethod}, call)
}

func verifyHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		return srv.(VerifierServer).Verify(ctx, req.(*wrapperspb.BytesValue))
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: VerifyMethod}, call)
}

func listReferencesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		return srv.(VerifierServer).ListReferences(ctx, req.(*emptypb.Empty))
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: ListReferencesMethod}, call)
}

func resetReferencesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	call := func(ctx context.Context, req any) (any, error) {
		return srv.(VerifierServer).ResetReferences(ctx, req.(*emptypb.Empty))
	}
	if interceptor == nil {
		return call(ctx, in)
	}
	return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: ResetReferencesMethod}, call)
}
