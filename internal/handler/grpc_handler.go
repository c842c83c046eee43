package handler

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/pesio-ai/be-hr-approvals/internal/domain"
	"github.com/pesio-ai/be-hr-approvals/internal/errors"
	"github.com/pesio-ai/be-hr-approvals/internal/service"
)

// ApprovalServiceName is the fully qualified gRPC service name.
const ApprovalServiceName = "hr.approvals.v1.ApprovalService"

// userEmailMetadataKey is the gRPC counterpart of the X-User-Email header.
const userEmailMetadataKey = "x-user-email"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec lets clients call the approval service with
// grpc.CallContentSubtype("json") without generated stubs.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return "json" }

// DecisionRequest is the gRPC request for Authorize, Approve, Reject and Resubmit.
type DecisionRequest struct {
	SubmitterEmail string `json:"submitter_email"`
	WorkDate       string `json:"work_date"`
	Action         string `json:"action,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// GRPCHandler implements the ApprovalService gRPC interface
type GRPCHandler struct {
	approvals *service.ApprovalService
	authz     *service.AuthorizationService
	logger    zerolog.Logger
}

// NewGRPCHandler creates a new gRPC handler
func NewGRPCHandler(approvals *service.ApprovalService, authz *service.AuthorizationService, logger zerolog.Logger) *GRPCHandler {
	return &GRPCHandler{
		approvals: approvals,
		authz:     authz,
		logger:    logger.With().Str("handler", "grpc").Logger(),
	}
}

// Register adds the approval service to s.
func (h *GRPCHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: ApprovalServiceName,
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "Authorize", Handler: h.unary("Authorize", h.Authorize)},
			{MethodName: "Approve", Handler: h.unary("Approve", h.Approve)},
			{MethodName: "Reject", Handler: h.unary("Reject", h.Reject)},
			{MethodName: "Resubmit", Handler: h.unary("Resubmit", h.Resubmit)},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "approvals.json",
	}, h)
}

type unaryFunc func(ctx context.Context, req *DecisionRequest) (any, error)

func (h *GRPCHandler) unary(method string, fn unaryFunc) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(_ any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := new(DecisionRequest)
		if err := dec(req); err != nil {
			return nil, status.Error(codes.InvalidArgument, "invalid request body")
		}
		handle := func(ctx context.Context, r any) (any, error) {
			return fn(ctx, r.(*DecisionRequest))
		}
		if interceptor == nil {
			return handle(ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: h, FullMethod: "/" + ApprovalServiceName + "/" + method}
		return interceptor(ctx, req, info, handle)
	}
}

// Authorize returns the authorization decision for the caller.
func (h *GRPCHandler) Authorize(ctx context.Context, req *DecisionRequest) (any, error) {
	actor, date, err := h.parse(ctx, req)
	if err != nil {
		return nil, err
	}
	action := domain.ActionApprove
	if req.Action != "" {
		action = domain.Action(strings.ToUpper(req.Action))
	}
	decision, err := h.authz.Authorize(ctx, actor, req.SubmitterEmail, date, action)
	if err != nil {
		return nil, mapErrorToGRPC(err)
	}
	return decision, nil
}

// Approve approves a record
func (h *GRPCHandler) Approve(ctx context.Context, req *DecisionRequest) (any, error) {
	actor, date, err := h.parse(ctx, req)
	if err != nil {
		return nil, err
	}
	rec, err := h.approvals.Approve(ctx, actor, req.SubmitterEmail, date)
	if err != nil {
		return nil, mapErrorToGRPC(err)
	}
	return rec, nil
}

// Reject rejects a record
func (h *GRPCHandler) Reject(ctx context.Context, req *DecisionRequest) (any, error) {
	actor, date, err := h.parse(ctx, req)
	if err != nil {
		return nil, err
	}
	rec, err := h.approvals.Reject(ctx, actor, req.SubmitterEmail, date, req.Reason)
	if err != nil {
		return nil, mapErrorToGRPC(err)
	}
	return rec, nil
}

// Resubmit returns the caller's own record to PENDING
func (h *GRPCHandler) Resubmit(ctx context.Context, req *DecisionRequest) (any, error) {
	actor, date, err := h.parse(ctx, req)
	if err != nil {
		return nil, err
	}
	submitter := req.SubmitterEmail
	if submitter == "" {
		submitter = actor
	}
	rec, err := h.approvals.Resubmit(ctx, actor, submitter, date)
	if err != nil {
		return nil, mapErrorToGRPC(err)
	}
	return rec, nil
}

func (h *GRPCHandler) parse(ctx context.Context, req *DecisionRequest) (string, time.Time, error) {
	actor := userEmail(ctx)
	if actor == "" {
		return "", time.Time{}, status.Error(codes.Unauthenticated, "x-user-email metadata is required")
	}
	date, err := domain.ParseDate("work_date", req.WorkDate)
	if err != nil {
		return "", time.Time{}, mapErrorToGRPC(err)
	}
	return actor, date, nil
}

// userEmail extracts the caller's email from incoming metadata, or returns empty string.
func userEmail(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(userEmailMetadataKey); len(v) > 0 {
		return v[0]
	}
	return ""
}

func mapErrorToGRPC(err error) error {
	if err == nil {
		return nil
	}
	e, ok := errors.As(err)
	if !ok {
		return status.Error(codes.Internal, "internal error")
	}

	switch e.Kind {
	case errors.KindValidation:
		return status.Error(codes.InvalidArgument, e.Error())
	case errors.KindAuthorization:
		return status.Error(codes.PermissionDenied, e.Error())
	case errors.KindInvalidState:
		return status.Error(codes.FailedPrecondition, e.Error())
	case errors.KindNotFound:
		return status.Error(codes.NotFound, e.Error())
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

// LoggingInterceptor writes one log line per unary call.
func LoggingInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		evt := log.Info()
		if code := status.Code(err); code != codes.OK {
			evt = log.Warn().Str("code", code.String())
		}
		evt.Str("method", info.FullMethod).
			Str("actor", userEmail(ctx)).
			Dur("duration", time.Since(start)).
			Msg("gRPC request")
		return resp, err
	}
}
