package handler

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/pesio-ai/be-hr-approvals/internal/domain"
	"github.com/pesio-ai/be-hr-approvals/internal/errors"
)

func startGRPC(t *testing.T, svc *services) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(zerolog.Nop())))
	NewGRPCHandler(svc.approvals, svc.authz, zerolog.Nop()).Register(srv)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype("json")),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestGRPC_ApproveAndDeny(t *testing.T) {
	svc := newServices(t)
	conn := startGRPC(t, svc)

	_, err := svc.relationships.Create(context.Background(), "a@x.com", "b@x.com", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)

	ctx := metadata.AppendToOutgoingContext(context.Background(), userEmailMetadataKey, "b@x.com")
	req := &DecisionRequest{SubmitterEmail: "a@x.com", WorkDate: "2025-06-01"}

	var decision domain.AuthorizationDecision
	require.NoError(t, conn.Invoke(ctx, "/"+ApprovalServiceName+"/Authorize", req, &decision))
	assert.True(t, decision.Allowed)

	var rec domain.ApprovalRecord
	require.NoError(t, conn.Invoke(ctx, "/"+ApprovalServiceName+"/Approve", req, &rec))
	assert.Equal(t, domain.StatusApproved, rec.Status)

	err = conn.Invoke(ctx, "/"+ApprovalServiceName+"/Approve", req, &rec)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	err = conn.Invoke(context.Background(), "/"+ApprovalServiceName+"/Approve", req, &rec)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := &DecisionRequest{SubmitterEmail: "a@x.com", WorkDate: "2025-06-01", Reason: ""}
	err = conn.Invoke(ctx, "/"+ApprovalServiceName+"/Reject", bad, &rec)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestMapErrorToGRPC(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{errors.InvalidInput("f", "bad"), codes.InvalidArgument},
		{errors.Unauthorized(errors.CauseAuthority, "NOT_AN_APPROVER", "no", nil), codes.PermissionDenied},
		{errors.InvalidState("x", "APPROVED", "REJECTED"), codes.FailedPrecondition},
		{errors.NotFound("approval_record", "k"), codes.NotFound},
		{errors.Wrap(context.DeadlineExceeded, errors.KindInternal, "db"), codes.Internal},
		{context.Canceled, codes.Internal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(mapErrorToGRPC(tt.err)), tt.err.Error())
	}
	assert.NoError(t, mapErrorToGRPC(nil))
}
