// Package localasr reaches locally hosted speech models, either a gRPC
// recognizer sidecar or a whisper-compatible command line tool.
package localasr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/murmur/internal/session"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the recognizer service served by the local sidecar.
const ServiceName = "murmur.localasr.v1.Recognizer"

const transcribeMethod = "/" + ServiceName + "/Transcribe"

// GRPCConfig addresses a recognizer sidecar.
type GRPCConfig struct {
	Endpoint    string
	Model       string
	DialTimeout time.Duration
	DialOptions []grpc.DialOption
}

// GRPCRecognizer implements session.Transcriber over one shared connection.
//
// Requests and responses are structpb.Struct values so the sidecar needs no
// generated stubs: the request carries "path", "model", and "language"; the
// response carries "text".
type GRPCRecognizer struct {
	cfg    GRPCConfig
	logger *slog.Logger

	mu   sync.Mutex
	conn *grpc.ClientConn
}

// NewGRPCRecognizer builds a recognizer. The connection is opened lazily.
func NewGRPCRecognizer(cfg GRPCConfig, logger *slog.Logger) *GRPCRecognizer {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GRPCRecognizer{cfg: cfg, logger: logger}
}

// Transcribe sends the asset path to the sidecar.
func (r *GRPCRecognizer) Transcribe(ctx context.Context, asset session.Asset, language string) (string, error) {
	conn, err := r.ready(ctx)
	if err != nil {
		return "", err
	}

	req, err := structpb.NewStruct(map[string]any{
		"path":     asset.Path,
		"model":    r.cfg.Model,
		"language": language,
	})
	if err != nil {
		return "", fmt.Errorf("encode recognizer request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := conn.Invoke(ctx, transcribeMethod, req, resp); err != nil {
		return "", statusError(err)
	}

	field, ok := resp.GetFields()["text"]
	if !ok {
		return "", session.NewBackendError(session.ReasonInvalidResponse, errors.New("recognizer response has no text field"))
	}
	text, ok := field.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", session.NewBackendError(session.ReasonInvalidResponse, fmt.Errorf("recognizer text has type %T", field.GetKind()))
	}
	return strings.TrimSpace(text.StringValue), nil
}

// Health reports whether the sidecar serves the recognizer.
func (r *GRPCRecognizer) Health(ctx context.Context) error {
	conn, err := r.ready(ctx)
	if err != nil {
		return err
	}
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		return statusError(err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return session.NewBackendError(session.ReasonModelUnavailable, fmt.Errorf("recognizer status %s", resp.GetStatus()))
	}
	return nil
}

// Close releases the shared connection.
func (r *GRPCRecognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	return err
}

// ready returns a Ready connection, dialing on first use and redialing after
// shutdown.
func (r *GRPCRecognizer) ready(ctx context.Context) (*grpc.ClientConn, error) {
	endpoint := strings.TrimSpace(r.cfg.Endpoint)
	if endpoint == "" {
		return nil, session.NewBackendError(session.ReasonModelUnavailable, errors.New("recognizer endpoint is empty"))
	}

	r.mu.Lock()
	if r.conn == nil || r.conn.GetState() == connectivity.Shutdown {
		opts := append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, r.cfg.DialOptions...)
		conn, err := grpc.NewClient(endpoint, opts...)
		if err != nil {
			r.mu.Unlock()
			return nil, session.NewBackendError(session.ReasonModelUnavailable, fmt.Errorf("dial recognizer %q: %w", endpoint, err))
		}
		r.conn = conn
	}
	conn := r.conn
	r.mu.Unlock()

	readyCtx, cancel := context.WithTimeout(ctx, r.cfg.DialTimeout)
	defer cancel()
	if err := awaitReady(readyCtx, conn); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, session.NewBackendError(session.ReasonCancelled, ctx.Err())
		}
		r.logger.Debug("recognizer not ready", "endpoint", endpoint, "error", err.Error())
		return nil, session.NewBackendError(session.ReasonModelUnavailable, fmt.Errorf("wait for recognizer readiness: %w", err))
	}
	return conn, nil
}

// statusError maps gRPC status codes onto failure reasons.
func statusError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return session.NewBackendError(session.ReasonUnknown, err)
	}

	reason := session.ReasonUnknown
	switch st.Code() {
	case codes.Canceled:
		reason = session.ReasonCancelled
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		reason = session.ReasonNetwork
	case codes.NotFound, codes.Unimplemented, codes.FailedPrecondition:
		reason = session.ReasonModelUnavailable
	case codes.InvalidArgument, codes.PermissionDenied, codes.Unauthenticated:
		reason = session.ReasonAPIRejected
	case codes.DataLoss, codes.Internal:
		reason = session.ReasonInvalidResponse
	}
	return &session.BackendError{Reason: reason, Status: int(st.Code()), Err: err}
}
