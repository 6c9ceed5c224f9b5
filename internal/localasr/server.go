package localasr

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// TranscribeFunc handles one recognizer request on the serving side.
type TranscribeFunc func(ctx context.Context, path, model, language string) (string, error)

// RegisterRecognizer serves fn under ServiceName on s. It lets a Go sidecar
// or a test expose the same wire contract GRPCRecognizer speaks.
func RegisterRecognizer(s grpc.ServiceRegistrar, fn TranscribeFunc) {
	s.RegisterService(&grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{{
			MethodName: "Transcribe",
			Handler:    transcribeHandler(fn),
		}},
		Metadata: "murmur/localasr/v1/recognizer",
	}, fn)
}

func transcribeHandler(fn TranscribeFunc) grpc.MethodHandler {
	return func(_ any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}

		handle := func(ctx context.Context, in any) (any, error) {
			fields := in.(*structpb.Struct).GetFields()
			text, err := fn(ctx, fields["path"].GetStringValue(), fields["model"].GetStringValue(), fields["language"].GetStringValue())
			if err != nil {
				return nil, err
			}
			return structpb.NewStruct(map[string]any{"text": text})
		}
		if interceptor == nil {
			return handle(ctx, req)
		}
		info := &grpc.UnaryServerInfo{FullMethod: transcribeMethod}
		return interceptor(ctx, req, info, handle)
	}
}
