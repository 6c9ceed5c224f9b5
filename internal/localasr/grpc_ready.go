package localasr

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
)

var errConnShutdown = errors.New("recognizer connection is shut down")

// awaitReady kicks an idle connection and waits for it to become Ready. A
// connection that never gets there reports the last state it was seen in.
func awaitReady(ctx context.Context, conn *grpc.ClientConn) error {
	conn.Connect()
	for state := conn.GetState(); ; state = conn.GetState() {
		switch state {
		case connectivity.Ready:
			return nil
		case connectivity.Shutdown:
			return errConnShutdown
		case connectivity.Idle:
			conn.Connect()
		}

		if conn.WaitForStateChange(ctx, state) {
			continue
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return ctx.Err()
		}
		return fmt.Errorf("recognizer not ready after waiting (last state %s): %w", state, ctx.Err())
	}
}
