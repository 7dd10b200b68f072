package server

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"time"
)

const (
	// EchoService is the service name of the built-in handlers
	EchoService = "echo"
	EchoMethod  = "echo"
	SleepMethod = "sleep"
)

// Echo returns the request payload
func Echo(_ context.Context, req *common.Request) ([]byte, error) {
	return req.Payload, nil
}

// Sleep waits for the duration in the payload (e.g. "250ms") and returns the payload.
// It returns early with an error if ctx is done.
func Sleep(ctx context.Context, req *common.Request) ([]byte, error) {
	d, err := time.ParseDuration(string(req.Payload))
	if err != nil {
		return nil, fmt.Errorf("invalid duration %q: %w", req.Payload, err)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return req.Payload, nil
	}
}

// RegisterBuiltins registers Echo and Sleep under EchoService
func RegisterBuiltins(s IRPCServer) {
	s.Register(EchoService, EchoMethod, Echo)
	s.Register(EchoService, SleepMethod, Sleep)
}
