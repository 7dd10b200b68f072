package client

import (
	"fmt"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
)

var (
	Logger = logger.GetLogger("client")
)

// unwrapResponse is a helper function used by all calls to turn a response into its payload
// It checks that the response belongs to the request and converts a remote error message
// into a common.RemoteError
func unwrapResponse(req *common.Request, resp *common.Response) ([]byte, error) {
	if resp == nil {
		return nil, common.NewFrameworkError("call", fmt.Errorf("empty response for %s", req.Ack))
	}

	// Check if the response belongs to the request
	if resp.Ack != req.Ack {
		return nil, common.NewFrameworkError("call", fmt.Errorf("response %s does not match request %s", resp.Ack, req.Ack))
	}

	// Check if the response is an error response
	if resp.Err != "" {
		return nil, &common.RemoteError{Name: req.Name(), Message: resp.Err}
	}

	return resp.Payload, nil
}
