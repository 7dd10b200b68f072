package serializer

import (
	"fmt"
	"github.com/ValentinKolb/dRPC/rpc/common"
)

// Codec adapts an IRPCSerializer to the encode/decode calls of the two connection ends.
// Decode failures are framework errors, they close the connection.
type Codec struct {
	s IRPCSerializer
}

// NewCodec creates a codec for the serializer
func NewCodec(s IRPCSerializer) Codec {
	return Codec{s: s}
}

// Encode encodes an outbound request (client side)
func (c Codec) Encode(req *common.Request) ([]byte, error) {
	buf, err := c.s.SerializeRequest(req)
	if err != nil {
		return nil, fmt.Errorf("encode request %s: %w", req.Ack, err)
	}
	return buf, nil
}

// Decode decodes an inbound response (client side)
func (c Codec) Decode(buf []byte) (*common.Response, error) {
	resp := &common.Response{}
	if err := c.s.DeserializeResponse(buf, resp); err != nil {
		return nil, common.NewFrameworkError("decode response", err)
	}
	return resp, nil
}

// DecodeRequest decodes an inbound request (server side)
func (c Codec) DecodeRequest(buf []byte) (*common.Request, error) {
	req := &common.Request{}
	if err := c.s.DeserializeRequest(buf, req); err != nil {
		return nil, common.NewFrameworkError("decode request", err)
	}
	return req, nil
}

// EncodeResponse encodes an outbound response (server side)
func (c Codec) EncodeResponse(resp *common.Response) ([]byte, error) {
	buf, err := c.s.SerializeResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("encode response %s: %w", resp.Ack, err)
	}
	return buf, nil
}
