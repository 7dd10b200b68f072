package common

import (
	"encoding/hex"
	"fmt"
	"github.com/google/uuid"
)

// --------------------------------------------------------------------------
// Acknowledgment ID
// --------------------------------------------------------------------------

// AckIDLength is the fixed length of an acknowledgment id in bytes
const AckIDLength = 16

// AckID is the binary correlation key embedded in a request and echoed in its response.
// It is a fixed size array, so two ids compare equal if their content is equal and
// an AckID can be used directly as a map key.
type AckID [AckIDLength]byte

// NewAckID creates a new random acknowledgment id (based on a v4 uuid)
func NewAckID() AckID {
	return AckID(uuid.New())
}

// AckIDFromBytes copies b into an AckID. b must have exactly AckIDLength bytes.
func AckIDFromBytes(b []byte) (AckID, error) {
	var id AckID
	if len(b) != AckIDLength {
		return id, fmt.Errorf("invalid ack id length %d (expected %d)", len(b), AckIDLength)
	}
	copy(id[:], b)
	return id, nil
}

// String returns the hex representation of the id
func (a AckID) String() string {
	return hex.EncodeToString(a[:])
}

// MarshalText implements encoding.TextMarshaler, so the id is a hex string in JSON
func (a AckID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *AckID) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("invalid ack id %q: %w", text, err)
	}
	id, err := AckIDFromBytes(b)
	if err != nil {
		return err
	}
	*a = id
	return nil
}

// --------------------------------------------------------------------------
// Request / Response
// --------------------------------------------------------------------------

// Request is a single outbound invocation. The transport treats Payload as opaque bytes,
// Service and Method are only used for routing on the peer and for metrics.
type Request struct {
	// Ack correlates the request with its response
	Ack AckID `json:"ack"`

	// Routing information
	Service string `json:"service,omitempty"`
	Method  string `json:"method,omitempty"`

	// Serial identifies the serialization used for Payload (opaque to the transport)
	Serial uint8 `json:"serial,omitempty"`

	// Headers carries attachments such as the auth token
	Headers map[string]string `json:"headers,omitempty"`

	// Payload is the encoded argument list
	Payload []byte `json:"payload,omitempty"`
}

// Response is the answer to a Request, matched by Ack
type Response struct {
	Ack     AckID  `json:"ack"`
	Payload []byte `json:"payload,omitempty"`
	Err     string `json:"err,omitempty"` // Empty if no error, otherwise contains the remote error message
}

// NewRequest creates a new request with a fresh acknowledgment id
func NewRequest(service, method string, payload []byte) *Request {
	return &Request{
		Ack:     NewAckID(),
		Service: service,
		Method:  method,
		Payload: payload,
	}
}

// WithHeader returns a shallow copy of the request with the header key set to value.
// The header map is copied, the payload is shared.
func (r *Request) WithHeader(key, value string) *Request {
	clone := *r
	clone.Headers = make(map[string]string, len(r.Headers)+1)
	for k, v := range r.Headers {
		clone.Headers[k] = v
	}
	clone.Headers[key] = value
	return &clone
}

// Name returns "service.method", used for logging and metrics
func (r *Request) Name() string {
	return r.Service + "." + r.Method
}

// NewResponse creates a response for the request with the given payload and error
func NewResponse(req *Request, payload []byte, err error) *Response {
	resp := &Response{
		Ack:     req.Ack,
		Payload: payload,
	}
	if err != nil {
		resp.Err = err.Error()
	}
	return resp
}
