package serializer

import (
	"errors"
	"github.com/ValentinKolb/dRPC/rpc/common"
	"reflect"
	"testing"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testRequests creates a set of test requests with different fields filled
func testRequests() []common.Request {
	return []common.Request{
		// Only an ack id
		{Ack: common.NewAckID()},

		// Routed request with payload
		{
			Ack:     common.NewAckID(),
			Service: "echo",
			Method:  "say",
			Payload: []byte("hello"),
		},

		// Request with headers and serial
		{
			Ack:     common.NewAckID(),
			Service: "store",
			Method:  "get",
			Serial:  3,
			Headers: map[string]string{"token": "secret", "trace": "abc"},
			Payload: []byte{0, 1, 2, 3},
		},
	}
}

// testResponses creates a set of test responses
func testResponses() []common.Response {
	return []common.Response{
		{Ack: common.NewAckID()},
		{Ack: common.NewAckID(), Payload: []byte("result")},
		{Ack: common.NewAckID(), Err: "remote failure"},
		{Ack: common.NewAckID(), Payload: []byte("partial"), Err: "remote failure"},
	}
}

// TestRequestRoundTrip tests that requests can be serialized and deserialized correctly
func TestRequestRoundTrip(t *testing.T) {
	requests := testRequests()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, req := range requests {
				data, err := serializer.SerializeRequest(&req)
				if err != nil {
					t.Errorf("Failed to serialize request %d: %v", i, err)
					continue
				}

				var result common.Request
				err = serializer.DeserializeRequest(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize request %d: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(req, result) {
					t.Errorf("Request %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, req, result)
				}
			}
		})
	}
}

// TestResponseRoundTrip tests that responses can be serialized and deserialized correctly
func TestResponseRoundTrip(t *testing.T) {
	responses := testResponses()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, resp := range responses {
				data, err := serializer.SerializeResponse(&resp)
				if err != nil {
					t.Errorf("Failed to serialize response %d: %v", i, err)
					continue
				}

				var result common.Response
				err = serializer.DeserializeResponse(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize response %d: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(resp, result) {
					t.Errorf("Response %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, resp, result)
				}
			}
		})
	}
}

// TestCodecEchoesAck tests that a response built on the peer carries the ack id of the request
func TestCodecEchoesAck(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			codec := NewCodec(factory())
			req := common.NewRequest("echo", "say", []byte("ping"))

			buf, err := codec.Encode(req)
			if err != nil {
				t.Fatalf("Failed to encode: %v", err)
			}

			// peer side
			peerReq, err := codec.DecodeRequest(buf)
			if err != nil {
				t.Fatalf("Failed to decode request: %v", err)
			}
			respBuf, err := codec.EncodeResponse(common.NewResponse(peerReq, peerReq.Payload, nil))
			if err != nil {
				t.Fatalf("Failed to encode response: %v", err)
			}

			resp, err := codec.Decode(respBuf)
			if err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Ack != req.Ack {
				t.Errorf("Ack mismatch: expected %s, got %s", req.Ack, resp.Ack)
			}
			if string(resp.Payload) != "ping" {
				t.Errorf("Payload mismatch: expected 'ping', got '%s'", resp.Payload)
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name string
		req  common.Request
	}{
		{
			name: "Empty request",
			req:  common.Request{},
		},
		{
			name: "Request with empty payload slice but not nil",
			req: common.Request{
				Ack:     common.NewAckID(),
				Service: "svc",
				Payload: []byte{},
			},
		},
		{
			name: "Request with empty header value",
			req: common.Request{
				Ack:     common.NewAckID(),
				Headers: map[string]string{"token": ""},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := serializer.SerializeRequest(&tc.req)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			var result common.Request
			err = serializer.DeserializeRequest(data, &result)
			if err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			if !reflect.DeepEqual(tc.req, result) {
				t.Errorf("Request mismatch:\nOriginal: %+v\nResult: %+v", tc.req, result)
			}
		})
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()
	header := make([]byte, common.AckIDLength)

	testCases := []struct {
		name        string
		data        []byte
		response    bool
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        header[:10],
			expectError: true,
		},
		{
			name:        "Valid request header only",
			data:        append(append([]byte{}, header...), 0, 0),
			expectError: false,
		},
		{
			name:        "Invalid length for service",
			data:        append(append([]byte{}, header...), 0, hasService, 0, 0, 0, 5, 'a', 'b'),
			expectError: true,
		},
		{
			name:        "Invalid header count",
			data:        append(append([]byte{}, header...), 0, hasHeaders, 0, 0, 0, 2),
			expectError: true,
		},
		{
			name:        "Valid response header only",
			data:        append(append([]byte{}, header...), 0),
			response:    true,
			expectError: false,
		},
		{
			name:        "Invalid length for response payload",
			data:        append(append([]byte{}, header...), hasPayload, 0, 0, 0, 10),
			response:    true,
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var err error
			if tc.response {
				var resp common.Response
				err = serializer.DeserializeResponse(tc.data, &resp)
			} else {
				var req common.Request
				err = serializer.DeserializeRequest(tc.data, &req)
			}

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}

// TestDecodeFailureIsFrameworkError tests that the codec marks decode failures
func TestDecodeFailureIsFrameworkError(t *testing.T) {
	codec := NewCodec(NewBinarySerializer())
	_, err := codec.Decode([]byte{1, 2, 3})
	if !common.IsFrameworkError(err) {
		t.Errorf("Expected framework error, got %v", err)
	}
}

// TestByName tests the serializer lookup
func TestByName(t *testing.T) {
	for _, name := range []string{"binary", "json", "gob", ""} {
		if _, err := ByName(name); err != nil {
			t.Errorf("Unexpected error for %q: %v", name, err)
		}
	}
	_, err := ByName("xml")
	var unknown *UnknownSerializerError
	if !errors.As(err, &unknown) {
		t.Errorf("Expected UnknownSerializerError, got %v", err)
	}
}
