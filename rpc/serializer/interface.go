package serializer

import "github.com/ValentinKolb/dRPC/rpc/common"

// IRPCSerializer is the interface for all request and response serializers
type IRPCSerializer interface {
	// SerializeRequest serializes a Request into a byte array
	SerializeRequest(req *common.Request) ([]byte, error)
	// DeserializeRequest deserializes a byte array into the given Request
	DeserializeRequest(b []byte, req *common.Request) error
	// SerializeResponse serializes a Response into a byte array
	SerializeResponse(resp *common.Response) ([]byte, error)
	// DeserializeResponse deserializes a byte array into the given Response
	DeserializeResponse(b []byte, resp *common.Response) error
}

// ByName returns the serializer for the given name ("binary", "json" or "gob")
func ByName(name string) (IRPCSerializer, error) {
	switch name {
	case "binary", "":
		return NewBinarySerializer(), nil
	case "json":
		return NewJSONSerializer(), nil
	case "gob":
		return NewGOBSerializer(), nil
	default:
		return nil, &UnknownSerializerError{Name: name}
	}
}

// UnknownSerializerError is returned by ByName for unknown serializer names
type UnknownSerializerError struct {
	Name string
}

func (e *UnknownSerializerError) Error() string {
	return "unknown serializer: " + e.Name + " (must be one of binary, json, gob)"
}
