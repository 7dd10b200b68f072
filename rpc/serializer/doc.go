// Package serializer provides the encoding of requests and responses for the dRPC
// transport. It defines a common interface and multiple implementations for
// serializing and deserializing the messages exchanged by both connection ends.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - binarySerializerImpl: Custom binary format optimized for speed and space
//     efficiency. The fixed size acknowledgment id leads every message, optional
//     fields are marked by a flag byte and only encoded when present.
//
//   - gobSerializerImpl: Implementation using Go's built-in gob encoding.
//
//   - jsonSerializerImpl: Implementation using JSON encoding, useful for debugging
//     or interoperability with other systems, but with lower performance.
//
//   - Codec: Adapter giving the client side Encode(request) / Decode(buffer) and
//     the peer side DecodeRequest / EncodeResponse. Decode failures are wrapped as
//     framework errors, since they leave the connection in an unknown state.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	codec := serializer.NewCodec(serializer.NewBinarySerializer())
//	buf, err := codec.Encode(req)
//	// ... write frame, read frame ...
//	resp, err := codec.Decode(frame)
package serializer
