// Package transport defines the wire level contracts of dRPC: the length prefixed
// framing, the per-connection pipeline stages and the interfaces of the transport
// implementations.
//
// Key Components:
//
//   - WriteFrame / FrameReader: every message on a connection is a 4 byte big endian
//     length followed by exactly that many bytes of encoded payload. Frames above
//     the configured maximum are rejected with common.ErrFrameTooLarge.
//
//   - IStage / Pipeline: optional processing between codec and framing (for example
//     zstd compression). Both connection ends must use the same stages.
//
//   - IClientConnector: dials and upgrades client connections (tcp sub package).
//
//   - IRPCServerTransport: peer side transport receiving frames and routing them
//     to a ServerHandleFunc (base sub package).
package transport
