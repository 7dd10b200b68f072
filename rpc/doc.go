// Package rpc provides the dRPC framework: a client transport that keeps one
// multiplexed TCP connection per remote host, correlates asynchronous responses by
// acknowledgment id and reconnects lost hosts in the background.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Request/Response protocol, configuration structures, error
//     kinds and logging.
//
//   - host: Host identity, striped host locks and the host directory / reconnection
//     queue (in-memory, or shared via Redis in host/redis).
//
//   - ack: Pending-request handles (Future), the per-connection pending-request
//     table and the metrics collector.
//
//   - policy: Timeout policies and auth token attachment.
//
//   - connect: The connection manager, invokers, event loops and the reconnection
//     scheduler.
//
//   - transport: Length-prefixed framing, pipeline stages (zstd) and the TCP
//     connector and frame server.
//
//   - serializer: Request/response serialization with multiple format options
//     (Binary, JSON, GOB).
//
//   - client: The caller-facing RPC client.
//
//   - server: The peer side request dispatcher used by the CLI and the tests.
package rpc
