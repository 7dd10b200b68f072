// Package host defines the identity of a remote endpoint (Host), the striped host
// locks used to serialize connection attempts per host, and the contracts of the
// host directory collaborators (IHostDirectory, IHostQueue, IHostRegistry).
//
// MemoryDirectory is a process local implementation of all three contracts. A
// Redis backed implementation that can be shared between processes lives in the
// sub package redis.
package host
