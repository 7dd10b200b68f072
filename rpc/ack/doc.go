// Package ack implements the correlation of requests and responses.
//
// A Future is the pending-request handle of one invocation; the Table holds the
// futures that are outstanding on one connection, keyed by their acknowledgment id.
// The Table is not synchronized, it is only accessed from the event loop of its
// connection. An ICollector receives every completed future and keeps the timeout
// count per acknowledgment id that is reported to the timeout policy.
package ack
