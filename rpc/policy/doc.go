// Package policy contains the collaborators that the connection manager notifies or
// consults per request: the timeout policy (ITimeoutPolicy) and the token context
// that attaches authentication tokens to outgoing requests (ITokenContext).
package policy
