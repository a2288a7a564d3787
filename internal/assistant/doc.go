// Package assistant drives conversational turns against the remote
// assistant service over its bidirectional streaming RPC.
//
// # Session
//
// Session is the core of the bridge. It hides the streaming protocol
// behind a synchronous contract:
//
//	reply, ok, err := session.Ask(ctx, "what time is it")
//
// Each call sends exactly one request, closes the send side, and drains
// the response stream to completion, folding over the messages to keep
// the last non-empty conversation state token and the last non-empty
// display text. The state token is threaded into the next turn's request
// so the service can keep dialogue context across turns.
//
// # Serialization
//
// A single Session is shared by every chat the bridge serves. Turns are
// serialized with an internal mutex: at most one in-flight Ask mutates
// the stored state token at a time.
//
// # Errors
//
// Turn failures carry a Kind (transport, deadline, remote) so callers
// can distinguish a dead channel from a slow turn from a service-side
// rejection. A failed turn never touches the stored state token.
package assistant
