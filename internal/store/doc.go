// Package store persists a transcript of completed turns to SQLite.
//
// The transcript is an audit trail only: it records queries, replies,
// and failures as they pass through the bridge. It is never consulted
// to restore conversation state; continuity lives entirely in the
// assistant session's in-memory state token.
package store
