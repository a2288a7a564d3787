// ABOUTME: Turn transcript types for the bridge's audit trail.
// ABOUTME: The SQLite implementation lives in sqlite.go.

package store

import "time"

// Turn is one recorded query/response exchange.
type Turn struct {
	ID        string
	Frontend  string
	ChatID    string
	SenderID  string
	Query     string
	Reply     string // empty when the turn produced no reply
	HasReply  bool
	Error     string // empty on success
	Duration  time.Duration
	CreatedAt time.Time
}
