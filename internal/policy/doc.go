// Package policy holds the authorization rules the bridge applies to
// inbound chat messages: which chats the bot may serve and which users
// may query it. Policies are injected into the router as a read-only
// interface so they can be swapped or faked in tests.
package policy
